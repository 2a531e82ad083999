package dialogs

import (
	"errors"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/xiaomayi-bee/CleftLip/internal/document"
)

// AuditDecision is what the reviewer entered.
type AuditDecision struct {
	Approved bool
	Comments string
	Auditor  document.Auditor
}

// AuditDialog records an approve or reject decision.
type AuditDialog struct {
	previous *document.AuditRecord
	auditor  document.Auditor
	window   fyne.Window
	onDone   func(decision AuditDecision, ok bool)

	nameEntry *widget.Entry
	decision  *widget.RadioGroup
	comments  *widget.Entry
}

const (
	choiceApprove = "Approve"
	choiceReject  = "Reject"
)

// NewAuditDialog creates the dialog. previous, when not nil, prefills the form.
func NewAuditDialog(previous *document.AuditRecord, auditor document.Auditor, window fyne.Window, onDone func(AuditDecision, bool)) *AuditDialog {
	return &AuditDialog{
		previous: previous,
		auditor:  auditor,
		window:   window,
		onDone:   onDone,
	}
}

// Show displays the dialog. onDone is called exactly once.
func (d *AuditDialog) Show() {
	d.nameEntry = widget.NewEntry()
	d.nameEntry.SetText(d.auditor.Name)
	d.nameEntry.Validator = func(s string) error {
		if s == "" {
			return errors.New("auditor name is required")
		}
		return nil
	}

	d.decision = widget.NewRadioGroup([]string{choiceApprove, choiceReject}, nil)
	d.decision.Horizontal = true
	d.decision.Required = true

	d.comments = widget.NewMultiLineEntry()
	d.comments.SetPlaceHolder("Comments")

	if d.previous != nil {
		if d.previous.Approved {
			d.decision.SetSelected(choiceApprove)
		} else {
			d.decision.SetSelected(choiceReject)
		}
		d.comments.SetText(d.previous.Comments)
	}

	items := []*widget.FormItem{
		widget.NewFormItem("Auditor", d.nameEntry),
		widget.NewFormItem("Decision", d.decision),
		widget.NewFormItem("Comments", d.comments),
	}

	dlg := dialog.NewForm("Review", "Submit", "Cancel", items, func(confirm bool) {
		if !confirm {
			d.onDone(AuditDecision{}, false)
			return
		}
		who := d.auditor
		who.Name = d.nameEntry.Text
		d.onDone(AuditDecision{
			Approved: d.decision.Selected == choiceApprove,
			Comments: d.comments.Text,
			Auditor:  who,
		}, true)
	}, d.window)
	dlg.Resize(fyne.NewSize(460, 320))
	dlg.Show()
}
