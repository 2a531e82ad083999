// Package dialogs provides application dialogs. Each dialog reports its outcome through a
// completion callback.
package dialogs

import (
	"errors"
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/internal/patientid"
)

// PatientDialog edits the patient id, phase and angle.
type PatientDialog struct {
	info       document.PatientInfo
	suggestion patientid.Result
	window     fyne.Window
	onDone     func(info document.PatientInfo, ok bool)

	idEntry     *widget.Entry
	phaseSelect *widget.SelectEntry
	angleSelect *widget.SelectEntry
	hint        *widget.Label
}

// NewPatientDialog creates a dialog prefilled with info. When info has no id, a found
// suggestion is offered instead.
func NewPatientDialog(info document.PatientInfo, suggestion patientid.Result, window fyne.Window, onDone func(document.PatientInfo, bool)) *PatientDialog {
	return &PatientDialog{
		info:       info.WithDefaults(),
		suggestion: suggestion,
		window:     window,
		onDone:     onDone,
	}
}

// Show displays the dialog. onDone is called exactly once, with ok false on cancel.
func (d *PatientDialog) Show() {
	form := d.createContent()

	dlg := dialog.NewForm("Patient", "Confirm", "Cancel", form, func(confirm bool) {
		if !confirm {
			d.onDone(d.info, false)
			return
		}
		d.onDone(d.result(), true)
	}, d.window)
	dlg.Resize(fyne.NewSize(420, 280))
	dlg.Show()
}

func (d *PatientDialog) createContent() []*widget.FormItem {
	d.idEntry = widget.NewEntry()
	d.idEntry.SetPlaceHolder("digits only, e.g. 40634")
	d.idEntry.Validator = func(s string) error {
		if !patientid.Valid(s) {
			return errors.New("patient id must be digits")
		}
		return nil
	}

	d.hint = widget.NewLabel("")
	id := d.info.PatientID
	if id == "" && d.suggestion.Found() {
		id = d.suggestion.PatientID
		d.hint.SetText(fmt.Sprintf("Suggested from path (%s, %s confidence)", d.suggestion.Source, d.suggestion.Confidence))
	}
	d.idEntry.SetText(id)

	d.phaseSelect = widget.NewSelectEntry(document.Phases)
	d.phaseSelect.SetText(d.info.Phase)

	d.angleSelect = widget.NewSelectEntry(document.Angles)
	d.angleSelect.SetText(d.info.Angle)

	return []*widget.FormItem{
		widget.NewFormItem("Patient ID", d.idEntry),
		widget.NewFormItem("", d.hint),
		widget.NewFormItem("Phase", d.phaseSelect),
		widget.NewFormItem("Angle", d.angleSelect),
	}
}

func (d *PatientDialog) result() document.PatientInfo {
	return document.PatientInfo{
		PatientID: d.idEntry.Text,
		Phase:     d.phaseSelect.Text,
		Angle:     d.angleSelect.Text,
	}.WithDefaults()
}
