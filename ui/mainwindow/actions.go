package mainwindow

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/internal/photo"
	"github.com/xiaomayi-bee/CleftLip/internal/session"
	"github.com/xiaomayi-bee/CleftLip/ui/dialogs"
	"github.com/xiaomayi-bee/CleftLip/ui/prefs"
)

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	dir := mw.prefs.String(prefs.KeyLastDir)
	if dir == "" {
		return nil
	}
	lister, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return lister
}

// saveLastDir remembers the directory containing path.
func (mw *MainWindow) saveLastDir(path string) {
	mw.prefs.SetString(prefs.KeyLastDir, filepath.Dir(path))
	mw.SavePreferences()
}

// OpenImage loads an image from disk into the session. In review mode the annotation
// stored next to it is opened too.
func (mw *MainWindow) OpenImage(path string) error {
	p, err := photo.Load(path)
	if err != nil {
		return err
	}

	mw.canvas.SetPhoto(p.Image)
	if err := mw.session.LoadImage(p.Info()); err != nil {
		mw.canvas.SetPhoto(nil)
		return err
	}
	mw.imagePath = path
	mw.documentPath = ""

	sidecar := document.SidecarPath(path)
	_, statErr := os.Stat(sidecar)
	hasSidecar := statErr == nil

	switch {
	case mw.mode == ModeReview && hasSidecar:
		if err := mw.OpenDocument(sidecar); err != nil {
			return err
		}
	case mw.mode == ModeAuthoring:
		mw.session.SuggestPatientID(path)
		if hasSidecar {
			mw.updateStatus(fmt.Sprintf("Loaded %s, annotation %s available via Open Annotation",
				filepath.Base(path), filepath.Base(sidecar)))
		}
	}

	mw.log.Info().Str("path", path).Str("size", photo.FormatFileSize(p.FileSize)).Msg("image opened")
	return nil
}

// OpenDocument imports an annotation document.
func (mw *MainWindow) OpenDocument(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	doc, err := mw.session.Import(data)
	if err != nil {
		return err
	}
	mw.documentPath = path
	mw.updateTitle()
	mw.updateStatus(fmt.Sprintf("Opened %s: %d of %d marked, %s",
		filepath.Base(path), doc.Statistics.MarkedPoints, doc.Statistics.TotalPoints, doc.Status()))
	return nil
}

func (mw *MainWindow) onOpenImage() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		mw.saveLastDir(path)
		if err := mw.OpenImage(path); err != nil {
			mw.log.Error().Err(err).Str("path", path).Msg("failed to open image")
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)

	exts := make([]string, 0, 8)
	for _, ext := range photo.SupportedFormats() {
		exts = append(exts, ext, strings.ToUpper(ext))
	}
	fd.SetFilter(storage.NewExtensionFileFilter(exts))
	if dir := mw.getLastDir(); dir != nil {
		fd.SetLocation(dir)
	}
	fd.Show()
}

func (mw *MainWindow) onImport() {
	if !mw.session.HasImage() {
		dialog.ShowError(session.ErrNoImage, mw.Window)
		return
	}
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		if err := mw.OpenDocument(path); err != nil {
			mw.log.Error().Err(err).Str("path", path).Msg("failed to open annotation")
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if dir := mw.getLastDir(); dir != nil {
		fd.SetLocation(dir)
	}
	fd.Show()
}

// onExport asks for patient information first when it is missing, then for a file.
func (mw *MainWindow) onExport() {
	doc, err := mw.session.Export()
	if errors.Is(err, document.ErrMissingPatientID) {
		mw.editPatient(func() { mw.onExport() })
		return
	}
	if err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}

	dir := filepath.Dir(mw.imagePath)
	name := document.OutputName(doc.Patient, "json", document.FileExistsIn(dir))

	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		if err := writeDocument(writer, doc); err != nil {
			mw.log.Error().Err(err).Str("path", writer.URI().Path()).Msg("export failed")
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.documentPath = writer.URI().Path()
		mw.saveLastDir(mw.documentPath)
		mw.updateTitle()
		mw.updateStatus(fmt.Sprintf("Exported %s (%d of %d marked)",
			filepath.Base(mw.documentPath), doc.Statistics.MarkedPoints, doc.Statistics.TotalPoints))
	}, mw.Window)
	fd.SetFileName(name)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".json"}))
	if lister, err := storage.ListerForURI(storage.NewFileURI(dir)); err == nil && mw.imagePath != "" {
		fd.SetLocation(lister)
	}
	fd.Show()
}

func writeDocument(w io.Writer, doc *document.Document) error {
	data, err := document.Encode(doc)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func (mw *MainWindow) onEditPatient() {
	mw.editPatient(nil)
}

// editPatient shows the patient dialog and calls then after a successful edit.
func (mw *MainWindow) editPatient(then func()) {
	suggestion := mw.session.SuggestPatientID(mw.imagePath)
	dlg := dialogs.NewPatientDialog(mw.session.Patient(), suggestion, mw.Window, func(info document.PatientInfo, ok bool) {
		if !ok {
			return
		}
		if err := mw.session.SetPatient(info); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		if then != nil {
			then()
		}
	})
	dlg.Show()
}

// onAudit records a decision and writes it back into the annotation file.
func (mw *MainWindow) onAudit() {
	if mw.documentPath == "" {
		dialog.ShowError(errors.New("open an annotation before reviewing"), mw.Window)
		return
	}

	var previous *document.AuditRecord
	if rec, ok := mw.session.AuditRecord(); ok {
		previous = &rec
	}

	dlg := dialogs.NewAuditDialog(previous, mw.auditor(), mw.Window, func(d dialogs.AuditDecision, ok bool) {
		if !ok {
			return
		}
		if _, err := mw.session.Audit(d.Approved, d.Comments, d.Auditor); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.prefs.SetString(prefs.KeyAuditorName, d.Auditor.Name)
		mw.SavePreferences()

		doc, err := mw.session.Export()
		if err == nil {
			err = document.WriteFile(mw.documentPath, doc)
		}
		if err != nil {
			mw.log.Error().Err(err).Str("path", mw.documentPath).Msg("failed to save review")
			dialog.ShowError(err, mw.Window)
		}
	})
	dlg.Show()
}

// auditor returns the remembered reviewer, defaulting the name to the OS user.
func (mw *MainWindow) auditor() document.Auditor {
	who := document.Auditor{Name: mw.prefs.String(prefs.KeyAuditorName)}
	if u, err := user.Current(); err == nil {
		who.Username = u.Username
		if who.Name == "" {
			who.Name = u.Username
		}
	}
	return who
}

func (mw *MainWindow) onCloseImage() {
	closeImage := func() {
		mw.session.Clear()
		mw.canvas.SetPhoto(nil)
		mw.imagePath = ""
		mw.documentPath = ""
		mw.updateTitle()
		mw.updateStatus("Ready")
	}
	if mw.mode == ModeAuthoring && mw.session.Modified() {
		dialog.ShowConfirm("Unsaved annotation", "Discard the current annotation?", func(ok bool) {
			if ok {
				closeImage()
			}
		}, mw.Window)
		return
	}
	closeImage()
}

func (mw *MainWindow) onZoomIn()    { mw.report(mw.session.ZoomIn()) }
func (mw *MainWindow) onZoomOut()   { mw.report(mw.session.ZoomOut()) }
func (mw *MainWindow) onFit()       { mw.report(mw.session.Fit()) }
func (mw *MainWindow) onResetView() { mw.report(mw.session.ResetView()) }
func (mw *MainWindow) onUndo()      { mw.ctrl.Key("z", true) }
func (mw *MainWindow) onRedo()      { mw.ctrl.Key("y", true) }

func (mw *MainWindow) onTogglePointMode() {
	_, err := mw.ctrl.TogglePointMode()
	mw.report(err)
}

func (mw *MainWindow) report(err error) {
	if err != nil {
		mw.updateStatus(err.Error())
	}
}
