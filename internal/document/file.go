package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// OutputName returns "<id>_<phase>_<angle>.<ext>", adding _2, _3, ... before the extension
// while exists reports the name as taken. exists may be nil.
func OutputName(p PatientInfo, ext string, exists func(string) bool) string {
	p = p.WithDefaults()
	base := fmt.Sprintf("%s_%s_%s", p.PatientID, p.Phase, p.Angle)
	ext = strings.TrimPrefix(ext, ".")

	name := base + "." + ext
	for n := 2; exists != nil && exists(name); n++ {
		name = fmt.Sprintf("%s_%d.%s", base, n, ext)
	}
	return name
}

// FileExistsIn returns an exists func for OutputName that checks dir.
func FileExistsIn(dir string) func(string) bool {
	return func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name))
		return err == nil
	}
}

// ReadFile loads and validates a document.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// WriteFile saves a document as indented JSON.
func WriteFile(path string, d *Document) error {
	data, err := Encode(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SidecarPath returns the document path stored next to an image, e.g. a.jpg -> a.json.
func SidecarPath(imagePath string) string {
	return strings.TrimSuffix(imagePath, filepath.Ext(imagePath)) + ".json"
}
