package document

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrInvalidFormat is wrapped by every FormatError.
var ErrInvalidFormat = errors.New("invalid annotation document")

// FormatError describes why a document was rejected. Index is the offending entry of
// points, or -1 when the problem is outside the points list.
type FormatError struct {
	Index  int
	Field  string
	Reason string
}

func (e *FormatError) Error() string {
	switch {
	case e.Index >= 0 && e.Field != "":
		return fmt.Sprintf("%v: points[%d].%s: %s", ErrInvalidFormat, e.Index, e.Field, e.Reason)
	case e.Index >= 0:
		return fmt.Sprintf("%v: points[%d]: %s", ErrInvalidFormat, e.Index, e.Reason)
	case e.Field != "":
		return fmt.Sprintf("%v: %s: %s", ErrInvalidFormat, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrInvalidFormat, e.Reason)
}

func (e *FormatError) Unwrap() error { return ErrInvalidFormat }

func formatErr(index int, field, reason string, args ...any) *FormatError {
	return &FormatError{Index: index, Field: field, Reason: fmt.Sprintf(reason, args...)}
}

var requiredFields = []string{"patient_info", "image_info", "points", "system_info", "statistics"}

var requiredPointFields = []string{"id", "name", "exists", "x", "y"}

// Encode writes d as indented JSON.
func Encode(d *Document) ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses and validates a document. Any problem is reported as a *FormatError and
// no document is returned.
func Decode(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, formatErr(-1, "", "not a JSON object: %v", err)
	}

	for _, f := range requiredFields {
		if raw, ok := top[f]; !ok || isNull(raw) {
			return nil, formatErr(-1, f, "missing")
		}
	}

	if err := checkPatient(top["patient_info"]); err != nil {
		return nil, err
	}
	if err := checkPoints(top["points"]); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, formatErr(-1, "", "%v", err)
	}
	doc.Patient = doc.Patient.WithDefaults()
	return &doc, nil
}

func checkPatient(raw json.RawMessage) error {
	var patient map[string]json.RawMessage
	if err := json.Unmarshal(raw, &patient); err != nil {
		return formatErr(-1, "patient_info", "must be an object")
	}
	var id string
	if r, ok := patient["patient_id"]; !ok || !isString(r) || json.Unmarshal(r, &id) != nil || id == "" {
		return formatErr(-1, "patient_info.patient_id", "must be a non-empty string")
	}
	return nil
}

func checkPoints(raw json.RawMessage) error {
	var entries []json.RawMessage
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) || json.Unmarshal(raw, &entries) != nil {
		return formatErr(-1, "points", "must be an array")
	}

	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		var p map[string]json.RawMessage
		if err := json.Unmarshal(e, &p); err != nil || p == nil {
			return formatErr(i, "", "must be an object")
		}
		for _, f := range requiredPointFields {
			if _, ok := p[f]; !ok {
				return formatErr(i, f, "missing")
			}
		}

		if !isNumber(p["id"]) {
			return formatErr(i, "id", "must be a number")
		}
		var name string
		if !isString(p["name"]) || json.Unmarshal(p["name"], &name) != nil {
			return formatErr(i, "name", "must be a string")
		}
		exists, ok := parseBool(p["exists"])
		if !ok {
			return formatErr(i, "exists", "must be a boolean")
		}

		var x, y float64
		if !isNumber(p["x"]) || json.Unmarshal(p["x"], &x) != nil {
			return formatErr(i, "x", "must be a number")
		}
		if !isNumber(p["y"]) || json.Unmarshal(p["y"], &y) != nil {
			return formatErr(i, "y", "must be a number")
		}
		if !exists && (x != -1 || y != -1) {
			return formatErr(i, "exists", "absent point has coordinates (%g, %g), want (-1, -1)", x, y)
		}

		if j, dup := seen[name]; dup {
			return formatErr(i, "name", "duplicate of points[%d] %q", j, name)
		}
		seen[name] = i
	}
	return nil
}

func firstByte(raw json.RawMessage) byte {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return 0
	}
	return t[0]
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func isString(raw json.RawMessage) bool {
	return firstByte(raw) == '"'
}

func isNumber(raw json.RawMessage) bool {
	c := firstByte(raw)
	return c == '-' || (c >= '0' && c <= '9')
}

func parseBool(raw json.RawMessage) (value, ok bool) {
	switch string(bytes.TrimSpace(raw)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
