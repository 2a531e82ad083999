// Package patientid suggests a medical record number from an image's file path.
//
// Clinic photo archives are usually organised one folder per patient, named like
// "40634唐明轩", "2024001-李四" or "患者123456". Folders are scanned from the one nearest the
// file outwards and each folder is tried against every rule, most specific first; the file
// name is the last resort. A suggestion must still pass Valid before it is used.
package patientid

import (
	"regexp"
	"strings"

	"github.com/xiaomayi-bee/CleftLip/internal/validation"
)

// Source names the rule that produced a result.
type Source string

const (
	SourceFolderNumberName Source = "folder_number_name"
	SourceFolderSeparator  Source = "folder_separator"
	SourceFolderPureNumber Source = "folder_pure_number"
	SourceKeywordFolder    Source = "keyword_folder"
	SourceLooseMatch       Source = "loose_match"
	SourceFilename         Source = "filename"
	SourceNone             Source = "none"
	SourceError            Source = "error"
)

// Confidence grades how likely a suggestion is right.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
	ConfidenceNone   Confidence = "none"
)

// Result is a suggested patient id. PatientID is empty when nothing matched.
type Result struct {
	PatientID  string     `json:"patient_id"`
	Source     Source     `json:"source"`
	Confidence Confidence `json:"confidence"`
	Error      string     `json:"error,omitempty"`
}

// Found reports whether a suggestion was made.
func (r Result) Found() bool { return r.PatientID != "" }

type rule struct {
	source     Source
	confidence Confidence
	pattern    *regexp.Regexp
}

// Folder rules in priority order. The first capture group is the id.
var folderRules = []rule{
	{SourceFolderNumberName, ConfidenceHigh, regexp.MustCompile(`^(\d{4,8})([\x{4e00}-\x{9fa5}]{2,4})$`)},
	{SourceFolderSeparator, ConfidenceHigh, regexp.MustCompile(`^(\d{4,8})[-_]([\x{4e00}-\x{9fa5}a-zA-Z]{2,20})$`)},
	{SourceFolderPureNumber, ConfidenceHigh, regexp.MustCompile(`^(\d{4,8})$`)},
	{SourceKeywordFolder, ConfidenceMedium, regexp.MustCompile(`(?i)(?:患者|病历|patient|case|id)[^\d]*(\d{4,8})`)},
}

var (
	looseNumber  = regexp.MustCompile(`\d{4,8}`)
	fileNameRule = regexp.MustCompile(`^(\d{4,8})(?:[^\d]|$)`)
)

// Extract runs the rules against path. Both / and \ separate folders.
func Extract(path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Source: SourceError, Confidence: ConfidenceNone, Error: "empty path"}
	}

	parts := strings.Split(strings.ReplaceAll(path, `\`, "/"), "/")

	for i := len(parts) - 2; i >= 0; i-- {
		folder := parts[i]
		if folder == "" {
			continue
		}
		if r, ok := matchFolder(folder); ok {
			return r
		}
	}

	if m := fileNameRule.FindStringSubmatch(parts[len(parts)-1]); m != nil {
		return Result{PatientID: m[1], Source: SourceFilename, Confidence: ConfidenceLow}
	}

	return Result{Source: SourceNone, Confidence: ConfidenceNone, Error: "no patient id pattern in path"}
}

func matchFolder(folder string) (Result, bool) {
	for _, r := range folderRules {
		if m := r.pattern.FindStringSubmatch(folder); m != nil {
			return Result{PatientID: m[1], Source: r.source, Confidence: r.confidence}, true
		}
	}

	// Only the leftmost run is considered; it is rejected when it is part of a longer
	// digit run.
	loc := looseNumber.FindStringIndex(folder)
	if loc == nil {
		return Result{}, false
	}
	if isDigitAt(folder, loc[0]-1) || isDigitAt(folder, loc[1]) {
		return Result{}, false
	}
	return Result{PatientID: folder[loc[0]:loc[1]], Source: SourceLooseMatch, Confidence: ConfidenceMedium}, true
}

func isDigitAt(s string, i int) bool {
	return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9'
}

// Valid reports whether id is an acceptable patient id (ASCII digits only).
func Valid(id string) bool {
	return validation.PatientID(id)
}
