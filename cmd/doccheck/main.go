// Command doccheck validates annotation documents and summarizes their review state.
//
// Arguments are files or directories; directories are searched recursively for .json files.
package main

import (
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xiaomayi-bee/CleftLip/internal/catalog"
	"github.com/xiaomayi-bee/CleftLip/internal/document"
	"github.com/xiaomayi-bee/CleftLip/internal/logging"
	"github.com/xiaomayi-bee/CleftLip/internal/version"
)

// fileResult is one checked document.
type fileResult struct {
	Path      string          `json:"path"`
	Valid     bool            `json:"valid"`
	Error     string          `json:"error,omitempty"`
	PatientID string          `json:"patient_id,omitempty"`
	Marked    int             `json:"marked"`
	Total     int             `json:"total"`
	Status    document.Status `json:"status,omitempty"`
	Unknown   []string        `json:"unknown_names,omitempty"`
}

type report struct {
	Catalog string               `json:"catalog"`
	Files   []fileResult         `json:"files"`
	Invalid int                  `json:"invalid"`
	Review  document.ReviewStats `json:"review"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("doccheck", flag.ContinueOnError)
	fset.SetOutput(stderr)
	catName := fset.String("catalog", "facial", "landmark catalog the documents should use")
	catFile := fset.String("catalog-file", "", "YAML catalog definition, overrides -catalog")
	asJSON := fset.Bool("json", false, "print the report as JSON")
	verbose := fset.Bool("v", false, "log each file as it is checked")
	showVersion := fset.Bool("version", false, "print version and exit")
	fset.Usage = func() {
		fmt.Fprintln(stderr, "Usage: doccheck [-catalog name] [-json] [-v] <file-or-dir>...")
		fset.PrintDefaults()
	}
	if err := fset.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("doccheck"))
		return 0
	}
	if fset.NArg() == 0 {
		fset.Usage()
		return 2
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console", Output: stderr})

	cat, err := catalog.Resolve(*catName, *catFile)
	if err != nil {
		fmt.Fprintf(stderr, "doccheck: %v\n", err)
		return 2
	}

	paths, err := collect(fset.Args())
	if err != nil {
		fmt.Fprintf(stderr, "doccheck: %v\n", err)
		return 2
	}

	rep := check(paths, cat)

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			fmt.Fprintf(stderr, "doccheck: %v\n", err)
			return 2
		}
	} else {
		printReport(stdout, rep)
	}

	if rep.Invalid > 0 {
		return 1
	}
	return 0
}

// collect expands directories into the .json files below them.
func collect(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".json") {
				paths = append(paths, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func check(paths []string, cat *catalog.Catalog) report {
	rep := report{Catalog: cat.Name(), Files: make([]fileResult, 0, len(paths))}
	var docs []*document.Document

	for _, p := range paths {
		r := fileResult{Path: p}
		doc, err := document.ReadFile(p)
		if err != nil {
			logging.Warn().Err(err).Str("path", p).Msg("invalid document")
			r.Error = err.Error()
			rep.Invalid++
			rep.Files = append(rep.Files, r)
			continue
		}
		r.Valid = true
		r.PatientID = doc.Patient.PatientID
		r.Marked = doc.Statistics.MarkedPoints
		r.Total = doc.Statistics.TotalPoints
		r.Status = doc.Status()
		r.Unknown = doc.UnknownNames(cat)
		logging.Debug().Str("path", p).Str("status", string(r.Status)).Int("marked", r.Marked).Msg("checked")
		rep.Files = append(rep.Files, r)
		docs = append(docs, doc)
	}

	rep.Review = document.Summarize(docs)
	return rep
}

func printReport(w io.Writer, rep report) {
	for _, f := range rep.Files {
		if !f.Valid {
			fmt.Fprintf(w, "FAIL %s: %s\n", f.Path, f.Error)
			continue
		}
		fmt.Fprintf(w, "ok   %s: patient %s, %d/%d marked, %s\n", f.Path, f.PatientID, f.Marked, f.Total, f.Status)
		if len(f.Unknown) > 0 {
			fmt.Fprintf(w, "     not in catalog %s: %s\n", rep.Catalog, strings.Join(f.Unknown, ", "))
		}
	}
	s := rep.Review
	fmt.Fprintf(w, "\n%d files, %d invalid\n", len(rep.Files), rep.Invalid)
	fmt.Fprintf(w, "review: %d approved, %d rejected, %d pending (%s%% approved)\n",
		s.Approved, s.Rejected, s.Pending, s.ApprovalRate)
}
