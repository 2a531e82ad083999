// Command pidextract suggests patient ids from photo paths, one path per argument or per
// line of stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/xiaomayi-bee/CleftLip/internal/logging"
	"github.com/xiaomayi-bee/CleftLip/internal/patientid"
	"github.com/xiaomayi-bee/CleftLip/internal/version"
)

type line struct {
	Path string `json:"path"`
	patientid.Result
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("pidextract", flag.ContinueOnError)
	fset.SetOutput(stderr)
	asJSON := fset.Bool("json", false, "print one JSON object per path")
	verbose := fset.Bool("v", false, "log why each path matched")
	showVersion := fset.Bool("version", false, "print version and exit")
	if err := fset.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}
	if *showVersion {
		fmt.Fprintln(stdout, version.String("pidextract"))
		return 0
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console", Output: stderr})

	paths := fset.Args()
	if len(paths) == 0 {
		sc := bufio.NewScanner(stdin)
		for sc.Scan() {
			if p := strings.TrimSpace(sc.Text()); p != "" {
				paths = append(paths, p)
			}
		}
		if err := sc.Err(); err != nil {
			fmt.Fprintf(stderr, "pidextract: %v\n", err)
			return 2
		}
	}

	enc := json.NewEncoder(stdout)
	missing := 0
	for _, p := range paths {
		r := patientid.Extract(p)
		if !r.Found() {
			missing++
		}
		logging.Debug().Str("path", p).Str("source", string(r.Source)).Str("patient_id", r.PatientID).Msg("extracted")
		if *asJSON {
			if err := enc.Encode(line{Path: p, Result: r}); err != nil {
				fmt.Fprintf(stderr, "pidextract: %v\n", err)
				return 2
			}
			continue
		}
		id := r.PatientID
		if id == "" {
			id = "-"
		}
		fmt.Fprintf(stdout, "%s\t%s\t%s\t%s\n", id, r.Source, r.Confidence, p)
	}

	if missing > 0 {
		return 1
	}
	return 0
}
