package smoke

import (
	"fmt"
	"io"
	"os"
)

// ShowHelp prints usage information for the smoke tool.
func ShowHelp() {
	_, _ = os.Stdout.WriteString(`cinescope smoke client
======================

Walks a running cinescope service end to end and checks every answer.

Usage:
  go run ./cmd/smoke [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:5000")
  -timeout duration
        HTTP request timeout (default 10s)
  -actor string
        Actor searched in overviews (default "Tom Hanks")
  -genre string
        Genre searched in genres (default "Horror")
  -year int
        Year filter of the search step (default 2020)
  -min-rating float
        Minimum rating filter of the search step (default 7.5)
  -limit int
        Row limit of the search step (default 5)
  -appends int
        Movies appended concurrently by the burst step, 0 to skip (default 50)
  -workers int
        Concurrent workers of the burst step (default 4)
  -verbose
        Log every step
  -help
        Show this help message

The run appends movies to the catalogue. Point it at a disposable instance.
`)
}

// PrintReport writes one line per step followed by a summary.
func PrintReport(w io.Writer, rep *Report) {
	for _, s := range rep.Steps {
		mark := "ok  "
		if s.Err != nil {
			mark = "FAIL"
		}
		_, _ = fmt.Fprintf(w, "%s %-14s %3d %8s", mark, s.Name, s.Status, s.Duration.Round(100_000))
		if s.Err != nil {
			_, _ = fmt.Fprintf(w, "  %v", s.Err)
		}
		_, _ = fmt.Fprintln(w)
	}
	failed := len(rep.Failed())
	_, _ = fmt.Fprintf(w, "%d steps, %d failed, %s\n", len(rep.Steps), failed, rep.EndTime.Sub(rep.StartTime).Round(100_000))
}
