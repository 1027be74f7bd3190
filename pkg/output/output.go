// Package output renders run reports for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jwalton/go-supportscolor"

	"github.com/vertti/presubmit/pkg/check"
	"github.com/vertti/presubmit/pkg/pipeline"
	"github.com/vertti/presubmit/pkg/report"
)

var (
	green = "\033[32m"
	red   = "\033[31m"
	dim   = "\033[2m"
	reset = "\033[0m"
)

func init() {
	if !supportscolor.Stdout().SupportsColor {
		green, red, dim, reset = "", "", "", ""
	}
}

// PrintReport writes each failed check with its output, then the verdict line.
// Passing checks print nothing.
func PrintReport(w io.Writer, r report.Report) {
	for _, res := range r.Failures() {
		PrintResult(w, res)
	}
	if r.OK() {
		fmt.Fprintf(w, "%s[OK]%s presubmit succeeded in %s\n", green, reset, seconds(r.Elapsed))
		return
	}
	fmt.Fprintf(w, "%s[FAIL]%s presubmit failed in %s %s(%d of %d checks failed)%s\n",
		red, reset, seconds(r.Elapsed), dim, len(r.Failures()), len(r.Results), reset)
}

// PrintResult writes one check's status line and, for failures, its captured output verbatim.
func PrintResult(w io.Writer, r check.Result) {
	if r.OK() {
		fmt.Fprintf(w, "%s[OK]%s %s\n", green, reset, r.Name)
		return
	}
	fmt.Fprintf(w, "%s[FAIL]%s %s\n", red, reset, r.Name)
	if r.Output == "" {
		return
	}
	fmt.Fprint(w, r.Output)
	if !strings.HasSuffix(r.Output, "\n") {
		fmt.Fprintln(w)
	}
}

// PrintStages lists the stage partition of a pipeline without running it.
func PrintStages(w io.Writer, specs []pipeline.CheckSpec, stages [][]int) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for n, stage := range stages {
		fmt.Fprintf(tw, "stage %d\n", n+1)
		for _, i := range stage {
			s := specs[i]
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", s.ID, s.Command, formatLabel(dirLabel(s)))
		}
	}
	_ = tw.Flush()
}

func dirLabel(s pipeline.CheckSpec) string {
	label := "dir: " + s.Command.Dir
	if s.Command.Dir == "" {
		label = "dir: ."
	}
	if len(s.DependsOn) > 0 {
		label += ", after: " + strings.Join(s.DependsOn, " ")
	}
	return label
}

// formatLabel dims the "key:" prefix of a "key: value" string.
func formatLabel(s string) string {
	idx := strings.Index(s, ":")
	if idx == -1 {
		return s
	}
	return dim + s[:idx+1] + reset + s[idx+1:]
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
