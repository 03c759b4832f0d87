package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/fidokit/nodediff/internal/batch"
	"github.com/fidokit/nodediff/internal/q/uni"
	"golang.org/x/term"
)

// styler colors verdicts, but only when writing to a terminal and NO_COLOR is unset.
type styler struct {
	enabled bool
}

func newStyler(w io.Writer) styler {
	f, ok := w.(*os.File)
	if !ok || f == nil || os.Getenv("NO_COLOR") != "" {
		return styler{}
	}
	return styler{enabled: term.IsTerminal(int(f.Fd()))}
}

func (s styler) good(str string) string { return s.paint(str, color.FgGreen) }
func (s styler) bad(str string) string  { return s.paint(str, color.FgRed) }
func (s styler) dim(str string) string  { return s.paint(str, color.Faint) }

func (s styler) paint(str string, attrs ...color.Attribute) string {
	if !s.enabled {
		return str
	}
	c := color.New(append(attrs, color.Bold)...)
	// EnableColor overrides color's own check of os.Stdout.
	c.EnableColor()
	return c.Sprint(str)
}

const maxNameColumn = 32

// writeSummary prints one aligned row per nodelist in report.
func writeSummary(w io.Writer, report batch.Report, st styler) error {
	nameWidth := uni.TextWidth("NODELIST", nil)
	for _, f := range report.Files {
		nameWidth = max(nameWidth, uni.TextWidth(filepath.Base(f.Path), nil))
	}
	nameWidth = min(nameWidth, maxNameColumn)

	var b strings.Builder
	fmt.Fprintf(&b, "\n%s  %s  %s  %s\n", uni.PadRight("NODELIST", nameWidth, nil), "DIFFS", "  CRC", "STATUS")
	for _, f := range report.Files {
		crc := "    -"
		if n := len(f.Steps); n > 0 {
			crc = fmt.Sprintf("%05d", f.Steps[n-1].Result.Checksum)
		}
		status := st.good("ok")
		if f.Err != nil {
			crc = "    -"
			status = st.bad("failed: " + firstLine(f.Err.Error()))
		}
		fmt.Fprintf(&b, "%s  %5d  %s  %s\n", uni.Fit(filepath.Base(f.Path), nameWidth, nil), len(f.Steps), crc, status)
	}
	fmt.Fprintf(&b, "%s\n", st.dim(fmt.Sprintf("%d updated, %d failed", len(report.Files)-report.Failed(), report.Failed())))

	_, err := io.WriteString(w, b.String())
	return err
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
