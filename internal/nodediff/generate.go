package nodediff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fidokit/nodediff/internal/crc16"
	"github.com/fidokit/nodediff/internal/nodelist"
	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/encoding"
)

// GenerateResult summarizes a generated nodediff.
type GenerateResult struct {
	OldHeader   string
	NewHeader   string
	Declared    int // checksum declared by NewHeader; valid if HasDeclared
	HasDeclared bool
	Checksum    uint16 // CRC of the new body

	Commands int // A/D/C lines written
	Added    int // lines carried in A blocks, including NewHeader
	Copied   int
	Deleted  int // old lines deleted, including the old header
}

// Generate writes to out a nodediff that turns oldList into newList. Both lists are read up to their end-of-file marker.
//
// The script always starts by replacing the header: its first D count covers the old header and its first A block starts with the new header. If the new header
// declares a checksum that its body does not match, Generate fails with a *ChecksumError, since Apply would reject the result.
func Generate(oldList, newList LineReader, out LineWriter, enc encoding.Encoding) (GenerateResult, error) {
	var res GenerateResult

	oldLines, err := readList(oldList)
	if err != nil {
		return res, fmt.Errorf("read old nodelist: %w", err)
	}
	newLines, err := readList(newList)
	if err != nil {
		return res, fmt.Errorf("read new nodelist: %w", err)
	}
	res.OldHeader = oldLines[0]
	res.NewHeader = newLines[0]

	crc := crc16.New(enc)
	for _, line := range newLines[1:] {
		crc.Update(line + nodelist.CRLF)
	}
	res.Checksum = crc.Value()
	res.Declared, res.HasDeclared = crc16.ExtractDeclared(res.NewHeader)
	if res.HasDeclared && res.Declared != int(res.Checksum) {
		return res, &ChecksumError{Expected: res.Declared, Actual: res.Checksum}
	}

	sw := &scriptWriter{out: out, res: &res}
	if err := sw.line(res.OldHeader); err != nil {
		return res, err
	}

	dmp := diffmatchpatch.New()
	rOld, rNew, lineArray := dmp.DiffLinesToRunes(joinLines(oldLines[1:]), joinLines(newLines[1:]))
	diffs := dmp.DiffCleanupMerge(dmp.DiffMainRunes(rOld, rNew, false))

	// The header region: the old header is always deleted and the new one always added.
	sw.del = 1
	sw.add = []string{res.NewHeader}
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if err := sw.flush(); err != nil {
				return res, err
			}
			n := utf8.RuneCountInString(d.Text)
			if err := sw.command('C', n); err != nil {
				return res, err
			}
			res.Copied += n
		case diffmatchpatch.DiffDelete:
			sw.del += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffInsert:
			for _, r := range d.Text {
				idx := int(r)
				if idx <= 0 || idx >= len(lineArray) {
					return res, fmt.Errorf("line diff produced unknown line index %d", idx)
				}
				sw.add = append(sw.add, strings.TrimSuffix(lineArray[idx], "\n"))
			}
		}
	}
	if err := sw.flush(); err != nil {
		return res, err
	}
	if err := out.Flush(); err != nil {
		return res, fmt.Errorf("flush: %w", err)
	}
	return res, nil
}

// readList returns every line up to (not including) the end-of-file marker. The first line is the header; an empty list is an error.
func readList(r LineReader) ([]string, error) {
	var lines []string
	for {
		line, ok, err := r.ReadLine()
		if err != nil {
			return nil, err
		}
		if !ok || nodelist.IsEndOfFile(line) {
			break
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return nil, nodelist.ErrEmptyInput
	}
	return lines, nil
}

func joinLines(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}

// scriptWriter accumulates one change region (deletes, then adds) between copies.
type scriptWriter struct {
	out LineWriter
	res *GenerateResult
	del int
	add []string
}

func (w *scriptWriter) line(s string) error {
	if err := w.out.WriteLine(s + nodelist.CRLF); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (w *scriptWriter) command(op byte, n int) error {
	w.res.Commands++
	return w.line(fmt.Sprintf("%c%d", op, n))
}

func (w *scriptWriter) flush() error {
	if w.del > 0 {
		if err := w.command('D', w.del); err != nil {
			return err
		}
		w.res.Deleted += w.del
	}
	if len(w.add) > 0 {
		if err := w.command('A', len(w.add)); err != nil {
			return err
		}
		for _, s := range w.add {
			if err := w.line(s); err != nil {
				return err
			}
		}
		w.res.Added += len(w.add)
	}
	w.del = 0
	w.add = nil
	return nil
}
