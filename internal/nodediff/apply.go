// Package nodediff applies Fidonet nodediffs to nodelists (FTS-5000 §6) and generates nodediffs from two nodelists.
//
// # Format
//
// The first line of a nodediff is a copy of the header of the nodelist it applies to. Every following line is one command:
//
//	A<n>    add the n lines that follow in the nodediff
//	D<n>    delete n lines from the old nodelist
//	C<n>    copy n lines from the old nodelist
//	;<text> comment
//	<empty> ignored
//
// Counts are expressed against the old nodelist including its header line, which Apply has already consumed when it checks headers. Apply therefore absorbs the first
// deleted line (it is the old header) and treats the first added line as the new header: that line is written out but its declared checksum is compared against,
// rather than fed to, the running CRC.
package nodediff

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fidokit/nodediff/internal/crc16"
	"github.com/fidokit/nodediff/internal/nodelist"
	"golang.org/x/text/encoding"
)

// LineReader pulls one line at a time, without its terminator. ok is false at end of input.
type LineReader interface {
	ReadLine() (line string, ok bool, err error)
}

// LineWriter pushes text to the output. WriteLine writes line exactly as given (terminator included).
type LineWriter interface {
	WriteLine(line string) error
	Flush() error
}

// Result describes a successful (or partially completed) Apply.
type Result struct {
	NewHeader   string // first added line, without terminator
	Declared    int    // checksum declared by NewHeader; valid if HasDeclared
	HasDeclared bool
	Checksum    uint16 // CRC of the new body

	Added    int // lines taken from the nodediff, including NewHeader
	Copied   int // lines copied from the old nodelist
	Deleted  int // lines read and dropped from the old nodelist
	Comments int
}

// headerOffset absorbs the one-line skew between nodediff counts (which include the old header) and the cursors (which have already passed it). Each flag flips
// exactly once per Apply.
type headerOffset struct {
	checksumLineTaken bool // the first A line was the new header
	oldHeaderDropped  bool // one D count was spent on the already-read old header
}

type applier struct {
	old  LineReader
	diff LineReader
	out  LineWriter
	crc  *crc16.Codec

	offset   headerOffset
	diffLine int
	res      Result
}

// Apply reconstructs a new nodelist from oldList and diff, writing it to out followed by the end-of-file marker. enc is the single-byte encoding the checksum is
// computed in; nil checksums the raw line bytes.
//
// Every failure is terminal. Lines written before a failure stay written; callers that need atomic output should write to a temporary file. If the nodediff never
// adds a line, there is no declared checksum and the check is skipped.
func Apply(oldList, diff LineReader, out LineWriter, enc encoding.Encoding) (Result, error) {
	a := &applier{
		old:  oldList,
		diff: diff,
		out:  out,
		crc:  crc16.New(enc),
	}
	if err := a.checkHeaders(); err != nil {
		return a.res, err
	}
	if err := a.run(); err != nil {
		return a.res, err
	}
	if err := a.out.WriteLine(nodelist.EndOfFile); err != nil {
		return a.res, fmt.Errorf("write end of file: %w", err)
	}
	if err := a.out.Flush(); err != nil {
		return a.res, fmt.Errorf("flush: %w", err)
	}

	a.res.Checksum = a.crc.Value()
	if a.res.HasDeclared && a.res.Declared != int(a.res.Checksum) {
		return a.res, &ChecksumError{Expected: a.res.Declared, Actual: a.res.Checksum}
	}
	return a.res, nil
}

// ApplyStreams is Apply over raw byte streams decoded and encoded with enc.
func ApplyStreams(oldList, diff io.Reader, out io.Writer, enc encoding.Encoding) (Result, error) {
	w := nodelist.NewWriter(out, enc)
	res, err := Apply(nodelist.NewReader(oldList, enc), nodelist.NewReader(diff, enc), w, enc)
	if err != nil {
		_ = w.Flush()
	}
	return res, err
}

func (a *applier) readDiff() (string, bool, error) {
	line, ok, err := a.diff.ReadLine()
	if err != nil {
		return "", false, fmt.Errorf("read nodediff line %d: %w", a.diffLine+1, err)
	}
	if ok {
		a.diffLine++
	}
	return line, ok, nil
}

func (a *applier) checkHeaders() error {
	oldHeader, oldOK, err := a.old.ReadLine()
	if err != nil {
		return fmt.Errorf("read nodelist header: %w", err)
	}
	diffHeader, diffOK, err := a.readDiff()
	if err != nil {
		return err
	}
	if oldOK != diffOK || oldHeader != diffHeader {
		return &HeaderMismatchError{Old: oldHeader, Diff: diffHeader}
	}
	return nil
}

func (a *applier) run() error {
	for {
		line, ok, err := a.readDiff()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if line == "" {
			continue
		}

		cmd := line[0]
		at := a.diffLine
		switch cmd {
		case ';':
			a.res.Comments++
			continue
		case 'A', 'D', 'C':
		default:
			return &CommandError{Line: at, Text: line, Err: ErrUnknownCommand}
		}

		n, err := parseCount(line[1:])
		if err != nil {
			return &CommandError{Line: at, Text: line, Err: err}
		}
		switch cmd {
		case 'A':
			err = a.add(n)
		case 'D':
			err = a.delete(n)
		case 'C':
			err = a.copy(n)
		}
		if err != nil {
			return &CommandError{Line: at, Text: line, Err: err}
		}
	}
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCount, s)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %d is negative", ErrInvalidCount, n)
	}
	return n, nil
}

func (a *applier) add(n int) error {
	for i := 0; i < n; i++ {
		text, ok, err := a.readDiff()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: got %d of %d added lines", ErrUnexpectedEndOfDiff, i, n)
		}
		if !a.offset.checksumLineTaken {
			a.offset.checksumLineTaken = true
			a.res.NewHeader = text
			a.res.Declared, a.res.HasDeclared = crc16.ExtractDeclared(text)
			text += nodelist.CRLF
		} else {
			text += nodelist.CRLF
			a.crc.Update(text)
		}
		if err := a.out.WriteLine(text); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		a.res.Added++
	}
	return nil
}

func (a *applier) delete(n int) error {
	for i := 0; i < n; i++ {
		if !a.offset.oldHeaderDropped {
			a.offset.oldHeaderDropped = true
			continue
		}
		_, ok, err := a.old.ReadLine()
		if err != nil {
			return fmt.Errorf("read nodelist: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: deleted %d of %d lines", ErrUnexpectedEndOfOld, i, n)
		}
		a.res.Deleted++
	}
	return nil
}

func (a *applier) copy(n int) error {
	for i := 0; i < n; i++ {
		text, ok, err := a.old.ReadLine()
		if err != nil {
			return fmt.Errorf("read nodelist: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: copied %d of %d lines", ErrUnexpectedEndOfOld, i, n)
		}
		text += nodelist.CRLF
		if err := a.out.WriteLine(text); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		a.crc.Update(text)
		a.res.Copied++
	}
	return nil
}
