package nodediff

import (
	"errors"
	"fmt"
)

var (
	ErrHeaderMismatch      = errors.New("header mismatch between nodelist and nodediff")
	ErrUnexpectedEndOfDiff = errors.New("unexpected end of nodediff")
	ErrUnexpectedEndOfOld  = errors.New("unexpected end of nodelist")
	ErrUnknownCommand      = errors.New("unknown nodediff command")
	ErrInvalidCount        = errors.New("invalid nodediff line count")
	ErrChecksumMismatch    = errors.New("checksum mismatch")
)

// HeaderMismatchError carries both header lines. It matches ErrHeaderMismatch.
type HeaderMismatchError struct {
	Old  string
	Diff string
}

func (e *HeaderMismatchError) Error() string {
	return fmt.Sprintf("%v: nodelist %q, nodediff %q", ErrHeaderMismatch, e.Old, e.Diff)
}

func (e *HeaderMismatchError) Unwrap() error { return ErrHeaderMismatch }

// CommandError locates a failure at a command line of the nodediff. Line is 1-based and counts the header.
type CommandError struct {
	Line int
	Text string
	Err  error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("nodediff line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ChecksumError reports a register that disagrees with the declared checksum. It matches ErrChecksumMismatch.
type ChecksumError struct {
	Expected int
	Actual   uint16
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("CRC mismatch: expected %05d, got %05d", e.Expected, e.Actual)
}

func (e *ChecksumError) Unwrap() error { return ErrChecksumMismatch }

// IsInvalidDiff reports whether err (as returned from Apply) was caused by the content of the nodelist or nodediff, as opposed to an I/O failure.
func IsInvalidDiff(err error) bool {
	for _, target := range []error{
		ErrHeaderMismatch,
		ErrUnexpectedEndOfDiff,
		ErrUnexpectedEndOfOld,
		ErrUnknownCommand,
		ErrInvalidCount,
		ErrChecksumMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
