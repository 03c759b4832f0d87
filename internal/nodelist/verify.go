package nodelist

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fidokit/nodediff/internal/crc16"
	"golang.org/x/text/encoding"
)

var (
	// ErrEmptyInput is returned when a list has no header line at all.
	ErrEmptyInput = errors.New("empty input")

	// ErrChecksumHeaderUnparseable is returned when the header does not end in ":<decimal>".
	ErrChecksumHeaderUnparseable = errors.New("cannot extract checksum from header")
)

// Verification is the outcome of checking one list against its declared checksum.
type Verification struct {
	Header   string // header line as read, without terminator
	Declared int    // checksum declared by the header
	Computed uint16 // checksum of the body
	OK       bool   // Computed == Declared
}

// Verify checks the body of the list read from r against the checksum declared in its header. Every line after the header, up to the end-of-file marker or the end
// of the stream, is re-terminated with CR LF and fed to a fresh checksum register.
//
// A mismatch is not an error; it is reported through Verification.OK.
func Verify(r io.Reader, enc encoding.Encoding) (Verification, error) {
	lr := NewReader(r, enc)
	header, ok, err := lr.ReadLine()
	if err != nil {
		return Verification{}, fmt.Errorf("read header: %w", err)
	}
	if !ok {
		return Verification{}, ErrEmptyInput
	}
	declared, ok := crc16.ExtractDeclared(header)
	if !ok {
		return Verification{Header: header}, fmt.Errorf("%w: %q", ErrChecksumHeaderUnparseable, header)
	}

	crc := crc16.New(enc)
	for {
		line, ok, err := lr.ReadLine()
		if err != nil {
			return Verification{}, fmt.Errorf("read line %d: %w", lr.Line()+1, err)
		}
		if !ok || IsEndOfFile(line) {
			break
		}
		crc.Update(line + CRLF)
	}

	computed := crc.Value()
	return Verification{
		Header:   header,
		Declared: declared,
		Computed: computed,
		OK:       int(computed) == declared,
	}, nil
}

// VerifyFile is Verify over the file at path.
func VerifyFile(path string, enc encoding.Encoding) (Verification, error) {
	f, err := os.Open(path)
	if err != nil {
		return Verification{}, err
	}
	defer f.Close()
	return Verify(f, enc)
}
