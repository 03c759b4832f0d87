// Package nodelist reads and writes Fidonet nodelist text streams and verifies their checksums.
//
// Nodelists are line-oriented, CR LF terminated, encoded in a single-byte code page (historically CP866) and end with a lone SUB (0x1A) byte. The first line is the
// header; it ends in ":<decimal>", the CRC-16 of every following line up to the SUB marker.
package nodelist

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
)

const (
	// EndOfFile is the SUB marker that ends a nodelist body.
	EndOfFile = "\x1a"

	// CRLF terminates every line written to a nodelist or nodediff.
	CRLF = "\r\n"
)

// IsEndOfFile reports whether line is the end-of-body marker line. Anything after the marker is not part of the list.
func IsEndOfFile(line string) bool {
	return strings.HasPrefix(line, EndOfFile)
}

// Reader pulls decoded lines from a byte stream, one at a time.
//
// A line ends at LF, CR, or CR LF. A final line without a terminator is still returned.
type Reader struct {
	br   *bufio.Reader
	dec  *encoding.Decoder
	buf  []byte
	line int
}

// NewReader returns a Reader decoding r with enc. A nil enc passes bytes through unchanged.
func NewReader(r io.Reader, enc encoding.Encoding) *Reader {
	if enc == nil {
		enc = encoding.Nop
	}
	return &Reader{br: bufio.NewReader(r), dec: enc.NewDecoder()}
}

// ReadLine returns the next line without its terminator. ok is false once the stream is exhausted.
func (r *Reader) ReadLine() (string, bool, error) {
	raw, ok, err := r.readRaw()
	if err != nil || !ok {
		return "", false, err
	}
	text, derr := r.dec.Bytes(raw)
	if derr != nil {
		return "", false, fmt.Errorf("decode line %d: %w", r.line+1, derr)
	}
	r.line++
	return string(text), true, nil
}

func (r *Reader) readRaw() ([]byte, bool, error) {
	r.buf = r.buf[:0]
	read := false
	for {
		b, err := r.br.ReadByte()
		if err == io.EOF {
			return r.buf, read, nil
		}
		if err != nil {
			return nil, false, err
		}
		read = true
		switch b {
		case '\n':
			return r.buf, true, nil
		case '\r':
			if next, err := r.br.Peek(1); err == nil && next[0] == '\n' {
				_, _ = r.br.Discard(1)
			}
			return r.buf, true, nil
		}
		r.buf = append(r.buf, b)
	}
}

// Line returns the number of lines returned so far.
func (r *Reader) Line() int {
	return r.line
}

// Writer pushes lines to a byte stream, encoding them with a single-byte encoding. Output is buffered until Flush.
type Writer struct {
	bw  *bufio.Writer
	enc *encoding.Encoder
}

// NewWriter returns a Writer encoding to w with enc. A nil enc passes bytes through unchanged.
func NewWriter(w io.Writer, enc encoding.Encoding) *Writer {
	if enc == nil {
		enc = encoding.Nop
	}
	return &Writer{bw: bufio.NewWriter(w), enc: encoding.ReplaceUnsupported(enc.NewEncoder())}
}

// WriteLine writes line verbatim; the caller supplies the terminator.
func (w *Writer) WriteLine(line string) error {
	b, err := w.enc.Bytes([]byte(line))
	if err != nil {
		return fmt.Errorf("encode line: %w", err)
	}
	_, err = w.bw.Write(b)
	return err
}

// Flush writes any buffered data to the underlying stream.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}
