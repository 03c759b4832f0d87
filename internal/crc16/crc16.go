// Package crc16 implements the CRC-16/CCITT checksum used by Fidonet nodelists (polynomial 0x1021, initial register 0, MSB-first, no final XOR).
//
// A Codec accumulates the checksum line by line. Lines are supplied as decoded text and are re-encoded through the codec's single-byte encoding before their bytes
// are fed to the register, so the checksum always covers the on-disk bytes.
package crc16

import (
	"strconv"
	"strings"

	"golang.org/x/text/encoding"
)

// Poly is the CCITT generator polynomial.
const Poly = 0x1021

// Table is the byte-at-a-time lookup table for Poly. It is never written after init.
var Table = makeTable(Poly)

func makeTable(poly uint16) *[256]uint16 {
	t := new([256]uint16)
	for i := range t {
		c := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if c&0x8000 != 0 {
				c = c<<1 ^ poly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}

func update(crc uint16, p []byte) uint16 {
	for _, b := range p {
		crc = crc<<8 ^ Table[byte(crc>>8)^b]
	}
	return crc
}

// Checksum returns the CRC of data starting from a zero register.
func Checksum(data []byte) uint16 {
	return update(0, data)
}

// Codec is a running checksum register. A Codec is not safe for concurrent use; create one per list being checksummed.
type Codec struct {
	enc *encoding.Encoder
	crc uint16
}

// New returns a Codec with a zero register that encodes lines with enc. A nil enc feeds the raw bytes of each line.
func New(enc encoding.Encoding) *Codec {
	if enc == nil {
		enc = encoding.Nop
	}
	return &Codec{enc: encoding.ReplaceUnsupported(enc.NewEncoder())}
}

// Update feeds line to the register. line must already include its terminator.
func (c *Codec) Update(line string) {
	b, err := c.enc.Bytes([]byte(line))
	if err != nil {
		b = []byte(line)
	}
	c.crc = update(c.crc, b)
}

// Value returns the current register.
func (c *Codec) Value() uint16 {
	return c.crc
}

// ExtractDeclared returns the checksum declared by a nodelist header: the text after the last colon, trimmed of surrounding whitespace, parsed as a base-10 integer.
//
// It returns false when there is no colon, nothing follows it, the remainder is not an integer, or the integer is negative. Values above 65535 are returned as-is;
// they can never match a register and so surface as a mismatch later.
func ExtractDeclared(header string) (int, bool) {
	i := strings.LastIndexByte(header, ':')
	if i < 0 || i+1 >= len(header) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(header[i+1:]))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
