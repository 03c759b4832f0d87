package nodelist

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// DefaultEncoding is the code page nodelists are traditionally distributed in.
const DefaultEncoding = "cp866"

// LookupEncoding resolves an IANA name or alias (ex: "cp866", "IBM866", "koi8-r") to a single-byte code page.
//
// Multi-byte and variable-width encodings such as UTF-8 are rejected: nodelist line counts and checksums are defined over single-byte text. So are code pages
// that leave a byte undefined (ex: windows-1251 has no 0x98): such a byte decodes to U+FFFD and could not be written back, so copied lines and their checksums
// would no longer match the file.
func LookupEncoding(name string) (*charmap.Charmap, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty encoding name")
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q is not supported", name)
	}
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return nil, fmt.Errorf("encoding %q is not a single-byte code page", name)
	}
	if err := checkRoundTrip(cm); err != nil {
		return nil, fmt.Errorf("encoding %q: %w", name, err)
	}
	return cm, nil
}

// checkRoundTrip fails unless every byte 0x00-0xFF decodes to a rune that cm encodes back to the same byte.
func checkRoundTrip(cm *charmap.Charmap) error {
	for i := 0; i < 256; i++ {
		b := byte(i)
		r := cm.DecodeByte(b)
		if r == utf8.RuneError {
			return fmt.Errorf("byte 0x%02X is undefined", b)
		}
		if e, ok := cm.EncodeRune(r); !ok || e != b {
			return fmt.Errorf("byte 0x%02X does not round-trip", b)
		}
	}
	return nil
}

// EncodingName returns the canonical IANA name of cm, or its descriptive name if it has none.
func EncodingName(cm *charmap.Charmap) string {
	if name, err := ianaindex.IANA.Name(cm); err == nil && name != "" {
		return name
	}
	return cm.String()
}
