package printer

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// charsets maps configuration names to the code pages thermal printers ship
// with, and the ESC t table number that selects them.
var charsets = map[string]struct {
	cm    *charmap.Charmap
	table byte
}{
	"cp437":  {charmap.CodePage437, 0},
	"cp850":  {charmap.CodePage850, 2},
	"cp858":  {charmap.CodePage858, 19},
	"latin1": {charmap.ISO8859_1, 16},
	"latin9": {charmap.ISO8859_15, 40},
}

func normalizeCharset(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "iso-8859-1", "iso8859-1":
		return "latin1"
	case "iso-8859-15", "iso8859-15":
		return "latin9"
	case "utf-8":
		return "utf8"
	}
	return n
}

// Encode converts a UTF-8 document to charset. Characters the code page
// cannot represent are replaced rather than failing the ticket.
// An empty or "utf8" charset returns doc unchanged.
func Encode(doc []byte, charset string) ([]byte, error) {
	name := normalizeCharset(charset)
	if name == "" || name == "utf8" {
		return doc, nil
	}
	cs, ok := charsets[name]
	if !ok {
		return nil, fmt.Errorf("unsupported charset %q", charset)
	}
	out, err := encoding.ReplaceUnsupported(cs.cm.NewEncoder()).Bytes(doc)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return out, nil
}

// codeTable returns the ESC t argument for charset, and false when the
// printer default should be kept.
func codeTable(charset string) (byte, bool) {
	cs, ok := charsets[normalizeCharset(charset)]
	if !ok {
		return 0, false
	}
	return cs.table, true
}
