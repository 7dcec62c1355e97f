package s11n

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

var (
	qch_dquote = []byte{'"'}
	qch_quote  = []byte{'\''}
)

// isInCharacterRange checks if rune is in XML Character Range
func isInCharacterRange(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

// DumpQuotedString writes s as a quoted literal. Double quotes are
// used unless s contains one and no single quote.
func DumpQuotedString(out io.Writer, s string) error {
	q := lo.Ternary(strings.IndexByte(s, '"') > -1 && strings.IndexByte(s, '\'') < 0, qch_quote, qch_dquote)
	if _, err := out.Write(q); err != nil {
		return err
	}
	if _, err := io.WriteString(out, s); err != nil {
		return err
	}
	if _, err := out.Write(q); err != nil {
		return err
	}
	return nil
}

var (
	esc_quot = []byte("&#34;") // shorter than "&quot;"
	esc_pct  = []byte("&#37;")
	esc_amp  = []byte("&amp;")
	esc_lt   = []byte("&lt;")
	esc_tab  = []byte("&#9;")
	esc_nl   = []byte("&#10;")
	esc_cr   = []byte("&#13;")
	esc_fffd = []byte("\uFFFD") // Unicode replacement character
)

// EscapeAttrValue writes an attribute default value so that reading
// it back yields s again. Whitespace other than #x20 is escaped, as
// attribute value normalization would turn it into spaces.
func EscapeAttrValue(w io.Writer, s []byte) error {
	return escape(w, s, func(r rune) []byte {
		switch r {
		case '"':
			return esc_quot
		case '&':
			return esc_amp
		case '<':
			return esc_lt
		case '\n':
			return esc_nl
		case '\r':
			return esc_cr
		case '\t':
			return esc_tab
		}
		return nil
	})
}

// EscapeEntityValue writes the replacement text of an internal entity.
// References in the text are kept; '%' and '"' are escaped so that the
// literal neither expands parameter entities nor ends early.
func EscapeEntityValue(w io.Writer, s []byte) error {
	return escape(w, s, func(r rune) []byte {
		switch r {
		case '"':
			return esc_quot
		case '%':
			return esc_pct
		}
		return nil
	})
}

func escape(w io.Writer, s []byte, escFor func(rune) []byte) error {
	last := 0
	for i := 0; i < len(s); {
		r, width := utf8.DecodeRune(s[i:])
		i += width

		esc := escFor(r)
		if esc == nil {
			if isInCharacterRange(r) && (r != utf8.RuneError || width > 1) {
				continue
			}
			esc = esc_fffd
		}

		if _, err := w.Write(s[last : i-width]); err != nil {
			return err
		}
		if _, err := w.Write(esc); err != nil {
			return err
		}
		last = i
	}

	if _, err := w.Write(s[last:]); err != nil {
		return err
	}
	return nil
}
