// Package encoding wraps around the various encoding stuff in
// golang.org/x/text/encoding. Part of the reason this exists is that
// the package names such as "unicode" clash with the stdlib, and
// it's rather easier if we just hide it from the parser
package encoding

import (
	"bytes"
	"strings"

	enc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// Names reported by Detect.
const (
	None     = ""
	UCS4BE   = "ucs4be"
	UCS4LE   = "ucs4le"
	UCS42143 = "ucs4_2143"
	UCS43412 = "ucs4_3412"
	EBCDIC   = "ebcdic"
	UTF8     = "utf-8"
	UTF16LE  = "utf-16le"
	UTF16BE  = "utf-16be"
)

var (
	patUCS4BE       = []byte{0x00, 0x00, 0x00, 0x3C}
	patUCS4LE       = []byte{0x3C, 0x00, 0x00, 0x00}
	patUCS42143     = []byte{0x00, 0x00, 0x3C, 0x00}
	patUCS43412     = []byte{0x00, 0x3C, 0x00, 0x00}
	patEBCDIC       = []byte{0x4C, 0x6F, 0xA7, 0x94}
	patUTF16LE4B    = []byte{0x3C, 0x00, 0x3F, 0x00}
	patUTF16BE4B    = []byte{0x00, 0x3C, 0x00, 0x3F}
	patUTF8         = []byte{0xEF, 0xBB, 0xBF}
	patUTF16LE2B    = []byte{0xFF, 0xFE}
	patUTF16BE2B    = []byte{0xFE, 0xFF}
	patMaybeXMLDecl = []byte{0x3C, 0x3F, 0x78, 0x6D}
)

// Detect guesses the encoding of b from its byte order mark or from the
// first characters of an XML or text declaration (XML 1.0 appendix F).
// bom is the number of leading bytes that belong to a byte order mark
// and must be skipped; pattern based guesses consume nothing. None is
// returned when there is nothing to go by.
func Detect(b []byte) (name string, bom int) {
	if len(b) >= 4 {
		p := b[:4]
		switch {
		case bytes.Equal(p, patUCS4BE):
			return UCS4BE, 0
		case bytes.Equal(p, patUCS4LE):
			return UCS4LE, 0
		case bytes.Equal(p, patUCS42143):
			return UCS42143, 0
		case bytes.Equal(p, patUCS43412):
			return UCS43412, 0
		case bytes.Equal(p, patEBCDIC):
			return EBCDIC, 0
		case bytes.Equal(p, patMaybeXMLDecl):
			return UTF8, 0
		case bytes.Equal(p, patUTF16LE4B):
			return UTF16LE, 0
		case bytes.Equal(p, patUTF16BE4B):
			return UTF16BE, 0
		}
	}

	if bytes.HasPrefix(b, patUTF8) {
		return UTF8, len(patUTF8)
	}
	if bytes.HasPrefix(b, patUTF16BE2B) {
		return UTF16BE, len(patUTF16BE2B)
	}
	if bytes.HasPrefix(b, patUTF16LE2B) {
		return UTF16LE, len(patUTF16LE2B)
	}
	return None, 0
}

// IsUTF16 reports whether name denotes one of the 16 bit Unicode
// encodings.
func IsUTF16(name string) bool {
	switch strings.ToLower(name) {
	case "utf-16", "utf16", "utf-16le", "utf-16be", "ucs-2", "iso-10646-ucs-2":
		return true
	}
	return false
}

// IsUTF8 reports whether name denotes UTF-8.
func IsUTF8(name string) bool {
	switch strings.ToLower(name) {
	case "utf8", "utf-8":
		return true
	}
	return false
}

// Supported reports whether Detect's result can be decoded at all.
func Supported(detected string) bool {
	switch detected {
	case None, UTF8, UTF16LE, UTF16BE:
		return true
	}
	return false
}

// DecodeUTF16 converts UTF-16 data in the detected byte order to UTF-8.
func DecodeUTF16(detected string, b []byte) ([]byte, error) {
	endian := unicode.LittleEndian
	if detected == UTF16BE {
		endian = unicode.BigEndian
	}
	return unicode.UTF16(endian, unicode.IgnoreBOM).NewDecoder().Bytes(b)
}

// Decode converts b from the named encoding to UTF-8.
func Decode(name string, b []byte) ([]byte, error) {
	e := Load(name)
	if e == nil {
		return nil, &UnknownEncodingError{Name: name}
	}
	return e.NewDecoder().Bytes(b)
}

type UnknownEncodingError struct {
	Name string
}

func (e *UnknownEncodingError) Error() string {
	return "encoding '" + e.Name + "' not supported"
}

func Load(name string) enc.Encoding {
	switch strings.ToLower(name) {
	case "utf8", "utf-8":
		return unicode.UTF8
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case "us-ascii", "ascii":
		return charmap.Windows1252
	case "euc-jp":
		return japanese.EUCJP
	case "shift_jis", "shift-jis", "shiftjis", "cp932":
		return japanese.ShiftJIS
	case "jis", "iso-2022-jp":
		return japanese.ISO2022JP
	case "big5":
		return traditionalchinese.Big5
	case "euc-kr":
		return korean.EUCKR
	case "gbk", "gb2312":
		return simplifiedchinese.GBK
	case "gb18030":
		return simplifiedchinese.GB18030
	case "hz-gb2312":
		return simplifiedchinese.HZGB2312
	case "cp437":
		return charmap.CodePage437
	case "cp866":
		return charmap.CodePage866
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1
	case "iso-8859-9":
		return charmap.ISO8859_9
	case "iso-8859-10":
		return charmap.ISO8859_10
	case "iso-8859-13":
		return charmap.ISO8859_13
	case "iso-8859-14":
		return charmap.ISO8859_14
	case "iso-8859-15":
		return charmap.ISO8859_15
	case "iso-8859-16":
		return charmap.ISO8859_16
	case "iso-8859-2":
		return charmap.ISO8859_2
	case "iso-8859-3":
		return charmap.ISO8859_3
	case "iso-8859-4":
		return charmap.ISO8859_4
	case "iso-8859-5":
		return charmap.ISO8859_5
	case "iso-8859-6":
		return charmap.ISO8859_6
	case "iso-8859-7":
		return charmap.ISO8859_7
	case "iso-8859-8":
		return charmap.ISO8859_8
	case "koi8r", "koi8-r":
		return charmap.KOI8R
	case "koi8u", "koi8-u":
		return charmap.KOI8U
	case "macintosh":
		return charmap.Macintosh
	case "macintoshcyrillic":
		return charmap.MacintoshCyrillic
	case "windows1250", "windows-1250":
		return charmap.Windows1250
	case "windows1251", "windows-1251":
		return charmap.Windows1251
	case "windows1252", "windows-1252":
		return charmap.Windows1252
	case "windows1253", "windows-1253":
		return charmap.Windows1253
	case "windows1254", "windows-1254":
		return charmap.Windows1254
	case "windows1255", "windows-1255":
		return charmap.Windows1255
	case "windows1256", "windows-1256":
		return charmap.Windows1256
	case "windows1257", "windows-1257":
		return charmap.Windows1257
	case "windows1258", "windows-1258":
		return charmap.Windows1258
	case "windows874", "windows-874":
		return charmap.Windows874
	case "xuserdefined":
		return charmap.XUserDefined
	}
	return nil
}
