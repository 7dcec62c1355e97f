package dtd

import (
	"strings"
	"unicode/utf8"

	"github.com/lestrrat-go/dtd/internal/debug"
	"github.com/lestrrat-go/dtd/internal/pool"
)

const MaxNameLength = 50000

func (ctx *parserCtx) curHasChars(n int) bool {
	in := ctx.input
	return in != nil && in.pos+n <= len(in.buf)
}

func (ctx *parserCtx) curDone() bool {
	return ctx.input == nil || ctx.input.done()
}

// curPeek returns the n-th character ahead of the cursor, starting at
// 1. It never looks past the end of the current frame and returns 0
// there.
func (ctx *parserCtx) curPeek(n int) rune {
	in := ctx.input
	if in == nil {
		return 0
	}
	i := in.pos + n - 1
	if i >= len(in.buf) {
		return 0
	}
	return in.buf[i]
}

func (ctx *parserCtx) curAdvance(n int) {
	in := ctx.input
	for ; n > 0 && in.pos < len(in.buf); n-- {
		if in.buf[in.pos] == '\n' {
			in.line++
			in.col = 1
		} else {
			in.col++
		}
		in.pos++
	}
}

func (ctx *parserCtx) curHasPrefix(s string) bool {
	in := ctx.input
	if in == nil {
		return false
	}
	i := in.pos
	for _, c := range s {
		if i >= len(in.buf) || in.buf[i] != c {
			return false
		}
		i++
	}
	return true
}

func (ctx *parserCtx) curConsumePrefix(s string) bool {
	if !ctx.curHasPrefix(s) {
		return false
	}
	ctx.curAdvance(utf8.RuneCountInString(s))
	return true
}

func (ctx *parserCtx) curConsume(n int) string {
	in := ctx.input
	end := min(in.pos+n, len(in.buf))
	s := string(in.buf[in.pos:end])
	ctx.curAdvance(n)
	return s
}

func isBlankCh(c rune) bool {
	return c == 0x20 || (0x9 <= c && c <= 0xa) || c == 0xd
}

func isChar(r rune) bool {
	if r == utf8.RuneError {
		return false
	}

	c := uint32(r)
	if c < 0x100 {
		return (0x9 <= c && c <= 0xa) || c == 0xd || 0x20 <= c
	}
	return (0x100 <= c && c <= 0xd7ff) || (0xe000 <= c && c <= 0xfffd) || (0x10000 <= c && c <= 0x10ffff)
}

// [4] NameStartChar ::= ":" | [A-Z] | "_" | [a-z] | [#xC0-#xD6] | [#xD8-#xF6] |
//
//	[#xF8-#x2FF] | [#x370-#x37D] | [#x37F-#x1FFF] | [#x200C-#x200D] |
//	[#x2070-#x218F] | [#x2C00-#x2FEF] | [#x3001-#xD7FF] | [#xF900-#xFDCF] |
//	[#xFDF0-#xFFFD] | [#x10000-#xEFFFF]
func isNameStartChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == ':':
		return true
	case c < 0xC0:
		return false
	}
	return (c >= 0xC0 && c <= 0xD6) ||
		(c >= 0xD8 && c <= 0xF6) ||
		(c >= 0xF8 && c <= 0x2FF) ||
		(c >= 0x370 && c <= 0x37D) ||
		(c >= 0x37F && c <= 0x1FFF) ||
		(c >= 0x200C && c <= 0x200D) ||
		(c >= 0x2070 && c <= 0x218F) ||
		(c >= 0x2C00 && c <= 0x2FEF) ||
		(c >= 0x3001 && c <= 0xD7FF) ||
		(c >= 0xF900 && c <= 0xFDCF) ||
		(c >= 0xFDF0 && c <= 0xFFFD) ||
		(c >= 0x10000 && c <= 0xEFFFF)
}

// [4a] NameChar ::= NameStartChar | "-" | "." | [0-9] | #xB7 |
//
//	[#x0300-#x036F] | [#x203F-#x2040]
func isNameChar(c rune) bool {
	if isNameStartChar(c) {
		return true
	}
	return c == '-' || c == '.' || (c >= '0' && c <= '9') || c == 0xB7 ||
		(c >= 0x300 && c <= 0x36F) || (c >= 0x203F && c <= 0x2040)
}

// [13] PubidChar ::= #x20 | #xD | #xA | [a-zA-Z0-9] | [-'()+,./:=?;!*#@$_%]
func isPubidChar(c rune) bool {
	switch {
	case c == 0x20, c == 0xD, c == 0xA:
		return true
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune("-'()+,./:=?;!*#@$_%", c)
}

// skipSpaces skips whitespace in the current frame only.
func (ctx *parserCtx) skipSpaces() int {
	n := 0
	for isBlankCh(ctx.curPeek(1)) {
		ctx.curAdvance(1)
		n++
	}
	return n
}

// skipBlanks skips whitespace between tokens. Exhausted entity frames
// are popped and parameter entity references are expanded on the way;
// both count as whitespace, since the replacement text of a parameter
// entity is padded with a space on either side. It reports whether any
// separator was seen.
func (ctx *parserCtx) skipBlanks() (bool, error) {
	seen := false
	for {
		c := ctx.curPeek(1)
		switch {
		case isBlankCh(c):
			if ctx.collectBlanks && ctx.input.level == 0 {
				ctx.blanks = utf8.AppendRune(ctx.blanks, c)
			}
			ctx.curAdvance(1)
			seen = true
		case c == 0 && ctx.curDone():
			if ctx.inputs.Len() <= 1 {
				return seen, nil
			}
			if err := ctx.popInput(); err != nil {
				return seen, err
			}
			seen = true
		case c == '%' && isNameStartChar(ctx.curPeek(2)):
			if err := ctx.parsePEReference(); err != nil {
				return seen, err
			}
			seen = true
		default:
			return seen, nil
		}
	}
}

func (ctx *parserCtx) requireBlanks() error {
	ok, err := ctx.skipBlanks()
	if err != nil {
		return err
	}
	if !ok {
		return ctx.error(ErrSpaceRequired)
	}
	return nil
}

/**
 * parse an XML name.
 *
 * [5] Name ::= NameStartChar (NameChar)*
 *
 * Returns the canonical instance of the Name parsed.
 */
func (ctx *parserCtx) parseName() (string, error) {
	if !isNameStartChar(ctx.curPeek(1)) {
		return "", ctx.error(ErrNameRequired)
	}

	i := 2
	for isNameChar(ctx.curPeek(i)) {
		i++
	}
	i--
	if i > MaxNameLength {
		return "", ctx.error(ErrNameTooLong)
	}

	name := ctx.names.Canonical(ctx.curConsume(i))
	if debug.Enabled {
		debug.Printf("  -> name = '%s'", name)
	}
	return name, nil
}

/**
 * parse an XML Nmtoken.
 *
 * [7] Nmtoken ::= (NameChar)+
 */
func (ctx *parserCtx) parseNmtoken() (string, error) {
	i := 1
	for isNameChar(ctx.curPeek(i)) {
		i++
	}
	i--
	if i == 0 {
		return "", ctx.error(ErrNmtokenRequired)
	}
	if i > MaxNameLength {
		return "", ctx.error(ErrNameTooLong)
	}
	return ctx.names.Canonical(ctx.curConsume(i)), nil
}

/*
 * parse Reference declarations
 *
 * [66] CharRef ::= '&#' [0-9]+ ';' |
 *                  '&#x' [0-9a-fA-F]+ ';'
 *
 * [ WFC: Legal Character ]
 * Characters referred to using character references must match the
 * production for Char.
 */
func (ctx *parserCtx) parseCharRef() (rune, error) {
	var val int32
	digits := 0
	if ctx.curConsumePrefix("&#x") {
		for c := ctx.curPeek(1); c != ';'; c = ctx.curPeek(1) {
			switch {
			case c >= '0' && c <= '9':
				val = val*16 + (c - '0')
			case c >= 'a' && c <= 'f':
				val = val*16 + (c - 'a') + 10
			case c >= 'A' && c <= 'F':
				val = val*16 + (c - 'A') + 10
			default:
				return utf8.RuneError, ctx.error(ErrCharRefInvalid)
			}
			if val > 0x10FFFF {
				val = 0x110000
			}
			digits++
			ctx.curAdvance(1)
		}
	} else if ctx.curConsumePrefix("&#") {
		for c := ctx.curPeek(1); c != ';'; c = ctx.curPeek(1) {
			if c < '0' || c > '9' {
				return utf8.RuneError, ctx.error(ErrCharRefInvalid)
			}
			val = val*10 + (c - '0')
			if val > 0x10FFFF {
				val = 0x110000
			}
			digits++
			ctx.curAdvance(1)
		}
	} else {
		return utf8.RuneError, ctx.error(ErrCharRefInvalid)
	}

	if digits == 0 {
		return utf8.RuneError, ctx.error(ErrCharRefInvalid)
	}
	ctx.curAdvance(1) // ';'

	if !isChar(val) {
		return utf8.RuneError, ctx.error(ErrInvalidChar)
	}
	return val, nil
}

// parseEntityRefName parses '&' Name ';' and returns the name.
func (ctx *parserCtx) parseEntityRefName() (string, error) {
	ctx.curAdvance(1) // '&'
	if !isNameStartChar(ctx.curPeek(1)) {
		return "", ctx.error(ErrEntityRefInvalid)
	}
	name, err := ctx.parseName()
	if err != nil {
		return "", err
	}
	if !ctx.curConsumePrefix(";") {
		return "", ctx.error(ErrSemicolonRequired)
	}
	return name, nil
}

func (ctx *parserCtx) openQuote() (rune, error) {
	q := ctx.curPeek(1)
	if q != '"' && q != '\'' {
		return 0, ctx.error(ErrLiteralRequired)
	}
	ctx.curAdvance(1)
	return q, nil
}

// parseQuotedText scans a literal that does not recognize references.
// The literal must close in the frame it was opened in.
func (ctx *parserCtx) parseQuotedText(accept func(rune) bool, invalid error) (string, error) {
	q, err := ctx.openQuote()
	if err != nil {
		return "", err
	}

	in := ctx.input
	start := in.pos
	for {
		c := ctx.curPeek(1)
		if c == 0 && ctx.curDone() {
			return "", ctx.error(ErrLiteralNotFinished)
		}
		if c == q {
			break
		}
		if !accept(c) {
			return "", ctx.error(invalid)
		}
		ctx.curAdvance(1)
	}
	s := string(in.buf[start:in.pos])
	ctx.curAdvance(1)
	return s, nil
}

// [11] SystemLiteral ::= ('"' [^"]* '"') | ("'" [^']* "'")
func (ctx *parserCtx) parseSystemLiteral() (string, error) {
	return ctx.parseQuotedText(isChar, ErrInvalidChar)
}

// [12] PubidLiteral ::= '"' PubidChar* '"' | "'" (PubidChar - "'")* "'"
//
// The result is normalized: runs of whitespace become one space and
// leading and trailing whitespace is dropped.
func (ctx *parserCtx) parsePubidLiteral() (string, error) {
	s, err := ctx.parseQuotedText(isPubidChar, ErrPubidCharInvalid)
	if err != nil {
		return "", err
	}
	return strings.Join(strings.FieldsFunc(s, isBlankCh), " "), nil
}

/*
 * parse a value for ENTITY declarations
 *
 * [9] EntityValue ::= '"' ([^%&"] | PEReference | Reference)* '"' |
 *                     "'" ([^%&'] | PEReference | Reference)* "'"
 *
 * Character references are replaced, parameter entity references are
 * substituted without padding, and general entity references are kept
 * as written after checking their syntax.
 */
func (ctx *parserCtx) parseEntityValue() (string, error) {
	f := ctx.input
	q, err := ctx.openQuote()
	if err != nil {
		return "", err
	}

	buf := pool.ByteSlice().Get()
	defer func() { pool.ByteSlice().Put(buf) }()

	for {
		c := ctx.curPeek(1)
		if c == 0 && ctx.curDone() {
			if ctx.input == f {
				return "", ctx.error(ErrLiteralNotFinished)
			}
			if err := ctx.popInput(); err != nil {
				return "", err
			}
			continue
		}
		if c == q && ctx.input == f {
			ctx.curAdvance(1)
			break
		}

		switch c {
		case '%':
			ctx.curAdvance(1)
			if !isNameStartChar(ctx.curPeek(1)) {
				return "", ctx.error(ErrNameRequired)
			}
			name, err := ctx.parseName()
			if err != nil {
				return "", err
			}
			if !ctx.curConsumePrefix(";") {
				return "", ctx.error(ErrSemicolonRequired)
			}
			ent, ok := ctx.decls.lookupParameterEntity(name)
			if !ok {
				if err := ctx.recoverable(&UndeclaredEntityError{Name: name, Parameter: true}); err != nil {
					return "", err
				}
				buf = append(buf, '%')
				buf = append(buf, name...)
				buf = append(buf, ';')
				continue
			}
			if err := ctx.pushEntity(ent); err != nil {
				return "", err
			}
		case '&':
			if ctx.curPeek(2) == '#' {
				r, err := ctx.parseCharRef()
				if err != nil {
					return "", err
				}
				buf = utf8.AppendRune(buf, r)
				continue
			}
			name, err := ctx.parseEntityRefName()
			if err != nil {
				return "", err
			}
			buf = append(buf, '&')
			buf = append(buf, name...)
			buf = append(buf, ';')
		default:
			if !isChar(c) {
				return "", ctx.error(ErrInvalidChar)
			}
			buf = utf8.AppendRune(buf, c)
			ctx.curAdvance(1)
		}
	}
	return string(buf), nil
}

/*
 * parse a default value for ATTLIST declarations
 *
 * [10] AttValue ::= '"' ([^<&"] | Reference)* '"' |
 *                   "'" ([^<&'] | Reference)* "'"
 *
 * The value is normalized as described in XML 1.0 section 3.3.3:
 * references are replaced, whitespace characters become spaces and,
 * unless typ is CDATA, spaces are collapsed.
 */
func (ctx *parserCtx) parseAttValue(tokenized bool) (string, error) {
	f := ctx.input
	q, err := ctx.openQuote()
	if err != nil {
		return "", err
	}

	buf := pool.ByteSlice().Get()
	defer func() { pool.ByteSlice().Put(buf) }()

	for {
		c := ctx.curPeek(1)
		if c == 0 && ctx.curDone() {
			if ctx.input == f {
				return "", ctx.error(ErrLiteralNotFinished)
			}
			if err := ctx.popInput(); err != nil {
				return "", err
			}
			continue
		}
		if c == q && ctx.input == f {
			ctx.curAdvance(1)
			break
		}

		switch {
		case c == '<':
			return "", ctx.error(ErrLtInAttValue)
		case c == '&' && ctx.curPeek(2) == '#':
			r, err := ctx.parseCharRef()
			if err != nil {
				return "", err
			}
			buf = utf8.AppendRune(buf, r)
		case c == '&':
			name, err := ctx.parseEntityRefName()
			if err != nil {
				return "", err
			}
			ent, ok := ctx.decls.lookupEntity(name)
			switch {
			case !ok:
				if err := ctx.recoverable(&UndeclaredEntityError{Name: name}); err != nil {
					return "", err
				}
				buf = append(buf, '&')
				buf = append(buf, name...)
				buf = append(buf, ';')
			case ent.Type == InternalPredefinedEntity:
				buf = append(buf, ent.Value...)
			case ent.IsUnparsed():
				return "", ctx.error(ErrUnparsedEntityInAttr)
			case ent.IsExternal():
				return "", ctx.error(ErrExternalEntityInAttr)
			default:
				if err := ctx.pushEntity(ent); err != nil {
					return "", err
				}
			}
		case isBlankCh(c):
			buf = append(buf, ' ')
			ctx.curAdvance(1)
		case !isChar(c):
			return "", ctx.error(ErrInvalidChar)
		default:
			buf = utf8.AppendRune(buf, c)
			ctx.curAdvance(1)
		}
	}

	if tokenized {
		return collapseSpaces(buf), nil
	}
	return string(buf), nil
}

// collapseSpaces drops leading and trailing #x20 characters and
// replaces runs of them with a single one. Other whitespace, which can
// only come from character references at this point, is kept.
func collapseSpaces(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b))
	pending := false
	for _, c := range b {
		if c == ' ' {
			pending = sb.Len() > 0
			continue
		}
		if pending {
			sb.WriteByte(' ')
			pending = false
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
