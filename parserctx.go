package dtd

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lestrrat-go/dtd/internal/debug"
	"github.com/lestrrat-go/dtd/internal/pool"
	"github.com/lestrrat-go/dtd/internal/stack"
	"github.com/lestrrat-go/dtd/sax"
)

// parserCtx holds the state of a single parse. It is handed to every
// callback as the context.Context and as the sax.DocumentLocator.
type parserCtx struct {
	context.Context

	handler         sax.Handler
	resolver        Resolver
	flags           parseFlag
	maxDepth        int
	maxExpansions   int
	maxExpandedSize int
	nbentities      int
	// bytes of internal replacement text pushed so far
	expandedSize int

	names  *Interner
	decls  *registry
	inputs *stack.Stack[*inputEntity]
	input  *inputEntity

	// frames in which the currently open INCLUDE sections were opened
	includes []*inputEntity

	collectBlanks bool
	blanks        []byte

	systemID string
	// the document frame, once pushed
	doc     *inputEntity
	started bool
	ended   bool
}

func (ctx *parserCtx) init(p *Parser, parent context.Context) {
	ctx.Context = parent
	ctx.handler = p.handler
	if ctx.handler == nil {
		ctx.handler = sax.New()
	}
	ctx.resolver = p.resolver
	ctx.flags = p.flags
	ctx.maxDepth = p.maxDepth
	ctx.maxExpansions = p.maxExpansions
	ctx.maxExpandedSize = p.maxExpandedSize
	ctx.names = NewInterner()
	ctx.decls = newRegistry(ctx.names)
	ctx.inputs = stack.New[*inputEntity]()
	ctx.blanks = pool.ByteSlice().Get()
}

func (ctx *parserCtx) release() {
	pool.ByteSlice().Put(ctx.blanks)
	ctx.blanks = nil
	ctx.inputs.Clear()
	ctx.input = nil
	ctx.includes = nil
	ctx.handler = nil
}

func (ctx *parserCtx) PublicID() string {
	if ctx.input == nil {
		return ""
	}
	return ctx.input.publicID
}

// SystemID returns the system identifier of the innermost frame that
// has one. Internal entities report the one of the entity that
// contains them.
func (ctx *parserCtx) SystemID() string {
	for i := ctx.inputs.Len() - 1; i >= 0; i-- {
		if sys := ctx.inputs.At(i).systemID; sys != "" {
			return sys
		}
	}
	return ctx.systemID
}

func (ctx *parserCtx) LineNumber() int {
	if ctx.input == nil {
		return 0
	}
	return ctx.input.line
}

func (ctx *parserCtx) ColumnNumber() int {
	if ctx.input == nil {
		return 0
	}
	return ctx.input.col
}

// error attaches the current position to err. Errors that already
// carry a position, and errors raised by the handler, are returned
// as is.
func (ctx *parserCtx) error(err error) error {
	switch err.(type) {
	case ParseError, ListenerError:
		return err
	}

	pe := ParseError{
		SystemID: ctx.SystemID(),
		Err:      err,
	}
	if in := ctx.input; in != nil {
		pe.Entity = in.Key()
		pe.LineNumber = in.line
		pe.Column = in.col
		pe.Line = in.currentLine()
	}
	return pe
}

func (ctx *parserCtx) listenerError(err error) error {
	if _, ok := err.(ListenerError); ok {
		return err
	}
	return ListenerError{Err: err}
}

// warning reports err through the Warning callback. Parsing goes on
// unless the handler returns an error.
func (ctx *parserCtx) warning(err error) error {
	err = ctx.error(err)
	TraceEvent(ctx, "warning", slog.String("error", err.Error()))
	if herr := ctx.handler.Warning(ctx, err); herr != nil {
		return ctx.listenerError(herr)
	}
	return nil
}

// recoverable reports err through the Error callback. Parsing goes on
// unless the handler returns an error.
func (ctx *parserCtx) recoverable(err error) error {
	err = ctx.error(err)
	TraceEvent(ctx, "recoverable error", slog.String("error", err.Error()))
	if herr := ctx.handler.Error(ctx, err); herr != nil {
		return ctx.listenerError(herr)
	}
	return nil
}

// duplicate reports a redeclaration, if enabled. The first declaration
// stays in effect either way.
func (ctx *parserCtx) duplicate(err *DuplicateDeclarationError) error {
	if debug.Enabled {
		debug.Printf("duplicate %s %q", err.Kind, err.Name)
	}
	if !ctx.flags.IsSet(flagDuplicateWarnings) {
		return nil
	}
	return ctx.warning(err)
}

// fatal ends the parse. The remaining frames are discarded. Once the
// document frame has been pushed the event stream is always closed
// with EndDTD, preceded by StartDTD when the failure came before it.
func (ctx *parserCtx) fatal(err error) error {
	err = ctx.error(err)
	TraceError(ctx, err, "fatal error")

	if ctx.doc != nil && !ctx.started {
		ctx.started = true
		_ = ctx.handler.StartDTD(ctx, ctx.doc)
	}

	var lerr ListenerError
	if !errors.As(err, &lerr) {
		_ = ctx.handler.FatalError(ctx, err)
	}

	ctx.inputs.Clear()
	ctx.input = nil
	ctx.includes = nil

	if ctx.started && !ctx.ended {
		ctx.ended = true
		_ = ctx.handler.EndDTD(ctx)
	}
	return err
}

func (ctx *parserCtx) parse(data []byte, systemID string) error {
	spanCtx, span := StartSpan(ctx.Context, "dtd.Parse")
	defer span.End()
	ctx.Context = spanCtx
	ctx.systemID = systemID

	if debug.Enabled {
		debug.Printf("START parse %q (%d bytes)", systemID, len(data))
		defer debug.Printf("END   parse %q", systemID)
	}

	if err := ctx.handler.SetDocumentLocator(ctx, ctx); err != nil {
		return ctx.fatal(ctx.listenerError(err))
	}

	doc, err := newExternalInput(data, "", systemID)
	if err != nil {
		return ctx.fatal(err)
	}
	if err := ctx.pushInput(doc); err != nil {
		return ctx.fatal(err)
	}
	ctx.doc = doc
	if err := ctx.parseTextDecl(); err != nil {
		return ctx.fatal(err)
	}

	ctx.started = true
	if err := ctx.handler.StartDTD(ctx, doc); err != nil {
		return ctx.fatal(ctx.listenerError(err))
	}

	if err := ctx.parseMarkupDecls(); err != nil {
		return ctx.fatal(err)
	}
	if err := ctx.popInput(); err != nil {
		return ctx.fatal(err)
	}

	ctx.decls.trace(ctx)
	ctx.ended = true
	if err := ctx.handler.EndDTD(ctx); err != nil {
		return ctx.fatal(ctx.listenerError(err))
	}
	return nil
}

/*
 * parse the body of a DTD
 *
 * [31] extSubsetDecl ::= ( markupdecl | conditionalSect | DeclSep)*
 * [28a] DeclSep ::= PEReference | S
 */
func (ctx *parserCtx) parseMarkupDecls() error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ctx.collectBlanks = ctx.flags.IsSet(flagReportWhitespace)
		_, err := ctx.skipBlanks()
		ctx.collectBlanks = false
		if err != nil {
			return err
		}
		if err := ctx.flushBlanks(); err != nil {
			return err
		}

		if ctx.curDone() {
			break
		}
		if err := ctx.parseMarkupDecl(); err != nil {
			return err
		}
	}

	if len(ctx.includes) > 0 {
		return ctx.error(ErrConditionalSectionNotFinished)
	}
	return nil
}

func (ctx *parserCtx) flushBlanks() error {
	if len(ctx.blanks) == 0 {
		return nil
	}
	ws := append([]byte(nil), ctx.blanks...)
	ctx.blanks = ctx.blanks[:0]
	if err := ctx.handler.IgnorableWhitespace(ctx, ws); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

/**
 * parse Markup declarations
 *
 * [29] markupdecl ::= elementdecl | AttlistDecl | EntityDecl |
 *                     NotationDecl | PI | Comment
 *
 * [ VC: Proper Declaration/PE Nesting ]
 * Parameter-entity replacement text must be properly nested with
 * markup declarations.
 */
func (ctx *parserCtx) parseMarkupDecl() error {
	switch {
	case ctx.curHasPrefix("<!ELEMENT"):
		return ctx.parseElementDecl()
	case ctx.curHasPrefix("<!ATTLIST"):
		return ctx.parseAttributeListDecl()
	case ctx.curHasPrefix("<!ENTITY"):
		return ctx.parseEntityDecl()
	case ctx.curHasPrefix("<!NOTATION"):
		return ctx.parseNotationDecl()
	case ctx.curHasPrefix("<!--"):
		return ctx.parseComment()
	case ctx.curHasPrefix("<?"):
		return ctx.parsePI()
	case ctx.curHasPrefix("<!["):
		if ctx.flags.IsSet(flagCDATASections) && ctx.curHasPrefix("<![CDATA[") {
			return ctx.parseCDSect()
		}
		return ctx.parseConditionalSect()
	case ctx.curHasPrefix("]]>"):
		return ctx.parseSectionEnd()
	}

	if !isChar(ctx.curPeek(1)) {
		return ctx.error(ErrInvalidChar)
	}
	return ctx.error(ErrMarkupDeclExpected)
}

/*
 * parse a conditional section
 *
 * [61] conditionalSect ::= includeSect | ignoreSect
 * [62] includeSect ::= '<![' S? 'INCLUDE' S? '[' extSubsetDecl ']]>'
 * [63] ignoreSect ::= '<![' S? 'IGNORE' S? '[' ignoreSectContents* ']]>'
 * [64] ignoreSectContents ::= Ignore ('<![' ignoreSectContents ']]>' Ignore)*
 * [65] Ignore ::= Char* - (Char* ('<![' | ']]>') Char*)
 *
 * The keyword may come from a parameter entity. The body of an
 * INCLUDE section is parsed by the main loop; parseSectionEnd closes
 * it.
 */
func (ctx *parserCtx) parseConditionalSect() error {
	f := ctx.input
	ctx.curAdvance(3)
	ctx.beginConstruct(f)

	if _, err := ctx.skipBlanks(); err != nil {
		return err
	}

	switch {
	case ctx.curConsumePrefix("INCLUDE"):
		if _, err := ctx.skipBlanks(); err != nil {
			return err
		}
		if !ctx.curConsumePrefix("[") {
			return ctx.error(ErrOpenBracketRequired)
		}
		ctx.includes = append(ctx.includes, f)
		TraceEvent(ctx, "include section")
		return nil
	case ctx.curConsumePrefix("IGNORE"):
		if _, err := ctx.skipBlanks(); err != nil {
			return err
		}
		if !ctx.curConsumePrefix("[") {
			return ctx.error(ErrOpenBracketRequired)
		}
		if err := ctx.skipIgnoreSect(); err != nil {
			return err
		}
		TraceEvent(ctx, "ignore section")
		return ctx.endConstruct(f)
	}
	return ctx.error(ErrConditionalSectionKeyword)
}

// skipIgnoreSect skips the contents of an IGNORE section, nested
// sections included, up to and including the matching ']]>'.
func (ctx *parserCtx) skipIgnoreSect() error {
	for depth := 1; depth > 0; {
		switch {
		case ctx.curDone():
			return ctx.error(ErrConditionalSectionNotFinished)
		case ctx.curConsumePrefix("<!["):
			depth++
		case ctx.curConsumePrefix("]]>"):
			depth--
		default:
			if !isChar(ctx.curPeek(1)) {
				return ctx.error(ErrInvalidChar)
			}
			ctx.curAdvance(1)
		}
	}
	return nil
}

func (ctx *parserCtx) parseSectionEnd() error {
	n := len(ctx.includes)
	if n == 0 {
		return ctx.error(ErrMisplacedSectionEnd)
	}
	ctx.curAdvance(3)
	f := ctx.includes[n-1]
	ctx.includes = ctx.includes[:n-1]
	return ctx.endConstruct(f)
}

/*
 * Skip an XML (SGML) comment <!-- .... -->
 *  XML 1.0 says that "For compatibility, the string "--" (double-hyphen)
 *  must not occur within comments. "
 *
 * [15] Comment ::= '<!--' ((Char - '-') | ('-' (Char - '-')))* '-->'
 */
func (ctx *parserCtx) parseComment() error {
	ctx.curAdvance(4)

	in := ctx.input
	start := in.pos
	for {
		if ctx.curDone() {
			return ctx.error(ErrCommentNotFinished)
		}
		c := ctx.curPeek(1)
		if c == '-' && ctx.curPeek(2) == '-' {
			if ctx.curPeek(3) != '>' {
				return ctx.error(ErrHyphenInComment)
			}
			break
		}
		if !isChar(c) {
			return ctx.error(ErrInvalidChar)
		}
		ctx.curAdvance(1)
	}
	value := []byte(string(in.buf[start:in.pos]))
	ctx.curAdvance(3)

	if err := ctx.handler.Comment(ctx, value); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

var knownPIs = []string{
	"xml-stylesheet",
	"xml-model",
}

/*
 * parse a Processing Instruction.
 *
 * [16] PI ::= '<?' PITarget (S (Char* - (Char* '?>' Char*)))? '?>'
 */
func (ctx *parserCtx) parsePI() error {
	ctx.curAdvance(2)

	target, err := ctx.parsePITarget()
	if err != nil {
		return err
	}

	var data string
	if !ctx.curConsumePrefix("?>") {
		if ctx.skipSpaces() == 0 {
			return ctx.error(ErrSpaceRequired)
		}

		in := ctx.input
		start := in.pos
		for !ctx.curHasPrefix("?>") {
			if ctx.curDone() {
				return ctx.error(ErrPINotFinished)
			}
			if !isChar(ctx.curPeek(1)) {
				return ctx.error(ErrInvalidChar)
			}
			ctx.curAdvance(1)
		}
		data = string(in.buf[start:in.pos])
		ctx.curAdvance(2)
	}

	if err := ctx.handler.ProcessingInstruction(ctx, target, data); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

/**
 * parse the name of a PI
 *
 * [17] PITarget ::= Name - (('X' | 'x') ('M' | 'm') ('L' | 'l'))
 */
func (ctx *parserCtx) parsePITarget() (string, error) {
	name, err := ctx.parseName()
	if err != nil {
		return "", err
	}

	if strings.EqualFold(name, "xml") {
		return "", ctx.error(ErrReservedPITarget)
	}

	for _, knownpi := range knownPIs {
		if knownpi == name {
			return name, nil
		}
	}

	if strings.IndexByte(name, ':') > -1 {
		return "", ctx.error(ErrPITargetColon)
	}
	return name, nil
}

/*
 * [18] CDSect ::= CDStart CData CDEnd
 * [19] CDStart ::= '<![CDATA['
 * [20] Data ::= (Char* - (Char* ']]>' Char*))
 * [21] CDEnd ::= ']]>'
 */
func (ctx *parserCtx) parseCDSect() error {
	ctx.curAdvance(9)

	in := ctx.input
	start := in.pos
	for !ctx.curHasPrefix("]]>") {
		if ctx.curDone() {
			return ctx.error(ErrCDATANotFinished)
		}
		if !isChar(ctx.curPeek(1)) {
			return ctx.error(ErrInvalidChar)
		}
		ctx.curAdvance(1)
	}
	text := []byte(string(in.buf[start:in.pos]))
	ctx.curAdvance(3)

	if err := ctx.handler.StartCDATA(ctx); err != nil {
		return ctx.listenerError(err)
	}
	if len(text) > 0 {
		if err := ctx.handler.Characters(ctx, text); err != nil {
			return ctx.listenerError(err)
		}
	}
	if err := ctx.handler.EndCDATA(ctx); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

/*
 * parse the text declaration at the start of an external entity
 *
 * [77] TextDecl ::= '<?xml' VersionInfo? EncodingDecl S? '?>'
 *
 * The document entity takes the XMLDecl form instead, where the
 * encoding is optional and a standalone declaration may follow.
 *
 * [23] XMLDecl ::= '<?xml' VersionInfo EncodingDecl? SDDecl? S? '?>'
 *
 * Whether or not a declaration is present, the encoding of the frame
 * is settled when this returns.
 */
func (ctx *parserCtx) parseTextDecl() error {
	in := ctx.input
	if !ctx.curHasPrefix("<?xml") || !isBlankCh(ctx.curPeek(6)) {
		return ctx.switchEncoding(in, "")
	}
	ctx.curAdvance(5)

	spaced := ctx.skipSpaces() > 0
	version, err := ctx.parsePseudoAttr("version", spaced, isVersionNum, ErrInvalidVersionNum)
	if err != nil {
		return err
	}
	if version != "" {
		spaced = ctx.skipSpaces() > 0
	}

	encName, err := ctx.parsePseudoAttr("encoding", spaced, isEncodingName, ErrInvalidEncodingName)
	if err != nil {
		return err
	}
	if encName != "" {
		spaced = ctx.skipSpaces() > 0
	} else if in.level > 0 {
		return ctx.error(ErrInvalidTextDecl)
	}

	if in.level == 0 {
		standalone, err := ctx.parsePseudoAttr("standalone", spaced, isStandaloneValue, ErrInvalidTextDecl)
		if err != nil {
			return err
		}
		if standalone != "" {
			ctx.skipSpaces()
		}
	}

	if !ctx.curConsumePrefix("?>") {
		return ctx.error(ErrInvalidTextDecl)
	}

	if debug.Enabled {
		debug.Printf("text declaration: version=%q encoding=%q", version, encName)
	}
	return ctx.switchEncoding(in, encName)
}

// parsePseudoAttr parses name Eq "value" if name is next in the input,
// and returns "" otherwise. spaced tells whether whitespace preceded
// it.
func (ctx *parserCtx) parsePseudoAttr(name string, spaced bool, valid func(string) bool, invalid error) (string, error) {
	if !ctx.curHasPrefix(name) {
		return "", nil
	}
	if !spaced {
		return "", ctx.error(ErrSpaceRequired)
	}
	ctx.curAdvance(len(name))

	ctx.skipSpaces()
	if !ctx.curConsumePrefix("=") {
		return "", ctx.error(ErrEqualSignRequired)
	}
	ctx.skipSpaces()

	v, err := ctx.parseQuotedText(isChar, ErrInvalidChar)
	if err != nil {
		return "", err
	}
	if !valid(v) {
		return "", ctx.error(invalid)
	}
	return v, nil
}

// [26] VersionNum ::= '1.' [0-9]+
//
// In practice allow [0-9].[0-9]+ at that level
func isVersionNum(s string) bool {
	if len(s) < 3 || !isDigit(s[0]) || s[1] != '.' {
		return false
	}
	for i := 2; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// [81] EncName ::= [A-Za-z] ([A-Za-z0-9._] | '-')*
func isEncodingName(s string) bool {
	if s == "" || !isASCIILetter(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		c := s[i]
		if !isASCIILetter(c) && !isDigit(c) && c != '.' && c != '_' && c != '-' {
			return false
		}
	}
	return true
}

func isStandaloneValue(s string) bool {
	return s == "yes" || s == "no"
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
