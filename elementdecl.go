package dtd

import (
	"log/slog"
	"strings"

	"github.com/lestrrat-go/dtd/internal/debug"
	"github.com/lestrrat-go/dtd/sax"
)

// maxContentDepth bounds the nesting of parenthesized groups in a
// content model.
const maxContentDepth = 128

type elementContentType int

const (
	elementContentPCDATA elementContentType = iota + 1
	elementContentElement
	elementContentSeq
	elementContentOr
)

// elementContent is a node of a parsed content model. Groups hold
// their particles in Children; a mixed model is a PCDATA node whose
// Children are the element names allowed alongside text.
type elementContent struct {
	Type     elementContentType
	Occur    sax.Occurrence
	Name     string
	Children []*elementContent
}

// String renders the content model in DTD syntax.
func (c *elementContent) String() string {
	var sb strings.Builder
	c.writeTo(&sb)
	return sb.String()
}

func (c *elementContent) writeTo(sb *strings.Builder) {
	switch c.Type {
	case elementContentElement:
		sb.WriteString(c.Name)
	case elementContentPCDATA:
		sb.WriteString("(#PCDATA")
		for _, child := range c.Children {
			sb.WriteByte('|')
			sb.WriteString(child.Name)
		}
		sb.WriteByte(')')
	default:
		sep := ","
		if c.Type == elementContentOr {
			sep = "|"
		}
		sb.WriteByte('(')
		for i, child := range c.Children {
			if i > 0 {
				sb.WriteString(sep)
			}
			child.writeTo(sb)
		}
		sb.WriteByte(')')
	}
	sb.WriteString(c.Occur.String())
}

/*
 * parse an Element declaration.
 *
 * [45] elementdecl ::= '<!ELEMENT' S Name S contentspec S? '>'
 *
 * [46] contentspec ::= 'EMPTY' | 'ANY' | Mixed | children
 *
 * [ VC: Unique Element Type Declaration ]
 * No element type may be declared more than once
 *
 * The content model is parsed in full before any event is delivered,
 * so a malformed model produces no events at all.
 */
func (ctx *parserCtx) parseElementDecl() error {
	if debug.Enabled {
		debug.Printf("START parseElementDecl")
		defer debug.Printf("END   parseElementDecl")
	}

	f := ctx.input
	ctx.curAdvance(9) // "<!ELEMENT"
	ctx.beginConstruct(f)

	if err := ctx.requireBlanks(); err != nil {
		return err
	}
	name, err := ctx.parseName()
	if err != nil {
		return err
	}
	if err := ctx.requireBlanks(); err != nil {
		return err
	}

	var typ sax.ContentModelType
	var content *elementContent
	switch {
	case ctx.curConsumePrefix("EMPTY"):
		typ = sax.ContentModelEmpty
	case ctx.curConsumePrefix("ANY"):
		typ = sax.ContentModelAny
	case ctx.curPeek(1) == '(':
		content, typ, err = ctx.parseElementContentDecl()
		if err != nil {
			return err
		}
		if debug.Enabled {
			debug.Dump(content)
		}
	default:
		return ctx.error(ErrElementContentNotStarted)
	}

	if _, err := ctx.skipBlanks(); err != nil {
		return err
	}
	if !ctx.curConsumePrefix(">") {
		return ctx.error(ErrGtRequired)
	}
	if err := ctx.endConstruct(f); err != nil {
		return err
	}

	if !ctx.decls.declareElement(name, typ) {
		return ctx.duplicate(&DuplicateDeclarationError{Kind: "element", Name: name})
	}

	attrs := []slog.Attr{slog.String("name", name), slog.String("type", typ.String())}
	if content != nil {
		attrs = append(attrs, slog.String("model", content.String()))
	}
	TraceEvent(ctx, "element declared", attrs...)

	return ctx.emitContentModel(name, typ, content)
}

// parseElementContentDecl parses a Mixed or children content spec.
// The cursor is on the opening '('.
func (ctx *parserCtx) parseElementContentDecl() (*elementContent, sax.ContentModelType, error) {
	f := ctx.input
	ctx.curAdvance(1)
	ctx.beginConstruct(f)

	if _, err := ctx.skipBlanks(); err != nil {
		return nil, sax.ContentModelEmpty, err
	}

	if ctx.curHasPrefix("#PCDATA") {
		c, err := ctx.parseElementMixedContentDecl(f)
		return c, sax.ContentModelMixed, err
	}
	c, err := ctx.parseElementChildrenContentDecl(f, 1)
	return c, sax.ContentModelChildren, err
}

/**
 * parse the declaration for a Mixed Element content
 * The leading '(' and spaces have been skipped in parseElementContentDecl
 *
 * [51] Mixed ::= '(' S? '#PCDATA' (S? '|' S? Name)* S? ')*' |
 *                '(' S? '#PCDATA' S? ')'
 *
 * [ VC: No Duplicate Types ]
 * The same name must not appear more than once in a single
 * mixed-content declaration.
 */
func (ctx *parserCtx) parseElementMixedContentDecl(f *inputEntity) (*elementContent, error) {
	ctx.curAdvance(7) // "#PCDATA"

	ret := &elementContent{Type: elementContentPCDATA, Occur: sax.OccurrenceOnce}
	for {
		if _, err := ctx.skipBlanks(); err != nil {
			return nil, err
		}
		if !ctx.curConsumePrefix("|") {
			break
		}
		if _, err := ctx.skipBlanks(); err != nil {
			return nil, err
		}
		name, err := ctx.parseName()
		if err != nil {
			return nil, err
		}

		if ret.hasChild(name) {
			if err := ctx.recoverable(&DuplicateTokenError{Name: name}); err != nil {
				return nil, err
			}
			continue
		}
		ret.Children = append(ret.Children, &elementContent{
			Type:  elementContentElement,
			Occur: sax.OccurrenceOnce,
			Name:  name,
		})
	}

	if !ctx.curConsumePrefix(")") {
		return nil, ctx.error(ErrMixedContentNotFinished)
	}
	if err := ctx.endConstruct(f); err != nil {
		return nil, err
	}

	if ctx.curConsumePrefix("*") {
		ret.Occur = sax.OccurrenceZeroOrMore
	} else if len(ret.Children) > 0 {
		return nil, ctx.error(ErrMixedContentNotFinished)
	}
	return ret, nil
}

func (c *elementContent) hasChild(name string) bool {
	for _, child := range c.Children {
		if child.Name == name {
			return true
		}
	}
	return false
}

/* *
 * parse the declaration for a children content model. The opening
 * '(' has been consumed in frame f.
 *
 * [47] children ::= (choice | seq) ('?' | '*' | '+')?
 *
 * [48] cp ::= (Name | choice | seq) ('?' | '*' | '+')?
 *
 * [49] choice ::= '(' S? cp ( S? '|' S? cp )* S? ')'
 *
 * [50] seq ::= '(' S? cp ( S? ',' S? cp )* S? ')'
 *
 * The first connector seen fixes the kind of the group; '|' and ','
 * may only be mixed through nested parentheses.
 */
func (ctx *parserCtx) parseElementChildrenContentDecl(f *inputEntity, depth int) (*elementContent, error) {
	if depth > maxContentDepth {
		return nil, ctx.error(ErrContentModelTooDeep)
	}

	group := &elementContent{Type: elementContentSeq}
	var connector rune
	for {
		if _, err := ctx.skipBlanks(); err != nil {
			return nil, err
		}
		cp, err := ctx.parseContentParticle(depth)
		if err != nil {
			return nil, err
		}
		group.Children = append(group.Children, cp)

		if _, err := ctx.skipBlanks(); err != nil {
			return nil, err
		}
		c := ctx.curPeek(1)
		if c == ')' {
			ctx.curAdvance(1)
			break
		}
		if c != '|' && c != ',' {
			return nil, ctx.error(ErrElementContentNotFinished)
		}
		if connector == 0 {
			connector = c
		} else if c != connector {
			return nil, ctx.error(ErrConnectorMismatch)
		}
		ctx.curAdvance(1)
	}

	if connector == '|' {
		group.Type = elementContentOr
	}
	if err := ctx.endConstruct(f); err != nil {
		return nil, err
	}
	group.Occur = ctx.parseOccurrence()
	return group, nil
}

func (ctx *parserCtx) parseContentParticle(depth int) (*elementContent, error) {
	if ctx.curPeek(1) == '(' {
		f := ctx.input
		ctx.curAdvance(1)
		ctx.beginConstruct(f)
		return ctx.parseElementChildrenContentDecl(f, depth+1)
	}

	name, err := ctx.parseName()
	if err != nil {
		return nil, err
	}
	return &elementContent{
		Type:  elementContentElement,
		Occur: ctx.parseOccurrence(),
		Name:  name,
	}, nil
}

func (ctx *parserCtx) parseOccurrence() sax.Occurrence {
	switch ctx.curPeek(1) {
	case '?':
		ctx.curAdvance(1)
		return sax.OccurrenceZeroOrOne
	case '*':
		ctx.curAdvance(1)
		return sax.OccurrenceZeroOrMore
	case '+':
		ctx.curAdvance(1)
		return sax.OccurrenceOneOrMore
	}
	return sax.OccurrenceOnce
}

func (ctx *parserCtx) emitContentModel(name string, typ sax.ContentModelType, content *elementContent) error {
	h := ctx.handler
	if err := h.StartContentModel(ctx, name, typ); err != nil {
		return ctx.listenerError(err)
	}

	switch typ {
	case sax.ContentModelMixed:
		for _, child := range content.Children {
			if err := h.MixedElement(ctx, child.Name); err != nil {
				return ctx.listenerError(err)
			}
		}
	case sax.ContentModelChildren:
		if err := ctx.emitModelGroup(content); err != nil {
			return err
		}
	}

	if err := h.EndContentModel(ctx, name, typ); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

func (ctx *parserCtx) emitModelGroup(group *elementContent) error {
	h := ctx.handler
	if err := h.StartModelGroup(ctx); err != nil {
		return ctx.listenerError(err)
	}

	connector := sax.Sequence
	if group.Type == elementContentOr {
		connector = sax.Choice
	}
	for i, child := range group.Children {
		if i > 0 {
			if err := h.Connector(ctx, connector); err != nil {
				return ctx.listenerError(err)
			}
		}
		if child.Type == elementContentElement {
			if err := h.ChildElement(ctx, child.Name, child.Occur); err != nil {
				return ctx.listenerError(err)
			}
			continue
		}
		if err := ctx.emitModelGroup(child); err != nil {
			return err
		}
	}

	if err := h.EndModelGroup(ctx, group.Occur); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}
