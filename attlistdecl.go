package dtd

import (
	"log/slog"

	"github.com/lestrrat-go/dtd/internal/debug"
	"github.com/lestrrat-go/dtd/sax"
	"github.com/samber/lo"
)

/*
 * parse an attribute list declaration
 *
 * [52] AttlistDecl ::= '<!ATTLIST' S Name AttDef* S? '>'
 *
 * [53] AttDef ::= S Name S AttType S DefaultDecl
 *
 * Each definition is reported as soon as it has been read. When an
 * attribute of an element is defined more than once, the first
 * definition is binding and the later ones are not reported.
 */
func (ctx *parserCtx) parseAttributeListDecl() error {
	if debug.Enabled {
		debug.Printf("START parseAttributeListDecl")
		defer debug.Printf("END   parseAttributeListDecl")
	}

	f := ctx.input
	ctx.curAdvance(9) // "<!ATTLIST"
	ctx.beginConstruct(f)

	if err := ctx.requireBlanks(); err != nil {
		return err
	}
	elem, err := ctx.parseName()
	if err != nil {
		return err
	}

	for {
		sep, err := ctx.skipBlanks()
		if err != nil {
			return err
		}
		if ctx.curConsumePrefix(">") {
			break
		}
		if ctx.curDone() {
			return ctx.error(ErrGtRequired)
		}
		if !sep {
			return ctx.error(ErrSpaceRequired)
		}
		if err := ctx.parseAttributeDef(elem); err != nil {
			return err
		}
	}
	return ctx.endConstruct(f)
}

func (ctx *parserCtx) parseAttributeDef(elem string) error {
	if !isNameStartChar(ctx.curPeek(1)) {
		return ctx.error(ErrAttributeNameRequired)
	}
	name, err := ctx.parseName()
	if err != nil {
		return err
	}
	if err := ctx.requireBlanks(); err != nil {
		return err
	}

	typ, enum, err := ctx.parseAttributeType()
	if err != nil {
		return err
	}
	if err := ctx.requireBlanks(); err != nil {
		return err
	}

	use, value, err := ctx.parseDefaultDecl(typ)
	if err != nil {
		return err
	}

	if !ctx.decls.declareAttribute(elem, name, attributeDecl{typ: typ, use: use}) {
		return ctx.duplicate(&DuplicateDeclarationError{Kind: "attribute", Name: name, Element: elem})
	}

	if typ == sax.AttrID {
		// [ VC: ID Attribute Default ]
		if use == sax.UseNormal || use == sax.UseFixed {
			if err := ctx.recoverable(ErrIDAttributeDefault); err != nil {
				return err
			}
		}
		// [ VC: One ID per Element Type ]
		if !ctx.decls.declareIDAttribute(elem, name) {
			if err := ctx.recoverable(ErrMultipleIDAttributes); err != nil {
				return err
			}
		}
	}

	TraceEvent(ctx, "attribute declared",
		slog.String("element", elem),
		slog.String("name", name),
		slog.String("type", typ.String()),
		slog.String("use", use.String()),
	)

	if err := ctx.handler.AttributeDecl(ctx, elem, name, typ, enum, use, value); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

var attributeTypeKeywords = []struct {
	keyword string
	typ     sax.AttributeType
}{
	{"CDATA", sax.AttrCDATA},
	{"IDREFS", sax.AttrIDRefs},
	{"IDREF", sax.AttrIDRef},
	{"ID", sax.AttrID},
	{"ENTITY", sax.AttrEntity},
	{"ENTITIES", sax.AttrEntities},
	{"NMTOKENS", sax.AttrNMTokens},
	{"NMTOKEN", sax.AttrNMToken},
}

/**
 * parse the Attribute list def for an element
 *
 * [54] AttType ::= StringType | TokenizedType | EnumeratedType
 *
 * [55] StringType ::= 'CDATA'
 *
 * [56] TokenizedType ::= 'ID' | 'IDREF' | 'IDREFS' | 'ENTITY' |
 *                        'ENTITIES' | 'NMTOKEN' | 'NMTOKENS'
 *
 * [57] EnumeratedType ::= NotationType | Enumeration
 */
func (ctx *parserCtx) parseAttributeType() (sax.AttributeType, sax.Enumeration, error) {
	switch {
	case ctx.curPeek(1) == '(':
		enum, err := ctx.parseEnumeration(ctx.parseNmtoken)
		return sax.AttrEnumeration, enum, err
	case ctx.curConsumePrefix("NOTATION"):
		if err := ctx.requireBlanks(); err != nil {
			return sax.AttrInvalid, nil, err
		}
		if ctx.curPeek(1) != '(' {
			return sax.AttrInvalid, nil, ctx.error(ErrOpenParenRequired)
		}
		enum, err := ctx.parseEnumeration(ctx.parseName)
		return sax.AttrNotation, enum, err
	}

	for _, kw := range attributeTypeKeywords {
		if ctx.curConsumePrefix(kw.keyword) {
			return kw.typ, nil, nil
		}
	}
	return sax.AttrInvalid, nil, ctx.error(ErrAttributeTypeRequired)
}

/**
 * parse an Enumeration or the list part of a NotationType. token reads
 * one entry.
 *
 * [58] NotationType ::= 'NOTATION' S '(' S? Name (S? '|' S? Name)* S? ')'
 *
 * [59] Enumeration ::= '(' S? Nmtoken (S? '|' S? Nmtoken)* S? ')'
 *
 * [ VC: No Duplicate Tokens ]
 * The names in a single enumeration or NotationType declaration must
 * all be distinct.
 */
func (ctx *parserCtx) parseEnumeration(token func() (string, error)) (sax.Enumeration, error) {
	f := ctx.input
	ctx.curAdvance(1) // '('
	ctx.beginConstruct(f)

	var enum sax.Enumeration
	for {
		if _, err := ctx.skipBlanks(); err != nil {
			return nil, err
		}
		tok, err := token()
		if err != nil {
			return nil, err
		}
		if lo.Contains(enum, tok) {
			if err := ctx.recoverable(&DuplicateTokenError{Name: tok}); err != nil {
				return nil, err
			}
		} else {
			enum = append(enum, tok)
		}

		if _, err := ctx.skipBlanks(); err != nil {
			return nil, err
		}
		if ctx.curConsumePrefix(")") {
			break
		}
		if !ctx.curConsumePrefix("|") {
			return nil, ctx.error(ErrAttrListNotFinished)
		}
	}

	if err := ctx.endConstruct(f); err != nil {
		return nil, err
	}
	return enum, nil
}

/**
 * Parse an attribute default declaration
 *
 * [60] DefaultDecl ::= '#REQUIRED' | '#IMPLIED' | (('#FIXED' S)? AttValue)
 *
 * The value is normalized according to typ.
 */
func (ctx *parserCtx) parseDefaultDecl(typ sax.AttributeType) (sax.AttributeUse, string, error) {
	switch {
	case ctx.curConsumePrefix("#REQUIRED"):
		return sax.UseRequired, "", nil
	case ctx.curConsumePrefix("#IMPLIED"):
		return sax.UseImplied, "", nil
	case ctx.curConsumePrefix("#FIXED"):
		if err := ctx.requireBlanks(); err != nil {
			return sax.UseFixed, "", err
		}
		v, err := ctx.parseAttValue(typ.IsTokenized())
		return sax.UseFixed, v, err
	}

	if c := ctx.curPeek(1); c != '"' && c != '\'' {
		return sax.UseNormal, "", ctx.error(ErrAttributeDefaultRequired)
	}
	v, err := ctx.parseAttValue(typ.IsTokenized())
	return sax.UseNormal, v, err
}
