package dtd

import (
	"log/slog"

	"github.com/lestrrat-go/dtd/internal/debug"
)

/*
 * parse <!ENTITY declarations
 *
 * [70] EntityDecl ::= GEDecl | PEDecl
 *
 * [71] GEDecl ::= '<!ENTITY' S Name S EntityDef S? '>'
 *
 * [72] PEDecl ::= '<!ENTITY' S '%' S Name S PEDef S? '>'
 *
 * [73] EntityDef ::= EntityValue | (ExternalID NDataDecl?)
 *
 * [74] PEDef ::= EntityValue | ExternalID
 *
 * [76] NDataDecl ::= S 'NDATA' S Name
 *
 * [ VC: Notation Declared ]
 * The Name must match the declared name of a notation.
 */
func (ctx *parserCtx) parseEntityDecl() error {
	if debug.Enabled {
		debug.Printf("START parseEntityDecl")
		defer debug.Printf("END   parseEntityDecl")
	}

	f := ctx.input
	ctx.curAdvance(8) // "<!ENTITY"
	ctx.beginConstruct(f)

	if err := ctx.requireBlanks(); err != nil {
		return err
	}

	parameter := false
	if ctx.curPeek(1) == '%' {
		ctx.curAdvance(1)
		if err := ctx.requireBlanks(); err != nil {
			return err
		}
		parameter = true
	}

	name, err := ctx.parseName()
	if err != nil {
		return err
	}
	if err := ctx.requireBlanks(); err != nil {
		return err
	}

	ent := &Entity{Name: name, BaseURI: f.baseURI}
	switch c := ctx.curPeek(1); {
	case c == '"' || c == '\'':
		v, err := ctx.parseEntityValue()
		if err != nil {
			return err
		}
		ent.Value = v
		ent.Type = InternalGeneralEntity
		if parameter {
			ent.Type = InternalParameterEntity
		}
	case ctx.curHasPrefix("SYSTEM") || ctx.curHasPrefix("PUBLIC"):
		pubID, sysID, err := ctx.parseExternalID(false)
		if err != nil {
			return err
		}
		ent.PublicID = pubID
		ent.SystemID = sysID

		sep, err := ctx.skipBlanks()
		if err != nil {
			return err
		}
		switch {
		case ctx.curHasPrefix("NDATA"):
			if parameter {
				return ctx.error(ErrNDATAInParameterEntity)
			}
			if !sep {
				return ctx.error(ErrSpaceRequired)
			}
			ctx.curAdvance(5)
			if err := ctx.requireBlanks(); err != nil {
				return err
			}
			notation, err := ctx.parseName()
			if err != nil {
				return err
			}
			ent.NotationName = notation
			ent.Type = ExternalGeneralUnparsedEntity
		case parameter:
			ent.Type = ExternalParameterEntity
		default:
			ent.Type = ExternalGeneralParsedEntity
		}
	default:
		return ctx.error(ErrEntityValueRequired)
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

	return ctx.declareEntity(ent)
}

// declareEntity registers ent and reports it. A redeclaration of one
// of the predefined entities is accepted without comment.
func (ctx *parserCtx) declareEntity(ent *Entity) error {
	if !ctx.decls.declareEntity(ent) {
		if !ent.IsParameter() && resolvePredefinedEntity(ent.Name) != nil {
			return nil
		}
		kind := "entity"
		if ent.IsParameter() {
			kind = "parameter entity"
		}
		return ctx.duplicate(&DuplicateDeclarationError{Kind: kind, Name: ent.Name})
	}

	TraceEvent(ctx, "entity declared",
		slog.String("name", ent.Key()),
		slog.String("type", ent.Type.String()),
	)

	h := ctx.handler
	sysID := resolveSystemID(ent.BaseURI, ent.SystemID)
	var err error
	switch ent.Type {
	case InternalGeneralEntity:
		err = h.InternalGeneralEntityDecl(ctx, ent.Name, ent.Value)
	case InternalParameterEntity:
		err = h.InternalParameterEntityDecl(ctx, ent.Name, ent.Value)
	case ExternalGeneralParsedEntity:
		err = h.ExternalGeneralEntityDecl(ctx, ent.Name, ent.PublicID, sysID)
	case ExternalParameterEntity:
		err = h.ExternalParameterEntityDecl(ctx, ent.Name, ent.PublicID, sysID)
	case ExternalGeneralUnparsedEntity:
		err = h.UnparsedEntityDecl(ctx, ent.Name, ent.PublicID, sysID, ent.NotationName)
	}
	if err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

/*
 * Parse a NOTATION declaration
 *
 * [82] NotationDecl ::= '<!NOTATION' S Name S (ExternalID |  PublicID) S? '>'
 *
 * [83] PublicID ::= 'PUBLIC' S PubidLiteral
 */
func (ctx *parserCtx) parseNotationDecl() error {
	if debug.Enabled {
		debug.Printf("START parseNotationDecl")
		defer debug.Printf("END   parseNotationDecl")
	}

	f := ctx.input
	ctx.curAdvance(10) // "<!NOTATION"
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

	pubID, sysID, err := ctx.parseExternalID(true)
	if err != nil {
		return err
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

	if !ctx.decls.declareNotation(name) {
		return ctx.duplicate(&DuplicateDeclarationError{Kind: "notation", Name: name})
	}
	TraceEvent(ctx, "notation declared", slog.String("name", name))

	if err := ctx.handler.NotationDecl(ctx, name, pubID, resolveSystemID(f.baseURI, sysID)); err != nil {
		return ctx.listenerError(err)
	}
	return nil
}

/**
 * Parse an External ID or a Public ID
 *
 * [75] ExternalID ::= 'SYSTEM' S SystemLiteral
 *                   | 'PUBLIC' S PubidLiteral S SystemLiteral
 *
 * [83] PublicID ::= 'PUBLIC' S PubidLiteral
 *
 * When publicOnly is set, the system literal after a public one may be
 * omitted, as allowed in notation declarations.
 */
func (ctx *parserCtx) parseExternalID(publicOnly bool) (string, string, error) {
	switch {
	case ctx.curConsumePrefix("SYSTEM"):
		if err := ctx.requireBlanks(); err != nil {
			return "", "", err
		}
		sysID, err := ctx.parseSystemLiteral()
		if err != nil {
			return "", "", err
		}
		return "", sysID, nil
	case ctx.curConsumePrefix("PUBLIC"):
		if err := ctx.requireBlanks(); err != nil {
			return "", "", err
		}
		pubID, err := ctx.parsePubidLiteral()
		if err != nil {
			return "", "", err
		}

		sep, err := ctx.skipBlanks()
		if err != nil {
			return "", "", err
		}
		if c := ctx.curPeek(1); c != '"' && c != '\'' {
			if publicOnly {
				return pubID, "", nil
			}
			return "", "", ctx.error(ErrLiteralRequired)
		}
		if !sep {
			return "", "", ctx.error(ErrSpaceRequired)
		}
		sysID, err := ctx.parseSystemLiteral()
		if err != nil {
			return "", "", err
		}
		return pubID, sysID, nil
	}
	return "", "", ctx.error(ErrExternalIDRequired)
}
