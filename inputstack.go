package dtd

import (
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/lestrrat-go/dtd/encoding"
	"github.com/lestrrat-go/dtd/internal/debug"
	"github.com/lestrrat-go/dtd/internal/stack"
	"github.com/pkg/errors"
)

// pushInput makes in the current frame. It fails when in expands an
// entity that is already being expanded, or when a resource limit is
// hit.
func (ctx *parserCtx) pushInput(in *inputEntity) error {
	if ctx.inputs.Len() >= ctx.maxDepth {
		return ctx.error(ErrEntityDepthExceeded)
	}
	if in.entity != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		ctx.nbentities++
		if ctx.nbentities > ctx.maxExpansions {
			return ctx.error(ErrTooManyExpansions)
		}
		// parameter entity values are stored already expanded
		if !in.external {
			ctx.expandedSize += len(in.entity.Value)
			if ctx.expandedSize > ctx.maxExpandedSize {
				return ctx.error(ErrExpansionTooLarge)
			}
		}
	}
	if err := stack.PushUnique(ctx.inputs, in); err != nil {
		return ctx.error(&recursionError{name: in.Key()})
	}
	in.level = ctx.inputs.Len() - 1
	ctx.input = in

	if debug.Enabled {
		debug.Printf(" --> push input %q (depth %d)", in.name, ctx.inputs.Len())
	}
	TraceEvent(ctx, "push input", slog.String("name", in.name), slog.Int("depth", ctx.inputs.Len()))
	return nil
}

// popInput drops the current frame. An external frame may not be
// popped while a construct it opened is still open.
func (ctx *parserCtx) popInput() error {
	in := ctx.input
	if in == nil {
		return nil
	}
	if in.external && in.open > 0 {
		return ctx.error(ErrEntityBoundary)
	}
	ctx.dropInput()

	if debug.Enabled {
		debug.Printf(" <-- pop input %q (depth %d)", in.name, ctx.inputs.Len())
	}
	TraceEvent(ctx, "pop input", slog.String("name", in.name), slog.Int("depth", ctx.inputs.Len()))
	return nil
}

func (ctx *parserCtx) dropInput() {
	ctx.inputs.Pop()
	ctx.input, _ = ctx.inputs.Peek()
}

// beginConstruct records that a declaration, model group or section
// was opened in f.
func (ctx *parserCtx) beginConstruct(f *inputEntity) {
	f.open++
}

// endConstruct closes a construct opened in f. The construct may not
// close inside an external entity that was entered after it opened.
func (ctx *parserCtx) endConstruct(f *inputEntity) error {
	f.open--
	if f.level >= ctx.inputs.Len() || ctx.inputs.At(f.level) != f {
		return nil
	}
	for i := f.level + 1; i < ctx.inputs.Len(); i++ {
		if ctx.inputs.At(i).external {
			return ctx.error(ErrEntityBoundary)
		}
	}
	return nil
}

/*
 * parse PEReference declarations
 *
 * [69] PEReference ::= '%' Name ';'
 *
 * The replacement text of the entity is pushed as a new frame.
 * Undeclared entities are reported through Error and skipped.
 */
func (ctx *parserCtx) parsePEReference() error {
	ctx.curAdvance(1) // '%'
	name, err := ctx.parseName()
	if err != nil {
		return err
	}
	if !ctx.curConsumePrefix(";") {
		return ctx.error(ErrSemicolonRequired)
	}

	ent, ok := ctx.decls.lookupParameterEntity(name)
	if !ok {
		return ctx.recoverable(&UndeclaredEntityError{Name: name, Parameter: true})
	}
	return ctx.pushEntity(ent)
}

// pushEntity expands ent. External entities are fetched through the
// resolver; when WithSkipUnresolvable is set, resolution and encoding
// failures are reported through Error and the reference is skipped.
func (ctx *parserCtx) pushEntity(ent *Entity) error {
	if !ent.IsExternal() {
		return ctx.pushInput(newInternalInput(ent))
	}

	err := ctx.pushExternal(ent)
	if err == nil {
		return nil
	}
	if ctx.flags.IsSet(flagSkipUnresolvable) && (errors.Is(err, ErrUnresolvedEntity) || errors.Is(err, ErrEncoding)) {
		return ctx.recoverable(err)
	}
	return err
}

func (ctx *parserCtx) pushExternal(ent *Entity) error {
	key := ent.Key()
	if ctx.inputs.Any(func(in *inputEntity) bool { return in.Key() == key }) {
		return ctx.error(&recursionError{name: key})
	}
	if ctx.resolver == nil {
		return ctx.error(&unresolvedError{name: key, systemID: ent.SystemID, cause: ErrNoResolver})
	}

	rc, systemID, err := ctx.resolver.Resolve(ctx, ent.PublicID, ent.SystemID, ent.BaseURI)
	if err != nil {
		return ctx.error(&unresolvedError{name: key, systemID: ent.SystemID, cause: err})
	}
	data, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return ctx.error(&unresolvedError{name: key, systemID: ent.SystemID, cause: errors.Wrapf(err, "failed to read %q", systemID)})
	}

	in, err := newExternalInput(data, ent.PublicID, systemID)
	if err != nil {
		return ctx.error(err)
	}
	in.entity = ent
	in.name = key
	if err := ctx.pushInput(in); err != nil {
		return err
	}
	if err := ctx.parseTextDecl(); err != nil {
		ctx.dropInput()
		return err
	}
	return nil
}

// switchEncoding settles the encoding of an external frame once its
// text declaration, if any, has been read. The declared encoding must
// agree with what was detected from the first bytes.
func (ctx *parserCtx) switchEncoding(in *inputEntity, declared string) error {
	in.declared = declared
	raw := in.raw
	in.raw = nil

	switch {
	case in.detected == encoding.UTF16LE || in.detected == encoding.UTF16BE:
		if declared != "" && !encoding.IsUTF16(declared) {
			return ctx.error(&encodingError{err: ErrEncodingMismatch, name: declared})
		}
	case in.bom > 0:
		if declared != "" && !encoding.IsUTF8(declared) {
			return ctx.error(&encodingError{err: ErrEncodingMismatch, name: declared})
		}
		if !utf8.Valid(raw[in.bom:]) {
			return ctx.error(ErrInvalidUTF8)
		}
	case declared == "" || encoding.IsUTF8(declared):
		if !utf8.Valid(raw) {
			return ctx.error(ErrInvalidUTF8)
		}
	case encoding.IsUTF16(declared):
		return ctx.error(&encodingError{err: ErrEncodingMismatch, name: declared})
	default:
		// The text declaration is ASCII in every encoding we get here,
		// so the cursor position carries over to the re-decoded text.
		b, err := encoding.Decode(declared, raw)
		if err != nil {
			return ctx.error(&encodingError{err: ErrUnsupportedEncoding, name: declared, cause: err})
		}
		in.buf = normalizeNewlines([]rune(string(b)))
	}
	return nil
}

type unresolvedError struct {
	name     string
	systemID string
	cause    error
}

func (e *unresolvedError) Error() string {
	return "cannot resolve entity " + e.name + " (" + e.systemID + "): " + e.cause.Error()
}

func (e *unresolvedError) Unwrap() []error {
	return []error{ErrUnresolvedEntity, e.cause}
}
