package dtd

import (
	"cmp"
	"context"
	"io"

	"github.com/lestrrat-go/dtd/sax"
	"github.com/pkg/errors"
)

// Version is reported by the command line tools.
const Version = "v0.1.0"

const (
	DefaultMaxEntityDepth      = 256
	DefaultMaxEntityExpansions = 100000
	DefaultMaxExpandedSize     = 10_000_000
)

// Parser parses DTDs and reports what it finds to a sax.Handler. A
// Parser may be reused, and used from several goroutines as long as
// its handler and resolver allow it; each call to Parse has its own
// state.
type Parser struct {
	handler         sax.Handler
	resolver        Resolver
	flags           parseFlag
	maxDepth        int
	maxExpansions   int
	maxExpandedSize int
}

func NewParser(options ...ParseOption) *Parser {
	p := &Parser{}
	p.flags.Set(flagDuplicateWarnings)

	for _, opt := range options {
		switch opt.Ident() {
		case identHandler{}:
			p.handler = opt.Value().(sax.Handler)
		case identResolver{}:
			p.resolver = opt.Value().(Resolver)
		case identMaxEntityDepth{}:
			p.maxDepth = opt.Value().(int)
		case identMaxEntityExpansions{}:
			p.maxExpansions = opt.Value().(int)
		case identMaxExpandedSize{}:
			p.maxExpandedSize = opt.Value().(int)
		case identDuplicateWarnings{}:
			p.flags.Toggle(flagDuplicateWarnings, opt.Value().(bool))
		case identSkipUnresolvable{}:
			p.flags.Toggle(flagSkipUnresolvable, opt.Value().(bool))
		case identCDATASections{}:
			p.flags.Toggle(flagCDATASections, opt.Value().(bool))
		case identReportWhitespace{}:
			p.flags.Toggle(flagReportWhitespace, opt.Value().(bool))
		}
	}

	p.maxDepth = cmp.Or(max(p.maxDepth, 0), DefaultMaxEntityDepth)
	p.maxExpansions = cmp.Or(max(p.maxExpansions, 0), DefaultMaxEntityExpansions)
	p.maxExpandedSize = cmp.Or(max(p.maxExpandedSize, 0), DefaultMaxExpandedSize)
	return p
}

// Parse parses data as a DTD. systemID names the document entity; it
// is the base against which relative system identifiers are resolved.
//
// The returned error is the one delivered to FatalError, or a
// ListenerError when the handler aborted the parse. Once the first
// bytes have been decoded the events are bracketed by StartDTD and
// EndDTD, even when the text declaration is rejected.
func (p *Parser) Parse(ctx context.Context, data []byte, systemID string) error {
	pctx := &parserCtx{}
	pctx.init(p, ctx)
	defer pctx.release()

	return pctx.parse(data, systemID)
}

// ParseReader reads r to the end and parses the result.
func (p *Parser) ParseReader(ctx context.Context, r io.Reader, systemID string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.Wrapf(err, "failed to read %q", systemID)
	}
	return p.Parse(ctx, data, systemID)
}

func Parse(ctx context.Context, data []byte, systemID string, options ...ParseOption) error {
	return NewParser(options...).Parse(ctx, data, systemID)
}
