package dtd

import (
	"github.com/lestrrat-go/dtd/sax"
	"github.com/lestrrat-go/option"
)

type Option = option.Interface

type identHandler struct{}
type identResolver struct{}
type identMaxEntityDepth struct{}
type identMaxEntityExpansions struct{}
type identMaxExpandedSize struct{}
type identDuplicateWarnings struct{}
type identSkipUnresolvable struct{}
type identCDATASections struct{}
type identReportWhitespace struct{}

type ParseOption interface {
	Option
	parseOption()
}

type parseOption struct{ Option }

func (*parseOption) parseOption() {}

// WithHandler sets the handler that receives parse events. Without
// one, events are discarded and fatal errors are only returned.
func WithHandler(v sax.Handler) ParseOption {
	return &parseOption{option.New(identHandler{}, v)}
}

// WithResolver sets the resolver used to fetch external parameter
// entities.
func WithResolver(v Resolver) ParseOption {
	return &parseOption{option.New(identResolver{}, v)}
}

// WithMaxEntityDepth bounds the number of simultaneously open input
// entities, the document entity included.
func WithMaxEntityDepth(v int) ParseOption {
	return &parseOption{option.New(identMaxEntityDepth{}, v)}
}

// WithMaxEntityExpansions bounds the total number of entity expansions
// performed during one parse.
func WithMaxEntityExpansions(v int) ParseOption {
	return &parseOption{option.New(identMaxEntityExpansions{}, v)}
}

// WithMaxExpandedSize bounds the total number of bytes of internal
// entity replacement text that one parse may substitute, whether into
// literals or into the declaration stream.
func WithMaxExpandedSize(v int) ParseOption {
	return &parseOption{option.New(identMaxExpandedSize{}, v)}
}

// WithDuplicateWarnings controls whether redeclarations are reported
// through the Warning callback. Enabled by default.
func WithDuplicateWarnings(v bool) ParseOption {
	return &parseOption{option.New(identDuplicateWarnings{}, v)}
}

// WithSkipUnresolvable makes a parameter entity that cannot be
// resolved or decoded a recoverable error. The reference is reported
// through the Error callback and skipped.
func WithSkipUnresolvable(v bool) ParseOption {
	return &parseOption{option.New(identSkipUnresolvable{}, v)}
}

// WithCDATASections allows <![CDATA[...]]> sections between
// declarations. Their content is reported through Characters.
func WithCDATASections(v bool) ParseOption {
	return &parseOption{option.New(identCDATASections{}, v)}
}

// WithReportWhitespace reports whitespace between declarations in the
// document entity through IgnorableWhitespace.
func WithReportWhitespace(v bool) ParseOption {
	return &parseOption{option.New(identReportWhitespace{}, v)}
}
