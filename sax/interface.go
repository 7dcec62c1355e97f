package sax

import "context"

// ContentModelType describes the kind of content declared for an
// element. The numeric values are part of the event contract.
type ContentModelType int16

const (
	ContentModelEmpty ContentModelType = iota
	ContentModelAny
	ContentModelMixed
	ContentModelChildren
)

// ConnectorType is the connector used inside a model group.
type ConnectorType int16

const (
	Choice ConnectorType = iota
	Sequence
)

// Occurrence is the occurrence indicator attached to a child element
// or a model group.
type Occurrence int16

const (
	OccurrenceZeroOrMore Occurrence = iota
	OccurrenceOneOrMore
	OccurrenceZeroOrOne
	OccurrenceOnce
)

// AttributeUse classifies the default clause of an attribute
// declaration.
type AttributeUse int16

const (
	UseNormal AttributeUse = iota
	UseImplied
	UseFixed
	UseRequired
)

// AttributeType is the declared type of an attribute.
type AttributeType int

const (
	AttrInvalid AttributeType = iota
	AttrCDATA
	AttrID
	AttrIDRef
	AttrIDRefs
	AttrEntity
	AttrEntities
	AttrNMToken
	AttrNMTokens
	AttrEnumeration
	AttrNotation
)

// Enumeration is the ordered list of tokens permitted by an
// enumerated or NOTATION attribute type.
type Enumeration []string

// DocumentLocator reports where in the input the parser currently is.
type DocumentLocator interface {
	PublicID() string
	SystemID() string
	LineNumber() int
	ColumnNumber() int
}

// InputEntity describes an input source handed to the parser.
type InputEntity interface {
	DocumentLocator
	Name() string
	Encoding() string
	IsExternal() bool
}

// ContentHandler receives the locator and non-declaration text.
type ContentHandler interface {
	SetDocumentLocator(ctx context.Context, loc DocumentLocator) error
	ProcessingInstruction(ctx context.Context, target string, data string) error
	Characters(ctx context.Context, ch []byte) error
	IgnorableWhitespace(ctx context.Context, ch []byte) error
}

// LexicalHandler receives the DTD bracket, comments and CDATA markers.
type LexicalHandler interface {
	StartDTD(ctx context.Context, in InputEntity) error
	EndDTD(ctx context.Context) error
	Comment(ctx context.Context, value []byte) error
	StartCDATA(ctx context.Context) error
	EndCDATA(ctx context.Context) error
}

// DTDHandler receives notations and unparsed entities.
type DTDHandler interface {
	NotationDecl(ctx context.Context, name string, publicID string, systemID string) error
	UnparsedEntityDecl(ctx context.Context, name string, publicID string, systemID string, notationName string) error
}

// DeclHandler receives entity and attribute declarations.
type DeclHandler interface {
	InternalGeneralEntityDecl(ctx context.Context, name string, value string) error
	ExternalGeneralEntityDecl(ctx context.Context, name string, publicID string, systemID string) error
	InternalParameterEntityDecl(ctx context.Context, name string, value string) error
	ExternalParameterEntityDecl(ctx context.Context, name string, publicID string, systemID string) error
	AttributeDecl(ctx context.Context, elemName string, attrName string, typ AttributeType, enum Enumeration, use AttributeUse, defaultValue string) error
}

// ContentModelHandler receives element content models.
//
// For children content the call sequence is
//
//	START       := StartContentModel MODEL_GROUP EndContentModel
//	MODEL_GROUP := StartModelGroup TOKEN (Connector TOKEN)* EndModelGroup
//	TOKEN       := ChildElement | MODEL_GROUP
//
// Connectors within one model group are always the same.
type ContentModelHandler interface {
	StartContentModel(ctx context.Context, elemName string, typ ContentModelType) error
	EndContentModel(ctx context.Context, elemName string, typ ContentModelType) error
	MixedElement(ctx context.Context, elemName string) error
	ChildElement(ctx context.Context, elemName string, occur Occurrence) error
	StartModelGroup(ctx context.Context) error
	EndModelGroup(ctx context.Context, occur Occurrence) error
	Connector(ctx context.Context, typ ConnectorType) error
}

// ErrorHandler is the diagnostic channel. A non-nil return value from
// any of these methods aborts the parse.
type ErrorHandler interface {
	FatalError(ctx context.Context, err error) error
	Error(ctx context.Context, err error) error
	Warning(ctx context.Context, err error) error
}

// Handler is everything the DTD parser reports to.
type Handler interface {
	ContentHandler
	LexicalHandler
	DTDHandler
	DeclHandler
	ContentModelHandler
	ErrorHandler
}
