package dtd

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Every error produced by the parser matches exactly
// one of these through errors.Is, apart from errors returned by the
// handler, which are wrapped in ListenerError.
var (
	ErrMalformedMarkup      = errors.New("malformed markup")
	ErrEntityRecursion      = errors.New("recursive entity reference")
	ErrEntityDepthExceeded  = errors.New("entity depth exceeded")
	ErrEncoding             = errors.New("encoding error")
	ErrUnresolvedEntity     = errors.New("unresolved entity")
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
	ErrUndeclaredEntity     = errors.New("undeclared entity")
	ErrInvalidDeclaration   = errors.New("invalid declaration")
)

type detailError struct {
	msg      string
	category error
}

func (e *detailError) Error() string {
	return e.msg
}

func (e *detailError) Unwrap() error {
	return e.category
}

func malformed(msg string) error {
	return &detailError{msg: msg, category: ErrMalformedMarkup}
}

var (
	ErrAttrListNotFinished           = malformed("attribute enumeration must finish with a ')'")
	ErrAttributeDefaultRequired      = malformed("#REQUIRED, #IMPLIED, #FIXED or a quoted default value expected")
	ErrAttributeNameRequired         = malformed("attribute name was required here (ATTLIST)")
	ErrAttributeTypeRequired         = malformed("attribute type expected (ATTLIST)")
	ErrCDATANotFinished              = malformed("invalid CDATA section (premature end)")
	ErrCharRefInvalid                = malformed("invalid character reference")
	ErrCommentNotFinished            = malformed("comment not terminated")
	ErrConditionalSectionKeyword     = malformed("INCLUDE or IGNORE expected after '<!['")
	ErrConditionalSectionNotFinished = malformed("conditional section not terminated")
	ErrConnectorMismatch             = malformed("'|' and ',' may not be mixed within one model group")
	ErrContentModelTooDeep           = malformed("content model nested too deeply")
	ErrElementContentNotFinished     = malformed("element content not finished")
	ErrElementContentNotStarted      = malformed("EMPTY, ANY or '(' expected")
	ErrEntityBoundary                = malformed("construct does not start and stop in the same entity")
	ErrEntityRefInvalid              = malformed("'&' must start an entity or character reference")
	ErrEntityValueRequired           = malformed("entity value or external identifier expected")
	ErrEqualSignRequired             = malformed("'=' was required here")
	ErrExternalEntityInAttr          = malformed("external entity reference in attribute value")
	ErrExternalIDRequired            = malformed("SYSTEM or PUBLIC expected")
	ErrGtRequired                    = malformed("'>' was required here")
	ErrHyphenInComment               = malformed("'--' not allowed in comment")
	ErrInvalidChar                   = malformed("invalid char")
	ErrInvalidEncodingName           = malformed("invalid encoding name")
	ErrInvalidTextDecl               = malformed("invalid text declaration")
	ErrInvalidVersionNum             = malformed("invalid version")
	ErrLiteralNotFinished            = malformed("quoted literal not terminated")
	ErrLiteralRequired               = malformed("quoted literal expected")
	ErrLtInAttValue                  = malformed("'<' not allowed in attribute values")
	ErrMarkupDeclExpected            = malformed("markup declaration expected")
	ErrMisplacedSectionEnd           = malformed("misplaced ']]>'")
	ErrMixedContentNotFinished       = malformed("mixed content with element names must finish with ')*'")
	ErrNDATAInParameterEntity        = malformed("NDATA not allowed in parameter entity declaration")
	ErrNameRequired                  = malformed("name is required")
	ErrNameTooLong                   = malformed("name is too long")
	ErrNmtokenRequired               = malformed("nmtoken is required")
	ErrOpenBracketRequired           = malformed("'[' is required")
	ErrOpenParenRequired             = malformed("'(' is required")
	ErrPINotFinished                 = malformed("processing instruction not terminated")
	ErrPITargetColon                 = malformed("colons are forbidden from PI targets")
	ErrPubidCharInvalid              = malformed("invalid character in public identifier")
	ErrReservedPITarget              = malformed("XML declaration allowed only at the start of an entity")
	ErrSemicolonRequired             = malformed("';' is required")
	ErrSpaceRequired                 = malformed("space required")
	ErrUnparsedEntityInAttr          = malformed("unparsed entity reference in attribute value")

	ErrTooManyExpansions = &detailError{msg: "too many entity expansions", category: ErrEntityDepthExceeded}
	ErrExpansionTooLarge = &detailError{msg: "entity expansion produces too much text", category: ErrEntityDepthExceeded}

	ErrEncodingMismatch    = &detailError{msg: "declared encoding does not match the detected encoding", category: ErrEncoding}
	ErrUnsupportedEncoding = &detailError{msg: "encoding not supported", category: ErrEncoding}
	ErrInvalidUTF8         = &detailError{msg: "invalid UTF-8 sequence", category: ErrEncoding}

	ErrNoResolver = &detailError{msg: "no resolver configured", category: ErrUnresolvedEntity}

	ErrIDAttributeDefault   = &detailError{msg: "ID attribute must be #IMPLIED or #REQUIRED", category: ErrInvalidDeclaration}
	ErrMultipleIDAttributes = &detailError{msg: "element already has an ID attribute", category: ErrInvalidDeclaration}
)

// ParseError carries the position at which an error was detected.
type ParseError struct {
	SystemID   string
	Entity     string
	LineNumber int
	Column     int
	Line       string
	Err        error
}

func (e ParseError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	if e.Entity != "" {
		sb.WriteString(" in entity ")
		sb.WriteString(e.Entity)
	}
	if e.SystemID != "" {
		sb.WriteString(" (")
		sb.WriteString(e.SystemID)
		sb.WriteByte(')')
	}
	fmt.Fprintf(&sb, " at line %d, column %d", e.LineNumber, e.Column)
	if e.Line != "" {
		fmt.Fprintf(&sb, "\n -> '%s' <-- around here", e.Line)
	}
	return sb.String()
}

func (e ParseError) Unwrap() error {
	return e.Err
}

// ListenerError wraps an error returned by a handler callback. The
// parse is aborted as soon as one is seen.
type ListenerError struct {
	Err error
}

func (e ListenerError) Error() string {
	return "handler failed: " + e.Err.Error()
}

func (e ListenerError) Unwrap() error {
	return e.Err
}

// DuplicateDeclarationError is reported as a warning when a name is
// declared a second time. The first declaration stays in effect.
type DuplicateDeclarationError struct {
	Kind string
	Name string
	// Element is set for attribute declarations.
	Element string
}

func (e *DuplicateDeclarationError) Error() string {
	if e.Element != "" {
		return e.Kind + " '" + e.Name + "' of element '" + e.Element + "' already declared"
	}
	return e.Kind + " '" + e.Name + "' already declared"
}

func (e *DuplicateDeclarationError) Unwrap() error {
	return ErrDuplicateDeclaration
}

type UndeclaredEntityError struct {
	Name      string
	Parameter bool
}

func (e *UndeclaredEntityError) Error() string {
	if e.Parameter {
		return "undeclared parameter entity '%" + e.Name + ";'"
	}
	return "undeclared entity '&" + e.Name + ";'"
}

func (e *UndeclaredEntityError) Unwrap() error {
	return ErrUndeclaredEntity
}

// DuplicateTokenError reports a token that appears twice in one
// enumeration or mixed content list.
type DuplicateTokenError struct {
	Name string
}

func (e *DuplicateTokenError) Error() string {
	return "token '" + e.Name + "' duplicated"
}

func (e *DuplicateTokenError) Unwrap() error {
	return ErrInvalidDeclaration
}

type recursionError struct {
	name string
}

func (e *recursionError) Error() string {
	return "entity '" + e.name + "' references itself"
}

func (e *recursionError) Unwrap() error {
	return ErrEntityRecursion
}
