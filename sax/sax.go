// Package sax defines the event contract between the DTD parser and its
// consumers, along with SAX, a Handler assembled from plain functions.
package sax

import "context"

type SetDocumentLocatorFunc func(ctx context.Context, loc DocumentLocator) error
type ProcessingInstructionFunc func(ctx context.Context, target string, data string) error
type CharactersFunc func(ctx context.Context, ch []byte) error
type IgnorableWhitespaceFunc func(ctx context.Context, ch []byte) error
type StartDTDFunc func(ctx context.Context, in InputEntity) error
type EndDTDFunc func(ctx context.Context) error
type CommentFunc func(ctx context.Context, value []byte) error
type StartCDATAFunc func(ctx context.Context) error
type EndCDATAFunc func(ctx context.Context) error
type NotationDeclFunc func(ctx context.Context, name string, publicID string, systemID string) error
type UnparsedEntityDeclFunc func(ctx context.Context, name string, publicID string, systemID string, notationName string) error
type InternalEntityDeclFunc func(ctx context.Context, name string, value string) error
type ExternalEntityDeclFunc func(ctx context.Context, name string, publicID string, systemID string) error
type AttributeDeclFunc func(ctx context.Context, elemName string, attrName string, typ AttributeType, enum Enumeration, use AttributeUse, defaultValue string) error
type ContentModelFunc func(ctx context.Context, elemName string, typ ContentModelType) error
type MixedElementFunc func(ctx context.Context, elemName string) error
type ChildElementFunc func(ctx context.Context, elemName string, occur Occurrence) error
type StartModelGroupFunc func(ctx context.Context) error
type EndModelGroupFunc func(ctx context.Context, occur Occurrence) error
type ConnectorFunc func(ctx context.Context, typ ConnectorType) error
type ErrorFunc func(ctx context.Context, err error) error

// SAX is the callback based Handler. Callbacks that are left nil are
// no-ops, except FatalErrorHandler which, when nil, hands the error
// back unchanged.
type SAX struct {
	SetDocumentLocatorHandler          SetDocumentLocatorFunc
	ProcessingInstructionHandler       ProcessingInstructionFunc
	CharactersHandler                  CharactersFunc
	IgnorableWhitespaceHandler         IgnorableWhitespaceFunc
	StartDTDHandler                    StartDTDFunc
	EndDTDHandler                      EndDTDFunc
	CommentHandler                     CommentFunc
	StartCDATAHandler                  StartCDATAFunc
	EndCDATAHandler                    EndCDATAFunc
	NotationDeclHandler                NotationDeclFunc
	UnparsedEntityDeclHandler          UnparsedEntityDeclFunc
	InternalGeneralEntityDeclHandler   InternalEntityDeclFunc
	ExternalGeneralEntityDeclHandler   ExternalEntityDeclFunc
	InternalParameterEntityDeclHandler InternalEntityDeclFunc
	ExternalParameterEntityDeclHandler ExternalEntityDeclFunc
	AttributeDeclHandler               AttributeDeclFunc
	StartContentModelHandler           ContentModelFunc
	EndContentModelHandler             ContentModelFunc
	MixedElementHandler                MixedElementFunc
	ChildElementHandler                ChildElementFunc
	StartModelGroupHandler             StartModelGroupFunc
	EndModelGroupHandler               EndModelGroupFunc
	ConnectorHandler                   ConnectorFunc
	FatalErrorHandler                  ErrorFunc
	ErrorHandler                       ErrorFunc
	WarningHandler                     ErrorFunc
}

// New creates a new instance of SAX. All callbacks are uninitialized.
func New() *SAX {
	return &SAX{}
}

func (s *SAX) SetDocumentLocator(ctx context.Context, loc DocumentLocator) error {
	if h := s.SetDocumentLocatorHandler; h != nil {
		return h(ctx, loc)
	}
	return nil
}

func (s *SAX) ProcessingInstruction(ctx context.Context, target string, data string) error {
	if h := s.ProcessingInstructionHandler; h != nil {
		return h(ctx, target, data)
	}
	return nil
}

func (s *SAX) Characters(ctx context.Context, ch []byte) error {
	if h := s.CharactersHandler; h != nil {
		return h(ctx, ch)
	}
	return nil
}

func (s *SAX) IgnorableWhitespace(ctx context.Context, ch []byte) error {
	if h := s.IgnorableWhitespaceHandler; h != nil {
		return h(ctx, ch)
	}
	return nil
}

func (s *SAX) StartDTD(ctx context.Context, in InputEntity) error {
	if h := s.StartDTDHandler; h != nil {
		return h(ctx, in)
	}
	return nil
}

func (s *SAX) EndDTD(ctx context.Context) error {
	if h := s.EndDTDHandler; h != nil {
		return h(ctx)
	}
	return nil
}

func (s *SAX) Comment(ctx context.Context, value []byte) error {
	if h := s.CommentHandler; h != nil {
		return h(ctx, value)
	}
	return nil
}

func (s *SAX) StartCDATA(ctx context.Context) error {
	if h := s.StartCDATAHandler; h != nil {
		return h(ctx)
	}
	return nil
}

func (s *SAX) EndCDATA(ctx context.Context) error {
	if h := s.EndCDATAHandler; h != nil {
		return h(ctx)
	}
	return nil
}

func (s *SAX) NotationDecl(ctx context.Context, name string, publicID string, systemID string) error {
	if h := s.NotationDeclHandler; h != nil {
		return h(ctx, name, publicID, systemID)
	}
	return nil
}

func (s *SAX) UnparsedEntityDecl(ctx context.Context, name string, publicID string, systemID string, notationName string) error {
	if h := s.UnparsedEntityDeclHandler; h != nil {
		return h(ctx, name, publicID, systemID, notationName)
	}
	return nil
}

func (s *SAX) InternalGeneralEntityDecl(ctx context.Context, name string, value string) error {
	if h := s.InternalGeneralEntityDeclHandler; h != nil {
		return h(ctx, name, value)
	}
	return nil
}

func (s *SAX) ExternalGeneralEntityDecl(ctx context.Context, name string, publicID string, systemID string) error {
	if h := s.ExternalGeneralEntityDeclHandler; h != nil {
		return h(ctx, name, publicID, systemID)
	}
	return nil
}

func (s *SAX) InternalParameterEntityDecl(ctx context.Context, name string, value string) error {
	if h := s.InternalParameterEntityDeclHandler; h != nil {
		return h(ctx, name, value)
	}
	return nil
}

func (s *SAX) ExternalParameterEntityDecl(ctx context.Context, name string, publicID string, systemID string) error {
	if h := s.ExternalParameterEntityDeclHandler; h != nil {
		return h(ctx, name, publicID, systemID)
	}
	return nil
}

func (s *SAX) AttributeDecl(ctx context.Context, elemName string, attrName string, typ AttributeType, enum Enumeration, use AttributeUse, defaultValue string) error {
	if h := s.AttributeDeclHandler; h != nil {
		return h(ctx, elemName, attrName, typ, enum, use, defaultValue)
	}
	return nil
}

func (s *SAX) StartContentModel(ctx context.Context, elemName string, typ ContentModelType) error {
	if h := s.StartContentModelHandler; h != nil {
		return h(ctx, elemName, typ)
	}
	return nil
}

func (s *SAX) EndContentModel(ctx context.Context, elemName string, typ ContentModelType) error {
	if h := s.EndContentModelHandler; h != nil {
		return h(ctx, elemName, typ)
	}
	return nil
}

func (s *SAX) MixedElement(ctx context.Context, elemName string) error {
	if h := s.MixedElementHandler; h != nil {
		return h(ctx, elemName)
	}
	return nil
}

func (s *SAX) ChildElement(ctx context.Context, elemName string, occur Occurrence) error {
	if h := s.ChildElementHandler; h != nil {
		return h(ctx, elemName, occur)
	}
	return nil
}

func (s *SAX) StartModelGroup(ctx context.Context) error {
	if h := s.StartModelGroupHandler; h != nil {
		return h(ctx)
	}
	return nil
}

func (s *SAX) EndModelGroup(ctx context.Context, occur Occurrence) error {
	if h := s.EndModelGroupHandler; h != nil {
		return h(ctx, occur)
	}
	return nil
}

func (s *SAX) Connector(ctx context.Context, typ ConnectorType) error {
	if h := s.ConnectorHandler; h != nil {
		return h(ctx, typ)
	}
	return nil
}

func (s *SAX) FatalError(ctx context.Context, err error) error {
	if h := s.FatalErrorHandler; h != nil {
		return h(ctx, err)
	}
	return err
}

func (s *SAX) Error(ctx context.Context, err error) error {
	if h := s.ErrorHandler; h != nil {
		return h(ctx, err)
	}
	return nil
}

func (s *SAX) Warning(ctx context.Context, err error) error {
	if h := s.WarningHandler; h != nil {
		return h(ctx, err)
	}
	return nil
}
