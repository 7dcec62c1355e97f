package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lestrrat-go/dtd/sax"
)

func nullable(s string) string {
	if s == "" {
		return "NULL"
	}
	return s
}

// newEventPrinter returns a handler that prints one line per event.
func newEventPrinter(out io.Writer) *sax.SAX {
	s := sax.New()
	s.StartDTDHandler = func(_ context.Context, in sax.InputEntity) error {
		fmt.Fprintf(out, "SAX.StartDTD(%s, %s)\n", in.Name(), in.Encoding())
		return nil
	}
	s.EndDTDHandler = func(_ context.Context) error {
		fmt.Fprintf(out, "SAX.EndDTD()\n")
		return nil
	}
	s.CommentHandler = func(_ context.Context, data []byte) error {
		fmt.Fprintf(out, "SAX.Comment(%s)\n", data)
		return nil
	}
	s.ProcessingInstructionHandler = func(_ context.Context, target, data string) error {
		fmt.Fprintf(out, "SAX.ProcessingInstruction(%s, %s)\n", target, data)
		return nil
	}
	s.CharactersHandler = func(_ context.Context, data []byte) error {
		fmt.Fprintf(out, "SAX.Characters(%q, %d)\n", data, len(data))
		return nil
	}
	s.IgnorableWhitespaceHandler = func(_ context.Context, data []byte) error {
		fmt.Fprintf(out, "SAX.IgnorableWhitespace(%q, %d)\n", data, len(data))
		return nil
	}
	s.StartCDATAHandler = func(_ context.Context) error {
		fmt.Fprintf(out, "SAX.StartCDATA()\n")
		return nil
	}
	s.EndCDATAHandler = func(_ context.Context) error {
		fmt.Fprintf(out, "SAX.EndCDATA()\n")
		return nil
	}
	s.NotationDeclHandler = func(_ context.Context, name, publicID, systemID string) error {
		fmt.Fprintf(out, "SAX.NotationDecl(%s, %s, %s)\n", name, nullable(publicID), nullable(systemID))
		return nil
	}
	s.UnparsedEntityDeclHandler = func(_ context.Context, name, publicID, systemID, notation string) error {
		fmt.Fprintf(out, "SAX.UnparsedEntityDecl(%s, %s, %s, %s)\n", name, nullable(publicID), nullable(systemID), notation)
		return nil
	}
	s.InternalGeneralEntityDeclHandler = func(_ context.Context, name, value string) error {
		fmt.Fprintf(out, "SAX.InternalGeneralEntityDecl(%s, %s)\n", name, value)
		return nil
	}
	s.ExternalGeneralEntityDeclHandler = func(_ context.Context, name, publicID, systemID string) error {
		fmt.Fprintf(out, "SAX.ExternalGeneralEntityDecl(%s, %s, %s)\n", name, nullable(publicID), nullable(systemID))
		return nil
	}
	s.InternalParameterEntityDeclHandler = func(_ context.Context, name, value string) error {
		fmt.Fprintf(out, "SAX.InternalParameterEntityDecl(%s, %s)\n", name, value)
		return nil
	}
	s.ExternalParameterEntityDeclHandler = func(_ context.Context, name, publicID, systemID string) error {
		fmt.Fprintf(out, "SAX.ExternalParameterEntityDecl(%s, %s, %s)\n", name, nullable(publicID), nullable(systemID))
		return nil
	}
	s.AttributeDeclHandler = func(_ context.Context, elemName, attrName string, typ sax.AttributeType, enum sax.Enumeration, use sax.AttributeUse, defaultValue string) error {
		enumStr := "NULL"
		if len(enum) > 0 {
			enumStr = "(" + strings.Join(enum, "|") + ")"
		}
		fmt.Fprintf(out, "SAX.AttributeDecl(%s, %s, %s, %s, %s, %s)\n", elemName, attrName, typ, enumStr, use, nullable(defaultValue))
		return nil
	}
	s.StartContentModelHandler = func(_ context.Context, name string, typ sax.ContentModelType) error {
		fmt.Fprintf(out, "SAX.StartContentModel(%s, %s)\n", name, typ)
		return nil
	}
	s.EndContentModelHandler = func(_ context.Context, name string, typ sax.ContentModelType) error {
		fmt.Fprintf(out, "SAX.EndContentModel(%s, %s)\n", name, typ)
		return nil
	}
	s.MixedElementHandler = func(_ context.Context, name string) error {
		fmt.Fprintf(out, "SAX.MixedElement(%s)\n", name)
		return nil
	}
	s.ChildElementHandler = func(_ context.Context, name string, occur sax.Occurrence) error {
		fmt.Fprintf(out, "SAX.ChildElement(%s%s)\n", name, occur)
		return nil
	}
	s.StartModelGroupHandler = func(_ context.Context) error {
		fmt.Fprintf(out, "SAX.StartModelGroup()\n")
		return nil
	}
	s.EndModelGroupHandler = func(_ context.Context, occur sax.Occurrence) error {
		fmt.Fprintf(out, "SAX.EndModelGroup(%s)\n", occur)
		return nil
	}
	s.ConnectorHandler = func(_ context.Context, typ sax.ConnectorType) error {
		fmt.Fprintf(out, "SAX.Connector(%s)\n", typ)
		return nil
	}
	return s
}
