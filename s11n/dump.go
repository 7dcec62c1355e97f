// Package s11n writes parsed declarations back out as DTD text.
package s11n

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/lestrrat-go/dtd"
	"github.com/lestrrat-go/dtd/sax"
	"github.com/pkg/errors"
)

// Dumper is a sax.Handler that serializes every declaration it
// receives, one per line. Parameter entity references and conditional
// sections are not reproduced: the output is the DTD as the parser saw
// it after expansion. Events that carry no declaration are handed to
// the embedded sax.SAX.
type Dumper struct {
	*sax.SAX

	out   io.Writer
	err   error
	buf   bytes.Buffer
	model bytes.Buffer
	cdata bool
}

func NewDumper(out io.Writer) *Dumper {
	return &Dumper{SAX: sax.New(), out: out}
}

// Err returns the first error seen while writing.
func (d *Dumper) Err() error {
	return d.err
}

// flush writes the declaration accumulated in d.buf followed by a
// newline.
func (d *Dumper) flush() error {
	if d.err != nil {
		return d.err
	}
	d.buf.WriteByte('\n')
	if _, err := d.buf.WriteTo(d.out); err != nil {
		d.err = errors.Wrap(err, "failed to write declaration")
	}
	d.buf.Reset()
	return d.err
}

func (d *Dumper) StartContentModel(_ context.Context, _ string, typ sax.ContentModelType) error {
	d.model.Reset()
	switch typ {
	case sax.ContentModelEmpty:
		d.model.WriteString("EMPTY")
	case sax.ContentModelAny:
		d.model.WriteString("ANY")
	case sax.ContentModelMixed:
		d.model.WriteString("(#PCDATA")
	}
	return nil
}

func (d *Dumper) MixedElement(_ context.Context, name string) error {
	d.model.WriteByte('|')
	d.model.WriteString(name)
	return nil
}

func (d *Dumper) StartModelGroup(context.Context) error {
	d.model.WriteByte('(')
	return nil
}

func (d *Dumper) ChildElement(_ context.Context, name string, occur sax.Occurrence) error {
	d.model.WriteString(name)
	d.model.WriteString(occur.String())
	return nil
}

func (d *Dumper) Connector(_ context.Context, typ sax.ConnectorType) error {
	d.model.WriteString(typ.String())
	return nil
}

func (d *Dumper) EndModelGroup(_ context.Context, occur sax.Occurrence) error {
	d.model.WriteByte(')')
	d.model.WriteString(occur.String())
	return nil
}

func (d *Dumper) EndContentModel(_ context.Context, name string, typ sax.ContentModelType) error {
	if typ == sax.ContentModelMixed {
		// a mixed model that names elements must repeat
		if bytes.IndexByte(d.model.Bytes(), '|') > -1 {
			d.model.WriteString(")*")
		} else {
			d.model.WriteByte(')')
		}
	}

	d.buf.WriteString("<!ELEMENT ")
	d.buf.WriteString(name)
	d.buf.WriteByte(' ')
	_, _ = d.model.WriteTo(&d.buf)
	d.buf.WriteByte('>')
	return d.flush()
}

func (d *Dumper) AttributeDecl(_ context.Context, elemName, attrName string, typ sax.AttributeType, enum sax.Enumeration, use sax.AttributeUse, defaultValue string) error {
	d.buf.WriteString("<!ATTLIST ")
	d.buf.WriteString(elemName)
	d.buf.WriteByte(' ')
	d.buf.WriteString(attrName)
	d.buf.WriteByte(' ')

	switch typ {
	case sax.AttrNotation:
		d.buf.WriteString("NOTATION ")
		fallthrough
	case sax.AttrEnumeration:
		d.buf.WriteByte('(')
		d.buf.WriteString(strings.Join(enum, "|"))
		d.buf.WriteByte(')')
	default:
		d.buf.WriteString(typ.String())
	}
	d.buf.WriteByte(' ')

	switch use {
	case sax.UseRequired:
		d.buf.WriteString("#REQUIRED")
	case sax.UseImplied:
		d.buf.WriteString("#IMPLIED")
	case sax.UseFixed:
		d.buf.WriteString("#FIXED ")
		fallthrough
	default:
		d.buf.WriteByte('"')
		_ = EscapeAttrValue(&d.buf, []byte(defaultValue))
		d.buf.WriteByte('"')
	}
	d.buf.WriteByte('>')
	return d.flush()
}

func (d *Dumper) entityPrologue(name string, parameter bool) {
	d.buf.WriteString("<!ENTITY ")
	if parameter {
		d.buf.WriteString("% ")
	}
	d.buf.WriteString(name)
	d.buf.WriteByte(' ')
}

func (d *Dumper) internalEntity(name, value string, parameter bool) error {
	d.entityPrologue(name, parameter)
	d.buf.WriteByte('"')
	_ = EscapeEntityValue(&d.buf, []byte(value))
	d.buf.WriteString(`">`)
	return d.flush()
}

func (d *Dumper) externalEntity(name, publicID, systemID, notation string, parameter bool) error {
	d.entityPrologue(name, parameter)
	d.writeExternalID(publicID, systemID)
	if notation != "" {
		d.buf.WriteString(" NDATA ")
		d.buf.WriteString(notation)
	}
	d.buf.WriteByte('>')
	return d.flush()
}

// writeExternalID writes an ExternalID, or a PublicID when systemID is
// empty and publicID is not.
func (d *Dumper) writeExternalID(publicID, systemID string) {
	if publicID != "" {
		d.buf.WriteString("PUBLIC ")
		_ = DumpQuotedString(&d.buf, publicID)
		if systemID == "" {
			return
		}
		d.buf.WriteByte(' ')
	} else {
		d.buf.WriteString("SYSTEM ")
	}
	_ = DumpQuotedString(&d.buf, systemID)
}

func (d *Dumper) InternalGeneralEntityDecl(_ context.Context, name, value string) error {
	return d.internalEntity(name, value, false)
}

func (d *Dumper) InternalParameterEntityDecl(_ context.Context, name, value string) error {
	return d.internalEntity(name, value, true)
}

func (d *Dumper) ExternalGeneralEntityDecl(_ context.Context, name, publicID, systemID string) error {
	return d.externalEntity(name, publicID, systemID, "", false)
}

func (d *Dumper) ExternalParameterEntityDecl(_ context.Context, name, publicID, systemID string) error {
	return d.externalEntity(name, publicID, systemID, "", true)
}

func (d *Dumper) UnparsedEntityDecl(_ context.Context, name, publicID, systemID, notationName string) error {
	return d.externalEntity(name, publicID, systemID, notationName, false)
}

func (d *Dumper) NotationDecl(_ context.Context, name, publicID, systemID string) error {
	d.buf.WriteString("<!NOTATION ")
	d.buf.WriteString(name)
	d.buf.WriteByte(' ')
	d.writeExternalID(publicID, systemID)
	d.buf.WriteByte('>')
	return d.flush()
}

func (d *Dumper) Comment(_ context.Context, value []byte) error {
	d.buf.WriteString("<!--")
	d.buf.Write(value)
	d.buf.WriteString("-->")
	return d.flush()
}

func (d *Dumper) ProcessingInstruction(_ context.Context, target, data string) error {
	d.buf.WriteString("<?")
	d.buf.WriteString(target)
	if data != "" {
		d.buf.WriteByte(' ')
		d.buf.WriteString(data)
	}
	d.buf.WriteString("?>")
	return d.flush()
}

func (d *Dumper) StartCDATA(context.Context) error {
	d.cdata = true
	d.buf.WriteString("<![CDATA[")
	return nil
}

func (d *Dumper) Characters(_ context.Context, ch []byte) error {
	if d.cdata {
		d.buf.Write(ch)
	}
	return nil
}

func (d *Dumper) EndCDATA(context.Context) error {
	d.cdata = false
	d.buf.WriteString("]]>")
	return d.flush()
}

// Dump parses data and writes the declarations it contains to out.
// Any handler set through options is replaced.
func Dump(ctx context.Context, out io.Writer, data []byte, systemID string, options ...dtd.ParseOption) error {
	d := NewDumper(out)
	options = append(options, dtd.WithHandler(d))
	if err := dtd.Parse(ctx, data, systemID, options...); err != nil {
		return err
	}
	return d.Err()
}
