package dtd_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/lestrrat-go/dtd"
	"github.com/lestrrat-go/dtd/sax"
	"github.com/stretchr/testify/require"
)

type result struct {
	events   []string
	warnings []error
	errors   []error
	fatal    []error
	err      error
}

// decls returns the recorded events without the locator and the
// StartDTD/EndDTD bracket.
func (r *result) decls() []string {
	var out []string
	for _, ev := range r.events {
		if ev == "SAX.SetDocumentLocator()" || ev == "SAX.EndDTD()" || strings.HasPrefix(ev, "SAX.StartDTD(") {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (r *result) count(event string) int {
	n := 0
	for _, ev := range r.events {
		if ev == event {
			n++
		}
	}
	return n
}

func record(out *strings.Builder, r *result) *sax.SAX {
	s := newEventEmitter(out)
	s.WarningHandler = func(_ context.Context, err error) error {
		r.warnings = append(r.warnings, err)
		return nil
	}
	s.ErrorHandler = func(_ context.Context, err error) error {
		r.errors = append(r.errors, err)
		return nil
	}
	s.FatalErrorHandler = func(_ context.Context, err error) error {
		r.fatal = append(r.fatal, err)
		return nil
	}
	return s
}

func parseAs(t *testing.T, systemID, input string, options ...dtd.ParseOption) *result {
	t.Helper()

	var out strings.Builder
	var r result
	options = append([]dtd.ParseOption{dtd.WithHandler(record(&out, &r))}, options...)
	r.err = dtd.Parse(context.Background(), []byte(input), systemID, options...)
	if s := strings.TrimSuffix(out.String(), "\n"); s != "" {
		r.events = strings.Split(s, "\n")
	}
	return &r
}

func parse(t *testing.T, input string, options ...dtd.ParseOption) *result {
	t.Helper()
	return parseAs(t, "test.dtd", input, options...)
}

func requireEvents(t *testing.T, want, got []string) {
	t.Helper()
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

// requireFatal checks that the parse stopped with an error matching
// target, that FatalError saw it exactly once, and that the event
// stream was still closed.
func requireFatal(t *testing.T, r *result, target error) {
	t.Helper()
	require.Error(t, r.err, "Parse should fail")
	require.ErrorIs(t, r.err, target)
	require.Len(t, r.fatal, 1, "FatalError should be called once")
	require.ErrorIs(t, r.fatal[0], target)
	require.Equal(t, 1, r.count("SAX.EndDTD()"), "EndDTD should be delivered once")
	require.Equal(t, "SAX.EndDTD()", r.events[len(r.events)-1], "EndDTD should be the last event")
}

func TestEmptyInput(t *testing.T) {
	r := parse(t, "")
	require.NoError(t, r.err)
	requireEvents(t, []string{
		"SAX.SetDocumentLocator()",
		"SAX.StartDTD(test.dtd, utf-8)",
		"SAX.EndDTD()",
	}, r.events)

	r = parse(t, "<?xml version=\"1.0\" encoding=\"UTF-8\" standalone=\"yes\"?>\n")
	require.NoError(t, r.err)
	requireEvents(t, []string{
		"SAX.SetDocumentLocator()",
		"SAX.StartDTD(test.dtd, UTF-8)",
		"SAX.EndDTD()",
	}, r.events)
}

func TestElementDecl(t *testing.T) {
	t.Run("EMPTY and ANY", func(t *testing.T) {
		r := parse(t, "<!ELEMENT br EMPTY>\n<!ELEMENT any ANY >")
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.StartContentModel(br, EMPTY)",
			"SAX.EndContentModel(br, EMPTY)",
			"SAX.StartContentModel(any, ANY)",
			"SAX.EndContentModel(any, ANY)",
		}, r.decls())
	})
	t.Run("connectors between siblings", func(t *testing.T) {
		r := parse(t, `<!ELEMENT e (a, b?, (c|d)+)>`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.StartContentModel(e, CHILDREN)",
			"SAX.StartModelGroup()",
			"SAX.ChildElement(a)",
			"SAX.Connector(,)",
			"SAX.ChildElement(b?)",
			"SAX.Connector(,)",
			"SAX.StartModelGroup()",
			"SAX.ChildElement(c)",
			"SAX.Connector(|)",
			"SAX.ChildElement(d)",
			"SAX.EndModelGroup(+)",
			"SAX.EndModelGroup()",
			"SAX.EndContentModel(e, CHILDREN)",
		}, r.decls())
	})
	t.Run("single child group", func(t *testing.T) {
		r := parse(t, `<!ELEMENT e ( a* )?>`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.StartContentModel(e, CHILDREN)",
			"SAX.StartModelGroup()",
			"SAX.ChildElement(a*)",
			"SAX.EndModelGroup(?)",
			"SAX.EndContentModel(e, CHILDREN)",
		}, r.decls())
	})
	t.Run("mixed connectors", func(t *testing.T) {
		r := parse(t, `<!ELEMENT e (a|b,c)>`)
		requireFatal(t, r, dtd.ErrMalformedMarkup)
		require.ErrorIs(t, r.err, dtd.ErrConnectorMismatch)
		requireEvents(t, nil, r.decls())

		var pe dtd.ParseError
		require.True(t, errors.As(r.err, &pe), "error should carry a position")
		require.Equal(t, "test.dtd", pe.SystemID)
		require.Equal(t, 1, pe.LineNumber)
		require.Equal(t, 17, pe.Column)
	})
	t.Run("unterminated group", func(t *testing.T) {
		r := parse(t, `<!ELEMENT e (a b)>`)
		requireFatal(t, r, dtd.ErrElementContentNotFinished)
	})
	t.Run("missing content spec", func(t *testing.T) {
		r := parse(t, `<!ELEMENT e #PCDATA>`)
		requireFatal(t, r, dtd.ErrElementContentNotStarted)
	})
	t.Run("missing space", func(t *testing.T) {
		r := parse(t, `<!ELEMENT e(a)>`)
		requireFatal(t, r, dtd.ErrSpaceRequired)
	})
	t.Run("duplicate", func(t *testing.T) {
		r := parse(t, "<!ELEMENT root EMPTY>\n<!ELEMENT root ANY>")
		require.NoError(t, r.err, "a redeclaration is not fatal")
		requireEvents(t, []string{
			"SAX.StartContentModel(root, EMPTY)",
			"SAX.EndContentModel(root, EMPTY)",
		}, r.decls())
		require.Len(t, r.warnings, 1)
		require.ErrorIs(t, r.warnings[0], dtd.ErrDuplicateDeclaration)

		var derr *dtd.DuplicateDeclarationError
		require.True(t, errors.As(r.warnings[0], &derr))
		require.Equal(t, "element", derr.Kind)
		require.Equal(t, "root", derr.Name)

		r = parse(t, "<!ELEMENT root EMPTY>\n<!ELEMENT root ANY>", dtd.WithDuplicateWarnings(false))
		require.NoError(t, r.err)
		require.Empty(t, r.warnings, "warnings should be suppressed")
	})
	t.Run("nesting limit", func(t *testing.T) {
		const depth = 130
		input := "<!ELEMENT e " + strings.Repeat("(", depth) + "a" + strings.Repeat(")", depth) + ">"
		r := parse(t, input)
		requireFatal(t, r, dtd.ErrContentModelTooDeep)
	})
}

func TestMixedContent(t *testing.T) {
	t.Run("text only", func(t *testing.T) {
		r := parse(t, "<!ELEMENT p (#PCDATA)>\n<!ELEMENT q ( #PCDATA )*>")
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.StartContentModel(p, MIXED)",
			"SAX.EndContentModel(p, MIXED)",
			"SAX.StartContentModel(q, MIXED)",
			"SAX.EndContentModel(q, MIXED)",
		}, r.decls())
	})
	t.Run("with names", func(t *testing.T) {
		r := parse(t, `<!ELEMENT p (#PCDATA | em | strong)*>`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.StartContentModel(p, MIXED)",
			"SAX.MixedElement(em)",
			"SAX.MixedElement(strong)",
			"SAX.EndContentModel(p, MIXED)",
		}, r.decls())
	})
	t.Run("missing star", func(t *testing.T) {
		r := parse(t, `<!ELEMENT p (#PCDATA|em)>`)
		requireFatal(t, r, dtd.ErrMixedContentNotFinished)
		requireEvents(t, nil, r.decls())
	})
	t.Run("duplicate name", func(t *testing.T) {
		r := parse(t, `<!ELEMENT p (#PCDATA|em|em)*>`)
		require.NoError(t, r.err)
		require.Len(t, r.errors, 1)
		require.ErrorIs(t, r.errors[0], dtd.ErrInvalidDeclaration)

		var terr *dtd.DuplicateTokenError
		require.True(t, errors.As(r.errors[0], &terr))
		require.Equal(t, "em", terr.Name)

		requireEvents(t, []string{
			"SAX.StartContentModel(p, MIXED)",
			"SAX.MixedElement(em)",
			"SAX.EndContentModel(p, MIXED)",
		}, r.decls())
	})
}

func TestAttributeDecl(t *testing.T) {
	t.Run("use", func(t *testing.T) {
		r := parse(t, `<!ATTLIST e
  a CDATA #REQUIRED
  b CDATA #IMPLIED
  c CDATA #FIXED "fixed"
  d CDATA "dflt"
  a CDATA "again">
<!ATTLIST e b ID #IMPLIED>`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.AttributeDecl(e, a, CDATA, NULL, #REQUIRED, NULL)",
			"SAX.AttributeDecl(e, b, CDATA, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, c, CDATA, NULL, #FIXED, fixed)",
			"SAX.AttributeDecl(e, d, CDATA, NULL, NORMAL, dflt)",
		}, r.decls())

		require.Len(t, r.warnings, 2, "both redeclarations should be reported")
		var derr *dtd.DuplicateDeclarationError
		require.True(t, errors.As(r.warnings[0], &derr))
		require.Equal(t, "attribute", derr.Kind)
		require.Equal(t, "a", derr.Name)
		require.Equal(t, "e", derr.Element)
	})
	t.Run("types", func(t *testing.T) {
		r := parse(t, `<!ATTLIST e
  a CDATA #IMPLIED
  b ID #IMPLIED
  c IDREF #IMPLIED
  d IDREFS #IMPLIED
  e ENTITY #IMPLIED
  f ENTITIES #IMPLIED
  g NMTOKEN #IMPLIED
  h NMTOKENS #IMPLIED
  i NOTATION (gif | png) #IMPLIED
  j ( x | y | 1z ) "y">`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.AttributeDecl(e, a, CDATA, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, b, ID, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, c, IDREF, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, d, IDREFS, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, e, ENTITY, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, f, ENTITIES, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, g, NMTOKEN, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, h, NMTOKENS, NULL, #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, i, NOTATION, (gif|png), #IMPLIED, NULL)",
			"SAX.AttributeDecl(e, j, ENUMERATION, (x|y|1z), NORMAL, y)",
		}, r.decls())
		require.Empty(t, r.errors)
	})
	t.Run("duplicate enumeration token", func(t *testing.T) {
		r := parse(t, `<!ATTLIST e a (x|y|x) "x">`)
		require.NoError(t, r.err)
		require.Len(t, r.errors, 1)
		requireEvents(t, []string{
			"SAX.AttributeDecl(e, a, ENUMERATION, (x|y), NORMAL, x)",
		}, r.decls())
	})
	t.Run("ID attributes", func(t *testing.T) {
		r := parse(t, `<!ATTLIST e id ID "x" other ID #REQUIRED>`)
		require.NoError(t, r.err)
		require.Len(t, r.errors, 2)
		require.ErrorIs(t, r.errors[0], dtd.ErrIDAttributeDefault)
		require.ErrorIs(t, r.errors[1], dtd.ErrMultipleIDAttributes)
		require.Len(t, r.decls(), 2, "declarations are still reported")
	})
	t.Run("normalization", func(t *testing.T) {
		r := parse(t, "<!ATTLIST e\n  a CDATA \"A&#65;B\"\n  b CDATA \" x&#9;y \"\n  c CDATA \"one\ntwo\"\n  d NMTOKENS \"  x   y  \"\n  e CDATA '&#x41;&lt;&quot;'>")
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.AttributeDecl(e, a, CDATA, NULL, NORMAL, AAB)",
			"SAX.AttributeDecl(e, b, CDATA, NULL, NORMAL,  x\ty )",
			"SAX.AttributeDecl(e, c, CDATA, NULL, NORMAL, one two)",
			"SAX.AttributeDecl(e, d, NMTOKENS, NULL, NORMAL, x y)",
			`SAX.AttributeDecl(e, e, CDATA, NULL, NORMAL, A<")`,
		}, r.decls())
	})
	t.Run("entity references", func(t *testing.T) {
		r := parse(t, `<!ENTITY who "the &amp; team">
<!ENTITY by "by &who;">
<!ATTLIST e a CDATA "written &by;" b CDATA "&nope;">`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.InternalGeneralEntityDecl(who, the &amp; team)",
			"SAX.InternalGeneralEntityDecl(by, by &who;)",
			"SAX.AttributeDecl(e, a, CDATA, NULL, NORMAL, written by the & team)",
			"SAX.AttributeDecl(e, b, CDATA, NULL, NORMAL, &nope;)",
		}, r.decls())

		require.Len(t, r.errors, 1)
		var uerr *dtd.UndeclaredEntityError
		require.True(t, errors.As(r.errors[0], &uerr))
		require.Equal(t, "nope", uerr.Name)
		require.False(t, uerr.Parameter)
	})
	t.Run("bad values", func(t *testing.T) {
		testcases := []struct {
			name  string
			input string
			err   error
		}{
			{"lt", `<!ATTLIST e a CDATA "a<b">`, dtd.ErrLtInAttValue},
			{"external entity", `<!ENTITY x SYSTEM "x.xml"><!ATTLIST e a CDATA "&x;">`, dtd.ErrExternalEntityInAttr},
			{"unparsed entity", `<!ENTITY x SYSTEM "x.gif" NDATA gif><!ATTLIST e a CDATA "&x;">`, dtd.ErrUnparsedEntityInAttr},
			{"bad char ref", `<!ATTLIST e a CDATA "&#xZZ;">`, dtd.ErrCharRefInvalid},
			{"illegal char ref", `<!ATTLIST e a CDATA "&#0;">`, dtd.ErrInvalidChar},
			{"missing default", `<!ATTLIST e a CDATA >`, dtd.ErrAttributeDefaultRequired},
			{"missing type", `<!ATTLIST e a BOGUS #IMPLIED>`, dtd.ErrAttributeTypeRequired},
			{"unterminated enumeration", `<!ATTLIST e a (x y) #IMPLIED>`, dtd.ErrAttrListNotFinished},
			{"unterminated literal", `<!ATTLIST e a CDATA "abc`, dtd.ErrLiteralNotFinished},
			{"unterminated list", `<!ATTLIST e a CDATA #IMPLIED`, dtd.ErrGtRequired},
		}
		for _, tc := range testcases {
			t.Run(tc.name, func(t *testing.T) {
				requireFatal(t, parse(t, tc.input), tc.err)
			})
		}
	})
}

func TestEntityRecursion(t *testing.T) {
	t.Run("declared only", func(t *testing.T) {
		r := parse(t, `<!ENTITY a "&a;">`)
		require.NoError(t, r.err, "a recursive entity that is never expanded is fine")
		requireEvents(t, []string{"SAX.InternalGeneralEntityDecl(a, &a;)"}, r.decls())
	})
	t.Run("direct", func(t *testing.T) {
		r := parse(t, `<!ENTITY a "&a;"><!ATTLIST e x CDATA "&a;">`)
		requireFatal(t, r, dtd.ErrEntityRecursion)
	})
	t.Run("indirect", func(t *testing.T) {
		r := parse(t, `<!ENTITY a "x&b;"><!ENTITY b "y&a;"><!ATTLIST e x CDATA "&a;">`)
		requireFatal(t, r, dtd.ErrEntityRecursion)
	})
	t.Run("parameter", func(t *testing.T) {
		r := parse(t, `<!ENTITY % p "%p;"> %p;`)
		requireFatal(t, r, dtd.ErrEntityRecursion)
		require.Len(t, r.errors, 1, "the reference inside the value is undeclared at that point")
	})
	t.Run("repeated use is not recursion", func(t *testing.T) {
		r := parse(t, `<!ENTITY a "x"><!ATTLIST e v CDATA "&a;&a;&a;">`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.InternalGeneralEntityDecl(a, x)",
			"SAX.AttributeDecl(e, v, CDATA, NULL, NORMAL, xxx)",
		}, r.decls())
	})
}

func TestEntityDecl(t *testing.T) {
	r := parseAs(t, "http://example.com/dtd/main.dtd", `<!ENTITY int "internal">
<!ENTITY ext SYSTEM "chap1.xml">
<!ENTITY pub PUBLIC "  -//Example//TEXT   Chapter//EN " 'http://example.com/chap2.xml'>
<!ENTITY img SYSTEM "../img/logo.png" NDATA png>
<!ENTITY % pe "text">
<!ENTITY % epe SYSTEM "mod.ent">
<!ENTITY int "again">
<!ENTITY lt "&#38;#60;">
<!ENTITY x "A&#65;B">
<!ENTITY y 'A&#x42;&amp;C'>`)
	require.NoError(t, r.err)
	requireEvents(t, []string{
		"SAX.InternalGeneralEntityDecl(int, internal)",
		"SAX.ExternalGeneralEntityDecl(ext, NULL, http://example.com/dtd/chap1.xml)",
		"SAX.ExternalGeneralEntityDecl(pub, -//Example//TEXT Chapter//EN, http://example.com/chap2.xml)",
		"SAX.UnparsedEntityDecl(img, NULL, http://example.com/img/logo.png, png)",
		"SAX.InternalParameterEntityDecl(pe, text)",
		"SAX.ExternalParameterEntityDecl(epe, NULL, http://example.com/dtd/mod.ent)",
		"SAX.InternalGeneralEntityDecl(x, AAB)",
		"SAX.InternalGeneralEntityDecl(y, AB&amp;C)",
	}, r.decls())
	require.Len(t, r.warnings, 1, "only the redeclaration of int is reported")

	t.Run("parameter references in values", func(t *testing.T) {
		r := parse(t, `<!ENTITY % a "x"><!ENTITY b "[%a;]"><!ENTITY c "[%undeclared;]">`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.InternalParameterEntityDecl(a, x)",
			"SAX.InternalGeneralEntityDecl(b, [x])",
			"SAX.InternalGeneralEntityDecl(c, [%undeclared;])",
		}, r.decls())
		require.Len(t, r.errors, 1)
		require.ErrorIs(t, r.errors[0], dtd.ErrUndeclaredEntity)
	})
	t.Run("errors", func(t *testing.T) {
		testcases := []struct {
			name  string
			input string
			err   error
		}{
			{"NDATA on parameter entity", `<!ENTITY % bad SYSTEM "x" NDATA n>`, dtd.ErrNDATAInParameterEntity},
			{"no value", `<!ENTITY x >`, dtd.ErrEntityValueRequired},
			{"public without system", `<!ENTITY x PUBLIC "-//X//EN">`, dtd.ErrLiteralRequired},
			{"bad public id", `<!ENTITY x PUBLIC "{bad}" "x">`, dtd.ErrPubidCharInvalid},
			{"missing gt", `<!ENTITY x "y" z>`, dtd.ErrGtRequired},
			{"bad reference", `<!ENTITY x "a & b">`, dtd.ErrEntityRefInvalid},
			{"reference without semicolon", `<!ENTITY x "&a b">`, dtd.ErrSemicolonRequired},
		}
		for _, tc := range testcases {
			t.Run(tc.name, func(t *testing.T) {
				requireFatal(t, parse(t, tc.input), tc.err)
			})
		}
	})
}

func TestNotationDecl(t *testing.T) {
	r := parse(t, `<!NOTATION a SYSTEM "a.exe">
<!NOTATION b PUBLIC "-//B//EN" "b.exe">
<!NOTATION c PUBLIC '-//C//EN'>
<!NOTATION a SYSTEM "again">`)
	require.NoError(t, r.err)
	requireEvents(t, []string{
		"SAX.NotationDecl(a, NULL, a.exe)",
		"SAX.NotationDecl(b, -//B//EN, b.exe)",
		"SAX.NotationDecl(c, -//C//EN, NULL)",
	}, r.decls())
	require.Len(t, r.warnings, 1)

	requireFatal(t, parse(t, `<!NOTATION a "a.exe">`), dtd.ErrExternalIDRequired)
}

func TestCommentsAndPIs(t *testing.T) {
	r := parse(t, `<!-- a - comment -->
<?xml-stylesheet href="style.css"?>
<?target?>
<?other  some data ?>`)
	require.NoError(t, r.err)
	requireEvents(t, []string{
		"SAX.Comment( a - comment )",
		`SAX.ProcessingInstruction(xml-stylesheet, href="style.css")`,
		"SAX.ProcessingInstruction(target, )",
		"SAX.ProcessingInstruction(other, some data )",
	}, r.decls())

	testcases := []struct {
		name  string
		input string
		err   error
	}{
		{"double hyphen", `<!-- a -- b -->`, dtd.ErrHyphenInComment},
		{"unterminated comment", `<!-- a`, dtd.ErrCommentNotFinished},
		{"reserved target", `<!ELEMENT a EMPTY><?XML foo?>`, dtd.ErrReservedPITarget},
		{"late text declaration", `<!ELEMENT a EMPTY><?xml version="1.0"?>`, dtd.ErrReservedPITarget},
		{"colon in target", `<?a:b c?>`, dtd.ErrPITargetColon},
		{"unterminated PI", `<?target data`, dtd.ErrPINotFinished},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			requireFatal(t, parse(t, tc.input), tc.err)
		})
	}
}

func TestConditionalSections(t *testing.T) {
	r := parse(t, `<!ENTITY % draft "INCLUDE">
<!ENTITY % final "IGNORE">
<![%draft;[
  <!ELEMENT a EMPTY>
  <![ %final; [
    <!ELEMENT a ANY>
    <![INCLUDE[ <!ELEMENT nested EMPTY> ]]>
  ]]>
]]>
<![ IGNORE [ <!ELEMENT b EMPTY> ]]>
<![INCLUDE[]]>`)
	require.NoError(t, r.err)
	requireEvents(t, []string{
		"SAX.InternalParameterEntityDecl(draft, INCLUDE)",
		"SAX.InternalParameterEntityDecl(final, IGNORE)",
		"SAX.StartContentModel(a, EMPTY)",
		"SAX.EndContentModel(a, EMPTY)",
	}, r.decls())
	require.Empty(t, r.warnings)

	testcases := []struct {
		name  string
		input string
		err   error
	}{
		{"bad keyword", `<![FOO[ ]]>`, dtd.ErrConditionalSectionKeyword},
		{"stray end", `<!ELEMENT a EMPTY> ]]>`, dtd.ErrMisplacedSectionEnd},
		{"unterminated include", `<![INCLUDE[ <!ELEMENT a EMPTY>`, dtd.ErrConditionalSectionNotFinished},
		{"unterminated ignore", `<![IGNORE[ <![IGNORE[ ]]>`, dtd.ErrConditionalSectionNotFinished},
		{"missing bracket", `<![INCLUDE <!ELEMENT a EMPTY> ]]>`, dtd.ErrOpenBracketRequired},
		{"CDATA without the option", `<![CDATA[text]]>`, dtd.ErrConditionalSectionKeyword},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			requireFatal(t, parse(t, tc.input), tc.err)
		})
	}
}

func TestParameterEntities(t *testing.T) {
	r := parse(t, `<!ENTITY % name "para">
<!ENTITY % content "(#PCDATA|em)*">
<!ELEMENT %name; %content;>
<!ENTITY % decl "<!ELEMENT em EMPTY>">
%decl;`)
	require.NoError(t, r.err)
	requireEvents(t, []string{
		"SAX.InternalParameterEntityDecl(name, para)",
		"SAX.InternalParameterEntityDecl(content, (#PCDATA|em)*)",
		"SAX.StartContentModel(para, MIXED)",
		"SAX.MixedElement(em)",
		"SAX.EndContentModel(para, MIXED)",
		"SAX.InternalParameterEntityDecl(decl, <!ELEMENT em EMPTY>)",
		"SAX.StartContentModel(em, EMPTY)",
		"SAX.EndContentModel(em, EMPTY)",
	}, r.decls())

	t.Run("undeclared", func(t *testing.T) {
		r := parse(t, "%nope;\n<!ELEMENT a EMPTY>")
		require.NoError(t, r.err)
		require.Len(t, r.errors, 1)

		var uerr *dtd.UndeclaredEntityError
		require.True(t, errors.As(r.errors[0], &uerr))
		require.Equal(t, "nope", uerr.Name)
		require.True(t, uerr.Parameter)
		require.Len(t, r.decls(), 2)
	})
	t.Run("internal entity spanning a declaration", func(t *testing.T) {
		r := parse(t, `<!ENTITY % open "<!ELEMENT a "> %open; EMPTY>`)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.InternalParameterEntityDecl(open, <!ELEMENT a )",
			"SAX.StartContentModel(a, EMPTY)",
			"SAX.EndContentModel(a, EMPTY)",
		}, r.decls())
	})
	t.Run("error position inside entity", func(t *testing.T) {
		r := parse(t, "<!ENTITY % bad \"<!ELEMENT x (a|b,c)>\">\n%bad;")
		requireFatal(t, r, dtd.ErrConnectorMismatch)

		var pe dtd.ParseError
		require.True(t, errors.As(r.err, &pe))
		require.Equal(t, "%bad", pe.Entity)
		require.Equal(t, "test.dtd", pe.SystemID)
		require.Equal(t, 1, pe.LineNumber)
		require.Equal(t, 17, pe.Column)
		require.Contains(t, pe.Error(), "in entity %bad (test.dtd) at line 1, column 17")
	})
}

func TestExternalEntities(t *testing.T) {
	fsys := fstest.MapFS{
		"mods/m.ent":   {Data: []byte("<?xml encoding=\"UTF-8\"?>\n<!ELEMENT m EMPTY>\n<!ENTITY % sub SYSTEM \"sub.ent\">\n%sub;\n")},
		"mods/sub.ent": {Data: []byte("<!ELEMENT sub EMPTY>")},
		"open.ent":     {Data: []byte("<!ELEMENT a ")},
		"close.ent":    {Data: []byte("EMPTY>")},
		"notext.ent":   {Data: []byte("<?xml version=\"1.0\"?><!ELEMENT a EMPTY>")},
		"latin1.ent":   {Data: []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><!ENTITY e \"caf\xe9\">")},
		"self.ent":     {Data: []byte("%self;")},
		"utf16.ent":    {Data: utf16le("<?xml encoding=\"UTF-8\"?><!ELEMENT a EMPTY>")},
	}
	resolver := dtd.WithResolver(dtd.NewFSResolver(fsys))

	t.Run("nested relative references", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % mod SYSTEM "mods/m.ent"> %mod;`, resolver)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.ExternalParameterEntityDecl(mod, NULL, mods/m.ent)",
			"SAX.StartContentModel(m, EMPTY)",
			"SAX.EndContentModel(m, EMPTY)",
			"SAX.ExternalParameterEntityDecl(sub, NULL, mods/sub.ent)",
			"SAX.StartContentModel(sub, EMPTY)",
			"SAX.EndContentModel(sub, EMPTY)",
		}, r.decls())
	})
	t.Run("declared encoding", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % l SYSTEM "latin1.ent"> %l;`, resolver)
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.ExternalParameterEntityDecl(l, NULL, latin1.ent)",
			"SAX.InternalGeneralEntityDecl(e, café)",
		}, r.decls())
	})
	t.Run("declaration opened in entity", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % open SYSTEM "open.ent"> %open; EMPTY>`, resolver)
		requireFatal(t, r, dtd.ErrEntityBoundary)
	})
	t.Run("declaration closed in entity", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % close SYSTEM "close.ent"> <!ELEMENT a %close;`, resolver)
		requireFatal(t, r, dtd.ErrEntityBoundary)
	})
	t.Run("text declaration without encoding", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % x SYSTEM "notext.ent"> %x;`, resolver)
		requireFatal(t, r, dtd.ErrInvalidTextDecl)
	})
	t.Run("encoding mismatch", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % x SYSTEM "utf16.ent"> %x;`, resolver)
		requireFatal(t, r, dtd.ErrEncoding)
		require.ErrorIs(t, r.err, dtd.ErrEncodingMismatch)
	})
	t.Run("self reference", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % self SYSTEM "self.ent"> %self;`, resolver)
		requireFatal(t, r, dtd.ErrEntityRecursion)
	})
	t.Run("missing file", func(t *testing.T) {
		r := parseAs(t, "main.dtd", `<!ENTITY % x SYSTEM "missing.ent"> %x;`, resolver)
		requireFatal(t, r, dtd.ErrUnresolvedEntity)
	})
	t.Run("no resolver", func(t *testing.T) {
		r := parse(t, `<!ENTITY % x SYSTEM "x.ent"> %x;`)
		requireFatal(t, r, dtd.ErrUnresolvedEntity)
		require.ErrorIs(t, r.err, dtd.ErrNoResolver)
	})
	t.Run("skip unresolvable", func(t *testing.T) {
		r := parse(t, `<!ENTITY % x SYSTEM "x.ent"> %x; <!ELEMENT a EMPTY>`, dtd.WithSkipUnresolvable(true))
		require.NoError(t, r.err)
		require.Empty(t, r.fatal)
		require.Len(t, r.errors, 1)
		require.ErrorIs(t, r.errors[0], dtd.ErrUnresolvedEntity)
		requireEvents(t, []string{
			"SAX.ExternalParameterEntityDecl(x, NULL, x.ent)",
			"SAX.StartContentModel(a, EMPTY)",
			"SAX.EndContentModel(a, EMPTY)",
		}, r.decls())
	})
	t.Run("resolver arguments", func(t *testing.T) {
		var got []string
		rf := dtd.ResolverFunc(func(_ context.Context, publicID, systemID, baseURI string) (io.ReadCloser, string, error) {
			got = append(got, publicID, systemID, baseURI)
			return io.NopCloser(strings.NewReader("<!ELEMENT r EMPTY>")), "http://example.com/r.ent", nil
		})
		r := parseAs(t, "http://example.com/main.dtd", `<!ENTITY % r PUBLIC "-//R//EN" "r.ent"> %r;`, dtd.WithResolver(rf))
		require.NoError(t, r.err)
		require.Equal(t, []string{"-//R//EN", "r.ent", "http://example.com/main.dtd"}, got)
		require.Len(t, r.decls(), 3)
	})
}

func utf16le(s string) []byte {
	b := []byte{0xFF, 0xFE}
	for _, c := range []byte(s) {
		b = append(b, c, 0)
	}
	return b
}

func TestDocumentEncoding(t *testing.T) {
	t.Run("UTF-16", func(t *testing.T) {
		var out strings.Builder
		var r result
		err := dtd.Parse(context.Background(), utf16le(`<?xml version="1.0" encoding="UTF-16"?><!ELEMENT x EMPTY>`), "test.dtd", dtd.WithHandler(record(&out, &r)))
		require.NoError(t, err)
		require.Equal(t, strings.Join([]string{
			"SAX.SetDocumentLocator()",
			"SAX.StartDTD(test.dtd, UTF-16)",
			"SAX.StartContentModel(x, EMPTY)",
			"SAX.EndContentModel(x, EMPTY)",
			"SAX.EndDTD()",
		}, "\n")+"\n", out.String())
	})

	testcases := []struct {
		name  string
		input []byte
		err   error
	}{
		{"UTF-16 declared as UTF-8", utf16le(`<?xml version="1.0" encoding="UTF-8"?>`), dtd.ErrEncodingMismatch},
		{"UTF-8 declared as UTF-16", []byte(`<?xml version="1.0" encoding="UTF-16"?>`), dtd.ErrEncodingMismatch},
		{"UTF-8 BOM declared as Latin-1", []byte("\xEF\xBB\xBF<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>"), dtd.ErrEncodingMismatch},
		{"invalid UTF-8", []byte("<!-- \xff -->"), dtd.ErrInvalidUTF8},
		{"unknown encoding", []byte(`<?xml version="1.0" encoding="x-unknown"?>`), dtd.ErrUnsupportedEncoding},
		{"bad encoding name", []byte(`<?xml version="1.0" encoding="8bit"?>`), dtd.ErrInvalidEncodingName},
		{"bad version", []byte(`<?xml version="one"?>`), dtd.ErrInvalidVersionNum},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			var out strings.Builder
			var r result
			r.err = dtd.Parse(context.Background(), tc.input, "test.dtd", dtd.WithHandler(record(&out, &r)))
			r.events = strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
			requireFatal(t, &r, tc.err)
			require.Len(t, r.events, 3, "the stream is bracketed even when the text declaration fails")
			require.Equal(t, "SAX.SetDocumentLocator()", r.events[0])
			require.True(t, strings.HasPrefix(r.events[1], "SAX.StartDTD(test.dtd, "), r.events[1])
		})
	}
}

func TestLimits(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		input := `<!ENTITY a "&b;"><!ENTITY b "&c;"><!ENTITY c "&d;"><!ENTITY d "x"><!ATTLIST e v CDATA "&a;">`
		r := parse(t, input)
		require.NoError(t, r.err)

		r = parse(t, input, dtd.WithMaxEntityDepth(3))
		requireFatal(t, r, dtd.ErrEntityDepthExceeded)
	})
	t.Run("expansions", func(t *testing.T) {
		ten := func(name string) string {
			return strings.Repeat("&"+name+";", 10)
		}
		input := `<!ENTITY a "x"><!ENTITY b "` + ten("a") + `"><!ENTITY c "` + ten("b") + `"><!ATTLIST e v CDATA "&c;">`

		r := parse(t, input)
		require.NoError(t, r.err)
		require.Contains(t, r.events, "SAX.AttributeDecl(e, v, CDATA, NULL, NORMAL, "+strings.Repeat("x", 100)+")")

		r = parse(t, input, dtd.WithMaxEntityExpansions(50))
		requireFatal(t, r, dtd.ErrEntityDepthExceeded)
		require.ErrorIs(t, r.err, dtd.ErrTooManyExpansions)
	})
	t.Run("expanded size", func(t *testing.T) {
		// each level holds ten references to the previous one
		chain := func(levels int) string {
			var sb strings.Builder
			sb.WriteString(`<!ENTITY % l0 "xxxxxxxxxx">`)
			for i := 1; i <= levels; i++ {
				fmt.Fprintf(&sb, `<!ENTITY %% l%d "%s">`, i, strings.Repeat(fmt.Sprintf("%%l%d;", i-1), 10))
			}
			return sb.String()
		}

		r := parse(t, chain(3))
		require.NoError(t, r.err)
		require.Contains(t, r.events, "SAX.InternalParameterEntityDecl(l3, "+strings.Repeat("x", 10000)+")")

		r = parse(t, chain(7))
		requireFatal(t, r, dtd.ErrEntityDepthExceeded)
		require.ErrorIs(t, r.err, dtd.ErrExpansionTooLarge)
		require.Len(t, r.decls(), 6, "l6 would be 10MB and is never built")

		r = parse(t, chain(3), dtd.WithMaxExpandedSize(5000))
		requireFatal(t, r, dtd.ErrExpansionTooLarge)

		// references outside literals are charged as well
		comment := `<!ENTITY % c "<!--` + strings.Repeat("x", 1000) + `-->">`
		r = parse(t, comment+strings.Repeat("%c;", 100), dtd.WithMaxExpandedSize(50000))
		requireFatal(t, r, dtd.ErrExpansionTooLarge)
		require.Equal(t, 49, r.count("SAX.Comment("+strings.Repeat("x", 1000)+")"))
	})
}

func TestOptionalEvents(t *testing.T) {
	t.Run("CDATA sections", func(t *testing.T) {
		r := parse(t, `<![CDATA[hello]]><![CDATA[]]>`, dtd.WithCDATASections(true))
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.StartCDATA()",
			`SAX.Characters("hello", 5)`,
			"SAX.EndCDATA()",
			"SAX.StartCDATA()",
			"SAX.EndCDATA()",
		}, r.decls())

		requireFatal(t, parse(t, `<![CDATA[hello`, dtd.WithCDATASections(true)), dtd.ErrCDATANotFinished)
	})
	t.Run("whitespace", func(t *testing.T) {
		r := parse(t, "<!ELEMENT a EMPTY>\n  <!ELEMENT b EMPTY>\n", dtd.WithReportWhitespace(true))
		require.NoError(t, r.err)
		requireEvents(t, []string{
			"SAX.StartContentModel(a, EMPTY)",
			"SAX.EndContentModel(a, EMPTY)",
			`SAX.IgnorableWhitespace("\n  ", 3)`,
			"SAX.StartContentModel(b, EMPTY)",
			"SAX.EndContentModel(b, EMPTY)",
			`SAX.IgnorableWhitespace("\n", 1)`,
		}, r.decls())

		r = parse(t, "<!ELEMENT a EMPTY>\n  <!ELEMENT b EMPTY>\n")
		require.NoError(t, r.err)
		require.Len(t, r.decls(), 4, "whitespace is not reported by default")
	})
}

func TestListenerError(t *testing.T) {
	stop := errors.New("stop")

	var out strings.Builder
	var r result
	h := record(&out, &r)
	calls := 0
	h.AttributeDeclHandler = func(context.Context, string, string, sax.AttributeType, sax.Enumeration, sax.AttributeUse, string) error {
		calls++
		return stop
	}

	err := dtd.Parse(context.Background(), []byte(`<!ATTLIST e a CDATA #IMPLIED b CDATA #IMPLIED><!ELEMENT e EMPTY>`), "test.dtd", dtd.WithHandler(h))
	require.ErrorIs(t, err, stop)

	var lerr dtd.ListenerError
	require.True(t, errors.As(err, &lerr), "handler errors are wrapped in ListenerError")
	require.Equal(t, 1, calls, "no callbacks after the handler failed")
	require.Empty(t, r.fatal, "FatalError is not called for handler errors")
	require.NotContains(t, out.String(), "StartContentModel")
	require.True(t, strings.HasSuffix(out.String(), "SAX.EndDTD()\n"))
	require.Equal(t, 1, strings.Count(out.String(), "SAX.EndDTD()"))

	t.Run("from a warning", func(t *testing.T) {
		var out strings.Builder
		var r result
		h := record(&out, &r)
		h.WarningHandler = func(context.Context, error) error {
			return stop
		}
		err := dtd.Parse(context.Background(), []byte(`<!ELEMENT e EMPTY><!ELEMENT e ANY><!ELEMENT f EMPTY>`), "test.dtd", dtd.WithHandler(h))
		require.ErrorIs(t, err, stop)
		require.NotContains(t, out.String(), "(f, EMPTY)")
	})
}

func TestInvalidMarkup(t *testing.T) {
	testcases := []struct {
		name  string
		input string
		err   error
	}{
		{"control character", "\x01", dtd.ErrInvalidChar},
		{"unknown declaration", "<!FOO bar>", dtd.ErrMarkupDeclExpected},
		{"text", "hello", dtd.ErrMarkupDeclExpected},
		{"bare percent", "% x;", dtd.ErrMarkupDeclExpected},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			r := parse(t, tc.input)
			requireFatal(t, r, tc.err)
			require.ErrorIs(t, r.err, dtd.ErrMalformedMarkup)
		})
	}

	t.Run("position", func(t *testing.T) {
		r := parse(t, "<!ELEMENT a EMPTY>\n\n  <!ELEMENT b (x|y,z)>")
		var pe dtd.ParseError
		require.True(t, errors.As(r.err, &pe))
		require.Equal(t, "", pe.Entity)
		require.Equal(t, 3, pe.LineNumber)
		require.Equal(t, 19, pe.Column)
		require.Equal(t, "  <!ELEMENT b (x|y,z)>", pe.Line)
	})
}

func TestLocator(t *testing.T) {
	type position struct {
		Name     string
		SystemID string
		Line     int
	}

	var loc sax.DocumentLocator
	var got []position
	h := sax.New()
	h.SetDocumentLocatorHandler = func(_ context.Context, l sax.DocumentLocator) error {
		loc = l
		return nil
	}
	h.StartContentModelHandler = func(_ context.Context, name string, _ sax.ContentModelType) error {
		got = append(got, position{Name: name, SystemID: loc.SystemID(), Line: loc.LineNumber()})
		return nil
	}

	fsys := fstest.MapFS{
		"sub/inner.ent": {Data: []byte("\n\n<!ELEMENT inner EMPTY>")},
	}
	input := "<!ELEMENT a EMPTY>\n<!ELEMENT b EMPTY>\n<!ENTITY % inner SYSTEM \"sub/inner.ent\">\n%inner;"
	err := dtd.Parse(context.Background(), []byte(input), "main.dtd",
		dtd.WithHandler(h),
		dtd.WithResolver(dtd.NewFSResolver(fsys)),
	)
	require.NoError(t, err)

	want := []position{
		{Name: "a", SystemID: "main.dtd", Line: 1},
		{Name: "b", SystemID: "main.dtd", Line: 2},
		{Name: "inner", SystemID: "sub/inner.ent", Line: 3},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("positions mismatch (-want +got):\n%s", diff)
	}
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out strings.Builder
	var r result
	err := dtd.Parse(ctx, []byte(`<!ELEMENT a EMPTY>`), "test.dtd", dtd.WithHandler(record(&out, &r)))
	require.ErrorIs(t, err, context.Canceled)
	require.NotContains(t, out.String(), "StartContentModel")
	require.Equal(t, 1, strings.Count(out.String(), "SAX.EndDTD()"))
}

func TestParseReader(t *testing.T) {
	var out strings.Builder
	var r result
	p := dtd.NewParser(dtd.WithHandler(record(&out, &r)))
	require.NoError(t, p.ParseReader(context.Background(), strings.NewReader(`<!ELEMENT a EMPTY>`), "test.dtd"))
	require.Contains(t, out.String(), "SAX.StartContentModel(a, EMPTY)")

	// the parser keeps no state between runs
	out.Reset()
	require.NoError(t, p.ParseReader(context.Background(), strings.NewReader(`<!ELEMENT a EMPTY>`), "test.dtd"))
	require.Contains(t, out.String(), "SAX.StartContentModel(a, EMPTY)")
	require.Empty(t, r.warnings)
}

func TestNilHandler(t *testing.T) {
	require.NoError(t, dtd.Parse(context.Background(), []byte(`<!ELEMENT a (b|c)*>`), "test.dtd"))
	require.ErrorIs(t, dtd.Parse(context.Background(), []byte(`<!ELEMENT a (b|c,d)*>`), "test.dtd"), dtd.ErrConnectorMismatch)
}

func TestTraceLogger(t *testing.T) {
	if !dtd.TracingEnabled {
		t.Skip("tracing is compiled out")
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := dtd.WithTraceLogger(context.Background(), logger)

	require.NoError(t, dtd.Parse(ctx, []byte(`<!ENTITY % p "<!ELEMENT a EMPTY>"> %p;`), "test.dtd"))

	out := buf.String()
	require.Contains(t, out, `"span_name":"dtd.Parse"`)
	require.Contains(t, out, `"msg":"push input"`)
	require.Contains(t, out, `"msg":"element declared"`)
	require.Contains(t, out, `"msg":"entity declared"`)
}
