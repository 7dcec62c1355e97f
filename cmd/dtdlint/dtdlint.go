package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/lestrrat-go/dtd"
	"github.com/lestrrat-go/dtd/internal/cliutil"
	"github.com/lestrrat-go/dtd/s11n"
	"github.com/lestrrat-go/dtd/sax"
	"github.com/pkg/errors"
)

type cmdopts struct {
	Format           string `long:"format" choice:"events" choice:"dump" choice:"none" default:"events" description:"what to print for each file"`
	Summary          bool   `long:"summary" description:"print the number of declarations of each kind"`
	MaxDepth         int    `long:"max-depth" description:"maximum number of nested entities"`
	MaxExpansions    int    `long:"max-expansions" description:"maximum number of entity expansions"`
	MaxExpandedSize  int    `long:"max-expanded-size" description:"maximum bytes of entity text substituted per file"`
	SkipUnresolvable bool   `long:"skip-unresolvable" description:"report unresolvable external entities and go on"`
	NoWarnings       bool   `long:"nowarnings" description:"do not report redeclarations"`
	CDATA            bool   `long:"cdata" description:"accept CDATA sections between declarations"`
	Blanks           bool   `long:"blanks" description:"report whitespace between declarations"`
	Trace            bool   `long:"trace" description:"log parser internals to stderr"`
	Version          bool   `long:"version" description:"display the version of the DTD library used"`
}

type input struct {
	name string
	rc   io.ReadCloser
}

func main() {
	os.Exit(_main())
}

func showVersion() {
	fmt.Printf("dtdlint: using dtd version %s\n", dtd.Version)
}

func showUsage() {
	fmt.Printf(`Usage : dtdlint [options] DTDfiles ...
	Parse the DTD files and output the result of the parsing
	--format=events|dump|none : event trace, re-serialized DTD or nothing
	--summary : print the number of declarations of each kind
	--version : display the version of the DTD library used
`)
}

func _main() int {
	opts := cmdopts{}
	args, err := flags.ParseArgs(&opts, os.Args[1:])
	if err != nil {
		showUsage()
		return 1
	}

	if opts.Version {
		showVersion()
		return 0
	}

	inputCh := make(chan input)
	errCh := make(chan error, 1)
	switch {
	case len(args) > 0: // filename present
		go func() {
			defer close(inputCh)
			for _, f := range args {
				fh, err := os.Open(f)
				if err != nil {
					errCh <- err
					return
				}
				inputCh <- input{name: f, rc: fh}
			}
		}()
	case !cliutil.IsTty(os.Stdin):
		go func() {
			defer close(inputCh)
			inputCh <- input{name: "-", rc: io.NopCloser(os.Stdin)}
		}()
	default:
		showUsage()
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if opts.Trace {
		ctx = dtd.WithTraceLogger(ctx, slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	for in := range inputCh {
		err := lint(ctx, &opts, in)
		_ = in.rc.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return 1
		}
	}

	select {
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return 1
	default:
	}

	return 0
}

func lint(ctx context.Context, opts *cmdopts, in input) error {
	buf, err := io.ReadAll(in.rc)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", in.name)
	}

	var h sax.Handler
	switch opts.Format {
	case "dump":
		d := s11n.NewDumper(os.Stdout)
		reportDiagnostics(d.SAX, in.name)
		h = d
	case "events":
		s := newEventPrinter(os.Stdout)
		reportDiagnostics(s, in.name)
		h = s
	default:
		s := sax.New()
		reportDiagnostics(s, in.name)
		h = s
	}

	var c *counter
	if opts.Summary {
		c = newCounter(h)
		h = c
	}

	fsys, systemID := resolverRoot(in.name)
	p := dtd.NewParser(
		dtd.WithHandler(h),
		dtd.WithResolver(dtd.NewFSResolver(fsys)),
		dtd.WithMaxEntityDepth(opts.MaxDepth),
		dtd.WithMaxEntityExpansions(opts.MaxExpansions),
		dtd.WithMaxExpandedSize(opts.MaxExpandedSize),
		dtd.WithSkipUnresolvable(opts.SkipUnresolvable),
		dtd.WithDuplicateWarnings(!opts.NoWarnings),
		dtd.WithCDATASections(opts.CDATA),
		dtd.WithReportWhitespace(opts.Blanks),
	)
	if err := p.Parse(ctx, buf, systemID); err != nil {
		return errors.Wrapf(err, "%s", in.name)
	}

	if c != nil {
		fmt.Fprintf(os.Stdout, "%s: %s\n", in.name, c.String())
	}
	return nil
}

// resolverRoot picks the directory external entities of name are
// looked up in, and the system identifier name has relative to it.
// Files below the working directory may refer to each other through
// relative paths; anything else is confined to its own directory.
func resolverRoot(name string) (fs.FS, string) {
	if name == "-" {
		return os.DirFS("."), "-"
	}
	clean := filepath.Clean(name)
	if filepath.IsLocal(clean) {
		return os.DirFS("."), filepath.ToSlash(clean)
	}
	return os.DirFS(filepath.Dir(clean)), filepath.Base(clean)
}

func reportDiagnostics(s *sax.SAX, name string) {
	s.WarningHandler = func(_ context.Context, err error) error {
		fmt.Fprintf(os.Stderr, "%s: warning: %s\n", name, firstLine(err))
		return nil
	}
	s.ErrorHandler = func(_ context.Context, err error) error {
		fmt.Fprintf(os.Stderr, "%s: error: %s\n", name, firstLine(err))
		return nil
	}
}

func firstLine(err error) string {
	s, _, _ := strings.Cut(err.Error(), "\n")
	return s
}
