package dtd

import (
	"cmp"
	"context"
	"io"
	"io/fs"
	"net/url"
	"path"
	"slices"
	"strings"

	"github.com/pkg/errors"
)

// Resolver maps an external identifier to a byte stream. The returned
// string is the canonical system identifier of the stream, used as the
// base for identifiers declared inside it. A Resolver may be shared
// between parses and must not keep state across calls.
type Resolver interface {
	Resolve(ctx context.Context, publicID, systemID, baseURI string) (io.ReadCloser, string, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, publicID, systemID, baseURI string) (io.ReadCloser, string, error)

func (f ResolverFunc) Resolve(ctx context.Context, publicID, systemID, baseURI string) (io.ReadCloser, string, error) {
	return f(ctx, publicID, systemID, baseURI)
}

// FSResolver resolves system identifiers as slash separated paths in
// an fs.FS. Identifiers may not escape the root of the file system.
type FSResolver struct {
	fsys fs.FS
}

func NewFSResolver(fsys fs.FS) *FSResolver {
	return &FSResolver{fsys: fsys}
}

func (r *FSResolver) Resolve(_ context.Context, _, systemID, baseURI string) (io.ReadCloser, string, error) {
	if r == nil || r.fsys == nil {
		return nil, "", errors.New("no filesystem configured")
	}

	name, err := fsPath(baseURI, systemID)
	if err != nil {
		return nil, "", err
	}

	f, err := r.fsys.Open(name)
	if err != nil {
		return nil, "", errors.Wrapf(err, "failed to open %q", name)
	}
	return f, name, nil
}

func fsPath(baseURI, systemID string) (string, error) {
	if systemID == "" {
		return "", fs.ErrNotExist
	}
	if strings.Contains(systemID, "\\") {
		return "", errors.Errorf("system identifier contains backslash: %q", systemID)
	}
	if u, err := url.Parse(systemID); err == nil && u.Scheme != "" {
		if u.Scheme != "file" {
			return "", errors.Errorf("unsupported scheme %q in system identifier", u.Scheme)
		}
		systemID = cmp.Or(u.Path, u.Opaque)
	}
	if strings.HasPrefix(systemID, "/") {
		return "", errors.Errorf("system identifier must be relative: %q", systemID)
	}
	if slices.Contains(strings.Split(systemID, "/"), "") {
		return "", errors.Errorf("invalid system identifier segment: %q", systemID)
	}

	joined := path.Clean(systemID)
	if dir := path.Dir(baseURI); baseURI != "" && dir != "." {
		joined = path.Clean(dir + "/" + systemID)
	}
	if joined == "." || joined == ".." || strings.HasPrefix(joined, "../") {
		return "", errors.Errorf("system identifier escapes root: %q", systemID)
	}
	return joined, nil
}

// resolveSystemID resolves a system identifier against the base of the
// entity it was declared in. URLs are resolved per RFC 3986, anything
// else as a slash separated path.
func resolveSystemID(base, systemID string) string {
	if systemID == "" || base == "" {
		return systemID
	}
	ref, err := url.Parse(systemID)
	if err != nil {
		return systemID
	}
	if ref.IsAbs() {
		return systemID
	}
	if b, err := url.Parse(base); err == nil && b.IsAbs() {
		return b.ResolveReference(ref).String()
	}
	if path.IsAbs(systemID) {
		return systemID
	}
	return path.Join(path.Dir(base), systemID)
}
