// Package resource maps request names to readable byte streams.
package resource

import (
	"bytes"
	"io"
	"path"
	"strings"

	E "github.com/sagernet/sing-fetch/common/exceptions"
)

var (
	ErrNotFound    = E.New("resource not found")
	ErrInvalidName = E.New("invalid resource name")
)

// Resource is an open byte stream. Size returns -1 when the length is unknown
// before the stream is read, as for decompressed content.
type Resource interface {
	io.ReadCloser
	Size() int64
}

// Resolver looks a name up. Unknown names yield an error matching
// ErrNotFound. Implementations must return quickly: local lookups are fine,
// network round trips are not.
type Resolver interface {
	Resolve(name string) (Resource, error)
}

type ResolverFunc func(name string) (Resource, error)

func (f ResolverFunc) Resolve(name string) (Resource, error) {
	return f(name)
}

// ValidateName cleans a requested name and rejects anything that could
// escape the resource root: absolute paths, parent references, NUL bytes and
// backslashes.
func ValidateName(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "\x00\\") {
		return "", E.Extend(ErrInvalidName, name)
	}
	if strings.HasPrefix(name, "/") {
		return "", E.Extend(ErrInvalidName, name)
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", E.Extend(ErrInvalidName, name)
	}
	return cleaned, nil
}

type memoryResource struct {
	*bytes.Reader
	size int64
}

func (r *memoryResource) Size() int64 {
	return r.size
}

func (r *memoryResource) Close() error {
	return nil
}

func NewMemoryResource(content []byte) Resource {
	return &memoryResource{bytes.NewReader(content), int64(len(content))}
}

type mapResolver map[string][]byte

// Map serves a fixed in-memory table. The content slices are not copied and
// must not be modified afterwards.
func Map(entries map[string][]byte) Resolver {
	return mapResolver(entries)
}

func (m mapResolver) Resolve(name string) (Resource, error) {
	content, loaded := m[name]
	if !loaded {
		return nil, E.Extend(ErrNotFound, name)
	}
	return NewMemoryResource(content), nil
}
