package resource

import (
	"errors"
	"io"
	"io/fs"
	"os"

	E "github.com/sagernet/sing-fetch/common/exceptions"

	"github.com/ulikunitz/xz"
)

const xzSuffix = ".xz"

type Option func(*fsResolver)

// WithXZ makes the resolver fall back to "<name>.xz" when name itself is
// missing, serving the decompressed stream.
func WithXZ() Option {
	return func(r *fsResolver) {
		r.xz = true
	}
}

type fsResolver struct {
	fsys fs.FS
	xz   bool
}

// Dir serves the regular files below root.
func Dir(root string, options ...Option) Resolver {
	return FS(os.DirFS(root), options...)
}

func FS(fsys fs.FS, options ...Option) Resolver {
	resolver := &fsResolver{fsys: fsys}
	for _, option := range options {
		option(resolver)
	}
	return resolver
}

func (r *fsResolver) Resolve(name string) (Resource, error) {
	cleaned, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	resource, err := r.open(cleaned)
	if err == nil || !r.xz || !errors.Is(err, ErrNotFound) {
		return resource, err
	}
	compressed, xzErr := r.open(cleaned + xzSuffix)
	if xzErr != nil {
		return nil, err
	}
	reader, xzErr := xz.NewReader(compressed)
	if xzErr != nil {
		compressed.Close()
		return nil, E.Cause(xzErr, "open xz stream ", cleaned+xzSuffix)
	}
	return &xzResource{reader, compressed}, nil
}

func (r *fsResolver) open(name string) (Resource, error) {
	file, err := r.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, E.Extend(ErrNotFound, name)
		}
		return nil, E.Cause(err, "open ", name)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, E.Cause(err, "stat ", name)
	}
	if !info.Mode().IsRegular() {
		file.Close()
		return nil, E.Extend(ErrNotFound, name)
	}
	return &fileResource{file, info.Size()}, nil
}

type fileResource struct {
	fs.File
	size int64
}

func (r *fileResource) Size() int64 {
	return r.size
}

type xzResource struct {
	reader     io.Reader
	compressed io.Closer
}

func (r *xzResource) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

func (r *xzResource) Size() int64 {
	return -1
}

func (r *xzResource) Close() error {
	return r.compressed.Close()
}
