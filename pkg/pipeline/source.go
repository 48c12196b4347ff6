package pipeline

import (
	"bytes"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
)

const writeFlags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC

// Source is a lazy byte producer with declared metadata. Filesystem
// path resolution and buffer wrapping are adapters around this
// interface: the pipeline itself never touches paths.
type Source interface {
	Name() string
	MimeType() string
	Size() uint64
	Open() (io.ReadCloser, error)
}

// NewBufferSource wraps an in-memory buffer as a Source
func NewBufferSource(name, mimeType string, data []byte) Source {
	return &bufferSource{name: name, mimeType: mimeType, data: data}
}

type bufferSource struct {
	name     string
	mimeType string
	data     []byte
}

func (s *bufferSource) Name() string     { return s.name }
func (s *bufferSource) MimeType() string { return s.mimeType }
func (s *bufferSource) Size() uint64     { return uint64(len(s.data)) }
func (s *bufferSource) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

// NewFileSource wraps a file on an afero file system as a Source.
// The mime type is derived from the file extension when not provided.
func NewFileSource(fs afero.Fs, path, mimeType string) (Source, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return nil, status.ErrConfig.WrapMessage("source %q: %v", path, err)
	}
	if fi.IsDir() {
		return nil, status.ErrConfig.WrapMessage("source %q is a directory", path)
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
	}
	return &fileSource{
		fs:       fs,
		path:     path,
		name:     filepath.Base(path),
		mimeType: mimeType,
		size:     uint64(fi.Size()),
	}, nil
}

type fileSource struct {
	fs       afero.Fs
	path     string
	name     string
	mimeType string
	size     uint64
}

func (s *fileSource) Name() string     { return s.name }
func (s *fileSource) MimeType() string { return s.mimeType }
func (s *fileSource) Size() uint64     { return s.size }
func (s *fileSource) Open() (io.ReadCloser, error) {
	f, err := s.fs.Open(s.path)
	if err != nil {
		return nil, status.ErrConfig.WrapMessage("source %q: %v", s.path, err)
	}
	return f, nil
}

// FileSink receives downloaded content. Paths are slash-separated and
// relative to the download root; a bare file download uses the
// metadata name as its path. MkDir is called for every folder in the
// tree, so empty directories survive the round trip.
type FileSink interface {
	WriteFile(path string, size uint64, r io.Reader) error
	MkDir(path string) error
}

// FileSinkFunc adapts a function to the FileSink interface, ignoring
// directories
type FileSinkFunc func(path string, size uint64, r io.Reader) error

// WriteFile calls f
func (f FileSinkFunc) WriteFile(path string, size uint64, r io.Reader) error {
	return f(path, size, r)
}

// MkDir is a no-op
func (f FileSinkFunc) MkDir(string) error { return nil }

// NewAferoSink writes downloaded content under root on an afero file system
func NewAferoSink(fs afero.Fs, root string) FileSink {
	return &aferoSink{fs: fs, root: root}
}

type aferoSink struct {
	fs   afero.Fs
	root string
}

func (s *aferoSink) MkDir(path string) error {
	return s.fs.MkdirAll(filepath.Join(s.root, filepath.FromSlash(path)), 0755)
}

func (s *aferoSink) WriteFile(path string, _ uint64, r io.Reader) error {
	target := filepath.Join(s.root, filepath.FromSlash(path))
	if dir := filepath.Dir(target); dir != "" {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	w, err := s.fs.OpenFile(target, writeFlags, 0644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
