// Copyright © 2018 One Concern

// Package localfs provides a local file system backed blob store.
//
// Objects are laid out in a shallow fan-out under the base directory
// (e.g. bafy.../baf/y12/rest) so very large stores do not degrade into
// a single directory with millions of entries.
package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/oneconcern/dagpipe/pkg/storage"
	"github.com/oneconcern/dagpipe/pkg/storage/status"
	"github.com/spf13/afero"
)

// New creates a new local file system backed storage model
func New(fs afero.Fs) storage.Store {
	if fs == nil {
		fs = afero.NewBasePathFs(afero.NewOsFs(), filepath.Join(".dagpipe", "objects"))
	}
	return &localFS{
		fs: fs,
	}
}

type localFS struct {
	fs afero.Fs
}

func (l *localFS) String() string {
	return "localfs"
}

// pathOf fans a key out over two directory levels
func pathOf(key cid.Cid) string {
	s := key.String()
	if len(s) < 7 {
		return s
	}
	return filepath.Join(s[:3], s[3:6], s[6:])
}

func (l *localFS) Has(ctx context.Context, key cid.Cid) (bool, error) {
	if !key.Defined() {
		return false, status.ErrInvalidKey
	}
	fi, err := l.fs.Stat(pathOf(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, status.ErrTransfer.Wrap(err)
	}
	return !fi.IsDir(), nil
}

func (l *localFS) Get(ctx context.Context, key cid.Cid) (io.ReadCloser, error) {
	has, err := l.Has(ctx, key)
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, status.ErrNotFound
	}
	t, err := l.fs.Open(pathOf(key))
	if err != nil {
		return nil, status.ErrTransfer.Wrap(err)
	}
	return t, nil
}

func (l *localFS) Put(ctx context.Context, key cid.Cid, source io.Reader) error {
	has, err := l.Has(ctx, key)
	if err != nil {
		return err
	}
	if has {
		// the object is content-addressed and immutable: nothing to do
		return nil
	}

	target := pathOf(key)
	if dir := filepath.Dir(target); dir != "" {
		if err := l.fs.MkdirAll(dir, 0700); err != nil {
			return status.ErrTransfer.WrapMessage("ensuring directories for %q: %v", key, err)
		}
	}

	// write to a temporary name, then rename: a crashed writer never
	// leaves a truncated object under its final key
	tmp := target + ".partial"
	w, err := l.fs.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return status.ErrTransfer.WrapMessage("create record for %q: %v", key, err)
	}
	if _, err = storage.PipeIO(w, source); err != nil {
		_ = w.Close()
		_ = l.fs.Remove(tmp)
		return status.ErrTransfer.WrapMessage("write record for %q: %v", key, err)
	}
	if err = w.Close(); err != nil {
		_ = l.fs.Remove(tmp)
		return status.ErrTransfer.Wrap(err)
	}
	if err = l.fs.Rename(tmp, target); err != nil {
		_ = l.fs.Remove(tmp)
		return status.ErrTransfer.Wrap(err)
	}
	return nil
}

func (l *localFS) Delete(ctx context.Context, key cid.Cid) error {
	if !key.Defined() {
		return status.ErrInvalidKey
	}
	if err := l.fs.Remove(pathOf(key)); err != nil {
		if os.IsNotExist(err) {
			return status.ErrNotFound
		}
		return status.ErrTransfer.Wrap(err)
	}
	return nil
}

func (l *localFS) Keys(ctx context.Context) ([]cid.Cid, error) {
	var keys []cid.Cid
	err := afero.Walk(l.fs, ".", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".partial") {
			return nil
		}
		key, kerr := cid.Decode(strings.Join(strings.Split(filepath.ToSlash(path), "/"), ""))
		if kerr != nil {
			// not one of ours, skip
			return nil
		}
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return nil, status.ErrTransfer.Wrap(err)
	}
	return keys, nil
}

func (l *localFS) Clear(ctx context.Context) error {
	fis, err := afero.ReadDir(l.fs, ".")
	if err != nil {
		return status.ErrTransfer.Wrap(err)
	}
	for _, fi := range fis {
		if err := l.fs.RemoveAll(fi.Name()); err != nil {
			return status.ErrTransfer.Wrap(err)
		}
	}
	return nil
}
