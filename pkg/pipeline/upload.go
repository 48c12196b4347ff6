package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/oneconcern/dagpipe/pkg/dag"
	"github.com/oneconcern/dagpipe/pkg/node"
	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
)

// FolderMimeType is recorded on metadata roots covering a directory tree
const FolderMimeType = "inode/directory"

// UploadFile uploads one byte source and returns the CID of its
// metadata root. The payload is compressed, then encrypted, then
// chunked, per the configured transforms; children are transmitted
// before the nodes that link them.
func (p *Pipeline) UploadFile(ctx context.Context, src Source, opts ...TransferOption) (cid.Cid, error) {
	o := newTransferOptions(opts)
	t := newTracker(TransferUpload, src.Size(), o.events)
	defer t.finish()

	sink := newCasSink(p.store, p.concurrency, p.l)
	b, err := p.builder(sink)
	if err != nil {
		return cid.Undef, err
	}

	dataKey, err := p.uploadData(ctx, b, src, o, t)
	if err != nil {
		return cid.Undef, err
	}

	comp, enc := o.descriptors()
	root, err := b.Metadata(ctx, &node.MetaNode{
		Name:        src.Name(),
		MimeType:    src.MimeType(),
		Size:        src.Size(),
		Encryption:  enc,
		Compression: comp,
		Data:        dataKey,
	})
	if err != nil {
		return cid.Undef, err
	}
	if err := sink.flush(); err != nil {
		return cid.Undef, err
	}
	p.l.Info("uploaded file",
		zap.Stringer("cid", root),
		zap.String("name", src.Name()),
		zap.Uint64("size", src.Size()),
	)
	return root, nil
}

// UploadPath uploads the file or directory tree rooted at path
func (p *Pipeline) UploadPath(ctx context.Context, fs afero.Fs, path string, opts ...TransferOption) (cid.Cid, error) {
	fi, err := fs.Stat(path)
	if err != nil {
		return cid.Undef, status.ErrConfig.WrapMessage("upload %q: %v", path, err)
	}
	if !fi.IsDir() {
		src, err := NewFileSource(fs, path, "")
		if err != nil {
			return cid.Undef, err
		}
		return p.UploadFile(ctx, src, opts...)
	}

	o := newTransferOptions(opts)
	total, err := treeSize(fs, path)
	if err != nil {
		return cid.Undef, err
	}
	t := newTracker(TransferUpload, total, o.events)
	defer t.finish()

	sink := newCasSink(p.store, p.concurrency, p.l)
	b, err := p.builder(sink)
	if err != nil {
		return cid.Undef, err
	}

	folderKey, folderSize, err := p.uploadDir(ctx, b, fs, path, o, t)
	if err != nil {
		return cid.Undef, err
	}

	comp, enc := o.descriptors()
	root, err := b.Metadata(ctx, &node.MetaNode{
		Name:        filepath.Base(path),
		MimeType:    FolderMimeType,
		Size:        folderSize,
		Encryption:  enc,
		Compression: comp,
		Data:        folderKey,
	})
	if err != nil {
		return cid.Undef, err
	}
	if err := sink.flush(); err != nil {
		return cid.Undef, err
	}
	p.l.Info("uploaded tree",
		zap.Stringer("cid", root),
		zap.String("path", path),
		zap.Uint64("size", folderSize),
	)
	return root, nil
}

// uploadData streams one source through the configured transforms and
// builds its file DAG
func (p *Pipeline) uploadData(ctx context.Context, b *dag.Builder, src Source, o *transferOptions, t *tracker) (cid.Cid, error) {
	rc, err := src.Open()
	if err != nil {
		return cid.Undef, err
	}
	defer rc.Close()

	var r io.Reader = &countingReader{r: rc, t: t}
	if o.compress {
		cr := compressStream(r)
		defer cr.Close()
		r = cr
	}
	if o.password != "" {
		er := sealStream(r, o.password)
		defer er.Close()
		r = er
	}

	key, _, err := b.File(ctx, r)
	if err != nil {
		if ctx.Err() != nil {
			return cid.Undef, status.ErrInterrupted.Wrap(ctx.Err())
		}
		return cid.Undef, err
	}
	return key, nil
}

// uploadDir walks a directory depth-first, uploading files and building
// folder nodes bottom-up. Entries keep the file system's name order.
func (p *Pipeline) uploadDir(ctx context.Context, b *dag.Builder, fs afero.Fs, dir string, o *transferOptions, t *tracker) (cid.Cid, uint64, error) {
	infos, err := afero.ReadDir(fs, dir)
	if err != nil {
		return cid.Undef, 0, status.ErrConfig.WrapMessage("read dir %q: %v", dir, err)
	}

	entries := make([]node.Entry, 0, len(infos))
	for _, fi := range infos {
		child := filepath.Join(dir, fi.Name())
		if fi.IsDir() {
			key, size, err := p.uploadDir(ctx, b, fs, child, o, t)
			if err != nil {
				return cid.Undef, 0, err
			}
			entries = append(entries, node.Entry{Name: fi.Name(), Cid: key, Size: size, Kind: node.EntryFolder})
			continue
		}
		src, err := NewFileSource(fs, child, "")
		if err != nil {
			return cid.Undef, 0, err
		}
		key, err := p.uploadData(ctx, b, src, o, t)
		if err != nil {
			return cid.Undef, 0, err
		}
		entries = append(entries, node.Entry{Name: fi.Name(), Cid: key, Size: src.Size(), Kind: node.EntryFile})
	}
	return b.Folder(ctx, entries)
}

func treeSize(fs afero.Fs, root string) (uint64, error) {
	var total uint64
	err := afero.Walk(fs, root, func(_ string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !fi.IsDir() {
			total += uint64(fi.Size())
		}
		return nil
	})
	if err != nil {
		return 0, status.ErrConfig.WrapMessage("walk %q: %v", root, err)
	}
	return total, nil
}
