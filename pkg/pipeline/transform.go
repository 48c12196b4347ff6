package pipeline

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
)

// Names of the stream transforms recorded in metadata descriptors.
// These values are part of the published format and must never change.
const (
	// CompressionZstd is the only compression algorithm currently applied
	CompressionZstd = "zstd"

	// EncryptionXChaCha20 is the only encryption algorithm currently applied
	EncryptionXChaCha20 = "xchacha20poly1305"

	// KdfArgon2id flags the key derivation used for password-based encryption
	KdfArgon2id = "argon2id"
)

// compressStream compresses r as a zstd stream
func compressStream(r io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		enc, err := zstd.NewWriter(pw, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			pw.CloseWithError(status.ErrConfig.Wrap(err))
			return
		}
		if _, err := io.Copy(enc, r); err != nil {
			_ = enc.Close()
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(enc.Close())
	}()
	return pr
}

// decompressStream is the inverse of compressStream
func decompressStream(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, status.ErrIntegrity.WrapMessage("zstd stream: %v", err)
	}
	return dec.IOReadCloser(), nil
}
