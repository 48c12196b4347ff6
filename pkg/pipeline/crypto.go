package pipeline

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
)

// Encrypted stream layout:
//
//	[salt: 16] [nonce prefix: 16] frame*
//	frame := [sealed length: 4, big endian] [sealed bytes]
//
// Each frame seals up to frameSize plaintext bytes under
// XChaCha20-Poly1305 with nonce = prefix ‖ frame counter. The final
// frame is marked in the AAD, so a stream cut off after a frame
// boundary still fails authentication instead of silently truncating.
const (
	saltSize        = 16
	noncePrefixSize = 16
	frameSize       = 64 * 1024

	// argon2id parameters for password-based key derivation
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var streamAAD = []byte("dagpipe.stream.v1")

const (
	frameMore  byte = 0x00
	frameFinal byte = 0x01
)

// deriveKey stretches a password into a 32-byte key
func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
}

func frameNonce(prefix []byte, counter uint64) []byte {
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	copy(nonce, prefix)
	binary.BigEndian.PutUint64(nonce[noncePrefixSize:], counter)
	return nonce
}

func frameAAD(flag byte) []byte {
	aad := make([]byte, len(streamAAD)+1)
	copy(aad, streamAAD)
	aad[len(streamAAD)] = flag
	return aad
}

// sealStream encrypts r under a password-derived key
func sealStream(r io.Reader, password string) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		salt := make([]byte, saltSize)
		prefix := make([]byte, noncePrefixSize)
		if _, err := rand.Read(salt); err != nil {
			pw.CloseWithError(status.ErrConfig.Wrap(err))
			return
		}
		if _, err := rand.Read(prefix); err != nil {
			pw.CloseWithError(status.ErrConfig.Wrap(err))
			return
		}

		aead, err := chacha20poly1305.NewX(deriveKey(password, salt))
		if err != nil {
			pw.CloseWithError(status.ErrConfig.Wrap(err))
			return
		}
		if _, err := pw.Write(salt); err != nil {
			return
		}
		if _, err := pw.Write(prefix); err != nil {
			return
		}

		readFrame := func() ([]byte, error) {
			buf := make([]byte, frameSize)
			n, err := io.ReadFull(r, buf)
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			return buf[:n], err
		}

		var counter uint64
		cur, err := readFrame()
		if err != nil && err != io.EOF {
			pw.CloseWithError(err)
			return
		}
		done := err == io.EOF

		for {
			flag := frameMore
			var (
				next    []byte
				nextErr error
			)
			if done {
				flag = frameFinal
			} else {
				next, nextErr = readFrame()
				if nextErr != nil && nextErr != io.EOF {
					pw.CloseWithError(nextErr)
					return
				}
				if nextErr == io.EOF && len(next) == 0 {
					// cur is the last frame with content
					flag = frameFinal
				}
			}

			sealed := aead.Seal(nil, frameNonce(prefix, counter), cur, frameAAD(flag))
			var hdr [4]byte
			binary.BigEndian.PutUint32(hdr[:], uint32(len(sealed)))
			if _, err := pw.Write(hdr[:]); err != nil {
				return
			}
			if _, err := pw.Write(sealed); err != nil {
				return
			}
			counter++

			if flag == frameFinal {
				pw.Close()
				return
			}
			cur = next
			done = nextErr == io.EOF
		}
	}()
	return pr
}

// openStream decrypts a stream produced by sealStream. A wrong
// password, tampered ciphertext or truncated stream surfaces as
// status.ErrDecrypt, never as silently corrupted output.
func openStream(r io.Reader, password string) io.ReadCloser {
	return &openReader{r: r, password: password}
}

type openReader struct {
	r        io.Reader
	password string

	aead    cipher.AEAD
	prefix  []byte
	counter uint64

	buf   []byte
	final bool
	err   error
}

func (o *openReader) init() error {
	header := make([]byte, saltSize+noncePrefixSize)
	if _, err := io.ReadFull(o.r, header); err != nil {
		return status.ErrDecrypt.WrapMessage("stream header: %v", err)
	}
	aead, err := chacha20poly1305.NewX(deriveKey(o.password, header[:saltSize]))
	if err != nil {
		return status.ErrDecrypt.Wrap(err)
	}
	o.aead = aead
	o.prefix = header[saltSize:]
	return nil
}

func (o *openReader) nextFrame() error {
	var hdr [4]byte
	if _, err := io.ReadFull(o.r, hdr[:]); err != nil {
		if err == io.EOF && o.final {
			return io.EOF
		}
		return status.ErrDecrypt.WrapMessage("truncated stream: %v", err)
	}
	if o.final {
		return status.ErrDecrypt.WrapMessage("data past the final frame")
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length > frameSize+uint32(chacha20poly1305.Overhead) {
		return status.ErrDecrypt.WrapMessage("oversized frame of %d bytes", length)
	}
	sealed := make([]byte, length)
	if _, err := io.ReadFull(o.r, sealed); err != nil {
		return status.ErrDecrypt.WrapMessage("truncated frame: %v", err)
	}

	nonce := frameNonce(o.prefix, o.counter)
	plain, err := o.aead.Open(nil, nonce, sealed, frameAAD(frameMore))
	if err != nil {
		plain, err = o.aead.Open(nil, nonce, sealed, frameAAD(frameFinal))
		if err != nil {
			return status.ErrDecrypt.WrapMessage("frame %d failed authentication", o.counter)
		}
		o.final = true
	}
	o.counter++
	o.buf = plain
	return nil
}

func (o *openReader) Read(p []byte) (int, error) {
	if o.err != nil {
		return 0, o.err
	}
	if o.aead == nil {
		if err := o.init(); err != nil {
			o.err = err
			return 0, err
		}
	}
	for len(o.buf) == 0 {
		if err := o.nextFrame(); err != nil {
			o.err = err
			return 0, err
		}
		if o.final && len(o.buf) == 0 {
			o.err = io.EOF
			return 0, io.EOF
		}
	}
	n := copy(p, o.buf)
	o.buf = o.buf[n:]
	return n, nil
}

func (o *openReader) Close() error {
	if c, ok := o.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
