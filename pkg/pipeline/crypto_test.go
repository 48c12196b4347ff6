package pipeline

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/dagpipe/pkg/pipeline/status"
)

func randomBytes(t testing.TB, size int) []byte {
	t.Helper()
	b := make([]byte, size)
	rnd := rand.New(rand.NewSource(int64(size) + 1))
	_, err := rnd.Read(b)
	require.NoError(t, err)
	return b
}

func sealToBytes(t *testing.T, plain []byte, password string) []byte {
	t.Helper()
	rc := sealStream(bytes.NewReader(plain), password)
	defer rc.Close()
	sealed, err := io.ReadAll(rc)
	require.NoError(t, err)
	return sealed
}

func TestSealOpenRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 100, frameSize - 1, frameSize, frameSize + 1, 3*frameSize + 17} {
		plain := randomBytes(t, size)

		sealed := sealToBytes(t, plain, "s3cr3t")
		require.Greater(t, len(sealed), len(plain), "size %d", size)

		rc := openStream(bytes.NewReader(sealed), "s3cr3t")
		opened, err := io.ReadAll(rc)
		require.NoError(t, err, "size %d", size)
		require.NoError(t, rc.Close())
		assert.Equal(t, plain, opened, "size %d", size)
	}
}

func TestSealFreshSaltPerStream(t *testing.T) {
	plain := randomBytes(t, 1000)
	first := sealToBytes(t, plain, "s3cr3t")
	second := sealToBytes(t, plain, "s3cr3t")
	// same plaintext, same password: the random salt and nonce prefix
	// still make the streams distinct
	assert.NotEqual(t, first, second)
}

func TestOpenWrongPassword(t *testing.T) {
	sealed := sealToBytes(t, randomBytes(t, 500), "s3cr3t")

	rc := openStream(bytes.NewReader(sealed), "not-the-password")
	_, err := io.ReadAll(rc)
	require.Error(t, err)
	assert.ErrorIs(t, err, status.ErrDecrypt)
}

func TestOpenTamperedFrame(t *testing.T) {
	sealed := sealToBytes(t, randomBytes(t, 2*frameSize), "s3cr3t")

	// flip one ciphertext byte past the header
	corrupted := append([]byte(nil), sealed...)
	corrupted[saltSize+noncePrefixSize+10] ^= 0x01

	rc := openStream(bytes.NewReader(corrupted), "s3cr3t")
	_, err := io.ReadAll(rc)
	assert.ErrorIs(t, err, status.ErrDecrypt)
}

func TestOpenTruncatedStream(t *testing.T) {
	sealed := sealToBytes(t, randomBytes(t, 2*frameSize), "s3cr3t")

	// the second frame starts right after the first sealed frame
	frameStart := saltSize + noncePrefixSize
	firstFrameEnd := frameStart + 4 + frameSize + 16

	for name, cut := range map[string]int{
		"mid header":           frameStart - 5,
		"mid frame":            frameStart + 100,
		"after complete frame": firstFrameEnd,
	} {
		rc := openStream(bytes.NewReader(sealed[:cut]), "s3cr3t")
		_, err := io.ReadAll(rc)
		assert.ErrorIs(t, err, status.ErrDecrypt, name)
	}
}

func TestOpenRejectsTrailingData(t *testing.T) {
	sealed := sealToBytes(t, randomBytes(t, 100), "s3cr3t")
	sealed = append(sealed, 0xde, 0xad, 0xbe, 0xef)

	rc := openStream(bytes.NewReader(sealed), "s3cr3t")
	_, err := io.ReadAll(rc)
	assert.ErrorIs(t, err, status.ErrDecrypt)
}

func TestCompressDecompressRoundTrip(t *testing.T) {
	plain := bytes.Repeat([]byte("compressible content "), 10000)

	cr := compressStream(bytes.NewReader(plain))
	compressed, err := io.ReadAll(cr)
	require.NoError(t, err)
	require.NoError(t, cr.Close())
	assert.Less(t, len(compressed), len(plain))

	dr, err := decompressStream(bytes.NewReader(compressed))
	require.NoError(t, err)
	out, err := io.ReadAll(dr)
	require.NoError(t, err)
	require.NoError(t, dr.Close())
	assert.Equal(t, plain, out)
}
