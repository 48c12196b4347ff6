package dagcid

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
	"github.com/stretchr/testify/require"

	"github.com/oneconcern/dagpipe/pkg/errors"
)

func TestSumContentAddressing(t *testing.T) {
	data := []byte("same bytes, same address")

	c1, err := Sum(cid.Raw, DefaultHash, data)
	require.NoError(t, err)
	c2, err := Sum(cid.Raw, DefaultHash, data)
	require.NoError(t, err)
	require.True(t, c1.Equals(c2))

	c3, err := Sum(cid.Raw, DefaultHash, []byte("different bytes"))
	require.NoError(t, err)
	require.False(t, c1.Equals(c3))

	// the codec participates in identity
	c4, err := Sum(cid.DagCBOR, DefaultHash, data)
	require.NoError(t, err)
	require.False(t, c1.Equals(c4))
}

func TestSumRejectsUnsupported(t *testing.T) {
	_, err := Sum(cid.DagProtobuf, DefaultHash, []byte("x"))
	require.True(t, errors.Is(err, ErrCidParse))

	_, err = Sum(cid.Raw, multihash.MD5, []byte("x"))
	require.True(t, errors.Is(err, ErrCidParse))
}

func TestStringRoundTrip(t *testing.T) {
	for _, mh := range []uint64{multihash.SHA2_256, multihash.BLAKE2B_MIN + 31, multihash.BLAKE3} {
		c, err := Sum(cid.DagCBOR, mh, []byte("round trip me"))
		require.NoError(t, err)

		back, err := Parse(c.String())
		require.NoError(t, err)
		require.True(t, c.Equals(back))
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not-a-cid",
		"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdiZZZ", // corrupted multibase payload
		"Qm", // too short
	}
	for _, s := range cases {
		_, err := Parse(s)
		require.True(t, errors.Is(err, ErrCidParse), "expected parse failure for %q, got %v", s, err)
	}
}

func TestParseRejectsForeignCids(t *testing.T) {
	// a valid CID under a codec this system never produces
	sum, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	require.NoError(t, err)
	foreign := cid.NewCidV1(cid.DagProtobuf, sum)

	_, err = Parse(foreign.String())
	require.True(t, errors.Is(err, ErrCidParse))
}

func TestVerify(t *testing.T) {
	data := []byte("verify me")
	c, err := Sum(cid.Raw, DefaultHash, data)
	require.NoError(t, err)

	ok, err := Verify(c, data)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Verify(c, []byte("tampered"))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFormatAlternateBase(t *testing.T) {
	c, err := Sum(cid.Raw, DefaultHash, []byte("based"))
	require.NoError(t, err)

	s, err := Format(c, multibase.Base58BTC)
	require.NoError(t, err)
	require.NotEqual(t, c.String(), s)

	// alternate textual forms decode to the same structural identity
	back, err := Parse(s)
	require.NoError(t, err)
	require.True(t, c.Equals(back))
}

func TestHashByName(t *testing.T) {
	code, err := HashByName("blake3")
	require.NoError(t, err)
	require.Equal(t, uint64(multihash.BLAKE3), code)

	_, err = HashByName("crc32")
	require.True(t, errors.Is(err, ErrCidParse))
}
