// Package dagcid computes and parses the content identifiers addressing
// canonical node encodings.
//
// A CID is {codec, hash algorithm, digest}. Two nodes with identical
// canonical bytes always produce identical CIDs. CIDs compare by
// structural equality of all three fields, never by string form.
package dagcid

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"

	"github.com/oneconcern/dagpipe/pkg/errors"
)

// ErrCidParse indicates a malformed CID string or an unsupported codec/hash
var ErrCidParse = errors.New("invalid cid")

// DefaultHash is the multihash code used when no digest algorithm is configured
const DefaultHash = multihash.SHA2_256

// supportedHashes are the digest algorithms a pipeline may be configured with
var supportedHashes = map[uint64]string{
	multihash.SHA2_256:         "sha2-256",
	multihash.BLAKE2B_MIN + 31: "blake2b-256",
	multihash.BLAKE3:           "blake3",
}

// supportedCodecs are the multicodecs node encodings are addressed under
var supportedCodecs = map[uint64]string{
	cid.Raw:     "raw",
	cid.DagCBOR: "dag-cbor",
}

// HashByName resolves a digest algorithm name to its multihash code
func HashByName(name string) (uint64, error) {
	for code, n := range supportedHashes {
		if n == name {
			return code, nil
		}
	}
	return 0, ErrCidParse.WrapMessage("unsupported hash algorithm %q", name)
}

// HashName returns the name of a supported multihash code
func HashName(code uint64) string {
	return supportedHashes[code]
}

// CodecName returns the name of a supported multicodec
func CodecName(codec uint64) string {
	return supportedCodecs[codec]
}

// Sum hashes canonical bytes into a CIDv1 under the given codec
func Sum(codec, mhCode uint64, data []byte) (cid.Cid, error) {
	if _, ok := supportedCodecs[codec]; !ok {
		return cid.Undef, ErrCidParse.WrapMessage("unsupported codec %#x", codec)
	}
	if _, ok := supportedHashes[mhCode]; !ok {
		return cid.Undef, ErrCidParse.WrapMessage("unsupported hash %#x", mhCode)
	}
	sum, err := multihash.Sum(data, mhCode, -1)
	if err != nil {
		return cid.Undef, ErrCidParse.Wrap(err)
	}
	return cid.NewCidV1(codec, sum), nil
}

// Verify recomputes the digest of data under c's codec and hash and
// reports whether it matches c. Used to check downloaded bytes against
// the CID they were requested under.
func Verify(c cid.Cid, data []byte) (bool, error) {
	prefix := c.Prefix()
	recomputed, err := Sum(prefix.Codec, prefix.MhType, data)
	if err != nil {
		return false, err
	}
	return c.Equals(recomputed), nil
}

// Parse decodes the multibase string form of a CID and validates that
// its codec, hash algorithm and digest length are ones this system
// produces. The result round-trips: Parse(c.String()) == c.
func Parse(s string) (cid.Cid, error) {
	c, err := cid.Decode(s)
	if err != nil {
		return cid.Undef, ErrCidParse.Wrap(err)
	}
	prefix := c.Prefix()
	if _, ok := supportedCodecs[prefix.Codec]; !ok {
		return cid.Undef, ErrCidParse.WrapMessage("unsupported codec %#x", prefix.Codec)
	}
	if _, ok := supportedHashes[prefix.MhType]; !ok {
		return cid.Undef, ErrCidParse.WrapMessage("unsupported hash %#x", prefix.MhType)
	}
	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return cid.Undef, ErrCidParse.Wrap(err)
	}
	if decoded.Length != 32 {
		return cid.Undef, ErrCidParse.WrapMessage("unexpected digest length %d", decoded.Length)
	}
	return c, nil
}

// Format renders a CID in an alternate multibase. The default String
// form uses base32; the identity of the CID is unchanged by the textual
// base, which is why equality is structural, never string comparison.
func Format(c cid.Cid, base multibase.Encoding) (string, error) {
	s, err := c.StringOfBase(base)
	if err != nil {
		return "", ErrCidParse.Wrap(err)
	}
	return s, nil
}
