package node

import (
	stderr "errors"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer encoding,
// no indefinite-length items. Same logical node always produces
// identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("node: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic("node: CBOR decoder initialization failed: " + err.Error())
	}
}

// wire representations. Field names are part of the canonical encoding
// and must never change.

type wireEntry struct {
	Cid  []byte `cbor:"cid"`
	Kind string `cbor:"kind"`
	Name string `cbor:"name"`
	Size uint64 `cbor:"size"`
}

type wireFile struct {
	Inline []byte   `cbor:"data,omitempty"`
	Kind   string   `cbor:"kind"`
	Links  [][]byte `cbor:"links,omitempty"`
	Size   uint64   `cbor:"size"`
}

type wireFolder struct {
	Entries []wireEntry `cbor:"entries"`
	Kind    string      `cbor:"kind"`
	Size    uint64      `cbor:"size"`
}

type wireEncryption struct {
	Algorithm string   `cbor:"algo"`
	Flags     []string `cbor:"flags,omitempty"`
}

type wireCompression struct {
	Algorithm string `cbor:"algo"`
}

type wireMeta struct {
	Compression *wireCompression `cbor:"comp,omitempty"`
	Data        []byte           `cbor:"data"`
	Encryption  *wireEncryption  `cbor:"enc,omitempty"`
	Kind        string           `cbor:"kind"`
	Mime        string           `cbor:"mime"`
	Name        string           `cbor:"name"`
	Size        uint64           `cbor:"size"`
}

// kindProbe pulls the variant tag out of an encoded node before the
// full decode commits to a shape
type kindProbe struct {
	Kind string `cbor:"kind"`
}

// Encode produces the canonical byte encoding of a node.
//
// The encoding is a pure function of the node's contents: field order,
// integer widths and link ordering are fixed. Encode never performs I/O.
func Encode(n Node) ([]byte, error) {
	if err := Validate(n); err != nil {
		return nil, err
	}

	switch v := n.(type) {
	case *ChunkNode:
		// identity encoding under the raw codec
		out := make([]byte, len(v.Data))
		copy(out, v.Data)
		return out, nil

	case *FileNode:
		w := wireFile{
			Kind:   KindFile.String(),
			Size:   v.Size,
			Inline: v.Inline,
		}
		if len(v.Links) > 0 {
			w.Links = make([][]byte, len(v.Links))
			for i, l := range v.Links {
				w.Links[i] = l.Bytes()
			}
		}
		return marshal(w)

	case *FolderNode:
		w := wireFolder{
			Kind:    KindFolder.String(),
			Size:    v.Size,
			Entries: make([]wireEntry, len(v.Entries)),
		}
		for i, e := range v.Entries {
			w.Entries[i] = wireEntry{
				Cid:  e.Cid.Bytes(),
				Kind: string(e.Kind),
				Name: e.Name,
				Size: e.Size,
			}
		}
		return marshal(w)

	case *MetaNode:
		w := wireMeta{
			Kind: KindMeta.String(),
			Name: v.Name,
			Mime: v.MimeType,
			Size: v.Size,
			Data: v.Data.Bytes(),
		}
		if v.Encryption != nil {
			w.Encryption = &wireEncryption{Algorithm: v.Encryption.Algorithm, Flags: v.Encryption.Flags}
		}
		if v.Compression != nil {
			w.Compression = &wireCompression{Algorithm: v.Compression.Algorithm}
		}
		return marshal(w)

	default:
		return nil, ErrUnknownKind.WrapMessage("%T", n)
	}
}

func marshal(w interface{}) ([]byte, error) {
	b, err := encMode.Marshal(w)
	if err != nil {
		return nil, ErrEncode.Wrap(err)
	}
	return b, nil
}

// Decode is the exact inverse of Encode: decode(encode(n)) == n for all
// valid nodes. The codec of the addressing CID selects between the raw
// chunk identity encoding and the dag-cbor structured encoding.
func Decode(codec uint64, data []byte) (Node, error) {
	switch codec {
	case cid.Raw:
		out := make([]byte, len(data))
		copy(out, data)
		return &ChunkNode{Data: out}, nil
	case cid.DagCBOR:
		return decodeCBOR(data)
	default:
		return nil, ErrUnknownKind.WrapMessage("multicodec %#x", codec)
	}
}

// decodeErr separates encodings cut short (the decoder ran off the end
// of the buffer) from bytes that are not CBOR at all
func decodeErr(err error) error {
	if stderr.Is(err, io.ErrUnexpectedEOF) || stderr.Is(err, io.EOF) {
		return ErrTruncated.Wrap(err)
	}
	return ErrMalformed.Wrap(err)
}

func decodeCBOR(data []byte) (Node, error) {
	var probe kindProbe
	if err := decMode.Unmarshal(data, &probe); err != nil {
		return nil, decodeErr(err)
	}

	var (
		n   Node
		err error
	)
	switch probe.Kind {
	case KindFile.String():
		n, err = decodeFile(data)
	case KindFolder.String():
		n, err = decodeFolder(data)
	case KindMeta.String():
		n, err = decodeMeta(data)
	default:
		return nil, ErrUnknownKind.WrapMessage("%q", probe.Kind)
	}
	if err != nil {
		return nil, err
	}
	if verr := Validate(n); verr != nil {
		return nil, verr
	}
	return n, nil
}

func decodeFile(data []byte) (Node, error) {
	var w wireFile
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, decodeErr(err)
	}
	n := &FileNode{Size: w.Size, Inline: w.Inline}
	if len(w.Links) > 0 {
		n.Links = make([]cid.Cid, len(w.Links))
		for i, raw := range w.Links {
			l, err := cid.Cast(raw)
			if err != nil {
				return nil, ErrInvalidField.WrapMessage("file link %d: %v", i, err)
			}
			n.Links[i] = l
		}
	}
	if n.IsInline() && n.Inline == nil {
		// an inline file always carries a payload slice, possibly empty
		n.Inline = []byte{}
	}
	return n, nil
}

func decodeFolder(data []byte) (Node, error) {
	var w wireFolder
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, decodeErr(err)
	}
	n := &FolderNode{Size: w.Size, Entries: make([]Entry, len(w.Entries))}
	for i, e := range w.Entries {
		c, err := cid.Cast(e.Cid)
		if err != nil {
			return nil, ErrInvalidField.WrapMessage("folder entry %d: %v", i, err)
		}
		n.Entries[i] = Entry{
			Name: e.Name,
			Cid:  c,
			Size: e.Size,
			Kind: EntryKind(e.Kind),
		}
	}
	return n, nil
}

func decodeMeta(data []byte) (Node, error) {
	var w wireMeta
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, decodeErr(err)
	}
	c, err := cid.Cast(w.Data)
	if err != nil {
		return nil, ErrInvalidField.WrapMessage("meta data cid: %v", err)
	}
	n := &MetaNode{
		Name:     w.Name,
		MimeType: w.Mime,
		Size:     w.Size,
		Data:     c,
	}
	if w.Encryption != nil {
		n.Encryption = &EncryptionInfo{Algorithm: w.Encryption.Algorithm, Flags: w.Encryption.Flags}
	}
	if w.Compression != nil {
		n.Compression = &CompressionInfo{Algorithm: w.Compression.Algorithm}
	}
	return n, nil
}
