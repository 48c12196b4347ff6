package node

import (
	"github.com/ipfs/go-cid"
)

// Kind discriminates the node variants
type Kind uint8

const (
	// KindChunk is a raw leaf segment
	KindChunk Kind = iota + 1
	// KindFile is an ordered sequence of chunk links, or an inline payload
	KindFile
	// KindFolder is an ordered sequence of named entries
	KindFolder
	// KindMeta is the presentation record published as a transfer root
	KindMeta
)

func (k Kind) String() string {
	switch k {
	case KindChunk:
		return "chunk"
	case KindFile:
		return "file"
	case KindFolder:
		return "folder"
	case KindMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// Node is the atomic DAG vertex. Implementations are exactly ChunkNode,
// FileNode, FolderNode and MetaNode: consumers dispatch with a type switch.
//
// Nodes are immutable once their CID has been computed.
type Node interface {
	Kind() Kind

	// Codec is the multicodec under which this variant's canonical
	// encoding is addressed
	Codec() uint64

	sealed()
}

// ChunkNode holds one raw leaf segment. It has no children.
type ChunkNode struct {
	Data []byte
}

func (n *ChunkNode) Kind() Kind    { return KindChunk }
func (n *ChunkNode) Codec() uint64 { return cid.Raw }
func (n *ChunkNode) sealed()       {}

// FileNode references the ordered chunks of a file, or carries the whole
// payload inline when the file fits in a single chunk.
//
// Exactly one of Links and Inline is meaningful: an inline file has no
// links, and a linked file has no inline payload. Inline is never nil for
// an inline file, so a zero-length file is representable.
type FileNode struct {
	Links  []cid.Cid
	Size   uint64
	Inline []byte
}

func (n *FileNode) Kind() Kind    { return KindFile }
func (n *FileNode) Codec() uint64 { return cid.DagCBOR }
func (n *FileNode) sealed()       {}

// IsInline reports whether the file payload is carried inline
func (n *FileNode) IsInline() bool { return len(n.Links) == 0 }

// EntryKind tags a folder entry as a file or a sub-folder
type EntryKind string

const (
	// EntryFile marks an entry resolving to a FileNode
	EntryFile EntryKind = "file"
	// EntryFolder marks an entry resolving to a FolderNode
	EntryFolder EntryKind = "folder"
)

// Entry is one child of a folder
type Entry struct {
	Name string
	Cid  cid.Cid
	Size uint64
	Kind EntryKind
}

// FolderNode holds the ordered entries of a folder. Size is the sum of
// the entries' sizes.
type FolderNode struct {
	Entries []Entry
	Size    uint64
}

func (n *FolderNode) Kind() Kind    { return KindFolder }
func (n *FolderNode) Codec() uint64 { return cid.DagCBOR }
func (n *FolderNode) sealed()       {}

// EncryptionInfo describes the encryption applied to the payload stream
type EncryptionInfo struct {
	Algorithm string
	Flags     []string
}

// CompressionInfo describes the compression applied to the payload stream
type CompressionInfo struct {
	Algorithm string
}

// MetaNode is the published root of a transfer. It decouples presentation
// identity (name, mime type, transform chain) from content identity: the
// same bytes uploaded under two names share a data CID but not a meta CID.
type MetaNode struct {
	Name        string
	MimeType    string
	Size        uint64
	Encryption  *EncryptionInfo
	Compression *CompressionInfo
	Data        cid.Cid
}

func (n *MetaNode) Kind() Kind    { return KindMeta }
func (n *MetaNode) Codec() uint64 { return cid.DagCBOR }
func (n *MetaNode) sealed()       {}

// Validate checks schema constraints that the codec alone cannot express
func Validate(n Node) error {
	switch v := n.(type) {
	case *ChunkNode:
		return nil
	case *FileNode:
		if len(v.Links) > 0 && len(v.Inline) > 0 {
			return ErrInvalidField.WrapMessage("file node carries both links and an inline payload")
		}
		if v.IsInline() && v.Size != uint64(len(v.Inline)) {
			return ErrInvalidField.WrapMessage("inline file size %d does not match payload length %d", v.Size, len(v.Inline))
		}
		for i, l := range v.Links {
			if !l.Defined() {
				return ErrInvalidField.WrapMessage("file link %d is undefined", i)
			}
		}
		return nil
	case *FolderNode:
		var total uint64
		for i, e := range v.Entries {
			if e.Name == "" {
				return ErrInvalidField.WrapMessage("folder entry %d has an empty name", i)
			}
			if !e.Cid.Defined() {
				return ErrInvalidField.WrapMessage("folder entry %q has an undefined cid", e.Name)
			}
			if e.Kind != EntryFile && e.Kind != EntryFolder {
				return ErrInvalidField.WrapMessage("folder entry %q has kind %q", e.Name, e.Kind)
			}
			total += e.Size
		}
		if v.Size != total {
			return ErrInvalidField.WrapMessage("folder size %d does not equal the sum of entry sizes %d", v.Size, total)
		}
		return nil
	case *MetaNode:
		if !v.Data.Defined() {
			return ErrInvalidField.WrapMessage("meta node has an undefined data cid")
		}
		if v.Encryption != nil && v.Encryption.Algorithm == "" {
			return ErrInvalidField.WrapMessage("meta node encryption descriptor has no algorithm")
		}
		if v.Compression != nil && v.Compression.Algorithm == "" {
			return ErrInvalidField.WrapMessage("meta node compression descriptor has no algorithm")
		}
		return nil
	default:
		return ErrUnknownKind.WrapMessage("%T", n)
	}
}
