// Package node defines the vertices of the content-addressed DAG and
// their canonical byte encoding.
//
// A Node is one of four variants: ChunkNode (raw leaf payload), FileNode
// (ordered chunk links or an inline payload), FolderNode (named entries)
// and MetaNode (presentation record pointing at the data root). Consumers
// switch exhaustively on the concrete type.
//
// Encoding is canonical: a node value has exactly one byte representation.
// Chunk nodes encode as their payload identity under the raw multicodec;
// every other variant encodes as RFC 8949 Core Deterministic CBOR under
// the dag-cbor multicodec. Child links are embedded as binary CIDs and
// never dereferenced: encoding performs no I/O.
package node
