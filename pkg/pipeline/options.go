package pipeline

import (
	"github.com/oneconcern/dagpipe/pkg/node"
)

// TransferOption configures a single upload or download
type TransferOption func(*transferOptions)

type transferOptions struct {
	password string
	compress bool
	events   chan<- Event
}

func newTransferOptions(opts []TransferOption) *transferOptions {
	o := &transferOptions{}
	for _, apply := range opts {
		apply(o)
	}
	return o
}

// WithPassword protects the payload stream with a key derived from
// password. On download, the password must match the one the content
// was uploaded with.
func WithPassword(password string) TransferOption {
	return func(o *transferOptions) {
		o.password = password
	}
}

// WithCompression compresses the payload stream before it is chunked.
// Only meaningful on uploads: downloads follow the recorded metadata.
func WithCompression() TransferOption {
	return func(o *transferOptions) {
		o.compress = true
	}
}

// WithProgress publishes transfer observations to events. Publication
// never blocks the transfer; the channel is closed when the transfer
// terminates.
func WithProgress(events chan<- Event) TransferOption {
	return func(o *transferOptions) {
		o.events = events
	}
}

// descriptors translates the configured transforms into the metadata
// descriptors recorded at the transfer root
func (o *transferOptions) descriptors() (*node.CompressionInfo, *node.EncryptionInfo) {
	var (
		comp *node.CompressionInfo
		enc  *node.EncryptionInfo
	)
	if o.compress {
		comp = &node.CompressionInfo{Algorithm: CompressionZstd}
	}
	if o.password != "" {
		enc = &node.EncryptionInfo{Algorithm: EncryptionXChaCha20, Flags: []string{KdfArgon2id}}
	}
	return comp, enc
}
