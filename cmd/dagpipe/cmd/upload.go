package cmd

import (
	"context"

	"github.com/ipfs/go-cid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/oneconcern/dagpipe/pkg/pipeline"
)

// uploadCmd uploads a file or a directory tree and prints the CID of
// its metadata root
var uploadCmd = &cobra.Command{
	Use:   "upload <path>",
	Short: "Upload a file or directory tree",
	Long: `Upload splits the content at <path> into chunks, builds its DAG and
transfers it to the store, children before parents. The printed CID
addresses the metadata root and is the handle to download the content.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		p, logger, err := newPipeline()
		if err != nil {
			wrapFatalln("configure pipeline", err)
			return
		}
		defer func() { _ = logger.Sync() }()

		opts := transferOptions()
		if dagpipeFlags.upload.Compress {
			opts = append(opts, pipeline.WithCompression())
		}

		fs := afero.NewOsFs()
		root, err := uploadTarget(ctx, p, fs, args[0], opts)
		if err != nil {
			wrapFatalln("upload", err)
			return
		}
		infoLogger.Println(root)
	},
}

// uploadTarget routes a path upload, honoring the name and mime
// overrides for single files
func uploadTarget(ctx context.Context, p *pipeline.Pipeline, fs afero.Fs, path string, opts []pipeline.TransferOption) (cid.Cid, error) {
	if dagpipeFlags.upload.Name == "" && dagpipeFlags.upload.MimeType == "" {
		return p.UploadPath(ctx, fs, path, opts...)
	}
	src, err := pipeline.NewFileSource(fs, path, dagpipeFlags.upload.MimeType)
	if err != nil {
		return cid.Undef, err
	}
	if dagpipeFlags.upload.Name != "" {
		src = renamedSource{Source: src, name: dagpipeFlags.upload.Name}
	}
	return p.UploadFile(ctx, src, opts...)
}

// renamedSource publishes a source under a different name
type renamedSource struct {
	pipeline.Source
	name string
}

func (s renamedSource) Name() string { return s.name }

func init() {
	rootCmd.AddCommand(uploadCmd)
	addPasswordFlag(uploadCmd)
	addCompressFlag(uploadCmd)
	addNameFlag(uploadCmd)
	addMimeFlag(uploadCmd)
}
