package cmd

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/oneconcern/dagpipe/pkg/dagcid"
	"github.com/oneconcern/dagpipe/pkg/pipeline"
)

// downloadCmd restores the content published under a CID
var downloadCmd = &cobra.Command{
	Use:   "download <cid>",
	Short: "Download the content published under a CID",
	Long: `Download resolves <cid> to its metadata root, verifies every fetched
node against its CID and restores the file or directory tree under the
output directory, undoing any compression or encryption recorded at
upload time.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		root, err := dagcid.Parse(args[0])
		if err != nil {
			wrapFatalln("parse cid", err)
			return
		}
		p, logger, err := newPipeline()
		if err != nil {
			wrapFatalln("configure pipeline", err)
			return
		}
		defer func() { _ = logger.Sync() }()

		sink := pipeline.NewAferoSink(afero.NewOsFs(), dagpipeFlags.download.Destination)
		meta, err := p.Download(ctx, root, sink, transferOptions()...)
		if err != nil {
			wrapFatalln("download", err)
			return
		}
		infoLogger.Printf("downloaded %s (%s, %d bytes)", meta.Name, meta.MimeType, meta.Size)
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	addPasswordFlag(downloadCmd)
	addDestinationFlag(downloadCmd)
}
