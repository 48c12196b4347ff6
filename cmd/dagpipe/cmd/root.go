// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/oneconcern/dagpipe/pkg/dag"
	"github.com/oneconcern/dagpipe/pkg/dagcid"
	"github.com/oneconcern/dagpipe/pkg/dlogger"
	"github.com/oneconcern/dagpipe/pkg/pipeline"
	"github.com/oneconcern/dagpipe/pkg/storage"
	"github.com/oneconcern/dagpipe/pkg/storage/localfs"
)

const (
	defaultRetryAttempts = 3
	defaultRetryDelay    = 100 * time.Millisecond
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dagpipe",
	Short: "Dagpipe moves files and folders as content-addressed DAGs",
	Long: `Dagpipe splits content into chunks, links them into a Merkle DAG and
transfers the DAG to a blob store, optionally compressing and encrypting
the payload on the way. Every piece of content is addressed by the CID of
its canonical encoding, so identical content is stored exactly once and
every downloaded byte is verified against the identifier it was requested
under.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	log.SetFlags(0)
	cobra.OnInitialize(initConfig)
	addConfigFlag(rootCmd)
	addStoreFlag(rootCmd)
	addChunkSizeFlag(rootCmd)
	addConcurrencyFlag(rootCmd)
	addHashFlag(rootCmd)
	addLogLevel(rootCmd)
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	viper.SetDefault("store", filepath.Join("$HOME", ".dagpipe", "objects"))
	if dagpipeFlags.root.config != "" {
		viper.SetConfigFile(dagpipeFlags.root.config)
	} else if os.Getenv("DAGPIPE_CONFIG") != "" {
		viper.SetConfigFile(os.Getenv("DAGPIPE_CONFIG"))
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.dagpipe")
		viper.SetConfigName("dagpipe")
	}

	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		infoLogger.Println("Using config file:", viper.ConfigFileUsed())
	}
	if dagpipeFlags.root.store == "" {
		dagpipeFlags.root.store = os.ExpandEnv(viper.GetString("store"))
	}
}

// newPipeline assembles a pipeline over the configured local store
func newPipeline() (*pipeline.Pipeline, *zap.Logger, error) {
	logger, err := dlogger.GetLogger(dagpipeFlags.root.logLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("set log level: %w", err)
	}

	if err := os.MkdirAll(dagpipeFlags.root.store, 0755); err != nil {
		return nil, nil, fmt.Errorf("create store dir: %w", err)
	}
	store := localfs.New(afero.NewBasePathFs(afero.NewOsFs(), dagpipeFlags.root.store))

	opts := []pipeline.Option{
		pipeline.Backend(storage.WithLogging(store, logger)),
		pipeline.Logger(logger),
		pipeline.Retry(defaultRetryAttempts, defaultRetryDelay),
	}
	if dagpipeFlags.root.chunkSize != "" {
		sz, err := parseChunkSize(dagpipeFlags.root.chunkSize)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.ChunkSize(sz))
	}
	if dagpipeFlags.root.concurrency > 0 {
		opts = append(opts, pipeline.Concurrency(dagpipeFlags.root.concurrency))
	}
	if dagpipeFlags.root.hash != "" {
		code, err := dagcid.HashByName(dagpipeFlags.root.hash)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.Hash(code))
	}

	p, err := pipeline.New(opts...)
	if err != nil {
		return nil, nil, err
	}
	return p, logger, nil
}

// parseChunkSize converts a human-readable size into a chunk size,
// rejecting values outside the supported range before the int64 result
// is narrowed to uint32
func parseChunkSize(s string) (uint32, error) {
	sz, err := units.RAMInBytes(s)
	if err != nil {
		return 0, fmt.Errorf("parse chunk size %q: %w", s, err)
	}
	if sz <= 0 || sz > int64(dag.MaxChunkSize) {
		return 0, fmt.Errorf("chunk size %s not in (0, %s]", s, units.BytesSize(float64(dag.MaxChunkSize)))
	}
	return uint32(sz), nil
}

// transferOptions translates shared command line flags into per-transfer options
func transferOptions() []pipeline.TransferOption {
	var opts []pipeline.TransferOption
	if dagpipeFlags.transfer.Password != "" {
		opts = append(opts, pipeline.WithPassword(dagpipeFlags.transfer.Password))
	}
	return opts
}
