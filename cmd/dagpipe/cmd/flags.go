// Copyright © 2018 One Concern

package cmd

import (
	"github.com/spf13/cobra"
)

type flagsT struct {
	upload struct {
		Name     string
		MimeType string
		Compress bool
	}
	download struct {
		Destination string
	}
	transfer struct {
		Password string
	}
	cid struct {
		Base string
	}
	root struct {
		config      string
		store       string
		chunkSize   string
		concurrency int
		hash        string
		logLevel    string
	}
}

var dagpipeFlags = flagsT{}

func addConfigFlag(cmd *cobra.Command) string {
	config := "config"
	cmd.PersistentFlags().StringVar(&dagpipeFlags.root.config, config, "", "Set the config file to use (defaults to dagpipe.yaml in . or $HOME/.dagpipe)")
	return config
}

func addStoreFlag(cmd *cobra.Command) string {
	store := "store"
	cmd.PersistentFlags().StringVar(&dagpipeFlags.root.store, store, "", "The directory objects are stored under (defaults to $HOME/.dagpipe/objects)")
	return store
}

func addChunkSizeFlag(cmd *cobra.Command) string {
	chunkSize := "chunk-size"
	cmd.PersistentFlags().StringVar(&dagpipeFlags.root.chunkSize, chunkSize, "", "The size content is chunked at, in human units (e.g. 1M, 512K)")
	return chunkSize
}

func addConcurrencyFlag(cmd *cobra.Command) string {
	concurrency := "concurrency"
	cmd.PersistentFlags().IntVar(&dagpipeFlags.root.concurrency, concurrency, 0,
		"The number of concurrent chunk transfers. Turn this value down to use less memory, increase for faster transfers.")
	return concurrency
}

func addHashFlag(cmd *cobra.Command) string {
	hash := "hash"
	cmd.PersistentFlags().StringVar(&dagpipeFlags.root.hash, hash, "", "The digest algorithm CIDs are derived with: sha2-256, blake2b-256 or blake3")
	return hash
}

func addLogLevel(cmd *cobra.Command) string {
	loglevel := "loglevel"
	cmd.PersistentFlags().StringVar(&dagpipeFlags.root.logLevel, loglevel, "info", "The logging level")
	return loglevel
}

func addPasswordFlag(cmd *cobra.Command) string {
	password := "password"
	cmd.Flags().StringVar(&dagpipeFlags.transfer.Password, password, "", "Encrypt (on upload) or decrypt (on download) the payload with this password")
	return password
}

func addCompressFlag(cmd *cobra.Command) string {
	compress := "compress"
	cmd.Flags().BoolVar(&dagpipeFlags.upload.Compress, compress, false, "Compress the payload before it is chunked")
	return compress
}

func addNameFlag(cmd *cobra.Command) string {
	name := "name"
	cmd.Flags().StringVar(&dagpipeFlags.upload.Name, name, "", "The published name of the content (defaults to the file name)")
	return name
}

func addMimeFlag(cmd *cobra.Command) string {
	mimeType := "mime"
	cmd.Flags().StringVar(&dagpipeFlags.upload.MimeType, mimeType, "", "The mime type recorded for the content (defaults to a guess from the file extension)")
	return mimeType
}

func addDestinationFlag(cmd *cobra.Command) string {
	destination := "out"
	cmd.Flags().StringVar(&dagpipeFlags.download.Destination, destination, ".", "The directory downloaded content is restored under")
	return destination
}

func addBaseFlag(cmd *cobra.Command) string {
	base := "base"
	cmd.Flags().StringVar(&dagpipeFlags.cid.Base, base, "", "Render the CID in an alternate multibase: base32, base58btc or base64")
	return base
}
