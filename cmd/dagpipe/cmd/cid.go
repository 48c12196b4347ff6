package cmd

import (
	"github.com/multiformats/go-multibase"
	"github.com/spf13/cobra"

	"github.com/oneconcern/dagpipe/pkg/dagcid"
)

var multibaseNames = map[string]multibase.Encoding{
	"base32":    multibase.Base32,
	"base58btc": multibase.Base58BTC,
	"base64":    multibase.Base64,
}

// cidCmd parses and describes a content identifier
var cidCmd = &cobra.Command{
	Use:   "cid <cid>",
	Short: "Parse and describe a CID",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := dagcid.Parse(args[0])
		if err != nil {
			wrapFatalln("parse cid", err)
			return
		}
		prefix := c.Prefix()
		infoLogger.Printf("version: %d", prefix.Version)
		infoLogger.Printf("codec:   %s", dagcid.CodecName(prefix.Codec))
		infoLogger.Printf("hash:    %s", dagcid.HashName(prefix.MhType))

		if dagpipeFlags.cid.Base != "" {
			base, ok := multibaseNames[dagpipeFlags.cid.Base]
			if !ok {
				wrapFatalln("unknown multibase "+dagpipeFlags.cid.Base, nil)
				return
			}
			s, err := dagcid.Format(c, base)
			if err != nil {
				wrapFatalln("format cid", err)
				return
			}
			infoLogger.Printf("%s:  %s", dagpipeFlags.cid.Base, s)
		}
	},
}

func init() {
	rootCmd.AddCommand(cidCmd)
	addBaseFlag(cidCmd)
}
