package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"psk-resumption/session/tls/psk"
)

func decodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <hex>",
		Short: "Decode a ClientHello pre_shared_key extension body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := decodeHex("extension", args[0])
			if err != nil {
				return err
			}

			offered, err := psk.DecodeOffer(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, o := range offered {
				fmt.Fprintf(out, "[%d] identity=%s age=%d\n", i, hex.EncodeToString(o.Identity), o.ObfuscatedTicketAge)
				fmt.Fprintf(out, "    binder=%s\n", hex.EncodeToString(o.Binder))
			}
			return nil
		},
	}
	return cmd
}
