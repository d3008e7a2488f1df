package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/psk"
)

func binderCmd() *cobra.Command {
	var suiteName, pskHex, digestHex string
	var external bool

	cmd := &cobra.Command{
		Use:   "binder",
		Short: "Compute a PSK binder",
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, ok := ciphersuite.ByName(suiteName)
			if !ok {
				return errors.Errorf("unknown cipher suite %q", suiteName)
			}

			key, err := decodeHex("psk", pskHex)
			if err != nil {
				return err
			}

			digest, err := decodeHex("digest", digestHex)
			if err != nil {
				return err
			}
			if len(digest) != suite.Hash().Size() {
				return errors.Errorf("digest is %d bytes, %s needs %d", len(digest), suite.Name(), suite.Hash().Size())
			}

			t := session.PSKTypeResumption
			if external {
				t = session.PSKTypeExternal
			}

			binder, err := psk.Binder(suite, t, key, digest)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(binder))
			return nil
		},
	}

	cmd.Flags().StringVar(&suiteName, "suite", "TLS_AES_128_GCM_SHA256", "cipher suite name")
	cmd.Flags().StringVar(&pskHex, "psk", "", "pre-shared key (hex)")
	cmd.Flags().StringVar(&digestHex, "digest", "", "transcript digest of the partial ClientHello (hex)")
	cmd.Flags().BoolVar(&external, "external", false, "use the external binder label")
	_ = cmd.MarkFlagRequired("psk")
	_ = cmd.MarkFlagRequired("digest")
	return cmd
}
