package commands

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"psk-resumption/session/tls/common/ciphersuite"
	"psk-resumption/session/tls/common/session"
	"psk-resumption/session/tls/psk"
	"psk-resumption/session/tls/sessioncache"
	"psk-resumption/session/tls/ticket"
)

func demoCmd() *cobra.Command {
	var dbPath, suiteName string
	var age time.Duration
	var useTicket bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Resume a session between an in-process client and server",
		RunE: func(cmd *cobra.Command, args []string) error {
			suite, ok := ciphersuite.ByName(suiteName)
			if !ok {
				return errors.Errorf("unknown cipher suite %q", suiteName)
			}

			clk := clock.New()
			opts := sessioncache.Options{Clock: clk, Logger: logger.With("component", "sessioncache")}

			var serverCache sessioncache.Store = sessioncache.NewMemory(opts)
			if dbPath != "" {
				db, err := sessioncache.OpenBolt(dbPath, 0600, opts)
				if err != nil {
					return err
				}
				defer db.Close()
				serverCache = db
			}

			secret := make([]byte, suite.Hash().Size())
			if _, err := rand.Read(secret); err != nil {
				return errors.Wrap(err, "generating pre-shared key")
			}

			issued, err := session.New(secret, suite, clk.Now().Add(-age))
			if err != nil {
				return err
			}

			serverOpts := psk.ServerOptions{Clock: clk, Logger: logger}
			identity := issued.ID
			if useTicket {
				key, err := ticket.GenerateKey(nil)
				if err != nil {
					return err
				}
				codec, err := ticket.NewCodec(key)
				if err != nil {
					return err
				}
				if identity, err = codec.Seal(issued); err != nil {
					return err
				}
				serverOpts.Tickets = codec
			} else {
				if err := serverCache.Put(issued.Clone()); err != nil {
					return err
				}
				serverOpts.Cache = serverCache
			}

			resumable := issued.Clone()
			resumable.SetIdentity(identity)

			clientCache := sessioncache.NewMemory(opts)
			if err := clientCache.Put(resumable); err != nil {
				return err
			}

			client := psk.NewClientContext(resumable, psk.ClientOptions{Cache: clientCache, Clock: clk, Logger: logger})
			server := psk.NewServerContext(serverOpts)

			ch, err := psk.WriteClientHello(client, psk.Hello{ServerName: "localhost"})
			if err != nil {
				return err
			}
			if err := psk.ReadClientHello(server, ch); err != nil {
				return err
			}
			sh, err := psk.WriteServerHello(server)
			if err != nil {
				return err
			}
			if err := psk.ReadServerHello(client, sh); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !client.Resumed() {
				fmt.Fprintln(out, "resumed: false")
				return nil
			}

			idx, _ := server.SelectedIdentity()
			fmt.Fprintf(out, "resumed: true\nselected identity: %d\ncipher suite: %s\nclient hello: %d bytes\n", idx, client.Suite.Name(), len(ch))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "BoltDB file for the server session cache (default in-memory)")
	cmd.Flags().StringVar(&suiteName, "suite", "TLS_AES_128_GCM_SHA256", "cipher suite of the session")
	cmd.Flags().DurationVar(&age, "age", time.Second, "age of the resumed session")
	cmd.Flags().BoolVar(&useTicket, "ticket", false, "resume with a stateless ticket instead of the cache")
	return cmd
}
