package main

import (
	"fmt"
	"time"

	"github.com/mikey/llm-dm-relay/internal/adapters/sealed"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate an age X25519 keypair for a tenant",
		Long: `Generate an age X25519 keypair. Register the public key with the relay
and keep the identity private: it is the only way to read drained messages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kp, err := sealed.GenerateKeypair()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# created: %s\n", time.Now().UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "# public key: %s\n", kp.PublicKey)
			fmt.Fprintln(out, kp.PrivateKey)
			return nil
		},
	}
}
