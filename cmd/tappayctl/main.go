// Command tappayctl prepares values for merchant_api_credentials rows:
// sealed gateway secrets, API key hashes and fresh sealing keys.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/baharkarakas/tappay-backend/internal/auth"
	"github.com/baharkarakas/tappay-backend/internal/config"
	"github.com/baharkarakas/tappay-backend/internal/secrets"
)

func main() {
	root := &cobra.Command{
		Use:          "tappayctl",
		Short:        "Operator tooling for the tap-to-pay backend",
		SilenceUsage: true,
	}
	root.AddCommand(sealCmd(), openCmd(), hashKeyCmd(), genKeyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func box(key string) (*secrets.Box, error) {
	if key == "" {
		key = config.Load().CredentialsKey
	}
	if key == "" {
		return nil, fmt.Errorf("no key: pass --key or set CREDENTIALS_KEY")
	}
	return secrets.NewBox(key)
}

func sealCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "seal [secret]",
		Short: "Seal a gateway password or client secret for storage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := box(key)
			if err != nil {
				return err
			}
			sealed, err := b.Seal(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "hex encoded 32 byte key (default $CREDENTIALS_KEY)")
	return cmd
}

func openCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "open [sealed]",
		Short: "Check that a sealed value opens with the key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := box(key)
			if err != nil {
				return err
			}
			plain, err := b.Open(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), plain)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "hex encoded 32 byte key (default $CREDENTIALS_KEY)")
	return cmd
}

func hashKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-key [api-key]",
		Short: "Hash a merchant API key for api_key_hash",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := auth.HashAPIKey(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
}

func genKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-key",
		Short: "Generate a CREDENTIALS_KEY",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var k [32]byte
			if _, err := rand.Read(k[:]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(k[:]))
			return nil
		},
	}
}
