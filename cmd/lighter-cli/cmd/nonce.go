package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var nonceCmd = &cobra.Command{
	Use:   "nonce",
	Short: "Print the next nonce of the signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		n, err := s.Provider.NextNonce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

var pubkeyCmd = &cobra.Command{
	Use:   "pubkey",
	Short: "Print the public key and identity of the signing key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		c := s.Client()
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "provider:      %s\n", s.ProviderName)
		fmt.Fprintf(w, "scheme:        %s\n", c.Keys().Scheme().Name())
		fmt.Fprintf(w, "chain id:      %d\n", c.ChainID())
		fmt.Fprintf(w, "account index: %d\n", c.AccountIndex())
		fmt.Fprintf(w, "api key index: %d\n", c.APIKeyIndex())
		fmt.Fprintf(w, "public key:    %s\n", c.Keys().PublicKeyHex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(nonceCmd, pubkeyCmd)
}
