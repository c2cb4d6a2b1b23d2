package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"lighter-api/pkg/exchange/lighter"
)

var sendFlags struct {
	file   string
	dryRun bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Broadcast transactions saved by an offline command",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := os.Open(sendFlags.file)
		if err != nil {
			return err
		}
		f, err := lighter.ReadTxFile(in)
		_ = in.Close()
		if err != nil {
			return err
		}
		txs, err := f.Transactions()
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, tx := range txs {
			env := lighter.EnvelopeOf(tx)
			fmt.Fprintf(w, "%s account=%d key=%d nonce=%d expired_at=%d\n",
				tx.TxType(), env.AccountIndex, env.APIKeyIndex, env.Nonce, env.ExpiredAt)
		}
		if sendFlags.dryRun {
			return nil
		}

		s, err := openSession()
		if err != nil {
			return err
		}
		client := s.Client()
		if f.ChainID != client.ChainID() {
			return fmt.Errorf("file is signed for chain %d, provider %s is on chain %d", f.ChainID, s.ProviderName, client.ChainID())
		}
		t := client.Transport()
		if t == nil {
			return lighter.ErrNoTransport
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if len(f.Payloads) == 1 {
			resp, err := t.SendTx(ctx, f.Payloads[0])
			if err != nil {
				return err
			}
			if err := resp.Err(); err != nil {
				return err
			}
			fmt.Fprintf(w, "accepted tx_hash=%s\n", resp.TxHash)
			return nil
		}
		resp, err := t.SendTxBatch(ctx, f.Payloads)
		if err != nil {
			return err
		}
		if !resp.Accepted() {
			return fmt.Errorf("batch rejected: code %d: %s", resp.Code, resp.Message)
		}
		for _, h := range resp.TxHash {
			fmt.Fprintf(w, "accepted tx_hash=%s\n", h)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendFlags.file, "file", "f", "", "tx file written by --offline")
	sendCmd.Flags().BoolVar(&sendFlags.dryRun, "dry-run", false, "decode and print without submitting")
	_ = sendCmd.MarkFlagRequired("file")
}
