package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"lighter-api/pkg/exchange/lighter"
)

var cancelFlags struct {
	market  int
	indices []int64
	all     bool
}

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel orders by index, or all orders with --all",
	Long: `Cancel one or more orders of a market. Several indices are signed
concurrently and submitted as one batch in nonce order.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cancelFlags.all && len(cancelFlags.indices) == 0 {
			return errors.New("give at least one --index or --all")
		}
		if cancelFlags.market < 0 || cancelFlags.market > 255 {
			return fmt.Errorf("--market %d outside 0..255", cancelFlags.market)
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		w := cmd.OutOrStdout()

		if cancelFlags.all {
			res, err := s.Provider.CancelAllOrders(ctx)
			if err != nil {
				return err
			}
			return printResult(w, res)
		}
		if len(cancelFlags.indices) == 1 {
			res, err := s.Provider.CancelOrder(ctx, cancelFlags.market, cancelFlags.indices[0])
			if err != nil {
				return err
			}
			return printResult(w, res)
		}

		client := s.Client()
		signed := make([]*lighter.SignedTx, len(cancelFlags.indices))
		g, gctx := errgroup.WithContext(ctx)
		for i, index := range cancelFlags.indices {
			i, index := i, index
			g.Go(func() error {
				tx, err := client.CancelOrder(gctx, lighter.CancelOrderTxReq{
					MarketIndex: uint8(cancelFlags.market),
					Index:       lighter.Ptr(index),
				}, nil)
				if err != nil {
					return fmt.Errorf("cancel index %d: %w", index, err)
				}
				signed[i] = tx
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		sort.Slice(signed, func(a, b int) bool { return signed[a].Nonce() < signed[b].Nonce() })
		for _, tx := range signed {
			printSigned(w, tx)
		}

		resp, err := client.SendTxBatch(ctx, signed)
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
	rootCmd.AddCommand(cancelCmd)
	f := cancelCmd.Flags()
	f.IntVarP(&cancelFlags.market, "market", "m", 0, "market index")
	f.Int64SliceVarP(&cancelFlags.indices, "index", "i", nil, "order index to cancel (repeatable)")
	f.BoolVar(&cancelFlags.all, "all", false, "cancel every resting order")
}
