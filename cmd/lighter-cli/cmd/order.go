package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lighter-api/pkg/exchange"
	"lighter-api/pkg/exchange/lighter"
)

var orderFlags struct {
	market     int
	side       string
	size       string
	price      string
	trigger    string
	kind       string
	reduceOnly bool
	clientID   int64
	offline    bool
	nonce      int64
	out        string
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Sign and submit an order",
	Long: `Sign a CreateOrder transaction for a configured market. Size and price are
decimal strings scaled with the market table.

With --offline the order is signed with the given --nonce and written to
--out instead of being submitted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		order, err := orderFromFlags()
		if err != nil {
			return err
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		if !orderFlags.offline {
			res, err := s.Provider.PlaceOrder(ctx, order)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res)
		}

		if !cmd.Flags().Changed("nonce") {
			return errors.New("--offline requires --nonce")
		}
		signed, err := s.Provider.SignOrder(ctx, order, &lighter.TransactOpts{Nonce: lighter.Ptr(orderFlags.nonce)})
		if err != nil {
			return err
		}
		if err := writeTxFile(orderFlags.out, s.Client().ChainID(), signed); err != nil {
			return err
		}
		printSigned(cmd.OutOrStdout(), signed)
		fmt.Fprintf(cmd.OutOrStdout(), "written to %s\n", orderFlags.out)
		return nil
	},
}

func orderFromFlags() (exchange.Order, error) {
	var isBuy bool
	switch strings.ToLower(orderFlags.side) {
	case "buy", "bid", "long":
		isBuy = true
	case "sell", "ask", "short":
	default:
		return exchange.Order{}, fmt.Errorf("--side must be buy or sell, got %q", orderFlags.side)
	}
	kind := exchange.OrderKind(strings.ToLower(orderFlags.kind))
	switch kind {
	case exchange.OrderKindStopLoss, exchange.OrderKindStopLossLimit, exchange.OrderKindTakeProfit, exchange.OrderKindTakeProfitLimit:
		if orderFlags.trigger == "" {
			return exchange.Order{}, fmt.Errorf("--trigger is required for %s orders", kind)
		}
	}
	return exchange.Order{
		Market:        orderFlags.market,
		IsBuy:         isBuy,
		Price:         orderFlags.price,
		Size:          orderFlags.size,
		ReduceOnly:    orderFlags.reduceOnly,
		Kind:          kind,
		TriggerPrice:  orderFlags.trigger,
		ClientOrderID: orderFlags.clientID,
	}, nil
}

func init() {
	rootCmd.AddCommand(orderCmd)
	f := orderCmd.Flags()
	f.IntVarP(&orderFlags.market, "market", "m", 0, "market index")
	f.StringVar(&orderFlags.side, "side", "", "buy or sell")
	f.StringVar(&orderFlags.size, "size", "", "base amount, e.g. 0.15")
	f.StringVar(&orderFlags.price, "price", "", "limit or worst acceptable price")
	f.StringVar(&orderFlags.trigger, "trigger", "", "trigger price for stop-loss and take-profit kinds")
	f.StringVar(&orderFlags.kind, "kind", string(exchange.OrderKindLimit), "limit|market|stop_loss|stop_loss_limit|take_profit|take_profit_limit")
	f.BoolVar(&orderFlags.reduceOnly, "reduce-only", false, "only reduce an open position")
	f.Int64Var(&orderFlags.clientID, "client-id", 0, "client order index")
	f.BoolVar(&orderFlags.offline, "offline", false, "sign only and write to --out")
	f.Int64Var(&orderFlags.nonce, "nonce", 0, "nonce to sign with (required with --offline)")
	f.StringVarP(&orderFlags.out, "out", "o", "order.lighter", "output file for --offline")
	_ = orderCmd.MarkFlagRequired("side")
	_ = orderCmd.MarkFlagRequired("size")
	_ = orderCmd.MarkFlagRequired("price")
}
