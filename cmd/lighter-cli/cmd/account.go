package cmd

import (
	"github.com/spf13/cobra"
)

var leverageFlags struct {
	market   int
	leverage int
	cross    bool
}

var leverageCmd = &cobra.Command{
	Use:   "leverage",
	Short: "Set the leverage multiplier of a market",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := s.Provider.UpdateLeverage(ctx, leverageFlags.market, leverageFlags.cross, leverageFlags.leverage)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

var transferFlags struct {
	to     int64
	amount string
}

var transferCmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer USDC collateral to another account",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := s.Provider.Transfer(ctx, transferFlags.to, transferFlags.amount)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

var withdrawAmount string

var withdrawCmd = &cobra.Command{
	Use:   "withdraw",
	Short: "Withdraw USDC collateral to the account's L1 address",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()
		res, err := s.Provider.Withdraw(ctx, withdrawAmount)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(leverageCmd, transferCmd, withdrawCmd)

	lf := leverageCmd.Flags()
	lf.IntVarP(&leverageFlags.market, "market", "m", 0, "market index")
	lf.IntVarP(&leverageFlags.leverage, "leverage", "l", 1, "leverage multiplier")
	lf.BoolVar(&leverageFlags.cross, "cross", false, "use cross margin instead of isolated")

	tf := transferCmd.Flags()
	tf.Int64Var(&transferFlags.to, "to", 0, "destination account index")
	tf.StringVar(&transferFlags.amount, "amount", "", "USDC amount, e.g. 12.5")
	_ = transferCmd.MarkFlagRequired("to")
	_ = transferCmd.MarkFlagRequired("amount")

	withdrawCmd.Flags().StringVar(&withdrawAmount, "amount", "", "USDC amount")
	_ = withdrawCmd.MarkFlagRequired("amount")
}
