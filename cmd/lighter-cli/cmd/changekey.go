package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"lighter-api/pkg/exchange/lighter"
)

var changeKeyFlags struct {
	newKey   string
	keyIndex int
	l1Sig    string
}

var changeKeyCmd = &cobra.Command{
	Use:   "change-key",
	Short: "Register a new API key for the account",
	Long: `Sign a ChangePubKey transaction with the new key for the chosen key index.
The L1 owner authorisation comes from --l1-sig or from the provider's
l1_private_key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if changeKeyFlags.keyIndex < 0 || changeKeyFlags.keyIndex > 255 {
			return fmt.Errorf("--key-index %d outside 0..255", changeKeyFlags.keyIndex)
		}
		s, err := openSession()
		if err != nil {
			return err
		}
		current := s.Client()
		cfg := s.Provider.Config()

		keys, err := lighter.NewKeyManagerFromHex(current.Keys().Scheme(), changeKeyFlags.newKey)
		if err != nil {
			return err
		}
		opts := []lighter.ClientOption{
			lighter.WithTransport(current.Transport()),
			lighter.WithLogger(lighter.NewLogger("")),
		}
		if cfg.L1PrivateKey != "" {
			l1, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.L1PrivateKey, "0x"))
			if err != nil {
				return &lighter.InvalidKeyError{Reason: "l1_private_key", Err: err}
			}
			opts = append(opts, lighter.WithL1PrivateKey(l1))
		} else if changeKeyFlags.l1Sig == "" {
			return errors.New("no L1 authorisation: set l1_private_key or pass --l1-sig")
		}

		client, err := lighter.NewTxClient(keys, current.ChainID(), current.AccountIndex(), uint8(changeKeyFlags.keyIndex), opts...)
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		signed, resp, err := client.SignAndSend(ctx, &lighter.ChangePubKeyTxInfo{
			ChangePubKeyTxReq: lighter.ChangePubKeyTxReq{PubKey: keys.PublicKey(), L1Sig: changeKeyFlags.l1Sig},
		}, nil)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		printSigned(w, signed)
		if err := resp.Err(); err != nil {
			return err
		}
		fmt.Fprintf(w, "accepted tx_hash=%s\nkey %d now %s\n", resp.TxHash, changeKeyFlags.keyIndex, keys.PublicKeyHex())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(changeKeyCmd)
	f := changeKeyCmd.Flags()
	f.StringVar(&changeKeyFlags.newKey, "new-key", "", "new API private key, hex")
	f.IntVar(&changeKeyFlags.keyIndex, "key-index", 0, "key slot to register")
	f.StringVar(&changeKeyFlags.l1Sig, "l1-sig", "", "precomputed L1 signature, hex")
	_ = changeKeyCmd.MarkFlagRequired("new-key")
	_ = changeKeyCmd.MarkFlagRequired("key-index")
}
