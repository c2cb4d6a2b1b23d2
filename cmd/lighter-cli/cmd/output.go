package cmd

import (
	"fmt"
	"io"
	"os"

	"lighter-api/pkg/exchange"
	"lighter-api/pkg/exchange/lighter"
)

func printResult(w io.Writer, r *exchange.SubmissionResult) error {
	fmt.Fprintf(w, "%s nonce=%d digest=%s\n", r.TxType, r.Nonce, r.Digest)
	if !r.Accepted() {
		return fmt.Errorf("rejected: code %d: %s", r.Code, r.Message)
	}
	fmt.Fprintf(w, "accepted tx_hash=%s\n", r.TxHash)
	return nil
}

func printSigned(w io.Writer, s *lighter.SignedTx) {
	fmt.Fprintf(w, "%s nonce=%d expired_at=%d digest=%s\n", s.TxType(), s.Nonce(), s.ExpiredAt(), s.Hash())
}

func writeTxFile(path string, chainID uint32, signed ...*lighter.SignedTx) error {
	f, err := lighter.NewTxFile(chainID, signed...)
	if err != nil {
		return err
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := f.WriteTo(out); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
