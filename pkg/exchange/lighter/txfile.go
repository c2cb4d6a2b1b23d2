package lighter

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

const txFileVersion = 1

// TxFile is a set of signed wire payloads saved for later broadcast, e.g.
// produced on an offline machine and submitted from an online one.
type TxFile struct {
	Version  int           `msgpack:"version"`
	ChainID  uint32        `msgpack:"chain_id"`
	Payloads []WirePayload `msgpack:"payloads"`
}

// NewTxFile encodes signed transactions into a file body.
func NewTxFile(chainID uint32, signed ...*SignedTx) (*TxFile, error) {
	f := &TxFile{Version: txFileVersion, ChainID: chainID, Payloads: make([]WirePayload, 0, len(signed))}
	for i, s := range signed {
		if s == nil {
			return nil, fmt.Errorf("lighter: tx file entry %d is nil", i)
		}
		if s.info.header().ChainID != chainID {
			return nil, fmt.Errorf("lighter: tx %s signed for chain %d, file is for chain %d", s.Hash(), s.info.header().ChainID, chainID)
		}
		p, err := EncodeTx(s)
		if err != nil {
			return nil, err
		}
		f.Payloads = append(f.Payloads, p)
	}
	return f, nil
}

// WriteTo serialises the file with msgpack.
func (f *TxFile) WriteTo(w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(f); err != nil {
		return fmt.Errorf("lighter: write tx file: %w", err)
	}
	return nil
}

// ReadTxFile parses a file written by WriteTo.
func ReadTxFile(r io.Reader) (*TxFile, error) {
	var f TxFile
	if err := msgpack.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("lighter: read tx file: %w", err)
	}
	if f.Version != txFileVersion {
		return nil, fmt.Errorf("lighter: unsupported tx file version %d", f.Version)
	}
	return &f, nil
}

// Transactions decodes every payload back into its logical fields.
func (f *TxFile) Transactions() ([]TxInfo, error) {
	out := make([]TxInfo, 0, len(f.Payloads))
	for i, p := range f.Payloads {
		tx, err := DecodeTx(p.TxType, p.TxInfo, f.ChainID)
		if err != nil {
			return nil, fmt.Errorf("lighter: tx file entry %d: %w", i, err)
		}
		out = append(out, tx)
	}
	return out, nil
}
