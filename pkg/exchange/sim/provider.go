package sim

import (
	"fmt"

	"lighter-api/pkg/exchange"
	"lighter-api/pkg/exchange/lighter"
)

// defaultInitialCollateral is 100,000 USDC at six decimals.
const defaultInitialCollateral int64 = 100_000 * 1_000_000

// Provider is a paper-trading exchange.Provider: the real signing pipeline
// wired to an in-memory Exchange instead of the network.
type Provider struct {
	*lighter.Provider
	exchange *Exchange
}

func init() {
	exchange.RegisterProvider("sim", func(name string, cfg *exchange.ProviderConfig) (exchange.Provider, error) {
		return New(cfg)
	})
}

// New builds a simulator seeded with the configured account and key. The
// scheme defaults to secp256k1 and the chain to testnet.
func New(cfg *exchange.ProviderConfig, opts ...Option) (*Provider, error) {
	c := *cfg
	if c.ChainID == 0 {
		c.ChainID = lighter.TestnetChainID
	}
	if c.Scheme == "" {
		c.Scheme = lighter.Secp256k1Scheme{}.Name()
	}
	scheme, err := lighter.LookupScheme(c.Scheme)
	if err != nil {
		return nil, err
	}
	keys, err := lighter.NewKeyManagerFromHex(scheme, c.PrivateKey)
	if err != nil {
		return nil, err
	}

	ex := NewExchange(c.ChainID, scheme, opts...)
	if err := ex.CreateAccount(c.AccountIndex, defaultInitialCollateral); err != nil {
		return nil, err
	}
	if err := ex.RegisterKey(c.AccountIndex, c.APIKeyIndex, keys.PublicKey(), 0); err != nil {
		return nil, err
	}

	inner, err := lighter.NewProviderFromConfig(&c, ex, lighter.WithClock(ex.clock))
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	return &Provider{Provider: inner, exchange: ex}, nil
}

// Exchange exposes the simulated venue for inspection and seeding.
func (p *Provider) Exchange() *Exchange { return p.exchange }
