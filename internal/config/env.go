package config

import (
	"fmt"

	"lighter-api/pkg/confkit"
	"lighter-api/pkg/exchange"
)

const lighterMainnetChainID = 304

// ProviderFromEnv describes a lighter provider using only LIGHTER_*
// variables. The signing key and account index are required.
func ProviderFromEnv(env confkit.LighterEnv, scheme string) (*exchange.ProviderConfig, error) {
	if env.APIKey == "" {
		return nil, fmt.Errorf("config: %s is not set", confkit.EnvAPIKey)
	}
	if env.AccountIndex == nil {
		return nil, fmt.Errorf("config: %s is not set", confkit.EnvAccountIndex)
	}
	pc := &exchange.ProviderConfig{Type: "lighter", Scheme: scheme, Testnet: true, ChainID: lighterTestnetChainID}
	OverlayEnv(pc, env)
	return pc, nil
}

// OverlayEnv replaces the identity fields of pc with whatever env sets. A
// chain id also decides the testnet flag.
func OverlayEnv(pc *exchange.ProviderConfig, env confkit.LighterEnv) {
	if env.APIKey != "" {
		pc.PrivateKey = env.APIKey
	}
	if env.AccountIndex != nil {
		pc.AccountIndex = *env.AccountIndex
	}
	if env.APIKeyIndex != nil {
		pc.APIKeyIndex = *env.APIKeyIndex
	}
	if env.ChainID != nil {
		pc.ChainID = *env.ChainID
		pc.Testnet = pc.ChainID != lighterMainnetChainID
	}
	if env.APIURL != "" {
		pc.BaseURL = env.APIURL
	}
	if env.L1PrivateKey != "" {
		pc.L1PrivateKey = env.L1PrivateKey
	}
}

// BuildProviderWithEnv is BuildProvider with env applied to a copy of the
// selected provider config.
func BuildProviderWithEnv(cfg *Config, env confkit.LighterEnv) (exchange.Provider, string, error) {
	if env.Empty() {
		return BuildProvider(cfg)
	}
	pc, name, err := selectProvider(cfg)
	if err != nil {
		return nil, "", err
	}
	c := *pc
	OverlayEnv(&c, env)
	if !c.Testnet && c.ChainID != lighterTestnetChainID && cfg.Env != "prod" {
		return nil, "", fmt.Errorf("config: environment selects mainnet for provider %s; set env: prod to allow it", name)
	}
	p, err := exchange.GetProvider(c.Type, &c)
	if err != nil {
		return nil, "", fmt.Errorf("exchange provider %s: %w", name, err)
	}
	return p, name, nil
}
