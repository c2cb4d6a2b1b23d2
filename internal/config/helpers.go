package config

import (
	"fmt"
	"path/filepath"

	"lighter-api/pkg/confkit"
	"lighter-api/pkg/exchange"
)

// MustLoadExchange loads etc/exchange.yaml from the project root and panics on error.
// It isolates exchange config so tests that only need providers skip the
// application file.
func MustLoadExchange() *exchange.Config {
	confkit.LoadDotenvOnce()
	path := filepath.Join(confkit.MustProjectRoot(), "etc", "exchange.yaml")
	cfg, err := exchange.LoadConfig(path)
	if err != nil {
		panic(fmt.Errorf("load exchange config %s: %w", path, err))
	}
	return cfg
}

// BuildProvider constructs the provider selected by cfg.
func BuildProvider(cfg *Config) (exchange.Provider, string, error) {
	pc, name, err := selectProvider(cfg)
	if err != nil {
		return nil, "", err
	}
	p, err := exchange.GetProvider(pc.Type, pc)
	if err != nil {
		return nil, "", fmt.Errorf("exchange provider %s: %w", name, err)
	}
	return p, name, nil
}

func selectProvider(cfg *Config) (*exchange.ProviderConfig, string, error) {
	if cfg.Exchange.Value == nil {
		return nil, "", fmt.Errorf("config: exchange section not configured")
	}
	name := cfg.ProviderName()
	if name == "" {
		return nil, "", fmt.Errorf("config: no provider selected and exchange config has no default")
	}
	pc, ok := cfg.Exchange.Value.Providers[name]
	if !ok || pc == nil {
		return nil, "", fmt.Errorf("config: provider %q not defined", name)
	}
	return pc, name, nil
}
