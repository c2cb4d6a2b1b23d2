package exchange

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures configuration for one or more exchange providers.
type Config struct {
	Default   string                     `yaml:"default"`
	Providers map[string]*ProviderConfig `yaml:"providers"`
}

// ProviderConfig describes how to construct a specific exchange provider instance.
type ProviderConfig struct {
	Type         string `yaml:"type"`
	PrivateKey   string `yaml:"private_key"`    // Signing key of api_key_index, hex.
	Scheme       string `yaml:"scheme"`         // Registered signature scheme name.
	AccountIndex int64  `yaml:"account_index"`  // Exchange account the key signs for.
	APIKeyIndex  uint8  `yaml:"api_key_index"`  // Signing-key slot of the account.
	ChainID      uint32 `yaml:"chain_id"`       // Zero selects the network default.
	BaseURL      string `yaml:"base_url"`       // Zero selects the network default.
	L1PrivateKey string `yaml:"l1_private_key"` // Ethereum owner key for key rotation.
	Testnet      bool   `yaml:"testnet"`

	RateLimit float64 `yaml:"rate_limit"` // Requests per second, zero disables.
	RateBurst int     `yaml:"rate_burst"`

	Markets []MarketConfig `yaml:"markets"`

	TimeoutRaw       string        `yaml:"timeout"`
	Timeout          time.Duration `yaml:"-"`
	ExpiryHorizonRaw string        `yaml:"expiry_horizon"`
	ExpiryHorizon    time.Duration `yaml:"-"`
}

// MarketConfig carries the integer scaling of one market.
type MarketConfig struct {
	Index         int    `yaml:"index"`
	Symbol        string `yaml:"symbol"`
	SizeDecimals  int32  `yaml:"size_decimals"`
	PriceDecimals int32  `yaml:"price_decimals"`
}

// Market returns the scaling entry for a market index.
func (p *ProviderConfig) Market(index int) (MarketConfig, bool) {
	for _, m := range p.Markets {
		if m.Index == index {
			return m, true
		}
	}
	return MarketConfig{}, false
}

// ProviderBuilder constructs a Provider from configuration.
type ProviderBuilder func(name string, cfg *ProviderConfig) (Provider, error)

var (
	providerRegistry   = make(map[string]ProviderBuilder)
	providerRegistryMu sync.RWMutex
)

// RegisterProvider associates a builder with an exchange provider type.
func RegisterProvider(typeName string, builder ProviderBuilder) {
	providerRegistryMu.Lock()
	defer providerRegistryMu.Unlock()
	providerRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupProviderBuilder(typeName string) (ProviderBuilder, bool) {
	providerRegistryMu.RLock()
	defer providerRegistryMu.RUnlock()
	builder, ok := providerRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// GetProvider constructs a single provider instance for the given type using
// the provided configuration. This is a convenience for tests and callers that
// want to instantiate a provider without building a full config map.
func GetProvider(typeName string, cfg *ProviderConfig) (Provider, error) {
	if cfg == nil {
		cfg = &ProviderConfig{}
	}
	// Ensure the type is set and valid for validation.
	cfgCopy := *cfg
	cfgCopy.Type = typeName
	if err := cfgCopy.validate("inline"); err != nil {
		return nil, err
	}
	builder, ok := lookupProviderBuilder(cfgCopy.Type)
	if !ok {
		return nil, fmt.Errorf("exchange provider: unsupported type %q", cfgCopy.Type)
	}
	return builder("inline", &cfgCopy)
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open exchange config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read exchange config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal exchange config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Providers == nil {
		c.Providers = make(map[string]*ProviderConfig)
	}
	for name, provider := range c.Providers {
		if provider == nil {
			provider = &ProviderConfig{}
			c.Providers[name] = provider
		}
		provider.expandEnv()
		if err := provider.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

// expandEnv trims string fields. Environment references are expanded on the
// raw document so numeric fields may use them too.
func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(p.Type)
	p.PrivateKey = strings.TrimSpace(p.PrivateKey)
	p.Scheme = strings.TrimSpace(p.Scheme)
	p.BaseURL = strings.TrimSpace(p.BaseURL)
	p.L1PrivateKey = strings.TrimSpace(p.L1PrivateKey)
	p.TimeoutRaw = strings.TrimSpace(p.TimeoutRaw)
	p.ExpiryHorizonRaw = strings.TrimSpace(p.ExpiryHorizonRaw)
}

func (p *ProviderConfig) parseDurations(name string) error {
	var err error
	if p.Timeout, err = parsePositiveDuration(name, "timeout", p.TimeoutRaw); err != nil {
		return err
	}
	if p.ExpiryHorizon, err = parsePositiveDuration(name, "expiry_horizon", p.ExpiryHorizonRaw); err != nil {
		return err
	}
	return nil
}

func parsePositiveDuration(name, field, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("exchange provider %s: invalid %s %q: %w", name, field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("exchange provider %s: %s must be positive, got %s", name, field, d)
	}
	return d, nil
}

// Validate ensures all providers have sane configuration.
func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("exchange config: providers cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Providers[c.Default]; !ok {
			return fmt.Errorf("exchange config: default provider %q not defined", c.Default)
		}
	}

	for name, provider := range c.Providers {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("exchange config: provider name cannot be empty")
		}
		if err := provider.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) validate(name string) error {
	if p == nil {
		return fmt.Errorf("exchange config: provider %s is nil", name)
	}
	if strings.TrimSpace(p.Type) == "" {
		return fmt.Errorf("exchange config: provider %s must specify type", name)
	}

	if _, ok := lookupProviderBuilder(p.Type); !ok {
		return fmt.Errorf("exchange config: provider %s has unsupported type %q", name, p.Type)
	}

	if p.PrivateKey == "" {
		return fmt.Errorf("exchange config: provider %s requires private_key", name)
	}
	if p.AccountIndex < 0 {
		return fmt.Errorf("exchange config: provider %s has negative account_index %d", name, p.AccountIndex)
	}
	if p.RateLimit < 0 {
		return fmt.Errorf("exchange config: provider %s has negative rate_limit", name)
	}
	seen := make(map[int]bool, len(p.Markets))
	for _, m := range p.Markets {
		if m.Index < 0 || m.Index > 255 {
			return fmt.Errorf("exchange config: provider %s market index %d out of range", name, m.Index)
		}
		if seen[m.Index] {
			return fmt.Errorf("exchange config: provider %s lists market %d twice", name, m.Index)
		}
		if m.SizeDecimals < 0 || m.PriceDecimals < 0 {
			return fmt.Errorf("exchange config: provider %s market %d has negative decimals", name, m.Index)
		}
		seen[m.Index] = true
	}
	return nil
}

// BuildProviders instantiates exchange providers according to the configuration.
func (c *Config) BuildProviders() (map[string]Provider, error) {
	result := make(map[string]Provider, len(c.Providers))
	for name, providerCfg := range c.Providers {
		builder, ok := lookupProviderBuilder(providerCfg.Type)
		if !ok {
			return nil, fmt.Errorf("exchange provider %s: unsupported type %q", name, providerCfg.Type)
		}
		provider, err := builder(name, providerCfg)
		if err != nil {
			return nil, fmt.Errorf("exchange provider %s: %w", name, err)
		}
		result[name] = provider
	}
	return result, nil
}
