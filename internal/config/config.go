package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/logx"

	"lighter-api/pkg/confkit"
	exchangepkg "lighter-api/pkg/exchange"
)

type Config struct {
	// Env indicates the running environment: test | dev | prod
	// Defaults to test. Only prod may sign for mainnet.
	Env string       `json:",default=test"`
	Log logx.LogConf `json:",optional"`

	// Provider selects the exchange provider; empty uses the exchange default.
	Provider string                               `json:",optional"`
	Exchange confkit.Section[exchangepkg.Config] `json:",optional"`

	mainPath string
	baseDir  string
}

func (c *Config) IsTestEnv() bool {
	return c.Env == "test" || c.Env == ""
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	confkit.LoadDotenvOnce()

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	var cfg Config
	if err := conf.Load(absPath, &cfg, conf.UseEnv()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", absPath, err)
	}

	cfg.mainPath = absPath
	cfg.baseDir = filepath.Dir(absPath)

	if err := cfg.hydrateSections(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Env)) {
	case "", "test", "dev", "prod":
		if strings.TrimSpace(c.Env) == "" {
			c.Env = "test"
		}
	default:
		return errors.New("config: env must be one of test|dev|prod")
	}
	ex := c.Exchange.Value
	if ex == nil {
		return nil
	}
	if c.Provider != "" {
		if _, ok := ex.Providers[c.Provider]; !ok {
			return fmt.Errorf("config: provider %q not defined in exchange config", c.Provider)
		}
	}
	if c.Env != "prod" {
		for name, p := range ex.Providers {
			if strings.EqualFold(p.Type, "lighter") && !p.Testnet && p.ChainID != lighterTestnetChainID {
				return fmt.Errorf("config: provider %s targets mainnet; set env: prod to allow it", name)
			}
		}
	}
	return nil
}

// lighterTestnetChainID mirrors lighter.TestnetChainID; importing the
// lighter package here would register its provider as a side effect.
const lighterTestnetChainID = 300

func (c *Config) hydrateSections() error {
	if err := c.Exchange.Hydrate(c.baseDir, exchangepkg.LoadConfig); err != nil {
		return fmt.Errorf("load exchange config: %w", err)
	}
	return nil
}

// ProviderName returns the configured provider, falling back to the exchange
// default.
func (c *Config) ProviderName() string {
	if c.Provider != "" {
		return c.Provider
	}
	if c.Exchange.Value != nil {
		return c.Exchange.Value.Default
	}
	return ""
}

func (c *Config) MainPath() string {
	return c.mainPath
}

func (c *Config) BaseDir() string {
	return c.baseDir
}
