package svc

import (
	"context"
	"errors"
	"fmt"
	"os"

	"lighter-api/internal/cli"
	"lighter-api/internal/config"
	"lighter-api/pkg/confkit"
	exchangepkg "lighter-api/pkg/exchange"
	"lighter-api/pkg/exchange/lighter"
	_ "lighter-api/pkg/exchange/sim"
)

// SigningProvider is an exchange provider that exposes its lighter signing
// client. Both the lighter and sim providers satisfy it.
type SigningProvider interface {
	exchangepkg.Provider
	Client() *lighter.TxClient
	Config() exchangepkg.ProviderConfig
	SignOrder(ctx context.Context, order exchangepkg.Order, opts *lighter.TransactOpts) (*lighter.SignedTx, error)
}

// Options select where the service context takes its configuration from.
type Options struct {
	ConfigPath string
	// Provider overrides the configured provider name.
	Provider string
	// Scheme names the signature scheme used when only LIGHTER_* variables
	// are available.
	Scheme string
	// LogSummary prints the resolved configuration at startup.
	LogSummary bool
}

type ServiceContext struct {
	// Config is nil when the context was built from the environment alone.
	Config *config.Config
	Env    confkit.LighterEnv

	ProviderName string
	Provider     SigningProvider
}

// NewServiceContext loads the config file and LIGHTER_* overrides and builds
// the selected provider. When the config file is missing but the environment
// names an account, an env-only lighter provider is built instead.
func NewServiceContext(opts Options) (*ServiceContext, error) {
	env, err := confkit.LoadLighterEnv()
	if err != nil {
		return nil, err
	}
	svc := &ServiceContext{Env: env}

	var p exchangepkg.Provider
	if _, statErr := os.Stat(opts.ConfigPath); errors.Is(statErr, os.ErrNotExist) && !env.Empty() {
		pc, err := config.ProviderFromEnv(env, opts.Scheme)
		if err != nil {
			return nil, err
		}
		svc.ProviderName = "env"
		if p, err = lighter.NewProviderFromConfig(pc, nil, lighter.WithLogger(lighter.NewLogger(""))); err != nil {
			return nil, err
		}
	} else {
		cfg, err := config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		if opts.Provider != "" {
			cfg.Provider = opts.Provider
		}
		if opts.LogSummary {
			cli.LogConfigSummary(cfg)
		}
		svc.Config = cfg
		if p, svc.ProviderName, err = config.BuildProviderWithEnv(cfg, env); err != nil {
			return nil, err
		}
	}

	sp, ok := p.(SigningProvider)
	if !ok {
		return nil, fmt.Errorf("provider %s (%T) cannot sign lighter transactions", svc.ProviderName, p)
	}
	svc.Provider = sp
	return svc, nil
}

// Client is the signing client of the selected provider.
func (s *ServiceContext) Client() *lighter.TxClient { return s.Provider.Client() }
