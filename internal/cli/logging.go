package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"lighter-api/internal/config"
	"lighter-api/pkg/exchange"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
// Secrets are reported only as present or absent.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Log level: %s", orDefault(cfg.Log.Level, "info")),
		fmt.Sprintf("Exchange config: %s", cfg.Exchange.Describe()),
		fmt.Sprintf("Selected provider: %s", orDefault(cfg.ProviderName(), "<none>")),
	}
	if cfg.Exchange.Value == nil {
		return lines
	}

	names := make([]string, 0, len(cfg.Exchange.Value.Providers))
	for name := range cfg.Exchange.Value.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, providerLine(name, cfg.Exchange.Value.Providers[name]))
	}
	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func providerLine(name string, p *exchange.ProviderConfig) string {
	if p == nil {
		return fmt.Sprintf("Provider %s: <nil>", name)
	}
	network := "mainnet"
	if p.Testnet {
		network = "testnet"
	}
	return fmt.Sprintf("Provider %s: type=%s network=%s chain=%d account=%d key=%d signing key %s, L1 key %s, %d markets",
		name, p.Type, network, p.ChainID, p.AccountIndex, p.APIKeyIndex,
		presence(p.PrivateKey != ""), presence(p.L1PrivateKey != ""), len(p.Markets))
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
