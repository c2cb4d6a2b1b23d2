package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	// Import for side-effects: registers the lighter and sim providers.
	_ "lighter-api/pkg/exchange/lighter"
	_ "lighter-api/pkg/exchange/sim"
)

var rootFlags struct {
	configPath string
	provider   string
	scheme     string
	timeout    time.Duration
	verbose    bool
}

var rootCmd = &cobra.Command{
	Use:   "lighter-cli",
	Short: "Sign and submit Lighter exchange transactions",
	Long: `lighter-cli signs Lighter transactions with an API key and submits them,
or writes them to a file for later broadcast with "send".

The signing identity comes from the exchange config referenced by --config.
LIGHTER_* environment variables override it, and are used alone when the
config file does not exist.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "etc/lighter.yaml", "application config file")
	pf.StringVarP(&rootFlags.provider, "provider", "p", "", "exchange provider name (default: the exchange config default)")
	pf.StringVar(&rootFlags.scheme, "scheme", "secp256k1", "signature scheme when signing from LIGHTER_* variables only")
	pf.DurationVar(&rootFlags.timeout, "timeout", 30*time.Second, "deadline for the whole command")
	pf.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "log the configuration summary")
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), rootFlags.timeout)
}
