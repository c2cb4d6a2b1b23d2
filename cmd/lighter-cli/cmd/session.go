package cmd

import (
	"lighter-api/internal/svc"
)

// openSession builds the service context for the global flags.
func openSession() (*svc.ServiceContext, error) {
	return svc.NewServiceContext(svc.Options{
		ConfigPath: rootFlags.configPath,
		Provider:   rootFlags.provider,
		Scheme:     rootFlags.scheme,
		LogSummary: rootFlags.verbose,
	})
}
