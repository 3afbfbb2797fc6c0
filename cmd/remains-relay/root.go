package main

import (
	"os"

	"github.com/odl-optics/remains-relay/internal/version"
	"github.com/odl-optics/remains-relay/pkg/config"
	"github.com/odl-optics/remains-relay/pkg/logging"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "remains-relay",
		Short: "Relay for the Itigris Optima remote remains API",
		Long: `remains-relay forwards inventory queries to the Itigris Optima
remoteRemains/list API, walks every result page and returns the
accumulated rows as JSON or as an xlsx spreadsheet.

Configuration is read from a YAML file (--config or CONFIG_PATH) and
overridden by environment variables such as ITIGRIS_APP_NAME,
ITIGRIS_API_KEY and ODL_SERVER_TOKEN.`,
		Version:      version.GitRelease,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(
		&opts.cfgFile, "config", os.Getenv("CONFIG_PATH"), "config file (default: $CONFIG_PATH)",
	)

	cmd.AddCommand(
		newServeCmd(opts),
		newFetchCmd(opts),
		newDepartmentsCmd(),
		newVersionCmd(),
	)
	return cmd
}

// load reads configuration and sets up logging from it.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return nil, err
	}
	logging.Setup(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: os.Stderr,
	})
	return cfg, nil
}
