// Package cli wires the browsing engine into a cobra command tree. Each
// verb is stateless: it connects, performs one operation and tears the
// session down before exiting.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lensview/lensview/internal/config"
	"github.com/lensview/lensview/internal/domain"
	"github.com/lensview/lensview/internal/logger"
)

var configPath string

// NewRootCmd builds the lensview command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lensview",
		Short:         "Browse files on remote storage",
		Long:          "lensview opens an authenticated session to an SFTP host or a git repository mirror and browses its files: listings, content, thumbnails.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	root.AddCommand(newLsCmd())
	root.AddCommand(newCatCmd())
	root.AddCommand(newThumbCmd())
	root.AddCommand(newProfilesCmd())

	return root
}

// Execute runs the command tree and maps failures to the stable error
// kinds on stderr.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lensview: %s: %v\n", domain.Kind(err), err)
		logger.Shutdown()
		os.Exit(1)
	}
	logger.Shutdown()
}

// loadConfig reads the configuration and initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.LoggerConfig()); err != nil {
		return nil, err
	}
	return cfg, nil
}
