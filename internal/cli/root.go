package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/moralis-scan/scan/internal/cloudquery/cache"
	"github.com/moralis-scan/scan/internal/config"
)

// isTerminal checks if the given file is a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// annotationSkipConfig marks commands that must run without loading the config file.
const annotationSkipConfig = "scan/skip-config"

// rootOptions holds persistent flag values and the configuration they resolve to.
type rootOptions struct {
	configPath string
	debug      bool
	cacheTTL   string

	cfg *config.Config
}

// NewRootCmd creates the root Cobra command for the scan CLI.
func NewRootCmd(ver string) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "scan",
		Short:         "Page through Moralis/Parse cloud function results",
		Long:          "scan: browse paged cloud function results for an address, interactively or as JSON/YAML/table output",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[annotationSkipConfig] != "" {
				opts.cfg = config.New()
				return setupLogging(cmd, opts.cfg.Logging, opts.debug)
			}
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return setupLogging(cmd, cfg.Logging, opts.debug)
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			cleanupLogging()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.scan/config.yaml)")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&opts.cacheTTL, "cache-ttl", "",
		"response cache TTL as seconds or a duration like 5m (overrides config file and env var)")

	cmd.AddCommand(
		newBrowseCmd(opts),
		newPageCmd(opts),
		newCacheCmd(opts),
		newConfigCmd(opts),
	)
	return cmd
}

// load reads the configuration and applies flag overrides.
func (o *rootOptions) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.cacheTTL != "" {
		ttl, ttlErr := cache.ParseTTL(o.cacheTTL)
		if ttlErr != nil {
			return nil, fmt.Errorf("--cache-ttl: %w", ttlErr)
		}
		cfg.Cache.TTLSeconds = ttl
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

const rootCmdExample = `  # Browse transactions for an address interactively
  scan browse getTransactions 0x1234...abcd

  # Print page 3 of token transfers as JSON
  scan page getTokenTransfers 0x1234...abcd --page 3 --output json

  # Use 25 records per page and cache responses for 5 minutes
  scan page getTransactions 0x1234...abcd --page-size 25 --cache-ttl 5m

  # Drop cached responses
  scan cache clear

  # Write a default configuration file
  scan config init`
