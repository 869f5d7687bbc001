package cli

import (
	"github.com/oklog/ulid/v2"
	"github.com/spf13/cobra"

	"github.com/moralis-scan/scan/internal/config"
)

// setupLogging configures the global logger from lc and the --debug flag
// and attaches it, tagged with a per-command trace id, to the command context.
func setupLogging(cmd *cobra.Command, lc config.LoggingConfig, debug bool) error {
	if debug {
		lc.Level = "debug"
	}
	if err := config.InitLogger(lc, cmd.ErrOrStderr()); err != nil {
		return err
	}
	attachLogger(cmd)
	return nil
}

// setupTUILogging sends logs only to the configured file so they do not
// draw over the terminal UI. Without a file, logs are discarded.
func setupTUILogging(cmd *cobra.Command, lc config.LoggingConfig, debug bool) error {
	if debug {
		lc.Level = "debug"
	}
	if err := config.InitLogger(lc, nil); err != nil {
		return err
	}
	attachLogger(cmd)
	return nil
}

func attachLogger(cmd *cobra.Command) {
	base := config.GetLogger()
	logger = base.With().
		Str("component", "cli").
		Str("trace_id", ulid.Make().String()).
		Logger()
	ctx := logger.WithContext(cmd.Context())
	cmd.SetContext(ctx)

	logger.Debug().Str("command", cmd.Name()).Msg("command started")
}

// cleanupLogging closes the log file handle, if any.
func cleanupLogging() {
	config.CloseLogFile()
}
