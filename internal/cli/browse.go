package cli

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/moralis-scan/scan/internal/tui"
)

// ErrNotTerminal is returned when browse runs without an interactive terminal.
var ErrNotTerminal = errors.New("browse requires an interactive terminal; use 'scan page' for scripted output")

func newBrowseCmd(root *rootOptions) *cobra.Command {
	var pageSize int

	cmd := &cobra.Command{
		Use:   "browse <function> <address>",
		Short: "Interactively page through cloud function results",
		Long: `Opens a terminal UI over the cloud function's results for the address.

Keys: ←/→ (or p/n, PgUp/PgDn) change page, +/- change page size, g jumps to
a page, r reloads bypassing the cache, enter shows a record, q quits.`,
		Example: `  scan browse getTransactions 0x1234...abcd
  scan browse getNFTs 0x1234...abcd --page-size 25`,
		Args: cobra.ExactArgs(2), //nolint:mnd // function and address.
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdout) {
				return ErrNotTerminal
			}
			if pageSize < 0 {
				return fmt.Errorf("%w: got %d", ErrInvalidPageSize, pageSize)
			}
			if err := setupTUILogging(cmd, root.cfg.Logging, root.debug); err != nil {
				return err
			}
			return runBrowse(cmd, root, args[0], args[1], pageSize)
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 0, "records per page (default from config)")
	return cmd
}

func runBrowse(cmd *cobra.Command, root *rootOptions, method, subject string, pageSize int) error {
	ctx := cmd.Context()

	query, closeQuery, err := queryFactory(ctx, root.cfg)
	if err != nil {
		return err
	}
	defer closeQuery()

	ctrl := newController(ctx, query, root.cfg, method, subject, pageSize)
	model := tui.NewBrowserModel(ctx, ctrl)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if _, err = p.Run(); err != nil {
		return fmt.Errorf("running browser: %w", err)
	}
	return nil
}
