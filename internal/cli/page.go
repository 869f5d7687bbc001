package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/moralis-scan/scan/internal/config"
	"github.com/moralis-scan/scan/internal/pagination"
	"github.com/moralis-scan/scan/internal/tui"
)

// Output formats for the page command.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

const tabPadding = 2

// Page flag errors.
var (
	ErrInvalidPage     = errors.New("page must be >= 1")
	ErrInvalidPageSize = fmt.Errorf("page-size must be between 1 and %d", config.MaxPageSize)
	ErrInvalidOutput   = errors.New("output must be one of: table, json, yaml")
	errNoResponse      = errors.New("no response received")
)

// pageFlags holds the page command's flag values.
type pageFlags struct {
	page     int
	pageSize int
	output   string
}

// Validate checks flag bounds. A zero page size means the configured default.
func (f pageFlags) Validate() error {
	if f.page < pagination.MinPage {
		return fmt.Errorf("%w: got %d", ErrInvalidPage, f.page)
	}
	if f.pageSize < 0 || f.pageSize > config.MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, f.pageSize)
	}
	switch f.output {
	case outputTable, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("%w: got %q", ErrInvalidOutput, f.output)
	}
}

// pageOutput is the JSON/YAML document printed by the page command.
type pageOutput struct {
	Function   string           `json:"function"   yaml:"function"`
	Subject    string           `json:"subject"    yaml:"subject"`
	Pagination pagination.Meta  `json:"pagination" yaml:"pagination"`
	Results    []map[string]any `json:"results"    yaml:"results"`
}

func newPageCmd(root *rootOptions) *cobra.Command {
	flags := pageFlags{}

	cmd := &cobra.Command{
		Use:   "page <function> <address>",
		Short: "Fetch one page of cloud function results",
		Long: `Calls the cloud function with the address, page number and page size, then
prints the records together with the page count derived from the total.`,
		Example: `  # First page as a table
  scan page getTransactions 0x1234...abcd

  # Page 4 with 25 records per page as JSON
  scan page getTransactions 0x1234...abcd --page 4 --page-size 25 --output json`,
		Args: cobra.ExactArgs(2), //nolint:mnd // function and address.
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.Validate(); err != nil {
				return err
			}
			return runPage(cmd, root.cfg, args[0], args[1], flags)
		},
	}

	cmd.Flags().IntVar(&flags.page, "page", pagination.DefaultPage, "page number (1-based)")
	cmd.Flags().IntVar(&flags.pageSize, "page-size", 0, "records per page (default from config)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", outputTable, "output format: table, json, yaml")
	return cmd
}

func runPage(cmd *cobra.Command, cfg *config.Config, method, subject string, flags pageFlags) error {
	ctx := cmd.Context()

	query, closeQuery, err := queryFactory(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeQuery()

	ctrl := newController(ctx, query, cfg, method, subject, flags.pageSize)
	if err = fetchPage(ctrl, flags.page); err != nil {
		return err
	}

	meta := ctrl.Meta()
	if meta.CurrentPage > meta.TotalPages {
		logger.Warn().Ctx(ctx).
			Int("page", meta.CurrentPage).
			Int("total_pages", meta.TotalPages).
			Msg("page is past the last page")
	}

	out := pageOutput{
		Function:   method,
		Subject:    subject,
		Pagination: meta,
		Results:    ctrl.Results(),
	}
	return renderPage(cmd.OutOrStdout(), out, flags.output)
}

// fetchPage moves ctrl to page and completes the resulting request
// synchronously.
func fetchPage(ctrl *tui.ObjectController, page int) error {
	var cmd tea.Cmd
	if page == pagination.DefaultPage {
		cmd = ctrl.Init()
	} else {
		cmd = ctrl.SetCurrPage(page)
	}

	msg := cmd()
	if msg == nil {
		return errNoResponse
	}
	ctrl.Update(msg)

	if err := ctrl.Err(); err != nil {
		return fmt.Errorf("calling %s: %w", ctrl.Method(), err)
	}
	return nil
}

func renderPage(w io.Writer, out pageOutput, format string) error {
	switch format {
	case outputJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			return fmt.Errorf("encoding JSON: %w", err)
		}
		return nil
	case outputYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2) //nolint:mnd // YAML indent.
		if err := encoder.Encode(out); err != nil {
			return fmt.Errorf("encoding YAML: %w", err)
		}
		return encoder.Close()
	default:
		return renderPageTable(w, out)
	}
}

func renderPageTable(w io.Writer, out pageOutput) error {
	p := message.NewPrinter(language.English)

	if len(out.Results) > 0 {
		columns := tui.Columns(out.Results)
		tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)

		fmt.Fprintln(tw, strings.Join(columns, "\t"))
		dashes := make([]string, len(columns))
		for i, col := range columns {
			dashes[i] = strings.Repeat("-", len(col))
		}
		fmt.Fprintln(tw, strings.Join(dashes, "\t"))

		for _, row := range out.Results {
			cells := make([]string, len(columns))
			for i, col := range columns {
				cells[i] = "-"
				if v, ok := row[col]; ok {
					cells[i] = tui.FormatValue(v)
				}
			}
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	} else {
		fmt.Fprintln(w, "No results.")
	}

	meta := out.Pagination
	_, err := p.Fprintf(w, "Page %d/%d · %d results · %d per page\n",
		meta.CurrentPage, meta.TotalPages, meta.TotalItems, meta.PageSize)
	return err
}
