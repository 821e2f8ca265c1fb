package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/helixir/book-search-service/internal/books"
	"github.com/helixir/book-search-service/internal/config"
	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/export"
	"github.com/helixir/book-search-service/internal/observability"
)

const notFoundMessage = "No results found for given subjects."

// searcher runs a multi-subject search.
type searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.BookRow, error)
}

// searcherFactory builds a searcher from loaded configuration.
type searcherFactory func(cfg *config.Config, logger zerolog.Logger) (searcher, error)

func newSearcher(cfg *config.Config, logger zerolog.Logger) (searcher, error) {
	return books.NewServiceFromConfig(cfg, logger, nil)
}

type searchOptions struct {
	subjects   string
	startYear  int
	endYear    int
	maxResults int
	mailto     string
	oaOnly     bool
	format     string
	sort       string
	output     string
}

func newRootCmd(factory searcherFactory) *cobra.Command {
	var configPath, logLevel string

	rootCmd := &cobra.Command{
		Use:           "books",
		Short:         "Search OpenAlex for books by subject",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")

	loadFn := func(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
		}
		logCfg := observability.DefaultLoggingConfig()
		logCfg.Level = logLevel
		logCfg.Format = "console"
		logCfg.Writer = cmd.ErrOrStderr()
		logger := observability.NewLogger(logCfg)
		return cfg, logger.With().Str("component", "cli").Logger(), nil
	}

	rootCmd.AddCommand(newSearchCmd(loadFn, factory))
	return rootCmd
}

func newSearchCmd(loadFn func(*cobra.Command) (*config.Config, zerolog.Logger, error), factory searcherFactory) *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search books for one or more subjects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadFn(cmd)
			if err != nil {
				return err
			}
			req, format, err := opts.request(cmd, cfg.Search)
			if err != nil {
				return err
			}
			svc, err := factory(cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			rows, err := svc.Search(ctx, req)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), notFoundMessage)
				return nil
			}
			return writeRows(cmd.OutOrStdout(), opts.output, format, rows)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.subjects, "subjects", "", "comma-delimited subjects, e.g. Marketing,Chemistry")
	f.IntVar(&opts.startYear, "start-year", 0, "first publication year (default from config)")
	f.IntVar(&opts.endYear, "end-year", 0, "last publication year (default from config)")
	f.IntVar(&opts.maxResults, "max-results", 0, "maximum rows per subject (default from config)")
	f.StringVar(&opts.mailto, "mailto", "", "contact email for the OpenAlex polite pool")
	f.BoolVar(&opts.oaOnly, "oa-only", false, "only open access works")
	f.StringVar(&opts.format, "format", "json", "output format: json or csv")
	f.StringVar(&opts.sort, "sort", "", "row order: none or year_desc (default from config)")
	f.StringVarP(&opts.output, "output", "o", "", "write to file instead of stdout")
	_ = cmd.MarkFlagRequired("subjects")

	return cmd
}

// request validates the flags and fills unset values from configuration.
func (o *searchOptions) request(cmd *cobra.Command, defaults config.SearchConfig) (domain.SearchRequest, export.Format, error) {
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return domain.SearchRequest{}, "", err
	}

	req := domain.SearchRequest{
		Subjects:       domain.SplitSubjects(o.subjects),
		Years:          domain.YearRange{Start: defaults.DefaultStartYear, End: defaults.DefaultEndYear},
		MaxResults:     defaults.DefaultMaxResults,
		Mailto:         o.mailto,
		OpenAccessOnly: o.oaOnly,
	}
	if len(req.Subjects) == 0 {
		return req, "", domain.NewValidationError("subjects", "must contain at least one non-empty subject")
	}
	if cmd.Flags().Changed("start-year") {
		req.Years.Start = o.startYear
	}
	if cmd.Flags().Changed("end-year") {
		req.Years.End = o.endYear
	}
	if cmd.Flags().Changed("max-results") {
		req.MaxResults = o.maxResults
	}
	if err := req.Years.Validate(); err != nil {
		return req, "", err
	}
	if req.MaxResults < 1 || (defaults.MaxResultsLimit > 0 && req.MaxResults > defaults.MaxResultsLimit) {
		return req, "", domain.NewValidationError("max-results", fmt.Sprintf("must be between 1 and %d", defaults.MaxResultsLimit))
	}

	switch o.sort {
	case "":
	case "year_desc":
		on := true
		req.SortByYear = &on
	case "none":
		off := false
		req.SortByYear = &off
	default:
		return req, "", domain.NewValidationError("sort", "must be one of: none, year_desc")
	}

	return req, format, nil
}

// writeRows renders rows to path, or to stdout when path is empty.
func writeRows(stdout io.Writer, path string, format export.Format, rows []domain.BookRow) (err error) {
	if path == "" {
		return export.Write(stdout, format, rows)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()
	return export.Write(f, format, rows)
}
