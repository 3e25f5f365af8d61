package main

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/irc-geo/hand-cli/internal/hand"
	"github.com/irc-geo/hand-cli/internal/model"
	"github.com/irc-geo/hand-cli/internal/pipeline"
	"github.com/irc-geo/hand-cli/internal/resilience"
	"github.com/irc-geo/hand-cli/internal/tabular"
	"github.com/irc-geo/hand-cli/pkg/earthengine"
	"github.com/irc-geo/hand-cli/pkg/geocode"
)

var (
	runBandsFile string
	runShapefile string
	runDelimiter string
	runSheet     string
	runNoBar     bool
)

var runCmd = &cobra.Command{
	Use:   "run <input> <address-column> <output> [project-id]",
	Short: "Enrich an address table with HAND flood risk",
	Long: `Reads a CSV or XLSX table, geocodes the given address column, samples the
HAND raster at each resolved point, and writes the table back out with
Latitude, Longitude, HandValue and HandCategory columns appended.

Rows whose address cannot be resolved are dropped and reported in the run
summary; rows the raster does not cover are kept with the Unknown category.

Examples:
  # Nominatim geocoding (default), project from config
  hand-cli run enderecos.csv endereco out.csv

  # Override the Earth Engine project on the command line
  hand-cli run enderecos.xlsx endereco out.csv my-gcp-project

  # Custom risk bands and a shapefile export
  hand-cli run in.csv address out.csv --bands bands.yaml --shapefile points.shp`,
	Args: cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		inputPath, addressColumn, outputPath := args[0], args[1], args[2]
		if len(args) == 4 {
			cfg.Sampler.Project = args[3]
		}

		if runBandsFile != "" {
			bands, err := hand.LoadFile(runBandsFile)
			if err != nil {
				return err
			}
			cfg.Bands = bands
		}

		if err := cfg.Validate(); err != nil {
			return err
		}

		loadOpts, err := loadOptions()
		if err != nil {
			return err
		}

		p, err := buildPipeline(ctx, loadOpts)
		if err != nil {
			return err
		}

		summary, err := p.Run(ctx, inputPath, addressColumn, outputPath)
		if err != nil {
			return err
		}

		return printSummary(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runBandsFile, "bands", "", "YAML file with a custom risk band table")
	runCmd.Flags().StringVar(&runShapefile, "shapefile", "", "also export enriched points as a shapefile")
	runCmd.Flags().StringVar(&runDelimiter, "delimiter", "", "input field delimiter (default: comma, tab for .tsv)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	runCmd.Flags().BoolVar(&runNoBar, "no-progress", false, "disable the progress bar")
	rootCmd.AddCommand(runCmd)
}

// buildPipeline wires the configured geocoder and sampling client into a
// pipeline ready to run.
func buildPipeline(ctx context.Context, loadOpts tabular.LoadOptions) (*pipeline.Pipeline, error) {
	provider, err := geocode.New(geocode.Config{
		Provider:         cfg.Geocode.Provider,
		GoogleAPIKey:     cfg.Geocode.GoogleAPIKey,
		GoogleRegion:     cfg.Geocode.GoogleRegion,
		GoogleLanguage:   cfg.Geocode.GoogleLanguage,
		NominatimBaseURL: cfg.Geocode.NominatimURL,
		UserAgent:        cfg.Geocode.UserAgent,
		RateLimit:        cfg.Geocode.RateLimit,
		Timeout:          time.Duration(cfg.Geocode.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, eris.Wrap(err, "run: init geocoder")
	}

	eeOpts := []earthengine.Option{
		earthengine.WithBand(cfg.Sampler.Band),
		earthengine.WithTimeout(time.Duration(cfg.Sampler.TimeoutSecs) * time.Second),
	}
	if cfg.Sampler.BaseURL != "" {
		eeOpts = append(eeOpts, earthengine.WithBaseURL(cfg.Sampler.BaseURL))
	}
	if cfg.Sampler.CredentialsFile != "" {
		eeOpts = append(eeOpts, earthengine.WithCredentialsFile(cfg.Sampler.CredentialsFile))
	}
	client, err := earthengine.NewClient(ctx, cfg.Sampler.Project, eeOpts...)
	if err != nil {
		return nil, eris.Wrap(err, "run: init sampling client")
	}

	opts := pipeline.Options{
		Resolver: pipeline.ResolverConfig{
			Concurrency:    cfg.Geocode.Concurrency,
			FatalThreshold: cfg.Geocode.FatalThreshold,
			Retry:          retryConfig(cfg.Geocode.MaxAttempts),
			OnProgress:     progressFunc(),
		},
		Sampler: pipeline.SamplerConfig{
			Asset:       cfg.Sampler.Asset,
			BatchSize:   cfg.Sampler.BatchSize,
			Concurrency: cfg.Sampler.Concurrency,
			Retry:       retryConfig(cfg.Sampler.MaxAttempts),
		},
		Bands:     cfg.Bands,
		Load:      loadOpts,
		Shapefile: runShapefile,
	}
	return pipeline.New(provider, client, opts), nil
}

func retryConfig(maxAttempts int) resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if maxAttempts > 0 {
		rc.MaxAttempts = maxAttempts
	}
	return rc
}

func loadOptions() (tabular.LoadOptions, error) {
	opts := tabular.LoadOptions{Sheet: runSheet}
	if runDelimiter != "" {
		runes := []rune(runDelimiter)
		if len(runes) != 1 {
			return opts, eris.Errorf("run: delimiter must be a single character, got %q", runDelimiter)
		}
		opts.Delimiter = runes[0]
	}
	return opts, nil
}

// progressFunc returns a geocoding progress callback, or nil when stderr is
// not a terminal. The bar total is only known once the resolver has counted
// unique addresses, so it is built lazily on the first tick.
func progressFunc() func(done, total int) {
	if runNoBar || !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}

	var mu sync.Mutex
	var bar *progressbar.ProgressBar
	return func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetDescription("Geocoding"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
}

// printSummary writes the run summary as indented JSON to stdout.
func printSummary(summary *model.Summary) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return eris.Wrap(err, "run: write summary")
	}
	zap.L().Info("summary written")
	return nil
}
