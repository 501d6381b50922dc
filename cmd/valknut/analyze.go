package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/app"
	"github.com/sibyllinesoft/valknut-sub001/domain"
	"github.com/sibyllinesoft/valknut-sub001/internal/config"
	"github.com/sibyllinesoft/valknut-sub001/internal/observability"
	"github.com/sibyllinesoft/valknut-sub001/internal/version"
	"github.com/sibyllinesoft/valknut-sub001/service"
)

const shutdownTimeout = 5 * time.Second

// AnalyzeCommand represents the ranking command
type AnalyzeCommand struct {
	// Output format flags (only one should be true)
	json    bool
	yaml    bool
	csv     bool
	parquet bool

	outputPath string
	configFile string
	coverage   string
	exclude    []string

	// Flags that override configuration when set
	limit        int
	minTier      string
	seed         int64
	noCache      bool
	workers      int
	logLevel     string
	metricsAddr  string
	otlpEndpoint string
}

// NewAnalyzeCommand creates a new analyze command
func NewAnalyzeCommand() *AnalyzeCommand {
	return &AnalyzeCommand{}
}

// CreateCobraCommand creates the cobra command for candidate ranking
func (c *AnalyzeCommand) CreateCobraCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [feature files/globs...]",
		Short: "Rank refactoring candidates",
		Long: `Score every entity in the given feature files and print a ranked list of
refactoring candidates.

Inputs are JSON or YAML feature files, directories containing them, or glob
patterns (** is supported). Coverage ratios can be supplied separately and take
precedence over coverage embedded in the feature files.

Examples:
  # Rank everything under features/
  valknut analyze features/

  # Top 10 candidates at high tier or above, as JSON
  valknut analyze --json --limit 10 --min-tier high 'features/**/*.json'

  # Merge a coverage report and write Parquet
  valknut analyze --coverage coverage.json --parquet -o report.parquet features/`,
		Args: cobra.MinimumNArgs(1),
		RunE: c.runAnalyze,
	}

	cmd.Flags().BoolVar(&c.json, "json", false, "Write JSON output")
	cmd.Flags().BoolVar(&c.yaml, "yaml", false, "Write YAML output")
	cmd.Flags().BoolVar(&c.csv, "csv", false, "Write CSV output")
	cmd.Flags().BoolVar(&c.parquet, "parquet", false, "Write Parquet output (file only)")
	cmd.Flags().StringVarP(&c.outputPath, "output", "o", "", "Output file path")
	cmd.Flags().StringVarP(&c.configFile, "config", "c", "", "Configuration file path")
	cmd.Flags().StringVar(&c.coverage, "coverage", "", "Coverage file (JSON or YAML map of entity ID to ratio)")
	cmd.Flags().StringSliceVar(&c.exclude, "exclude", nil, "Glob patterns of feature files to skip")

	cmd.Flags().IntVar(&c.limit, config.FlagLimit, 0, "Maximum number of candidates to report (0 = all)")
	cmd.Flags().StringVar(&c.minTier, config.FlagMinTier, "", "Minimum priority tier (critical, high, medium, low)")
	cmd.Flags().Int64Var(&c.seed, config.FlagSeed, 0, "Seed for sampled centrality")
	cmd.Flags().BoolVar(&c.noCache, config.FlagNoCache, false, "Disable the run cache")
	cmd.Flags().IntVar(&c.workers, config.FlagWorkers, 0, "Maximum concurrent workers (0 = GOMAXPROCS)")
	cmd.Flags().StringVar(&c.logLevel, config.FlagLogLevel, "", "Log level (debug, info, warn, error)")
	cmd.Flags().StringVar(&c.metricsAddr, config.FlagMetricsAddr, "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().StringVar(&c.otlpEndpoint, config.FlagOTLPEndpoint, "", "Export traces to this OTLP/gRPC endpoint")

	return cmd
}

// loadConfig reads the configuration and merges explicitly set flags
func (c *AnalyzeCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.configFile)
	if err != nil {
		return nil, err
	}

	explicit := make(map[string]bool)
	cmd.Flags().Visit(func(f *pflag.Flag) { explicit[f.Name] = true })
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && !explicit[config.FlagLogLevel] {
		c.logLevel = "debug"
		explicit[config.FlagLogLevel] = true
	}

	err = cfg.ApplyOverrides(config.Overrides{
		Limit:        c.limit,
		MinTier:      c.minTier,
		Seed:         c.seed,
		NoCache:      c.noCache,
		Workers:      c.workers,
		LogLevel:     c.logLevel,
		MetricsAddr:  c.metricsAddr,
		OTLPEndpoint: c.otlpEndpoint,
	}, explicit)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AnalyzeCommand) runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	format, extension, err := service.NewOutputFormatResolver().Determine(
		c.json, c.yaml, c.csv, c.parquet, domain.OutputFormat(cfg.Output.Format))
	if err != nil {
		return err
	}
	outputPath := c.outputPath
	if outputPath == "" && format.RequiresFile() {
		outputPath, err = generateOutputFilePath("valknut", extension)
		if err != nil {
			return err
		}
	}

	logger, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.JSON)
	if err != nil {
		return domain.NewConfigError("invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Observability.OTLPEndpoint, version.Short())
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownWithin(logger, "tracing", shutdownTracing)
	}

	if cfg.Observability.MetricsAddr != "" {
		metrics := observability.NewMetricsServer(cfg.Observability.MetricsAddr, logger)
		if err := metrics.Start(); err != nil {
			logger.Warn("metrics server disabled", zap.Error(err))
		} else {
			defer shutdownWithin(logger, "metrics server", metrics.Stop)
		}
	}

	runCache := service.OpenRunCache(cfg, logger)
	defer func() {
		if err := runCache.Close(); err != nil {
			logger.Warn("failed to close cache", zap.Error(err))
		}
	}()

	opts := []service.PipelineOption{
		service.WithLogger(logger),
		service.WithRunCache(runCache),
	}
	if service.IsInteractiveEnvironment() {
		progress := service.NewProgressManager()
		progress.SetWriter(cmd.ErrOrStderr())
		defer progress.Close()
		opts = append(opts, service.WithProgress(progress))
	}
	pipeline, err := service.NewPipelineService(cfg, opts...)
	if err != nil {
		return err
	}

	useCase, err := app.NewAnalyzeUseCaseBuilder().
		WithPipeline(pipeline).
		WithFeatureSource(func(paths []string) domain.FeatureProvider {
			return service.NewFeatureReader(paths, c.exclude, logger)
		}).
		WithCoverageSource(func(path string) domain.CoverageProvider {
			return service.NewCoverageReader(path)
		}).
		WithFormatter(service.NewCandidateFormatter()).
		WithOutputWriter(service.NewFileOutputWriter(cmd.ErrOrStderr())).
		WithLogger(logger).
		Build()
	if err != nil {
		return err
	}

	_, err = useCase.Execute(ctx, domain.AnalyzeRequest{
		FeaturePaths: args,
		CoveragePath: c.coverage,
		ConfigPath:   c.configFile,
		OutputFormat: format,
		OutputWriter: cmd.OutOrStdout(),
		OutputPath:   outputPath,
		Limit:        cfg.Output.Limit,
		MinTier:      domain.PriorityTier(cfg.Output.MinTier),
		NoCache:      cfg.Cache.Backend == "none",
	})
	return err
}

func shutdownWithin(logger *zap.Logger, what string, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Warn("shutdown failed", zap.String("component", what), zap.Error(err))
	}
}

// NewAnalyzeCmd creates and returns the analyze cobra command
func NewAnalyzeCmd() *cobra.Command {
	return NewAnalyzeCommand().CreateCobraCommand()
}
