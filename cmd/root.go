package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/KaramelBytes/exodash/internal/ai"
	"github.com/KaramelBytes/exodash/internal/cache"
	cfgpkg "github.com/KaramelBytes/exodash/internal/config"
	"github.com/KaramelBytes/exodash/internal/planet"
	"github.com/KaramelBytes/exodash/internal/telemetry"
	"github.com/KaramelBytes/exodash/internal/utils"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile  string
	debug    bool
	noColor  bool
	flagData string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg    *cfgpkg.Global
	logger = slog.Default()

	shutdownTracing telemetry.ShutdownFunc
)

var rootCmd = &cobra.Command{
	Use:   "exodash",
	Short: "Exodash: explore confirmed exoplanets with charts and Gemini",
	Long: `Exodash loads the TESS confirmed-planet table, derives discovery metrics,
renders charts, and asks Gemini for narratives, narration, grounded search
and artist renderings of a selected planet. Run "exodash serve" for the HTTP dashboard.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			return nil
		}
		shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
			Endpoint: cfg.OTLPEndpoint,
			Insecure: cfg.OTLPInsecure,
		})
		if err != nil {
			warn(cmd.ErrOrStderr(), "tracing disabled: %v", err)
			return nil
		}
		shutdownTracing = shutdown
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdownTracing == nil {
			return nil
		}
		err := shutdownTracing(context.Background())
		shutdownTracing = nil
		return err
	},
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fail(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.exodash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVar(&flagData, "data", "", "planet CSV path or URL (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts per model call on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	if noColor {
		color.NoColor = true
	}
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		warn(os.Stderr, "failed to load config: %v", err)
		return
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("data") && flagData != "" {
		cfg.DataSource = flagData
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	logger = newLogger(cfg.LogLevel, debug)
	slog.SetDefault(logger)

	// Optional: extend the model catalog from a local file
	if cfg.ModelsCatalog != "" {
		m, err := ai.LoadCatalogFromJSON(cfg.ModelsCatalog)
		if err != nil {
			warn(os.Stderr, "models catalog %s: %v", cfg.ModelsCatalog, err)
		} else {
			ai.MergeCatalog(m)
		}
	}
}

func newLogger(level string, debug bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	if debug {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func requireConfig() error {
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}
	return nil
}

func httpTimeout() time.Duration {
	if cfg == nil || cfg.HTTPTimeoutSec <= 0 {
		return 60 * time.Second
	}
	return time.Duration(cfg.HTTPTimeoutSec) * time.Second
}

// dataSource resolves a relative CSV path against the working directory and its parents.
func dataSource() string {
	src := cfgpkg.DefaultDataSource
	if cfg != nil && cfg.DataSource != "" {
		src = cfg.DataSource
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	if _, err := os.Stat(src); err == nil {
		return src
	}
	if found, err := utils.FindUp("", src); err == nil {
		return found
	}
	return src
}

// loadDataset never fails; a missing source yields an empty dataset and a warning.
func loadDataset(ctx context.Context) *planet.Dataset {
	opt := planet.DefaultLoadOptions()
	opt.Logger = logger
	if cfg != nil && cfg.HTTPTimeoutSec > 0 {
		opt.HTTPTimeout = httpTimeout()
	}
	src := dataSource()
	ds := planet.LoadDataset(ctx, src, opt)
	if ds.Empty() {
		warn(os.Stderr, "no planets loaded from %s", src)
	}
	return ds
}

// openStore opens the artifact cache, or returns nil when cache_path is unset.
func openStore(ctx context.Context) (*cache.Store, error) {
	if cfg == nil || cfg.CachePath == "" {
		return nil, nil
	}
	if err := utils.EnsureParentDir(cfg.CachePath); err != nil {
		return nil, fmt.Errorf("cache dir: %w", err)
	}
	ttl := time.Duration(cfg.CacheTTLMin) * time.Minute
	return cache.Open(ctx, cfg.CachePath, ttl)
}

// newService builds the Gemini feature service. The returned closer releases
// the cache, if any.
func newService(ctx context.Context) (*ai.Service, func(), error) {
	if err := requireConfig(); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil, fmt.Errorf("%w (set GEMINI_API_KEY or run: exodash config set api_key <key>)", ai.ErrMissingAPIKey)
	}
	rt := ai.NewRuntime(ai.RuntimeConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		HTTPTimeout: httpTimeout(),
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
	})
	models := ai.Models{Text: cfg.TextModel, Image: cfg.ImageModel, TTS: cfg.TTSModel, Voice: cfg.Voice}
	for _, c := range []struct{ name, out string }{
		{models.Text, ai.OutputText}, {models.Image, ai.OutputImage}, {models.TTS, ai.OutputAudio},
	} {
		if c.name == "" {
			continue
		}
		if err := ai.CheckModel(c.name, c.out); err != nil {
			warn(os.Stderr, "%v", err)
		}
	}
	opts := []ai.Option{ai.WithModels(models), ai.WithLogger(logger)}
	closer := func() {}
	store, err := openStore(ctx)
	if err != nil {
		warn(os.Stderr, "cache disabled: %v", err)
	} else if store != nil {
		opts = append(opts, ai.WithStore(store))
		closer = func() { _ = store.Close() }
	}
	return ai.NewService(rt, opts...), closer, nil
}

func findPlanet(ctx context.Context, name string) (planet.Record, error) {
	return findPlanetIn(loadDataset(ctx), name)
}

// findPlanetIn looks up name exactly, then case-insensitively.
func findPlanetIn(ds *planet.Dataset, name string) (planet.Record, error) {
	if r, ok := ds.Find(name); ok {
		return r, nil
	}
	for _, r := range ds.Records() {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return planet.Record{}, fmt.Errorf("planet not found: %s", name)
}
