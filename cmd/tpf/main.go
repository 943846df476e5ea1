package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tasoctpf/internal/cache"
	"tasoctpf/internal/config"
	"tasoctpf/internal/logging"
	"tasoctpf/internal/mast"
	"tasoctpf/internal/pipeline"
	"tasoctpf/internal/tesscut"
)

var (
	// Global flags
	verbose  bool
	cfgPath  string
	cacheDir string
	timeout  time.Duration

	// Resolved at startup
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "tpf",
	Short: "tasoctpf - reconstruct TESS target pixel files from TASOC light curves",
	Long: `tasoctpf rebuilds approximate target pixel files for TASOC targets.

TASOC light curves carry a summed pixel stamp and the photometric
aperture, but not the per-cadence imagery. This tool finds the light
curve at MAST, reads the stamp footprint, requests a matching TESSCut
cutout, and reattaches the TASOC aperture to produce a TPF-shaped file.

The reconstruction is approximate: the cutout can land a few pixels off
the original stamp. Use "fetch --roll dy,dx" to nudge the aperture and
"view" to check the alignment by eye.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Initialize logger
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if cacheDir != "" {
			cfg.Cache.Dir = cacheDir
		}

		err = logging.Initialize(config.Home(), logging.Options{
			Debug:      cfg.Logging.DebugMode,
			Level:      cfg.Logging.Level,
			Categories: cfg.Logging.Categories,
		})
		if err != nil {
			return err
		}
		logging.Get(logging.CategoryBoot).Info("config loaded from %s", cfgPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "override the product cache directory")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "override remote call timeouts")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(docsCmd)
}

// archiveClient builds the MAST client from config and flags.
func archiveClient() (*mast.Client, error) {
	d, err := cfg.ArchiveTimeout()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		d = timeout
	}
	return mast.NewClient(cfg.Archive.BaseURL, d), nil
}

// cutoutClient builds the TESSCut client from config and flags.
func cutoutClient() (*tesscut.Client, error) {
	d, err := cfg.CutoutTimeout()
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		d = timeout
	}
	return tesscut.NewClient(cfg.Cutout.BaseURL, d), nil
}

// openCache opens the product cache, or returns nil when disabled.
func openCache() (*cache.Store, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}
	return cache.Open(cfg.Cache.Dir)
}

// newFetcher wires the full pipeline from config.
func newFetcher() (*pipeline.Fetcher, func(), error) {
	archive, err := archiveClient()
	if err != nil {
		return nil, nil, err
	}
	cut, err := cutoutClient()
	if err != nil {
		return nil, nil, err
	}
	store, err := openCache()
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if store != nil {
			store.Close()
		}
	}
	return &pipeline.Fetcher{Archive: archive, Cutout: cut, Cache: store}, cleanup, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
