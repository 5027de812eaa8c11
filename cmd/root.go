package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/intelligrit/chronomap/internal/config"
	"github.com/intelligrit/chronomap/internal/dataset"
	"github.com/intelligrit/chronomap/internal/logs"
	"github.com/intelligrit/chronomap/internal/store"
	"github.com/intelligrit/chronomap/internal/timeline"
)

var (
	dataDir    string
	baseURL    string
	verbose    bool
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "chronomap",
	Short:        "Animate the rise and fall of historical empires on a map",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if !cmd.Flags().Changed("data-dir") {
			dataDir = cfg.Data.Dir
		}
		if !cmd.Flags().Changed("base-url") {
			baseURL = cfg.Data.BaseURL
		}
		if verbose {
			cfg.Log.Level = "debug"
		}

		if err := logs.Init("chronomap", cfg.Log); err != nil {
			return fmt.Errorf("initialising logs: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logs.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Directory with manifest.json and empire files (default: embedded dataset)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Fetch empire data over HTTP from this URL")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func Execute() error {
	return rootCmd.Execute()
}

// openStore builds the data source the flags and config select and reads
// its manifest.
func openStore(ctx context.Context) (*store.Store, error) {
	var src store.Source
	switch {
	case baseURL != "":
		client := &http.Client{Timeout: 30 * time.Second}
		hs, err := store.NewHTTPSource(baseURL, client, cfg.Data.RateLimit)
		if err != nil {
			return nil, err
		}
		src = hs
	case dataDir != "":
		if _, err := os.Stat(dataDir); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		src = store.NewFSSource(os.DirFS(dataDir), dataDir)
	default:
		src = store.NewFSSource(dataset.FS(), "embedded")
	}

	s, err := store.New(src, logs.Named("store"))
	if err != nil {
		return nil, err
	}
	if _, err := s.LoadManifest(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// playbackRange returns the configured year range, or the default when the
// config is inconsistent.
func playbackRange() timeline.Range {
	r := timeline.Range{Min: cfg.Playback.MinYear, Max: cfg.Playback.MaxYear}
	if !r.Valid() {
		return timeline.DefaultRange
	}
	return r
}
