// Package cli implements the blendgen command-line interface.
//
// # Commands
//
//   - generate: draw batches and write them to disk, with optional previews and an HTML report
//   - sample: print blend catalogs without rendering
//   - preview: save PNG quick-looks of one batch
//   - serve: serve batches over HTTP
//   - config: print the effective options
//   - cache: manage the batch cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. The logger
// is passed through context.Context.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/pkg/buildinfo"
	"github.com/matzehuels/blendgen/pkg/cache"
	"github.com/matzehuels/blendgen/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "blendgen"

	// envCacheDir overrides the file cache directory.
	envCacheDir = "BLENDGEN_CACHE_DIR"

	// envRedisURL selects a shared Redis cache instead of the file cache.
	envRedisURL = "BLENDGEN_REDIS_URL"

	// envMongoURI selects a shared MongoDB cache instead of the file cache.
	envMongoURI = "BLENDGEN_MONGO_URI"

	// envCacheScope prefixes cache keys, separating datasets that share a
	// backend.
	envCacheScope = "BLENDGEN_CACHE_SCOPE"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "blendgen draws synthetic blended-galaxy images",
		Long:         `blendgen samples blends of galaxies from a source catalog, renders them under survey observing conditions, and delivers batches of composite images, isolated images, PSFs and annotated catalogs for training deblenders.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.sampleCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, newKeyer(), c.Logger), nil
}

// newKeyer scopes keys by BLENDGEN_CACHE_SCOPE when it is set.
func newKeyer() cache.Keyer {
	if scope := os.Getenv(envCacheScope); scope != "" {
		return cache.NewScopedKeyer(nil, scope+":")
	}
	return cache.NewDefaultKeyer()
}

// newCache returns the Redis cache when BLENDGEN_REDIS_URL is set, the
// MongoDB cache when BLENDGEN_MONGO_URI is set, the file cache otherwise.
func newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if url := os.Getenv(envRedisURL); url != "" {
		return cache.NewRedisCache(ctx, url)
	}
	if uri := os.Getenv(envMongoURI); uri != "" {
		return cache.NewMongoCache(ctx, uri)
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory: $BLENDGEN_CACHE_DIR, or the XDG
// standard location (~/.cache/blendgen/).
func cacheDir() (string, error) {
	if dir := os.Getenv(envCacheDir); dir != "" {
		return dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
