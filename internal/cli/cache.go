package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the batch cache",
		Long: `Manage the batch cache. Batches are cached on disk unless
BLENDGEN_REDIS_URL or BLENDGEN_MONGO_URI selects a shared backend.`,
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := newCache(ctx, false)
			if err != nil {
				return err
			}
			defer store.Close()

			count, where, err := clearCache(ctx, store)
			if err != nil {
				return err
			}
			out := newConsole(cmd.OutOrStdout())
			if count == 0 {
				out.info("Cache is empty")
				return nil
			}
			out.success("Cleared %d cached batches", count)
			out.detail("%s", where)
			return nil
		},
	}
}

// clearCache empties store and describes where it lives.
func clearCache(ctx context.Context, store cache.Cache) (int, string, error) {
	switch s := store.(type) {
	case *cache.FileCache:
		n, err := s.Clear()
		return n, "Directory: " + s.Dir(), err
	case *cache.RedisCache:
		n, err := s.Clear(ctx)
		return n, "Redis: " + os.Getenv(envRedisURL), err
	case *cache.MongoCache:
		n, err := s.Clear(ctx)
		return n, "MongoDB: " + os.Getenv(envMongoURI), err
	default:
		return 0, "", nil
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
