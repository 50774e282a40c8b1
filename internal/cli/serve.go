package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/internal/server"
)

// serveCommand creates the serve command, which exposes batches over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var flags optionFlags
	var addr string
	var noCache bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve batches over HTTP",
		Long: `Serve batches over HTTP. GET /v1/batches/next hands out consecutive
batches of a shared feed; GET /v1/batches/{index} returns one batch by index.`,
		Example: `  blendgen serve --catalog cosmos.parquet --bands g,r,i --addr :8080`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			cat, err := runner.LoadCatalog(opts)
			if err != nil {
				return err
			}

			srv, err := server.New(runner, opts, cat, c.Logger)
			if err != nil {
				return err
			}
			newConsole(cmd.OutOrStdout()).info("Listening on %s", addr)
			if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the batch cache")

	return cmd
}
