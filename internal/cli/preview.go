package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/pkg/draw"
	"github.com/matzehuels/blendgen/pkg/overlap"
	"github.com/matzehuels/blendgen/pkg/preview"
)

// previewOpts holds preview-specific flags.
type previewOpts struct {
	out     string
	batch   int64
	noCache bool
	graph   bool
}

// previewCommand creates the preview command, which renders PNG quick-looks
// of one batch.
func (c *CLI) previewCommand() *cobra.Command {
	var flags optionFlags
	p := previewOpts{out: "preview"}

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Save PNG quick-looks of one batch",
		Example: `  blendgen preview --catalog cosmos.parquet --batch 3 -o preview/`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			runner, err := c.newRunner(ctx, p.noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			cat, err := runner.LoadCatalog(opts)
			if err != nil {
				return err
			}

			out := newConsole(cmd.OutOrStdout())
			spinner := newSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Drawing batch %d...", p.batch))
			spinner.Start()
			b, hit, err := runner.Batch(ctx, opts, cat, p.batch)
			if err != nil {
				spinner.StopWithError(out, "Draw failed")
				return err
			}
			spinner.Stop()

			paths, err := preview.SaveBatch(b, p.out)
			if err != nil {
				return err
			}

			if hit {
				out.success("Batch %d (cached)", b.Index)
			} else {
				out.success("Batch %d", b.Index)
			}
			for _, path := range paths {
				out.file(path)
			}
			if p.graph {
				return saveOverlapGraphs(out, b, p.out, opts.CutBand)
			}
			return nil
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&p.out, "out", "o", p.out, "output directory for PNG files")
	cmd.Flags().Int64Var(&p.batch, "batch", 0, "index of the batch to preview")
	cmd.Flags().BoolVar(&p.noCache, "no-cache", false, "disable the batch cache")
	cmd.Flags().BoolVar(&p.graph, "graph", false, "also save SVG overlap graphs of every blend")

	return cmd
}

// saveOverlapGraphs writes one overlap graph SVG per blend of b.
func saveOverlapGraphs(out *console, b *draw.Batch, dir, band string) error {
	for i, bl := range b.Catalogs {
		g := overlap.Build(bl, overlap.Options{Band: band})
		svg, err := overlap.RenderSVG(g.ToDOT())
		if err != nil {
			return fmt.Errorf("blend %d: %w", i, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("batch_%06d_blend_%03d_overlap.svg", b.Index, i))
		if err := os.WriteFile(path, svg, 0o644); err != nil {
			return err
		}
		out.file(path)
		out.detail("%s in %s", formatCount(len(bl), "object"), formatCount(len(g.Components()), "group"))
	}
	return nil
}
