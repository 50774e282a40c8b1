package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/pkg/blend"
	"github.com/matzehuels/blendgen/pkg/catalog"
	"github.com/matzehuels/blendgen/pkg/pipeline"
)

// sampleOpts holds sample-specific flags.
type sampleOpts struct {
	batches     int
	json        bool
	interactive bool
}

// sampleCommand creates the sample command, which prints blend catalogs
// without rendering them.
func (c *CLI) sampleCommand() *cobra.Command {
	var flags optionFlags
	s := sampleOpts{batches: 1}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print sampled blend catalogs without rendering",
		Example: `  blendgen sample --catalog cosmos.parquet --max-number 6 --include-max
  blendgen sample -c blends.toml --start 12 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runSample(cmd, opts, s)
		},
	}

	flags.bind(cmd)
	cmd.Flags().IntVarP(&s.batches, "batches", "n", s.batches, "number of batches to sample")
	cmd.Flags().BoolVar(&s.json, "json", false, "print blends as JSON")
	cmd.Flags().BoolVarP(&s.interactive, "interactive", "i", false, "browse batches interactively")

	return cmd
}

func (c *CLI) runSample(cmd *cobra.Command, opts pipeline.Options, s sampleOpts) error {
	ctx := cmd.Context()
	gen, err := c.newListGenerator(ctx, opts)
	if err != nil {
		return err
	}

	if s.interactive {
		load := func(index int64) ([]catalog.Blend, error) {
			gen.Seek(index)
			return gen.Next(ctx)
		}
		model := newBlendBrowserModel(load, opts.StartBatch, opts.CutBand)
		_, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	for range s.batches {
		index := gen.Index()
		blends, err := gen.Next(ctx)
		if err != nil {
			return err
		}
		if s.json {
			if err := enc.Encode(map[string]any{"index": index, "blends": blends}); err != nil {
				return err
			}
			continue
		}
		printBlends(cmd.OutOrStdout(), index, blends, opts.CutBand)
	}
	return nil
}

// newListGenerator loads the catalog and positions a blend list generator
// at opts.StartBatch.
func (c *CLI) newListGenerator(ctx context.Context, opts pipeline.Options) (*blend.ListGenerator, error) {
	runner := pipeline.NewRunner(nil, nil, loggerFromContext(ctx))
	cat, err := runner.LoadCatalog(opts)
	if err != nil {
		return nil, err
	}
	gen, err := blend.NewListGenerator(opts.BlendConfig(), cat, opts.NewSampler())
	if err != nil {
		return nil, err
	}
	gen.Seek(opts.StartBatch)
	return gen, nil
}

// printBlends prints one batch of blend catalogs.
func printBlends(w io.Writer, index int64, blends []catalog.Blend, band string) {
	out := newConsole(w)
	out.line(StyleTitle.Render(fmt.Sprintf("Batch %d", index)))
	for i, b := range blends {
		out.line(StyleHighlight.Render(fmt.Sprintf("  blend %d", i)) + StyleDim.Render(" ("+formatCount(len(b), "object")+")"))
		for _, e := range b {
			mag := "-"
			if m, ok := e.Mag(band); ok {
				mag = strconv.FormatFloat(m, 'f', 2, 64)
			}
			out.keyValue(fmt.Sprintf("    %d", e.ID),
				fmt.Sprintf("dx=%+.3f\" dy=%+.3f\" %s=%s", e.DxSky(), e.DySky(), band, StyleNumber.Render(mag)))
		}
	}
}
