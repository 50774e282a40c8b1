package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/pkg/draw"
	"github.com/matzehuels/blendgen/pkg/pipeline"
	"github.com/matzehuels/blendgen/pkg/preview"
	"github.com/matzehuels/blendgen/pkg/report"
	"github.com/matzehuels/blendgen/pkg/sink"
)

// generateOpts holds generate-specific flags.
type generateOpts struct {
	out     string
	batches int
	noCache bool
	preview bool
	report  bool
}

// reportFile is the run report written by generate --report.
const reportFile = "report.html"

// generateCommand creates the generate command for writing batches to disk.
func (c *CLI) generateCommand() *cobra.Command {
	var flags optionFlags
	g := generateOpts{out: "blends", batches: 1}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draw batches and write them as .npy arrays and parquet catalogs",
		Long: `Draw batches of blended scenes and write each one into its own directory
under --out, next to a manifest.yaml describing the run.

Every batch directory holds blend_images.npy, isolated_images.npy,
psf_images.npy, sky_level.npy and catalog.parquet.`,
		Example: `  # Ten batches of g, r, i blends with noise
  blendgen generate --catalog cosmos.parquet --bands g,r,i --noise --batches 10

  # Options from a file, seed overridden on the command line
  blendgen generate -c blends.toml --seed 7 -o out/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.resolve(cmd)
			if err != nil {
				return err
			}
			return c.runGenerate(cmd.Context(), newConsole(cmd.OutOrStdout()), opts, g)
		},
	}

	flags.bind(cmd)
	cmd.Flags().StringVarP(&g.out, "out", "o", g.out, "output directory")
	cmd.Flags().IntVarP(&g.batches, "batches", "n", g.batches, "number of batches (0 runs until interrupted)")
	cmd.Flags().BoolVar(&g.noCache, "no-cache", false, "disable the batch cache")
	cmd.Flags().BoolVar(&g.preview, "preview", false, "also save PNG quick-looks of every blend")
	cmd.Flags().BoolVar(&g.report, "report", false, "also write an HTML summary of the run")

	return cmd
}

// runGenerate draws g.batches batches and writes them with a sink.Writer.
func (c *CLI) runGenerate(ctx context.Context, out *console, opts pipeline.Options, g generateOpts) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, g.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	cat, err := runner.LoadCatalog(opts)
	if err != nil {
		return err
	}
	w, err := sink.NewWriter(g.out, opts)
	if err != nil {
		return err
	}

	counter := &runCounter{}
	defer counter.install()()

	if g.batches <= 0 {
		out.warning("Drawing until interrupted")
	}

	summary := report.NewSummary(opts.CutBand, opts.MaxNumber)

	prog := newProgress(logger, progressEvery)
	stats, err := runner.Run(ctx, opts, cat, g.batches, func(b *draw.Batch) error {
		if err := w.WriteBatch(b); err != nil {
			return err
		}
		if g.preview {
			if _, err := preview.SaveBatch(b, filepath.Join(g.out, "preview")); err != nil {
				return err
			}
		}
		summary.Add(b.Catalogs)
		prog.step(len(b.Catalogs))
		logger.Debug("wrote batch", "index", b.Index, "blends", len(b.Catalogs))
		return nil
	})
	if err != nil {
		return err
	}
	prog.done("Generated batches")

	out.success("Wrote %s", formatCount(stats.Batches, "batch"))
	out.stats(stats, counter.skipped.Load())
	out.file(filepath.Join(w.Dir(), sink.ManifestFile))
	if g.report {
		path := filepath.Join(w.Dir(), reportFile)
		if err := writeReport(path, summary); err != nil {
			return err
		}
		out.file(path)
	}
	out.detail("Run ID: %s", w.Manifest().RunID)
	out.nextStep("Preview the first batch", "blendgen preview --catalog "+opts.Catalog)
	return nil
}

func writeReport(path string, s *report.Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := s.Render(f, "blendgen run"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
