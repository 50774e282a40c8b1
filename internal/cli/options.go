package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/blendgen/pkg/pipeline"
)

// optionFlags binds the generation options shared by generate, sample,
// preview, serve and config. Flags override values from --config.
type optionFlags struct {
	config string
	flags  pipeline.Options

	// Flag values for the optional fields of pipeline.Options, where an
	// explicit zero must survive defaulting.
	seed     uint64
	shiftMax float64
}

// optionOverrides copies one flag's value from f into dst, keyed by flag
// name.
var optionOverrides = map[string]func(d *pipeline.Options, f *optionFlags){
	"catalog":        func(d *pipeline.Options, f *optionFlags) { d.Catalog = f.flags.Catalog },
	"catalog-table":  func(d *pipeline.Options, f *optionFlags) { d.CatalogTable = f.flags.CatalogTable },
	"stamp-size":     func(d *pipeline.Options, f *optionFlags) { d.StampSize = f.flags.StampSize },
	"psf-stamp-size": func(d *pipeline.Options, f *optionFlags) { d.PSFStampSize = f.flags.PSFStampSize },
	"max-number":     func(d *pipeline.Options, f *optionFlags) { d.MaxNumber = f.flags.MaxNumber },
	"batch-size":     func(d *pipeline.Options, f *optionFlags) { d.BatchSize = f.flags.BatchSize },
	"bands":          func(d *pipeline.Options, f *optionFlags) { d.Bands = f.flags.Bands },
	"noise":          func(d *pipeline.Options, f *optionFlags) { d.AddNoise = f.flags.AddNoise },
	"seed":           func(d *pipeline.Options, f *optionFlags) { d.Seed = pipeline.Uint64(f.seed) },
	"cut-band":       func(d *pipeline.Options, f *optionFlags) { d.CutBand = f.flags.CutBand },
	"mag-cut":        func(d *pipeline.Options, f *optionFlags) { d.MagCut = f.flags.MagCut },
	"shift-max":      func(d *pipeline.Options, f *optionFlags) { d.ShiftMaxFrac = pipeline.Float64(f.shiftMax) },
	"shift-min":      func(d *pipeline.Options, f *optionFlags) { d.ShiftMinFrac = f.flags.ShiftMinFrac },
	"radial":         func(d *pipeline.Options, f *optionFlags) { d.Radial = f.flags.Radial },
	"include-max":    func(d *pipeline.Options, f *optionFlags) { d.IncludeMax = f.flags.IncludeMax },
	"survey":         func(d *pipeline.Options, f *optionFlags) { d.Survey = f.flags.Survey },
	"seeing-jitter":  func(d *pipeline.Options, f *optionFlags) { d.SeeingJitter = f.flags.SeeingJitter },
	"min-snr":        func(d *pipeline.Options, f *optionFlags) { d.MinSNR = f.flags.MinSNR },
	"workers":        func(d *pipeline.Options, f *optionFlags) { d.Workers = f.flags.Workers },
	"start":          func(d *pipeline.Options, f *optionFlags) { d.StartBatch = f.flags.StartBatch },
	"refresh":        func(d *pipeline.Options, f *optionFlags) { d.Refresh = f.flags.Refresh },
}

// bind registers the option flags on cmd. Help text shows the defaults.
func (f *optionFlags) bind(cmd *cobra.Command) {
	d := pipeline.DefaultOptions()
	fs := cmd.Flags()

	fs.StringVarP(&f.config, "config", "c", "", "options file (.toml, .yaml, .json)")
	fs.StringVar(&f.flags.Catalog, "catalog", "", "master catalog (.parquet, .json, .sqlite, .db)")
	fs.StringVar(&f.flags.CatalogTable, "catalog-table", d.CatalogTable, "table to read from SQLite catalogs")

	fs.Float64Var(&f.flags.StampSize, "stamp-size", d.StampSize, "stamp side length in arcseconds")
	fs.IntVar(&f.flags.PSFStampSize, "psf-stamp-size", d.PSFStampSize, "PSF stamp side length in pixels")
	fs.IntVar(&f.flags.MaxNumber, "max-number", d.MaxNumber, "isolated-image slots per blend")
	fs.IntVar(&f.flags.BatchSize, "batch-size", d.BatchSize, "blends per batch")
	fs.StringSliceVar(&f.flags.Bands, "bands", d.Bands, "bands in channel order (comma-separated)")
	fs.BoolVar(&f.flags.AddNoise, "noise", false, "add Poisson noise to composite images")
	fs.Uint64Var(&f.seed, "seed", *d.Seed, "root seed for sampling and noise")

	fs.StringVar(&f.flags.CutBand, "cut-band", d.CutBand, "band of the faint-end magnitude cut")
	fs.Float64Var(&f.flags.MagCut, "mag-cut", d.MagCut, "faint-end magnitude cut (inclusive)")
	fs.Float64Var(&f.shiftMax, "shift-max", *d.ShiftMaxFrac, "max object offset as a fraction of the stamp size")
	fs.Float64Var(&f.flags.ShiftMinFrac, "shift-min", 0, "min object offset as a fraction of the stamp size (radial only)")
	fs.BoolVar(&f.flags.Radial, "radial", false, "draw offsets uniformly in an annulus instead of a square")
	fs.BoolVar(&f.flags.IncludeMax, "include-max", false, "allow blends of exactly --max-number objects")

	fs.StringVar(&f.flags.Survey, "survey", d.Survey, "observing conditions preset: lsst, hsc")
	fs.Float64Var(&f.flags.SeeingJitter, "seeing-jitter", 0, "fractional per-blend seeing scatter")
	fs.Float64Var(&f.flags.MinSNR, "min-snr", d.MinSNR, "objects below this SNR are skipped")
	fs.IntVar(&f.flags.Workers, "workers", d.Workers, "parallel blend renders (-1 for every CPU)")
	fs.Int64Var(&f.flags.StartBatch, "start", 0, "index of the first batch")
	fs.BoolVar(&f.flags.Refresh, "refresh", false, "redraw batches even if cached")
}

// resolve loads --config, if any, applies the flags that were set, and
// returns validated options logging to the command's logger.
func (f *optionFlags) resolve(cmd *cobra.Command) (pipeline.Options, error) {
	var opts pipeline.Options
	if f.config != "" {
		loaded, err := pipeline.LoadOptions(f.config)
		if err != nil {
			return pipeline.Options{}, err
		}
		opts = loaded
	}
	for name, apply := range optionOverrides {
		if cmd.Flags().Changed(name) {
			apply(&opts, f)
		}
	}
	opts.Logger = loggerFromContext(cmd.Context())
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return pipeline.Options{}, err
	}
	return opts, nil
}
