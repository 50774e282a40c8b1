package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/blendgen/pkg/blend"
	"github.com/matzehuels/blendgen/pkg/cache"
	"github.com/matzehuels/blendgen/pkg/catalog"
	"github.com/matzehuels/blendgen/pkg/draw"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/ndarray"
)

func testCatalog() *catalog.Catalog {
	var recs []catalog.Record
	for i := range 12 {
		mag := 21 + float64(i)*0.4
		recs = append(recs, catalog.Record{
			ID:              int64(i + 1),
			RA:              float64(i) * 3,
			Dec:             float64(i) * -2,
			Mags:            map[string]float64{"u": mag + 1, "g": mag + 0.5, "r": mag, "i": mag - 0.2, "z": mag - 0.3, "y": mag - 0.3},
			HalfLightRadius: 0.4 + float64(i%3)*0.2,
			Ellipticity:     0.1 * float64(i%4),
			PositionAngle:   0.3 * float64(i),
		})
	}
	return catalog.New(recs)
}

func testOptions() Options {
	return Options{
		StampSize:    2,
		PSFStampSize: 5,
		MaxNumber:    3,
		BatchSize:    2,
		Bands:        []string{"g", "r"},
		AddNoise:     true,
		Seed:         Uint64(7),
	}
}

func TestSetDefaults(t *testing.T) {
	var o Options
	o.SetDefaults()

	if o.StampSize != DefaultStampSize || o.PSFStampSize != DefaultPSFStampSize {
		t.Errorf("stamp sizes = %v, %v", o.StampSize, o.PSFStampSize)
	}
	if o.MaxNumber != DefaultMaxNumber || o.BatchSize != DefaultBatchSize {
		t.Errorf("max_number, batch_size = %d, %d", o.MaxNumber, o.BatchSize)
	}
	if diff := cmp.Diff(DefaultBands, o.Bands); diff != "" {
		t.Errorf("bands mismatch (-want +got):\n%s", diff)
	}
	if o.Seed == nil || *o.Seed != DefaultSeed {
		t.Errorf("Seed = %v, want %d", o.Seed, DefaultSeed)
	}
	if o.CutBand != "i" || o.MagCut != 25.3 || o.ShiftMaxFrac == nil || *o.ShiftMaxFrac != 0.1 {
		t.Errorf("sampling = %s, %v, %v", o.CutBand, o.MagCut, o.ShiftMaxFrac)
	}
	if o.Survey != "lsst" || o.Workers != DefaultWorkers || o.Logger == nil {
		t.Errorf("survey, workers, logger = %s, %d, %v", o.Survey, o.Workers, o.Logger)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	// Defaults must not alias the package-level band list.
	o.Bands[0] = "x"
	if DefaultBands[0] != "u" {
		t.Error("SetDefaults aliased DefaultBands")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
	}{
		{"negative stamp", func(o *Options) { o.StampSize = -1 }},
		{"negative psf", func(o *Options) { o.PSFStampSize = -3 }},
		{"negative max", func(o *Options) { o.MaxNumber = -1 }},
		{"duplicate bands", func(o *Options) { o.Bands = []string{"g", "g"} }},
		{"bad band name", func(o *Options) { o.Bands = []string{"g/r"} }},
		{"unknown survey", func(o *Options) { o.Survey = "sdss" }},
		{"band not in survey", func(o *Options) { o.Survey = "hsc"; o.Bands = []string{"u"} }},
		{"shift min above max", func(o *Options) { o.ShiftMinFrac = 0.3 }},
		{"negative jitter", func(o *Options) { o.SeeingJitter = -0.1 }},
		{"negative min snr", func(o *Options) { o.MinSNR = -1 }},
		{"negative start", func(o *Options) { o.StartBatch = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := testOptions()
			tt.modify(&o)
			err := o.ValidateAndSetDefaults()
			if err == nil {
				t.Fatal("expected an error")
			}
			if code := bgerrors.GetCode(err); code != bgerrors.ErrCodeInvalidConfig && code != bgerrors.ErrCodeInvalidBand {
				t.Errorf("code = %s, want INVALID_CONFIG or INVALID_BAND", code)
			}
		})
	}
}

func TestValidateAndSetDefaultsIdempotent(t *testing.T) {
	o := testOptions()
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	// A later invalid edit is not re-checked once validated.
	o.BatchSize = -1
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Errorf("second call should be a no-op, got %v", err)
	}
}

func TestLoadOptions(t *testing.T) {
	files := map[string]string{
		"opts.toml": "stamp_size = 12.5\nbands = [\"g\", \"r\"]\nadd_noise = true\nseed = 9\nsurvey = \"hsc\"\n",
		"opts.yaml": "stamp_size: 12.5\nbands: [g, r]\nadd_noise: true\nseed: 9\nsurvey: hsc\n",
		"opts.json": `{"stamp_size": 12.5, "bands": ["g", "r"], "add_noise": true, "seed": 9, "survey": "hsc"}`,
	}
	dir := t.TempDir()
	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			o, err := LoadOptions(path)
			if err != nil {
				t.Fatalf("LoadOptions: %v", err)
			}
			if o.StampSize != 12.5 || !o.AddNoise || o.Seed == nil || *o.Seed != 9 || o.Survey != "hsc" {
				t.Errorf("loaded %+v", o)
			}
			if diff := cmp.Diff([]string{"g", "r"}, o.Bands); diff != "" {
				t.Errorf("bands mismatch (-want +got):\n%s", diff)
			}
			if o.BatchSize != 0 {
				t.Errorf("BatchSize = %d, want 0 before defaults", o.BatchSize)
			}
		})
	}
}

func TestLoadOptionsErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadOptions(filepath.Join(dir, "missing.toml")); !bgerrors.Is(err, bgerrors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
	if _, err := LoadOptions(filepath.Join(dir, "opts.ini")); !bgerrors.Is(err, bgerrors.ErrCodeUnsupported) {
		t.Errorf("unsupported extension error = %v, want UNSUPPORTED", err)
	}

	bad := filepath.Join(dir, "bad.json")
	os.WriteFile(bad, []byte(`{"stamp_sise": 3}`), 0o644)
	if _, err := LoadOptions(bad); !bgerrors.Is(err, bgerrors.ErrCodeInvalidConfig) {
		t.Errorf("unknown field error = %v, want INVALID_CONFIG", err)
	}
}

func TestEncodeOptions(t *testing.T) {
	o := DefaultOptions()
	o.Catalog = "cat.parquet"

	for _, format := range []string{FormatTOML, FormatYAML, FormatJSON} {
		t.Run(format, func(t *testing.T) {
			var sb strings.Builder
			if err := EncodeOptions(&sb, o, format); err != nil {
				t.Fatalf("EncodeOptions: %v", err)
			}
			got, err := DecodeOptions([]byte(sb.String()), format)
			if err != nil {
				t.Fatalf("DecodeOptions: %v\n%s", err, sb.String())
			}
			if got.Catalog != o.Catalog || got.StampSize != o.StampSize || got.MagCut != o.MagCut {
				t.Errorf("decoded %+v", got)
			}
		})
	}
}

func TestNewConditions(t *testing.T) {
	o := testOptions()
	o.SetDefaults()

	gen, err := o.NewConditions()
	if err != nil {
		t.Fatal(err)
	}
	sets, err := gen.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(sets) != o.BatchSize {
		t.Fatalf("got %d sets, want %d", len(sets), o.BatchSize)
	}
	if sets[0][0].PSFSigma() != sets[1][0].PSFSigma() {
		t.Error("constant conditions should repeat")
	}

	o.SeeingJitter = 0.3
	gen, _ = o.NewConditions()
	sets, _ = gen.Next(context.Background())
	if sets[0][0].PSFSigma() == sets[1][0].PSFSigma() {
		t.Error("jittered seeing should vary between blends")
	}
}

func TestRunnerBatchMatchesRun(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog()
	r := NewRunner(nil, nil, nil)

	var run []*draw.Batch
	stats, err := r.Run(ctx, testOptions(), cat, 3, func(b *draw.Batch) error {
		run = append(run, b)
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Batches != 3 || stats.Blends != 6 || stats.CacheHits != 0 {
		t.Errorf("stats = %+v", stats)
	}

	b, hit, err := r.Batch(ctx, testOptions(), cat, 2)
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if hit {
		t.Error("NullCache should never hit")
	}
	if b.Index != 2 {
		t.Errorf("Index = %d, want 2", b.Index)
	}
	if diff := cmp.Diff(run[2].BlendImages.Data(), b.BlendImages.Data()); diff != "" {
		t.Errorf("batch 2 differs from the third batch of a run (-run +batch):\n%s", diff)
	}
	if diff := cmp.Diff(run[2].Catalogs, b.Catalogs); diff != "" {
		t.Errorf("catalogs differ (-run +batch):\n%s", diff)
	}
}

func TestRunnerStartBatch(t *testing.T) {
	ctx := context.Background()
	cat := testCatalog()
	r := NewRunner(nil, nil, nil)

	opts := testOptions()
	opts.StartBatch = 4
	var indexes []int64
	_, err := r.Run(ctx, opts, cat, 2, func(b *draw.Batch) error {
		indexes = append(indexes, b.Index)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{4, 5}, indexes); diff != "" {
		t.Errorf("indexes mismatch (-want +got):\n%s", diff)
	}
}

func TestRunnerCache(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()
	cat := testCatalog()

	first, hit, err := r.Batch(ctx, testOptions(), cat, 1)
	if err != nil || hit {
		t.Fatalf("first Batch = hit %v, err %v", hit, err)
	}
	second, hit, err := r.Batch(ctx, testOptions(), cat, 1)
	if err != nil || !hit {
		t.Fatalf("second Batch = hit %v, err %v", hit, err)
	}
	if second.ID != first.ID {
		t.Errorf("cached ID = %v, want %v", second.ID, first.ID)
	}
	if diff := cmp.Diff(first.BlendImages.Data(), second.BlendImages.Data()); diff != "" {
		t.Errorf("cached pixels differ (-drawn +cached):\n%s", diff)
	}

	opts := testOptions()
	opts.Refresh = true
	if _, hit, _ := r.Batch(ctx, opts, cat, 1); hit {
		t.Error("Refresh should bypass the cache")
	}

	opts = testOptions()
	opts.Seed = Uint64(8)
	if _, hit, _ := r.Batch(ctx, opts, cat, 1); hit {
		t.Error("a different seed should miss")
	}

	// Run serves cached batches and draws the rest.
	stats, err := r.Run(ctx, testOptions(), cat, 3, func(*draw.Batch) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if stats.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", stats.CacheHits)
	}
}

func TestRunnerCustomSamplerNotCached(t *testing.T) {
	ctx := context.Background()
	c, _ := cache.NewFileCache(t.TempDir())
	r := NewRunner(c, nil, nil)
	cat := testCatalog()

	opts := testOptions()
	opts.Sampler = blend.SamplerFunc(func(rng *rand.Rand, cfg blend.Config, cat *catalog.Catalog) (catalog.Blend, error) {
		return catalog.Blend{catalog.NewEntry(cat.Record(0), 0, 0)}, nil
	})

	for range 2 {
		b, hit, err := r.Batch(ctx, opts, cat, 0)
		if err != nil {
			t.Fatal(err)
		}
		if hit {
			t.Error("custom samplers should not be cached")
		}
		if len(b.Catalogs[0]) != 1 || b.Catalogs[0][0].ID != 1 {
			t.Errorf("custom sampler not used: %+v", b.Catalogs[0])
		}
	}
}

func TestRunnerRunStop(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	calls := 0
	stats, err := r.Run(context.Background(), testOptions(), testCatalog(), 0, func(*draw.Batch) error {
		calls++
		if calls == 2 {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		t.Errorf("ErrStop should end the run cleanly, got %v", err)
	}
	if stats.Batches != 2 {
		t.Errorf("Batches = %d, want 2", stats.Batches)
	}
}

func TestRunnerRunCallbackError(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	boom := errors.New("disk full")
	_, err := r.Run(context.Background(), testOptions(), testCatalog(), 5, func(*draw.Batch) error { return boom })
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want %v", err, boom)
	}
}

func TestRunnerCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner(nil, nil, nil)
	if _, err := r.Run(ctx, testOptions(), testCatalog(), 0, func(*draw.Batch) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	if _, err := r.LoadCatalog(Options{}); !bgerrors.Is(err, bgerrors.ErrCodeInvalidInput) {
		t.Errorf("empty path error = %v, want INVALID_INPUT", err)
	}

	path := filepath.Join(t.TempDir(), "cat.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := catalog.WriteJSON(f, testCatalog()); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cat, err := r.LoadCatalog(Options{Catalog: path})
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if cat.Len() != 12 {
		t.Errorf("Len = %d, want 12", cat.Len())
	}
	if cat.Fingerprint() != testCatalog().Fingerprint() {
		t.Error("loaded catalog should match the written one")
	}
}

func TestRunnerCacheRejectsMismatchedShape(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	defer r.Close()
	cat := testCatalog()

	b, _, err := r.Batch(ctx, testOptions(), cat, 0)
	if err != nil {
		t.Fatal(err)
	}
	b.SkyLevel = ndarray.Zeros(1, 1)
	data, err := draw.EncodeBatch(b)
	if err != nil {
		t.Fatal(err)
	}
	opts := testOptions()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if err := c.Set(ctx, r.key(opts, cat.Fingerprint(), 0), data, cache.TTLBatch); err != nil {
		t.Fatal(err)
	}

	redrawn, hit, err := r.Batch(ctx, testOptions(), cat, 0)
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Fatal("a cached batch with the wrong shape should be redrawn")
	}
	if got := redrawn.SkyLevel.Shape(); !slices.Equal(got, []int{2, 2}) {
		t.Errorf("sky_level shape = %v, want [2 2]", got)
	}
	if _, hit, _ := r.Batch(ctx, testOptions(), cat, 0); !hit {
		t.Error("the redrawn batch should replace the bad entry")
	}
}

func TestLoadCatalogChecksBands(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	recs := testCatalog().Records()
	for i := range recs {
		recs[i].Mags["w"] = 22
	}
	path := filepath.Join(t.TempDir(), "cat.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := catalog.WriteParquet(f, catalog.New(recs)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := r.LoadCatalog(Options{Catalog: path, Bands: []string{"g", "r"}}); err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	tests := []struct {
		name string
		opts Options
	}{
		{"band not in parquet columns", Options{Catalog: path, Bands: []string{"g", "w"}}},
		{"cut band", Options{Catalog: path, Bands: []string{"g"}, CutBand: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.LoadCatalog(tt.opts); !bgerrors.Is(err, bgerrors.ErrCodeInvalidBand) {
				t.Errorf("error = %v, want %s", err, bgerrors.ErrCodeInvalidBand)
			}
		})
	}
}

func TestExplicitZeroSeedAndShift(t *testing.T) {
	o := testOptions()
	o.Seed = Uint64(0)
	o.ShiftMaxFrac = Float64(0)
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if *o.Seed != 0 || *o.ShiftMaxFrac != 0 {
		t.Fatalf("seed, shift = %d, %v, want 0, 0", *o.Seed, *o.ShiftMaxFrac)
	}
	if got := o.DrawOptions().Seed; got != 0 {
		t.Errorf("DrawOptions().Seed = %d, want 0", got)
	}

	b, _, err := NewRunner(nil, nil, nil).Batch(context.Background(), o, testCatalog(), 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, bl := range b.Catalogs {
		for _, e := range bl {
			if e.DxSky() != 0 || e.DySky() != 0 {
				t.Errorf("blend %d object %d at (%v, %v), want the center", i, e.ID, e.DxSky(), e.DySky())
			}
		}
	}

	loaded, err := DecodeOptions([]byte("seed = 0\nshift_max_frac = 0.0\n"), FormatTOML)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Seed == nil || loaded.ShiftMaxFrac == nil {
		t.Fatalf("explicit zeros decoded as unset: %+v", loaded)
	}
	loaded.SetDefaults()
	if *loaded.Seed != 0 || *loaded.ShiftMaxFrac != 0 {
		t.Errorf("defaults overwrote explicit zeros: seed %d, shift %v", *loaded.Seed, *loaded.ShiftMaxFrac)
	}
}
