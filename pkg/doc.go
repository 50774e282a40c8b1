// Package pkg provides the core libraries for blendgen synthetic blend
// generation.
//
// # Overview
//
// blendgen samples groups of galaxies from a source catalog, places them
// around a common center, renders each one under survey observing
// conditions and stacks the results into batches of composite images,
// isolated images, PSFs and annotated catalogs.
//
// # Architecture
//
// The data flow through blendgen:
//
//	Master catalog (.parquet, .json, .sqlite)
//	         ↓
//	    [catalog] package (records, blend entries)
//	         ↓
//	    [blend] package (sample and shift blends per batch)
//	         ↓
//	    [survey] package (observing conditions per blend)
//	         ↓
//	    [draw] package (render, add noise, stack into a batch)
//	         ↓
//	    [sink] / [preview] / HTTP feed
//
// # Quick Start
//
//	runner := pipeline.NewRunner(nil, nil, logger)
//	opts := pipeline.Options{Catalog: "cosmos.parquet", Bands: []string{"g", "r", "i"}}
//	cat, _ := runner.LoadCatalog(opts)
//	stats, _ := runner.Run(ctx, opts, cat, 10, func(b *draw.Batch) error {
//	    return w.WriteBatch(b)
//	})
//
// # Main Packages
//
// [catalog] - Catalog records, blend entries, parquet and SQLite I/O.
//
// [blend] - Blend list generation: object counts, magnitude cut, center
// shifts.
//
// [survey] - Observing condition presets (pixel scale, PSF, sky level,
// zero point) and per-blend jitter.
//
// [render] - The renderer interface; [render/analytic] draws elliptical
// Gaussians convolved with a Gaussian PSF.
//
// [noise] - Poisson noise on sky plus source.
//
// [draw] - Batch drawing: geometry, worker pools, stacking and the batch
// codec.
//
// [pipeline] - Options, config files, caching and the batch runner used by
// the CLI and server.
//
// [cache] - Batch caches backed by files, Redis or MongoDB.
//
// [sink] - .npy and parquet batch output with a run manifest.
//
// [preview] - PNG heatmaps of blends and isolated objects.
//
// [overlap] - Overlap graphs and friends-of-friends groups of a blend.
//
// [ndarray], [rng], [errors], [observability] and [buildinfo] are shared
// utilities.
package pkg
