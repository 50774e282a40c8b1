// Package render defines the galaxy rendering capability blends are drawn
// with.
//
// # Overview
//
// A [Renderer] turns one blend entry into a stamp of pixel values for one
// band under one observing condition. The draw pipeline treats renderers as
// black boxes: it only distinguishes [ErrNotVisible], which skips the
// object for that band, from every other error, which aborts the batch.
//
//	stamp, err := r.Render(entry, "i", cond, 120)
//	if errors.Is(err, render.ErrNotVisible) {
//	    // object too faint or outside the stamp in this band
//	}
//
// Each call must return a freshly allocated stamp; callers add it into
// shared canvases and keep it as the isolated image.
//
// The [analytic] subpackage provides a convolved elliptical Gaussian
// renderer with no external dependencies.
//
// [analytic]: github.com/matzehuels/blendgen/pkg/render/analytic
package render
