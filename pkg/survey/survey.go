// Package survey describes the observing conditions blends are drawn under.
//
// # Overview
//
// A [Condition] is everything the renderer needs to know about one band of
// one exposure: pixel scale, mean sky level, photometric zero point,
// exposure time and a PSF. A [ConditionSet] holds one Condition per band,
// in configured band order. A [Generator] produces one ConditionSet per
// blend of a batch, so conditions may vary from blend to blend.
//
// # Surveys
//
// Built-in [Survey] presets ("lsst", "hsc") carry per-band instrument
// parameters. [Survey.Conditions] turns a preset into a ConditionSet with a
// circular Gaussian PSF whose FWHM is the band's median seeing:
//
//	s, _ := survey.Lookup("lsst")
//	set, err := s.Conditions([]string{"g", "r", "i"})
//
// [ConstantGenerator] repeats one set for every blend; [JitterGenerator]
// perturbs the seeing of each blend from a seeded random stream.
package survey

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/mat"

	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
)

// fwhmToSigma converts a Gaussian FWHM to its standard deviation.
const fwhmToSigma = 1 / 2.3548200450309493

// Condition is one band's observing condition.
type Condition interface {
	// Band returns the band identifier.
	Band() string

	// PixelScale returns the pixel size in arcseconds.
	PixelScale() float64

	// MeanSkyLevel returns the mean sky background in counts per pixel.
	MeanSkyLevel() float64

	// ZeroPoint returns the detected counts per second of a 24th
	// magnitude source.
	ZeroPoint() float64

	// ExposureTime returns the total exposure time in seconds.
	ExposureTime() float64

	// PSFSigma returns the Gaussian PSF width in arcseconds.
	PSFSigma() float64

	// DrawPSF renders the unit-flux PSF into an n×n stamp centered on the
	// middle of the stamp.
	DrawPSF(n int) *mat.Dense
}

// ConditionSet holds one Condition per band, in band order.
type ConditionSet []Condition

// Bands returns the band of each condition.
func (s ConditionSet) Bands() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = c.Band()
	}
	return out
}

// Check verifies that s covers exactly bands, in order.
func (s ConditionSet) Check(bands []string) error {
	if got := s.Bands(); !slices.Equal(got, bands) {
		return bgerrors.New(bgerrors.ErrCodeInvalidConfig, "condition bands %v do not match configured bands %v", got, bands)
	}
	return nil
}

// Filter holds the instrument parameters of one band.
type Filter struct {
	Band string `json:"band" yaml:"band"`

	// ZeroPoint is in detected counts per second for a 24th magnitude source.
	ZeroPoint float64 `json:"zero_point" yaml:"zero_point"`

	// ExposureTime is the total exposure time in seconds.
	ExposureTime float64 `json:"exposure_time" yaml:"exposure_time"`

	// SkyBrightness is in AB magnitudes per square arcsecond.
	SkyBrightness float64 `json:"sky_brightness" yaml:"sky_brightness"`

	// SeeingFWHM is the median PSF FWHM in arcseconds.
	SeeingFWHM float64 `json:"seeing_fwhm" yaml:"seeing_fwhm"`
}

// Survey is a named instrument with per-band filters.
type Survey struct {
	Name       string   `json:"name" yaml:"name"`
	PixelScale float64  `json:"pixel_scale" yaml:"pixel_scale"`
	Filters    []Filter `json:"filters" yaml:"filters"`
}

// Filter returns the filter for band.
func (s Survey) Filter(band string) (Filter, bool) {
	for _, f := range s.Filters {
		if f.Band == band {
			return f, true
		}
	}
	return Filter{}, false
}

// Conditions returns the median-seeing ConditionSet for bands.
func (s Survey) Conditions(bands []string) (ConditionSet, error) {
	if len(bands) == 0 {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidConfig, "no bands requested")
	}
	set := make(ConditionSet, len(bands))
	for i, b := range bands {
		f, ok := s.Filter(b)
		if !ok {
			return nil, bgerrors.New(bgerrors.ErrCodeInvalidBand, "survey %s has no %q band", s.Name, b)
		}
		set[i] = NewObservation(s.PixelScale, f)
	}
	return set, nil
}

var presets = map[string]Survey{
	"lsst": {
		Name:       "lsst",
		PixelScale: 0.2,
		Filters: []Filter{
			{Band: "u", ZeroPoint: 9.16, ExposureTime: 16800, SkyBrightness: 22.99, SeeingFWHM: 0.859},
			{Band: "g", ZeroPoint: 50.70, ExposureTime: 33120, SkyBrightness: 22.26, SeeingFWHM: 0.814},
			{Band: "r", ZeroPoint: 43.70, ExposureTime: 74400, SkyBrightness: 21.20, SeeingFWHM: 0.764},
			{Band: "i", ZeroPoint: 32.36, ExposureTime: 74400, SkyBrightness: 20.48, SeeingFWHM: 0.737},
			{Band: "z", ZeroPoint: 22.68, ExposureTime: 67200, SkyBrightness: 19.60, SeeingFWHM: 0.725},
			{Band: "y", ZeroPoint: 10.58, ExposureTime: 66000, SkyBrightness: 18.61, SeeingFWHM: 0.703},
		},
	},
	"hsc": {
		Name:       "hsc",
		PixelScale: 0.17,
		Filters: []Filter{
			{Band: "g", ZeroPoint: 91.11, ExposureTime: 14400, SkyBrightness: 21.4, SeeingFWHM: 0.72},
			{Band: "r", ZeroPoint: 87.74, ExposureTime: 14400, SkyBrightness: 20.6, SeeingFWHM: 0.67},
			{Band: "i", ZeroPoint: 69.80, ExposureTime: 21600, SkyBrightness: 19.7, SeeingFWHM: 0.56},
			{Band: "z", ZeroPoint: 29.56, ExposureTime: 21600, SkyBrightness: 18.3, SeeingFWHM: 0.64},
			{Band: "y", ZeroPoint: 21.53, ExposureTime: 21600, SkyBrightness: 17.9, SeeingFWHM: 0.64},
		},
	},
}

// DefaultSurvey is the preset used when none is configured.
const DefaultSurvey = "lsst"

// Lookup returns the preset named name.
func Lookup(name string) (Survey, error) {
	s, ok := presets[name]
	if !ok {
		return Survey{}, bgerrors.New(bgerrors.ErrCodeInvalidConfig, "unknown survey %q (available: %v)", name, Names())
	}
	s.Filters = slices.Clone(s.Filters)
	return s, nil
}

// Names returns the sorted preset names.
func Names() []string {
	out := make([]string, 0, len(presets))
	for n := range presets {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Observation is a [Condition] with a circular Gaussian PSF.
type Observation struct {
	band          string
	pixelScale    float64
	zeroPoint     float64
	exposureTime  float64
	skyBrightness float64
	fwhm          float64
}

// NewObservation returns the condition for filter f at the given pixel scale.
func NewObservation(pixelScale float64, f Filter) *Observation {
	return &Observation{
		band:          f.Band,
		pixelScale:    pixelScale,
		zeroPoint:     f.ZeroPoint,
		exposureTime:  f.ExposureTime,
		skyBrightness: f.SkyBrightness,
		fwhm:          f.SeeingFWHM,
	}
}

// WithSeeing returns a copy of o with the PSF FWHM set to fwhm arcseconds.
func (o *Observation) WithSeeing(fwhm float64) *Observation {
	c := *o
	c.fwhm = fwhm
	return &c
}

func (o *Observation) Band() string          { return o.band }
func (o *Observation) PixelScale() float64   { return o.pixelScale }
func (o *Observation) ZeroPoint() float64    { return o.zeroPoint }
func (o *Observation) ExposureTime() float64 { return o.exposureTime }
func (o *Observation) SeeingFWHM() float64   { return o.fwhm }
func (o *Observation) PSFSigma() float64     { return o.fwhm * fwhmToSigma }

// MeanSkyLevel returns the sky flux falling on one pixel.
func (o *Observation) MeanSkyLevel() float64 {
	return Flux(o, o.skyBrightness) * o.pixelScale * o.pixelScale
}

// DrawPSF implements [Condition].
func (o *Observation) DrawPSF(n int) *mat.Dense {
	return GaussianStamp(n, o.PSFSigma()/o.pixelScale)
}

// Flux returns the detected counts of a source of magnitude mag under c.
func Flux(c Condition, mag float64) float64 {
	return c.ExposureTime() * c.ZeroPoint() * math.Pow(10, -0.4*(mag-24))
}

// GaussianStamp returns an n×n circular Gaussian of width sigma pixels,
// centered on the stamp and normalized to unit sum.
func GaussianStamp(n int, sigma float64) *mat.Dense {
	if n <= 0 {
		return nil
	}
	m := mat.NewDense(n, n, nil)
	c := float64(n-1) / 2
	var sum float64
	for y := range n {
		for x := range n {
			dx, dy := float64(x)-c, float64(y)-c
			v := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			m.Set(y, x, v)
			sum += v
		}
	}
	if sum > 0 {
		m.Scale(1/sum, m)
	}
	return m
}
