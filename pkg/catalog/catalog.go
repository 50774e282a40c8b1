// Package catalog defines the master source catalog and the per-blend
// catalogs drawn from it.
//
// A [Catalog] is the read-only table every blend is sampled from. A [Blend]
// is a short ordered list of [Entry] values: copies of catalog records
// placed relative to the blend center (in arcseconds) and, once drawn,
// annotated with pixel-space centroids.
//
// Catalogs can be read from Parquet ([ReadParquet]), JSON ([ReadJSON]) or a
// SQLite table ([ReadSQLite]); [Load] dispatches on the file extension.
package catalog

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"math"
	"slices"
	"sort"
)

// DefaultCutBand is the band whose magnitude the default sampler filters on.
const DefaultCutBand = "i"

// ErrNoEligible reports that a filter left no records to sample from.
var ErrNoEligible = errors.New("no eligible records")

// Record is one source in the master catalog.
type Record struct {
	// ID is the unique row identity.
	ID int64 `json:"id"`

	// RA and Dec are sky coordinates in arcseconds.
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`

	// Mags holds the AB magnitude per band identifier.
	Mags map[string]float64 `json:"mags"`

	// HalfLightRadius is the profile half-light radius in arcseconds.
	HalfLightRadius float64 `json:"half_light_radius"`

	// Ellipticity is 1 - b/a, in [0, 1).
	Ellipticity float64 `json:"ellipticity"`

	// PositionAngle is the major-axis angle in radians, counter-clockwise from +x.
	PositionAngle float64 `json:"position_angle"`
}

// Mag returns the magnitude in band and whether the record has one.
func (r Record) Mag(band string) (float64, bool) {
	m, ok := r.Mags[band]
	if !ok || math.IsNaN(m) {
		return 0, false
	}
	return m, true
}

// Clone returns a copy of r that does not share the Mags map.
func (r Record) Clone() Record {
	out := r
	if r.Mags != nil {
		out.Mags = make(map[string]float64, len(r.Mags))
		for k, v := range r.Mags {
			out.Mags[k] = v
		}
	}
	return out
}

// Catalog is an ordered, read-only table of source records.
type Catalog struct {
	records []Record
}

// New creates a catalog over a copy of records.
func New(records []Record) *Catalog {
	return &Catalog{records: slices.Clone(records)}
}

// Len returns the number of records.
func (c *Catalog) Len() int { return len(c.records) }

// Record returns the i-th record. The returned value shares its Mags map
// with the catalog; use [Record.Clone] before mutating it.
func (c *Catalog) Record(i int) Record { return c.records[i] }

// Records returns a copy of the record slice.
func (c *Catalog) Records() []Record { return slices.Clone(c.records) }

// Bands returns the sorted set of bands present in any record.
func (c *Catalog) Bands() []string {
	seen := make(map[string]bool)
	for _, r := range c.records {
		for b := range r.Mags {
			seen[b] = true
		}
	}
	out := make([]string, 0, len(seen))
	for b := range seen {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Filter returns the indices of records for which keep returns true, in
// catalog order.
func (c *Catalog) Filter(keep func(Record) bool) []int {
	var idx []int
	for i, r := range c.records {
		if keep(r) {
			idx = append(idx, i)
		}
	}
	return idx
}

// BrighterThan returns the indices of records whose magnitude in band is
// at most cut. Records without that band are excluded.
func (c *Catalog) BrighterThan(band string, cut float64) []int {
	return c.Filter(func(r Record) bool {
		m, ok := r.Mag(band)
		return ok && m <= cut
	})
}

// Fingerprint returns a stable SHA-256 hex digest of the catalog contents.
// It is used to key cached batches.
func (c *Catalog) Fingerprint() string {
	h := sha256.New()
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		h.Write(buf[:])
	}
	for _, r := range c.records {
		binary.LittleEndian.PutUint64(buf[:], uint64(r.ID))
		h.Write(buf[:])
		put(r.RA)
		put(r.Dec)
		put(r.HalfLightRadius)
		put(r.Ellipticity)
		put(r.PositionAngle)
		bands := make([]string, 0, len(r.Mags))
		for b := range r.Mags {
			bands = append(bands, b)
		}
		sort.Strings(bands)
		for _, b := range bands {
			h.Write([]byte(b))
			put(r.Mags[b])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}
