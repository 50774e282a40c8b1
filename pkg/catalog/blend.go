package catalog

// Entry is one object in a blend: a copy of a catalog record positioned
// relative to the blend center.
//
// RA and Dec of the embedded Record hold the offset from the blend center
// in arcseconds (the sampler recenters the source to the origin before
// adding its shift). SourceRA and SourceDec keep the catalog position.
type Entry struct {
	Record

	SourceRA  float64 `json:"source_ra"`
	SourceDec float64 `json:"source_dec"`

	// DxPix and DyPix are the pixel-space centroid, valid when HasPixels.
	DxPix     float64 `json:"dx_pix"`
	DyPix     float64 `json:"dy_pix"`
	HasPixels bool    `json:"has_pixels"`
}

// NewEntry places a copy of r at offset (dx, dy) arcseconds from the blend
// center.
func NewEntry(r Record, dx, dy float64) Entry {
	e := Entry{Record: r.Clone(), SourceRA: r.RA, SourceDec: r.Dec}
	e.RA = dx
	e.Dec = dy
	return e
}

// DxSky returns the horizontal offset from the blend center in arcseconds.
func (e Entry) DxSky() float64 { return e.RA }

// DySky returns the vertical offset from the blend center in arcseconds.
func (e Entry) DySky() float64 { return e.Dec }

// Blend is the ordered list of objects in one scene.
type Blend []Entry

// Clone returns a deep copy of b.
func (b Blend) Clone() Blend {
	if b == nil {
		return nil
	}
	out := make(Blend, len(b))
	for i, e := range b {
		out[i] = e
		out[i].Record = e.Record.Clone()
	}
	return out
}

// IDs returns the catalog row identities of the blend's entries.
func (b Blend) IDs() []int64 {
	ids := make([]int64, len(b))
	for i, e := range b {
		ids[i] = e.ID
	}
	return ids
}
