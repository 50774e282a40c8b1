package draw

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"slices"

	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
)

// EncodeBatch serializes b for caching. Arrays are stored as raw
// little-endian float64 data.
func EncodeBatch(b *Batch) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, fmt.Errorf("encode batch: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBatch parses data written by EncodeBatch.
func DecodeBatch(data []byte) (*Batch, error) {
	var b Batch
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return &b, nil
}

// CheckShape reports whether b has the layout a [Generator] with opts
// produces: batch_size blends over the configured bands, max_number
// isolated slots and square stamps. The stamp side is taken from
// BlendImages since it depends on the pixel scale of the conditions.
func (b *Batch) CheckShape(opts Options) error {
	if b.BlendImages == nil || b.IsolatedImages == nil || b.PSFImages == nil || b.SkyLevel == nil {
		return bgerrors.New(bgerrors.ErrCodeInvariant, "batch %d is missing an image array", b.Index)
	}
	if !slices.Equal(b.Bands, opts.Bands) {
		return bgerrors.New(bgerrors.ErrCodeInvariant, "batch %d has bands %v, want %v", b.Index, b.Bands, opts.Bands)
	}
	bs, nb, p := opts.BatchSize, len(opts.Bands), opts.PSFStampSize
	if len(b.Catalogs) != bs {
		return bgerrors.New(bgerrors.ErrCodeInvariant, "batch %d has %d catalogs, want %d", b.Index, len(b.Catalogs), bs)
	}
	n := -1
	if b.BlendImages.NDim() == 4 {
		n = b.BlendImages.Dim(1)
	}
	for _, c := range []struct {
		name string
		got  []int
		want []int
	}{
		{"blend_images", b.BlendImages.Shape(), []int{bs, n, n, nb}},
		{"isolated_images", b.IsolatedImages.Shape(), []int{bs, opts.MaxNumber, n, n, nb}},
		{"psf_images", b.PSFImages.Shape(), []int{bs, p, p, nb}},
		{"sky_level", b.SkyLevel.Shape(), []int{bs, nb}},
	} {
		if n < 1 || !slices.Equal(c.got, c.want) {
			return bgerrors.New(bgerrors.ErrCodeInvariant, "batch %d %s has shape %v, want %v", b.Index, c.name, c.got, c.want)
		}
	}
	return nil
}
