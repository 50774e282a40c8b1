package catalog

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetBands lists the magnitude columns understood in Parquet catalogs,
// in column order. Column names follow the "<band>_ab" convention.
var parquetBands = []string{"u", "g", "r", "i", "z", "y"}

// parquetRecord is the Parquet row layout of a catalog record.
type parquetRecord struct {
	ID              int64    `parquet:"id"`
	RA              float64  `parquet:"ra"`
	Dec             float64  `parquet:"dec"`
	HalfLightRadius float64  `parquet:"half_light_radius"`
	Ellipticity     float64  `parquet:"ellipticity"`
	PositionAngle   float64  `parquet:"position_angle"`
	U               *float64 `parquet:"u_ab,optional"`
	G               *float64 `parquet:"g_ab,optional"`
	R               *float64 `parquet:"r_ab,optional"`
	I               *float64 `parquet:"i_ab,optional"`
	Z               *float64 `parquet:"z_ab,optional"`
	Y               *float64 `parquet:"y_ab,optional"`
}

func (p *parquetRecord) mags() []**float64 {
	return []**float64{&p.U, &p.G, &p.R, &p.I, &p.Z, &p.Y}
}

func fromParquet(p parquetRecord) Record {
	r := Record{
		ID:              p.ID,
		RA:              p.RA,
		Dec:             p.Dec,
		HalfLightRadius: p.HalfLightRadius,
		Ellipticity:     p.Ellipticity,
		PositionAngle:   p.PositionAngle,
		Mags:            make(map[string]float64),
	}
	for i, m := range p.mags() {
		if *m != nil {
			r.Mags[parquetBands[i]] = **m
		}
	}
	return r
}

func toParquet(r Record) parquetRecord {
	p := parquetRecord{
		ID:              r.ID,
		RA:              r.RA,
		Dec:             r.Dec,
		HalfLightRadius: r.HalfLightRadius,
		Ellipticity:     r.Ellipticity,
		PositionAngle:   r.PositionAngle,
	}
	for i, m := range p.mags() {
		if v, ok := r.Mags[parquetBands[i]]; ok {
			*m = &v
		}
	}
	return p
}

// ReadParquetFile reads a Parquet catalog from path.
func ReadParquetFile(path string) (*Catalog, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return ReadParquet(file, info.Size())
}

// ReadParquet reads a Parquet catalog of the given size from r.
func ReadParquet(r io.ReaderAt, size int64) (*Catalog, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[parquetRecord](pf)
	defer reader.Close()

	records := make([]Record, 0, pf.NumRows())
	rows := make([]parquetRecord, 128)
	for {
		n, err := reader.Read(rows)
		for _, row := range rows[:n] {
			records = append(records, fromParquet(row))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}

	if err := checkUniqueIDs(records); err != nil {
		return nil, err
	}
	return New(records), nil
}

// WriteParquet writes c to w as a Parquet file.
func WriteParquet(w io.Writer, c *Catalog) error {
	rows := make([]parquetRecord, len(c.records))
	for i, r := range c.records {
		rows[i] = toParquet(r)
	}
	pw := parquet.NewGenericWriter[parquetRecord](w)
	if _, err := pw.Write(rows); err != nil {
		return fmt.Errorf("write parquet rows: %w", err)
	}
	return pw.Close()
}

// BlendRow is the Parquet row layout used when exporting drawn blend
// catalogs: one row per object, keyed by batch and blend position.
type BlendRow struct {
	Batch     int64    `parquet:"batch"`
	Blend     int32    `parquet:"blend"`
	Object    int32    `parquet:"object"`
	ID        int64    `parquet:"id"`
	DxSky     float64  `parquet:"dx_sky"`
	DySky     float64  `parquet:"dy_sky"`
	DxPix     *float64 `parquet:"dx_pix,optional"`
	DyPix     *float64 `parquet:"dy_pix,optional"`
	SourceRA  float64  `parquet:"source_ra"`
	SourceDec float64  `parquet:"source_dec"`
	U         *float64 `parquet:"u_ab,optional"`
	G         *float64 `parquet:"g_ab,optional"`
	R         *float64 `parquet:"r_ab,optional"`
	I         *float64 `parquet:"i_ab,optional"`
	Z         *float64 `parquet:"z_ab,optional"`
	Y         *float64 `parquet:"y_ab,optional"`
}

// BlendRows flattens the blends of one batch into Parquet rows.
func BlendRows(batch int64, blends []Blend) []BlendRow {
	var rows []BlendRow
	for bi, b := range blends {
		for oi, e := range b {
			p := toParquet(e.Record)
			row := BlendRow{
				Batch:     batch,
				Blend:     int32(bi),
				Object:    int32(oi),
				ID:        e.ID,
				DxSky:     e.DxSky(),
				DySky:     e.DySky(),
				SourceRA:  e.SourceRA,
				SourceDec: e.SourceDec,
				U:         p.U,
				G:         p.G,
				R:         p.R,
				I:         p.I,
				Z:         p.Z,
				Y:         p.Y,
			}
			if e.HasPixels {
				dx, dy := e.DxPix, e.DyPix
				row.DxPix, row.DyPix = &dx, &dy
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteBlendsParquet writes the drawn blend catalogs of one batch to w.
func WriteBlendsParquet(w io.Writer, batch int64, blends []Blend) error {
	pw := parquet.NewGenericWriter[BlendRow](w)
	if _, err := pw.Write(BlendRows(batch, blends)); err != nil {
		return fmt.Errorf("write blend rows: %w", err)
	}
	return pw.Close()
}
