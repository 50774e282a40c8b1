package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
)

// Load reads a catalog from path, choosing the decoder from the file
// extension: .parquet, .json, or .sqlite/.db (using the "catalog" table).
//
// JSON and SQLite catalogs may carry any band. Parquet catalogs only read
// the u, g, r, i, z and y magnitude columns; other "<band>_ab" columns are
// ignored.
func Load(path string) (*Catalog, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, bgerrors.Wrap(bgerrors.ErrCodeFileNotFound, err, "catalog %s", path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	var (
		c   *Catalog
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		c, err = ReadParquetFile(path)
	case ".json":
		c, err = ImportJSON(path)
	case ".sqlite", ".db":
		c, err = ReadSQLite(path, DefaultSQLiteTable)
	default:
		return nil, bgerrors.New(bgerrors.ErrCodeUnsupported, "unsupported catalog format: %q", ext)
	}
	if err != nil {
		return nil, err
	}
	if c.Len() == 0 {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "catalog %s has no records", path)
	}
	return c, nil
}

// jsonCatalog is the on-disk JSON layout.
type jsonCatalog struct {
	Records []Record `json:"records"`
}

// ReadJSON decodes a JSON catalog from r.
//
// The input must be an object with a "records" array:
//
//	{
//	  "records": [
//	    {"id": 1, "ra": 0.5, "dec": -1.2, "mags": {"i": 24.1, "r": 24.6},
//	     "half_light_radius": 0.4, "ellipticity": 0.2, "position_angle": 1.1}
//	  ]
//	}
//
// Record IDs must be unique.
func ReadJSON(r io.Reader) (*Catalog, error) {
	var data jsonCatalog
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := checkUniqueIDs(data.Records); err != nil {
		return nil, err
	}
	return New(data.Records), nil
}

// ImportJSON reads a JSON catalog file at path.
func ImportJSON(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	c, err := ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// WriteJSON encodes c to w in the layout accepted by [ReadJSON].
func WriteJSON(w io.Writer, c *Catalog) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonCatalog{Records: c.records})
}

func checkUniqueIDs(records []Record) error {
	seen := make(map[int64]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			return bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "duplicate record id %d", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
