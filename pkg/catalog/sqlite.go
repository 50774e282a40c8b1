package catalog

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
)

// DefaultSQLiteTable is the table [Load] reads from .sqlite and .db files.
const DefaultSQLiteTable = "catalog"

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ReadSQLite reads a catalog from table in the SQLite database at path.
//
// The table must have the columns id, ra and dec. The optional columns
// half_light_radius, ellipticity and position_angle fill the morphology
// fields, and every column named "<band>_ab" becomes a magnitude for that
// band. NULL magnitudes are skipped. Other columns are not read, so tables
// may carry names, flags or text columns alongside the photometry.
func ReadSQLite(path, table string) (*Catalog, error) {
	if !tableNameRegex.MatchString(table) {
		return nil, bgerrors.New(bgerrors.ErrCodeInvalidInput, "invalid table name: %q", table)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()

	cols, err := tableColumns(db, table)
	if err != nil {
		return nil, err
	}
	if err := requireColumns(cols, "id", "ra", "dec"); err != nil {
		return nil, err
	}

	var idCol string
	var fields []sqliteField
	for _, col := range cols {
		name := strings.ToLower(col)
		if name == "id" {
			idCol = col
			continue
		}
		if set := fieldSetter(name); set != nil {
			fields = append(fields, sqliteField{column: col, set: set})
		}
	}

	selected := make([]string, 0, len(fields)+1)
	selected = append(selected, quoteIdent(idCol))
	for _, f := range fields {
		selected = append(selected, quoteIdent(f.column))
	}
	rows, err := db.Query("SELECT " + strings.Join(selected, ", ") + " FROM " + table)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var (
		records []Record
		id      sql.NullInt64
		values  = make([]sql.NullFloat64, len(fields))
		dest    = make([]any, len(fields)+1)
	)
	dest[0] = &id
	for i := range values {
		dest[i+1] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, bgerrors.Wrap(bgerrors.ErrCodeInvalidCatalog, err, "scan row %d", len(records))
		}
		if !id.Valid {
			return nil, bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "row %d has a NULL id", len(records))
		}
		r := Record{ID: id.Int64, Mags: make(map[string]float64)}
		for i, f := range fields {
			if values[i].Valid {
				f.set(&r, values[i].Float64)
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	if err := checkUniqueIDs(records); err != nil {
		return nil, err
	}
	return New(records), nil
}

// sqliteField maps one numeric column onto a Record field.
type sqliteField struct {
	column string
	set    func(r *Record, v float64)
}

// fieldSetter returns the setter for a lower-cased column name, or nil for
// columns the catalog does not use.
func fieldSetter(name string) func(r *Record, v float64) {
	switch {
	case name == "ra":
		return func(r *Record, v float64) { r.RA = v }
	case name == "dec":
		return func(r *Record, v float64) { r.Dec = v }
	case name == "half_light_radius":
		return func(r *Record, v float64) { r.HalfLightRadius = v }
	case name == "ellipticity":
		return func(r *Record, v float64) { r.Ellipticity = v }
	case name == "position_angle":
		return func(r *Record, v float64) { r.PositionAngle = v }
	case strings.HasSuffix(name, "_ab") && len(name) > len("_ab"):
		band := strings.TrimSuffix(name, "_ab")
		return func(r *Record, v float64) { r.Mags[band] = v }
	}
	return nil
}

// tableColumns returns the column names of table without reading rows.
func tableColumns(db *sql.DB, table string) ([]string, error) {
	rows, err := db.Query("SELECT * FROM " + table + " LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	return cols, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func requireColumns(have []string, want ...string) error {
	set := make(map[string]bool, len(have))
	for _, c := range have {
		set[strings.ToLower(c)] = true
	}
	for _, w := range want {
		if !set[w] {
			return bgerrors.New(bgerrors.ErrCodeInvalidCatalog, "missing required column %q", w)
		}
	}
	return nil
}
