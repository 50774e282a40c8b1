// Package sink writes drawn batches to disk for training jobs that don't
// link against blendgen.
//
// Each batch becomes a directory of NumPy arrays plus a Parquet table of
// the annotated blend catalogs:
//
//	out/
//	  manifest.yaml
//	  batch_000000/
//	    blend_images.npy     [batch, H, W, bands]
//	    isolated_images.npy  [batch, max_number, H, W, bands]
//	    psf_images.npy       [batch, psf, psf, bands]
//	    sky_level.npy        [batch, bands]
//	    catalog.parquet      one row per object
//
// The manifest is rewritten after every batch, so an interrupted run still
// describes what it wrote.
package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/blendgen/pkg/buildinfo"
	"github.com/matzehuels/blendgen/pkg/catalog"
	"github.com/matzehuels/blendgen/pkg/draw"
	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
	"github.com/matzehuels/blendgen/pkg/ndarray"
)

// File names inside an output directory.
const (
	ManifestFile       = "manifest.yaml"
	BlendImagesFile    = "blend_images.npy"
	IsolatedImagesFile = "isolated_images.npy"
	PSFImagesFile      = "psf_images.npy"
	SkyLevelFile       = "sky_level.npy"
	CatalogFile        = "catalog.parquet"
)

// Manifest describes one output directory.
type Manifest struct {
	RunID   string          `yaml:"run_id"`
	Created time.Time       `yaml:"created"`
	Build   buildinfo.Info  `yaml:"build"`
	Bands   []string        `yaml:"bands"`
	Config  any             `yaml:"config,omitempty"`
	Batches []ManifestBatch `yaml:"batches"`
}

// ManifestBatch is one written batch.
type ManifestBatch struct {
	Index   int64  `yaml:"index"`
	ID      string `yaml:"id"`
	Dir     string `yaml:"dir"`
	Blends  int    `yaml:"blends"`
	Objects int    `yaml:"objects"`
}

// Writer writes batches under a directory. It is not safe for concurrent
// use.
type Writer struct {
	dir      string
	manifest Manifest
}

// NewWriter creates dir if needed. config is recorded verbatim in the
// manifest; pass the options the batches were drawn with.
func NewWriter(dir string, config any) (*Writer, error) {
	if err := bgerrors.ValidateOutputPath(dir); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{
		dir: dir,
		manifest: Manifest{
			RunID:   uuid.NewString(),
			Created: time.Now().UTC(),
			Build:   buildinfo.Get(),
			Config:  config,
		},
	}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string { return w.dir }

// Manifest returns a copy of the manifest so far.
func (w *Writer) Manifest() Manifest {
	m := w.manifest
	m.Batches = append([]ManifestBatch(nil), w.manifest.Batches...)
	return m
}

// WriteBatch writes b into its own subdirectory and updates the manifest.
func (w *Writer) WriteBatch(b *draw.Batch) error {
	name := fmt.Sprintf("batch_%06d", b.Index)
	dir := filepath.Join(w.dir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create batch dir: %w", err)
	}

	for file, a := range map[string]*ndarray.Array{
		BlendImagesFile:    b.BlendImages,
		IsolatedImagesFile: b.IsolatedImages,
		PSFImagesFile:      b.PSFImages,
		SkyLevelFile:       b.SkyLevel,
	} {
		if err := writeFile(filepath.Join(dir, file), func(f *os.File) error { return WriteNPY(f, a) }); err != nil {
			return err
		}
	}
	err := writeFile(filepath.Join(dir, CatalogFile), func(f *os.File) error {
		return catalog.WriteBlendsParquet(f, b.Index, b.Catalogs)
	})
	if err != nil {
		return err
	}

	objects := 0
	for _, c := range b.Catalogs {
		objects += len(c)
	}
	if w.manifest.Bands == nil {
		w.manifest.Bands = append([]string(nil), b.Bands...)
	}
	w.manifest.Batches = append(w.manifest.Batches, ManifestBatch{
		Index:   b.Index,
		ID:      b.ID.String(),
		Dir:     name,
		Blends:  len(b.Catalogs),
		Objects: objects,
	})
	return w.writeManifest()
}

func (w *Writer) writeManifest() error {
	data, err := yaml.Marshal(&w.manifest)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return writeFile(filepath.Join(w.dir, ManifestFile), func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

// writeFile writes through a temporary file and renames it into place.
func writeFile(path string, fn func(*os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	if err := fn(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// ReadManifest reads the manifest of an output directory.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if os.IsNotExist(err) {
		return Manifest{}, bgerrors.Wrap(bgerrors.ErrCodeFileNotFound, err, "manifest in %s", dir)
	}
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
