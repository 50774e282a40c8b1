package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	bgerrors "github.com/matzehuels/blendgen/pkg/errors"
)

// Options file formats.
const (
	FormatTOML = "toml"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// FormatFor returns the options file format for path's extension.
func FormatFor(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", bgerrors.New(bgerrors.ErrCodeUnsupported, "unsupported options file: %q (must be .toml, .yaml, .yml or .json)", ext)
	}
}

// LoadOptions reads options from a .toml, .yaml/.yml or .json file.
// Fields missing from the file are left zero; callers apply defaults after
// merging flags.
func LoadOptions(path string) (Options, error) {
	format, err := FormatFor(path)
	if err != nil {
		return Options{}, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Options{}, bgerrors.Wrap(bgerrors.ErrCodeFileNotFound, err, "options file %s", path)
	}
	if err != nil {
		return Options{}, fmt.Errorf("read options: %w", err)
	}
	opts, err := DecodeOptions(data, format)
	if err != nil {
		return Options{}, bgerrors.Wrap(bgerrors.ErrCodeInvalidConfig, err, "options file %s", path)
	}
	return opts, nil
}

// DecodeOptions parses options in the given format.
func DecodeOptions(data []byte, format string) (Options, error) {
	var opts Options
	var err error
	switch format {
	case FormatTOML:
		err = toml.Unmarshal(data, &opts)
	case FormatYAML:
		err = yaml.Unmarshal(data, &opts)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&opts)
	default:
		return Options{}, fmt.Errorf("unknown options format %q", format)
	}
	if err != nil {
		return Options{}, fmt.Errorf("decode %s: %w", format, err)
	}
	return opts, nil
}

// EncodeOptions writes opts to w in the given format.
func EncodeOptions(w io.Writer, opts Options, format string) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(opts)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(opts); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(opts)
	default:
		return fmt.Errorf("unknown options format %q", format)
	}
}
