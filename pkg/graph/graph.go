package graph

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

	errs "github.com/matzehuels/sysmap/pkg/errors"
)

// Format names a graph document encoding.
type Format string

// Supported document formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidFormat, "unsupported graph file extension %q (want .json, .yaml, .yml or .toml)", filepath.Ext(path))
	}
}

// ParseFormat validates a format name such as "yml" or "JSON".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	default:
		return "", errs.New(errs.ErrCodeInvalidFormat, "unsupported graph format %q", s)
	}
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// Read decodes a graph document and validates it.
func Read(r io.Reader, format Format) (Graph, error) {
	var g Graph
	var err error
	switch format {
	case FormatJSON, "":
		err = json.NewDecoder(r).Decode(&g)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&g)
	case FormatTOML:
		_, err = toml.NewDecoder(r).Decode(&g)
	default:
		return Graph{}, errs.New(errs.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}
	if err != nil {
		return Graph{}, errs.Wrap(errs.ErrCodeInvalidFormat, err, "decode %s graph", format)
	}
	if err := g.Validate(); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// ReadFile reads a graph document, choosing the decoder by extension.
func ReadFile(path string) (Graph, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return Graph{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Graph{}, errs.Wrap(errs.ErrCodeFileNotFound, err, "graph file %s", path)
		}
		return Graph{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Read(f, format)
}

// Unmarshal decodes and validates an in-memory graph document.
func Unmarshal(data []byte, format Format) (Graph, error) {
	return Read(bytes.NewReader(data), format)
}

// Write encodes g in the given format.
func Write(g Graph, w io.Writer, format Format) error {
	var err error
	switch format {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(g)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(g); err == nil {
			err = enc.Close()
		}
	case FormatTOML:
		err = toml.NewEncoder(w).Encode(g)
	default:
		return errs.New(errs.ErrCodeInvalidFormat, "unsupported graph format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes g to path, choosing the encoder by extension.
// The file is created with 0644 permissions.
func WriteFile(g Graph, path string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := Write(g, f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Marshal encodes g as indented JSON.
func Marshal(g Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(g, &buf, FormatJSON); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
