package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/l3aro/asmcfg/pkg/cfg"
)

// Format is a serialization of a node-link document.
type Format string

const (
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
)

// ErrUnknownFormat is returned for format names or file extensions that
// have no codec.
var ErrUnknownFormat = errors.New("unknown graph format")

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "json":
		return FormatJSON, nil
	case "msgpack", "mpk":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// FormatForPath picks the format from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".msgpack", ".mpk":
		return FormatMsgpack, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// EncodeJSON writes g as an indented node-link JSON document.
func EncodeJSON(w io.Writer, g *cfg.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(FromGraph(g))
}

// DecodeJSON reads a node-link JSON document.
func DecodeJSON(r io.Reader) (*cfg.Graph, error) {
	var wire wireDocument
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return ToGraph(wire.document())
}

// EncodeMsgpack writes g as a msgpack node-link document.
func EncodeMsgpack(w io.Writer, g *cfg.Graph) error {
	return msgpack.NewEncoder(w).Encode(FromGraph(g))
}

// DecodeMsgpack reads a msgpack node-link document.
func DecodeMsgpack(r io.Reader) (*cfg.Graph, error) {
	var wire wireDocument
	if err := msgpack.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode graph: %w", err)
	}
	return ToGraph(wire.document())
}

// Encode writes g in format f.
func Encode(w io.Writer, g *cfg.Graph, f Format) error {
	switch f {
	case FormatJSON:
		return EncodeJSON(w, g)
	case FormatMsgpack:
		return EncodeMsgpack(w, g)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Decode reads a graph in format f.
func Decode(r io.Reader, f Format) (*cfg.Graph, error) {
	switch f {
	case FormatJSON:
		return DecodeJSON(r)
	case FormatMsgpack:
		return DecodeMsgpack(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// ReadFile decodes the graph file at path, choosing the format by extension.
func ReadFile(path string) (*cfg.Graph, error) {
	f, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer file.Close()

	g, err := Decode(file, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// WriteFile encodes g to path, choosing the format by extension. Parent
// directories are created as needed.
func WriteFile(path string, g *cfg.Graph) error {
	f, err := FormatForPath(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create graph file: %w", err)
	}
	if err := Encode(file, g, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
