// Package source reads assembly text from disk, tolerating the mix of text
// encodings found in real-world sources (modern UTF-8 toolchains, DOS-era MASM
// listings in Latin-1 or Windows-1252).
package source

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names a supported text encoding.
type Encoding string

const (
	UTF8        Encoding = "utf-8"
	Latin1      Encoding = "latin-1"
	Windows1252 Encoding = "cp1252"
)

// ErrUnknownEncoding is returned by ParseEncoding for unsupported names.
var ErrUnknownEncoding = errors.New("unknown encoding")

// DefaultEncodings is the order in which encodings are attempted.
var DefaultEncodings = []Encoding{UTF8, Latin1, Windows1252}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseEncoding resolves an encoding name or common alias.
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "utf-8", "utf8":
		return UTF8, nil
	case "latin-1", "latin1", "iso-8859-1", "iso8859-1":
		return Latin1, nil
	case "cp1252", "windows-1252", "win1252":
		return Windows1252, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
}

// ParseEncodings resolves a list of names, preserving order.
func ParseEncodings(names []string) ([]Encoding, error) {
	encs := make([]Encoding, 0, len(names))
	for _, n := range names {
		e, err := ParseEncoding(n)
		if err != nil {
			return nil, err
		}
		encs = append(encs, e)
	}
	return encs, nil
}

// Decoded is the result of decoding raw bytes.
type Decoded struct {
	Text     string
	Encoding Encoding
	// Lossy is set when no encoding matched and invalid sequences were
	// replaced with U+FFFD.
	Lossy bool
}

// Decode tries each encoding in order and returns the first strict match.
// It never fails: if nothing matches, the data is decoded as UTF-8 with
// replacement characters.
func Decode(data []byte, encodings []Encoding) Decoded {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}

	for _, enc := range encodings {
		if text, ok := decodeStrict(data, enc); ok {
			return Decoded{Text: text, Encoding: enc}
		}
	}

	return Decoded{Text: decodeReplacing(data), Encoding: UTF8, Lossy: true}
}

func decodeStrict(data []byte, enc Encoding) (string, bool) {
	switch enc {
	case UTF8:
		data = bytes.TrimPrefix(data, utf8BOM)
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	case Latin1:
		return decodeCharmap(charmap.ISO8859_1, data, nil)
	case Windows1252:
		return decodeCharmap(charmap.Windows1252, data, cp1252Undefined)
	default:
		return "", false
	}
}

// cp1252Undefined lists the bytes Windows-1252 leaves unassigned. They are
// rejected here whatever the decoder table maps them to.
var cp1252Undefined = map[byte]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

// decodeCharmap fails when a byte has no mapping in the code page.
func decodeCharmap(cm *charmap.Charmap, data []byte, undefined map[byte]bool) (string, bool) {
	for _, b := range data {
		if undefined[b] || cm.DecodeByte(b) == utf8.RuneError {
			return "", false
		}
	}
	text, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(text), true
}

func decodeReplacing(data []byte) string {
	data = bytes.TrimPrefix(data, utf8BOM)
	text, err := unicode.UTF8.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "�")
	}
	return string(text)
}

// File is a decoded source file.
type File struct {
	Path     string
	Text     string
	Encoding Encoding
	Lossy    bool
}

// Loader reads files using a fixed encoding preference list.
type Loader struct {
	encodings []Encoding
}

// NewLoader creates a Loader. With no encodings, DefaultEncodings is used.
func NewLoader(encodings ...Encoding) *Loader {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	encs := make([]Encoding, len(encodings))
	copy(encs, encodings)
	return &Loader{encodings: encs}
}

// Load reads and decodes the file at path. Only I/O errors are returned;
// decoding always succeeds.
func (l *Loader) Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, expected a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}

	d := Decode(data, l.encodings)
	return &File{
		Path:     path,
		Text:     d.Text,
		Encoding: d.Encoding,
		Lossy:    d.Lossy,
	}, nil
}
