package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"splice/internal/aaf"
)

// Format selects an encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatBSON Format = "bson"
)

// ParseFormat accepts "json" or "bson", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatBSON:
		return FormatBSON, nil
	default:
		return "", fmt.Errorf("export format %q: want json or bson", s)
	}
}

// Encode writes doc to w. JSON output is indented; BSON output is one
// document.
func Encode(w io.Writer, doc Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case FormatBSON:
		data, err := bson.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode bson: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write bson: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("export format %q: want json or bson", format)
	}
}

// DecodeBSON reads a document written by Encode in BSON form.
func DecodeBSON(data []byte) (Document, error) {
	var doc bson.M
	if err := bson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode bson: %w", err)
	}
	return Document(doc), nil
}

// WriteFile renders f and writes it to w.
func WriteFile(w io.Writer, f *aaf.File, format Format) error {
	doc, err := FileTree(f)
	if err != nil {
		return err
	}
	return Encode(w, doc, format)
}
