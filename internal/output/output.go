// Package output renders command results in the formats selected with
// --format.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Formats lists the accepted --format values.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML}

// ParseFormat resolves a --format flag value. Matching is case-insensitive
// and an empty value means table.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML:
		return FormatYAML, nil
	default:
		names := make([]string, len(Formats))
		for i, f := range Formats {
			names[i] = string(f)
		}
		return "", fmt.Errorf("unknown output format %q (want one of: %s)", s, strings.Join(names, ", "))
	}
}

// IsStructured reports whether f is a machine-readable format.
func (f Format) IsStructured() bool {
	return f == FormatJSON || f == FormatYAML
}

// To writes data to w in the given structured format. Table rendering
// is command specific and is not handled here.
func To(w io.Writer, format Format, data any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}
