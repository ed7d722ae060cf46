package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a document serialization.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported document format %q (want json or yaml)", s)
	}
}

// Extension returns the file extension written for the format.
func (f Format) Extension() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".yaml"
}

// FormatForPath infers the format from a file name. Files ending in .json
// and percy rc files (".percyrc") are JSON; everything else is YAML.
func FormatForPath(path string) Format {
	base := filepath.Base(path)
	switch {
	case strings.EqualFold(filepath.Ext(base), ".json"):
		return FormatJSON
	case strings.HasSuffix(base, "rc") && strings.HasPrefix(base, "."):
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Parse decodes data in the given format.
func Parse(data []byte, file string, format Format) (*Node, error) {
	if format == FormatJSON {
		return ParseJSON(data, file)
	}
	return ParseYAML(data, file)
}

// Encode renders n in the given format.
func Encode(n *Node, format Format) ([]byte, error) {
	if format == FormatJSON {
		return EncodeJSON(n)
	}
	return EncodeYAML(n)
}
