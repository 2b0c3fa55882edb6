package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Format is the syntax of a configuration document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension, YAML by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// LoadFromFile reads and parses the document at path.
func LoadFromFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	doc, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a document. ${VAR} and ${VAR:-default} references are
// expanded from the environment first. JSON is decoded as YAML; TOML is
// normalised into YAML so every format shares the same decoding rules.
func Parse(data []byte, format Format) (*Document, error) {
	data = []byte(ExpandEnv(string(data)))

	if format == FormatTOML {
		var raw map[string]interface{}
		if _, err := toml.Decode(string(data), &raw); err != nil {
			return nil, fmt.Errorf("parsing toml: %w", err)
		}
		normalised, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("normalising toml: %w", err)
		}
		data = normalised
	}

	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("parsing %s: %w", format, err)
	}
	return &doc, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv replaces ${VAR} with the variable's value and ${VAR:-default}
// with the default when VAR is unset or empty. Bare $VAR is left alone so
// patterns may contain dollar signs.
func ExpandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" {
			return v
		}
		return m[2]
	})
}
