package config

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Secret wraps sensitive configuration values with automatic masking
// for logging and serialization
type Secret string

// String returns a masked representation of the secret for safe logging
func (s Secret) String() string {
	if len(s) == 0 {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return string(s[:2]) + "****" + string(s[len(s)-2:])
}

// Value returns the actual secret value
func (s Secret) Value() string {
	return string(s)
}

// IsEmpty returns true if the secret is empty
func (s Secret) IsEmpty() bool {
	return len(s) == 0
}

// MarshalJSON implements json.Marshaler with masking
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// MarshalYAML implements yaml.Marshaler with masking
func (s Secret) MarshalYAML() (interface{}, error) {
	return s.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler
func (s *Secret) UnmarshalYAML(node *yaml.Node) error {
	*s = Secret(node.Value)
	return nil
}
