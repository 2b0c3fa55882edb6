package config

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Lunar-Chipter/crystalconf/internal/errors"
)

// typeOf reads the "type" discriminator of a mapping node.
func typeOf(node *yaml.Node) (string, error) {
	var head struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return "", err
	}
	return strings.TrimSpace(head.Type), nil
}

// Appenders is the ordered list of appender declarations.
type Appenders []AppenderConfig

// UnmarshalYAML implements yaml.Unmarshaler. Declarations without a type are
// console appenders.
func (a *Appenders) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: appenders must be a list", node.Line)
	}
	out := make(Appenders, 0, len(node.Content))
	for _, item := range node.Content {
		typ, err := typeOf(item)
		if err != nil {
			return err
		}
		var cfg AppenderConfig
		switch AppenderType(typ) {
		case ConsoleAppender, "":
			cfg = &ConsoleAppenderConfig{}
		case FileAppender:
			cfg = &FileAppenderConfig{}
		case SMTPAppender:
			cfg = &SMTPAppenderConfig{}
		case SentryAppender:
			cfg = &SentryAppenderConfig{}
		default:
			return fmt.Errorf("line %d: %w appender %q", item.Line, errors.ErrUnknownType, typ)
		}
		if err := item.Decode(cfg); err != nil {
			return err
		}
		out = append(out, cfg)
	}
	*a = out
	return nil
}

// LayoutDecl wraps a LayoutConfig for decoding.
type LayoutDecl struct {
	LayoutConfig
}

// UnmarshalYAML implements yaml.Unmarshaler. A layout without a type is a
// pattern layout.
func (d *LayoutDecl) UnmarshalYAML(node *yaml.Node) error {
	typ, err := typeOf(node)
	if err != nil {
		return err
	}
	var cfg LayoutConfig
	switch LayoutType(typ) {
	case PatternLayout, "":
		cfg = &PatternLayoutConfig{}
	case JSONLayout:
		cfg = &JSONLayoutConfig{}
	case HTMLLayout:
		cfg = &HTMLLayoutConfig{}
	case XMLLayout:
		cfg = &XMLLayoutConfig{}
	default:
		return fmt.Errorf("line %d: %w layout %q", node.Line, errors.ErrUnknownType, typ)
	}
	if err := node.Decode(cfg); err != nil {
		return err
	}
	d.LayoutConfig = cfg
	return nil
}

// RollingPolicyDecl wraps a RollingPolicyConfig for decoding.
type RollingPolicyDecl struct {
	RollingPolicyConfig
}

// UnmarshalYAML implements yaml.Unmarshaler. The type is mandatory.
func (d *RollingPolicyDecl) UnmarshalYAML(node *yaml.Node) error {
	typ, err := typeOf(node)
	if err != nil {
		return err
	}
	var cfg RollingPolicyConfig
	switch RollingPolicyType(typ) {
	case TimeBasedPolicy:
		cfg = &TimeBasedPolicyConfig{}
	case SizeAndTimeBasedPolicy:
		cfg = &SizeAndTimeBasedPolicyConfig{}
	case FixedWindowPolicy:
		cfg = &FixedWindowPolicyConfig{}
	default:
		return fmt.Errorf("line %d: %w rolling policy %q", node.Line, errors.ErrUnknownType, typ)
	}
	if err := node.Decode(cfg); err != nil {
		return err
	}
	d.RollingPolicyConfig = cfg
	return nil
}

// Tags are Sentry event tags. They decode from a mapping or from the legacy
// "key1:value1,key2:value2" string.
type Tags map[string]string

// UnmarshalYAML implements yaml.Unmarshaler
func (t *Tags) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		parsed, err := ParseTags(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*t = parsed
		return nil
	}
	var m map[string]string
	if err := node.Decode(&m); err != nil {
		return err
	}
	*t = m
	return nil
}

// ParseTags parses "key1:value1,key2:value2".
func ParseTags(s string) (Tags, error) {
	tags := Tags{}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("malformed tag %q, expected key:value", pair)
		}
		tags[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return tags, nil
}

// Keys returns the tag names in sorted order.
func (t Tags) Keys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
