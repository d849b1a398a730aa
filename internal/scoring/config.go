package scoring

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed rules.schema.json
var rulesSchema []byte

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(rulesSchema))
})

// Config is the file form of a registry.
type Config struct {
	Mode      Mode         `yaml:"mode,omitempty"`
	Precision *int         `yaml:"precision,omitempty"`
	Rules     []RuleConfig `yaml:"rules"`
}

// LoadConfig reads and validates a YAML rules file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scoring rules %q: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("scoring rules %q: %w", path, err)
	}

	return cfg, nil
}

// ParseConfig validates the document against the rules schema and decodes it.
// Schema violations are reported together in one *ConfigurationError.
func ParseConfig(data []byte) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("parse yaml: %v", err)}
	}
	if doc == nil {
		return nil, &ConfigurationError{Reason: "document is empty"}
	}

	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile rules schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("validate: %v", err)}
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return nil, &ConfigurationError{Reason: strings.Join(problems, "; ")}
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("decode: %v", err)}
	}

	return &cfg, nil
}

// Registry compiles the configuration. Options given here override the
// file's mode and precision.
func (c *Config) Registry(opts ...Option) (*Registry, error) {
	base := make([]Option, 0, 2+len(opts))
	if c.Mode != "" {
		base = append(base, WithMode(c.Mode))
	}
	if c.Precision != nil {
		base = append(base, WithPrecision(*c.Precision))
	}
	return New(c.Rules, append(base, opts...)...)
}

// Marshal renders the configuration back to YAML.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
