package knowledge

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/talgya/crowdsense/internal/events"
)

//go:embed knowledge.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("knowledge.schema.json", schemaJSON)
	})
	return schema, schemaErr
}

type document struct {
	Version int           `yaml:"version"`
	Events  []eventRecord `yaml:"events"`
}

type eventRecord struct {
	Name       string           `yaml:"name"`
	Properties []propertyRecord `yaml:"properties"`
}

type propertyRecord struct {
	Type    string  `yaml:"type"`
	Sense   string  `yaml:"sense"`
	Alpha   float64 `yaml:"alpha"`
	R       float64 `yaml:"r"`
	Epsilon float64 `yaml:"epsilon"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
}

// Load reads, validates and indexes a YAML knowledge base file.
func Load(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base %s: %w", path, err)
	}
	return b, nil
}

// Parse validates a YAML knowledge base document against the embedded JSON
// schema, then checks the numeric constraints the schema cannot express.
func Parse(data []byte) (*Base, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	var rules []EventPropertyKnowledge
	seen := make(map[string]struct{})
	for _, ev := range doc.Events {
		name := strings.TrimSpace(ev.Name)
		for i, p := range ev.Properties {
			sense, err := events.ParseSense(p.Sense)
			if err != nil {
				return nil, fmt.Errorf("event %s property %d: %w", name, i, err)
			}
			key := name + "/" + p.Type
			if _, dup := seen[key]; dup {
				return nil, fmt.Errorf("event %s: duplicate property type %q", name, p.Type)
			}
			seen[key] = struct{}{}

			rule := EventPropertyKnowledge{
				Event:   name,
				Type:    p.Type,
				Sense:   sense,
				Alpha:   p.Alpha,
				R:       p.R,
				Epsilon: p.Epsilon,
				Min:     p.Min,
				Max:     p.Max,
			}
			if err := validateRule(rule); err != nil {
				return nil, fmt.Errorf("event %s property %s: %w", name, p.Type, err)
			}
			rules = append(rules, rule)
		}
	}
	return NewBase(rules), nil
}

func validateSchema(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON-typed values.
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	var doc any
	if err := json.Unmarshal(buf, &doc); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}

func validateRule(r EventPropertyKnowledge) error {
	if r.Min > r.Max {
		return fmt.Errorf("min %v > max %v", r.Min, r.Max)
	}
	if r.Epsilon > r.R {
		return fmt.Errorf("epsilon %v > r %v", r.Epsilon, r.R)
	}
	return nil
}
