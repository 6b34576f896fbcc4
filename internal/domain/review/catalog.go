package review

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// CatalogEntry describes one registered rule: identity, provenance and the
// JSON schema of its configuration payload.
type CatalogEntry struct {
	RuleID                 string          `json:"rule_id" yaml:"rule_id"`
	Title                  string          `json:"title" yaml:"title"`
	BestPracticesReference string          `json:"best_practices_reference" yaml:"best_practices_reference"`
	Sources                []string        `json:"sources" yaml:"sources"`
	ConfigSchema           json.RawMessage `json:"config_schema,omitempty" yaml:"config_schema,omitempty"`
}

// BuildCatalog renders the registry as catalog entries in registration order
func BuildCatalog(reg *Registry) ([]CatalogEntry, error) {
	reflector := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	rules := reg.Rules()
	entries := make([]CatalogEntry, 0, len(rules))
	for _, rule := range rules {
		entry := CatalogEntry{
			RuleID:                 rule.ID(),
			Title:                  rule.Title(),
			BestPracticesReference: rule.BestPracticesReference(),
			Sources:                rule.Sources(),
		}
		if proto := rule.ConfigPrototype(); proto != nil {
			schema := reflector.Reflect(proto)
			raw, err := json.Marshal(schema)
			if err != nil {
				return nil, fmt.Errorf("marshal config schema for rule '%s': %w", rule.ID(), err)
			}
			entry.ConfigSchema = raw
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// EncodeCatalogJSON renders entries as indented JSON
func EncodeCatalogJSON(entries []CatalogEntry) ([]byte, error) {
	return json.MarshalIndent(entries, "", "  ")
}

// EncodeCatalogYAML renders entries as YAML. Schemas are carried as raw JSON
// bytes, so the catalog round-trips through JSON to obtain plain maps first.
func EncodeCatalogYAML(entries []CatalogEntry) ([]byte, error) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, err
	}
	var generic []map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
