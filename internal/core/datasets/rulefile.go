package datasets

import (
	"fmt"
	"os"

	"github.com/JonMunkholm/dataclean/internal/core"
	"sigs.k8s.io/yaml"
)

// RuleFile is the on-disk format for dataset overrides:
//
//	datasets:
//	  - key: idsp
//	    date_columns: [reporting_date, outbreak_starting_date]
//	    rules:
//	      - name: Deaths vs Cases
//	        column_a: deaths
//	        column_b: cases
//	        operator: gt
//	    dedup_key: [reporting_date, state, district]
//
// An entry replaces the registered definition with the same key entirely;
// unknown keys register a new dataset.
type RuleFile struct {
	Datasets []core.DatasetSpec `json:"datasets"`
}

// ParseRuleFile decodes and validates rule file content.
func ParseRuleFile(data []byte) ([]core.DatasetDefinition, error) {
	var rf RuleFile
	if err := yaml.UnmarshalStrict(data, &rf); err != nil {
		return nil, fmt.Errorf("parse rule file: %w", err)
	}

	defs := make([]core.DatasetDefinition, 0, len(rf.Datasets))
	seen := make(map[string]bool, len(rf.Datasets))
	for _, spec := range rf.Datasets {
		if seen[spec.Key] {
			return nil, fmt.Errorf("%w: dataset %q declared twice", core.ErrInvalidDefinition, spec.Key)
		}
		seen[spec.Key] = true

		def, err := spec.Definition()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// LoadRuleFile reads path and applies its definitions to the registry.
// Returns the keys that were replaced or added.
func LoadRuleFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}

	defs, err := ParseRuleFile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	keys := make([]string, 0, len(defs))
	for _, def := range defs {
		replaced, err := core.Replace(def)
		if err != nil {
			return nil, err
		}
		if !replaced {
			core.Register(def)
		}
		keys = append(keys, def.Key)
	}
	return keys, nil
}

// MarshalRuleFile renders definitions in rule file format.
func MarshalRuleFile(defs []core.DatasetDefinition) ([]byte, error) {
	rf := RuleFile{Datasets: make([]core.DatasetSpec, len(defs))}
	for i, def := range defs {
		rf.Datasets[i] = def.Spec()
	}
	return yaml.Marshal(rf)
}
