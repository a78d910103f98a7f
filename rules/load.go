package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFromFileYAML registers every rule from a YAML rules file. Any invalid
// rule aborts the load; rules registered before the failure stay registered.
func (rs *RuleSet) LoadFromFileYAML(p string) error {
	raw, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parsing rules file: %w", err)
	}
	for _, r := range f.Rules {
		if err := rs.Add(r); err != nil {
			return err
		}
	}
	return nil
}
