package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPolicyFile parses a codec-policy document. This is intentionally
// narrow: it only ever produces a Policy value, never a general-purpose
// application configuration, since spec.md §1 places configuration
// loading out of scope for the transport core.
func LoadPolicyFile(path string) (Policy, error) {
	policy := DefaultPolicy()

	data, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read policy file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return policy, fmt.Errorf("parse policy file %s: %w", path, err)
	}

	return policy, nil
}
