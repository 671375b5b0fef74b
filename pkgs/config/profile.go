package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalProfileYAML renders a Profile as YAML, for operators who keep
// provisioning data in version control next to a node's directory rather
// than as a bare node.json.
func MarshalProfileYAML(p Profile) ([]byte, error) {
	out, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("config: marshal profile: %w", err)
	}
	return out, nil
}

// UnmarshalProfileYAML parses a YAML-encoded Profile, the inverse of
// MarshalProfileYAML.
func UnmarshalProfileYAML(data []byte) (Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("config: unmarshal profile: %w", err)
	}
	return p, nil
}
