package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Command describes one allow-listed external command exposed as an action
// handler.
type Command struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Env         map[string]string `yaml:"env" json:"env"`
	Timeout     string            `yaml:"timeout" json:"timeout"`
	Description string            `yaml:"description" json:"description"`
}

// timeout parses the per-command timeout. Empty means no limit beyond the
// caller's context.
func (c Command) timeout() (time.Duration, error) {
	if c.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0, fmt.Errorf("command %s: invalid timeout %q: %w", c.Name, c.Timeout, err)
	}
	return d, nil
}

// manifest is the structure of commands.yaml.
type manifest struct {
	Commands []Command `yaml:"commands" json:"commands"`
}

// LoadManifest reads a command manifest (YAML or JSON by extension) and
// returns the commands by name. A missing file is treated as an empty
// manifest.
func LoadManifest(path string) (map[string]Command, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Command{}, nil
		}
		return nil, fmt.Errorf("failed to read command manifest: %w", err)
	}

	var m manifest
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	commands := make(map[string]Command, len(m.Commands))
	for _, c := range m.Commands {
		if c.Name == "" {
			continue
		}
		commands[c.Name] = c
	}
	return commands, nil
}
