package docker

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// includeEntry is one item of a compose `include:` list. Compose accepts
// either a bare path or a mapping whose `path` is a string or a list.
type includeEntry struct {
	Paths []string
}

// UnmarshalYAML accepts both the short and the long include syntax.
func (e *includeEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		e.Paths = []string{node.Value}
		return nil
	case yaml.MappingNode:
		var long struct {
			Path yaml.Node `yaml:"path"`
		}
		if err := node.Decode(&long); err != nil {
			return err
		}
		switch long.Path.Kind {
		case yaml.ScalarNode:
			e.Paths = []string{long.Path.Value}
		case yaml.SequenceNode:
			return long.Path.Decode(&e.Paths)
		default:
			return fmt.Errorf("line %d: include entry has no path", node.Line)
		}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported include entry", node.Line)
	}
}

type composeFile struct {
	Include  []includeEntry       `yaml:"include"`
	Services map[string]yaml.Node `yaml:"services"`
}

func readComposeFile(path string) (*composeFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %q: %w", path, err)
	}
	var cf composeFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse compose file %q: %w", path, err)
	}
	return &cf, nil
}

// FindServiceDir returns the directory of the compose file that defines
// service, starting at mainPath and following its include list one level
// deep. Unreadable includes are skipped.
func FindServiceDir(mainPath, service string) (string, error) {
	main, err := readComposeFile(mainPath)
	if err != nil {
		return "", err
	}
	if _, ok := main.Services[service]; ok {
		return filepath.Dir(mainPath), nil
	}

	base := filepath.Dir(mainPath)
	for _, inc := range main.Include {
		for _, p := range inc.Paths {
			full := p
			if !filepath.IsAbs(full) {
				full = filepath.Join(base, p)
			}
			cf, err := readComposeFile(full)
			if err != nil {
				slog.Warn("skipping unreadable compose include", "path", full, "error", err)
				continue
			}
			if _, ok := cf.Services[service]; ok {
				return filepath.Dir(full), nil
			}
		}
	}

	return "", fmt.Errorf("service %s not found in %s or its includes", service, mainPath)
}

// serviceEnvFile returns the .env next to the compose file defining service,
// or "" when there is none.
func serviceEnvFile(mainPath, service string) string {
	dir, err := FindServiceDir(mainPath, service)
	if err != nil {
		slog.Debug("no compose file found for service", "service", service, "error", err)
		return ""
	}
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); err != nil {
		slog.Debug("optional .env file not found", "service", service, "path", envPath)
		return ""
	}
	return envPath
}
