package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const configHeader = `# WebDisk Configuration File
#
# Every value can be overridden with an environment variable using the
# WEBDISK_ prefix, e.g. WEBDISK_LOGGING_LEVEL=DEBUG.
`

// sectionComments are attached above each top-level key of the generated file.
var sectionComments = map[string]string{
	"logging": "Log level (DEBUG, INFO, WARN, ERROR), format (text, json) and output\n(stdout, stderr or a file path rotated by size).",
	"server":  "Graceful shutdown budget, warm-up budget and the bound on concurrent\nstorage calls.",
	"store":   "Blob store backend: filesystem, memory, s3 or badger. Only the section\nmatching type is read.",
	"http":    "HTTP adapter serving /files. rate_limit is per client IP; 0 disables it.",
	"metrics": "Prometheus endpoint on /metrics.",
	"tracing": "OpenTelemetry span export (otlp or stdout).",
}

// InitConfig writes the default configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the default configuration to path, creating parent
// directories as needed.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML with a header and one comment
// per top-level section. Durations are written in their string form so the
// file stays readable and loads back through viper.
func generateYAMLWithComments(cfg *Config) (string, error) {
	var raw map[string]any
	if err := mapstructure.Decode(cfg, &raw); err != nil {
		return "", fmt.Errorf("failed to flatten config: %w", err)
	}
	stringifyDurations(raw)

	var doc yaml.Node
	if err := doc.Encode(raw); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	if doc.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(doc.Content); i += 2 {
			key := doc.Content[i]
			if comment, ok := sectionComments[key.Value]; ok {
				key.HeadComment = comment
			}
		}
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)
	buf.WriteString("\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}

	return buf.String(), nil
}

func stringifyDurations(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			stringifyDurations(val)
		case time.Duration:
			m[k] = val.String()
		}
	}
}
