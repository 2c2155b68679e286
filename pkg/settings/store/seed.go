package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mercator-hq/switchboard/pkg/settings"
)

// seedFile is the YAML layout of a seed file:
//
//	providers:
//	  - name: openai
//	    enabled: true
//	    default_model: gpt-4o-mini
//	    max_output_cap: 16384
//	    requests_per_minute: 500
//	    timeout_seconds: 60
//	    retry_count: 2
//	    temperature: 0.7
type seedFile struct {
	Providers []settings.Descriptor `yaml:"providers"`
}

// Writer is implemented by stores that accept rows.
type Writer interface {
	Upsert(ctx context.Context, row settings.Descriptor) error
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) ([]settings.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	rows, err := ParseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

// ParseSeed decodes seed YAML. Every row must be valid and names unique.
func ParseSeed(data []byte) ([]settings.Descriptor, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	seen := make(map[string]bool, len(file.Providers))
	for i, row := range file.Providers {
		if err := row.Validate(); err != nil {
			return nil, fmt.Errorf("providers[%d]: %w", i, err)
		}
		if seen[row.Name] {
			return nil, fmt.Errorf("providers[%d]: duplicate provider %q", i, row.Name)
		}
		seen[row.Name] = true
	}
	return file.Providers, nil
}

// Seed writes rows into w and returns how many were written.
func Seed(ctx context.Context, w Writer, rows []settings.Descriptor) (int, error) {
	for i, row := range rows {
		if err := w.Upsert(ctx, row); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}
