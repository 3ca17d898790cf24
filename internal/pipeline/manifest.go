// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// WriteManifest writes run to path as YAML.
func WriteManifest(path string, run *types.RunSummary) error {
	data, err := yaml.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (*types.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var run types.RunSummary
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	return &run, nil
}
