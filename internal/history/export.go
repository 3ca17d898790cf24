// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// ExportYAML writes every run, with groups, to path as YAML.
func (s *Store) ExportYAML(ctx context.Context, path string) error {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(runs)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes every run, with groups, to path as indented JSON.
func (s *Store) ExportJSON(ctx context.Context, path string) error {
	runs, err := s.exportRuns(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportRuns(ctx context.Context) ([]types.RunSummary, error) {
	runs, err := s.List(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	for i := range runs {
		groups, err := s.groups(ctx, runs[i].RunID)
		if err != nil {
			return nil, fmt.Errorf("querying groups of %s: %w", runs[i].RunID, err)
		}
		runs[i].Groups = groups
	}
	if runs == nil {
		runs = []types.RunSummary{}
	}
	return runs, nil
}
