// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPipelineConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultPipelineConfig().Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PipelineConfig)
		field  string
	}{
		{"zero group size", func(c *PipelineConfig) { c.Partition.GroupSize = 0 }, "GroupSize"},
		{"unknown extractor", func(c *PipelineConfig) { c.Partition.Extractor = "ocr" }, "Extractor"},
		{"top_p above one", func(c *PipelineConfig) { c.Model.TopP = 1.5 }, "TopP"},
		{"negative temperature", func(c *PipelineConfig) { c.Model.Temperature = -0.1 }, "Temperature"},
		{"zero top_k", func(c *PipelineConfig) { c.Model.TopK = 0 }, "TopK"},
		{"missing model id", func(c *PipelineConfig) { c.Model.ModelID = "" }, "ModelID"},
		{"unknown provider", func(c *PipelineConfig) { c.Model.Provider = "cohere" }, "Provider"},
		{"unknown format", func(c *PipelineConfig) { c.Model.InstructionFormat = "chatml" }, "InstructionFormat"},
		{"too many retries", func(c *PipelineConfig) { c.Model.MaxRetries = 11 }, "MaxRetries"},
		{"missing language", func(c *PipelineConfig) { c.Prompt.Language = "" }, "Language"},
		{"missing output dir", func(c *PipelineConfig) { c.Output.OutputDir = "" }, "OutputDir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultPipelineConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestRunSummaryCounts(t *testing.T) {
	s := RunSummary{Groups: []GroupResult{
		{Index: 1, Status: GroupOK},
		{Index: 2, Status: GroupFailed},
		{Index: 3, Status: GroupOK},
	}}
	assert.Equal(t, 2, s.Succeeded())
	assert.Equal(t, 1, s.Failed())
	assert.True(t, s.HasFailures())
	assert.False(t, RunSummary{}.HasFailures())
}
