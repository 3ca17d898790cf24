// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/pdiddy/slide-engine/internal/history"
	"github.com/pdiddy/slide-engine/internal/secrets"
	"github.com/pdiddy/slide-engine/pkg/types"
)

// setConfigDefaults registers every configuration key so that the config
// file, SLIDE_ENGINE_* variables, and flags all overlay the same defaults.
func setConfigDefaults() {
	d := types.DefaultPipelineConfig()

	viper.SetDefault("log_level", "info")

	viper.SetDefault("partition.group_size", d.Partition.GroupSize)
	viper.SetDefault("partition.extractor", string(d.Partition.Extractor))

	viper.SetDefault("prompt.language", d.Prompt.Language)
	viper.SetDefault("prompt.max_items", d.Prompt.MaxItems)
	viper.SetDefault("prompt.max_item_chars", d.Prompt.MaxItemChars)

	viper.SetDefault("model.provider", string(d.Model.Provider))
	viper.SetDefault("model.instruction_format", "")
	viper.SetDefault("model.model_id", d.Model.ModelID)
	viper.SetDefault("model.max_tokens", d.Model.MaxTokens)
	viper.SetDefault("model.top_p", d.Model.TopP)
	viper.SetDefault("model.temperature", d.Model.Temperature)
	viper.SetDefault("model.top_k", d.Model.TopK)
	viper.SetDefault("model.api_key", "")
	viper.SetDefault("model.region", d.Model.Region)
	viper.SetDefault("model.access_key_id", "")
	viper.SetDefault("model.secret_access_key", "")
	viper.SetDefault("model.base_url", "")
	viper.SetDefault("model.timeout", d.Model.Timeout)
	viper.SetDefault("model.max_retries", d.Model.MaxRetries)
	viper.SetDefault("model.requests_per_minute", d.Model.RequestsPerMinute)

	viper.SetDefault("output.output_dir", d.Output.OutputDir)
	viper.SetDefault("output.artifact_name", d.Output.ArtifactName)

	viper.SetDefault("history.enabled", d.History.Enabled)
	viper.SetDefault("history.db_path", "")
}

// pipelineConfig assembles the run configuration from viper and fills
// provider credentials from .secrets/ and well-known environment variables.
func pipelineConfig() (types.PipelineConfig, error) {
	var cfg types.PipelineConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	applySecrets(&cfg.Model)
	cfg.Model.InstructionFormat = cfg.Model.Format()
	if cfg.History.DBPath == "" {
		cfg.History.DBPath = filepath.Join(cfg.Output.OutputDir, history.DBFile)
	}
	return cfg, nil
}

func applySecrets(m *types.ModelConfig) {
	if m.APIKey == "" {
		switch m.Provider {
		case types.ProviderAnthropic:
			m.APIKey = loadedSecrets.Get(secrets.AnthropicAPIKey, os.Getenv("ANTHROPIC_API_KEY"))
		case types.ProviderGemini:
			m.APIKey = loadedSecrets.Get(secrets.GeminiAPIKey, os.Getenv("GEMINI_API_KEY"))
		case types.ProviderOpenAI:
			m.APIKey = loadedSecrets.Get(secrets.OpenAIAPIKey, os.Getenv("OPENAI_API_KEY"))
		}
	}
	if m.Provider == types.ProviderBedrock && m.AccessKeyID == "" {
		m.AccessKeyID = loadedSecrets.Get(secrets.AWSAccessKeyID, "")
		m.SecretAccessKey = loadedSecrets.Get(secrets.AWSSecretAccessKey, "")
	}
}
