// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Provider identifies the generative model service a run talks to.
type Provider string

const (
	ProviderBedrock   Provider = "bedrock"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderOpenAI    Provider = "openai"
)

// InstructionFormat selects the instruction delimiters a model family expects
// around a raw prompt.
type InstructionFormat string

const (
	FormatMistral InstructionFormat = "mistral"
	FormatLlama3  InstructionFormat = "llama3"
	FormatPlain   InstructionFormat = "plain"
)

// ExtractorKind selects how page text is pulled out of a page group.
type ExtractorKind string

const (
	ExtractorPageText   ExtractorKind = "pagetext"
	ExtractorMarkitdown ExtractorKind = "markitdown"
)

// Defaults used when configuration leaves a field unset.
const (
	DefaultGroupSize    = 4
	DefaultModelID      = "mistral.mistral-large-2402-v1:0"
	DefaultMaxTokens    = 1500
	DefaultTopP         = 0.7
	DefaultTemperature  = 0.7
	DefaultTopK         = 50
	DefaultTimeout      = 120 * time.Second
	DefaultArtifactName = "Output.tex"
	DefaultOutputDir    = "output"
	DefaultRegion       = "us-east-1"
)

// ModelParams holds the generation parameters sent with every model call.
type ModelParams struct {
	// ModelID is the provider-specific model identifier
	// (e.g. "mistral.mistral-large-2402-v1:0").
	ModelID string `json:"model_id" yaml:"model_id" mapstructure:"model_id" validate:"required"`

	// MaxTokens caps the number of generated tokens.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" validate:"gt=0"`

	// TopP is the nucleus-sampling probability mass.
	TopP float64 `json:"top_p" yaml:"top_p" mapstructure:"top_p" validate:"gte=0,lte=1"`

	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature" validate:"gte=0"`

	// TopK limits sampling to the K most likely tokens. Providers that do
	// not accept it ignore it.
	TopK int `json:"top_k" yaml:"top_k" mapstructure:"top_k" validate:"gt=0"`
}

// DefaultModelParams returns the parameters used when none are configured.
func DefaultModelParams() ModelParams {
	return ModelParams{
		ModelID:     DefaultModelID,
		MaxTokens:   DefaultMaxTokens,
		TopP:        DefaultTopP,
		Temperature: DefaultTemperature,
		TopK:        DefaultTopK,
	}
}

// ModelConfig holds settings for the model client.
type ModelConfig struct {
	ModelParams `yaml:",inline" mapstructure:",squash"`

	// Provider selects the backend: bedrock, anthropic, gemini, or openai.
	Provider Provider `json:"provider" yaml:"provider" mapstructure:"provider" validate:"oneof=bedrock anthropic gemini openai"`

	// InstructionFormat selects prompt wrapping: mistral, llama3, or plain.
	// Empty follows the provider (see Format).
	InstructionFormat InstructionFormat `json:"instruction_format" yaml:"instruction_format" mapstructure:"instruction_format" validate:"omitempty,oneof=mistral llama3 plain"`

	// APIKey authenticates against anthropic, gemini, or openai.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// Region is the AWS region for the bedrock provider.
	Region string `json:"region,omitempty" yaml:"region,omitempty" mapstructure:"region"`

	// AccessKeyID and SecretAccessKey are static AWS credentials. When empty
	// the default AWS credential chain is used.
	AccessKeyID     string `json:"-" yaml:"-" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"-" yaml:"-" mapstructure:"secret_access_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways,
	// proxies, tests).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// Timeout bounds a single model call. Zero disables the bound.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`

	// MaxRetries is the number of extra attempts after a failed call (default 0).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0,lte=10"`

	// RequestsPerMinute paces model calls. Zero means unpaced.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute" validate:"gte=0"`
}

// DefaultInstructionFormat returns the wrapping used for provider when none
// is configured: mistral for bedrock, whose default model is a Mistral
// model, and plain for the rest.
func DefaultInstructionFormat(p Provider) InstructionFormat {
	switch p {
	case ProviderBedrock, "":
		return FormatMistral
	default:
		return FormatPlain
	}
}

// Format returns the configured instruction format, or the provider default
// when none is set.
func (m ModelConfig) Format() InstructionFormat {
	if m.InstructionFormat != "" {
		return m.InstructionFormat
	}
	return DefaultInstructionFormat(m.Provider)
}

// PartitionConfig holds settings for page grouping and text extraction.
type PartitionConfig struct {
	// GroupSize is the number of pages per group (default 4).
	GroupSize int `json:"group_size" yaml:"group_size" mapstructure:"group_size" validate:"gt=0"`

	// Extractor selects the text extraction backend: pagetext or markitdown.
	Extractor ExtractorKind `json:"extractor" yaml:"extractor" mapstructure:"extractor" validate:"oneof=pagetext markitdown"`
}

// PromptConfig holds the knobs of the slide prompt template.
type PromptConfig struct {
	// Language is the language the slide is written in.
	Language string `json:"language" yaml:"language" mapstructure:"language" validate:"required"`

	// MaxItems caps the bullet count in the slide's itemize block.
	MaxItems int `json:"max_items" yaml:"max_items" mapstructure:"max_items" validate:"gt=0"`

	// MaxItemChars caps the length of each bullet.
	MaxItemChars int `json:"max_item_chars" yaml:"max_item_chars" mapstructure:"max_item_chars" validate:"gt=0"`
}

// OutputConfig holds settings for run output.
type OutputConfig struct {
	// OutputDir is the parent of the per-run directories (default "output").
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir" validate:"required"`

	// ArtifactName is the file name of the accumulated slides (default "Output.tex").
	ArtifactName string `json:"artifact_name" yaml:"artifact_name" mapstructure:"artifact_name" validate:"required"`
}

// HistoryConfig holds settings for the run ledger.
type HistoryConfig struct {
	// Enabled controls whether finished runs are recorded.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// DBPath is the SQLite database file (default "<output_dir>/history.db").
	DBPath string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// PipelineConfig groups all settings for a run.
type PipelineConfig struct {
	Partition PartitionConfig `json:"partition" yaml:"partition" mapstructure:"partition"`
	Prompt    PromptConfig    `json:"prompt" yaml:"prompt" mapstructure:"prompt"`
	Model     ModelConfig     `json:"model" yaml:"model" mapstructure:"model"`
	Output    OutputConfig    `json:"output" yaml:"output" mapstructure:"output"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
}

// DefaultPipelineConfig returns a configuration that runs against Bedrock.
// The instruction format is left empty so it follows the provider.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Partition: PartitionConfig{
			GroupSize: DefaultGroupSize,
			Extractor: ExtractorPageText,
		},
		Prompt: PromptConfig{
			Language:     "Japanese",
			MaxItems:     3,
			MaxItemChars: 40,
		},
		Model: ModelConfig{
			ModelParams: DefaultModelParams(),
			Provider:    ProviderBedrock,
			Region:      DefaultRegion,
			Timeout:     DefaultTimeout,
		},
		Output: OutputConfig{
			OutputDir:    DefaultOutputDir,
			ArtifactName: DefaultArtifactName,
		},
		History: HistoryConfig{
			Enabled: true,
		},
	}
}
