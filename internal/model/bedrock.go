// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// converseAPI is the part of the Bedrock runtime client the backend uses.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockBackend calls the AWS Bedrock Converse API. Top-k is not part of
// the Converse inference configuration and is not sent.
type BedrockBackend struct {
	api converseAPI
}

// NewBedrockBackend loads AWS configuration for cfg.Region. Static
// credentials are used when both keys are set; otherwise the default
// credential chain applies.
func NewBedrockBackend(ctx context.Context, cfg types.ModelConfig) (*BedrockBackend, error) {
	region := cfg.Region
	if region == "" {
		region = types.DefaultRegion
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS configuration: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if cfg.BaseURL != "" {
			o.BaseEndpoint = aws.String(cfg.BaseURL)
		}
	})
	return &BedrockBackend{api: client}, nil
}

// Name implements Backend.
func (b *BedrockBackend) Name() string { return string(types.ProviderBedrock) }

// Generate implements Backend.
func (b *BedrockBackend) Generate(ctx context.Context, prompt string, p types.ModelParams) (string, error) {
	in := &bedrockruntime.ConverseInput{
		ModelId: aws.String(p.ModelID),
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: prompt},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(p.MaxTokens)),
			TopP:        aws.Float32(float32(p.TopP)),
			Temperature: aws.Float32(float32(p.Temperature)),
		},
	}

	out, err := b.api.Converse(ctx, in)
	if err != nil {
		var throttled *brtypes.ThrottlingException
		if errors.As(err, &throttled) {
			return "", fmt.Errorf("%w: %v", ErrThrottled, err)
		}
		return "", fmt.Errorf("calling Bedrock Converse: %w", err)
	}
	return converseText(out)
}

// converseText returns the first text block of a Converse response.
func converseText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", fmt.Errorf("%w: nil response", ErrMalformedResponse)
	}
	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("%w: response holds no message", ErrMalformedResponse)
	}
	for _, block := range msg.Value.Content {
		if text, ok := block.(*brtypes.ContentBlockMemberText); ok {
			return text.Value, nil
		}
	}
	return "", fmt.Errorf("%w: no text content in message", ErrMalformedResponse)
}
