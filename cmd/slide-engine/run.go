// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/slide-engine/internal/container"
	"github.com/pdiddy/slide-engine/internal/history"
	"github.com/pdiddy/slide-engine/internal/model"
	"github.com/pdiddy/slide-engine/internal/partition"
	"github.com/pdiddy/slide-engine/internal/pipeline"
	"github.com/pdiddy/slide-engine/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run <file.pdf>",
	Short: "Generate Beamer slides from a PDF",
	Long: `Run splits the PDF into groups of --group-size pages and produces one
Beamer frame per group. Each run writes to a new directory under --output-dir
containing Output.tex, group_<k>.pdf and group_<k>.txt for every group, and a
run.yaml manifest.

A group whose model call fails is recorded with an error marker in
Output.tex and the run continues with the next group.`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if noHistory, _ := cmd.Flags().GetBool("no-history"); noHistory {
		cfg.History.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	invoker, err := model.New(ctx, cfg.Model, logrus.StandardLogger())
	if err != nil {
		return err
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logrus.StandardLogger()),
		pipeline.WithProgress(os.Stdout, verbose),
	}

	if cfg.Partition.Extractor == types.ExtractorMarkitdown {
		rt, err := container.DetectRuntime(ctx)
		if err != nil {
			return err
		}
		ext, err := partition.NewMarkitdownExtractor(ctx, rt)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithExtractor(ext))
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.DBPath)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, pipeline.WithRecorder(store))
	}

	run, err := pipeline.New(cfg, invoker, opts...).Run(ctx, args[0])
	if run != nil && run.State != types.RunRejected {
		printRunSummary(os.Stdout, run)
	}
	return err
}

func printRunSummary(w io.Writer, run *types.RunSummary) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintf(w, "\nrun %s: %s\n", run.RunID, run.State)
	fmt.Fprintf(w, "groups: %d, succeeded: %s, failed: %s\n",
		len(run.Groups), green(run.Succeeded()), red(run.Failed()))
	for _, g := range run.Groups {
		for _, warning := range g.Warnings {
			fmt.Fprintf(w, "%s group %d: %s\n", yellow("warning"), g.Index, warning)
		}
	}
	if run.ArtifactPath != "" {
		fmt.Fprintf(w, "slides written to %s\n", run.ArtifactPath)
	}
}

func init() {
	f := runCmd.Flags()
	f.Int("group-size", types.DefaultGroupSize, "pages per group")
	f.String("extractor", string(types.ExtractorPageText), "text extractor: pagetext or markitdown")
	f.String("provider", string(types.ProviderBedrock), "model provider: bedrock, anthropic, gemini, or openai")
	f.String("model", types.DefaultModelID, "model identifier")
	f.Int("max-tokens", types.DefaultMaxTokens, "maximum tokens per response")
	f.Float64("top-p", types.DefaultTopP, "nucleus sampling threshold in [0,1]")
	f.Float64("temperature", types.DefaultTemperature, "sampling temperature")
	f.Int("top-k", types.DefaultTopK, "top-k sampling (ignored by providers without it)")
	f.String("instruction-format", "", "prompt wrapping: mistral, llama3, or plain (default mistral for bedrock, plain otherwise)")
	f.String("language", "Japanese", "language the slides are written in")
	f.Duration("timeout", types.DefaultTimeout, "timeout for a single model call (0 = none)")
	f.Int("max-retries", 0, "extra attempts after a failed model call")
	f.Int("rpm", 0, "maximum model requests per minute (0 = unpaced)")
	f.String("region", types.DefaultRegion, "AWS region for bedrock")
	f.String("base-url", "", "override the provider endpoint")
	f.Bool("no-history", false, "do not record the run in the history database")
	f.BoolP("verbose", "v", false, "print each group's extracted text and model output")

	for key, flag := range map[string]string{
		"partition.group_size":      "group-size",
		"partition.extractor":       "extractor",
		"model.provider":            "provider",
		"model.model_id":            "model",
		"model.max_tokens":          "max-tokens",
		"model.top_p":               "top-p",
		"model.temperature":         "temperature",
		"model.top_k":               "top-k",
		"model.instruction_format":  "instruction-format",
		"model.timeout":             "timeout",
		"model.max_retries":         "max-retries",
		"model.requests_per_minute": "rpm",
		"model.region":              "region",
		"model.base_url":            "base-url",
		"prompt.language":           "language",
	} {
		viper.BindPFlag(key, f.Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
}
