// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package model

import (
	"strings"

	"github.com/pdiddy/slide-engine/pkg/types"
)

// instruction describes how a model family expects a raw prompt to be
// delimited. A prompt that already contains marker is sent as is.
type instruction struct {
	marker string
	prefix string
	suffix string
}

var instructionFormats = map[types.InstructionFormat]instruction{
	types.FormatMistral: {
		marker: "<s>",
		prefix: "<s>[INST]",
		suffix: "[/INST]",
	},
	types.FormatLlama3: {
		marker: "<|begin_of_text|>",
		prefix: "<|begin_of_text|><|start_header_id|>user<|end_header_id|>\n\n",
		suffix: "<|eot_id|><|start_header_id|>assistant<|end_header_id|>\n\n",
	},
}

// Wrap delimits prompt for the given instruction format. Plain and unknown
// formats return prompt unchanged.
func Wrap(format types.InstructionFormat, prompt string) string {
	ins, ok := instructionFormats[format]
	if !ok || strings.Contains(prompt, ins.marker) {
		return prompt
	}
	return ins.prefix + prompt + ins.suffix
}
