// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// RunState is the state of a pipeline run.
type RunState string

const (
	RunIdle        RunState = "idle"
	RunValidating  RunState = "validating"
	RunRejected    RunState = "rejected"
	RunInitialized RunState = "initialized"
	RunProcessing  RunState = "processing"
	RunCompleted   RunState = "completed"
	RunAborted     RunState = "aborted"
)

// GroupStage is the last step a page group reached inside a run.
type GroupStage string

const (
	StagePartitioned  GroupStage = "partitioned"
	StageExtracted    GroupStage = "extracted"
	StagePromptBuilt  GroupStage = "prompt_built"
	StageModelInvoked GroupStage = "model_invoked"
	StageRepaired     GroupStage = "repaired"
	StageAppended     GroupStage = "appended"
)

// GroupStatus is the outcome of a page group.
type GroupStatus string

const (
	GroupOK     GroupStatus = "ok"
	GroupFailed GroupStatus = "failed"
)

// GroupResult records what happened to one page group.
type GroupResult struct {
	// Index is the 1-based group number.
	Index int `json:"index" yaml:"index"`

	// FirstPage and LastPage are 1-based, inclusive.
	FirstPage int `json:"first_page" yaml:"first_page"`
	LastPage  int `json:"last_page" yaml:"last_page"`

	// SubDocument and TextFile are the per-group side artifacts.
	SubDocument string `json:"sub_document" yaml:"sub_document"`
	TextFile    string `json:"text_file" yaml:"text_file"`

	Stage  GroupStage  `json:"stage" yaml:"stage"`
	Status GroupStatus `json:"status" yaml:"status"`

	// Error is the model failure reason for failed groups.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// Warnings lists non-fatal findings such as uncorrectable tag imbalance.
	Warnings []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`

	// AppendedTags lists the closing tags added by fragment repair.
	AppendedTags []string `json:"appended_tags,omitempty" yaml:"appended_tags,omitempty"`

	Duration time.Duration `json:"duration" yaml:"duration"`
}

// RunSummary records a whole pipeline run.
type RunSummary struct {
	RunID        string        `json:"run_id" yaml:"run_id"`
	SourcePath   string        `json:"source_path" yaml:"source_path"`
	OutputDir    string        `json:"output_dir" yaml:"output_dir"`
	ArtifactPath string        `json:"artifact_path" yaml:"artifact_path"`
	PageCount    int           `json:"page_count" yaml:"page_count"`
	GroupSize    int           `json:"group_size" yaml:"group_size"`
	Provider     Provider      `json:"provider" yaml:"provider"`
	ModelID      string        `json:"model_id" yaml:"model_id"`
	State        RunState      `json:"state" yaml:"state"`
	Groups       []GroupResult `json:"groups" yaml:"groups"`
	StartedAt    time.Time     `json:"started_at" yaml:"started_at"`
	CompletedAt  time.Time     `json:"completed_at" yaml:"completed_at"`
}

// Succeeded returns the number of groups whose fragment came from the model.
func (s RunSummary) Succeeded() int {
	n := 0
	for _, g := range s.Groups {
		if g.Status == GroupOK {
			n++
		}
	}
	return n
}

// Failed returns the number of groups recorded with a model failure.
func (s RunSummary) Failed() int {
	n := 0
	for _, g := range s.Groups {
		if g.Status == GroupFailed {
			n++
		}
	}
	return n
}

// HasFailures reports whether any group failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed() > 0
}
