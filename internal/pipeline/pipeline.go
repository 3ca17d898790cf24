// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline turns a PDF into a Beamer slide artifact. A run validates
// the input, creates a fresh run directory, and then takes each page group
// through extraction, prompting, model invocation, fragment repair, and
// append, strictly in group order.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pdiddy/slide-engine/internal/artifact"
	"github.com/pdiddy/slide-engine/internal/fragment"
	"github.com/pdiddy/slide-engine/internal/model"
	"github.com/pdiddy/slide-engine/internal/partition"
	"github.com/pdiddy/slide-engine/internal/prompt"
	"github.com/pdiddy/slide-engine/pkg/types"
)

// ManifestName is the per-run summary file written next to the artifact.
const ManifestName = "run.yaml"

const maxRunDirAttempts = 5

// ErrRunDirExhausted is returned when no unused run directory could be
// created.
var ErrRunDirExhausted = errors.New("could not allocate a run directory")

// Opener opens the source document of a run.
type Opener func(path string) (partition.Document, error)

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run *types.RunSummary) error
}

// OpenPDF is the default Opener.
func OpenPDF(path string) (partition.Document, error) {
	doc, err := partition.OpenPDF(path)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Runner executes pipeline runs. It is safe to call Run again after a
// previous run finished; every run gets its own directory and artifact.
type Runner struct {
	cfg       types.PipelineConfig
	invoker   model.Invoker
	builder   prompt.Builder
	extractor partition.TextExtractor
	open      Opener
	recorder  Recorder
	log       *logrus.Logger
	out       io.Writer
	verbose   bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithExtractor replaces the per-page text extractor.
func WithExtractor(e partition.TextExtractor) Option {
	return func(r *Runner) { r.extractor = e }
}

// WithOpener replaces the PDF opener.
func WithOpener(o Opener) Option {
	return func(r *Runner) { r.open = o }
}

// WithRecorder records every finished run.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithLogger sets the structured logger.
func WithLogger(log *logrus.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithProgress writes per-group status lines to w. When verbose is set the
// extracted text and the raw model output of each group are written too.
func WithProgress(w io.Writer, verbose bool) Option {
	return func(r *Runner) {
		r.out = w
		r.verbose = verbose
	}
}

// New returns a Runner that sends prompts to invoker.
func New(cfg types.PipelineConfig, invoker model.Invoker, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		invoker:   invoker,
		builder:   prompt.FromConfig(cfg.Prompt),
		extractor: partition.PageTextExtractor{},
		open:      OpenPDF,
		log:       logrus.StandardLogger(),
		out:       io.Discard,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewRunID returns a 32-character lowercase alphanumeric run identifier.
func NewRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Run processes sourcePath and returns the run summary. Validation failures
// return before anything is written. Model failures are recorded per group
// and do not stop the run; I/O failures abort it. The summary is returned in
// every case where a run got past validation.
func (r *Runner) Run(ctx context.Context, sourcePath string) (*types.RunSummary, error) {
	run := &types.RunSummary{
		SourcePath: sourcePath,
		GroupSize:  r.cfg.Partition.GroupSize,
		Provider:   r.cfg.Model.Provider,
		ModelID:    r.modelParams().ModelID,
		State:      types.RunIdle,
		StartedAt:  time.Now(),
	}
	log := r.log.WithField("source", sourcePath)

	run.State = types.RunValidating
	p, closeDoc, err := r.validate(sourcePath)
	if err != nil {
		run.State = types.RunRejected
		log.WithError(err).Warn("input rejected")
		return run, err
	}
	defer closeDoc()
	run.PageCount = p.PageCount()

	runID, dir, err := createRunDir(r.cfg.Output.OutputDir)
	if err != nil {
		run.State = types.RunAborted
		return run, err
	}
	run.RunID = runID
	run.OutputDir = dir
	log = log.WithField("run_id", runID)

	acc, err := artifact.Initialize(filepath.Join(dir, r.cfg.Output.ArtifactName))
	if err != nil {
		run.State = types.RunAborted
		return run, err
	}
	run.ArtifactPath = acc.Path()
	run.State = types.RunInitialized
	log.WithFields(logrus.Fields{
		"pages":  run.PageCount,
		"groups": p.GroupCount(),
	}).Info("run initialized")

	run.State = types.RunProcessing
	total := p.GroupCount()
	for g := range p.Groups() {
		if err := ctx.Err(); err != nil {
			return r.abort(ctx, run, log, fmt.Errorf("run cancelled before group %d: %w", g.Index, err))
		}

		res, err := r.processGroup(ctx, p, acc, g, total, dir, log)
		run.Groups = append(run.Groups, res)
		if err != nil {
			fmt.Fprintf(r.out, "failed  group %d: %v\n", g.Index, err)
			return r.abort(ctx, run, log, err)
		}
	}

	run.State = types.RunCompleted
	run.CompletedAt = time.Now()
	if err := r.finish(ctx, run, log); err != nil {
		return run, err
	}

	log.WithFields(logrus.Fields{
		"succeeded": run.Succeeded(),
		"failed":    run.Failed(),
	}).Info("run completed")
	return run, nil
}

// validate opens the source document and checks it can be partitioned.
func (r *Runner) validate(sourcePath string) (*partition.Partitioner, func(), error) {
	doc, err := r.open(sourcePath)
	if err != nil {
		return nil, nil, err
	}
	closeDoc := func() {
		if c, ok := doc.(io.Closer); ok {
			c.Close()
		}
	}

	p, err := partition.New(doc, r.cfg.Partition.GroupSize, r.extractor)
	if err != nil {
		closeDoc()
		return nil, nil, err
	}
	return p, closeDoc, nil
}

// EmptyTextMarker is recorded in place of a fragment for a group whose pages
// yielded no text, such as scanned images. The model is not called.
func EmptyTextMarker(firstPage, lastPage int) string {
	return fmt.Sprintf("%sno extractable text in pages %d-%d", model.ErrorMarker, firstPage, lastPage)
}

// processGroup takes one group from materialization to append. The returned
// error is non-nil only for failures that must abort the run.
func (r *Runner) processGroup(ctx context.Context, p *partition.Partitioner, acc *artifact.Accumulator, g partition.Group, total int, dir string, log *logrus.Entry) (types.GroupResult, error) {
	start := time.Now()
	res := types.GroupResult{
		Index:     g.Index,
		FirstPage: g.Start + 1,
		LastPage:  g.End,
		Stage:     types.StagePartitioned,
		Status:    types.GroupOK,
	}
	glog := log.WithField("group", g.Index)

	fmt.Fprintf(r.out, "group %d/%d (pages %d-%d)\n", g.Index, total, res.FirstPage, res.LastPage)

	m, err := p.Materialize(ctx, g, dir)
	res.SubDocument = m.SubDocument
	res.TextFile = m.TextFile
	if err != nil {
		res.Duration = time.Since(start)
		return res, err
	}
	res.Stage = types.StageExtracted
	r.show("text", m.Text)

	raw, err := r.generate(ctx, m.Text, &res)
	if err != nil {
		if errors.Is(err, prompt.ErrEmptyText) {
			raw = EmptyTextMarker(res.FirstPage, res.LastPage)
		} else {
			raw = model.FailureText(r.modelParams().ModelID, err)
		}
		res.Status = types.GroupFailed
		res.Error = err.Error()
		glog.WithError(err).WithField("stage", res.Stage).Warn("slide generation failed")
	}
	r.show("model output", raw)

	frag := fragment.Repair(raw)
	res.Stage = types.StageRepaired
	res.AppendedTags = frag.Appended
	for _, env := range frag.Malformed {
		w := fmt.Sprintf("more %s than %s tags", env.End(), env.Begin())
		res.Warnings = append(res.Warnings, w)
		glog.WithField("env", string(env)).Warn("fragment malformed: " + w)
	}
	if frag.Repaired() {
		glog.WithField("appended", frag.Appended).Debug("fragment repaired")
	}

	if err := acc.Append(g.Index, frag.Text); err != nil {
		res.Duration = time.Since(start)
		return res, err
	}
	res.Stage = types.StageAppended
	res.Duration = time.Since(start)

	if res.Status == types.GroupFailed {
		fmt.Fprintf(r.out, "failed  group %d: %s\n", g.Index, res.Error)
	} else {
		fmt.Fprintf(r.out, "appended group %d (%v)\n", g.Index, res.Duration.Round(time.Millisecond))
	}
	return res, nil
}

// generate builds the prompt for text and invokes the model, advancing
// res.Stage as it goes.
func (r *Runner) generate(ctx context.Context, text string, res *types.GroupResult) (string, error) {
	pr, err := r.builder.Build(text)
	if err != nil {
		return "", err
	}
	res.Stage = types.StagePromptBuilt

	out, err := r.invoker.Invoke(ctx, pr, r.cfg.Model.ModelParams)
	if err != nil {
		return "", err
	}
	res.Stage = types.StageModelInvoked
	return out, nil
}

func (r *Runner) abort(ctx context.Context, run *types.RunSummary, log *logrus.Entry, cause error) (*types.RunSummary, error) {
	run.State = types.RunAborted
	run.CompletedAt = time.Now()
	log.WithError(cause).Error("run aborted")
	if err := r.finish(context.WithoutCancel(ctx), run, log); err != nil {
		log.WithError(err).Warn("could not record aborted run")
	}
	return run, cause
}

// finish writes the run manifest and records the run. A ledger failure is
// logged and does not fail the run.
func (r *Runner) finish(ctx context.Context, run *types.RunSummary, log *logrus.Entry) error {
	if err := WriteManifest(filepath.Join(run.OutputDir, ManifestName), run); err != nil {
		return err
	}
	if r.recorder != nil {
		if err := r.recorder.Record(ctx, run); err != nil {
			log.WithError(err).Warn("could not record run in history")
		}
	}
	return nil
}

func (r *Runner) modelParams() types.ModelParams {
	p := r.cfg.Model.ModelParams
	if p.ModelID == "" && r.invoker != nil {
		p.ModelID = r.invoker.Defaults().ModelID
	}
	return p
}

func (r *Runner) show(label, body string) {
	if !r.verbose {
		return
	}
	fmt.Fprintf(r.out, "--- %s ---\n%s\n", label, strings.TrimRight(body, "\n"))
}

// createRunDir creates <parent>/<run-id> exclusively, drawing a new id when
// the directory already exists.
func createRunDir(parent string) (string, string, error) {
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", "", fmt.Errorf("creating output directory: %w", err)
	}
	for range maxRunDirAttempts {
		id := NewRunID()
		dir := filepath.Join(parent, id)
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", fmt.Errorf("creating run directory: %w", err)
		}
	}
	return "", "", ErrRunDirExhausted
}
