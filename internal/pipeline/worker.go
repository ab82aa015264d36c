package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/dgallion1/docsplit/internal/extract"
	"github.com/dgallion1/docsplit/internal/family"
	"github.com/dgallion1/docsplit/internal/grammar"
	"github.com/dgallion1/docsplit/internal/layout"
	"github.com/dgallion1/docsplit/internal/outline"
	"github.com/dgallion1/docsplit/internal/split"
	"github.com/dgallion1/docsplit/internal/tokenstream"
)

// OutlineExtractor produces an outline from page texts. *extract.ClaudeClient
// implements it.
type OutlineExtractor interface {
	ExtractOutline(ctx context.Context, title string, pages []string, types outline.TypeList) (outline.Outline, error)
}

// WorkerConfig holds the settings shared by every worker.
type WorkerConfig struct {
	OutputDir string // artifacts are written under OutputDir/<job id>; empty disables writing
	Separator string
	// NameDirs uses the document name instead of the job id for the
	// per-document output directory.
	NameDirs bool
}

// Worker processes a single document job.
type Worker struct {
	families  *family.Registry
	extractor OutlineExtractor
	metrics   *Metrics
	log       *slog.Logger
	cfg       WorkerConfig
}

func NewWorker(families *family.Registry, extractor OutlineExtractor, metrics *Metrics, log *slog.Logger, cfg WorkerConfig) *Worker {
	return &Worker{
		families:  families,
		extractor: extractor,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
	}
}

// phaseError carries the phase a job failed in.
type phaseError struct {
	status JobStatus
	err    error
}

func (e *phaseError) Error() string { return fmt.Sprintf("%s: %v", e.status, e.err) }
func (e *phaseError) Unwrap() error { return e.err }

// Process runs the full split pipeline for a job. Failures, including
// panics, mark only this job failed.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file", job.Filename, "family", job.Family)
	if w.metrics != nil {
		w.metrics.JobsInFlight.Inc()
		defer w.metrics.JobsInFlight.Dec()
	}

	defer func() {
		if r := recover(); r != nil {
			snap := job.Snapshot()
			log.Error("panic while processing", "phase", snap.Phase, "panic", r, "stack", string(debug.Stack()))
			job.AddError(fmt.Sprintf("internal error: %v", r))
			w.done(job, StatusFailed, snap.Phase, nil)
		}
	}()

	res, err := w.run(ctx, job, log)
	if err != nil {
		phase := job.Snapshot().Phase
		var pe *phaseError
		if errors.As(err, &pe) {
			phase = string(pe.status)
		}
		log.Error("split failed", append([]any{"phase", phase, "error", err}, errorContext(err)...)...)
		job.AddError(err.Error())
		w.done(job, StatusFailed, phase, nil)
		return
	}
	log.Info("split complete",
		"pages", res.Plan.TotalPages,
		"headings", len(res.Outline.Headings),
		"fragments", len(res.Plan.NonEmpty()),
		"artifacts", len(res.Artifacts))
	w.done(job, StatusCompleted, "done", res)
}

func (w *Worker) done(job *Job, status JobStatus, phase string, res *Result) {
	job.finish(status, phase, res)
	if w.metrics != nil {
		w.metrics.DocumentsTotal.WithLabelValues(job.Family, string(status)).Inc()
	}
}

// errorContext turns typed errors into log attributes that point at the
// offending heading or grammar line.
func errorContext(err error) []any {
	var (
		ce  *grammar.ConfigError
		he  *outline.HierarchyError
		ute *outline.UnknownTypeError
		poe *outline.PageOrderError
		re  *extract.RetryableError
	)
	switch {
	case errors.As(err, &ce):
		return []any{"grammar_line", ce.Line}
	case errors.As(err, &he):
		return []any{"heading_index", he.Index, "heading", he.Heading.String()}
	case errors.As(err, &ute):
		return []any{"heading_index", ute.Index, "heading_type", ute.Type}
	case errors.As(err, &poe):
		return []any{"heading_index", poe.Index, "page", poe.Heading.Page}
	case errors.As(err, &re):
		return []any{"status_code", re.StatusCode}
	}
	return nil
}

// phase sets the job status and returns a func that records the phase
// duration.
func (w *Worker) phase(job *Job, status JobStatus) func() {
	job.SetStatus(status, string(status))
	start := time.Now()
	return func() {
		if w.metrics != nil {
			w.metrics.PhaseDuration.WithLabelValues(string(status)).Observe(time.Since(start).Seconds())
		}
	}
}

func fail(status JobStatus, err error) error {
	return &phaseError{status: status, err: err}
}

func (w *Worker) run(ctx context.Context, job *Job, log *slog.Logger) (*Result, error) {
	fam, ok := w.families.Get(job.Family)
	if !ok {
		return nil, fail(StatusQueued, fmt.Errorf("unknown family %q", job.Family))
	}

	// Phase 1: Tokenize
	end := w.phase(job, StatusTokenizing)
	producer, err := layout.ForFile(job.Filename, fam.Layout)
	if err != nil {
		return nil, fail(StatusTokenizing, err)
	}
	data := job.FileData()
	doc, err := producer.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		return nil, fail(StatusTokenizing, fmt.Errorf("parse: %w", err))
	}
	end()
	if job.Title == "" {
		job.mu.Lock()
		job.Title = doc.Title
		job.mu.Unlock()
	}
	job.update(func(p *Progress) {
		p.Pages = doc.Pages
		p.Tokens = len(doc.Tokens)
	})
	log.Info("tokenized document", "pages", doc.Pages, "tokens", len(doc.Tokens))

	// Phase 2: Remove running footers
	tokens := doc.Tokens
	if fam.Footer != nil {
		end = w.phase(job, StatusCleaning)
		var removed int
		tokens, removed = fam.Footer.Clean(tokens)
		end()
		job.update(func(p *Progress) { p.FootersRemoved = removed })
		if w.metrics != nil {
			w.metrics.FootersRemoved.Add(float64(removed))
		}
		log.Debug("footers removed", "count", removed)
	}

	// Phase 3: Find headings
	end = w.phase(job, StatusScanning)
	o, source, err := w.headings(ctx, job, fam, doc.Title, tokens, log)
	if err != nil {
		return nil, fail(StatusScanning, err)
	}
	end()
	job.update(func(p *Progress) { p.Headings = len(o.Headings) })
	if w.metrics != nil {
		w.metrics.HeadingsTotal.WithLabelValues(job.Family, source).Add(float64(len(o.Headings)))
	}
	log.Info("headings found", "count", len(o.Headings), "source", source)

	// Phase 4: Build the outline tree
	end = w.phase(job, StatusBuilding)
	if fam.NormalizeZeroPage {
		// Shift a copy so the tree, the markdown and headers.json agree.
		o.Headings = append([]outline.Heading(nil), o.Headings...)
		if o.NormalizePages() {
			log.Debug("outline pages shifted from zero")
		}
	}
	tree, err := outline.Build(o, doc.Pages, outline.BuildOptions{})
	if err != nil {
		return nil, fail(StatusBuilding, err)
	}
	end()

	// Phase 5: Plan fragments
	end = w.phase(job, StatusPlanning)
	maxPages := job.MaxPages
	if maxPages == 0 {
		maxPages = fam.MaxPages
	}
	if maxPages == 0 {
		// Neither the job nor the family caps fragment size.
		maxPages = split.DefaultMaxPages
	}
	plan, err := split.Planner{MaxPages: maxPages, Separator: w.cfg.Separator}.Plan(tree)
	if err != nil {
		return nil, fail(StatusPlanning, err)
	}
	plan.Entries = plan.Sorted()
	if err := plan.Verify(); err != nil {
		return nil, fail(StatusPlanning, err)
	}
	end()
	fragments := len(plan.NonEmpty())
	job.update(func(p *Progress) { p.Fragments = fragments })
	if w.metrics != nil {
		w.metrics.FragmentsTotal.Add(float64(fragments))
	}

	res := &Result{Outline: o, Tree: tree, Plan: plan, Markdown: outline.RenderOutline(o)}

	// Phase 6: Write artifacts
	if w.cfg.OutputDir != "" {
		end = w.phase(job, StatusWriting)
		res.Artifacts, err = w.writeArtifacts(ctx, job, data, res, log)
		if err != nil {
			return nil, fail(StatusWriting, err)
		}
		end()
	}
	return res, nil
}

// headings picks the outline source: a caller-supplied markdown outline,
// the cloud extractor, or the family's heading grammar.
func (w *Worker) headings(ctx context.Context, job *Job, fam *family.Compiled, title string, tokens []tokenstream.Token, log *slog.Logger) (outline.Outline, string, error) {
	if md := job.OutlineOverride(); len(md) > 0 {
		o, err := outline.ParseMarkdown(md, fam.Types)
		return o, "markdown", err
	}
	if job.Extractor == ExtractLLM {
		if w.extractor == nil {
			return outline.Outline{}, "", fmt.Errorf("llm extractor is not configured")
		}
		pages := tokenstream.PageTexts(tokens)
		o, err := w.extractor.ExtractOutline(ctx, title, pages, fam.Types)
		if err != nil {
			return outline.Outline{}, "", err
		}
		if missing := extract.MissingLabels(o, pages); len(missing) > 0 {
			labels := make([]string, len(missing))
			for i, h := range missing {
				labels[i] = h.Label
			}
			log.Warn("headings not found on their pages", "labels", strings.Join(labels, ", "))
		}
		return o, string(ExtractLLM), nil
	}
	o, err := fam.Headings.Outline(tokens)
	return o, string(ExtractGrammar), err
}

// writeArtifacts writes <name>.md, <name>_headers.json and, for PDF input,
// one PDF per fragment under OutputDir/<job id>.
func (w *Worker) writeArtifacts(ctx context.Context, job *Job, data []byte, res *Result, log *slog.Logger) ([]string, error) {
	name := strings.TrimSuffix(filepath.Base(job.Filename), filepath.Ext(job.Filename))
	dir := filepath.Join(w.cfg.OutputDir, job.ID)
	if w.cfg.NameDirs {
		dir = filepath.Join(w.cfg.OutputDir, name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	mdPath := filepath.Join(dir, name+".md")
	if err := os.WriteFile(mdPath, []byte(res.Markdown), 0o644); err != nil {
		return nil, fmt.Errorf("write outline: %w", err)
	}
	headers, err := json.MarshalIndent(res.Outline, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal headers: %w", err)
	}
	headersPath := filepath.Join(dir, name+"_headers.json")
	if err := os.WriteFile(headersPath, headers, 0o644); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}
	artifacts := []string{mdPath, headersPath}

	if !strings.EqualFold(filepath.Ext(job.Filename), ".pdf") {
		return artifacts, nil
	}
	src, err := os.CreateTemp(dir, "source-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create source copy: %w", err)
	}
	srcPath := src.Name()
	defer os.Remove(srcPath)
	if _, err := src.Write(data); err != nil {
		src.Close()
		return nil, fmt.Errorf("write source copy: %w", err)
	}
	if err := src.Close(); err != nil {
		return nil, err
	}

	pw := &split.PDFWriter{Dir: filepath.Join(dir, "split"), Log: log}
	paths, err := pw.Write(ctx, srcPath, res.Plan)
	if err != nil {
		return nil, err
	}
	return append(artifacts, paths...), nil
}
