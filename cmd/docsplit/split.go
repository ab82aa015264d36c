package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/layout"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

var splitOpts struct {
	family      string
	maxPages    int
	out         string
	outlinePath string
	extractor   string
	workers     int
}

var splitCmd = &cobra.Command{
	Use:   "split FILE...",
	Short: "Split documents into page-bounded fragments",
	Long: `Split runs every FILE through the pipeline and writes, per document, the
rendered outline, the headings as JSON and (for PDF input) one PDF per fragment
under --out/<document name>.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSplit,
}

func init() {
	f := splitCmd.Flags()
	f.StringVarP(&splitOpts.family, "family", "f", "", "Document family (see 'docsplit families')")
	f.IntVarP(&splitOpts.maxPages, "max-pages", "n", 0, "Maximum pages per fragment (0 = family default)")
	f.StringVarP(&splitOpts.out, "out", "o", "", "Output directory (default: config output_dir)")
	f.StringVar(&splitOpts.outlinePath, "outline", "", "Markdown outline to use instead of scanning (single FILE only)")
	f.StringVar(&splitOpts.extractor, "extractor", string(pipeline.ExtractGrammar), "Heading source (grammar, llm)")
	f.IntVar(&splitOpts.workers, "workers", 0, "Concurrent documents (0 = config worker_count)")
	splitCmd.MarkFlagRequired("family")
	rootCmd.AddCommand(splitCmd)
}

func runSplit(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	if _, ok := e.families.Get(splitOpts.family); !ok {
		return fmt.Errorf("unknown family %q (have %v)", splitOpts.family, e.families.Names())
	}
	if splitOpts.maxPages < 0 {
		return fmt.Errorf("--max-pages must not be negative")
	}
	if splitOpts.outlinePath != "" && len(args) > 1 {
		return fmt.Errorf("--outline applies to a single FILE")
	}
	var override []byte
	if splitOpts.outlinePath != "" {
		if override, err = os.ReadFile(splitOpts.outlinePath); err != nil {
			return fmt.Errorf("read outline: %w", err)
		}
	}
	extractor, closeExtractor, err := e.extractor(splitOpts.extractor)
	if err != nil {
		return err
	}
	defer closeExtractor()

	out := splitOpts.out
	if out == "" {
		out = e.cfg.OutputDir
	}
	if out == "" {
		out = "."
	}
	workers := splitOpts.workers
	if workers <= 0 {
		workers = e.cfg.WorkerCount
	}

	orch := pipeline.NewOrchestrator(pipeline.Options{
		WorkerCount:  workers,
		MaxQueueSize: workers,
		Worker: pipeline.WorkerConfig{
			OutputDir: out,
			Separator: e.cfg.Separator,
			NameDirs:  true,
		},
	}, e.families, extractor, nil, e.log)

	ctx := cmd.Context()
	orch.Start(ctx)
	defer orch.Stop()

	started := time.Now()
	var jobs []*pipeline.Job
	for _, path := range args {
		if !layout.IsSupportedExtension(path) {
			return fmt.Errorf("%s: unsupported file type %s", path, filepath.Ext(path))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		job := pipeline.NewJob(filepath.Base(path), splitOpts.family, data)
		job.MaxPages = splitOpts.maxPages
		job.Extractor = pipeline.Extractor(splitOpts.extractor)
		if override != nil {
			job.SetOutline(override)
		}
		if err := orch.Enqueue(ctx, job); err != nil {
			return err
		}
		jobs = append(jobs, job)
	}
	if err := orch.Drain(ctx); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	failed := 0
	for _, job := range jobs {
		if job.Snapshot().Status == pipeline.StatusFailed {
			failed++
		}
		formatJob(w, job)
	}
	formatSummary(w, len(jobs), failed, out, time.Since(started))
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed", failed, len(jobs))
	}
	return nil
}
