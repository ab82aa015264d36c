package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/pipeline"
)

var outlineOpts struct {
	family    string
	format    string
	extractor string
	maxPages  int
	plan      bool
}

var outlineCmd = &cobra.Command{
	Use:   "outline FILE",
	Short: "Print a document's heading outline",
	Long: `Outline finds the headings of FILE without writing any fragments. The
markdown format is the one accepted by 'docsplit split --outline', so the
output can be corrected by hand and fed back.`,
	Args: cobra.ExactArgs(1),
	RunE: runOutline,
}

func init() {
	f := outlineCmd.Flags()
	f.StringVarP(&outlineOpts.family, "family", "f", "", "Document family")
	f.StringVar(&outlineOpts.format, "format", "markdown", "Output format (markdown, headers, tree)")
	f.StringVar(&outlineOpts.extractor, "extractor", string(pipeline.ExtractGrammar), "Heading source (grammar, llm)")
	f.IntVarP(&outlineOpts.maxPages, "max-pages", "n", 0, "Maximum pages per fragment for --plan")
	f.BoolVar(&outlineOpts.plan, "plan", false, "Also print the split plan")
	outlineCmd.MarkFlagRequired("family")
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	e, err := loadEnv(cmd)
	if err != nil {
		return err
	}
	switch outlineOpts.format {
	case "markdown", "headers", "tree":
	default:
		return fmt.Errorf("--format must be markdown, headers or tree")
	}
	extractor, closeExtractor, err := e.extractor(outlineOpts.extractor)
	if err != nil {
		return err
	}
	defer closeExtractor()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	job := pipeline.NewJob(filepath.Base(args[0]), outlineOpts.family, data)
	job.MaxPages = outlineOpts.maxPages
	job.Extractor = pipeline.Extractor(outlineOpts.extractor)

	w := pipeline.NewWorker(e.families, extractor, nil, e.log, pipeline.WorkerConfig{Separator: e.cfg.Separator})
	w.Process(cmd.Context(), job)
	res := job.Result()
	if res == nil {
		snap := job.Snapshot()
		return fmt.Errorf("%s failed in %s: %v", snap.Filename, snap.Phase, snap.Progress.Errors)
	}

	out := cmd.OutOrStdout()
	switch outlineOpts.format {
	case "markdown":
		io.WriteString(out, res.Markdown)
	case "headers":
		err = writeIndented(out, res.Outline)
	case "tree":
		err = writeIndented(out, res.Tree)
	}
	if err != nil {
		return err
	}
	if outlineOpts.plan {
		formatPlan(cmd.ErrOrStderr(), res.Plan)
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
