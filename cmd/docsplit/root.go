package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/extract"
	"github.com/dgallion1/docsplit/internal/family"
	"github.com/dgallion1/docsplit/internal/pipeline"
)

var (
	configPath  string
	familiesDir string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:   "docsplit",
	Short: "Split legal documents along their heading structure",
	Long: `docsplit renders a document into a layout token stream, finds its headings
with a per-family grammar and splits it into page-bounded fragments.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("DOCSPLIT_CONFIG"), "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&familiesDir, "families-dir", "", "Directory of extra family definitions")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

// env bundles what every subcommand needs.
type env struct {
	cfg      config.Config
	log      *slog.Logger
	families *family.Registry
}

// loadEnv reads the config, applies flag overrides and loads families.
func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if familiesDir != "" {
		cfg.FamiliesDir = familiesDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	families, err := family.NewRegistry(cfg.FamiliesDir)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, log: log, families: families}, nil
}

// extractor returns the Claude client when extraction was asked for.
func (e *env) extractor(kind string) (pipeline.OutlineExtractor, func(), error) {
	switch pipeline.Extractor(kind) {
	case "", pipeline.ExtractGrammar:
		return nil, func() {}, nil
	case pipeline.ExtractLLM:
		if e.cfg.AnthropicAPIKey == "" {
			return nil, nil, fmt.Errorf("--extractor llm needs ANTHROPIC_API_KEY")
		}
		c := extract.NewClaudeClient(e.cfg.AnthropicAPIKey, e.cfg.AnthropicModel,
			extract.WithRetry(e.cfg.LLMAttempts, e.cfg.LLMRetryDelay))
		return c, c.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown extractor %q (grammar, llm)", kind)
	}
}
