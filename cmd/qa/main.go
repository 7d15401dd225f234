// Package main is the command line entry point for asking questions about the
// reference document and embedding it.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"doc-qa/internal/app"
	"doc-qa/internal/config"
	"doc-qa/internal/qa"
)

// runners perform the work behind each subcommand.
type runners struct {
	ask   func(ctx context.Context, src *qa.Source, question string) (string, error)
	embed func(ctx context.Context, src *qa.Source) (qa.EmbedResult, error)
}

// sourceFlags override the configured source when set.
type sourceFlags struct {
	path      string
	skipLines int
}

func main() {
	if err := newRootCmd(defaultRunners()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(r runners) *cobra.Command {
	var flags sourceFlags

	rootCmd := &cobra.Command{
		Use:   "qa",
		Short: "Answer questions about a reference document",
		Long: `qa answers questions from a single reference document using a
completion model, and can embed the document into Postgres.

Configuration is read from the environment and an optional .env file.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.path, "source", "s", "", "Path to the reference document (default SOURCE_PATH)")
	rootCmd.PersistentFlags().IntVar(&flags.skipLines, "skip-lines", -1, "Leading lines to drop (default SKIP_LINES)")

	askCmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the reference document",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}
			answer, err := r.ask(cmd.Context(), flags.source(), question)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}

	embedCmd := &cobra.Command{
		Use:   "embed",
		Short: "Chunk, embed and store the reference document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := r.embed(cmd.Context(), flags.source())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "embedded %d chunks as document %s\n", res.Chunks, res.DocumentID)
			return nil
		},
	}

	rootCmd.AddCommand(askCmd, embedCmd)
	return rootCmd
}

// source returns nil when no override flag was given.
func (f sourceFlags) source() *qa.Source {
	if f.path == "" && f.skipLines < 0 {
		return nil
	}
	return &qa.Source{Path: f.path, SkipLines: f.skipLines}
}

func defaultRunners() runners {
	return runners{
		ask: func(ctx context.Context, src *qa.Source, question string) (string, error) {
			cfg, log, err := app.Init()
			if err != nil {
				return "", err
			}
			pipeline, err := app.BuildPipeline(override(cfg, src), log)
			if err != nil {
				return "", err
			}
			return pipeline.Ask(ctx, question)
		},
		embed: func(ctx context.Context, src *qa.Source) (qa.EmbedResult, error) {
			cfg, log, err := app.Init()
			if err != nil {
				return qa.EmbedResult{}, err
			}
			cfg = override(cfg, src)
			embed, err := app.BuildEmbedPipeline(cfg, log)
			if err != nil {
				return qa.EmbedResult{}, err
			}
			return embed.Run(ctx, qa.Source{Path: cfg.SourcePath, SkipLines: cfg.SkipLines})
		},
	}
}

func override(cfg config.Config, src *qa.Source) config.Config {
	if src == nil {
		return cfg
	}
	if src.Path != "" {
		cfg.SourcePath = src.Path
	}
	if src.SkipLines >= 0 {
		cfg.SkipLines = src.SkipLines
	}
	return cfg
}
