package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"doc-qa/internal/app"
	"doc-qa/internal/httputil"
	"doc-qa/internal/qa"
	"doc-qa/internal/queue"
)

// embedRunner is the part of the embedding pipeline the worker drives.
type embedRunner interface {
	Run(ctx context.Context, src qa.Source) (qa.EmbedResult, error)
}

func main() {
	deps, err := app.BuildEmbedder()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("embedding worker starting")

	g, ctx := errgroup.WithContext(context.Background())

	g.Go(func() error {
		return deps.Queue.Worker(ctx, queue.TaskTypeEmbed, embedTaskHandler(deps.Log, deps.Embed, deps.Config.SourcePath))
	})

	g.Go(func() error {
		return httputil.ServeHealth(deps.Log, deps.Config.Port, "embedder")
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("embedding worker stopped", "err", err)
	}
}

// embedTaskHandler only embeds source; tasks naming any other path fail.
func embedTaskHandler(log *slog.Logger, runner embedRunner, source string) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		var payload queue.EmbedPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			return err
		}
		if payload.Source != source {
			log.Warn("rejected embedding task for foreign source", "task_id", task.ID, "source", payload.Source)
			return fmt.Errorf("source %q is not the configured document", payload.Source)
		}
		res, err := runner.Run(ctx, qa.Source{Path: payload.Source, SkipLines: payload.SkipLines})
		if err != nil {
			return err
		}
		log.Info("document embedded", "task_id", task.ID, "document_id", res.DocumentID, "chunks", res.Chunks)
		return nil
	}
}
