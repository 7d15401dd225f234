package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"doc-qa/internal/app"
	"doc-qa/internal/cache"
	"doc-qa/internal/httputil"
	"doc-qa/internal/llm"
	"doc-qa/internal/prompt"
	"doc-qa/internal/queue"
)

type answerRequest struct {
	Question string `json:"question" validate:"required,min=1,max=2000"`
}

// embedRequest always embeds the configured source; unknown fields such as
// a client-chosen path are rejected.
type embedRequest struct {
	SkipLines *int `json:"skip_lines" validate:"omitempty,min=0"`
}

func main() {
	deps, err := app.BuildServer()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Cache.Close()

	r := httputil.NewRouter(deps.Log, deps.Config.LLMTimeout+5*time.Second)
	r.Post("/api/answer", answerHandler(deps))
	r.Post("/api/embeddings", embedHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("qa service listening", "addr", addr, "source", deps.Config.SourcePath)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server error", "err", err)
	}
}

func answerHandler(deps app.ServerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		req.Question = strings.TrimSpace(req.Question)
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		ctx := r.Context()
		src := deps.Pipeline.Source()
		key := cache.Key(deps.Config.LLMModel, deps.Config.Subject, src.Path, src.SkipLines, req.Question)
		if cached, err := deps.Cache.GetAnswer(ctx, key); err == nil && cached != nil {
			deps.Log.Info("cache hit", "question", req.Question)
			httputil.WriteJSON(w, http.StatusOK, map[string]any{
				"question": req.Question,
				"answer":   cached.Answer,
				"cached":   true,
			})
			return
		}

		answer, err := deps.Pipeline.Ask(ctx, req.Question)
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, statusFor(err))
			return
		}

		ttl := time.Duration(deps.Config.CacheTTL) * time.Second
		if err := deps.Cache.SetAnswer(ctx, key, &cache.Answer{Question: req.Question, Answer: answer}, ttl); err != nil {
			deps.Log.Warn("failed to cache answer", "err", err)
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"question": req.Question,
			"answer":   answer,
			"cached":   false,
		})
	}
}

func embedHandler(deps app.ServerDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Queue == nil {
			http.Error(w, "embedding jobs are disabled", http.StatusServiceUnavailable)
			return
		}
		var req embedRequest
		if r.ContentLength != 0 {
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
				return
			}
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		payload := queue.EmbedPayload{Source: deps.Config.SourcePath, SkipLines: deps.Config.SkipLines}
		if req.SkipLines != nil {
			payload.SkipLines = *req.SkipLines
		}
		body, err := json.Marshal(payload)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to encode task", err, http.StatusInternalServerError)
			return
		}

		task := queue.Task{
			ID:          uuid.New(),
			Type:        queue.TaskTypeEmbed,
			Payload:     body,
			MaxAttempts: 5,
		}
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			httputil.Fail(deps.Log, w, "failed to enqueue embedding job", err, http.StatusServiceUnavailable)
			return
		}
		deps.Log.Info("embedding job enqueued", "task_id", task.ID, "source", payload.Source)
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"task_id":    task.ID.String(),
			"source":     payload.Source,
			"skip_lines": payload.SkipLines,
		})
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, prompt.ErrBudgetExceeded):
		return http.StatusBadRequest
	case errors.Is(err, llm.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
