package qa

import (
	"context"
	"errors"
	"fmt"

	"doc-qa/internal/llm"
	"doc-qa/internal/prompt"
)

// answerTemperature keeps answers deterministic.
const answerTemperature = 0

// Service answers questions over a caller-supplied context.
type Service struct {
	llm        llm.Client
	assembler  *prompt.Assembler
	systemRole string
}

func NewService(client llm.Client, assembler *prompt.Assembler, systemRole string) *Service {
	return &Service{llm: client, assembler: assembler, systemRole: systemRole}
}

// Answer builds the prompt for question over contextText and returns the
// first completion unmodified. The context must already fit the budget;
// otherwise the *prompt.BudgetExceededError is returned and nothing is sent.
func (s *Service) Answer(ctx context.Context, question, contextText string) (string, error) {
	p, err := s.assembler.Build(question, contextText)
	if err != nil {
		return "", err
	}
	answer, err := s.llm.Complete(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: s.systemRole},
		{Role: llm.RoleUser, Content: p},
	}, answerTemperature)
	if err != nil {
		if !errors.Is(err, llm.ErrUpstream) {
			err = fmt.Errorf("%w: %w", llm.ErrUpstream, err)
		}
		return "", err
	}
	return answer, nil
}
