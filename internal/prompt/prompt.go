package prompt

import (
	"errors"
	"fmt"
	"strings"

	"doc-qa/internal/tokenizer"
)

const (
	// DefaultBudget is the default token limit for an assembled prompt.
	DefaultBudget = 2048
	// DefaultSectionLabel introduces the context block.
	DefaultSectionLabel = "Wikipedia article section"
)

// ErrBudgetExceeded matches every *BudgetExceededError.
var ErrBudgetExceeded = errors.New("prompt exceeds token budget")

// BudgetExceededError reports an assembled prompt that does not fit its budget.
type BudgetExceededError struct {
	Tokens int
	Budget int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("prompt has %d tokens, budget is %d", e.Tokens, e.Budget)
}

func (e *BudgetExceededError) Is(target error) bool { return target == ErrBudgetExceeded }

// Header is the instruction placed ahead of the context for questions about subject.
func Header(subject string) string {
	return "Use the provided context to answer the question as truthfully as possible and if the answer is not " +
		`contained within the text below, say "I could not find an answer. It seems not a question about ` + subject + `."`
}

// SystemRole describes the assistant for questions about subject.
func SystemRole(subject string) string {
	return "You answer questions about " + subject + "."
}

// Assembler builds bounded prompts from a header, a context chunk and a question.
type Assembler struct {
	header  string
	label   string
	budget  int
	counter tokenizer.Counter
}

// NewAssembler returns an Assembler. A non-positive budget uses DefaultBudget.
func NewAssembler(header string, budget int, counter tokenizer.Counter) *Assembler {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Assembler{header: header, label: DefaultSectionLabel, budget: budget, counter: counter}
}

// WithSectionLabel sets the label placed above the context block.
// An empty label keeps the current one.
func (a *Assembler) WithSectionLabel(label string) *Assembler {
	if label != "" {
		a.label = label
	}
	return a
}

// Budget returns the token limit prompts are checked against.
func (a *Assembler) Budget() int { return a.budget }

// Build assembles the prompt for question over context. It does not shrink
// the context; a prompt over budget is a *BudgetExceededError.
func (a *Assembler) Build(question, context string) (string, error) {
	var b strings.Builder
	b.WriteString(a.header)
	b.WriteString("\n\n")
	b.WriteString(a.label)
	b.WriteString(":\n\"\"\"\n")
	b.WriteString(context)
	b.WriteString("\n\"\"\"")
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	p := b.String()

	if n := a.counter.Count(p); n > a.budget {
		return "", &BudgetExceededError{Tokens: n, Budget: a.budget}
	}
	return p, nil
}
