// Package agent builds the contextual-completion answer: ranked pages go into
// the prompt, the model is asked to answer strictly from them with [pN]
// citation markers.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"docchat/model"
	"docchat/rank"
	"docchat/types"
)

const systemPrompt = "Answer strictly from the provided pages. Add inline [pX] citations next to claims."

// Low temperature keeps repeated questions close to deterministic.
const temperature = 0.2

type Agent struct {
	completer  model.Completer
	charBudget int
	logger     *slog.Logger
}

func New(completer model.Completer, charBudget int) *Agent {
	return &Agent{
		completer:  completer,
		charBudget: charBudget,
		logger:     slog.Default(),
	}
}

// GenerateAnswer asks the completion service to answer the question from the
// ranked pages.
func (a *Agent) GenerateAnswer(ctx context.Context, question string, pages []types.RankedPage) (string, error) {
	start := time.Now()

	prompt := BuildPrompt(question, pages, a.charBudget)
	if count, err := CountTokens(prompt); err == nil {
		a.logger.Info("completion prompt built", "tokens", count, "chars", len(prompt))
	}

	answer, err := a.completer.Complete(ctx, systemPrompt, prompt, temperature)
	if err != nil {
		return "", err
	}

	a.logger.Info("completion answered", "took", time.Since(start))
	return strings.TrimSpace(answer), nil
}

// BuildPrompt lays out the question and the top pages, each clipped to the
// character budget so one dense page cannot crowd out the rest.
func BuildPrompt(question string, pages []types.RankedPage, charBudget int) string {
	sources := make([]string, len(pages))
	for i, p := range pages {
		sources[i] = fmt.Sprintf("Page %d:\n\"\"\"%s\"\"\"", p.Page, rank.Clip(p.Text, charBudget))
	}

	return fmt.Sprintf("Question: %s\n\nRelevant pages:\n%s\n\nWrite a clear answer with inline [pX] citations.",
		question, strings.Join(sources, "\n\n"))
}

func CountTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-4o-mini")
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}
