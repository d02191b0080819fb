package answer

import (
	"context"
	"fmt"

	"docchat/app/agent"
	"docchat/index"
	"docchat/store"
)

// SearchTier answers through the managed semantic index: ensure the document
// is indexed externally, then ask the question scoped to that index. Only the
// answer text is used; citations stay local.
func SearchTier(docs store.DocStorer, registry *index.Registry) Tier {
	return Tier{
		Name: "file-search",
		Run: func(ctx context.Context, q Query) (string, error) {
			pdf, err := docs.PDF(ctx, q.DocID)
			if err != nil {
				return "", fmt.Errorf("load source pdf: %w", err)
			}

			indexID, err := registry.EnsureIndex(ctx, q.DocID, q.Doc.Filename, pdf)
			if err != nil {
				return "", err
			}
			return registry.Ask(ctx, indexID, q.Question)
		},
	}
}

// CompletionTier answers with a contextual completion over the ranked pages.
func CompletionTier(ag *agent.Agent) Tier {
	return Tier{
		Name: "completion",
		Run: func(ctx context.Context, q Query) (string, error) {
			return ag.GenerateAnswer(ctx, q.Question, q.Top)
		},
	}
}
