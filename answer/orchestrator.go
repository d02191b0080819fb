// Package answer composes the answering pipeline: rank pages for citations,
// then walk an ordered list of answering tiers until one produces prose.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docchat/rank"
	"docchat/store"
	"docchat/types"
)

// ErrEmptyDocument means the persisted record loaded fine but holds no pages.
var ErrEmptyDocument = errors.New("no pages found in document")

// ExtractiveClipChars bounds each bullet of the extractive fallback.
const ExtractiveClipChars = 240

// Query carries everything a tier needs to produce an answer.
type Query struct {
	DocID    string
	Question string
	Doc      types.Document
	Top      []types.RankedPage
}

// Tier is one named answering strategy. The fallback policy is the order of
// the slice, not control flow, so tiers can be added or reordered in one
// place.
type Tier struct {
	Name string
	Run  func(ctx context.Context, q Query) (string, error)
}

type Orchestrator struct {
	store       store.DocStorer
	tiers       []Tier
	topK        int
	tierTimeout time.Duration
	logger      *slog.Logger
}

func NewOrchestrator(docs store.DocStorer, tiers []Tier, topK int, tierTimeout time.Duration) *Orchestrator {
	// The extractive tail guarantees every loaded document gets an answer.
	tiers = append(tiers, Tier{
		Name: "extractive",
		Run: func(ctx context.Context, q Query) (string, error) {
			return Extractive(q.Top), nil
		},
	})

	return &Orchestrator{
		store:       docs,
		tiers:       tiers,
		topK:        topK,
		tierTimeout: tierTimeout,
		logger:      slog.Default(),
	}
}

// Answer loads the document, computes citations from the local ranking, and
// walks the tiers. Tier errors are logged and absorbed; once a document is
// loaded the caller always gets an answer.
func (o *Orchestrator) Answer(ctx context.Context, docID, question string) (types.AskResponse, error) {
	doc, err := o.store.Load(ctx, docID)
	if err != nil {
		return types.AskResponse{}, err
	}
	if len(doc.Pages) == 0 {
		return types.AskResponse{}, fmt.Errorf("%w: %s", ErrEmptyDocument, docID)
	}

	top := rank.Pages(doc.Pages, question, o.topK)
	citations := rank.Citations(top)

	q := Query{DocID: docID, Question: question, Doc: doc, Top: top}

	for _, tier := range o.tiers {
		tierCtx, cancel := context.WithTimeout(ctx, o.tierTimeout)
		text, err := tier.Run(tierCtx, q)
		cancel()

		if err != nil {
			o.logger.Warn("answer tier failed, falling through",
				"tier", tier.Name, "docId", docID, "error", err)
			continue
		}

		o.logger.Info("answered", "tier", tier.Name, "docId", docID)
		return types.AskResponse{Answer: text, Citations: citations}, nil
	}

	// Unreachable while the extractive tail is in place; kept so a bad tier
	// configuration still fails loudly instead of returning garbage.
	return types.AskResponse{}, errors.New("no answering tier succeeded")
}

// Extractive deterministically synthesizes an answer from the ranked pages.
// It never fails.
func Extractive(top []types.RankedPage) string {
	if len(top) == 0 {
		return "Sorry, I could not find relevant content in the document."
	}

	var sb strings.Builder
	sb.WriteString("Based on the document:\n")
	for i, p := range top {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("• [p%d] %s", p.Page, rank.Clip(p.Text, ExtractiveClipChars)))
	}
	sb.WriteString("\n\n(LLM unavailable; extractive result.)")
	return sb.String()
}
