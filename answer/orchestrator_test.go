package answer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/store"
	"docchat/types"
)

type fakeDocStore struct {
	docs map[string]types.Document
	pdfs map[string][]byte
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{
		docs: make(map[string]types.Document),
		pdfs: make(map[string][]byte),
	}
}

func (s *fakeDocStore) Save(ctx context.Context, doc types.Document, pdf []byte) error {
	s.docs[doc.DocID] = doc
	s.pdfs[doc.DocID] = pdf
	return nil
}

func (s *fakeDocStore) Load(ctx context.Context, docID string) (types.Document, error) {
	doc, ok := s.docs[docID]
	if !ok {
		return types.Document{}, store.ErrNotFound
	}
	return doc, nil
}

func (s *fakeDocStore) PDF(ctx context.Context, docID string) ([]byte, error) {
	pdf, ok := s.pdfs[docID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return pdf, nil
}

func (s *fakeDocStore) Stat(ctx context.Context, docID string) (bool, string) {
	_, ok := s.docs[docID]
	return ok, "memory/" + docID
}

func seedDoc(t *testing.T, docs *fakeDocStore, texts ...string) string {
	t.Helper()
	pages := make([]types.PageRecord, len(texts))
	for i, text := range texts {
		pages[i] = types.PageRecord{Page: i + 1, Text: text}
	}
	doc := types.Document{
		DocID:     "doc-1",
		Filename:  "report.pdf",
		PageCount: len(pages),
		Pages:     pages,
	}
	require.NoError(t, docs.Save(context.Background(), doc, []byte("pdf")))
	return doc.DocID
}

func failingTier(name string) Tier {
	return Tier{
		Name: name,
		Run: func(ctx context.Context, q Query) (string, error) {
			return "", errors.New(name + " unavailable")
		},
	}
}

func staticTier(name, text string) Tier {
	return Tier{
		Name: name,
		Run: func(ctx context.Context, q Query) (string, error) {
			return text, nil
		},
	}
}

func Test_Answer_ExtractiveFallbackFires(t *testing.T) {
	docs := newFakeDocStore()
	docID := seedDoc(t, docs, "Alpha budget 2024", "Beta results", "Alpha beta conclusion")

	// No external tiers configured at all.
	o := NewOrchestrator(docs, nil, 3, time.Second)

	resp, err := o.Answer(context.Background(), docID, "What is the budget?")
	require.NoError(t, err)

	assert.Contains(t, resp.Answer, "Based on the document:")
	assert.Contains(t, resp.Answer, "[p1]")
	assert.Contains(t, resp.Answer, "Alpha budget 2024")

	require.NotEmpty(t, resp.Citations)
	assert.Equal(t, 1, resp.Citations[0].Page)
	assert.Equal(t, "Alpha budget 2024", resp.Citations[0].Preview)
}

func Test_Answer_NeverFailsForLoadedDoc(t *testing.T) {
	docs := newFakeDocStore()
	docID := seedDoc(t, docs, "page one", "page two")

	// Both configured tiers are unreachable.
	o := NewOrchestrator(docs, []Tier{
		failingTier("file-search"),
		failingTier("completion"),
	}, 3, time.Second)

	resp, err := o.Answer(context.Background(), docID, "anything at all")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Answer)
	assert.Len(t, resp.Citations, 2)
}

func Test_Answer_FallsThroughToNextTier(t *testing.T) {
	docs := newFakeDocStore()
	docID := seedDoc(t, docs, "Alpha budget 2024", "Beta results")

	o := NewOrchestrator(docs, []Tier{
		failingTier("file-search"),
		staticTier("completion", "The 2024 budget is for Alpha [p1]."),
	}, 3, time.Second)

	resp, err := o.Answer(context.Background(), docID, "What is the budget?")
	require.NoError(t, err)

	// Tier B's prose, local citations.
	assert.Equal(t, "The 2024 budget is for Alpha [p1].", resp.Answer)
	require.NotEmpty(t, resp.Citations)
	assert.Equal(t, 1, resp.Citations[0].Page)
	assert.Equal(t, "Alpha budget 2024", resp.Citations[0].Preview)
}

func Test_Answer_FirstTierWins(t *testing.T) {
	docs := newFakeDocStore()
	docID := seedDoc(t, docs, "some content")

	o := NewOrchestrator(docs, []Tier{
		staticTier("file-search", "answer from file search"),
		staticTier("completion", "answer from completion"),
	}, 3, time.Second)

	resp, err := o.Answer(context.Background(), docID, "question")
	require.NoError(t, err)
	assert.Equal(t, "answer from file search", resp.Answer)
}

func Test_Answer_UnknownDoc(t *testing.T) {
	o := NewOrchestrator(newFakeDocStore(), nil, 3, time.Second)

	_, err := o.Answer(context.Background(), "never-uploaded", "question")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func Test_Answer_EmptyDoc(t *testing.T) {
	docs := newFakeDocStore()
	require.NoError(t, docs.Save(context.Background(), types.Document{DocID: "empty"}, nil))

	o := NewOrchestrator(docs, nil, 3, time.Second)

	_, err := o.Answer(context.Background(), "empty", "question")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func Test_Answer_StalledTierDoesNotBlockFallback(t *testing.T) {
	docs := newFakeDocStore()
	docID := seedDoc(t, docs, "content")

	stalled := Tier{
		Name: "stalled",
		Run: func(ctx context.Context, q Query) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		},
	}

	o := NewOrchestrator(docs, []Tier{stalled}, 3, 50*time.Millisecond)

	start := time.Now()
	resp, err := o.Answer(context.Background(), docID, "question")
	require.NoError(t, err)
	assert.Contains(t, resp.Answer, "Based on the document:")
	assert.Less(t, time.Since(start), time.Second)
}

func Test_Extractive(t *testing.T) {
	assert.Equal(t, "Sorry, I could not find relevant content in the document.", Extractive(nil))

	top := []types.RankedPage{
		{PageRecord: types.PageRecord{Page: 3, Text: "third page text"}, Score: 2},
		{PageRecord: types.PageRecord{Page: 1, Text: "first page text"}, Score: 1},
	}
	got := Extractive(top)
	assert.Contains(t, got, "• [p3] third page text")
	assert.Contains(t, got, "• [p1] first page text")
	assert.Contains(t, got, "(LLM unavailable; extractive result.)")
}
