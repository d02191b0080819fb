package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

var (
	// ErrIndexing means the external service rejected or failed the indexing job.
	ErrIndexing = errors.New("external indexing failed")
	// ErrIndexingTimeout means the indexing job did not complete in time.
	ErrIndexingTimeout = errors.New("external indexing timed out")
)

// Indexer is the contract of the managed semantic-search service: create an
// index, feed it the source document, ask questions scoped to it.
type Indexer interface {
	CreateIndex(ctx context.Context, name string) (string, error)
	IndexFile(ctx context.Context, indexID, filename string, content []byte) error
	Ask(ctx context.Context, indexID, question string) (string, error)
}

// OpenAIIndexer drives OpenAI vector stores and the responses API with the
// file_search tool.
type OpenAIIndexer struct {
	baseURL     string
	apiKey      string
	model       string
	client      *http.Client
	pollEvery   time.Duration
	pollTimeout time.Duration
}

func NewOpenAIIndexer(baseURL, apiKey, model string) *OpenAIIndexer {
	return &OpenAIIndexer{
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		client:      &http.Client{Timeout: 60 * time.Second},
		pollEvery:   2 * time.Second,
		pollTimeout: 2 * time.Minute,
	}
}

func (o *OpenAIIndexer) CreateIndex(ctx context.Context, name string) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	err := o.postJSON(ctx, "/vector_stores", map[string]any{"name": name}, &out)
	if err != nil {
		return "", fmt.Errorf("create vector store: %w", err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: vector store response without id", ErrIndexing)
	}
	return out.ID, nil
}

// IndexFile uploads the document and waits for the vector store to finish
// chunking and embedding it.
func (o *OpenAIIndexer) IndexFile(ctx context.Context, indexID, filename string, content []byte) error {
	fileID, err := o.uploadFile(ctx, filename, content)
	if err != nil {
		return err
	}

	var attach struct {
		ID string `json:"id"`
	}
	err = o.postJSON(ctx, "/vector_stores/"+indexID+"/files", map[string]any{"file_id": fileID}, &attach)
	if err != nil {
		return fmt.Errorf("attach file to vector store: %w", err)
	}

	return o.waitIndexed(ctx, indexID, fileID)
}

func (o *OpenAIIndexer) waitIndexed(ctx context.Context, indexID, fileID string) error {
	deadline := time.Now().Add(o.pollTimeout)
	ticker := time.NewTicker(o.pollEvery)
	defer ticker.Stop()

	for {
		var status struct {
			Status    string `json:"status"`
			LastError *struct {
				Message string `json:"message"`
			} `json:"last_error"`
		}
		if err := o.getJSON(ctx, "/vector_stores/"+indexID+"/files/"+fileID, &status); err != nil {
			return err
		}

		switch status.Status {
		case "completed":
			return nil
		case "failed", "cancelled":
			detail := status.Status
			if status.LastError != nil {
				detail = status.LastError.Message
			}
			return fmt.Errorf("%w: %s", ErrIndexing, detail)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("%w: file %s still %q", ErrIndexingTimeout, fileID, status.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Ask runs the question against the indexed document through the responses
// API and returns the answer text. Citations are ignored on purpose: page
// references always come from the local ranker.
func (o *OpenAIIndexer) Ask(ctx context.Context, indexID, question string) (string, error) {
	req := map[string]any{
		"model": o.model,
		"input": question,
		"tools": []map[string]any{
			{"type": "file_search", "vector_store_ids": []string{indexID}},
		},
	}

	var out struct {
		Output []struct {
			Type    string `json:"type"`
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := o.postJSON(ctx, "/responses", req, &out); err != nil {
		return "", fmt.Errorf("file search query: %w", err)
	}

	for _, item := range out.Output {
		if item.Type != "message" {
			continue
		}
		for _, c := range item.Content {
			if c.Type == "output_text" && c.Text != "" {
				return c.Text, nil
			}
		}
	}
	return "", fmt.Errorf("%w: empty file search response", ErrIndexing)
}

func (o *OpenAIIndexer) uploadFile(ctx context.Context, filename string, content []byte) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(content); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/files", &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload file: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return out.ID, nil
}

func (o *OpenAIIndexer) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	return o.do(httpReq, out)
}

func (o *OpenAIIndexer) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path, nil)
	if err != nil {
		return err
	}
	return o.do(httpReq, out)
}

func (o *OpenAIIndexer) do(req *http.Request, out any) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("openai API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
