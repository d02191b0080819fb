package extract

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docchat/types"
)

// ErrInvalidPDF marks input that is not a parseable PDF. Callers match it with
// errors.Is and report ingest failure without persisting anything.
var ErrInvalidPDF = errors.New("not a parseable PDF")

// Pages converts raw PDF bytes into one PageRecord per physical page,
// numbered 1..N in document order. Pages with no extractable text yield an
// empty string so numbering stays contiguous for citations.
func Pages(data []byte) ([]types.PageRecord, error) {
	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if pageCount < 0 {
		pageCount = 0
	}

	pages := make([]types.PageRecord, 0, pageCount)

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		// pdfcpu accepted the file; keep the page skeleton so the document is
		// still addressable, just without text.
		slog.Warn("text extraction unavailable, keeping empty pages", "error", err)
		for i := 1; i <= pageCount; i++ {
			pages = append(pages, types.PageRecord{Page: i, Text: ""})
		}
		return pages, nil
	}

	for i := 1; i <= pageCount; i++ {
		text := ""
		if i <= reader.NumPage() {
			text = pageText(reader.Page(i), i)
		}
		pages = append(pages, types.PageRecord{Page: i, Text: normalize(text)})
	}

	return pages, nil
}

// pageText extracts the plain text of a single page. GetPlainText panics on
// some malformed content streams, so the recover keeps a single bad page from
// taking down the whole ingest.
func pageText(p pdf.Page, num int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("page text extraction panicked", "page", num, "panic", r)
			text = ""
		}
	}()

	if p.V.IsNull() {
		return ""
	}

	text, err := p.GetPlainText(nil)
	if err != nil {
		slog.Warn("page text extraction failed", "page", num, "error", err)
		return ""
	}
	return text
}

// normalize collapses whitespace runs to single spaces and trims the ends.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
