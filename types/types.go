package types

import "time"

// PageRecord is one physical page of an ingested document. Page numbers are
// 1-based and contiguous; pages without extractable text keep an empty Text so
// numbering stays aligned with the source PDF.
type PageRecord struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// Document is the unit of storage and retrieval. It is created once at ingest
// time and never mutated; a re-upload produces a new DocID.
type Document struct {
	DocID     string       `json:"docId"`
	Filename  string       `json:"filename"`
	PageCount int          `json:"pageCount"`
	Pages     []PageRecord `json:"pages"`
	CreatedAt time.Time    `json:"createdAt"`
}

// RankedPage is a PageRecord scored against a question. Produced per query,
// never persisted.
type RankedPage struct {
	PageRecord
	Score float64
}

// Citation points the UI at a page, with a short preview. Citations are always
// computed from the local ranking, whatever tier produced the answer prose.
type Citation struct {
	Page    int    `json:"page"`
	Preview string `json:"preview"`
}
