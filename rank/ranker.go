// Package rank scores document pages against a question with a smoothed
// TF-IDF weighting. Ranking is a pure function of its inputs, so citations
// stay deterministic whatever answering backend produced the prose.
package rank

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"docchat/types"
)

// Tokenize lower-cases the text, turns every non letter/digit rune into a
// whitespace boundary and splits, dropping empties.
func Tokenize(s string) []string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Fields(mapped)
}

// Pages ranks pages by relevance to the question and returns the top k.
// Only question tokens are scored, which bounds the work to
// O(pages x question length). Ties keep original page order.
func Pages(pages []types.PageRecord, question string, k int) []types.RankedPage {
	qTokens := Tokenize(question)
	n := len(pages)

	pageTokens := make([][]string, n)
	for i, p := range pages {
		pageTokens[i] = Tokenize(p.Text)
	}

	// df[t] = number of pages whose deduplicated token set contains t,
	// restricted to the question vocabulary.
	df := make(map[string]int, len(qTokens))
	for i := range pages {
		seen := make(map[string]struct{}, len(pageTokens[i]))
		for _, t := range pageTokens[i] {
			seen[t] = struct{}{}
		}
		for _, t := range qTokens {
			if _, ok := seen[t]; ok {
				df[t]++
			}
		}
	}

	ranked := make([]types.RankedPage, n)
	for i, p := range pages {
		tf := make(map[string]int, len(pageTokens[i]))
		for _, t := range pageTokens[i] {
			tf[t]++
		}

		score := 0.0
		for _, t := range qTokens {
			// Additive smoothing keeps weights positive and defined even for
			// terms absent from every page.
			idf := math.Log(float64(n+1)/float64(df[t]+1)) + 1
			score += float64(tf[t]) * idf
		}

		ranked[i] = types.RankedPage{PageRecord: p, Score: score}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if k < 0 {
		k = 0
	}
	if k > len(ranked) {
		k = len(ranked)
	}
	return ranked[:k]
}

// Clip truncates s to at most n runes, marking the cut with an ellipsis.
func Clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + " …"
}

// Citations derives page citations from ranked pages. The preview budget is
// fixed so the UI chips render uniformly.
const PreviewChars = 160

func Citations(ranked []types.RankedPage) []types.Citation {
	citations := make([]types.Citation, len(ranked))
	for i, p := range ranked {
		citations[i] = types.Citation{Page: p.Page, Preview: Clip(p.Text, PreviewChars)}
	}
	return citations
}
