// Package retrieval ranks structured report sections against a question by
// keyword overlap. This is deliberately lexical: no embeddings, no semantic
// search. Callers must not assume relevance beyond word overlap.
package retrieval

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linnemanlabs/scribe/internal/notice"
)

const (
	topN        = 3
	minWordLen  = 3
	noKeywordsN = 2
)

// Rank returns up to three sections ordered by how many question keywords
// appear in their serialized text. Keywords are lower-cased whitespace
// tokens longer than 2 characters. With no extractable keywords the first
// two sections come back unmodified; when nothing scores, the first
// section is returned so the composer never sees zero evidence while
// sections exist.
func Rank(question string, sections []notice.Section) []notice.Section {
	if len(sections) == 0 {
		return nil
	}

	keywords := extractKeywords(question)
	if len(keywords) == 0 {
		return head(sections, noKeywordsN)
	}

	type scored struct {
		score   int
		section notice.Section
	}
	var ranked []scored
	for _, s := range sections {
		text := strings.ToLower(serialize(s))
		score := 0
		for kw := range keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{score: score, section: s})
		}
	}
	if len(ranked) == 0 {
		return head(sections, 1)
	}

	// stable: ties keep original section order
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	out := make([]notice.Section, 0, topN)
	for _, r := range ranked {
		out = append(out, r.section)
		if len(out) == topN {
			break
		}
	}
	return out
}

func extractKeywords(question string) map[string]struct{} {
	keywords := make(map[string]struct{})
	for _, tok := range strings.Fields(question) {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if len([]rune(tok)) >= minWordLen {
			keywords[tok] = struct{}{}
		}
	}
	return keywords
}

func serialize(s notice.Section) string {
	return fmt.Sprintf("%s %s %d %s", s.ID, s.Title, s.Page, s.Text)
}

func head(sections []notice.Section, n int) []notice.Section {
	if len(sections) < n {
		n = len(sections)
	}
	return sections[:n]
}
