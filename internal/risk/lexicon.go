// Package risk scans notice text for compliance-sensitive terms and turns
// event classification plus detected terms into a numeric risk score.
package risk

import (
	"bufio"
	"os"
	"sort"
	"strings"
	"sync"
)

// defaultWords is the built-in danger-word set used when no dictionary
// file is configured or the configured file is missing.
var defaultWords = []string{
	"違約",
	"遅延",
	"損失",
	"減配",
	"法的措置",
	"重大",
}

// Lexicon is the danger-word dictionary. The word list is loaded once and
// cached; Reload re-reads the source so tests (and future file watchers)
// can swap the dictionary without a process restart.
type Lexicon struct {
	mu    sync.RWMutex
	path  string
	words []string
}

// NewLexicon loads the line-delimited dictionary at path. A missing or
// empty file degrades to the built-in default set rather than failing.
func NewLexicon(path string) *Lexicon {
	l := &Lexicon{path: path}
	l.Reload()
	return l
}

// Reload re-reads the dictionary from its source path.
func (l *Lexicon) Reload() {
	words := readWords(l.path)
	if len(words) == 0 {
		words = append([]string(nil), defaultWords...)
	}

	l.mu.Lock()
	l.words = words
	l.mu.Unlock()
}

// Words returns a copy of the current dictionary.
func (l *Lexicon) Words() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.words...)
}

// Contains reports whether term is a dictionary entry (case-insensitive).
func (l *Lexicon) Contains(term string) bool {
	lowered := strings.ToLower(term)
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, w := range l.words {
		if strings.ToLower(w) == lowered {
			return true
		}
	}
	return false
}

// Scan returns the dictionary entries found in text, matched by
// case-insensitive substring containment. The result is sorted and
// duplicate-free, so identical input always yields identical output.
func (l *Lexicon) Scan(text string) []string {
	lowered := strings.ToLower(text)

	l.mu.RLock()
	words := l.words
	l.mu.RUnlock()

	seen := make(map[string]struct{}, len(words))
	var hits []string
	for _, w := range words {
		if _, dup := seen[w]; dup {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(w)) {
			seen[w] = struct{}{}
			hits = append(hits, w)
		}
	}
	sort.Strings(hits)
	return hits
}

func readWords(path string) []string {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var words []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		w := strings.TrimSpace(sc.Text())
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}
