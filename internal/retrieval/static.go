package retrieval

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
)

// Entry is one question/answer pair of a static knowledge base.
type Entry struct {
	Question string   `yaml:"question"`
	Answer   string   `yaml:"answer"`
	Keywords []string `yaml:"keywords"`
}

type knowledgeFile struct {
	Entries []Entry `yaml:"entries"`
}

// StaticRetriever ranks an in-memory knowledge base by word overlap. It
// stands in for the vector-store service in local development and tests.
type StaticRetriever struct {
	entries []Entry
	tokens  []map[string]struct{}
}

func NewStaticRetriever(entries []Entry) *StaticRetriever {
	s := &StaticRetriever{entries: entries, tokens: make([]map[string]struct{}, len(entries))}
	for i, e := range entries {
		set := make(map[string]struct{})
		for _, w := range tokenize(e.Question + " " + strings.Join(e.Keywords, " ")) {
			set[w] = struct{}{}
		}
		s.tokens[i] = set
	}
	return s
}

// LoadStaticRetriever reads a YAML knowledge base of the form
//
//	entries:
//	  - question: ...
//	    answer: ...
//	    keywords: [...]
func LoadStaticRetriever(path string) (*StaticRetriever, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("knowledge file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	var kf knowledgeFile
	if err := yaml.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("unmarshal knowledge file: %w", err)
	}
	for i, e := range kf.Entries {
		if strings.TrimSpace(e.Question) == "" || strings.TrimSpace(e.Answer) == "" {
			return nil, fmt.Errorf("knowledge entry %d needs both question and answer", i)
		}
	}
	return NewStaticRetriever(kf.Entries), nil
}

// Len returns the number of loaded entries.
func (s *StaticRetriever) Len() int {
	return len(s.entries)
}

// Retrieve implements Retriever.
func (s *StaticRetriever) Retrieve(ctx context.Context, queries []string, nResults int) ([][]chat.EvidenceItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]chat.EvidenceItem, len(queries))
	for i, q := range queries {
		out[i] = s.search(q, nResults)
	}
	return out, nil
}

type scored struct {
	idx   int
	score int
}

func (s *StaticRetriever) search(query string, n int) []chat.EvidenceItem {
	words := tokenize(query)
	var hits []scored
	for i, set := range s.tokens {
		score := 0
		for _, w := range words {
			if _, ok := set[w]; ok {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{idx: i, score: score})
		}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].score > hits[b].score })
	if n > 0 && len(hits) > n {
		hits = hits[:n]
	}

	items := make([]chat.EvidenceItem, len(hits))
	for i, h := range hits {
		e := s.entries[h.idx]
		items[i] = chat.EvidenceItem{Question: e.Question, Answer: e.Answer}
	}
	return items
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

var _ Retriever = (*StaticRetriever)(nil)
var _ Retriever = (*Client)(nil)
