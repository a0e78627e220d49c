package condense

import "github.com/MikeSquared-Agency/kbchat/internal/chat"

// Dedupe flattens per-query result sets and keeps the first occurrence of
// each (question, answer) pair.
func Dedupe(results [][]chat.EvidenceItem) []chat.EvidenceItem {
	seen := make(map[chat.EvidenceItem]struct{})
	var out []chat.EvidenceItem
	for _, set := range results {
		for _, item := range set {
			if _, ok := seen[item]; ok {
				continue
			}
			seen[item] = struct{}{}
			out = append(out, item)
		}
	}
	return out
}

// Group collects questions under their answer. Entries are ordered by the
// first appearance of each answer.
func Group(items []chat.EvidenceItem) []chat.GroupedEvidence {
	index := make(map[string]int)
	var out []chat.GroupedEvidence
	for _, item := range items {
		i, ok := index[item.Answer]
		if !ok {
			i = len(out)
			index[item.Answer] = i
			out = append(out, chat.GroupedEvidence{Answer: item.Answer})
		}
		out[i].Questions = append(out[i].Questions, item.Question)
	}
	return out
}

// DedupeAndGroup is Group(Dedupe(results)).
func DedupeAndGroup(results [][]chat.EvidenceItem) []chat.GroupedEvidence {
	return Group(Dedupe(results))
}
