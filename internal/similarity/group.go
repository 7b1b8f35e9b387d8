package similarity

import (
	"strings"

	"go.uber.org/zap"
)

// GroupByAnchor clusters vector indices by single-link-to-anchor similarity:
// the first ungrouped index anchors a group containing every later ungrouped
// index whose cosine similarity to the anchor meets the threshold. Indices
// with zero vectors (degraded embeddings) form singleton groups — a missing
// embedding must never cause a merge.
func GroupByAnchor(vectors [][]float32, threshold float64) [][]int {
	grouped := make([]bool, len(vectors))
	var groups [][]int

	for i := range vectors {
		if grouped[i] {
			continue
		}
		group := []int{i}
		grouped[i] = true

		if !IsZero(vectors[i]) {
			for j := i + 1; j < len(vectors); j++ {
				if grouped[j] || IsZero(vectors[j]) {
					continue
				}
				if Cosine(vectors[i], vectors[j]) >= threshold {
					group = append(group, j)
					grouped[j] = true
				}
			}
		}
		groups = append(groups, group)
	}
	return groups
}

// fallbackJaccardThreshold is the character-set similarity above which two
// titles are treated as duplicates when embeddings are unavailable.
const fallbackJaccardThreshold = 0.8

// GroupByFingerprint is the degraded dedup path used when the embedding
// engine is unavailable: texts collide when their normalized fingerprints
// match or their character-set Jaccard similarity exceeds 0.8.
func GroupByFingerprint(texts []string) [][]int {
	grouped := make([]bool, len(texts))
	prints := make([]string, len(texts))
	for i, t := range texts {
		prints[i] = Fingerprint(t)
	}

	var groups [][]int
	for i := range texts {
		if grouped[i] {
			continue
		}
		group := []int{i}
		grouped[i] = true

		for j := i + 1; j < len(texts); j++ {
			if grouped[j] {
				continue
			}
			if prints[i] == prints[j] || charJaccard(texts[i], texts[j]) > fallbackJaccardThreshold {
				group = append(group, j)
				grouped[j] = true
			}
		}
		groups = append(groups, group)
	}

	if removed := len(texts) - len(groups); removed > 0 {
		zap.L().Info("similarity: fingerprint fallback grouped duplicates",
			zap.Int("texts", len(texts)),
			zap.Int("groups", len(groups)),
		)
	}
	return groups
}

// charJaccard computes Jaccard similarity over the rune sets of a and b.
func charJaccard(a, b string) float64 {
	setA := runeSet(a)
	setB := runeSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for r := range setA {
		if _, ok := setB[r]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func runeSet(s string) map[rune]struct{} {
	set := make(map[rune]struct{})
	for _, r := range strings.ToLower(s) {
		set[r] = struct{}{}
	}
	return set
}
