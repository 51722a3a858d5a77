package swarm

import (
	"regexp"
	"strings"
)

// similarityThreshold is the word-set Jaccard similarity at or above which two
// what_it_is descriptions count as near-duplicates, provided the ideas also
// target the same normalized customer.
const similarityThreshold = 0.72

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalize lower-cases and collapses all non-alphanumeric runs to single
// spaces.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(normalize(s)) {
		set[w] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

type dedupeKey struct {
	name           string
	targetCustomer string
}

// Dedupe removes near-duplicate ideas, order-preserving, first-occurrence-
// wins. An idea is rejected when its normalized (name, target_customer) pair
// was already kept, or when its what_it_is word set is Jaccard-similar
// (>= 0.72) to a kept idea with the same normalized target customer.
// Similarity alone is not enough: requiring equal target customer avoids
// false positives between, say, B2B and B2C variants of similar wording.
// O(kept^2) comparisons; candidate sets are tens of ideas, not thousands.
func Dedupe(ideas []Idea) []Idea {
	kept := make([]Idea, 0, len(ideas))
	seen := make(map[dedupeKey]struct{})

	for _, idea := range ideas {
		key := dedupeKey{normalize(idea.Name), normalize(idea.TargetCustomer)}
		if _, dup := seen[key]; dup {
			continue
		}

		words := wordSet(idea.WhatItIs)
		tooClose := false
		for _, k := range kept {
			if jaccard(words, wordSet(k.WhatItIs)) >= similarityThreshold &&
				normalize(idea.TargetCustomer) == normalize(k.TargetCustomer) {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		seen[key] = struct{}{}
		kept = append(kept, idea)
	}

	return kept
}
