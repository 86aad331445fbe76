package importer

// matcher.go classifies candidates as duplicates of existing contacts.
//
// Detection is a sequential filter pipeline: an explicit ordered list
// of passes, each seeing only the rows no earlier pass matched. Pass
// order (exact email, exact name, fuzzy name) and the output ordering
// are observable contracts the preview UI relies on.

import (
	"sort"
	"strings"
	"unicode"
)

const (
	// fuzzyMatchThreshold is the minimum similarity for a fuzzy name
	// match; highConfidenceThreshold splits high from medium.
	fuzzyMatchThreshold     = 0.8
	highConfidenceThreshold = 0.9

	// minFuzzyNameLen keeps trivially short names out of the fuzzy
	// pass, measured on the compact (space-stripped) normalized form.
	minFuzzyNameLen = 3
)

// matchPass is one detection strategy. find returns the matched
// existing record's ID and the confidence grade, or ok=false when the
// candidate survives the pass.
type matchPass struct {
	matchType MatchType
	find      func(c CandidateRecord, existing []ExistingRecord) (string, Confidence, bool)
}

var matchPasses = []matchPass{
	{MatchEmail, findByExactEmail},
	{MatchName, findByExactName},
	{MatchFuzzyName, findByFuzzyName},
}

// Detect runs the ordered passes over the candidates against a
// snapshot of existing records and returns at most one match per row,
// first pass wins. Matches are appended pass-major, candidate order
// within a pass. The snapshot is sorted by ID internally so fuzzy
// tie-breaks do not depend on store iteration order.
func Detect(candidates []CandidateRecord, existing []ExistingRecord) []DuplicateMatch {
	sorted := make([]ExistingRecord, len(existing))
	copy(sorted, existing)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	matched := make(map[int]bool, len(candidates))
	var matches []DuplicateMatch

	for _, pass := range matchPasses {
		for _, c := range candidates {
			if matched[c.RowNumber] {
				continue
			}
			id, confidence, ok := pass.find(c, sorted)
			if !ok {
				continue
			}
			matched[c.RowNumber] = true
			matches = append(matches, DuplicateMatch{
				Candidate:  c,
				ExistingID: id,
				MatchType:  pass.matchType,
				Confidence: confidence,
			})
		}
	}

	return matches
}

func findByExactEmail(c CandidateRecord, existing []ExistingRecord) (string, Confidence, bool) {
	email := normalizeEmail(c.Email)
	if email == "" {
		return "", "", false
	}
	for _, ex := range existing {
		if normalizeEmail(ex.Email) == email {
			return ex.ID, ConfidenceExact, true
		}
	}
	return "", "", false
}

func findByExactName(c CandidateRecord, existing []ExistingRecord) (string, Confidence, bool) {
	name := normalizeName(c.FullName)
	if name == "" {
		return "", "", false
	}
	for _, ex := range existing {
		if normalizeName(ex.FullName) == name {
			return ex.ID, ConfidenceExact, true
		}
	}
	return "", "", false
}

// findByFuzzyName picks the existing record with the strictly highest
// similarity at or above the threshold. On equal scores the record
// encountered first in the ID-sorted snapshot keeps the match; a
// later equal score never displaces it.
func findByFuzzyName(c CandidateRecord, existing []ExistingRecord) (string, Confidence, bool) {
	name := normalizeName(c.FullName)
	if len(stripSpaces(name)) < minFuzzyNameLen {
		return "", "", false
	}

	bestID := ""
	bestScore := 0.0
	for _, ex := range existing {
		exName := normalizeName(ex.FullName)
		if exName == "" {
			continue
		}
		score := nameSimilarity(name, exName)
		if score >= fuzzyMatchThreshold && score > bestScore {
			bestScore = score
			bestID = ex.ID
		}
	}
	if bestID == "" {
		return "", "", false
	}

	confidence := ConfidenceMedium
	if bestScore >= highConfidenceThreshold {
		confidence = ConfidenceHigh
	}
	return bestID, confidence, true
}

// nameSimilarity scores two normalized names in [0, 1]. If either
// compact form contains the other, the score is the length ratio of
// the compact forms (so "john smith" inside "john smith jr" scores
// 9/11, clearing the threshold a spaced ratio would miss). Otherwise
// the score is the fraction of the larger token set present in the
// smaller one.
func nameSimilarity(a, b string) float64 {
	ca, cb := stripSpaces(a), stripSpaces(b)
	if ca == "" || cb == "" {
		return 0
	}

	if strings.Contains(ca, cb) || strings.Contains(cb, ca) {
		shorter, longer := len(ca), len(cb)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer)
	}

	larger, smaller := tokenSet(a), tokenSet(b)
	if len(larger) < len(smaller) {
		larger, smaller = smaller, larger
	}
	if len(larger) == 0 {
		return 0
	}
	common := 0
	for token := range larger {
		if smaller[token] {
			common++
		}
	}
	return float64(common) / float64(len(larger))
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, token := range strings.Fields(s) {
		set[token] = true
	}
	return set
}

// normalizeName lowercases, drops punctuation, and collapses runs of
// whitespace to single spaces.
func normalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func stripSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
