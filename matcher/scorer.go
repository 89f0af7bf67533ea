package matcher

import (
	"sort"
	"strings"
	"unicode"

	"valuescout/models"
)

// Score rates how well a listing title matches the query. It has no side effects.
func Score(query string, c models.CandidateListing, rules Rules, mode Mode) models.ScoredCandidate {
	sc := models.ScoredCandidate{CandidateListing: c}

	title := strings.ToLower(c.Title)
	titleWords := wordString(title)

	// whole words only, so "replacement" does not hit "lace"
	if hasAnyWord(titleWords, rules.ExclusionTerms) {
		sc.Excluded = true
		return sc
	}

	q := strings.ToLower(strings.TrimSpace(query))
	queryWords := wordString(q)

	score := 0
	for _, token := range strings.Fields(q) {
		if len([]rune(token)) > 2 && strings.Contains(title, token) {
			score += rules.KeywordWeight
		}
	}

	if q != "" && strings.Contains(titleWords, queryWords) {
		score += rules.PhraseBonus
	}

	for _, term := range rules.CategoryTerms {
		if strings.Contains(title, term) {
			score += rules.CategoryBonus
			break
		}
	}

	for _, group := range rules.Demographics {
		if hasAnyWord(titleWords, group.Terms) && !hasAnyWord(queryWords, group.Terms) {
			score += group.Penalty
		}
	}

	if strings.TrimSpace(c.Image) != "" {
		score += rules.ImageBonus
	}
	if c.Price != nil {
		score += rules.PriceBonus
	}

	sc.Score = score
	sc.Accepted = score >= rules.Threshold(mode)
	return sc
}

// Rank scores every candidate and orders them by score, highest first.
// Equal scores keep their input order.
func Rank(query string, candidates []models.CandidateListing, rules Rules, mode Mode) []models.ScoredCandidate {
	scored := make([]models.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		scored[i] = Score(query, c, rules, mode)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Accepted filters a ranked slice down to accepted candidates
func Accepted(ranked []models.ScoredCandidate) []models.ScoredCandidate {
	out := make([]models.ScoredCandidate, 0, len(ranked))
	for _, sc := range ranked {
		if sc.Accepted {
			out = append(out, sc)
		}
	}
	return out
}

// Best returns the highest ranked accepted candidate, or nil when none clears the threshold
func Best(query string, candidates []models.CandidateListing, rules Rules, mode Mode) *models.ScoredCandidate {
	for _, sc := range Rank(query, candidates, rules, mode) {
		if sc.Accepted {
			best := sc
			return &best
		}
	}
	return nil
}

// wordString lowercases s and reduces it to single-space separated words padded
// with a space on each side, so terms can be matched on word boundaries.
func wordString(s string) string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	return " " + strings.Join(words, " ") + " "
}

func hasAnyWord(words string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(words, wordString(term)) {
			return true
		}
	}
	return false
}
