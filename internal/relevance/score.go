package relevance

import (
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
)

// excludedKeywords name industries the directory never lists. A handle
// containing any of them is vetoed outright.
var excludedKeywords = []string{
	// food and drink
	"restaurant", "yakiniku", "meat", "beef", "pork", "takedaya", "takeda",
	"ramen", "sushi", "izakaya", "bar", "cafe", "coffee", "kitchen", "food",
	// lodging and retail
	"hotel", "ryokan", "shop", "store", "market", "mall",
	// music and entertainment
	"music", "band", "orchestra", "marronnier", "symphony", "concert",
	// schools
	"university", "college", "school", "daion", "ocm_t",
	"photographer", "photo", "model", "fitness", "gym",
}

// salonKeywords are trade words that make a handle look like a salon
// account on their own.
var salonKeywords = []string{"hair", "salon", "beauty", "cut", "style", "color", "perm", "treatment"}

var (
	usernameRe = regexp.MustCompile(`instagram\.com/([a-zA-Z0-9_.]+)`)
	aliasRe    = regexp.MustCompile(`\(([A-Za-z\s&]+)\)`)
)

// Similarity returns an edit-distance based similarity in [0,1]. When one
// string contains the other the ratio of their lengths (scaled by 0.8)
// stands in for the distance, so a short token inside a long handle still
// registers without dominating.
func Similarity(a, b string) float64 {
	s1 := strings.ToLower(a)
	s2 := strings.ToLower(b)

	if s1 == s2 {
		return 1.0
	}
	if s1 == "" || s2 == "" {
		return 0.0
	}

	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		shorter, longer := len(s1), len(s2)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		return float64(shorter) / float64(longer) * 0.8
	}

	dist := levenshtein.Distance(s1, s2, nil)
	maxLen := len(s1)
	if len(s2) > maxLen {
		maxLen = len(s2)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}

// Score rates how likely candidateURL belongs to the named business,
// in [0,1]. An excluded-industry keyword in the handle returns exactly 0
// regardless of every other signal; otherwise independent signals add up
// and the sum is clamped to 1. Missing inputs score the neutral 0.5.
func Score(candidateURL, businessName string) float64 {
	if candidateURL == "" || businessName == "" {
		return 0.5
	}

	m := usernameRe.FindStringSubmatch(candidateURL)
	if m == nil {
		return 0.1
	}
	username := strings.ToLower(m[1])

	for _, keyword := range excludedKeywords {
		if strings.Contains(username, keyword) {
			return 0.0
		}
	}

	score := 0.0

	for _, keyword := range salonKeywords {
		if strings.Contains(username, keyword) {
			score += 0.4
		}
	}

	tokens := significantTokens(businessName)
	for _, token := range tokens {
		if strings.Contains(username, token) {
			score += Similarity(token, username) * 0.5
		}
	}

	if romaji := romajiForm(businessName); len(romaji) > 2 {
		if sim := Similarity(romaji, username); sim > 0.3 {
			score += sim * 0.6
		}
	}

	if am := aliasRe.FindStringSubmatch(businessName); am != nil {
		alias := strings.ToLower(strings.TrimSpace(am[1]))
		alias = strings.ReplaceAll(alias, " ", "")
		alias = strings.ReplaceAll(alias, "&", "and")
		if sim := Similarity(alias, username); sim > 0.3 {
			score += sim * 0.7
		}
	}

	var initials strings.Builder
	for _, token := range tokens {
		initials.WriteByte(token[0])
	}
	if ini := initials.String(); len(ini) >= 2 && strings.Contains(username, ini) {
		score += 0.3
	}

	if score > 1.0 {
		return 1.0
	}
	return score
}

// SelectBest cleans and scores every candidate and returns the winner.
// A best score of zero means no candidate survived the veto, so the
// caller gets nothing rather than a low-confidence guess.
func SelectBest(candidates []string, businessName string) (string, bool) {
	bestURL := ""
	bestScore := 0.0

	for _, candidate := range candidates {
		url, ok := CleanCandidateURL(candidate)
		if !ok {
			continue
		}
		if score := Score(url, businessName); score > bestScore {
			bestScore = score
			bestURL = url
		}
	}

	if bestScore <= 0 {
		return "", false
	}
	return bestURL, true
}
