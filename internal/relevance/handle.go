package relevance

import (
	"regexp"
	"strings"

	"github.com/salonscope/harvest-cli/pkg/websearch"
)

const instagramDomain = "instagram.com"

// reservedPaths are platform routes that the handle pattern would otherwise
// accept as usernames.
var reservedPaths = map[string]bool{
	"p": true, "stories": true, "reels": true, "tv": true,
	"explore": true, "direct": true, "accounts": true, "developer": true,
}

var (
	handleRe        = regexp.MustCompile(`instagram\.com/([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})(?:/|$|\?)`)
	dotsOnlyRe = regexp.MustCompile(`^[._]+$`)
	tldSuffixRe     = regexp.MustCompile(`(?i)\.(com|net|org|jp)$`)
)

// CleanCandidateURL validates a raw candidate and normalizes it to the
// canonical https profile form. Returns false for anything that is not a
// plausible account URL: reserved platform routes, malformed usernames,
// dot runs, or handles that are really domain names.
func CleanCandidateURL(raw string) (string, bool) {
	if raw == "" || !strings.Contains(raw, instagramDomain) {
		return "", false
	}

	cleanURL := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(cleanURL, "http://"):
		cleanURL = "https://" + strings.TrimPrefix(cleanURL, "http://")
	case !strings.HasPrefix(cleanURL, "https://"):
		cleanURL = "https://" + strings.TrimLeft(cleanURL, "/")
	}

	m := handleRe.FindStringSubmatch(cleanURL)
	if m == nil {
		return "", false
	}
	username := m[1]

	if reservedPaths[username] ||
		len(username) < 1 || len(username) > 30 ||
		strings.HasPrefix(username, ".") || strings.HasSuffix(username, ".") ||
		strings.Contains(username, "..") ||
		dotsOnlyRe.MatchString(username) ||
		tldSuffixRe.MatchString(username) {
		return "", false
	}

	return "https://" + instagramDomain + "/" + username, true
}

// Free-text extraction patterns, strictest first. The final loose pattern
// needs the extra checks in looseTokenOK before a match counts.
var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})(?:/|\?|$)`),
	regexp.MustCompile(`(?i)www\.instagram\.com/([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})(?:/|\?|$)`),
	regexp.MustCompile(`(?i)instagram\.com/([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})(?:/|\?|$)`),
	// Breadcrumb form used by search-result pages.
	regexp.MustCompile(`(?i)›\s*instagram\.com\s*›\s*([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})`),
	regexp.MustCompile(`(?i)(?:instagram|インスタ|インスタグラム)\s*[(（]([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})[)）]`),
	regexp.MustCompile(`(?i)(?:インスタ|instagram|インスタグラム)[\s:：-]*@?([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})\b`),
	regexp.MustCompile(`@([a-zA-Z0-9_][a-zA-Z0-9_.]{0,29})\b`),
	regexp.MustCompile(`\b([a-zA-Z0-9_]{3,30})\b`),
}

// looseIdx marks the bare-token pattern in textPatterns.
var looseIdx = len(textPatterns) - 1

// looseStoplist suppresses generic words the bare-token fallback would
// otherwise pick up from listing snippets.
var looseStoplist = []string{"Hair", "Salon", "posts", "Closed", "until", "AM", "PM"}

func looseTokenOK(token string) bool {
	if !strings.Contains(token, "_") || len(token) < 3 {
		return false
	}
	for _, word := range looseStoplist {
		if strings.Contains(token, word) {
			return false
		}
	}
	return true
}

var (
	locationDotRe  = regexp.MustCompile(`\b([a-zA-Z0-9_][a-zA-Z0-9_.]{2,29})\.\s`)
	bareAlnumRe    = regexp.MustCompile(`\b([a-zA-Z0-9_]{3,30})\b`)
	locationPathRe = regexp.MustCompile(`/(?:explore/)?locations/`)
)

// ExtractFromSearchResult pulls the most plausible account URL out of one
// search result, trying the direct link, then the canonical URL metadata,
// then the text patterns over title plus snippet. Returns the relevance
// score against businessName, or the neutral 0.5 when no name is given.
func ExtractFromSearchResult(item websearch.Result, businessName string) (string, float64, bool) {
	extracted := ""

	if strings.Contains(item.Link, instagramDomain) {
		if locationPathRe.MatchString(item.Link) {
			// Place and explore pages name the venue, not the account.
			// The snippet usually leads with the account name instead.
			if name := accountFromSnippet(item.Snippet); name != "" {
				if url, ok := CleanCandidateURL("https://" + instagramDomain + "/" + name); ok {
					extracted = url
				}
			}
		} else if url, ok := CleanCandidateURL(item.Link); ok {
			extracted = url
		}
	}

	if extracted == "" && strings.Contains(item.CanonicalURL, instagramDomain) {
		if url, ok := CleanCandidateURL(item.CanonicalURL); ok {
			extracted = url
		}
	}

	if extracted == "" {
		extracted = extractFromText(item.Title + " " + item.Snippet)
	}

	if extracted == "" {
		return "", 0, false
	}

	relevance := 0.5
	if businessName != "" {
		relevance = Score(extracted, businessName)
	}
	return extracted, relevance, true
}

// accountFromSnippet tries the dot-terminated account pattern first, then
// falls back to the first underscore-bearing bare token.
func accountFromSnippet(snippet string) string {
	if m := locationDotRe.FindStringSubmatch(snippet); m != nil {
		return m[1]
	}
	for _, m := range bareAlnumRe.FindAllStringSubmatch(snippet, -1) {
		candidate := m[1]
		if strings.Contains(candidate, "_") && len(candidate) >= 3 && len(candidate) <= 30 {
			return candidate
		}
	}
	return ""
}

func extractFromText(fullText string) string {
	for i, pattern := range textPatterns {
		for _, m := range pattern.FindAllStringSubmatch(fullText, -1) {
			username := m[1]
			if username == "" {
				continue
			}
			if i == looseIdx && !looseTokenOK(username) {
				continue
			}
			if url, ok := CleanCandidateURL("https://" + instagramDomain + "/" + username); ok {
				return url
			}
		}
	}
	return ""
}
