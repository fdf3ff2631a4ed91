package scrape

import (
	"net/url"
	"regexp"
	"strings"
)

// ResolveURL converts href into an absolute URL against base. An href that
// already carries a scheme is returned unchanged; anything the URL parser
// rejects falls back to the raw href.
func ResolveURL(href, base string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(ref).String()
}

// ExtractIntParam returns the first digit run bound to the named query
// parameter anywhere in rawURL, or false when the parameter is missing or
// non-numeric.
func ExtractIntParam(rawURL, name string) (string, bool) {
	re := regexp.MustCompile(regexp.QuoteMeta(name) + `=(\d+)`)
	m := re.FindStringSubmatch(rawURL)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var spaceRe = regexp.MustCompile(`\s+`)

// NormalizeLabel collapses runs of whitespace into single spaces and trims.
func NormalizeLabel(text string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}
