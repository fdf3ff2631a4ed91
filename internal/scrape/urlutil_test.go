package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	base := "https://example.com/salon/area/list/"

	assert.Equal(t, "https://other.com/x", ResolveURL("https://other.com/x", base))
	assert.Equal(t, "https://example.com/salon/detail/", ResolveURL("/salon/detail/", base))
	assert.Equal(t, "https://example.com/salon/area/list/pn2/", ResolveURL("pn2/", base))
	assert.Equal(t, "relative", ResolveURL("relative", "://bad base"))
}

func TestExtractIntParam(t *testing.T) {
	url := "https://example.com/list/?cstt=42&PN=3"

	pn, ok := ExtractIntParam(url, "PN")
	assert.True(t, ok)
	assert.Equal(t, "3", pn)

	id, ok := ExtractIntParam(url, "cstt")
	assert.True(t, ok)
	assert.Equal(t, "42", id)

	_, ok = ExtractIntParam(url, "page")
	assert.False(t, ok)

	_, ok = ExtractIntParam("https://example.com/?PN=abc", "PN")
	assert.False(t, ok)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "Hair Salon ABC", NormalizeLabel("  Hair \n\t Salon   ABC "))
	assert.Equal(t, "", NormalizeLabel(" \n "))
}
