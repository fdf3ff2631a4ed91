package scrape

import (
	"context"
	"strconv"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salonscope/harvest-cli/internal/model"
)

// Paginator walks a detail area's listing pages in order and collects
// the salon stubs found on each page.
type Paginator struct {
	fetcher *Fetcher
	profile *Profile
}

// NewPaginator creates a Paginator.
func NewPaginator(f *Fetcher, p *Profile) *Paginator {
	return &Paginator{fetcher: f, profile: p}
}

// ResolveLastPageURL returns the URL of the numerically last page in the
// pagination strip, or firstPageURL when the strip is missing or no link
// carries a page number.
func (pg *Paginator) ResolveLastPageURL(ctx context.Context, firstPageURL string) (string, error) {
	doc, err := pg.fetcher.Get(ctx, firstPageURL)
	if err != nil {
		return "", eris.Wrap(err, "paginate: fetch first page")
	}
	return pg.lastPageURL(doc, firstPageURL), nil
}

func (pg *Paginator) lastPageURL(doc *goquery.Document, pageURL string) string {
	best := pageURL
	bestNum := -1

	doc.Find(pg.profile.Pagination).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		resolved := ResolveURL(href, pageURL)
		raw, ok := ExtractIntParam(resolved, pg.profile.PageParam)
		if !ok {
			return
		}
		num, err := strconv.Atoi(raw)
		if err != nil {
			return
		}
		if num > bestNum {
			bestNum = num
			best = resolved
		}
	})

	return best
}

// AllListings walks every page starting at firstPageURL following the
// next-page link, and returns the deduplicated stubs in discovery order.
// A failure on the first page yields an empty slice; a failure mid-walk
// returns what was accumulated so far. Never returns an error.
func (pg *Paginator) AllListings(ctx context.Context, firstPageURL string) []model.ListingStub {
	var all []model.ListingStub
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	pageURL := firstPageURL
	for pageURL != "" && !visited[pageURL] {
		visited[pageURL] = true

		doc, err := pg.fetcher.Get(ctx, pageURL)
		if err != nil {
			zap.L().Warn("paginate: fetch page failed",
				zap.String("url", pageURL), zap.Error(err))
			return all
		}

		for _, stub := range pg.listingsOn(doc, pageURL) {
			key := stub.StableID
			if key == "" || key == model.StableIDSentinel {
				key = "url:" + stub.URL
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, stub)
		}

		pageURL = pg.nextPageURL(doc, pageURL)
	}

	return all
}

func (pg *Paginator) listingsOn(doc *goquery.Document, pageURL string) []model.ListingStub {
	var stubs []model.ListingStub

	doc.Find(pg.profile.ListingItems).Each(func(_ int, item *goquery.Selection) {
		link := item.Find(pg.profile.ListingLink).First()
		href, ok := link.Attr("href")
		name := NormalizeLabel(link.Text())
		if !ok || href == "" || name == "" {
			return
		}
		resolved := ResolveURL(href, pageURL)
		id := model.StableIDSentinel
		if raw, ok := ExtractIntParam(resolved, pg.profile.IDParam); ok {
			id = raw
		}
		stubs = append(stubs, model.ListingStub{Name: name, URL: resolved, StableID: id})
	})

	return stubs
}

func (pg *Paginator) nextPageURL(doc *goquery.Document, pageURL string) string {
	link := doc.Find(pg.profile.NextPage).First()
	href, ok := link.Attr("href")
	if !ok || href == "" {
		return ""
	}
	return ResolveURL(href, pageURL)
}
