package scrape

import (
	"context"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/salonscope/harvest-cli/internal/model"
)

// Navigator walks the directory's three-tier area hierarchy. Fetch and
// parse failures degrade to an empty result so callers fall back to the
// coarser tier instead of aborting.
type Navigator struct {
	fetcher *Fetcher
	profile *Profile
}

// NewNavigator creates a Navigator.
func NewNavigator(f *Fetcher, p *Profile) *Navigator {
	return &Navigator{fetcher: f, profile: p}
}

// ListSubAreas extracts sub-area links from a main area's top page.
func (n *Navigator) ListSubAreas(ctx context.Context, areaURL string) []model.Area {
	return n.listAreas(ctx, areaURL, n.profile.SubAreas)
}

// ListDetailAreas extracts detail-area links from a sub-area page.
func (n *Navigator) ListDetailAreas(ctx context.Context, subAreaURL string) []model.Area {
	return n.listAreas(ctx, subAreaURL, n.profile.DetailAreas)
}

func (n *Navigator) listAreas(ctx context.Context, pageURL, selector string) []model.Area {
	doc, err := n.fetcher.Get(ctx, pageURL)
	if err != nil {
		zap.L().Warn("areas: fetch failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	var areas []model.Area
	seen := make(map[string]bool)

	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		name := NormalizeLabel(sel.Text())
		if !ok || href == "" || name == "" {
			return
		}
		resolved := ResolveURL(href, pageURL)
		if seen[resolved] {
			return
		}
		seen[resolved] = true
		areas = append(areas, model.Area{Name: name, URL: resolved})
	})

	return areas
}
