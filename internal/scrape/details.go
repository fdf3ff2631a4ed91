package scrape

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/salonscope/harvest-cli/internal/model"
)

// phoneLinkLabel marks the anchor on a detail page that leads to the
// separate phone-reveal page.
const phoneLinkLabel = "番号を表示"

// DetailExtractor pulls the structured salon fields out of a detail page.
// Row labels are matched verbatim against the directory's Japanese
// headings; unknown rows are ignored.
type DetailExtractor struct {
	fetcher *Fetcher
	profile *Profile
}

// NewDetailExtractor creates a DetailExtractor.
func NewDetailExtractor(f *Fetcher, p *Profile) *DetailExtractor {
	return &DetailExtractor{fetcher: f, profile: p}
}

// Extract fetches the stub's detail page and fills a SalonDetails. The
// returned details always carry the stub's name, URL and id even when the
// page yields nothing. When the phone number sits behind a reveal link the
// extractor follows it; a failed hop leaves Phone nil rather than failing
// the whole record.
func (d *DetailExtractor) Extract(ctx context.Context, stub model.ListingStub) (model.SalonDetails, error) {
	details := model.StubRecord(stub)

	doc, err := d.fetcher.Get(ctx, stub.URL)
	if err != nil {
		return details, eris.Wrapf(err, "details: fetch %s", stub.URL)
	}

	if title := pageTitle(doc); title != "" {
		details.Name = title
	}

	d.fillTable(doc, &details)

	if details.Phone == nil {
		if phoneURL := d.phoneRevealURL(doc, stub.URL); phoneURL != "" {
			if phone := d.fetchPhone(ctx, phoneURL); phone != "" {
				details.Phone = &phone
			}
		}
	}

	return details, nil
}

// pageTitle returns the salon name portion of the document title. The
// directory formats titles as "name｜suffix"; only the segment before the
// first full-width pipe matters.
func pageTitle(doc *goquery.Document) string {
	title := doc.Find("title").First().Text()
	name, _, _ := strings.Cut(title, "｜")
	return NormalizeLabel(name)
}

func (d *DetailExtractor) fillTable(doc *goquery.Document, details *model.SalonDetails) {
	doc.Find(d.profile.DetailTable).Each(func(_ int, row *goquery.Selection) {
		label := NormalizeLabel(row.Find("th").First().Text())
		value := cellText(row.Find("td").First())
		if label == "" || value == "" {
			return
		}

		switch label {
		case "住所":
			details.Address = value
		case "アクセス・道案内":
			details.Access = value
		case "営業時間":
			details.BusinessHours = value
		case "定休日":
			details.ClosedDays = value
		case "支払い方法":
			details.PaymentMethods = value
		case "カット価格":
			details.CutPrice = value
		case "スタッフ数":
			details.StaffCount = value
		case "こだわり条件":
			details.Features = value
		case "備考":
			details.Remarks = value
		case "その他":
			details.Other = value
		case "電話番号":
			if !strings.Contains(value, phoneLinkLabel) {
				phone := value
				details.Phone = &phone
			}
		}
	})
}

// phoneRevealURL finds the link labeled with the reveal text, if any.
func (d *DetailExtractor) phoneRevealURL(doc *goquery.Document, pageURL string) string {
	var found string
	doc.Find("a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), phoneLinkLabel) {
			return true
		}
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		found = ResolveURL(href, pageURL)
		return false
	})
	return found
}

// fetchPhone loads the reveal page and reads the number from its table.
func (d *DetailExtractor) fetchPhone(ctx context.Context, phoneURL string) string {
	doc, err := d.fetcher.Get(ctx, phoneURL)
	if err != nil {
		zap.L().Warn("details: phone page fetch failed",
			zap.String("url", phoneURL), zap.Error(err))
		return ""
	}

	var phone string
	doc.Find(d.profile.PhoneTable).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		label := NormalizeLabel(row.Find("th").First().Text())
		if label != "電話番号" {
			return true
		}
		phone = cellText(row.Find("td").First())
		return false
	})
	return phone
}

// cellText extracts a table cell's text with non-breaking spaces stripped.
func cellText(sel *goquery.Selection) string {
	text := strings.ReplaceAll(sel.Text(), " ", " ")
	return NormalizeLabel(text)
}
