package relevance

import (
	"regexp"
	"strings"
)

var (
	prefectureRe = regexp.MustCompile(`(北海道|青森県|岩手県|宮城県|秋田県|山形県|福島県|茨城県|栃木県|群馬県|埼玉県|千葉県|東京都|神奈川県|新潟県|富山県|石川県|福井県|山梨県|長野県|岐阜県|静岡県|愛知県|三重県|滋賀県|京都府|大阪府|兵庫県|奈良県|和歌山県|鳥取県|島根県|岡山県|広島県|山口県|徳島県|香川県|愛媛県|高知県|福岡県|佐賀県|長崎県|熊本県|大分県|宮崎県|鹿児島県|沖縄県)`)
	cityRe       = regexp.MustCompile(`([^\s]{1,10}(?:市|区|町|村))`)
	querySpaceRe = regexp.MustCompile(`\s+`)
)

// SearchQueries builds the social-handle search queries for a salon name.
func SearchQueries(salonName string) []string {
	return []string{"ヘアサロン " + salonName + " instagram"}
}

// PrefectureCity extracts the prefecture and municipality from a Japanese
// address. The municipality is searched after the prefecture so a ward
// name inside a building line does not win over the real one.
func PrefectureCity(address string) (prefecture, city, combined string) {
	if m := prefectureRe.FindStringSubmatch(address); m != nil {
		prefecture = m[1]
	}

	rest := address
	if prefecture != "" {
		if idx := strings.Index(address, prefecture); idx >= 0 {
			rest = address[idx+len(prefecture):]
		}
	}
	if m := cityRe.FindStringSubmatch(rest); m != nil {
		city = m[1]
	}

	parts := make([]string, 0, 2)
	if prefecture != "" {
		parts = append(parts, prefecture)
	}
	if city != "" {
		parts = append(parts, city)
	}
	combined = strings.Join(parts, " ")
	return prefecture, city, combined
}

// LocationQuery builds a region-scoped search query from the salon name
// and its address, falling back to the plain form when the address yields
// no usable region.
func LocationQuery(salonName, address string) string {
	clean := strings.TrimSpace(querySpaceRe.ReplaceAllString(salonName, " "))

	_, _, combined := PrefectureCity(address)
	if combined != "" {
		return "ヘアサロン " + clean + " " + combined + " Instagram"
	}
	return "ヘアサロン " + clean + " Instagram"
}
