package scrape

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Profile names the CSS selectors and query parameters for one directory
// site layout. The defaults match the supported beauty-salon directory; a
// YAML file can override individual entries when the site markup drifts.
type Profile struct {
	SubAreas     string `yaml:"sub_areas"`
	DetailAreas  string `yaml:"detail_areas"`
	Pagination   string `yaml:"pagination"`
	NextPage     string `yaml:"next_page"`
	ListingItems string `yaml:"listing_items"`
	ListingLink  string `yaml:"listing_link"`
	DetailTable  string `yaml:"detail_table"`
	PhoneTable   string `yaml:"phone_table"`

	// Query parameters on listing links.
	PageParam string `yaml:"page_param"` // pagination page number
	IDParam   string `yaml:"id_param"`   // stable listing id
}

// DefaultProfile returns the selector set for the supported directory site.
func DefaultProfile() *Profile {
	return &Profile{
		SubAreas:     "ul.routeMa a",
		DetailAreas:  "div.searchAreaListWrap ul.searchAreaList a",
		Pagination:   "ul.paging.jscPagingParents li a",
		NextPage:     "ul.paging.jscPagingParents li.afterPage a",
		ListingItems: "ul.slnCassetteList li",
		ListingLink:  `a[href*="slnH"]`,
		DetailTable:  "table.slnDataTbl tr",
		PhoneTable:   "table.wFull.bdCell.pCell10.mT15 tr",
		PageParam:    "PN",
		IDParam:      "cstt",
	}
}

// LoadProfile reads a YAML override file on top of the defaults. An empty
// path returns the defaults unchanged.
func LoadProfile(path string) (*Profile, error) {
	p := DefaultProfile()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "profile: read %s", path)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, eris.Wrapf(err, "profile: parse %s", path)
	}
	return p, nil
}
