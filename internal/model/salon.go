package model

import "time"

// Area is one entry in the directory's area hierarchy. The same shape is
// used for all three tiers (main area, sub-area, detail area); each tier is
// parsed fresh from its parent page and never persisted.
type Area struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// ListingStub is a salon reference collected from a listing page. StableID
// comes from the listing link's query parameter and is the dedup key for a
// whole paginated crawl; when the parameter is absent it holds the sentinel
// "N/A" and the stub is deduplicated by URL instead.
type ListingStub struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	StableID string `json:"stable_id"`
}

// StableIDSentinel marks a listing whose link carried no id parameter.
const StableIDSentinel = "N/A"

// SalonDetails is the full record for one salon. String fields default to
// empty when the detail page does not carry them; Phone is nil (not empty)
// when the number could not be resolved, distinguishing "missing" from
// "present but blank".
type SalonDetails struct {
	Name           string  `json:"name"`
	URL            string  `json:"url"`
	StableID       string  `json:"stable_id"`
	Address        string  `json:"address"`
	Phone          *string `json:"phone,omitempty"`
	Access         string  `json:"access"`
	BusinessHours  string  `json:"business_hours"`
	ClosedDays     string  `json:"closed_days"`
	PaymentMethods string  `json:"payment_methods"`
	CutPrice       string  `json:"cut_price"`
	StaffCount     string  `json:"staff_count"`
	Features       string  `json:"features"`
	Remarks        string  `json:"remarks"`
	Other          string  `json:"other"`

	// Enrichment results.
	InstagramURL  string   `json:"instagram,omitempty"`
	SearchQueries []string `json:"search_queries,omitempty"`
}

// StubRecord builds a degraded SalonDetails carrying only what the listing
// stage already knew. Used when the detail fetch fails so the listing count
// stays complete.
func StubRecord(stub ListingStub) SalonDetails {
	return SalonDetails{
		Name:     stub.Name,
		URL:      stub.URL,
		StableID: stub.StableID,
	}
}

// Harvest is the persisted outcome of one pipeline run.
type Harvest struct {
	ID         string         `json:"id"`
	ExternalID string         `json:"external_id"`
	AreaURL    string         `json:"area_url"`
	Results    []SalonDetails `json:"results"`
	Duration   float64        `json:"duration"` // seconds, one decimal
	TotalCount int            `json:"total_count"`
	ExportInfo *ExportInfo    `json:"export_info,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ExportInfo records where the exported result files ended up.
type ExportInfo struct {
	CSVStorageID  string `json:"csv_storage_id,omitempty"`
	XLSXStorageID string `json:"xlsx_storage_id,omitempty"`
	FileName      string `json:"file_name,omitempty"`
	RecordCount   int    `json:"record_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

// ExportFile is the metadata row for one uploaded export artifact.
type ExportFile struct {
	ID          string            `json:"id"`
	FileName    string            `json:"file_name"`
	ContentType string            `json:"content_type"`
	Size        int               `json:"size"`
	StorageID   string            `json:"storage_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}
