package crawl

// RawPage is one page record as the crawl provider delivers it. Every field is
// a string, including the numeric-looking ones; nothing downstream may assume
// numeric typing at this boundary.
type RawPage struct {
	URL              string `json:"url"`
	Title            string `json:"title,omitempty"`
	H1               string `json:"h1,omitempty"`
	MetaDescription  string `json:"meta_description,omitempty"`
	StatusCode       string `json:"status_code,omitempty"`
	WordCount        string `json:"word_count,omitempty"`
	Depth            string `json:"depth,omitempty"`
	InrankDecimal    string `json:"inrank_decimal,omitempty"`
	InternalOutlinks string `json:"internal_outlinks,omitempty"`
	NbInlinks        string `json:"nb_inlinks,omitempty"`
}

// Snapshot is a full crawl export for one project.
type Snapshot struct {
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name,omitempty"`
	CrawlID     string    `json:"crawl_id"`
	CrawlName   string    `json:"crawl_name,omitempty"`
	Pages       []RawPage `json:"pages"`
}

// ProcessedPage is the typed form of a raw record after filtering and
// normalization. Absent or unparseable numerics stay nil, never zero or NaN.
type ProcessedPage struct {
	URL              string
	Title            *string
	MetaDescription  *string
	H1               *string
	WordCount        *int
	Category         string
	Depth            *int
	InrankDecimal    *float64
	InternalOutlinks *int
	NbInlinks        *int
}
