package db

import "time"

// Page maps seo.pages, one row per crawled URL. The embedding column stays
// NULL until the backfill pass runs and is reset to NULL whenever the
// embeddable content (title, h1, meta description) changes.
type Page struct {
	PageID           int64     `gorm:"column:page_id;primaryKey;autoIncrement"`
	URL              string    `gorm:"column:url;type:text;not null;unique"`
	Title            *string   `gorm:"column:title;type:text"`
	MetaDescription  *string   `gorm:"column:meta_description;type:text"`
	H1               *string   `gorm:"column:h1;type:text"`
	WordCount        *int      `gorm:"column:word_count;type:integer"`
	Category         string    `gorm:"column:category;type:text;not null;default:unknown"`
	Depth            *int      `gorm:"column:depth;type:integer"`
	InrankDecimal    *float64  `gorm:"column:inrank_decimal;type:double precision"`
	InternalOutlinks *int      `gorm:"column:internal_outlinks;type:integer"`
	NbInlinks        *int      `gorm:"column:nb_inlinks;type:integer"`
	Embedding        *string   `gorm:"column:embedding;type:vector(1536)"`
	UpdatedAt        time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (Page) TableName() string { return "seo.pages" }

// SyncHistoryEntry maps seo.sync_history. A row is inserted with zero counts
// and status running when a sync starts, then finalized exactly once.
type SyncHistoryEntry struct {
	SyncID         int64     `gorm:"column:sync_id;primaryKey;autoIncrement"`
	ProjectID      string    `gorm:"column:project_id;type:text;not null"`
	ProjectName    string    `gorm:"column:project_name;type:text;not null;default:''"`
	CrawlID        string    `gorm:"column:crawl_id;type:text;not null"`
	CrawlName      string    `gorm:"column:crawl_name;type:text;not null;default:''"`
	Mode           string    `gorm:"column:mode;type:text;not null;default:full"`
	Status         string    `gorm:"column:status;type:text;not null;default:running"`
	SyncedAt       time.Time `gorm:"column:synced_at;type:timestamptz;not null;default:now()"`
	PagesAdded     int       `gorm:"column:pages_added;type:integer;not null;default:0"`
	PagesUpdated   int       `gorm:"column:pages_updated;type:integer;not null;default:0"`
	PagesUnchanged int       `gorm:"column:pages_unchanged;type:integer;not null;default:0"`
	PagesRemoved   int       `gorm:"column:pages_removed;type:integer;not null;default:0"`
	PagesFailed    int       `gorm:"column:pages_failed;type:integer;not null;default:0"`
	DurationMS     int64     `gorm:"column:duration_ms;type:bigint;not null;default:0"`
	ErrorMessage   *string   `gorm:"column:error_message;type:text"`
}

func (SyncHistoryEntry) TableName() string { return "seo.sync_history" }

func autoMigrateModels() []any {
	return []any{
		&Page{},
		&SyncHistoryEntry{},
	}
}
