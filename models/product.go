package models

// ResolvedURL is the result of following a shortened/tracking link to its
// final merchant destination. Direct merchant links pass through with
// HopCount 0 and CanonicalURL equal to the original.
type ResolvedURL struct {
	OriginalURL  string `json:"original_url"`
	CanonicalURL string `json:"canonical_url"`
	HopCount     int    `json:"hop_count"`
}

// ScrapedMetadata holds whatever could be extracted from a merchant page.
// Every field is optional; a nil pointer means "not found", which is distinct
// from an empty string that happened to be on the page.
type ScrapedMetadata struct {
	Name             *string  `json:"name,omitempty"`
	CurrentPriceRaw  *string  `json:"current_price_raw,omitempty"`
	OriginalPriceRaw *string  `json:"original_price_raw,omitempty"`
	ImageURL         *string  `json:"image_url,omitempty"`
	Rating           *float64 `json:"rating,omitempty"`
	ReviewCount      *int     `json:"review_count,omitempty"`
}

// AffiliateLink is the outcome of applying a network rule to a canonical URL.
type AffiliateLink struct {
	CanonicalURL string `json:"canonical_url"`
	NetworkID    string `json:"network_id"`
	FinalURL     string `json:"final_url"`
}

// ProductRecord is the persisted catalog entry, one row per bundle position.
type ProductRecord struct {
	DBID                int64    `db:"db_id"`
	DedupKey            string   `db:"dedup_key"` // Unique
	DestinationPage     string   `db:"destination_page"`
	Name                string   `db:"name"`
	CurrentPrice        float64  `db:"current_price"`
	OriginalPrice       *float64 `db:"original_price"`
	DiscountPct         *int     `db:"discount_pct"`
	ImageURL            string   `db:"image_url"`
	Rating              *float64 `db:"rating"`
	ReviewCount         *int     `db:"review_count"`
	AffiliateURL        string   `db:"affiliate_url"` // never empty; at minimum the canonical URL
	AffiliateTagApplied bool     `db:"affiliate_tag_applied"`
	NetworkID           string   `db:"network_id"`
	MessageGroupID      string   `db:"message_group_id"`
	SequenceInGroup     int      `db:"sequence_in_group"`
	TotalInGroup        int      `db:"total_in_group"`
	SourceChannelID     string   `db:"source_channel_id"`
	SourceMessageID     string   `db:"source_message_id"`
	Status              string   `db:"status"` // active | expired
	CreatedAt           int64    `db:"created_at"` // Unix timestamps
	UpdatedAt           int64    `db:"updated_at"`
	ExpiresAt           int64    `db:"expires_at"`
}

// Product record statuses. Expired rows are kept for auditability.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)
