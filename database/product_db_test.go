package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"deals-bot/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, EnsurePageTable(db, "top-deals"))
	return db
}

func testRecord(dedupKey string) models.ProductRecord {
	now := time.Now().Unix()
	original := 399.0
	discount := 78
	return models.ProductRecord{
		DedupKey:            dedupKey,
		DestinationPage:     "top-deals",
		Name:                "boAt Rockerz 450",
		CurrentPrice:        87,
		OriginalPrice:       &original,
		DiscountPct:         &discount,
		ImageURL:            "https://cdn.example.com/img.jpg",
		AffiliateURL:        "https://www.amazon.in/dp/B0TEST?tag=pickdeals-21",
		AffiliateTagApplied: true,
		NetworkID:           "amazon-associates",
		MessageGroupID:      "group-1",
		SequenceInGroup:     1,
		TotalInGroup:        1,
		SourceChannelID:     "111",
		SourceMessageID:     "msg-1",
		Status:              models.StatusActive,
		CreatedAt:           now,
		UpdatedAt:           now,
		ExpiresAt:           now + 3600,
	}
}

func TestPageTableName(t *testing.T) {
	assert.Equal(t, "products_top_deals", PageTableName("top-deals"))
	assert.Equal(t, "products_fashion", PageTableName("Fashion"))
	assert.Equal(t, "products_a_b_c", PageTableName("a b;c"))
}

func TestUpsertInsertsAndLists(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, UpsertProduct(db, testRecord("key-1")))

	records, err := ListActive(db, "top-deals")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "boAt Rockerz 450", records[0].Name)
	assert.Equal(t, 87.0, records[0].CurrentPrice)
	require.NotNil(t, records[0].OriginalPrice)
	assert.Equal(t, 399.0, *records[0].OriginalPrice)
	assert.True(t, records[0].AffiliateTagApplied)
}

func TestUpsertIsIdempotentPerKey(t *testing.T) {
	db := newTestDB(t)

	first := testRecord("key-1")
	first.CreatedAt = 1000
	first.UpdatedAt = 1000
	require.NoError(t, UpsertProduct(db, first))

	second := testRecord("key-1")
	second.Name = "boAt Rockerz 450 (restocked)"
	second.CreatedAt = 2000 // must NOT overwrite the original created_at
	second.UpdatedAt = 2000
	require.NoError(t, UpsertProduct(db, second))

	records, err := ListActive(db, "top-deals")
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "boAt Rockerz 450 (restocked)", records[0].Name)
	assert.Equal(t, int64(1000), records[0].CreatedAt)
	assert.Equal(t, int64(2000), records[0].UpdatedAt)
}

func TestUpsertReactivatesExpiredRecord(t *testing.T) {
	db := newTestDB(t)

	stale := testRecord("key-1")
	stale.ExpiresAt = time.Now().Unix() - 10
	require.NoError(t, UpsertProduct(db, stale))

	_, err := SweepExpired(db, []string{"top-deals"})
	require.NoError(t, err)

	records, err := ListActive(db, "top-deals")
	require.NoError(t, err)
	assert.Empty(t, records)

	// A redelivered message refreshes the record back to active.
	require.NoError(t, UpsertProduct(db, testRecord("key-1")))
	records, err = ListActive(db, "top-deals")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestListActiveFiltersExpiry(t *testing.T) {
	db := newTestDB(t)

	fresh := testRecord("fresh")
	require.NoError(t, UpsertProduct(db, fresh))

	// Past expiry but not yet swept: must be filtered at read time.
	stale := testRecord("stale")
	stale.ExpiresAt = time.Now().Unix() - 10
	require.NoError(t, UpsertProduct(db, stale))

	records, err := ListActive(db, "top-deals")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "fresh", records[0].DedupKey)
}

func TestSweepExpiredFlipsStatusWithoutDeleting(t *testing.T) {
	db := newTestDB(t)

	stale := testRecord("stale")
	stale.ExpiresAt = time.Now().Unix() - 10
	require.NoError(t, UpsertProduct(db, stale))

	swept, err := SweepExpired(db, []string{"top-deals"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	// The row survives with status=expired.
	var status string
	err = db.QueryRow(`SELECT status FROM products_top_deals WHERE dedup_key = ?`, "stale").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, status)

	// A second sweep finds nothing left to flip.
	swept, err = SweepExpired(db, []string{"top-deals"})
	require.NoError(t, err)
	assert.Zero(t, swept)
}

func TestRecordMessageAndOutcome(t *testing.T) {
	db := newTestDB(t)

	msg := models.IngestedMessage{
		ChannelID:  "111",
		MessageID:  "msg-1",
		RawText:    "https://example.com/p",
		ReceivedAt: time.Now(),
	}
	require.NoError(t, RecordMessage(db, msg, models.OutcomeProcessed))

	outcome, err := GetMessageOutcome(db, "111", "msg-1")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeProcessed, outcome)

	outcome, err = GetMessageOutcome(db, "111", "never-seen")
	require.NoError(t, err)
	assert.Empty(t, outcome)

	// Redelivery overwrites the audit row rather than duplicating it.
	require.NoError(t, RecordMessage(db, msg, models.OutcomeIgnored))
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count))
	assert.Equal(t, 1, count)
}
