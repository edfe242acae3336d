package database

import (
	"database/sql"
	"fmt"
	"time"

	"deals-bot/models"
	"deals-bot/utils"
)

// UpsertProduct writes a product record into its page table, keyed by
// dedup_key. A conflicting key overwrites the mutable fields and refreshes
// updated_at while preserving created_at, so redelivery of a source message
// is idempotent. The single-statement upsert is atomic per key.
func UpsertProduct(db *sql.DB, rec models.ProductRecord) error {
	query := fmt.Sprintf(`
    INSERT INTO %s (
        dedup_key, destination_page, name, current_price, original_price, discount_pct,
        image_url, rating, review_count, affiliate_url, affiliate_tag_applied, network_id,
        message_group_id, sequence_in_group, total_in_group,
        source_channel_id, source_message_id, status, created_at, updated_at, expires_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'active', ?, ?, ?)
    ON CONFLICT(dedup_key) DO UPDATE SET
        name = excluded.name,
        current_price = excluded.current_price,
        original_price = excluded.original_price,
        discount_pct = excluded.discount_pct,
        image_url = excluded.image_url,
        rating = excluded.rating,
        review_count = excluded.review_count,
        affiliate_url = excluded.affiliate_url,
        affiliate_tag_applied = excluded.affiliate_tag_applied,
        network_id = excluded.network_id,
        message_group_id = excluded.message_group_id,
        sequence_in_group = excluded.sequence_in_group,
        total_in_group = excluded.total_in_group,
        status = 'active',
        updated_at = excluded.updated_at,
        expires_at = excluded.expires_at;`, PageTableName(rec.DestinationPage))

	stmt, err := db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for upserting product: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		rec.DedupKey,
		rec.DestinationPage,
		rec.Name,
		rec.CurrentPrice,
		rec.OriginalPrice,
		rec.DiscountPct,
		rec.ImageURL,
		rec.Rating,
		rec.ReviewCount,
		rec.AffiliateURL,
		rec.AffiliateTagApplied,
		rec.NetworkID,
		rec.MessageGroupID,
		rec.SequenceInGroup,
		rec.TotalInGroup,
		rec.SourceChannelID,
		rec.SourceMessageID,
		rec.CreatedAt,
		rec.UpdatedAt,
		rec.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to execute statement for upserting product %s: %w", rec.DedupKey, err)
	}

	return nil
}

// ListActive returns the display-ready records for a destination page:
// status is active and the record has not passed its expiry. Expired rows
// that the sweep hasn't flipped yet are filtered here, server-side.
func ListActive(db *sql.DB, page string) ([]models.ProductRecord, error) {
	query := fmt.Sprintf(`
    SELECT db_id, dedup_key, destination_page, name, current_price, original_price, discount_pct,
           image_url, rating, review_count, affiliate_url, affiliate_tag_applied, network_id,
           message_group_id, sequence_in_group, total_in_group,
           source_channel_id, source_message_id, status, created_at, updated_at, expires_at
    FROM %s
    WHERE status = 'active' AND expires_at >= ?
    ORDER BY created_at DESC, sequence_in_group ASC`, PageTableName(page))

	rows, err := db.Query(query, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query active products for page %s: %w", page, err)
	}
	defer rows.Close()

	var records []models.ProductRecord
	for rows.Next() {
		var rec models.ProductRecord
		if err := rows.Scan(
			&rec.DBID,
			&rec.DedupKey,
			&rec.DestinationPage,
			&rec.Name,
			&rec.CurrentPrice,
			&rec.OriginalPrice,
			&rec.DiscountPct,
			&rec.ImageURL,
			&rec.Rating,
			&rec.ReviewCount,
			&rec.AffiliateURL,
			&rec.AffiliateTagApplied,
			&rec.NetworkID,
			&rec.MessageGroupID,
			&rec.SequenceInGroup,
			&rec.TotalInGroup,
			&rec.SourceChannelID,
			&rec.SourceMessageID,
			&rec.Status,
			&rec.CreatedAt,
			&rec.UpdatedAt,
			&rec.ExpiresAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SweepExpired flips status to 'expired' on rows past their expiry across
// all page tables. Rows are never deleted; the audit trail stays intact.
func SweepExpired(db *sql.DB, pages []string) (int64, error) {
	now := time.Now().Unix()
	var total int64
	for _, page := range pages {
		query := fmt.Sprintf(
			`UPDATE %s SET status = 'expired' WHERE status = 'active' AND expires_at < ?`,
			PageTableName(page))
		result, err := db.Exec(query, now)
		if err != nil {
			return total, fmt.Errorf("failed to sweep expired products for page %s: %w", page, err)
		}
		if n, err := result.RowsAffected(); err == nil {
			total += n
		}
	}
	if total > 0 {
		utils.Log.WithField("expired", total).Info("Expired product records swept")
	}
	return total, nil
}
