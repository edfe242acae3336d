package database

import (
	"database/sql"
	"fmt"
	"time"

	"deals-bot/models"
)

// RecordMessage writes (or rewrites, on redelivery) the audit row for an
// inbound message with its processing outcome. The raw text is retained so
// any message can be reprocessed later.
func RecordMessage(db *sql.DB, msg models.IngestedMessage, outcome string) error {
	query := `
    INSERT OR REPLACE INTO messages (channel_id, message_id, raw_text, received_at, outcome, processed_at)
    VALUES (?, ?, ?, ?, ?, ?);`

	stmt, err := db.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for recording message: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		msg.ChannelID,
		msg.MessageID,
		msg.RawText,
		msg.ReceivedAt.Unix(),
		outcome,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to execute statement for recording message %s: %w", msg.MessageID, err)
	}
	return nil
}

// GetMessageOutcome returns the recorded outcome for a message, or "" when
// the message has never been seen.
func GetMessageOutcome(db *sql.DB, channelID, messageID string) (string, error) {
	var outcome string
	err := db.QueryRow(
		`SELECT outcome FROM messages WHERE channel_id = ? AND message_id = ?`,
		channelID, messageID,
	).Scan(&outcome)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query message outcome: %w", err)
	}
	return outcome, nil
}
