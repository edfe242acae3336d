package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"deals-bot/utils"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// InitDB initializes the database connection. It takes the database path as input.
func InitDB(dbPath string) (*sql.DB, error) {
	// Ensure the directory for the database file exists.
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open the SQLite database. It will be created if it doesn't exist.
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Ping the database to verify the connection.
	if err = db.Ping(); err != nil {
		db.Close() // Close the connection if ping fails
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Create the messages audit table if it doesn't exist.
	if err := createMessagesTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create messages table: %w", err)
	}

	utils.Log.WithField("path", dbPath).Info("Successfully connected to the database")
	return db, nil
}

var tableNameSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

// PageTableName maps a destination page to its products table. Page names
// come from static configuration but still get sanitized before they are
// interpolated into DDL/DML.
func PageTableName(page string) string {
	return "products_" + tableNameSanitizer.ReplaceAllString(strings.ToLower(page), "_")
}

// EnsurePageTable creates the products table for a destination page if it
// doesn't already exist. Called at startup for every registry page.
func EnsurePageTable(db *sql.DB, page string) error {
	tableName := PageTableName(page)
	query := fmt.Sprintf(`
    CREATE TABLE IF NOT EXISTS %s (
        db_id INTEGER PRIMARY KEY AUTOINCREMENT,
        dedup_key TEXT UNIQUE,
        destination_page TEXT,
        name TEXT,
        current_price REAL,
        original_price REAL,
        discount_pct INTEGER,
        image_url TEXT,
        rating REAL,
        review_count INTEGER,
        affiliate_url TEXT,
        affiliate_tag_applied INTEGER,
        network_id TEXT,
        message_group_id TEXT,
        sequence_in_group INTEGER,
        total_in_group INTEGER,
        source_channel_id TEXT,
        source_message_id TEXT,
        status TEXT DEFAULT 'active',
        created_at INTEGER,
        updated_at INTEGER,
        expires_at INTEGER
    );`, tableName)

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return nil
}

// createMessagesTable creates the per-message audit table.
func createMessagesTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS messages (
        channel_id TEXT,
        message_id TEXT,
        raw_text TEXT,
        received_at INTEGER,
        outcome TEXT,
        processed_at INTEGER,
        PRIMARY KEY (channel_id, message_id)
    );`
	_, err := db.Exec(query)
	return err
}
