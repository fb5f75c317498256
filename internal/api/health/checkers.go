package health

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// SQLiteChecker checks SQLite database connectivity.
type SQLiteChecker struct {
	db *sql.DB
}

// NewSQLiteChecker creates a new SQLite health checker.
func NewSQLiteChecker(db *sql.DB) *SQLiteChecker {
	return &SQLiteChecker{db: db}
}

// Name returns the checker name.
func (c *SQLiteChecker) Name() string {
	return "sqlite"
}

// Check verifies the SQLite database is accessible.
func (c *SQLiteChecker) Check(ctx context.Context) error {
	if c.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return c.db.PingContext(ctx)
}

// BlobStoreChecker checks that the attachment directory exists and is a
// directory. A missing upload volume should fail readiness before the first
// upload does.
type BlobStoreChecker struct {
	root string
}

// NewBlobStoreChecker creates a checker for the attachment directory.
func NewBlobStoreChecker(root string) *BlobStoreChecker {
	return &BlobStoreChecker{root: root}
}

// Name returns the checker name.
func (c *BlobStoreChecker) Name() string {
	return "blobstore"
}

// Check verifies the attachment directory is present.
func (c *BlobStoreChecker) Check(ctx context.Context) error {
	info, err := os.Stat(c.root)
	if err != nil {
		return fmt.Errorf("attachment directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("attachment path %s is not a directory", c.root)
	}
	return nil
}

// OutboxChecker fails readiness when the notification outbox is saturated,
// which means the dispatcher has stalled and intents are being dropped.
type OutboxChecker struct {
	pending  func() int
	capacity int
}

// NewOutboxChecker creates a checker over the outbox backlog.
func NewOutboxChecker(pending func() int, capacity int) *OutboxChecker {
	return &OutboxChecker{pending: pending, capacity: capacity}
}

// Name returns the checker name.
func (c *OutboxChecker) Name() string {
	return "outbox"
}

// Check verifies the outbox has headroom.
func (c *OutboxChecker) Check(ctx context.Context) error {
	if c.pending == nil {
		return fmt.Errorf("outbox not configured")
	}
	if p := c.pending(); c.capacity > 0 && p >= c.capacity {
		return fmt.Errorf("notification outbox full (%d pending)", p)
	}
	return nil
}
