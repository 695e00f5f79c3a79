package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PingTimeout bounds the initial reachability check of a target database.
const PingTimeout = 30 * time.Second

// OpenTarget opens the database under test and checks it is reachable.
// The driver must already be registered by the caller's imports.
func OpenTarget(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection (%s): %w", driver, err)
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, PingTimeout)
	defer cancel()

	if err := db.PingContext(ctxTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
