package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"

	"kitvault-api/internal/model"

	_ "modernc.org/sqlite" // Pure Go SQLite driver - no CGO required
)

// SQLiteClaimRepository implements ClaimRepository using SQLite.
// Thread-safe with WAL mode for high-concurrency reads.
type SQLiteClaimRepository struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteClaimRepository creates a new SQLite claim repository.
// dbPath is the path to the SQLite database file (e.g., "./data/claims.db");
// ":memory:" opens an in-memory database for tests.
func NewSQLiteClaimRepository(dbPath string) (*SQLiteClaimRepository, error) {
	dsn := dbPath
	if dbPath != ":memory:" {
		dsn = fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", dbPath)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}

	// SQLite connection pool settings
	db.SetMaxOpenConns(1) // SQLite only supports 1 writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createClaimTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	log.Printf("[SQLiteClaimRepository] Initialized with database: %s", dbPath)
	return &SQLiteClaimRepository{db: db}, nil
}

// createClaimTables creates the claim-record table. The UNIQUE constraint
// on (account_id, kit_name) backs up the read-then-write discipline in the
// service layer: two racing first claims cannot both insert.
func createClaimTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS kit_claims (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		kit_name TEXT NOT NULL,
		last_claim INTEGER NOT NULL,
		claim_count INTEGER NOT NULL,
		UNIQUE(account_id, kit_name)
	);
	CREATE INDEX IF NOT EXISTS idx_kit_claims_account ON kit_claims(account_id);
	`
	_, err := db.Exec(query)
	return err
}

// FindByAccount returns all claim records for one account.
func (r *SQLiteClaimRepository) FindByAccount(ctx context.Context, accountID string) ([]model.ClaimRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, kit_name, last_claim, claim_count FROM kit_claims WHERE account_id = ?`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claims: %w", err)
	}
	defer rows.Close()

	var records []model.ClaimRecord
	for rows.Next() {
		var rec model.ClaimRecord
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.KitName, &rec.LastClaim, &rec.ClaimCount); err != nil {
			return nil, fmt.Errorf("failed to scan claim record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Insert stores a new claim record.
func (r *SQLiteClaimRepository) Insert(ctx context.Context, record *model.ClaimRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kit_claims (id, account_id, kit_name, last_claim, claim_count) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.AccountID, record.KitName, record.LastClaim, record.ClaimCount)
	if err != nil {
		return fmt.Errorf("failed to insert claim record: %w", err)
	}
	return nil
}

// Update rewrites an existing claim record by ID.
func (r *SQLiteClaimRepository) Update(ctx context.Context, record *model.ClaimRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx,
		`UPDATE kit_claims SET last_claim = ?, claim_count = ? WHERE id = ?`,
		record.LastClaim, record.ClaimCount, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update claim record: %w", err)
	}
	return nil
}

// Stats returns statistics about the claim store.
func (r *SQLiteClaimRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{})

	var total, accounts int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kit_claims").Scan(&total); err != nil {
		return nil, err
	}
	stats["total_records"] = total

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT account_id) FROM kit_claims").Scan(&accounts); err == nil {
		stats["accounts"] = accounts
	}

	// Database file size (approximate from page count)
	var pageCount, pageSize int64
	r.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	r.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	stats["db_size_bytes"] = pageCount * pageSize

	return stats, nil
}

// Close closes the database connection.
func (r *SQLiteClaimRepository) Close() error {
	return r.db.Close()
}

// Ensure SQLiteClaimRepository implements ClaimRepository
var _ ClaimRepository = (*SQLiteClaimRepository)(nil)
