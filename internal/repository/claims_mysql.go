package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"kitvault-api/internal/model"
)

// MySQLClaimRepository implements ClaimRepository using MySQL. The caller
// owns the *sql.DB (shared connection pool configured in main).
type MySQLClaimRepository struct {
	db *sql.DB
}

// NewMySQLClaimRepository creates a new MySQL claim repository and ensures
// the claim table exists.
func NewMySQLClaimRepository(db *sql.DB) (*MySQLClaimRepository, error) {
	query := `
	CREATE TABLE IF NOT EXISTS kit_claims (
		id VARCHAR(36) PRIMARY KEY,
		account_id VARCHAR(64) NOT NULL,
		kit_name VARCHAR(32) NOT NULL,
		last_claim BIGINT NOT NULL,
		claim_count INT NOT NULL,
		UNIQUE KEY uniq_account_kit (account_id, kit_name),
		KEY idx_account (account_id)
	)`
	if _, err := db.Exec(query); err != nil {
		return nil, fmt.Errorf("failed to create kit_claims table: %w", err)
	}

	log.Printf("[MySQLClaimRepository] Initialized")
	return &MySQLClaimRepository{db: db}, nil
}

// FindByAccount returns all claim records for one account.
func (r *MySQLClaimRepository) FindByAccount(ctx context.Context, accountID string) ([]model.ClaimRecord, error) {
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
func (r *MySQLClaimRepository) Insert(ctx context.Context, record *model.ClaimRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO kit_claims (id, account_id, kit_name, last_claim, claim_count) VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.AccountID, record.KitName, record.LastClaim, record.ClaimCount)
	if err != nil {
		return fmt.Errorf("failed to insert claim record: %w", err)
	}
	return nil
}

// Update rewrites an existing claim record by ID.
func (r *MySQLClaimRepository) Update(ctx context.Context, record *model.ClaimRecord) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE kit_claims SET last_claim = ?, claim_count = ? WHERE id = ?`,
		record.LastClaim, record.ClaimCount, record.ID)
	if err != nil {
		return fmt.Errorf("failed to update claim record: %w", err)
	}
	return nil
}

// Stats returns statistics about the claim store.
func (r *MySQLClaimRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	var total, accounts int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM kit_claims").Scan(&total); err != nil {
		return nil, err
	}
	stats["total_records"] = total

	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(DISTINCT account_id) FROM kit_claims").Scan(&accounts); err == nil {
		stats["accounts"] = accounts
	}

	return stats, nil
}

// Close is a no-op; the shared *sql.DB is closed by its owner.
func (r *MySQLClaimRepository) Close() error {
	return nil
}

var _ ClaimRepository = (*MySQLClaimRepository)(nil)
