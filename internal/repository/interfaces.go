package repository

import (
	"context"

	"kitvault-api/internal/model"
)

// KitEntry is one stored kit definition together with its storage key.
// The key, not the file content, is authoritative for the kit name.
type KitEntry struct {
	Name string
	Kit  model.KitDefinition
}

// KitStore defines kit-definition storage access.
type KitStore interface {
	// List returns every usable stored definition. Individually malformed
	// entries are skipped (and logged), not fatal. Order is unspecified.
	List(ctx context.Context) ([]KitEntry, error)

	// Write persists a definition under the given normalized name.
	Write(ctx context.Context, name string, kit model.KitDefinition) error

	// Delete removes a stored definition. Deleting a missing entry is not
	// an error.
	Delete(ctx context.Context, name string) error
}

// ClaimRepository defines claim-record data access.
type ClaimRepository interface {
	// FindByAccount returns all claim records for one account.
	FindByAccount(ctx context.Context, accountID string) ([]model.ClaimRecord, error)

	// Insert stores a new claim record.
	Insert(ctx context.Context, record *model.ClaimRecord) error

	// Update rewrites an existing claim record by ID.
	Update(ctx context.Context, record *model.ClaimRecord) error

	// Stats returns statistics about the claim store.
	Stats(ctx context.Context) (map[string]interface{}, error)

	// Close closes the repository connection.
	Close() error
}
