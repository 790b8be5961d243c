package service

import "kitvault-api/internal/model"

// The engine does not own permissions, levels, currency, inventory or
// command execution; the host resolves those. Each contract is narrow on
// purpose: the engine only ever asks the questions below.

// PermissionChecker answers whether an account holds a permission token.
type PermissionChecker interface {
	Has(accountID, token string) bool
}

// LevelProvider reports an account's level.
type LevelProvider interface {
	LevelOf(accountID string) int
}

// CurrencyLedger is the external currency capability. Available reports
// whether the ledger is reachable at all; an unavailable ledger is treated
// as insufficient funds (fail closed).
type CurrencyLedger interface {
	Available() bool
	Has(accountID string, amount float64) bool
	Withdraw(accountID string, amount float64) error
	Format(amount float64) string
}

// InventoryAccess is the external inventory capability: a free-slot count
// and an insert.
type InventoryAccess interface {
	FreeSlots(accountID string) int
	Grant(accountID string, item model.Item) error
}

// CommandRunner executes a reward command as the claiming account.
type CommandRunner interface {
	RunAsAccount(account model.Account, command string) error
}

// ElevatedRunner executes a reward command as the console/elevated actor.
// It is optional; a claim with no registered elevated runner simply skips
// console commands.
type ElevatedRunner interface {
	RunElevated(command string) error
}

// Capabilities bundles the external capability answers for one claimant.
// The validator is a pure function of these plus catalog and history state,
// so preview and claim paths can never disagree.
type Capabilities struct {
	Permissions PermissionChecker
	Levels      LevelProvider
	Currency    CurrencyLedger
	Inventory   InventoryAccess
	Commands    CommandRunner
	Console     ElevatedRunner
}
