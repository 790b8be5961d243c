package model

// ClaimResult is the outcome of a claim attempt or eligibility check.
// Everything except ClaimSuccess and ClaimError is an expected eligibility
// rejection, rendered to the user rather than logged as an error.
type ClaimResult string

const (
	ClaimSuccess           ClaimResult = "SUCCESS"
	ClaimNotFound          ClaimResult = "NOT_FOUND"
	ClaimNoPermission      ClaimResult = "NO_PERMISSION"
	ClaimInsufficientLevel ClaimResult = "INSUFFICIENT_LEVEL"
	ClaimInsufficientFunds ClaimResult = "INSUFFICIENT_FUNDS"
	ClaimAlreadyClaimed    ClaimResult = "ALREADY_CLAIMED"
	ClaimOnCooldown        ClaimResult = "ON_COOLDOWN"
	ClaimInventoryFull     ClaimResult = "INVENTORY_FULL"
	ClaimEmptyKit          ClaimResult = "EMPTY_KIT"
	ClaimError             ClaimResult = "ERROR"
)

// CreateResult is the outcome of creating a kit from captured holdings.
type CreateResult string

const (
	CreateSuccess       CreateResult = "SUCCESS"
	CreateAlreadyExists CreateResult = "ALREADY_EXISTS"
	CreateInvalidName   CreateResult = "INVALID_NAME"
	CreateEmptySource   CreateResult = "EMPTY_SOURCE"
	CreateError         CreateResult = "ERROR"
)

// CooldownExhausted is the RemainingCooldown sentinel for a one-time kit
// that has already been claimed: the kit can never be claimed again, which
// is distinct from 0 ("claimable now").
const CooldownExhausted int64 = -1
