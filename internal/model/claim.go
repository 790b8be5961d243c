package model

// ClaimRecord tracks one account's claim history for one kit: the most
// recent claim time and the total number of successful claims. At most one
// record exists per (account, kit) pair. Records are never deleted, even
// when the kit itself is later removed.
type ClaimRecord struct {
	ID         string `json:"id"`
	AccountID  string `json:"account_id"`
	KitName    string `json:"kit_name"`
	LastClaim  int64  `json:"last_claim"` // epoch milliseconds
	ClaimCount int    `json:"claim_count"`
}
