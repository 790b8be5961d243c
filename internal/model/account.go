package model

// Account identifies a claimant. Name is the display name substituted for
// the {player} placeholder in reward commands.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
