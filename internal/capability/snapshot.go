// Package capability adapts a claimant snapshot submitted by the game
// server into the engine's capability contracts. The game server resolves
// permissions, level, balance and free slots before calling; deliveries
// (granted items, commands to run, the amount charged) are collected here
// and returned to it for execution.
package capability

import (
	"fmt"

	"kitvault-api/internal/model"
	"kitvault-api/internal/service"
)

// Snapshot is one claimant's resolved state at request time.
type Snapshot struct {
	Level       int      `json:"level"`
	Permissions []string `json:"permissions"`

	// Balance is nil when the caller's currency ledger is unavailable;
	// the engine fails funds checks closed in that case.
	Balance *float64 `json:"balance"`

	FreeSlots int `json:"free_slots"`
}

// Delivery accumulates the side effects the game server must apply after a
// successful claim.
type Delivery struct {
	Charged         float64      `json:"charged"`
	Items           []model.Item `json:"items"`
	PlayerCommands  []string     `json:"player_commands"`
	ConsoleCommands []string     `json:"console_commands"`
}

// Adapter implements the engine capability contracts over a Snapshot,
// recording deliveries instead of performing them.
type Adapter struct {
	snapshot Snapshot
	perms    map[string]bool

	// Delivery holds everything collected during a claim.
	Delivery Delivery

	// allowConsole registers the elevated-command collector; when false
	// the engine sees no elevated runner and skips console commands.
	allowConsole bool
}

// New creates an adapter over a snapshot.
func New(snapshot Snapshot, allowConsole bool) *Adapter {
	perms := make(map[string]bool, len(snapshot.Permissions))
	for _, p := range snapshot.Permissions {
		perms[p] = true
	}
	return &Adapter{snapshot: snapshot, perms: perms, allowConsole: allowConsole}
}

// Capabilities bundles the adapter's capability views for the engine.
func (a *Adapter) Capabilities() service.Capabilities {
	caps := service.Capabilities{
		Permissions: permissionView{a},
		Levels:      levelView{a},
		Currency:    currencyView{a},
		Inventory:   inventoryView{a},
		Commands:    commandView{a},
	}
	if a.allowConsole {
		caps.Console = consoleView{a}
	}
	return caps
}

type permissionView struct{ a *Adapter }

func (v permissionView) Has(accountID, token string) bool {
	return v.a.perms[token]
}

type levelView struct{ a *Adapter }

func (v levelView) LevelOf(accountID string) int {
	return v.a.snapshot.Level
}

type currencyView struct{ a *Adapter }

func (v currencyView) Available() bool {
	return v.a.snapshot.Balance != nil
}

func (v currencyView) Has(accountID string, amount float64) bool {
	return v.a.snapshot.Balance != nil && *v.a.snapshot.Balance >= amount
}

// Withdraw records the charge for the game server to apply.
func (v currencyView) Withdraw(accountID string, amount float64) error {
	v.a.Delivery.Charged += amount
	return nil
}

func (v currencyView) Format(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

type inventoryView struct{ a *Adapter }

func (v inventoryView) FreeSlots(accountID string) int {
	return v.a.snapshot.FreeSlots
}

// Grant records an item for the game server to insert.
func (v inventoryView) Grant(accountID string, item model.Item) error {
	v.a.Delivery.Items = append(v.a.Delivery.Items, item)
	return nil
}

type commandView struct{ a *Adapter }

func (v commandView) RunAsAccount(account model.Account, command string) error {
	v.a.Delivery.PlayerCommands = append(v.a.Delivery.PlayerCommands, command)
	return nil
}

type consoleView struct{ a *Adapter }

func (v consoleView) RunElevated(command string) error {
	v.a.Delivery.ConsoleCommands = append(v.a.Delivery.ConsoleCommands, command)
	return nil
}
