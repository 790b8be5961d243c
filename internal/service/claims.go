package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"kitvault-api/internal/model"
	"kitvault-api/internal/repository"
	"kitvault-api/pkg/uid"
)

// ClaimService runs the eligibility chain and the delivery sequence.
// Claims for the same account are mutually exclusive; the eligibility chain
// itself (not caller-side debouncing) is what makes double submission safe.
type ClaimService struct {
	catalog *Catalog
	codec   *ItemCodec
	records repository.ClaimRepository

	// now is swappable for cooldown tests.
	now func() time.Time

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewClaimService creates a new claim service.
func NewClaimService(catalog *Catalog, codec *ItemCodec, records repository.ClaimRepository) *ClaimService {
	return &ClaimService{
		catalog: catalog,
		codec:   codec,
		records: records,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// accountLock returns the mutex serializing claims for one account.
func (s *ClaimService) accountLock(accountID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

// Validate runs the eligibility chain without side effects and returns
// ClaimSuccess or the first blocking reason. The claim path runs exactly
// this chain again before delivering, so a preview can never disagree with
// the outcome.
func (s *ClaimService) Validate(ctx context.Context, account model.Account, kitName string, caps Capabilities) model.ClaimResult {
	kit, ok := s.catalog.Get(kitName)
	if !ok {
		return model.ClaimNotFound
	}
	return s.validate(ctx, account, &kit, caps)
}

// validate checks stages 2-6 of the chain in fixed order: permission,
// level, funds, history/cooldown, payload presence. The order is a
// contract; the first failing stage is the reported reason.
func (s *ClaimService) validate(ctx context.Context, account model.Account, kit *model.KitDefinition, caps Capabilities) model.ClaimResult {
	if kit.HasPermission() {
		if caps.Permissions == nil || !caps.Permissions.Has(account.ID, kit.Permission) {
			return model.ClaimNoPermission
		}
	}

	if kit.HasLevelRequirement() {
		if caps.Levels == nil || caps.Levels.LevelOf(account.ID) < kit.LevelRequired {
			return model.ClaimInsufficientLevel
		}
	}

	if !kit.IsFree() && !s.canAfford(account.ID, kit.Price, caps.Currency) {
		return model.ClaimInsufficientFunds
	}

	record, err := s.findRecord(ctx, account.ID, kit.Name)
	if err != nil {
		log.Printf("[ClaimService] failed to read claim history for %s/%s: %v", account.ID, kit.Name, err)
		return model.ClaimError
	}
	if record != nil {
		if kit.IsOneTime() {
			return model.ClaimAlreadyClaimed
		}
		if s.remainingMillis(record, kit) > 0 {
			return model.ClaimOnCooldown
		}
	}

	if !kit.HasItems() {
		return model.ClaimEmptyKit
	}
	return model.ClaimSuccess
}

// canAfford treats an absent or unavailable currency capability as
// insufficient funds.
func (s *ClaimService) canAfford(accountID string, price float64, currency CurrencyLedger) bool {
	return currency != nil && currency.Available() && currency.Has(accountID, price)
}

// Claim re-validates and then delivers: withdraw funds, grant items, run
// reward commands, update claim history. Validation failures short-circuit
// before any mutation; once the withdrawal succeeds the claim runs to
// completion, and command or history-write failures are logged rather than
// reported as a failed claim.
func (s *ClaimService) Claim(ctx context.Context, account model.Account, kitName string, caps Capabilities) model.ClaimResult {
	lock := s.accountLock(account.ID)
	lock.Lock()
	defer lock.Unlock()

	kit, ok := s.catalog.Get(kitName)
	if !ok {
		return model.ClaimNotFound
	}

	if result := s.validate(ctx, account, &kit, caps); result != model.ClaimSuccess {
		return result
	}

	// A corrupt payload is reported as an empty kit, before the inventory
	// capability is ever queried.
	items, err := s.codec.DecodeItems(kit.Items)
	if err != nil {
		log.Printf("[ClaimService] failed to decode payload for kit %s: %v", kit.Name, err)
		return model.ClaimEmptyKit
	}
	if len(items) == 0 {
		return model.ClaimEmptyKit
	}

	if caps.Inventory == nil || caps.Inventory.FreeSlots(account.ID) < len(items) {
		return model.ClaimInventoryFull
	}

	// Charge before granting. There is no compensating rollback past this
	// point; if the ledger vanished since validation the claim fails here,
	// before anything account-visible has happened.
	if !kit.IsFree() {
		if caps.Currency == nil || !caps.Currency.Available() {
			log.Printf("[ClaimService] currency capability unavailable while claiming %s for %s", kit.Name, account.ID)
			return model.ClaimError
		}
		if err := caps.Currency.Withdraw(account.ID, kit.Price); err != nil {
			log.Printf("[ClaimService] withdrawal failed for %s claiming %s: %v", account.ID, kit.Name, err)
			return model.ClaimError
		}
	}

	for _, item := range items {
		if err := caps.Inventory.Grant(account.ID, item.Clone()); err != nil {
			log.Printf("[ClaimService] failed to grant %s to %s: %v", item.Type, account.ID, err)
		}
	}

	s.runCommands(account, &kit, caps)

	if err := s.updateRecord(ctx, account.ID, kit.Name); err != nil {
		log.Printf("[ClaimService] failed to update claim history for %s/%s: %v", account.ID, kit.Name, err)
	}
	return model.ClaimSuccess
}

// runCommands executes player-context then elevated-context reward
// commands, substituting the {player} placeholder. Command failures are
// logged, never propagated: the claim is already committed.
func (s *ClaimService) runCommands(account model.Account, kit *model.KitDefinition, caps Capabilities) {
	if caps.Commands != nil {
		for _, cmd := range kit.PlayerCommands {
			processed := strings.ReplaceAll(cmd, "{player}", account.Name)
			if err := caps.Commands.RunAsAccount(account, processed); err != nil {
				log.Printf("[ClaimService] player command %q failed: %v", processed, err)
			}
		}
	}

	// No elevated runner registered is not an error; skip entirely.
	if caps.Console == nil {
		return
	}
	for _, cmd := range kit.ConsoleCommands {
		processed := strings.ReplaceAll(cmd, "{player}", account.Name)
		if err := caps.Console.RunElevated(processed); err != nil {
			log.Printf("[ClaimService] console command %q failed: %v", processed, err)
		}
	}
}

// updateRecord inserts a first-claim record or refreshes an existing one.
func (s *ClaimService) updateRecord(ctx context.Context, accountID, kitName string) error {
	existing, err := s.findRecord(ctx, accountID, kitName)
	if err != nil {
		return err
	}

	nowMillis := s.now().UnixMilli()
	if existing != nil {
		existing.LastClaim = nowMillis
		existing.ClaimCount++
		return s.records.Update(ctx, existing)
	}

	return s.records.Insert(ctx, &model.ClaimRecord{
		ID:         uid.New(),
		AccountID:  accountID,
		KitName:    kitName,
		LastClaim:  nowMillis,
		ClaimCount: 1,
	})
}

// Record returns the account's claim record for a kit, or nil if it has
// never claimed it.
func (s *ClaimService) Record(ctx context.Context, accountID, kitName string) (*model.ClaimRecord, error) {
	return s.findRecord(ctx, accountID, kitName)
}

func (s *ClaimService) findRecord(ctx context.Context, accountID, kitName string) (*model.ClaimRecord, error) {
	records, err := s.records.FindByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying claim records: %w", err)
	}
	for i := range records {
		if strings.EqualFold(records[i].KitName, kitName) {
			return &records[i], nil
		}
	}
	return nil, nil
}

// RemainingCooldown returns the milliseconds until the account may claim
// the kit again: CooldownExhausted (-1) for a one-time kit already claimed,
// 0 if claimable now, otherwise the clamped remaining time.
func (s *ClaimService) RemainingCooldown(ctx context.Context, accountID string, kit model.KitDefinition) int64 {
	record, err := s.findRecord(ctx, accountID, kit.Name)
	if err != nil {
		log.Printf("[ClaimService] failed to read claim history for %s/%s: %v", accountID, kit.Name, err)
		return 0
	}

	if kit.IsOneTime() {
		if record != nil {
			return model.CooldownExhausted
		}
		return 0
	}

	if record == nil {
		return 0
	}
	return s.remainingMillis(record, &kit)
}

func (s *ClaimService) remainingMillis(record *model.ClaimRecord, kit *model.KitDefinition) int64 {
	cooldownEnd := record.LastClaim + kit.CooldownSeconds*1000
	remaining := cooldownEnd - s.now().UnixMilli()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Status runs the preview path: the same eligibility chain as Claim plus
// the remaining-cooldown figure for display.
func (s *ClaimService) Status(ctx context.Context, account model.Account, kitName string, caps Capabilities) (model.ClaimResult, int64) {
	kit, ok := s.catalog.Get(kitName)
	if !ok {
		return model.ClaimNotFound, 0
	}
	result := s.validate(ctx, account, &kit, caps)
	return result, s.RemainingCooldown(ctx, account.ID, kit)
}

// FormatCooldown renders a remaining-cooldown duration for display:
// "ready" when claimable, otherwise hours/minutes/seconds.
func FormatCooldown(millis int64) string {
	if millis <= 0 {
		return "ready"
	}

	d := time.Duration(millis) * time.Millisecond
	hours := int64(d.Hours())
	minutes := int64(d.Minutes()) % 60
	seconds := int64(d.Seconds()) % 60

	var sb strings.Builder
	if hours > 0 {
		fmt.Fprintf(&sb, "%dh ", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&sb, "%dm ", minutes)
	}
	if seconds > 0 || sb.Len() == 0 {
		fmt.Fprintf(&sb, "%ds", seconds)
	}
	return strings.TrimSpace(sb.String())
}
