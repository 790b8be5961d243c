package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kitvault-api/internal/model"
	"kitvault-api/internal/repository"
)

// Capability fakes. Each one records enough to assert on ordering and
// side effects.

type fakePerms map[string]bool

func (p fakePerms) Has(accountID, token string) bool { return p[token] }

type fakeLevels int

func (l fakeLevels) LevelOf(accountID string) int { return int(l) }

type fakeCurrency struct {
	available bool
	balance   float64
	withdrawn float64
	failNext  bool
}

func (c *fakeCurrency) Available() bool { return c.available }

func (c *fakeCurrency) Has(accountID string, amount float64) bool {
	return c.balance >= amount
}

func (c *fakeCurrency) Withdraw(accountID string, amount float64) error {
	if c.failNext {
		return errors.New("ledger write failed")
	}
	c.balance -= amount
	c.withdrawn += amount
	return nil
}

func (c *fakeCurrency) Format(amount float64) string { return "$" }

type fakeInventory struct {
	freeSlots int
	granted   []model.Item
	queried   bool
}

func (i *fakeInventory) FreeSlots(accountID string) int {
	i.queried = true
	return i.freeSlots
}

func (i *fakeInventory) Grant(accountID string, item model.Item) error {
	i.granted = append(i.granted, item)
	return nil
}

type fakeRunner struct {
	player  []string
	console []string
}

func (r *fakeRunner) RunAsAccount(account model.Account, command string) error {
	r.player = append(r.player, command)
	return nil
}

func (r *fakeRunner) RunElevated(command string) error {
	r.console = append(r.console, command)
	return nil
}

func allCaps(runner *fakeRunner) Capabilities {
	return Capabilities{
		Permissions: fakePerms{"kits.vip": true},
		Levels:      fakeLevels(10),
		Currency:    &fakeCurrency{available: true, balance: 1000},
		Inventory:   &fakeInventory{freeSlots: 36},
		Commands:    runner,
		Console:     runner,
	}
}

type claimFixture struct {
	svc     *ClaimService
	catalog *Catalog
	codec   *ItemCodec
	repo    *repository.SQLiteClaimRepository
	store   *repository.KitFileStore
}

func newClaimFixture(t *testing.T) *claimFixture {
	t.Helper()

	store, err := repository.NewKitFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewKitFileStore: %v", err)
	}
	repo, err := repository.NewSQLiteClaimRepository(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteClaimRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	codec := newTestCodec(t)
	catalog := NewCatalog(store, codec)
	return &claimFixture{
		svc:     NewClaimService(catalog, codec, repo),
		catalog: catalog,
		codec:   codec,
		repo:    repo,
		store:   store,
	}
}

// addKit encodes items into the definition, writes it and reloads the
// catalog.
func (f *claimFixture) addKit(t *testing.T, kit model.KitDefinition, items []model.Item) {
	t.Helper()
	if items != nil {
		payload, err := f.codec.EncodeItems(items)
		if err != nil {
			t.Fatalf("EncodeItems: %v", err)
		}
		kit.Items = payload
	}
	if err := f.store.Write(context.Background(), kit.Name, kit); err != nil {
		t.Fatalf("store.Write: %v", err)
	}
	if _, err := f.catalog.Reload(context.Background()); err != nil {
		t.Fatalf("Reload: %v", err)
	}
}

var player = model.Account{ID: "acct-1", Name: "Steve"}

func basicItems() []model.Item {
	return []model.Item{{Type: "apple", Count: 5}, {Type: "bread", Count: 3}}
}

func TestValidateUnknownKit(t *testing.T) {
	f := newClaimFixture(t)
	if got := f.svc.Validate(context.Background(), player, "nope", allCaps(&fakeRunner{})); got != model.ClaimNotFound {
		t.Errorf("Validate = %s, want %s", got, model.ClaimNotFound)
	}
}

func TestValidateRejections(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{
		Name:          "elite",
		Permission:    "kits.vip",
		LevelRequired: 20,
		Price:         500,
		ReBuyable:     true,
	}, basicItems())

	tests := []struct {
		name string
		caps Capabilities
		want model.ClaimResult
	}{
		{
			// Permission is checked before level even though both fail.
			name: "no permission",
			caps: Capabilities{Permissions: fakePerms{}, Levels: fakeLevels(1)},
			want: model.ClaimNoPermission,
		},
		{
			name: "nil permission checker fails closed",
			caps: Capabilities{Levels: fakeLevels(99)},
			want: model.ClaimNoPermission,
		},
		{
			name: "insufficient level",
			caps: Capabilities{Permissions: fakePerms{"kits.vip": true}, Levels: fakeLevels(19)},
			want: model.ClaimInsufficientLevel,
		},
		{
			name: "insufficient funds",
			caps: Capabilities{
				Permissions: fakePerms{"kits.vip": true},
				Levels:      fakeLevels(20),
				Currency:    &fakeCurrency{available: true, balance: 499.99},
			},
			want: model.ClaimInsufficientFunds,
		},
		{
			name: "ledger unavailable counts as insufficient",
			caps: Capabilities{
				Permissions: fakePerms{"kits.vip": true},
				Levels:      fakeLevels(20),
				Currency:    &fakeCurrency{available: false, balance: 1000},
			},
			want: model.ClaimInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.svc.Validate(context.Background(), player, "elite", tt.caps); got != tt.want {
				t.Errorf("Validate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateEmptyKit(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "hollow", ReBuyable: true}, nil)

	if got := f.svc.Validate(context.Background(), player, "hollow", allCaps(&fakeRunner{})); got != model.ClaimEmptyKit {
		t.Errorf("Validate = %s, want %s", got, model.ClaimEmptyKit)
	}
}

func TestClaimOneTimeKit(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "starter"}, basicItems())
	ctx := context.Background()

	runner := &fakeRunner{}
	caps := allCaps(runner)
	inv := caps.Inventory.(*fakeInventory)

	if got := f.svc.Claim(ctx, player, "starter", caps); got != model.ClaimSuccess {
		t.Fatalf("first Claim = %s, want %s", got, model.ClaimSuccess)
	}
	if len(inv.granted) != 2 {
		t.Errorf("granted %d items, want 2", len(inv.granted))
	}

	record, err := f.svc.Record(ctx, player.ID, "starter")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record == nil || record.ClaimCount != 1 {
		t.Fatalf("record after first claim: %+v", record)
	}

	if got := f.svc.Claim(ctx, player, "starter", caps); got != model.ClaimAlreadyClaimed {
		t.Errorf("second Claim = %s, want %s", got, model.ClaimAlreadyClaimed)
	}
	if got := f.svc.RemainingCooldown(ctx, player.ID, mustGet(t, f, "starter")); got != model.CooldownExhausted {
		t.Errorf("RemainingCooldown = %d, want %d", got, model.CooldownExhausted)
	}
}

func TestClaimCooldownCycle(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "daily", ReBuyable: true, CooldownSeconds: 3600}, basicItems())
	ctx := context.Background()

	base := time.Now()
	f.svc.now = func() time.Time { return base }

	caps := allCaps(&fakeRunner{})
	if got := f.svc.Claim(ctx, player, "daily", caps); got != model.ClaimSuccess {
		t.Fatalf("first Claim = %s", got)
	}

	// Half the cooldown elapsed.
	f.svc.now = func() time.Time { return base.Add(30 * time.Minute) }
	if got := f.svc.Claim(ctx, player, "daily", caps); got != model.ClaimOnCooldown {
		t.Errorf("mid-cooldown Claim = %s, want %s", got, model.ClaimOnCooldown)
	}
	remaining := f.svc.RemainingCooldown(ctx, player.ID, mustGet(t, f, "daily"))
	if remaining != (30 * time.Minute).Milliseconds() {
		t.Errorf("RemainingCooldown = %d, want %d", remaining, (30 * time.Minute).Milliseconds())
	}

	// Cooldown fully elapsed.
	f.svc.now = func() time.Time { return base.Add(time.Hour) }
	if got := f.svc.RemainingCooldown(ctx, player.ID, mustGet(t, f, "daily")); got != 0 {
		t.Errorf("expired RemainingCooldown = %d, want 0", got)
	}
	if got := f.svc.Claim(ctx, player, "daily", caps); got != model.ClaimSuccess {
		t.Errorf("post-cooldown Claim = %s, want %s", got, model.ClaimSuccess)
	}

	record, err := f.svc.Record(ctx, player.ID, "daily")
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record.ClaimCount != 2 {
		t.Errorf("ClaimCount = %d, want 2", record.ClaimCount)
	}
	if record.LastClaim != base.Add(time.Hour).UnixMilli() {
		t.Errorf("LastClaim = %d, want refresh to second claim time", record.LastClaim)
	}
}

func TestClaimChargesBeforeGranting(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "premium", Price: 250, ReBuyable: true}, basicItems())

	caps := allCaps(&fakeRunner{})
	currency := caps.Currency.(*fakeCurrency)

	if got := f.svc.Claim(context.Background(), player, "premium", caps); got != model.ClaimSuccess {
		t.Fatalf("Claim = %s", got)
	}
	if currency.withdrawn != 250 {
		t.Errorf("withdrawn = %v, want 250", currency.withdrawn)
	}
}

func TestClaimWithdrawalFailure(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "premium", Price: 250, ReBuyable: true}, basicItems())

	caps := allCaps(&fakeRunner{})
	caps.Currency.(*fakeCurrency).failNext = true
	inv := caps.Inventory.(*fakeInventory)

	if got := f.svc.Claim(context.Background(), player, "premium", caps); got != model.ClaimError {
		t.Fatalf("Claim = %s, want %s", got, model.ClaimError)
	}
	if len(inv.granted) != 0 {
		t.Error("items granted despite failed withdrawal")
	}
	if record, _ := f.svc.Record(context.Background(), player.ID, "premium"); record != nil {
		t.Error("claim recorded despite failed withdrawal")
	}
}

func TestClaimInventoryFull(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "bulk", ReBuyable: true}, basicItems())

	caps := allCaps(&fakeRunner{})
	caps.Inventory = &fakeInventory{freeSlots: 1}
	currency := caps.Currency.(*fakeCurrency)

	if got := f.svc.Claim(context.Background(), player, "bulk", caps); got != model.ClaimInventoryFull {
		t.Fatalf("Claim = %s, want %s", got, model.ClaimInventoryFull)
	}
	if currency.withdrawn != 0 {
		t.Error("funds withdrawn despite full inventory")
	}
}

func TestClaimCorruptPayload(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "broken", ReBuyable: true, Items: "%%%not-a-payload%%%"}, nil)

	caps := allCaps(&fakeRunner{})
	inv := caps.Inventory.(*fakeInventory)

	if got := f.svc.Claim(context.Background(), player, "broken", caps); got != model.ClaimEmptyKit {
		t.Fatalf("Claim = %s, want %s", got, model.ClaimEmptyKit)
	}
	if inv.queried {
		t.Error("inventory queried before the payload was decoded")
	}
}

func TestClaimRunsCommands(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{
		Name:            "cmd",
		ReBuyable:       true,
		PlayerCommands:  []string{"warp spawn", "tell {player} enjoy"},
		ConsoleCommands: []string{"broadcast {player} claimed a kit"},
	}, basicItems())

	runner := &fakeRunner{}
	if got := f.svc.Claim(context.Background(), player, "cmd", allCaps(runner)); got != model.ClaimSuccess {
		t.Fatalf("Claim = %s", got)
	}

	wantPlayer := []string{"warp spawn", "tell Steve enjoy"}
	if len(runner.player) != 2 || runner.player[0] != wantPlayer[0] || runner.player[1] != wantPlayer[1] {
		t.Errorf("player commands = %v, want %v", runner.player, wantPlayer)
	}
	if len(runner.console) != 1 || runner.console[0] != "broadcast Steve claimed a kit" {
		t.Errorf("console commands = %v", runner.console)
	}
}

func TestClaimSkipsConsoleWhenAbsent(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{
		Name:            "cmd",
		ReBuyable:       true,
		ConsoleCommands: []string{"broadcast hi"},
	}, basicItems())

	runner := &fakeRunner{}
	caps := allCaps(runner)
	caps.Console = nil

	if got := f.svc.Claim(context.Background(), player, "cmd", caps); got != model.ClaimSuccess {
		t.Fatalf("Claim = %s", got)
	}
	if len(runner.console) != 0 {
		t.Errorf("console commands ran without an elevated runner: %v", runner.console)
	}
}

func TestStatus(t *testing.T) {
	f := newClaimFixture(t)
	f.addKit(t, model.KitDefinition{Name: "daily", ReBuyable: true, CooldownSeconds: 60}, basicItems())
	ctx := context.Background()

	base := time.Now()
	f.svc.now = func() time.Time { return base }

	caps := allCaps(&fakeRunner{})
	result, remaining := f.svc.Status(ctx, player, "daily", caps)
	if result != model.ClaimSuccess || remaining != 0 {
		t.Errorf("Status before claim = (%s, %d)", result, remaining)
	}

	if got := f.svc.Claim(ctx, player, "daily", caps); got != model.ClaimSuccess {
		t.Fatalf("Claim = %s", got)
	}

	f.svc.now = func() time.Time { return base.Add(10 * time.Second) }
	result, remaining = f.svc.Status(ctx, player, "daily", caps)
	if result != model.ClaimOnCooldown {
		t.Errorf("Status result = %s, want %s", result, model.ClaimOnCooldown)
	}
	if remaining != (50 * time.Second).Milliseconds() {
		t.Errorf("Status remaining = %d, want %d", remaining, (50*time.Second).Milliseconds())
	}

	result, remaining = f.svc.Status(ctx, player, "ghost", caps)
	if result != model.ClaimNotFound || remaining != 0 {
		t.Errorf("Status for unknown kit = (%s, %d)", result, remaining)
	}
}

func TestFormatCooldown(t *testing.T) {
	tests := []struct {
		millis int64
		want   string
	}{
		{0, "ready"},
		{-5, "ready"},
		{model.CooldownExhausted, "ready"},
		{(2*time.Hour + 5*time.Minute + 30*time.Second).Milliseconds(), "2h 5m 30s"},
		{(90 * time.Second).Milliseconds(), "1m 30s"},
		{(45 * time.Second).Milliseconds(), "45s"},
		{(3 * time.Hour).Milliseconds(), "3h"},
	}
	for _, tt := range tests {
		if got := FormatCooldown(tt.millis); got != tt.want {
			t.Errorf("FormatCooldown(%d) = %q, want %q", tt.millis, got, tt.want)
		}
	}
}

func mustGet(t *testing.T, f *claimFixture, name string) model.KitDefinition {
	t.Helper()
	kit, ok := f.catalog.Get(name)
	if !ok {
		t.Fatalf("kit %q not in catalog", name)
	}
	return kit
}
