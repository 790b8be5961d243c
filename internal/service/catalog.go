package service

import (
	"context"
	"log"
	"strings"
	"sync"

	"kitvault-api/internal/model"
	"kitvault-api/internal/repository"
)

// Catalog holds the loaded kit definitions keyed by normalized name, with
// insertion order preserved for listing. The map is rebuilt and swapped
// wholesale on reload so concurrent readers never observe a half-updated
// view.
type Catalog struct {
	store repository.KitStore
	codec *ItemCodec

	mu    sync.RWMutex
	kits  map[string]*model.KitDefinition
	order []string
}

// NewCatalog creates an empty catalog over the given definition store.
// Call Reload to populate it.
func NewCatalog(store repository.KitStore, codec *ItemCodec) *Catalog {
	return &Catalog{
		store: store,
		codec: codec,
		kits:  make(map[string]*model.KitDefinition),
	}
}

// Reload replaces the entire in-memory mapping with definitions read from
// the store and returns how many loaded. Zero usable entries is reported
// but is not an error.
func (c *Catalog) Reload(ctx context.Context) (int, error) {
	entries, err := c.store.List(ctx)
	if err != nil {
		return 0, err
	}

	kits := make(map[string]*model.KitDefinition, len(entries))
	order := make([]string, 0, len(entries))
	for _, entry := range entries {
		name, ok := model.NormalizeKitName(entry.Name)
		if !ok {
			log.Printf("[Catalog] skipping kit with invalid name %q", entry.Name)
			continue
		}
		if _, dup := kits[name]; dup {
			log.Printf("[Catalog] skipping duplicate kit %q", name)
			continue
		}
		kit := entry.Kit
		kit.Name = name
		kits[name] = &kit
		order = append(order, name)
	}

	c.mu.Lock()
	c.kits = kits
	c.order = order
	c.mu.Unlock()

	if len(order) == 0 {
		log.Printf("[Catalog] no kit definitions loaded")
	} else {
		log.Printf("[Catalog] loaded %d kits", len(order))
	}
	return len(order), nil
}

// Get looks up a kit case-insensitively. The returned definition is a copy;
// mutating it does not affect the catalog.
func (c *Catalog) Get(name string) (model.KitDefinition, bool) {
	key := strings.ToLower(strings.TrimSpace(name))

	c.mu.RLock()
	defer c.mu.RUnlock()

	kit, ok := c.kits[key]
	if !ok {
		return model.KitDefinition{}, false
	}
	return kit.Clone(), true
}

// All returns copies of every kit in stable insertion order.
func (c *Catalog) All() []model.KitDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]model.KitDefinition, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.kits[name].Clone())
	}
	return out
}

// Names returns every kit name in insertion order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return append([]string(nil), c.order...)
}

// Count returns the number of loaded kits.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.order)
}

// Available returns the kits visible to an account: those with no
// permission requirement or whose token the account holds.
func (c *Catalog) Available(accountID string, perms PermissionChecker) []model.KitDefinition {
	all := c.All()
	out := all[:0]
	for _, kit := range all {
		if !kit.HasPermission() || (perms != nil && perms.Has(accountID, kit.Permission)) {
			out = append(out, kit)
		}
	}
	return out
}

// Create persists a new kit whose payload is built from the given captured
// items. The icon is derived from the first item's type. The kit is
// inserted into the map only after successful persistence.
func (c *Catalog) Create(ctx context.Context, name string, items []model.Item) model.CreateResult {
	normalized, ok := model.NormalizeKitName(name)
	if !ok {
		return model.CreateInvalidName
	}
	if len(items) == 0 {
		return model.CreateEmptySource
	}

	c.mu.RLock()
	_, exists := c.kits[normalized]
	c.mu.RUnlock()
	if exists {
		return model.CreateAlreadyExists
	}

	payload, err := c.codec.EncodeItems(items)
	if err != nil {
		log.Printf("[Catalog] failed to encode items for kit %s: %v", normalized, err)
		return model.CreateError
	}

	kit := model.KitDefinition{
		Name:        normalized,
		DisplayName: strings.TrimSpace(name),
		Icon:        model.NormalizeIcon(items[0].Type),
		Items:       payload,
	}

	if err := c.store.Write(ctx, normalized, kit); err != nil {
		log.Printf("[Catalog] failed to save kit %s: %v", normalized, err)
		return model.CreateError
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.kits[normalized]; dup {
		// Lost a race with a concurrent create of the same name.
		return model.CreateAlreadyExists
	}
	c.kits[normalized] = &kit
	c.order = append(c.order, normalized)
	return model.CreateSuccess
}

// Delete removes a kit from the map and the backing store. Returns false
// if the kit is absent.
func (c *Catalog) Delete(ctx context.Context, name string) bool {
	normalized := strings.ToLower(strings.TrimSpace(name))

	c.mu.Lock()
	_, exists := c.kits[normalized]
	if !exists {
		c.mu.Unlock()
		return false
	}
	delete(c.kits, normalized)
	for i, n := range c.order {
		if n == normalized {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if err := c.store.Delete(ctx, normalized); err != nil {
		log.Printf("[Catalog] failed to delete kit file %s: %v", normalized, err)
	}
	return true
}

// SaveItems re-encodes and persists a kit's item payload. Fails closed: on
// encode or persistence failure the prior state is left untouched and false
// is returned.
func (c *Catalog) SaveItems(ctx context.Context, name string, items []model.Item) bool {
	kit, ok := c.Get(name)
	if !ok {
		return false
	}

	payload, err := c.codec.EncodeItems(items)
	if err != nil {
		log.Printf("[Catalog] failed to encode items for kit %s: %v", kit.Name, err)
		return false
	}
	kit.Items = payload

	if err := c.store.Write(ctx, kit.Name, kit); err != nil {
		log.Printf("[Catalog] failed to save kit %s: %v", kit.Name, err)
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.kits[kit.Name]; ok {
		existing.Items = payload
	}
	return true
}
