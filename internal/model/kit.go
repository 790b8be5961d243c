package model

import "strings"

// DefaultIcon is used when a kit declares no icon or an unknown one.
const DefaultIcon = "container"

// MaxKitNameLength is the longest allowed normalized kit name.
const MaxKitNameLength = 32

// validIcons is the set of icon tokens the browser UI knows how to render.
var validIcons = map[string]bool{
	"container": true, "chest": true, "barrel": true, "crate": true,
	"sword": true, "axe": true, "pickaxe": true, "shovel": true, "bow": true,
	"arrow": true, "shield": true, "helmet": true, "chestplate": true,
	"leggings": true, "boots": true, "potion": true, "apple": true,
	"bread": true, "fish": true, "ingot": true, "gem": true, "coin": true,
	"book": true, "scroll": true, "map": true, "key": true, "totem": true,
}

// KitDefinition describes a named, claimable bundle of rewards.
// Name is always lowercase and matches the storage key it was loaded from;
// it is never taken from user-editable file content.
type KitDefinition struct {
	Name            string   `json:"name" yaml:"-"`
	DisplayName     string   `json:"display_name" yaml:"displayName"`
	Description     []string `json:"description,omitempty" yaml:"description"`
	Icon            string   `json:"icon" yaml:"icon"`
	Price           float64  `json:"price" yaml:"price"`
	LevelRequired   int      `json:"level_required" yaml:"levelRequired"`
	Permission      string   `json:"permission,omitempty" yaml:"permission"`
	ReBuyable       bool     `json:"re_buyable" yaml:"reBuyable"`
	CooldownSeconds int64    `json:"cooldown" yaml:"cooldown"`
	PlayerCommands  []string `json:"player_commands,omitempty" yaml:"playerCommands"`
	ConsoleCommands []string `json:"console_commands,omitempty" yaml:"consoleCommands"`

	// Items is the encoded payload string; empty means the kit grants no items.
	Items string `json:"-" yaml:"items"`
}

// IsFree reports whether claiming the kit costs nothing.
func (k *KitDefinition) IsFree() bool {
	return k.Price <= 0
}

// IsOneTime reports whether the kit can be claimed at most once per account.
func (k *KitDefinition) IsOneTime() bool {
	return !k.ReBuyable
}

// HasPermission reports whether the kit requires a permission token.
func (k *KitDefinition) HasPermission() bool {
	return k.Permission != ""
}

// HasLevelRequirement reports whether the kit requires a minimum level.
func (k *KitDefinition) HasLevelRequirement() bool {
	return k.LevelRequired > 0
}

// HasItems reports whether the kit carries an item payload.
func (k *KitDefinition) HasItems() bool {
	return k.Items != ""
}

// Clone returns a deep copy so callers cannot mutate catalog state through
// a returned definition.
func (k *KitDefinition) Clone() KitDefinition {
	c := *k
	c.Description = append([]string(nil), k.Description...)
	c.PlayerCommands = append([]string(nil), k.PlayerCommands...)
	c.ConsoleCommands = append([]string(nil), k.ConsoleCommands...)
	return c
}

// NormalizeKitName trims and lowercases a kit name. The second return value
// is false if the result is empty or longer than MaxKitNameLength.
func NormalizeKitName(name string) (string, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" || len(n) > MaxKitNameLength {
		return n, false
	}
	return n, true
}

// ValidIcon reports whether token is a known icon identifier.
func ValidIcon(token string) bool {
	return validIcons[strings.ToLower(token)]
}

// NormalizeIcon lowercases token and falls back to DefaultIcon when it is
// not a known icon identifier.
func NormalizeIcon(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if !validIcons[t] {
		return DefaultIcon
	}
	return t
}
