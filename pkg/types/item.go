package types

import "strings"

// ItemKind identifies what a searchable item launches
type ItemKind string

const (
	KindApp      ItemKind = "app"
	KindShortcut ItemKind = "shortcut"
)

// Valid reports whether k is a known item kind
func (k ItemKind) Valid() bool {
	return k == KindApp || k == KindShortcut
}

// shortcutKeyPrefix is part of the persisted key format and must not change.
const shortcutKeyPrefix = "shortcut:"

// AppInfo is an installed app as reported by the item index
type AppInfo struct {
	Key   string `json:"key" yaml:"key"` // stable package identifier
	Label string `json:"label" yaml:"label"`
}

// ShortcutRef is an app shortcut as reported by the shortcut provider
type ShortcutRef struct {
	OwnerKey   string `json:"owner" yaml:"-"`
	ID         string `json:"id" yaml:"id"`
	ShortLabel string `json:"short_label" yaml:"shortLabel"`
	LongLabel  string `json:"long_label,omitempty" yaml:"longLabel"`
}

// Key returns the synthetic item key of the shortcut
func (s ShortcutRef) Key() string {
	return ShortcutKey(s.OwnerKey, s.ID)
}

// ShortcutKey builds the synthetic key "shortcut:<ownerKey>:<shortcutId>".
// The key doubles as the weight lookup key, so the format is fixed.
func ShortcutKey(ownerKey, shortcutID string) string {
	return shortcutKeyPrefix + ownerKey + ":" + shortcutID
}

// ParseShortcutKey splits a synthetic shortcut key into owner and shortcut id.
// Owner keys never contain ':' while shortcut ids may.
func ParseShortcutKey(key string) (ownerKey, shortcutID string, ok bool) {
	rest, found := strings.CutPrefix(key, shortcutKeyPrefix)
	if !found {
		return "", "", false
	}
	ownerKey, shortcutID, found = strings.Cut(rest, ":")
	if !found || ownerKey == "" || shortcutID == "" {
		return "", "", false
	}
	return ownerKey, shortcutID, true
}
