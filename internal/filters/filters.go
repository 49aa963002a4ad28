package filters

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownKey is returned when a toggle key names no flag
var ErrUnknownKey = errors.New("unknown filter key")

// Key names a toggleable filter flag: a category, AllowNetwork or HiddenItems
type Key string

const (
	Apps      Key = "apps"
	Shortcuts Key = "shortcuts"
	Contacts  Key = "contacts"
	Events    Key = "events"
	Files     Key = "files"
	Tools     Key = "tools"
	Websites  Key = "websites"
	Articles  Key = "articles"
	Places    Key = "places"

	AllowNetwork Key = "allowNetwork"
	HiddenItems  Key = "hiddenItems"
)

// Categories lists the nine category keys in display order
var Categories = []Key{Apps, Shortcuts, Contacts, Events, Files, Tools, Websites, Articles, Places}

// IsCategory reports whether k belongs to the category group
func (k Key) IsCategory() bool {
	for _, c := range Categories {
		if c == k {
			return true
		}
	}
	return false
}

// ParseKey resolves a key case-insensitively
func ParseKey(s string) (Key, error) {
	name := strings.TrimSpace(s)
	for _, k := range append([]Key{AllowNetwork, HiddenItems}, Categories...) {
		if strings.EqualFold(string(k), name) {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKey, s)
}

// State is the in-memory filter state of a search session
type State struct {
	AllowNetwork bool `json:"allowNetwork" mapstructure:"allowNetwork"`
	HiddenItems  bool `json:"hiddenItems" mapstructure:"hiddenItems"`

	Apps      bool `json:"apps" mapstructure:"apps"`
	Shortcuts bool `json:"shortcuts" mapstructure:"shortcuts"`
	Contacts  bool `json:"contacts" mapstructure:"contacts"`
	Events    bool `json:"events" mapstructure:"events"`
	Files     bool `json:"files" mapstructure:"files"`
	Tools     bool `json:"tools" mapstructure:"tools"`
	Websites  bool `json:"websites" mapstructure:"websites"`
	Articles  bool `json:"articles" mapstructure:"articles"`
	Places    bool `json:"places" mapstructure:"places"`
}

// Default returns every category enabled with network and hidden items off
func Default() State {
	s := State{}
	s.setAll(true)
	return s
}

func (s *State) flag(k Key) *bool {
	switch k {
	case AllowNetwork:
		return &s.AllowNetwork
	case HiddenItems:
		return &s.HiddenItems
	case Apps:
		return &s.Apps
	case Shortcuts:
		return &s.Shortcuts
	case Contacts:
		return &s.Contacts
	case Events:
		return &s.Events
	case Files:
		return &s.Files
	case Tools:
		return &s.Tools
	case Websites:
		return &s.Websites
	case Articles:
		return &s.Articles
	case Places:
		return &s.Places
	}
	return nil
}

func (s *State) setAll(v bool) {
	for _, c := range Categories {
		*s.flag(c) = v
	}
}

// Enabled reports the value of flag k; unknown keys are false
func (s State) Enabled(k Key) bool {
	if p := s.flag(k); p != nil {
		return *p
	}
	return false
}

// EnabledCategoriesCount returns how many categories are on
func (s State) EnabledCategoriesCount() int {
	n := 0
	for _, c := range Categories {
		if s.Enabled(c) {
			n++
		}
	}
	return n
}

// AllCategoriesEnabled reports whether all nine categories are on
func (s State) AllCategoriesEnabled() bool {
	return s.EnabledCategoriesCount() == len(Categories)
}

// Toggle returns the state after toggling k.
//
// AllowNetwork and HiddenItems simply flip. For a category: from the
// all-enabled state only k stays on; when k is the sole enabled category
// every category comes back on; otherwise k flips.
func (s State) Toggle(k Key) (State, error) {
	p := s.flag(k)
	if p == nil {
		return s, fmt.Errorf("%w: %q", ErrUnknownKey, k)
	}

	if !k.IsCategory() {
		*p = !*p
		return s, nil
	}

	switch {
	case s.AllCategoriesEnabled():
		s.setAll(false)
		*s.flag(k) = true
	case *p && s.EnabledCategoriesCount() == 1:
		s.setAll(true)
	default:
		*p = !*p
	}
	return s, nil
}

// EnabledCategories lists the categories that are on, in display order
func (s State) EnabledCategories() []Key {
	out := make([]Key, 0, len(Categories))
	for _, c := range Categories {
		if s.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}
