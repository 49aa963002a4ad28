// Package platform provides the launcher's view of the host: the installed
// apps catalog, their shortcuts, and a gateway that turns launches and
// actions into opened URIs.
package platform

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dshills/launchsearch/pkg/types"
)

var (
	ErrUnknownApp      = errors.New("platform: unknown app")
	ErrUnknownShortcut = errors.New("platform: unknown shortcut")
	ErrDuplicateApp    = errors.New("platform: duplicate app key")
)

// catalogFile is the on-disk catalog format
type catalogFile struct {
	Apps []catalogApp `yaml:"apps"`
}

type catalogApp struct {
	Key       string            `yaml:"key"`
	Label     string            `yaml:"label"`
	Target    string            `yaml:"target"` // what the opener receives, defaults to key
	Shortcuts []catalogShortcut `yaml:"shortcuts"`
}

type catalogShortcut struct {
	types.ShortcutRef `yaml:",inline"`
	Target            string `yaml:"target"`
}

// Catalog is the installed apps index, loaded from a YAML file.
// It serves as both ItemIndex and ShortcutProvider.
type Catalog struct {
	fs   afero.Fs
	path string

	mu   sync.RWMutex
	apps []catalogApp
	byID map[string]int
}

// NewCatalog loads the catalog at path from fs.
// An empty path yields an empty catalog.
func NewCatalog(fs afero.Fs, path string) (*Catalog, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	c := &Catalog{fs: fs, path: path, byID: map[string]int{}}
	if path == "" {
		return c, nil
	}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewOsCatalog loads the catalog from the real filesystem
func NewOsCatalog(path string) (*Catalog, error) {
	return NewCatalog(afero.NewOsFs(), path)
}

// Reload re-reads the catalog file
func (c *Catalog) Reload() error {
	if c.path == "" {
		return nil
	}
	content, err := afero.ReadFile(c.fs, c.path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(content, &file); err != nil {
		return fmt.Errorf("parse catalog %s: %w", c.path, err)
	}

	byID := make(map[string]int, len(file.Apps))
	for i, app := range file.Apps {
		if app.Key == "" {
			return fmt.Errorf("parse catalog %s: app %d: %w", c.path, i, types.ErrEmptyKey)
		}
		if _, dup := byID[app.Key]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateApp, app.Key)
		}
		if app.Label == "" {
			file.Apps[i].Label = app.Key
		}
		for j := range app.Shortcuts {
			file.Apps[i].Shortcuts[j].OwnerKey = app.Key
		}
		byID[app.Key] = i
	}

	c.mu.Lock()
	c.apps = file.Apps
	c.byID = byID
	c.mu.Unlock()
	return nil
}

// ListApps returns every app in file order
func (c *Catalog) ListApps(_ context.Context) ([]types.AppInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.AppInfo, len(c.apps))
	for i, app := range c.apps {
		out[i] = types.AppInfo{Key: app.Key, Label: app.Label}
	}
	return out, nil
}

// ListShortcuts returns the shortcuts published by ownerKey
func (c *Catalog) ListShortcuts(_ context.Context, ownerKey string) ([]types.ShortcutRef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[ownerKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownApp, ownerKey)
	}
	out := make([]types.ShortcutRef, len(c.apps[i].Shortcuts))
	for j, sc := range c.apps[i].Shortcuts {
		out[j] = sc.ShortcutRef
	}
	return out, nil
}

// App looks an app up by key
func (c *Catalog) App(key string) (types.AppInfo, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[key]
	if !ok {
		return types.AppInfo{}, false
	}
	return types.AppInfo{Key: c.apps[i].Key, Label: c.apps[i].Label}, true
}

// FindByKeyword returns the first app whose key contains one of keywords, case-insensitively
func (c *Catalog) FindByKeyword(keywords ...string) (types.AppInfo, bool) {
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, app := range c.apps {
		key := strings.ToLower(app.Key)
		if slices.ContainsFunc(lower, func(k string) bool { return strings.Contains(key, k) }) {
			return types.AppInfo{Key: app.Key, Label: app.Label}, true
		}
	}
	return types.AppInfo{}, false
}

// appTarget returns what the opener receives to launch key
func (c *Catalog) appTarget(key string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownApp, key)
	}
	if t := c.apps[i].Target; t != "" {
		return t, nil
	}
	return key, nil
}

// shortcutTarget returns what the opener receives to launch a shortcut.
// Without an explicit target the owner app is opened.
func (c *Catalog) shortcutTarget(ownerKey, id string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.byID[ownerKey]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownApp, ownerKey)
	}
	app := c.apps[i]
	for _, sc := range app.Shortcuts {
		if sc.ID != id {
			continue
		}
		switch {
		case sc.Target != "":
			return sc.Target, nil
		case app.Target != "":
			return app.Target, nil
		}
		return app.Key, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownShortcut, types.ShortcutKey(ownerKey, id))
}
