// Package favorites builds what the launcher shows for an empty query:
// pinned favorites, tag groups and the alphabetical list of all apps.
package favorites

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dshills/launchsearch/internal/filters"
	"github.com/dshills/launchsearch/internal/storage"
	"github.com/dshills/launchsearch/internal/weights"
	"github.com/dshills/launchsearch/pkg/types"
)

// AllTags selects every favorite regardless of tag
const AllTags int64 = 0

var (
	ErrItemIndexRequired = errors.New("favorites: item index is required")
	ErrStoreRequired     = errors.New("favorites: store is required")
	ErrWeightsRequired   = errors.New("favorites: weight snapshotter is required")
)

// ItemIndex lists the installed apps
type ItemIndex interface {
	ListApps(ctx context.Context) ([]types.AppInfo, error)
}

// Store holds favorites and tags. Both storage backends implement it.
type Store interface {
	ListFavorites(ctx context.Context) ([]storage.Favorite, error)
	ListTags(ctx context.Context) ([]*storage.Tag, error)
	ListTagMembers(ctx context.Context, tagID int64) ([]string, error)
}

// WeightSnapshotter provides the hidden set
type WeightSnapshotter interface {
	Snapshot(ctx context.Context) (weights.Snapshot, error)
}

// TagGroup is one tag with its favorite members
type TagGroup struct {
	ID   int64           `json:"id"`
	Name string          `json:"name"`
	Apps []types.AppInfo `json:"apps"`
}

// View is the empty-query screen
type View struct {
	Favorites   []types.AppInfo `json:"favorites"`
	Tags        []TagGroup      `json:"tags"`
	AllApps     []types.AppInfo `json:"all_apps"`
	SelectedTag int64           `json:"selected_tag"`
}

// Service builds views
type Service struct {
	apps    ItemIndex
	store   Store
	weights WeightSnapshotter
	logger  *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the logger for the service
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service
func New(apps ItemIndex, store Store, snap WeightSnapshotter, opts ...Option) (*Service, error) {
	switch {
	case apps == nil:
		return nil, ErrItemIndexRequired
	case store == nil:
		return nil, ErrStoreRequired
	case snap == nil:
		return nil, ErrWeightsRequired
	}
	s := &Service{apps: apps, store: store, weights: snap, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// View returns the favorites narrowed to tagID (AllTags for none), the
// tag groups sorted by name and every visible app sorted by label.
// Hidden apps are left out unless f has hiddenItems on. An unknown tag
// shows all favorites.
func (s *Service) View(ctx context.Context, f filters.State, bottomUp bool, tagID int64) (View, error) {
	apps, err := s.apps.ListApps(ctx)
	if err != nil {
		return View{}, fmt.Errorf("list apps: %w", err)
	}
	snap, err := s.weights.Snapshot(ctx)
	if err != nil {
		s.logger.Warn("weight snapshot failed", "err", err)
		snap = weights.EmptySnapshot()
	}
	visible := func(key string) bool {
		return f.HiddenItems || !snap.IsHidden(key)
	}

	byKey := make(map[string]types.AppInfo, len(apps))
	for _, app := range apps {
		byKey[app.Key] = app
	}

	favs, err := s.store.ListFavorites(ctx)
	if err != nil {
		return View{}, fmt.Errorf("list favorites: %w", err)
	}
	slices.SortStableFunc(favs, func(a, b storage.Favorite) int { return cmp.Compare(a.Position, b.Position) })

	favorites := []types.AppInfo{}
	for _, fav := range favs {
		app, ok := byKey[fav.Key]
		if !ok || !visible(app.Key) {
			continue
		}
		favorites = append(favorites, app)
	}

	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return View{}, fmt.Errorf("list tags: %w", err)
	}
	groups := make([]TagGroup, 0, len(tags))
	var selected map[string]bool
	for _, tag := range tags {
		members, err := s.store.ListTagMembers(ctx, tag.ID)
		if err != nil {
			return View{}, fmt.Errorf("list members of tag %d: %w", tag.ID, err)
		}
		set := make(map[string]bool, len(members))
		for _, m := range members {
			set[m] = true
		}
		if tag.ID == tagID {
			selected = set
		}

		group := TagGroup{ID: tag.ID, Name: tag.Name, Apps: []types.AppInfo{}}
		for _, app := range favorites {
			if set[app.Key] {
				group.Apps = append(group.Apps, app)
			}
		}
		groups = append(groups, group)
	}
	slices.SortStableFunc(groups, func(a, b TagGroup) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})

	view := View{Favorites: favorites, Tags: groups, SelectedTag: AllTags}
	if tagID != AllTags && selected != nil {
		view.SelectedTag = tagID
		view.Favorites = slices.DeleteFunc(slices.Clone(favorites), func(app types.AppInfo) bool {
			return !selected[app.Key]
		})
	}

	all := make([]types.AppInfo, 0, len(apps))
	for _, app := range apps {
		if visible(app.Key) {
			all = append(all, app)
		}
	}
	slices.SortStableFunc(all, func(a, b types.AppInfo) int {
		return cmp.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label))
	})
	if bottomUp {
		slices.Reverse(all)
	}
	view.AllApps = all
	return view, nil
}
