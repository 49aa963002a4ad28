package weights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/dshills/launchsearch/internal/scoring"
	"github.com/dshills/launchsearch/internal/storage"
	"github.com/dshills/launchsearch/pkg/types"
)

// Update rule constants: new = min(1, clamp(old)*Decay + Boost)
const (
	Decay = 0.85
	Boost = 0.15
)

// ErrRepositoryRequired is returned when no repository is given
var ErrRepositoryRequired = errors.New("weights: repository is required")

// Repository is the persistence the store needs. Both storage backends implement it.
type Repository interface {
	GetItem(ctx context.Context, key string) (*storage.Item, error)
	CreateItem(ctx context.Context, item *storage.Item) error
	UpdateItemUsage(ctx context.Context, key string, launchCount int, weight float64) error
	SetHidden(ctx context.Context, key string, kind types.ItemKind, hidden bool) error
	ListItems(ctx context.Context) ([]*storage.Item, error)
}

// Store is the only writer of usage weights
type Store struct {
	repo   Repository
	logger *slog.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a weight store over repo
func NewStore(repo Repository, opts ...Option) (*Store, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	s := &Store{repo: repo, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// NextWeight applies the launch update rule to a previous weight
func NextWeight(old float64) float64 {
	return math.Min(1, scoring.ClampWeight(old)*Decay+Boost)
}

// Get returns the clamped weight of key, 0 when the item is unknown
func (s *Store) Get(ctx context.Context, key string) (float64, error) {
	item, err := s.repo.GetItem(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get weight %s: %w", key, err)
	}
	return scoring.ClampOptional(item.Weight), nil
}

// RecordLaunch bumps the launch counter and weight of key, creating the
// item with counter 1 and weight Boost on first launch. It returns the new weight.
//
// Launches of the same key are expected to be serialized by the caller.
func (s *Store) RecordLaunch(ctx context.Context, key string, kind types.ItemKind) (float64, error) {
	if key == "" {
		return 0, types.ErrEmptyKey
	}

	item, err := s.repo.GetItem(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		w := NextWeight(0)
		createErr := s.repo.CreateItem(ctx, &storage.Item{Key: key, Kind: kind, LaunchCount: 1, Weight: &w})
		if createErr == nil {
			s.logger.Debug("created item on first launch", "key", key, "kind", kind, "weight", w)
			return w, nil
		}
		if !errors.Is(createErr, storage.ErrAlreadyExists) {
			return 0, fmt.Errorf("record launch %s: %w", key, createErr)
		}
		// Created concurrently (for example by SetHidden); fall through to the update path.
		item, err = s.repo.GetItem(ctx, key)
	}
	if err != nil {
		return 0, fmt.Errorf("record launch %s: %w", key, err)
	}

	w := NextWeight(scoring.ClampOptional(item.Weight))
	if err := s.repo.UpdateItemUsage(ctx, key, item.LaunchCount+1, w); err != nil {
		return 0, fmt.Errorf("record launch %s: %w", key, err)
	}
	s.logger.Debug("recorded launch", "key", key, "launches", item.LaunchCount+1, "weight", w)
	return w, nil
}

// SetHidden hides or shows an item
func (s *Store) SetHidden(ctx context.Context, key string, kind types.ItemKind, hidden bool) error {
	if err := s.repo.SetHidden(ctx, key, kind, hidden); err != nil {
		return fmt.Errorf("set hidden %s: %w", key, err)
	}
	return nil
}

// Snapshot is a point-in-time copy of all weights and the hidden set.
// A search pass reads weights only from its snapshot.
type Snapshot struct {
	Weights map[string]float64
	Hidden  map[string]bool
}

// Weight returns the clamped weight of key, 0 when unknown
func (s Snapshot) Weight(key string) float64 {
	return scoring.ClampWeight(s.Weights[key])
}

// IsHidden reports whether key is hidden
func (s Snapshot) IsHidden(key string) bool {
	return s.Hidden[key]
}

// EmptySnapshot returns a snapshot with no weights and nothing hidden
func EmptySnapshot() Snapshot {
	return Snapshot{Weights: map[string]float64{}, Hidden: map[string]bool{}}
}

// Snapshot reads every item into a Snapshot
func (s *Store) Snapshot(ctx context.Context) (Snapshot, error) {
	items, err := s.repo.ListItems(ctx)
	if err != nil {
		return EmptySnapshot(), fmt.Errorf("snapshot weights: %w", err)
	}

	snap := Snapshot{
		Weights: make(map[string]float64, len(items)),
		Hidden:  make(map[string]bool),
	}
	for _, item := range items {
		snap.Weights[item.Key] = scoring.ClampOptional(item.Weight)
		if item.Hidden {
			snap.Hidden[item.Key] = true
		}
	}
	return snap, nil
}
