package searcher

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/launchsearch/internal/scoring"
	"github.com/dshills/launchsearch/internal/sources"
	"github.com/dshills/launchsearch/pkg/types"
)

// searchShortcuts fetches and scores the shortcuts of every candidate app.
// A failing provider call only drops that app's shortcuts.
func (s *Session) searchShortcuts(gen uint64, in sources.Input, candidates []types.AppInfo, workers int) {
	defer s.wg.Done()

	perApp := make([][]types.ShortcutResult, len(candidates))
	g, ctx := errgroup.WithContext(s.bg)
	g.SetLimit(max(workers, 1))
	for i, app := range candidates {
		g.Go(func() error {
			if s.generation.Load() != gen {
				return nil
			}
			refs, err := s.listShortcuts(ctx, app.Key)
			if err != nil {
				s.logger.Debug("shortcut lookup failed", "app", app.Key, "err", err)
				return nil
			}
			perApp[i] = sources.Safe(s.logger, types.BucketShortcuts, func() []types.ShortcutResult {
				return sources.ScoreShortcuts(in, app, refs)
			})
			return nil
		})
	}
	// Workers never return errors.
	_ = g.Wait()

	merged := slices.Concat(perApp...)
	if merged == nil {
		merged = []types.ShortcutResult{}
	}
	scoring.Rank(merged, types.ShortcutResult.Score)

	s.commit(gen, types.BucketShortcuts, func(r *types.SearchResults) {
		r.Shortcuts = merged
	})
}

// listShortcuts consults the cache before the provider
func (s *Session) listShortcuts(ctx context.Context, owner string) (refs []types.ShortcutRef, err error) {
	if cached, ok := s.cache.get(owner); ok {
		return cached, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	refs, err = s.shortcuts.ListShortcuts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list shortcuts of %s: %w", owner, err)
	}
	s.cache.add(owner, refs)
	return refs, nil
}
