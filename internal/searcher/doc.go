// Package searcher runs launcher queries against every result source.
//
// A Session owns the query text, the filter state and the merged results.
// Each query change increments a generation counter:
//
//	s, _ := searcher.NewSession(catalog, catalog, weightStore, settingsManager)
//	s.SetQuery(ctx, "chr")
//	_ = s.Wait(ctx)
//	best := s.BestMatch()
//
// # Sources
//
// Apps, tools, contacts, calendar, files, websites and the generic actions
// are computed inline and committed together. Shortcut lookup fans out to
// the top ranked apps on a bounded worker group. Articles and places are
// delayed by a debounce timer that is stopped when the next query arrives.
//
// Background work captures the generation it was started for and commits
// only if that generation is still current, so a bucket never shows an
// older query's data once the newer one has settled.
//
// # Presentation
//
// Results keeps every bucket sorted by score descending. With the
// bottom-up setting each bucket is reversed on read; BestMatch always
// looks at the ranked order.
package searcher
