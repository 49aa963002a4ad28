package searcher

import (
	"strings"

	"github.com/dshills/launchsearch/pkg/types"
)

// BestMatchOrder is the fixed bucket priority used to pick the best match
var BestMatchOrder = []types.Bucket{
	types.BucketApps,
	types.BucketShortcuts,
	types.BucketCalendar,
	types.BucketPlaces,
	types.BucketContacts,
	types.BucketArticles,
	types.BucketWebsites,
	types.BucketFiles,
	types.BucketActions,
}

// ResolveBestMatch returns the first entry of the first non-empty bucket in
// BestMatchOrder. It returns nil when launchOnEnter is off, the query is
// blank, or every bucket is empty. results must be in ranked order.
func ResolveBestMatch(results types.SearchResults, query string, launchOnEnter bool) types.Result {
	if !launchOnEnter || strings.TrimSpace(query) == "" {
		return nil
	}
	for _, b := range BestMatchOrder {
		if r := results.First(b); r != nil {
			return r
		}
	}
	return nil
}
