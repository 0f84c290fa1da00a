package search

import (
	"sort"

	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/domain/search/candidate"
	"github.com/kailas-cloud/vitrine/internal/domain/search/filter"
)

// Fused is the ranked, deduplicated output of Fuse.
type Fused struct {
	Items []candidate.Scored
	// FromSimilarity counts similarity candidates that survived the predicate.
	FromSimilarity int
	// FromCatalog counts catalog-only items appended after them.
	FromCatalog int
}

// Fuse merges similarity candidates (best first) with catalog rows (store order).
//
// Similarity candidates failing the predicate's non-text constraints are dropped, since the
// ANN service never sees the filters. Catalog rows whose identity is already present are
// skipped; the rest get candidate.FallbackScore. The sequence is then stable-sorted by
// descending score, so ties keep similarity rank order followed by catalog order.
//
// When no similarity candidate survives, the catalog rows are returned unscored in store order.
func Fuse(pred filter.Predicate, similar []candidate.Scored, catalog []product.Product) Fused {
	seen := make(map[string]struct{}, len(similar)+len(catalog))
	items := make([]candidate.Scored, 0, len(similar)+len(catalog))

	for i := range similar {
		c := similar[i]
		if !pred.Matches(c.Product()) {
			continue
		}
		if _, dup := seen[c.ID()]; dup {
			continue
		}
		seen[c.ID()] = struct{}{}
		items = append(items, c)
	}
	fromSimilarity := len(items)

	for i := range catalog {
		id := catalog[i].ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if fromSimilarity > 0 {
			items = append(items, candidate.WithFallback(catalog[i]))
		} else {
			items = append(items, candidate.FromCatalog(catalog[i]))
		}
	}

	if fromSimilarity > 0 {
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].RankScore() > items[j].RankScore()
		})
	}

	return Fused{
		Items:          items,
		FromSimilarity: fromSimilarity,
		FromCatalog:    len(items) - fromSimilarity,
	}
}
