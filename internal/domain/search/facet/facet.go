package facet

import (
	"sort"

	"github.com/kailas-cloud/vitrine/internal/domain/product"
)

// Set maps each filterable attribute to its distinct values, sorted ascending.
// Every attribute in product.FilterableAttributes is present, possibly with an empty list.
type Set map[product.Attribute][]string

// Values returns the values of one attribute (nil-safe).
func (s Set) Values(a product.Attribute) []string {
	if v := s[a]; v != nil {
		return v
	}
	return []string{}
}

// Normalize turns raw per-attribute value lists into a Set: unknown attributes and empty
// values are dropped, duplicates removed, values sorted by byte order with case preserved.
func Normalize(raw map[product.Attribute][]string) Set {
	out := make(Set, len(product.FilterableAttributes))
	for _, a := range product.FilterableAttributes {
		out[a] = distinctSorted(raw[a])
	}
	return out
}

func distinctSorted(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
