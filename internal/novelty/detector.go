// Package novelty surfaces catalog products a store has not configured.
package novelty

import (
	"sort"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/match"
)

// Detector finds novelties. Products below MinQuantity in the catalog are
// ignored.
type Detector struct {
	MinQuantity float64
}

// Detect returns every catalog product that has no limit or a zero limit
// and is not blacklisted, sorted by product name. Limits and blacklist
// entries are compared by normalized name.
func (d Detector) Detect(catalog domain.StockMap, limits []domain.Limit, blacklist []domain.BlacklistEntry) []domain.Novelty {
	configured := make(map[string]int, len(limits))
	for _, l := range limits {
		configured[match.Normalize(l.Product)] = l.Limit
	}
	hidden := make(map[string]struct{}, len(blacklist))
	for _, b := range blacklist {
		hidden[match.Normalize(b.Product)] = struct{}{}
	}

	var out []domain.Novelty
	for product, qty := range catalog {
		if qty < d.MinQuantity {
			continue
		}
		key := match.Normalize(product)
		if _, ok := hidden[key]; ok {
			continue
		}
		n := domain.Novelty{Product: product, Quantity: qty}
		if limit, ok := configured[key]; ok {
			if limit > 0 {
				continue
			}
			zero := 0
			n.CurrentLimit = &zero
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product < out[j].Product })
	return out
}
