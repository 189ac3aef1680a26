// Package synonym folds product name variants into their main product.
package synonym

import (
	"fmt"
	"sort"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
)

// Conflict policies for a synonym claimed by more than one mapping.
const (
	PolicyLastWins = "last_wins"
	PolicyReject   = "reject"
)

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Conflict describes a synonym claimed by several mappings, in
// registration order.
type Conflict struct {
	Synonym  string   `json:"synonym"`
	Mappings []string `json:"mappings"`
}

// Resolver maps every synonym and main product to its main product.
type Resolver struct {
	lookup    map[string]string
	owners    map[string][]string
	conflicts []Conflict
}

// NewResolver builds a lookup from mappings in registration order. A
// synonym claimed twice resolves to the mapping registered last.
func NewResolver(mappings []domain.ProductMapping) *Resolver {
	ordered := make([]domain.ProductMapping, len(mappings))
	copy(ordered, mappings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	r := &Resolver{
		lookup: make(map[string]string),
		owners: make(map[string][]string),
	}
	for _, m := range ordered {
		main := strings.TrimSpace(m.MainProduct)
		if main == "" {
			continue
		}
		r.claim(main, main)
		for _, syn := range m.Synonyms {
			r.claim(syn, main)
		}
	}
	for syn, owners := range r.owners {
		if len(owners) > 1 {
			r.conflicts = append(r.conflicts, Conflict{Synonym: syn, Mappings: owners})
		}
	}
	sort.Slice(r.conflicts, func(i, j int) bool { return r.conflicts[i].Synonym < r.conflicts[j].Synonym })
	return r
}

func (r *Resolver) claim(name, main string) {
	k := key(name)
	if k == "" {
		return
	}
	owners := r.owners[k]
	if len(owners) == 0 || owners[len(owners)-1] != main {
		r.owners[k] = append(owners, main)
	}
	r.lookup[k] = main
}

// Canonical returns the main product for name, or name itself when no
// mapping covers it.
func (r *Resolver) Canonical(name string) string {
	if main, ok := r.lookup[key(name)]; ok {
		return main
	}
	return strings.TrimSpace(name)
}

// Resolve returns stock keyed by canonical names with quantities of merged
// variants summed. The result does not depend on input order.
func (r *Resolver) Resolve(stock domain.StockMap) domain.StockMap {
	names := make([]string, 0, len(stock))
	for name := range stock {
		names = append(names, name)
	}
	// float sums must not depend on map order
	sort.Strings(names)
	out := make(domain.StockMap, len(stock))
	for _, name := range names {
		out[r.Canonical(name)] += stock[name]
	}
	return out
}

// Conflicts lists synonyms claimed by more than one mapping.
func (r *Resolver) Conflicts() []Conflict {
	return r.conflicts
}

// CheckMapping verifies that candidate can be registered next to existing
// mappings under policy. The candidate's own ID is ignored in existing so
// that updates do not collide with themselves.
func CheckMapping(existing []domain.ProductMapping, candidate domain.ProductMapping, policy string) error {
	main := strings.TrimSpace(candidate.MainProduct)
	if main == "" {
		return fmt.Errorf("%w: main product is required", domain.ErrInvalidInput)
	}

	claimed := make(map[string]string)
	for _, m := range existing {
		if m.ID == candidate.ID {
			continue
		}
		if key(m.MainProduct) == key(main) {
			return fmt.Errorf("mapping for %q: %w", main, domain.ErrConflict)
		}
		claimed[key(m.MainProduct)] = m.MainProduct
		for _, syn := range m.Synonyms {
			claimed[key(syn)] = m.MainProduct
		}
	}

	if policy != PolicyReject {
		return nil
	}
	names := append([]string{main}, candidate.Synonyms...)
	for _, name := range names {
		if owner, ok := claimed[key(name)]; ok {
			return fmt.Errorf("%w: %q is already mapped to %q", domain.ErrAmbiguousSynonym, name, owner)
		}
	}
	return nil
}

// CleanSynonyms trims synonyms, drops blanks, duplicates and the main
// product itself, keeping first occurrence order.
func CleanSynonyms(main string, synonyms []string) []string {
	seen := map[string]struct{}{key(main): {}}
	out := make([]string, 0, len(synonyms))
	for _, s := range synonyms {
		s = strings.TrimSpace(s)
		k := key(s)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}

// ParseSynonymLines splits one synonym per line.
func ParseSynonymLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
