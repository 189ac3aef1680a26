// Package limits manages per-store product limits.
package limits

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/match"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/rs/zerolog/log"
)

const bulkSeparator = " :: "

// ParseBulk reads "product :: limit" lines. The limit is the part after
// the last separator, so product names may contain the separator. Lines
// without a separator, with a blank product or a non-integer limit are
// skipped. Negative limits are returned as-is for Validate to reject.
func ParseBulk(text string) []domain.LimitInput {
	var out []domain.LimitInput
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		i := strings.LastIndex(line, bulkSeparator)
		if i < 0 {
			continue
		}
		product := strings.TrimSpace(line[:i])
		limit, err := strconv.Atoi(strings.TrimSpace(line[i+len(bulkSeparator):]))
		if product == "" || err != nil {
			continue
		}
		out = append(out, domain.LimitInput{Product: product, Limit: limit})
	}
	return out
}

// Validate trims product names and rejects blank names and negative
// limits. A product listed twice keeps its last value at its first
// position. Two different names with the same normalized form would share
// matched stock, so they are rejected.
func Validate(inputs []domain.LimitInput) ([]domain.LimitInput, error) {
	out := make([]domain.LimitInput, 0, len(inputs))
	index := make(map[string]int, len(inputs))
	normalized := make(map[string]string, len(inputs))
	for _, in := range inputs {
		product := strings.TrimSpace(in.Product)
		if product == "" {
			return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
		}
		if err := ValidateLimit(in.Limit); err != nil {
			return nil, fmt.Errorf("%s: %w", product, err)
		}
		if i, ok := index[product]; ok {
			out[i].Limit = in.Limit
			continue
		}
		n := match.Normalize(product)
		if other, ok := normalized[n]; ok {
			return nil, nearDuplicate(product, other)
		}
		normalized[n] = product
		index[product] = len(out)
		out = append(out, domain.LimitInput{Product: product, Limit: in.Limit})
	}
	return out, nil
}

func nearDuplicate(product, existing string) error {
	return fmt.Errorf("%w: %q matches the same stock as %q", domain.ErrConflict, product, existing)
}

func ValidateLimit(limit int) error {
	if limit < 0 {
		return fmt.Errorf("%w: got %d", domain.ErrInvalidLimit, limit)
	}
	return nil
}

// Manager applies limit mutations, broadcasting to other stores on request.
type Manager struct {
	stores repository.StoreRepository
	limits repository.LimitRepository
}

func NewManager(stores repository.StoreRepository, limits repository.LimitRepository) *Manager {
	return &Manager{stores: stores, limits: limits}
}

func (m *Manager) List(ctx context.Context, storeID string) ([]domain.Limit, error) {
	return m.limits.ListLimits(ctx, storeID)
}

// Add upserts inputs into storeID. With applyToAll every other store also
// receives each product it does not already limit; existing limits there
// are never overwritten. Broadcast failures do not undo stores already
// updated and are reported as a *domain.BroadcastError.
func (m *Manager) Add(ctx context.Context, storeID string, inputs []domain.LimitInput, applyToAll bool) ([]domain.Limit, error) {
	valid, err := Validate(inputs)
	if err != nil {
		return nil, err
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("limits: %w", domain.ErrEmptyInput)
	}
	if _, err := m.stores.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	if err := m.checkNearDuplicates(ctx, storeID, "", valid...); err != nil {
		return nil, err
	}
	if err := m.limits.UpsertLimits(ctx, storeID, valid); err != nil {
		return nil, fmt.Errorf("failed to save limits: %w", err)
	}

	var broadcastErr error
	if applyToAll {
		broadcastErr = m.broadcastAdd(ctx, storeID, valid)
	}

	updated, err := m.limits.ListLimits(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return updated, broadcastErr
}

func (m *Manager) broadcastAdd(ctx context.Context, origin string, inputs []domain.LimitInput) error {
	stores, err := m.stores.ListStores(ctx)
	if err != nil {
		return &domain.BroadcastError{Applied: []string{origin}, Failed: map[string]error{"*": err}}
	}

	result := &domain.BroadcastError{Applied: []string{origin}, Failed: map[string]error{}}
	for _, st := range stores {
		if st.ID == origin {
			continue
		}
		var storeErr error
		inserted := 0
		for _, in := range inputs {
			ok, err := m.limits.InsertLimitIfAbsent(ctx, st.ID, in)
			if err != nil {
				storeErr = err
				break
			}
			if ok {
				inserted++
			}
		}
		if storeErr != nil {
			log.Error().Err(storeErr).Str("store_id", st.ID).Msg("limits: broadcast add failed")
			result.Failed[st.ID] = storeErr
			continue
		}
		log.Debug().Str("store_id", st.ID).Int("inserted", inserted).Msg("limits: broadcast add")
		result.Applied = append(result.Applied, st.ID)
	}
	if len(result.Failed) > 0 {
		return result
	}
	return nil
}

// Update sets the limit of product in storeID only, creating it if absent.
func (m *Manager) Update(ctx context.Context, storeID, product string, limit int) ([]domain.Limit, error) {
	product = strings.TrimSpace(product)
	if product == "" {
		return nil, fmt.Errorf("%w: product name is required", domain.ErrInvalidInput)
	}
	if err := ValidateLimit(limit); err != nil {
		return nil, err
	}
	in := domain.LimitInput{Product: product, Limit: limit}
	if err := m.checkNearDuplicates(ctx, storeID, "", in); err != nil {
		return nil, err
	}
	if err := m.limits.UpsertLimits(ctx, storeID, []domain.LimitInput{in}); err != nil {
		return nil, err
	}
	return m.limits.ListLimits(ctx, storeID)
}

// Rename renames product in storeID only. History and blacklist entries
// follow the new name.
func (m *Manager) Rename(ctx context.Context, storeID, oldName, newName string) ([]domain.Limit, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, fmt.Errorf("%w: new name is required", domain.ErrInvalidInput)
	}
	if err := m.checkNearDuplicates(ctx, storeID, oldName, domain.LimitInput{Product: newName}); err != nil {
		return nil, err
	}
	if err := m.limits.RenameLimit(ctx, storeID, oldName, newName); err != nil {
		return nil, err
	}
	return m.limits.ListLimits(ctx, storeID)
}

// checkNearDuplicates rejects inputs whose normalized name equals that of a
// different product already limited in storeID. skip is left out of the
// comparison.
func (m *Manager) checkNearDuplicates(ctx context.Context, storeID, skip string, inputs ...domain.LimitInput) error {
	existing, err := m.limits.ListLimits(ctx, storeID)
	if err != nil {
		return err
	}
	normalized := make(map[string]string, len(existing))
	for _, l := range existing {
		if l.Product != skip {
			normalized[match.Normalize(l.Product)] = l.Product
		}
	}
	for _, in := range inputs {
		if other, ok := normalized[match.Normalize(in.Product)]; ok && other != in.Product {
			return nearDuplicate(in.Product, other)
		}
	}
	return nil
}

// Delete removes product from storeID, or from every store holding it when
// applyToAll is set. With applyToAll a store without the product is not an
// error.
func (m *Manager) Delete(ctx context.Context, storeID, product string, applyToAll bool) ([]domain.Limit, error) {
	if !applyToAll {
		if err := m.limits.DeleteLimit(ctx, storeID, product); err != nil {
			return nil, err
		}
		return m.limits.ListLimits(ctx, storeID)
	}

	if _, err := m.stores.GetStore(ctx, storeID); err != nil {
		return nil, err
	}
	stores, err := m.stores.ListStores(ctx)
	if err != nil {
		return nil, err
	}
	result := &domain.BroadcastError{Failed: map[string]error{}}
	for _, st := range stores {
		err := m.limits.DeleteLimit(ctx, st.ID, product)
		switch {
		case err == nil:
			result.Applied = append(result.Applied, st.ID)
		case errors.Is(err, domain.ErrNotFound):
		default:
			log.Error().Err(err).Str("store_id", st.ID).Str("product", product).Msg("limits: broadcast delete failed")
			result.Failed[st.ID] = err
		}
	}

	updated, err := m.limits.ListLimits(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if len(result.Failed) > 0 {
		return updated, result
	}
	return updated, nil
}
