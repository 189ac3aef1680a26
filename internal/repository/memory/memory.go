// Package memory is an in-process repository used by tests, the offline
// tools and the server when no database is configured.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/google/uuid"
)

// Store implements every repository interface over maps guarded by one lock.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	stores     map[string]domain.Store
	storeOrder []string
	limits     map[string][]domain.Limit
	mappings   []domain.ProductMapping
	filters    []domain.FilterExpression
	orders     map[string][]domain.Order
	blacklist  map[string][]domain.BlacklistEntry
	history    map[string][]domain.HistoryPoint
	uploads    []domain.GlobalStockUpload
}

// New creates an empty store.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a store that stamps records with clock.
func NewWithClock(clock func() time.Time) *Store {
	return &Store{
		now:       clock,
		stores:    make(map[string]domain.Store),
		limits:    make(map[string][]domain.Limit),
		orders:    make(map[string][]domain.Order),
		blacklist: make(map[string][]domain.BlacklistEntry),
		history:   make(map[string][]domain.HistoryPoint),
	}
}

// NewSet exposes a single memory store through every repository interface.
func NewSet() *repository.Set {
	return New().Set()
}

func (s *Store) Set() *repository.Set {
	return &repository.Set{
		Stores:      s,
		Limits:      s,
		Mappings:    s,
		Filters:     s,
		Orders:      s,
		Blacklist:   s,
		History:     s,
		GlobalStock: s,
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, domain.ErrNotFound)
}

// Stores

func (s *Store) ListStores(ctx context.Context) ([]domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Store, 0, len(s.storeOrder))
	for _, id := range s.storeOrder {
		out = append(out, copyStore(s.stores[id]))
	}
	return out, nil
}

func (s *Store) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, ok := s.stores[id]
	if !ok {
		return nil, notFound("store", id)
	}
	out := copyStore(store)
	return &out, nil
}

func (s *Store) CreateStore(ctx context.Context, store *domain.Store, copyFromID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var copied []domain.Limit
	if copyFromID != "" {
		if _, ok := s.stores[copyFromID]; !ok {
			return notFound("store", copyFromID)
		}
		copied = s.limits[copyFromID]
	}

	if store.ID == "" {
		store.ID = uuid.NewString()
	}
	if store.CreatedAt.IsZero() {
		store.CreatedAt = s.now()
	}
	if _, exists := s.stores[store.ID]; exists {
		return fmt.Errorf("store %q: %w", store.ID, domain.ErrConflict)
	}

	s.stores[store.ID] = copyStore(*store)
	s.storeOrder = append(s.storeOrder, store.ID)
	limits := make([]domain.Limit, 0, len(copied))
	for _, l := range copied {
		limits = append(limits, domain.Limit{StoreID: store.ID, Product: l.Product, Limit: l.Limit})
	}
	s.limits[store.ID] = limits
	return nil
}

func (s *Store) UpdateStore(ctx context.Context, store *domain.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.stores[store.ID]
	if !ok {
		return notFound("store", store.ID)
	}
	store.CreatedAt = existing.CreatedAt
	s.stores[store.ID] = copyStore(*store)
	return nil
}

func (s *Store) DeleteStore(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[id]; !ok {
		return notFound("store", id)
	}
	delete(s.stores, id)
	delete(s.limits, id)
	delete(s.orders, id)
	delete(s.blacklist, id)
	delete(s.history, id)
	for i, sid := range s.storeOrder {
		if sid == id {
			s.storeOrder = append(s.storeOrder[:i:i], s.storeOrder[i+1:]...)
			break
		}
	}
	return nil
}

// Limits

func (s *Store) ListLimits(ctx context.Context, storeID string) ([]domain.Limit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.stores[storeID]; !ok {
		return nil, notFound("store", storeID)
	}
	return append([]domain.Limit{}, s.limits[storeID]...), nil
}

func (s *Store) UpsertLimits(ctx context.Context, storeID string, limits []domain.LimitInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[storeID]; !ok {
		return notFound("store", storeID)
	}
	current := s.limits[storeID]
	for _, in := range limits {
		if i := indexLimit(current, in.Product); i >= 0 {
			current[i].Limit = in.Limit
			continue
		}
		current = append(current, domain.Limit{StoreID: storeID, Product: in.Product, Limit: in.Limit})
	}
	s.limits[storeID] = current
	return nil
}

func (s *Store) InsertLimitIfAbsent(ctx context.Context, storeID string, limit domain.LimitInput) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[storeID]; !ok {
		return false, notFound("store", storeID)
	}
	if indexLimit(s.limits[storeID], limit.Product) >= 0 {
		return false, nil
	}
	s.limits[storeID] = append(s.limits[storeID], domain.Limit{StoreID: storeID, Product: limit.Product, Limit: limit.Limit})
	return true, nil
}

func (s *Store) RenameLimit(ctx context.Context, storeID, oldName, newName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[storeID]; !ok {
		return notFound("store", storeID)
	}
	current := s.limits[storeID]
	i := indexLimit(current, oldName)
	if i < 0 {
		return notFound("limit", oldName)
	}
	if oldName == newName {
		return nil
	}
	if indexLimit(current, newName) >= 0 {
		return fmt.Errorf("limit %q: %w", newName, domain.ErrConflict)
	}
	current[i].Product = newName

	points := s.history[storeID]
	for j := range points {
		if points[j].Product == oldName {
			points[j].Product = newName
		}
	}

	entries := s.blacklist[storeID]
	kept := entries[:0]
	hasNew := false
	for _, e := range entries {
		if e.Product == newName {
			hasNew = true
		}
	}
	for _, e := range entries {
		if e.Product == oldName {
			if hasNew {
				continue
			}
			e.Product = newName
		}
		kept = append(kept, e)
	}
	s.blacklist[storeID] = kept
	return nil
}

func (s *Store) DeleteLimit(ctx context.Context, storeID, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[storeID]; !ok {
		return notFound("store", storeID)
	}
	current := s.limits[storeID]
	i := indexLimit(current, product)
	if i < 0 {
		return notFound("limit", product)
	}
	s.limits[storeID] = append(current[:i:i], current[i+1:]...)
	return nil
}

func indexLimit(limits []domain.Limit, product string) int {
	for i, l := range limits {
		if l.Product == product {
			return i
		}
	}
	return -1
}

// Mappings

func (s *Store) ListMappings(ctx context.Context) ([]domain.ProductMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.ProductMapping, 0, len(s.mappings))
	for _, m := range s.mappings {
		out = append(out, copyMapping(m))
	}
	return out, nil
}

func (s *Store) GetMapping(ctx context.Context, id string) (*domain.ProductMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.mappings {
		if m.ID == id {
			out := copyMapping(m)
			return &out, nil
		}
	}
	return nil, notFound("mapping", id)
}

func (s *Store) CreateMapping(ctx context.Context, mapping *domain.ProductMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = s.now()
	}
	s.mappings = append(s.mappings, copyMapping(*mapping))
	return nil
}

func (s *Store) UpdateMapping(ctx context.Context, mapping *domain.ProductMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.mappings {
		if m.ID == mapping.ID {
			mapping.CreatedAt = m.CreatedAt
			s.mappings[i] = copyMapping(*mapping)
			return nil
		}
	}
	return notFound("mapping", mapping.ID)
}

func (s *Store) DeleteMapping(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.mappings {
		if m.ID == id {
			s.mappings = append(s.mappings[:i:i], s.mappings[i+1:]...)
			return nil
		}
	}
	return notFound("mapping", id)
}

// Filters

func (s *Store) ListFilters(ctx context.Context) ([]domain.FilterExpression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.FilterExpression{}, s.filters...), nil
}

func (s *Store) GetFilter(ctx context.Context, id string) (*domain.FilterExpression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, f := range s.filters {
		if f.ID == id {
			out := f
			return &out, nil
		}
	}
	return nil, notFound("filter", id)
}

func (s *Store) CreateFilter(ctx context.Context, filter *domain.FilterExpression) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if filter.ID == "" {
		filter.ID = uuid.NewString()
	}
	if filter.CreatedAt.IsZero() {
		filter.CreatedAt = s.now()
	}
	s.filters = append(s.filters, *filter)
	return nil
}

func (s *Store) DeleteFilter(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.filters {
		if f.ID == id {
			s.filters = append(s.filters[:i:i], s.filters[i+1:]...)
			return nil
		}
	}
	return notFound("filter", id)
}

// Orders

func (s *Store) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[order.StoreID]; !ok {
		return notFound("store", order.StoreID)
	}
	if order.ID == "" {
		order.ID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now()
	}
	stored := *order
	stored.Items = append([]domain.OrderItem{}, order.Items...)
	s.orders[order.StoreID] = append(s.orders[order.StoreID], stored)
	return nil
}

// ListOrders returns the newest order first.
func (s *Store) ListOrders(ctx context.Context, storeID string) ([]domain.OrderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.stores[storeID]; !ok {
		return nil, notFound("store", storeID)
	}
	orders := s.orders[storeID]
	out := make([]domain.OrderSummary, 0, len(orders))
	for i := len(orders) - 1; i >= 0; i-- {
		o := orders[i]
		out = append(out, domain.OrderSummary{
			ID:         o.ID,
			StoreID:    o.StoreID,
			Source:     o.Source,
			CreatedAt:  o.CreatedAt,
			ItemsCount: len(o.Items),
		})
	}
	return out, nil
}

func (s *Store) GetOrder(ctx context.Context, storeID, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orders[storeID] {
		if o.ID == orderID {
			out := o
			out.Items = append([]domain.OrderItem{}, o.Items...)
			return &out, nil
		}
	}
	return nil, notFound("order", orderID)
}

// Blacklist

func (s *Store) ListBlacklist(ctx context.Context, storeID string) ([]domain.BlacklistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.stores[storeID]; !ok {
		return nil, notFound("store", storeID)
	}
	return append([]domain.BlacklistEntry{}, s.blacklist[storeID]...), nil
}

func (s *Store) AddToBlacklist(ctx context.Context, storeID, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.stores[storeID]; !ok {
		return notFound("store", storeID)
	}
	for _, e := range s.blacklist[storeID] {
		if e.Product == product {
			return nil
		}
	}
	s.blacklist[storeID] = append(s.blacklist[storeID], domain.BlacklistEntry{
		StoreID:   storeID,
		Product:   product,
		CreatedAt: s.now(),
	})
	return nil
}

func (s *Store) RemoveFromBlacklist(ctx context.Context, storeID, product string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.blacklist[storeID]
	for i, e := range entries {
		if e.Product == product {
			s.blacklist[storeID] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return notFound("blacklist entry", product)
}

// History

func (s *Store) AppendHistory(ctx context.Context, points []domain.HistoryPoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if _, ok := s.stores[p.StoreID]; !ok {
			return notFound("store", p.StoreID)
		}
	}
	for _, p := range points {
		s.history[p.StoreID] = append(s.history[p.StoreID], p)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, storeID, product string, since time.Time) ([]domain.HistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.HistoryPoint
	for _, p := range s.history[storeID] {
		if product != "" && p.Product != product {
			continue
		}
		if p.RecordedAt.Before(since) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// Global stock

func (s *Store) SaveGlobalStock(ctx context.Context, upload *domain.GlobalStockUpload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if upload.ID == "" {
		upload.ID = uuid.NewString()
	}
	if upload.UploadedAt.IsZero() {
		upload.UploadedAt = s.now()
	}
	upload.Version = int64(len(s.uploads)) + 1
	s.uploads = append(s.uploads, copyUpload(*upload))
	return nil
}

func (s *Store) LatestGlobalStock(ctx context.Context) (*domain.GlobalStockUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.uploads) == 0 {
		return nil, fmt.Errorf("global stock: %w", domain.ErrNotFound)
	}
	out := copyUpload(s.uploads[len(s.uploads)-1])
	return &out, nil
}

func (s *Store) GetGlobalStock(ctx context.Context, id string) (*domain.GlobalStockUpload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.uploads {
		if u.ID == id {
			out := copyUpload(u)
			return &out, nil
		}
	}
	return nil, notFound("global stock", id)
}

// ListGlobalStock returns the newest upload first.
func (s *Store) ListGlobalStock(ctx context.Context) ([]domain.GlobalStockInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.GlobalStockInfo, 0, len(s.uploads))
	for i := len(s.uploads) - 1; i >= 0; i-- {
		out = append(out, s.uploads[i].Info())
	}
	return out, nil
}

func copyStore(st domain.Store) domain.Store {
	st.Aliases = append([]string{}, st.Aliases...)
	return st
}

func copyMapping(m domain.ProductMapping) domain.ProductMapping {
	m.Synonyms = append([]string{}, m.Synonyms...)
	return m
}

func copyUpload(u domain.GlobalStockUpload) domain.GlobalStockUpload {
	u.StoreColumns = append([]string{}, u.StoreColumns...)
	data := make(map[string]map[string]float64, len(u.Data))
	for product, byColumn := range u.Data {
		row := make(map[string]float64, len(byColumn))
		for col, qty := range byColumn {
			row[col] = qty
		}
		data[product] = row
	}
	u.Data = data
	return u
}
