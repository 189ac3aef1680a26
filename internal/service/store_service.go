package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/limits"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/rs/zerolog/log"
)

// StoreInput creates or renames a store. CopyFromID is only honoured on
// create.
type StoreInput struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases"`
	CopyFromID string   `json:"copy_from_id"`
}

// AddLimitsInput carries explicit limits and/or bulk "product :: limit"
// lines.
type AddLimitsInput struct {
	Limits     []domain.LimitInput `json:"limits"`
	Text       string              `json:"text"`
	ApplyToAll bool                `json:"apply_to_all"`
}

type StoreService struct {
	stores  repository.StoreRepository
	limits  *limits.Manager
	history cache.HistoryCache
}

func NewStoreService(stores repository.StoreRepository, limitRepo repository.LimitRepository, historyCache cache.HistoryCache) *StoreService {
	if historyCache == nil {
		historyCache = cache.NewNoop()
	}
	return &StoreService{
		stores:  stores,
		limits:  limits.NewManager(stores, limitRepo),
		history: historyCache,
	}
}

func (s *StoreService) ListStores(ctx context.Context) ([]domain.Store, error) {
	return s.stores.ListStores(ctx)
}

func (s *StoreService) GetStore(ctx context.Context, id string) (*domain.Store, error) {
	return s.stores.GetStore(ctx, id)
}

func (s *StoreService) CreateStore(ctx context.Context, in StoreInput) (*domain.Store, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: store name is required", domain.ErrInvalidInput)
	}
	store := &domain.Store{Name: name, Aliases: cleanAliases(in.Aliases)}
	if err := s.stores.CreateStore(ctx, store, strings.TrimSpace(in.CopyFromID)); err != nil {
		return nil, err
	}
	log.Info().Str("store_id", store.ID).Str("name", store.Name).Str("copy_from", in.CopyFromID).Msg("store created")
	return store, nil
}

// UpdateStore renames a store. Nil aliases keep the current ones.
func (s *StoreService) UpdateStore(ctx context.Context, id string, in StoreInput) (*domain.Store, error) {
	store, err := s.stores.GetStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		store.Name = name
	}
	if in.Aliases != nil {
		store.Aliases = cleanAliases(in.Aliases)
	}
	if err := s.stores.UpdateStore(ctx, store); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *StoreService) DeleteStore(ctx context.Context, id string) error {
	if err := s.stores.DeleteStore(ctx, id); err != nil {
		return err
	}
	s.invalidateHistory(ctx, id)
	log.Info().Str("store_id", id).Msg("store deleted")
	return nil
}

func (s *StoreService) ListLimits(ctx context.Context, storeID string) ([]domain.Limit, error) {
	return s.limits.List(ctx, storeID)
}

// AddLimits validates and stores the union of in.Limits and the bulk text.
// A partial broadcast returns the updated limits together with the
// *domain.BroadcastError.
func (s *StoreService) AddLimits(ctx context.Context, storeID string, in AddLimitsInput) ([]domain.Limit, error) {
	inputs := append([]domain.LimitInput{}, in.Limits...)
	inputs = append(inputs, limits.ParseBulk(in.Text)...)
	return s.limits.Add(ctx, storeID, inputs, in.ApplyToAll)
}

func (s *StoreService) UpdateLimit(ctx context.Context, storeID, product string, limit int) ([]domain.Limit, error) {
	return s.limits.Update(ctx, storeID, product, limit)
}

func (s *StoreService) RenameLimit(ctx context.Context, storeID, product, newName string) ([]domain.Limit, error) {
	updated, err := s.limits.Rename(ctx, storeID, product, newName)
	if err != nil {
		return nil, err
	}
	s.invalidateHistory(ctx, storeID)
	return updated, nil
}

func (s *StoreService) DeleteLimit(ctx context.Context, storeID, product string, applyToAll bool) ([]domain.Limit, error) {
	return s.limits.Delete(ctx, storeID, product, applyToAll)
}

func (s *StoreService) invalidateHistory(ctx context.Context, storeID string) {
	if err := s.history.InvalidateStore(ctx, storeID); err != nil {
		log.Warn().Err(err).Str("store_id", storeID).Msg("stores: cache invalidate failed")
	}
}

func cleanAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))
	seen := make(map[string]struct{}, len(aliases))
	for _, a := range aliases {
		a = strings.TrimSpace(a)
		if a == "" {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}
