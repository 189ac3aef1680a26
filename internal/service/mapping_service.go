package service

import (
	"context"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/andresuchdata/orderplan/internal/synonym"
	"github.com/rs/zerolog/log"
)

// MappingInput accepts synonyms as a list, as newline separated text, or
// both.
type MappingInput struct {
	MainProduct  string   `json:"main_product"`
	Synonyms     []string `json:"synonyms"`
	SynonymsText string   `json:"synonyms_text"`
}

type MappingService struct {
	repo   repository.MappingRepository
	policy string
}

func NewMappingService(repo repository.MappingRepository, policy string) *MappingService {
	if policy != synonym.PolicyReject {
		policy = synonym.PolicyLastWins
	}
	return &MappingService{repo: repo, policy: policy}
}

func (s *MappingService) List(ctx context.Context) ([]domain.ProductMapping, error) {
	return s.repo.ListMappings(ctx)
}

func (s *MappingService) Get(ctx context.Context, id string) (*domain.ProductMapping, error) {
	return s.repo.GetMapping(ctx, id)
}

func (s *MappingService) Create(ctx context.Context, in MappingInput) (*domain.ProductMapping, error) {
	mapping := in.mapping()
	if err := s.check(ctx, mapping); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMapping(ctx, &mapping); err != nil {
		return nil, err
	}
	s.logConflicts(ctx)
	return &mapping, nil
}

func (s *MappingService) Update(ctx context.Context, id string, in MappingInput) (*domain.ProductMapping, error) {
	existing, err := s.repo.GetMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	mapping := in.mapping()
	mapping.ID = existing.ID
	if mapping.MainProduct == "" {
		mapping.MainProduct = existing.MainProduct
		mapping.Synonyms = synonym.CleanSynonyms(mapping.MainProduct, mapping.Synonyms)
	}
	if err := s.check(ctx, mapping); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMapping(ctx, &mapping); err != nil {
		return nil, err
	}
	s.logConflicts(ctx)
	return &mapping, nil
}

func (s *MappingService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteMapping(ctx, id)
}

// Resolver builds a resolver from the current mappings.
func (s *MappingService) Resolver(ctx context.Context) (*synonym.Resolver, error) {
	mappings, err := s.repo.ListMappings(ctx)
	if err != nil {
		return nil, err
	}
	return synonym.NewResolver(mappings), nil
}

// Conflicts lists synonyms claimed by more than one mapping.
func (s *MappingService) Conflicts(ctx context.Context) ([]synonym.Conflict, error) {
	r, err := s.Resolver(ctx)
	if err != nil {
		return nil, err
	}
	return r.Conflicts(), nil
}

func (s *MappingService) check(ctx context.Context, mapping domain.ProductMapping) error {
	existing, err := s.repo.ListMappings(ctx)
	if err != nil {
		return err
	}
	return synonym.CheckMapping(existing, mapping, s.policy)
}

func (s *MappingService) logConflicts(ctx context.Context) {
	conflicts, err := s.Conflicts(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("mappings: conflict check failed")
		return
	}
	for _, c := range conflicts {
		log.Warn().Str("synonym", c.Synonym).Strs("mappings", c.Mappings).Msg("mappings: synonym claimed twice, last registered wins")
	}
}

func (in MappingInput) mapping() domain.ProductMapping {
	main := strings.TrimSpace(in.MainProduct)
	synonyms := append([]string{}, in.Synonyms...)
	if in.SynonymsText != "" {
		synonyms = append(synonyms, synonym.ParseSynonymLines(in.SynonymsText)...)
	}
	return domain.ProductMapping{MainProduct: main, Synonyms: synonym.CleanSynonyms(main, synonyms)}
}
