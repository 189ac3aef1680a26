package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/filter"
	"github.com/andresuchdata/orderplan/internal/repository"
)

type FilterService struct {
	repo repository.FilterRepository
}

func NewFilterService(repo repository.FilterRepository) *FilterService {
	return &FilterService{repo: repo}
}

func (s *FilterService) List(ctx context.Context) ([]domain.FilterExpression, error) {
	return s.repo.ListFilters(ctx)
}

func (s *FilterService) Get(ctx context.Context, id string) (*domain.FilterExpression, error) {
	return s.repo.GetFilter(ctx, id)
}

// Create rejects expressions that do not parse.
func (s *FilterService) Create(ctx context.Context, name, expression string) (*domain.FilterExpression, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, fmt.Errorf("%w: expression is required", domain.ErrInvalidInput)
	}
	if err := filter.Validate(expression); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = expression
	}
	f := &domain.FilterExpression{Name: name, Expression: expression}
	if err := s.repo.CreateFilter(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FilterService) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteFilter(ctx, id)
}

// Validate returns the canonical form of expression.
func (s *FilterService) Validate(expression string) (string, error) {
	expr, err := filter.Compile(expression)
	if err != nil {
		return "", err
	}
	return expr.String(), nil
}

// Compile builds the active filter set from inline expressions and saved
// filter ids.
func (s *FilterService) Compile(ctx context.Context, expressions []string, ids []string) (filter.Set, error) {
	sources := append([]string{}, expressions...)
	for _, id := range ids {
		f, err := s.repo.GetFilter(ctx, id)
		if err != nil {
			return nil, err
		}
		sources = append(sources, f.Expression)
	}
	return filter.CompileAll(sources)
}
