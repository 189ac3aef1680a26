package synonym

import (
	"testing"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestResolveMergesVariants(t *testing.T) {
	r := NewResolver([]domain.ProductMapping{
		{ID: "m1", MainProduct: "Rocketman", Synonyms: []string{"Рокетмен", "Rocket man"}, CreatedAt: t0},
	})

	got := r.Resolve(domain.StockMap{"Рокетмен": 5, "Rocket man": 3})
	assert.Equal(t, domain.StockMap{"Rocketman": 8}, got)
}

func TestResolveIsCaseInsensitiveAndKeepsUnmapped(t *testing.T) {
	r := NewResolver([]domain.ProductMapping{
		{ID: "m1", MainProduct: "Кабель", Synonyms: []string{"кабель usb"}, CreatedAt: t0},
	})

	got := r.Resolve(domain.StockMap{" КАБЕЛЬ USB ": 2, "кабель": 1, "Лампа": 4})
	assert.Equal(t, domain.StockMap{"Кабель": 3, "Лампа": 4}, got)
	assert.LessOrEqual(t, len(got), 3)
}

func TestResolveIsOrderIndependent(t *testing.T) {
	mappings := []domain.ProductMapping{
		{ID: "m1", MainProduct: "A", Synonyms: []string{"a1", "a2"}, CreatedAt: t0},
		{ID: "m2", MainProduct: "B", Synonyms: []string{"b1"}, CreatedAt: t0.Add(time.Minute)},
	}
	stock := domain.StockMap{"a1": 1.5, "a2": 2, "A": 3, "b1": 4, "B": 0.5, "C": 7}
	want := domain.StockMap{"A": 6.5, "B": 4.5, "C": 7}

	for i := 0; i < 20; i++ {
		assert.Equal(t, want, NewResolver(mappings).Resolve(stock))
	}

	reversed := []domain.ProductMapping{mappings[1], mappings[0]}
	assert.Equal(t, want, NewResolver(reversed).Resolve(stock))
}

func TestResolveSumsFractionsInStableOrder(t *testing.T) {
	r := NewResolver([]domain.ProductMapping{
		{ID: "m1", MainProduct: "X", Synonyms: []string{"a", "b", "c"}, CreatedAt: t0},
	})
	stock := domain.StockMap{"c": 0.3, "a": 0.1, "b": 0.2}
	want := 0.1
	want += 0.2
	want += 0.3

	first := r.Resolve(stock)
	require.Equal(t, want, first["X"])
	for i := 0; i < 200; i++ {
		require.Equal(t, first, r.Resolve(stock))
	}
}

func TestLastRegisteredMappingWins(t *testing.T) {
	r := NewResolver([]domain.ProductMapping{
		{ID: "m2", MainProduct: "Second", Synonyms: []string{"shared"}, CreatedAt: t0.Add(time.Hour)},
		{ID: "m1", MainProduct: "First", Synonyms: []string{"shared"}, CreatedAt: t0},
	})

	assert.Equal(t, "Second", r.Canonical("Shared"))
	require.Len(t, r.Conflicts(), 1)
	assert.Equal(t, Conflict{Synonym: "shared", Mappings: []string{"First", "Second"}}, r.Conflicts()[0])
}

func TestCheckMapping(t *testing.T) {
	existing := []domain.ProductMapping{
		{ID: "m1", MainProduct: "Rocketman", Synonyms: []string{"Рокетмен"}},
	}

	err := CheckMapping(existing, domain.ProductMapping{MainProduct: "rocketman"}, PolicyLastWins)
	assert.ErrorIs(t, err, domain.ErrConflict)

	err = CheckMapping(existing, domain.ProductMapping{MainProduct: "Other", Synonyms: []string{"рокетмен"}}, PolicyLastWins)
	assert.NoError(t, err)

	err = CheckMapping(existing, domain.ProductMapping{MainProduct: "Other", Synonyms: []string{"рокетмен"}}, PolicyReject)
	assert.ErrorIs(t, err, domain.ErrAmbiguousSynonym)

	err = CheckMapping(existing, domain.ProductMapping{ID: "m1", MainProduct: "Rocketman", Synonyms: []string{"Рокетмен", "Rocket"}}, PolicyReject)
	assert.NoError(t, err)

	err = CheckMapping(existing, domain.ProductMapping{MainProduct: "  "}, PolicyLastWins)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCleanSynonyms(t *testing.T) {
	got := CleanSynonyms("Rocketman", ParseSynonymLines("Рокетмен\r\n\nrocketman\n Rocket man \nрокетмен"))
	assert.Equal(t, []string{"Рокетмен", "Rocket man"}, got)
}
