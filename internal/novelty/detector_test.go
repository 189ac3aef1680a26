package novelty

import (
	"testing"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	catalog := domain.StockMap{
		"Новинка":      5,
		"Нулевой":      4,
		"Настроенный":  9,
		"Скрытый":      7,
		"Мало":         1,
		"Ещё новинка": 3,
	}
	limits := []domain.Limit{
		{Product: "Нулевой", Limit: 0},
		{Product: "настроенный", Limit: 2},
	}
	blacklist := []domain.BlacklistEntry{{Product: "Скрытый"}}

	got := Detector{MinQuantity: 3}.Detect(catalog, limits, blacklist)
	require.Len(t, got, 3)

	assert.Equal(t, "Ещё новинка", got[0].Product)
	assert.Nil(t, got[0].CurrentLimit)
	assert.Equal(t, "Новинка", got[1].Product)
	assert.Equal(t, 5.0, got[1].Quantity)
	assert.Equal(t, "Нулевой", got[2].Product)
	require.NotNil(t, got[2].CurrentLimit)
	assert.Equal(t, 0, *got[2].CurrentLimit)
}

func TestDetectExcludesBlacklistAndPositiveLimits(t *testing.T) {
	catalog := domain.StockMap{"A": 10, "B": 10, "C": 10}
	limits := []domain.Limit{{Product: "A", Limit: 1}}
	blacklist := []domain.BlacklistEntry{{Product: "B"}}

	got := Detector{}.Detect(catalog, limits, blacklist)
	require.Len(t, got, 1)
	assert.Equal(t, "C", got[0].Product)
}

func TestDetectEmptyCatalog(t *testing.T) {
	assert.Empty(t, Detector{MinQuantity: 3}.Detect(nil, nil, nil))
}
