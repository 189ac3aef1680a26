package filter

import (
	"errors"
	"testing"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
		{"Заказ >= 5", "(Заказ >= 5)"},
		{"Остаток < Лимиты / 3", "(Остаток < (Лимиты / 3))"},
		{"Заказ > 1 and Остаток < 2 or Лимиты == 0", "(((Заказ > 1) and (Остаток < 2)) or (Лимиты == 0))"},
		{"not Заказ > 1", "(not (Заказ > 1))"},
		{"-Остаток + 2", "((-Остаток) + 2)"},
		{"10 - 4 - 3", "((10 - 4) - 3)"},
		{"заказ != 0", "(Заказ != 0)"},
		{"Заказ >= 2.5", "(Заказ >= 2.5)"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			node, err := Parse(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, node.String())
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src string
		pos int
	}{
		{"", 0},
		{"Заказ >", 7},
		{"Заказ = 5", 6},
		{"(Заказ > 1", 10},
		{"Цена > 1", 0},
		{"Заказ > 1)", 9},
		{"Заказ # 1", 6},
		{"1..2 > 0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrExpressionSyntax))

			var syntaxErr *SyntaxError
			require.True(t, errors.As(err, &syntaxErr))
			assert.Equal(t, tt.pos, syntaxErr.Pos)
		})
	}
}

func TestMatch(t *testing.T) {
	row := domain.OrderRow{Product: "A", Limit: 10, Stock: 2, Order: 8}
	tests := []struct {
		src  string
		want bool
	}{
		{"Заказ >= 5", true},
		{"Заказ > 8", false},
		{"Остаток < Лимиты / 3", true},
		{"Заказ == Лимиты - Остаток", true},
		{"Остаток > 5 or Заказ > 5", true},
		{"Остаток > 5 and Заказ > 5", false},
		{"not (Остаток > 5)", true},
		{"Заказ", true},
		{"Заказ - 8", false},
		{"(Заказ > 1) + (Остаток > 1) == 2", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			expr, err := Compile(tt.src)
			require.NoError(t, err)
			got, err := expr.Match(row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDivisionByZeroDropsOnlyThatRow(t *testing.T) {
	set, err := CompileAll([]string{"Заказ / Остаток > 1"})
	require.NoError(t, err)

	rows := []domain.OrderRow{
		{Product: "A", Limit: 10, Stock: 0, Order: 10},
		{Product: "B", Limit: 10, Stock: 2, Order: 8},
	}
	kept := set.Apply(rows)
	require.Len(t, kept, 1)
	assert.Equal(t, "B", kept[0].Product)

	_, err = set[0].Match(rows[0])
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestShortCircuitAvoidsDivision(t *testing.T) {
	expr, err := Compile("Остаток > 0 and Заказ / Остаток > 1")
	require.NoError(t, err)
	ok, err := expr.Match(domain.OrderRow{Limit: 5, Stock: 0, Order: 5})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetIsConjunctionAndMonotonic(t *testing.T) {
	rows := []domain.OrderRow{
		{Product: "A", Limit: 5, Stock: 0, Order: 5},
		{Product: "B", Limit: 5, Stock: 2, Order: 3},
		{Product: "C", Limit: 20, Stock: 1, Order: 19},
	}
	sources := []string{"Заказ >= 3", "Лимиты <= 10", "Остаток == 0"}

	prev := len(rows)
	for n := 0; n <= len(sources); n++ {
		set, err := CompileAll(sources[:n])
		require.NoError(t, err)
		kept := set.Apply(rows)
		assert.LessOrEqual(t, len(kept), prev)
		prev = len(kept)
	}

	set, err := CompileAll(sources)
	require.NoError(t, err)
	kept := set.Apply(rows)
	require.Len(t, kept, 1)
	assert.Equal(t, "A", kept[0].Product)
}

func TestApplyIsIdempotent(t *testing.T) {
	set, err := CompileAll([]string{"Заказ >= 5", "  "})
	require.NoError(t, err)
	require.Len(t, set, 1)

	rows := []domain.OrderRow{
		{Product: "A", Limit: 5, Stock: 0, Order: 5},
		{Product: "B", Limit: 5, Stock: 2, Order: 3},
	}
	once := set.Apply(rows)
	assert.Equal(t, once, set.Apply(once))
	require.Len(t, once, 1)
	assert.Equal(t, "A", once[0].Product)
}

func TestCompileAllStopsOnSyntaxError(t *testing.T) {
	_, err := CompileAll([]string{"Заказ > 1", "Заказ >>"})
	assert.ErrorIs(t, err, domain.ErrExpressionSyntax)
}
