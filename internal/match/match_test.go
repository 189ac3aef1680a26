package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"latin homoglyphs", "POCKET", "роскет"},
		{"dashes and spaces", "Кабель  2—3\t1м", "кабель 2-3 1м"},
		{"trim", "  Товар А ", "товар а"},
		{"full width digits", "Батарейка ２", "батарейка 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"лампа", "25", "вт"}, Tokens("Лампа 25Вт"))
	assert.Empty(t, Tokens("--"))
}

func TestIndexResolve(t *testing.T) {
	ix := NewIndex([]string{"Товар А", "Rocketman"}, false)

	got, ok := ix.Resolve("Товар А")
	assert.True(t, ok)
	assert.Equal(t, "Товар А", got)

	got, ok = ix.Resolve("  товар  a ")
	assert.True(t, ok)
	assert.Equal(t, "Товар А", got)

	got, ok = ix.Resolve("rocketman ")
	assert.True(t, ok)
	assert.Equal(t, "Rocketman", got)

	_, ok = ix.Resolve("Товар Б")
	assert.False(t, ok)
}

func TestIndexTokenMatch(t *testing.T) {
	ix := NewIndex([]string{"Лампа 25", "Лампа 250", "Кабель"}, true)

	got, ok := ix.Resolve("Лампа светодиодная 250 Вт")
	assert.True(t, ok)
	assert.Equal(t, "Лампа 250", got)

	got, ok = ix.Resolve("Лампа 25 теплая")
	assert.True(t, ok)
	assert.Equal(t, "Лампа 25", got)

	got, ok = ix.Resolve("Удлинитель кабельный")
	assert.True(t, ok)
	assert.Equal(t, "Кабель", got)

	_, ok = ix.Resolve("Лампа 2500")
	assert.False(t, ok)
}

func TestIndexFuzzyDisabled(t *testing.T) {
	ix := NewIndex([]string{"Лампа 25"}, false)
	_, ok := ix.Resolve("Лампа 25 теплая")
	assert.False(t, ok)
}
