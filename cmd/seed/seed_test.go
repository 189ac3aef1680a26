package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSeedRows(t *testing.T) {
	input := "name;items\nМагазин 1;М1 | Store 1\n;skipped\nМагазин 2\n"
	rows, err := readSeedRows(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []seedRow{
		{Name: "Магазин 1", Items: []string{"М1", "Store 1"}},
		{Name: "Магазин 2"},
	}, rows)

	rows, err = readSeedRows(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestResolveObjectKey(t *testing.T) {
	assert.Equal(t, "orders/s1/o1.xlsx", resolveObjectKey("orders", "s1/o1.xlsx"))
	assert.Equal(t, "orders/s1/o1.xlsx", resolveObjectKey("orders/", "/orders/s1/o1.xlsx"))
	assert.Equal(t, "x.xlsx", resolveObjectKey("", "/x.xlsx"))
}

func TestObjectRelativePath(t *testing.T) {
	assert.Equal(t, "s1/o1.xlsx", objectRelativePath("orders", "prod/orders/s1/o1.xlsx"))
	assert.Equal(t, "o1.xlsx", objectRelativePath("global-stock", "prod/orders/o1.xlsx"))
	assert.Equal(t, "a/b.xlsx", objectRelativePath("", "a/b.xlsx"))
}
