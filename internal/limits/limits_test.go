package limits

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBulk(t *testing.T) {
	got := ParseBulk("Товар А :: 10\nbadline\nТовар Б :: 3")
	assert.Equal(t, []domain.LimitInput{
		{Product: "Товар А", Limit: 10},
		{Product: "Товар Б", Limit: 3},
	}, got)
}

func TestParseBulkEdgeCases(t *testing.T) {
	text := "  Кабель :: 5  \r\n" +
		"A :: B :: 7\n" +
		"Лампа :: много\n" +
		" :: 4\n" +
		"Розетка::2\n" +
		"Удлинитель :: -1\n"

	got := ParseBulk(text)
	assert.Equal(t, []domain.LimitInput{
		{Product: "Кабель", Limit: 5},
		{Product: "A :: B", Limit: 7},
		{Product: "Удлинитель", Limit: -1},
	}, got)

	_, err := Validate(got)
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestValidateKeepsLastDuplicate(t *testing.T) {
	got, err := Validate([]domain.LimitInput{
		{Product: " A ", Limit: 1},
		{Product: "B", Limit: 2},
		{Product: "A", Limit: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.LimitInput{{Product: "A", Limit: 3}, {Product: "B", Limit: 2}}, got)

	_, err = Validate([]domain.LimitInput{{Product: " ", Limit: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestValidateRejectsNearDuplicates(t *testing.T) {
	// latin "A" and cyrillic "А" fold to the same name
	_, err := Validate([]domain.LimitInput{{Product: "Товар A", Limit: 1}, {Product: "товар  А", Limit: 2}})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

type fixture struct {
	ctx     context.Context
	repo    *memory.Store
	manager *Manager
	s1, s2  string
	s3      string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	repo := memory.New()
	f := &fixture{ctx: ctx, repo: repo, manager: NewManager(repo, repo)}
	for _, target := range []*string{&f.s1, &f.s2, &f.s3} {
		st := &domain.Store{Name: "store"}
		require.NoError(t, repo.CreateStore(ctx, st, ""))
		*target = st.ID
	}
	return f
}

func limitMap(t *testing.T, f *fixture, storeID string) map[string]int {
	t.Helper()
	limits, err := f.repo.ListLimits(f.ctx, storeID)
	require.NoError(t, err)
	out := make(map[string]int, len(limits))
	for _, l := range limits {
		out[l.Product] = l.Limit
	}
	return out
}

func TestAddApplyToAllNeverOverwrites(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.UpsertLimits(f.ctx, f.s2, []domain.LimitInput{{Product: "A", Limit: 99}}))
	require.NoError(t, f.repo.UpsertLimits(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 1}}))

	updated, err := f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 10}, {Product: "B", Limit: 3}}, true)
	require.NoError(t, err)
	assert.Len(t, updated, 2)

	assert.Equal(t, map[string]int{"A": 10, "B": 3}, limitMap(t, f, f.s1))
	assert.Equal(t, map[string]int{"A": 99, "B": 3}, limitMap(t, f, f.s2))
	assert.Equal(t, map[string]int{"A": 10, "B": 3}, limitMap(t, f, f.s3))
}

func TestAddSingleStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 10}}, false)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 10}, limitMap(t, f, f.s1))
	assert.Empty(t, limitMap(t, f, f.s2))
}

func TestAddRejectsInvalidLimit(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 1}, {Product: "B", Limit: -2}}, false)
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
	assert.Empty(t, limitMap(t, f, f.s1))

	_, err = f.manager.Add(f.ctx, "missing", []domain.LimitInput{{Product: "A", Limit: 1}}, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.manager.Add(f.ctx, f.s1, nil, false)
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestAddRejectsNearDuplicateOfStoredLimit(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "Кабель 3x1,5", Limit: 4}}, false)
	require.NoError(t, err)

	_, err = f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "кабель  3x1,5", Limit: 9}}, false)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.manager.Update(f.ctx, f.s1, "КАБЕЛЬ 3x1,5", 9)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, map[string]int{"Кабель 3x1,5": 4}, limitMap(t, f, f.s1))

	// the same name and a case-only rename of itself are fine
	_, err = f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "Кабель 3x1,5", Limit: 6}}, false)
	require.NoError(t, err)
	_, err = f.manager.Rename(f.ctx, f.s1, "Кабель 3x1,5", "КАБЕЛЬ 3x1,5")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"КАБЕЛЬ 3x1,5": 6}, limitMap(t, f, f.s1))
}

type failingLimits struct {
	*memory.Store
	failStore string
}

func (f *failingLimits) InsertLimitIfAbsent(ctx context.Context, storeID string, limit domain.LimitInput) (bool, error) {
	if storeID == f.failStore {
		return false, errors.New("disk full")
	}
	return f.Store.InsertLimitIfAbsent(ctx, storeID, limit)
}

func TestAddPartialBroadcast(t *testing.T) {
	f := newFixture(t)
	manager := NewManager(f.repo, &failingLimits{Store: f.repo, failStore: f.s2})

	_, err := manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 4}}, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPartialBroadcast)

	var broadcastErr *domain.BroadcastError
	require.True(t, errors.As(err, &broadcastErr))
	assert.ElementsMatch(t, []string{f.s1, f.s3}, broadcastErr.Applied)
	assert.Contains(t, broadcastErr.Failed, f.s2)

	assert.Equal(t, map[string]int{"A": 4}, limitMap(t, f, f.s1))
	assert.Empty(t, limitMap(t, f, f.s2))
	assert.Equal(t, map[string]int{"A": 4}, limitMap(t, f, f.s3))
}

func TestUpdateAffectsOnlyNamedStore(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 1}}, true)
	require.NoError(t, err)

	_, err = f.manager.Update(f.ctx, f.s2, "A", 7)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 1}, limitMap(t, f, f.s1))
	assert.Equal(t, map[string]int{"A": 7}, limitMap(t, f, f.s2))

	_, err = f.manager.Update(f.ctx, f.s2, "A", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestRenameMigratesHistoryAndBlacklist(t *testing.T) {
	f := newFixture(t)
	_, err := f.manager.Add(f.ctx, f.s1, []domain.LimitInput{{Product: "Old", Limit: 5}, {Product: "Other", Limit: 1}}, false)
	require.NoError(t, err)
	stock := 3.0
	require.NoError(t, f.repo.AppendHistory(f.ctx, []domain.HistoryPoint{{StoreID: f.s1, Product: "Old", RecordedAt: time.Now(), Stock: &stock}}))
	require.NoError(t, f.repo.AddToBlacklist(f.ctx, f.s1, "Old"))

	updated, err := f.manager.Rename(f.ctx, f.s1, "Old", "New")
	require.NoError(t, err)
	assert.Equal(t, "New", updated[0].Product)

	points, err := f.repo.ListHistory(f.ctx, f.s1, "New", time.Time{})
	require.NoError(t, err)
	assert.Len(t, points, 1)

	entries, err := f.repo.ListBlacklist(f.ctx, f.s1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "New", entries[0].Product)

	_, err = f.manager.Rename(f.ctx, f.s1, "Missing", "X")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.manager.Rename(f.ctx, f.s1, "New", "Other")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDeleteApplyToAll(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.UpsertLimits(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 1}, {Product: "B", Limit: 1}}))
	require.NoError(t, f.repo.UpsertLimits(f.ctx, f.s2, []domain.LimitInput{{Product: "A", Limit: 2}}))

	_, err := f.manager.Delete(f.ctx, f.s1, "A", true)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"B": 1}, limitMap(t, f, f.s1))
	assert.Empty(t, limitMap(t, f, f.s2))
	assert.Empty(t, limitMap(t, f, f.s3))
}

func TestDeleteSingle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.UpsertLimits(f.ctx, f.s1, []domain.LimitInput{{Product: "A", Limit: 1}}))
	require.NoError(t, f.repo.UpsertLimits(f.ctx, f.s2, []domain.LimitInput{{Product: "A", Limit: 2}}))

	_, err := f.manager.Delete(f.ctx, f.s1, "A", false)
	require.NoError(t, err)
	assert.Empty(t, limitMap(t, f, f.s1))
	assert.Equal(t, map[string]int{"A": 2}, limitMap(t, f, f.s2))

	_, err = f.manager.Delete(f.ctx, f.s1, "A", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
