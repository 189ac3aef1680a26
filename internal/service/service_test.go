package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/orderplan/internal/cache"
	"github.com/andresuchdata/orderplan/internal/config"
	"github.com/andresuchdata/orderplan/internal/domain"
	"github.com/andresuchdata/orderplan/internal/history"
	"github.com/andresuchdata/orderplan/internal/repository"
	"github.com/andresuchdata/orderplan/internal/repository/memory"
	"github.com/andresuchdata/orderplan/internal/storage"
	"github.com/andresuchdata/orderplan/internal/synonym"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fixture struct {
	ctx      context.Context
	repos    *repository.Set
	stores   *StoreService
	mappings *MappingService
	filters  *FilterService
	stock    *StockService
	process  *ProcessService
	orders   *OrderService
	history  *HistoryService
	novelty  *NoveltyService
}

func newFixture(t *testing.T, policy string) *fixture {
	t.Helper()
	repos := memory.NewSet()
	noop := cache.NewNoop()
	archive := storage.NewArchive(nil, "")
	engine := config.DefaultEngine()
	recorder := history.NewRecorder(repos.History)

	f := &fixture{ctx: context.Background(), repos: repos}
	f.stores = NewStoreService(repos.Stores, repos.Limits, noop)
	f.mappings = NewMappingService(repos.Mappings, policy)
	f.filters = NewFilterService(repos.Filters)
	f.stock = NewStockService(repos.GlobalStock, repos.Stores, f.mappings, recorder, noop, noop, archive)
	f.process = NewProcessService(repos, f.mappings, f.filters, f.stock, recorder, noop, archive, engine)
	f.orders = NewOrderService(repos.Orders, repos.Stores, archive, engine)
	f.history = NewHistoryService(repos.Stores, recorder, noop)
	f.novelty = NewNoveltyService(repos, f.stock, f.stores, engine)
	return f
}

func (f *fixture) store(t *testing.T, name string, limits string) *domain.Store {
	t.Helper()
	st, err := f.stores.CreateStore(f.ctx, StoreInput{Name: name})
	require.NoError(t, err)
	if limits != "" {
		_, err = f.stores.AddLimits(f.ctx, st.ID, AddLimitsInput{Text: limits})
		require.NoError(t, err)
	}
	return st
}

func xlsx(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	wb := excelize.NewFile()
	defer wb.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, wb.SetSheetRow("Sheet1", cell, &r))
	}
	var buf bytes.Buffer
	require.NoError(t, wb.Write(&buf))
	return buf.Bytes()
}

func readOrder(t *testing.T, data []byte) [][]string {
	t.Helper()
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(wb.GetSheetList()[0])
	require.NoError(t, err)
	return rows
}

func TestCreateStoreCopiesLimits(t *testing.T) {
	f := newFixture(t, "")
	src := f.store(t, "Source", "A :: 1\nB :: 2")

	dst, err := f.stores.CreateStore(f.ctx, StoreInput{Name: " Copy ", CopyFromID: src.ID, Aliases: []string{" c ", "", "c"}})
	require.NoError(t, err)
	assert.Equal(t, "Copy", dst.Name)
	assert.Equal(t, []string{"c"}, dst.Aliases)

	limits, err := f.stores.ListLimits(f.ctx, dst.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, []string{limits[0].Product, limits[1].Product})

	_, err = f.stores.CreateStore(f.ctx, StoreInput{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.stores.CreateStore(f.ctx, StoreInput{Name: "X", CopyFromID: "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddLimitsBulkTextAndBroadcast(t *testing.T) {
	f := newFixture(t, "")
	s1 := f.store(t, "S1", "")
	s2 := f.store(t, "S2", "Товар А :: 1")

	limits, err := f.stores.AddLimits(f.ctx, s1.ID, AddLimitsInput{Text: "Товар А :: 10\nbadline\nТовар Б :: 3", ApplyToAll: true})
	require.NoError(t, err)
	assert.Equal(t, []domain.Limit{
		{StoreID: s1.ID, Product: "Товар А", Limit: 10},
		{StoreID: s1.ID, Product: "Товар Б", Limit: 3},
	}, limits)

	other, err := f.stores.ListLimits(f.ctx, s2.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Limit{
		{StoreID: s2.ID, Product: "Товар А", Limit: 1},
		{StoreID: s2.ID, Product: "Товар Б", Limit: 3},
	}, other)

	_, err = f.stores.AddLimits(f.ctx, s1.ID, AddLimitsInput{Text: "nothing here"})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestProcessTextAppliesFilters(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "Магазин", "A :: 5\nB :: 5")

	res, err := f.process.Process(f.ctx, ProcessRequest{
		StoreID:           st.ID,
		Rows:              []StockRow{{Product: "A", Stock: 0}, {Product: "B", Stock: 2}},
		FilterExpressions: []string{"Заказ >= 5"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceText, res.Order.Source)
	assert.Equal(t, "Магазин.xlsx", res.Filename)
	assert.Equal(t, [][]string{{"Магазин", "Заказ"}, {"A", "5"}}, readOrder(t, res.Workbook))

	summaries, err := f.orders.List(f.ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].ItemsCount)

	points, err := f.repos.History.ListHistory(f.ctx, st.ID, "B", time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 2.0, *points[0].Stock)
	assert.Nil(t, points[0].Order)
}

func TestProcessRejectsBadFilterBeforeWriting(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 5")

	_, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Text: "A\t1", FilterExpressions: []string{"Заказ >"}})
	assert.ErrorIs(t, err, domain.ErrExpressionSyntax)

	points, err := f.repos.History.ListHistory(f.ctx, st.ID, "", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestProcessRecordsStockWhenNothingToOrder(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 5")

	_, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Text: "A\t10\nZ\t3"})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)

	points, err := f.repos.History.ListHistory(f.ctx, st.ID, "", time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 2)
	stock := map[string]float64{}
	for _, p := range points {
		assert.Nil(t, p.Order)
		require.NotNil(t, p.Stock)
		stock[p.Product] = *p.Stock
	}
	assert.Equal(t, map[string]float64{"A": 10, "Z": 3}, stock)
	assert.Equal(t, points[0].RecordedAt, points[1].RecordedAt)
}

func TestProcessSumsSynonymFractionsStably(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "X :: 5")
	_, err := f.mappings.Create(f.ctx, MappingInput{MainProduct: "X", SynonymsText: "a\nb\nc"})
	require.NoError(t, err)

	rows := []StockRow{{Product: "c", Stock: 0.7}, {Product: "a", Stock: 0.1}, {Product: "b", Stock: 0.2}}
	want := 0.1
	want += 0.2
	want += 0.7

	for i := 0; i < 50; i++ {
		res, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Rows: rows})
		require.NoError(t, err)
		require.Len(t, res.Order.Items, 1)
		require.Equal(t, want, res.Order.Items[0].Stock)
		require.Equal(t, 4, res.Order.Items[0].Quantity)
	}
}

func TestProcessResolvesSynonyms(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "Rocketman :: 10")
	_, err := f.mappings.Create(f.ctx, MappingInput{MainProduct: "Rocketman", SynonymsText: "Рокетмен\nRocket man"})
	require.NoError(t, err)

	res, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Text: "Товар\tОстаток\nРокетмен\t5\nRocket man\t3"})
	require.NoError(t, err)
	require.Len(t, res.Order.Items, 1)
	assert.Equal(t, 8.0, res.Order.Items[0].Stock)
	assert.Equal(t, 2, res.Order.Items[0].Quantity)
}

func TestProcessSellerRequestOnly(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 1")

	res, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Text: "A\t4", SellerRequest: "Клей\n\nЛента\n"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"S", "Заказ"}, {"Клей"}, {"Лента"}}, readOrder(t, res.Workbook))
	assert.Equal(t, "Клей\n\nЛента", res.Order.SellerRequest)

	_, err = f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Text: "A\t4"})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestProcessFile(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 10")

	data := xlsx(t, [][]interface{}{{"Товар", "Остаток"}, {"A", 4}})
	res, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Filename: "stock.xlsx", File: data})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFile, res.Order.Source)
	assert.Equal(t, 6, res.Order.Items[0].Quantity)

	_, err = f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Filename: "stock.pdf", File: []byte("x")})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = f.process.Process(f.ctx, ProcessRequest{StoreID: "missing", Text: "A\t1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGlobalUploadAndProcess(t *testing.T) {
	f := newFixture(t, "")
	s1 := f.store(t, "S1", "A :: 5\nB :: 5\nC :: 5")
	s2, err := f.stores.CreateStore(f.ctx, StoreInput{Name: "Second", Aliases: []string{"S2"}})
	require.NoError(t, err)
	unmapped := f.store(t, "Nowhere", "A :: 2")

	data := xlsx(t, [][]interface{}{
		{"Товар", "S1", "S2", "Электро"},
		{"A", 1, 7, 10},
		{"B", 2, 0, 2},
		{"C", "", 1, 5},
	})
	stockDate := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	res, err := f.stock.Upload(f.ctx, "global.xlsx", data, stockDate)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ProductsCount)
	assert.Equal(t, []string{"S1", "S2"}, res.StoresFound)
	assert.Equal(t, 6, res.EntriesCreated)

	points, err := f.repos.History.ListHistory(f.ctx, s2.ID, "A", time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, stockDate, points[0].RecordedAt)
	assert.Equal(t, 7.0, *points[0].Stock)

	out, err := f.process.Process(f.ctx, ProcessRequest{StoreID: s1.ID, UseGlobalStock: true})
	require.NoError(t, err)
	assert.Equal(t, domain.SourceGlobal, out.Order.Source)
	// B is dropped: Электро 2 minus reserve 2 leaves nothing
	assert.Equal(t, [][]string{{"S1", "Заказ"}, {"A", "4"}, {"C", "5"}}, readOrder(t, out.Workbook))

	// a store without a column gets no computed rows
	_, err = f.process.Process(f.ctx, ProcessRequest{StoreID: unmapped.ID, UseGlobalStock: true})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
	out, err = f.process.Process(f.ctx, ProcessRequest{StoreID: unmapped.ID, UseGlobalStock: true, SellerRequest: "Клей"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Nowhere", "Заказ"}, {"Клей"}}, readOrder(t, out.Workbook))
	points, err = f.repos.History.ListHistory(f.ctx, unmapped.ID, "", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, points)

	infos, err := f.stock.History(f.ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 3, infos[0].ProductsCount)
}

func TestProcessGlobalWithoutUpload(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 1")
	_, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, UseGlobalStock: true})
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestParseStockDate(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	got, err := ParseStockDate("", now)
	require.NoError(t, err)
	assert.Equal(t, now, got)

	got, err = ParseStockDate("2024-05-01", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseStockDate("yesterday", now)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNovelties(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 5\nB :: 0")

	report, err := f.novelty.List(f.ctx, st.ID)
	require.NoError(t, err)
	assert.Empty(t, report.NewProducts)
	assert.NotEmpty(t, report.Message)

	data := xlsx(t, [][]interface{}{
		{"Товар", "Электро"},
		{"A", 10},
		{"B", 4},
		{"C", 3},
		{"D", 2},
		{"E", 9},
	})
	_, err = f.stock.Upload(f.ctx, "g.xlsx", data, time.Time{})
	require.NoError(t, err)

	report, err = f.novelty.List(f.ctx, st.ID)
	require.NoError(t, err)
	var names []string
	for _, n := range report.NewProducts {
		names = append(names, n.Product)
	}
	assert.Equal(t, []string{"B", "C", "E"}, names)
	assert.Equal(t, 3, report.TotalCount)

	_, err = f.novelty.Accept(f.ctx, st.ID, "C", 4)
	require.NoError(t, err)
	require.NoError(t, f.novelty.Reject(f.ctx, st.ID, "E"))

	report, err = f.novelty.List(f.ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, report.NewProducts, 1)
	assert.Equal(t, "B", report.NewProducts[0].Product)

	require.NoError(t, f.novelty.Unblacklist(f.ctx, st.ID, "E"))
	assert.ErrorIs(t, f.novelty.Unblacklist(f.ctx, st.ID, "E"), domain.ErrNotFound)
}

func TestMappingPolicies(t *testing.T) {
	f := newFixture(t, synonym.PolicyReject)
	_, err := f.mappings.Create(f.ctx, MappingInput{MainProduct: "A", Synonyms: []string{"a1", " a1 ", "A"}})
	require.NoError(t, err)

	_, err = f.mappings.Create(f.ctx, MappingInput{MainProduct: "B", Synonyms: []string{"A1"}})
	assert.ErrorIs(t, err, domain.ErrAmbiguousSynonym)
	_, err = f.mappings.Create(f.ctx, MappingInput{MainProduct: "a"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	lenient := NewMappingService(f.repos.Mappings, synonym.PolicyLastWins)
	_, err = lenient.Create(f.ctx, MappingInput{MainProduct: "B", Synonyms: []string{"A1"}})
	require.NoError(t, err)
	conflicts, err := lenient.Conflicts(f.ctx)
	require.NoError(t, err)
	assert.Len(t, conflicts, 1)

	all, err := f.mappings.List(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1"}, all[0].Synonyms)
}

func TestFilterService(t *testing.T) {
	f := newFixture(t, "")
	_, err := f.filters.Create(f.ctx, "bad", "Заказ >= ")
	assert.ErrorIs(t, err, domain.ErrExpressionSyntax)

	saved, err := f.filters.Create(f.ctx, "", "Остаток < Лимиты / 3")
	require.NoError(t, err)
	assert.Equal(t, "Остаток < Лимиты / 3", saved.Name)

	set, err := f.filters.Compile(f.ctx, []string{" "}, []string{saved.ID})
	require.NoError(t, err)
	assert.Len(t, set, 1)

	_, err = f.filters.Compile(f.ctx, nil, []string{"missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestHistoryAndDownload(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 10")

	res, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Text: "A\t4"})
	require.NoError(t, err)

	summary, err := f.history.Summary(f.ctx, st.ID, "day")
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, 6, *summary[0].Order)

	series, err := f.history.Series(f.ctx, st.ID, "A", "")
	require.NoError(t, err)
	assert.Len(t, series.Stock, 1)
	assert.Len(t, series.Orders, 1)

	_, err = f.history.Summary(f.ctx, st.ID, "decade")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.history.Summary(f.ctx, "missing", "week")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.stores.UpdateStore(f.ctx, st.ID, StoreInput{Name: "Renamed"})
	require.NoError(t, err)
	data, name, err := f.orders.Download(f.ctx, st.ID, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed.xlsx", name)
	assert.Equal(t, [][]string{{"Renamed", "Заказ"}, {"A", "6"}}, readOrder(t, data))

	_, _, err = f.orders.Download(f.ctx, st.ID, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRenameLimitMovesHistory(t *testing.T) {
	f := newFixture(t, "")
	st := f.store(t, "S", "A :: 10")
	_, err := f.process.Process(f.ctx, ProcessRequest{StoreID: st.ID, Text: "A\t4"})
	require.NoError(t, err)

	_, err = f.stores.RenameLimit(f.ctx, st.ID, "A", "A2")
	require.NoError(t, err)
	points, err := f.repos.History.ListHistory(f.ctx, st.ID, "A2", time.Time{})
	require.NoError(t, err)
	assert.Len(t, points, 1)

	require.NoError(t, f.stores.DeleteStore(f.ctx, st.ID))
	_, err = f.orders.List(f.ctx, st.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
