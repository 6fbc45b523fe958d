package country

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/SlpAus/country-cache-backend/internal/platform/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "countries.db")), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, metadata.Migrate(db))
	require.NoError(t, Migrate(db))
	return db
}

func rec(name, region, currency string, population int64, gdp *float64) Country {
	c := Country{Name: name, Population: population, EstimatedGDP: gdp}
	if region != "" {
		c.Region = &region
	}
	if currency != "" {
		c.CurrencyCode = &currency
	}
	return c
}

func names(cs []Country) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

func TestUpsertCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	t1 := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	n, err := repo.Upsert(ctx, []Country{rec("Nigeria", "Africa", "NGN", 100, ptr(1.0))}, t1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	first, err := repo.GetByName(ctx, "nigeria")
	require.NoError(t, err)

	_, err = repo.Upsert(ctx, []Country{rec("NIGERIA", "Africa", "NGN", 200, nil)}, t2)
	require.NoError(t, err)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "NIGERIA", got.Name)
	assert.Equal(t, int64(200), got.Population)
	assert.Nil(t, got.EstimatedGDP)
	assert.True(t, t2.Equal(got.LastRefreshedAt))
}

func TestUpsertDedupsBatch(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))

	n, err := repo.Upsert(ctx, []Country{
		rec("Chad", "Africa", "XAF", 1, nil),
		rec("CHAD", "Africa", "XAF", 2, nil),
		rec("", "Africa", "XAF", 3, nil),
	}, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := repo.GetByName(ctx, "chad")
	require.NoError(t, err)
	assert.Equal(t, "CHAD", got.Name)
	assert.Equal(t, int64(2), got.Population)
}

func TestUpsertKeepsUntouchedTimestamps(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	t1 := time.Date(2025, 10, 20, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	_, err := repo.Upsert(ctx, []Country{rec("A", "", "", 1, nil), rec("B", "", "", 1, nil)}, t1)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, []Country{rec("A", "", "", 1, nil)}, t2)
	require.NoError(t, err)

	b, err := repo.GetByName(ctx, "b")
	require.NoError(t, err)
	assert.True(t, t1.Equal(b.LastRefreshedAt))

	st, err := repo.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Total)
	require.NotNil(t, st.LastRefreshedAt)
	assert.True(t, t2.Equal(*st.LastRefreshedAt))
}

func TestUpsertManyBatches(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))

	records := make([]Country, 0, 250)
	for i := 0; i < 250; i++ {
		records = append(records, rec(fmt.Sprintf("Country-%03d", i), "", "", int64(i), nil))
	}
	n, err := repo.Upsert(ctx, records, time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 250, n)

	st, err := repo.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(250), st.Total)
}

func TestListFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	_, err := repo.Upsert(ctx, []Country{
		rec("Kenya", "Africa", "KES", 50, ptr(5.0)),
		rec("Ghana", "Africa", "GHS", 30, nil),
		rec("Nigeria", "Africa", "NGN", 200, ptr(9.0)),
		rec("France", "Europe", "EUR", 60, ptr(7.0)),
		rec("Togo", "Africa", "XOF", 8, ptr(0.0)),
	}, time.Now().UTC())
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "storage order", filter: Filter{}, want: []string{"Kenya", "Ghana", "Nigeria", "France", "Togo"}},
		{name: "unknown sort", filter: Filter{Sort: "bogus"}, want: []string{"Kenya", "Ghana", "Nigeria", "France", "Togo"}},
		{name: "region", filter: Filter{Region: "Europe"}, want: []string{"France"}},
		{name: "region is exact", filter: Filter{Region: "africa"}, want: []string{}},
		{name: "currency", filter: Filter{Currency: "NGN"}, want: []string{"Nigeria"}},
		{name: "gdp desc nulls last", filter: Filter{Region: "Africa", Sort: SortGDPDesc}, want: []string{"Nigeria", "Kenya", "Togo", "Ghana"}},
		{name: "name asc", filter: Filter{Sort: SortNameAsc}, want: []string{"France", "Ghana", "Kenya", "Nigeria", "Togo"}},
		{name: "name desc", filter: Filter{Sort: SortNameDesc}, want: []string{"Togo", "Nigeria", "Kenya", "Ghana", "France"}},
		{name: "population desc", filter: Filter{Sort: SortPopulationDesc}, want: []string{"Nigeria", "France", "Kenya", "Ghana", "Togo"}},
		{name: "population asc", filter: Filter{Sort: SortPopulationAsc}, want: []string{"Togo", "Ghana", "Kenya", "France", "Nigeria"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestGetAndDeleteByName(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	_, err := repo.Upsert(ctx, []Country{rec("Nigeria", "Africa", "NGN", 1, nil)}, time.Now().UTC())
	require.NoError(t, err)

	_, err = repo.GetByName(ctx, "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := repo.DeleteByName(ctx, "NiGeRiA")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.DeleteByName(ctx, "nigeria")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = repo.GetByName(ctx, "nigeria")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStatusEmpty(t *testing.T) {
	st, err := NewRepository(openTestDB(t)).Status(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.Nil(t, st.LastRefreshedAt)
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(openTestDB(t))
	_, err := repo.Upsert(ctx, []Country{rec("A", "", "", 1, nil), rec("B", "", "", 1, nil)}, time.Now().UTC())
	require.NoError(t, err)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	st, err := repo.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
}
