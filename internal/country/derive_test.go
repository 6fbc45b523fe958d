package country

import (
	"testing"

	"github.com/SlpAus/country-cache-backend/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func ptr[T any](v T) *T { return &v }

func TestEstimatedGDP(t *testing.T) {
	d := NewDeriver(fixedSource(0.5))

	tests := []struct {
		name       string
		population *int64
		rate       *float64
		want       *float64
	}{
		{name: "unknown population", population: nil, rate: ptr(50.0), want: nil},
		{name: "unknown rate", population: ptr(int64(1000)), rate: nil, want: ptr(0.0)},
		{name: "zero rate", population: ptr(int64(1000)), rate: ptr(0.0), want: nil},
		{name: "testland", population: ptr(int64(1_000_000)), rate: ptr(50.0), want: ptr(30_000_000.0)},
		{name: "zero population", population: ptr(int64(0)), rate: ptr(2.0), want: ptr(0.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.EstimatedGDP(tt.population, tt.rate)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-6)
		})
	}
}

func TestEstimatedGDPMultiplierRange(t *testing.T) {
	d := NewDeriver(nil)
	pop := int64(1000)
	rate := 1.0
	for i := 0; i < 1000; i++ {
		got := d.EstimatedGDP(&pop, &rate)
		require.NotNil(t, got)
		assert.GreaterOrEqual(t, *got, 1_000_000.0)
		assert.Less(t, *got, 2_000_000.0)
	}
}

func TestExtractCurrencyCode(t *testing.T) {
	assert.Nil(t, ExtractCurrencyCode(upstream.RawCountry{}))
	assert.Nil(t, ExtractCurrencyCode(upstream.RawCountry{Currencies: []upstream.Currency{{Code: ""}}}))

	code := ExtractCurrencyCode(upstream.RawCountry{Currencies: []upstream.Currency{{Code: "NGN"}, {Code: "USD"}}})
	require.NotNil(t, code)
	assert.Equal(t, "NGN", *code)
}

func TestDerive(t *testing.T) {
	d := NewDeriver(fixedSource(0.5))
	raws := []upstream.RawCountry{
		{
			Name:       "Testland",
			Capital:    ptr("Test City"),
			Region:     ptr("Africa"),
			Population: ptr(int64(1_000_000)),
			Flag:       ptr("https://flags.example/tl.svg"),
			Currencies: []upstream.Currency{{Code: "TST"}},
		},
		{Name: "Norate", Population: ptr(int64(10)), Currencies: []upstream.Currency{{Code: "XXX"}}},
		{Name: "Nocurrency", Population: ptr(int64(10))},
		{Name: "Nopop", Currencies: []upstream.Currency{{Code: "TST"}}},
		{Name: "   "},
	}
	rates := map[string]float64{"TST": 50}

	got := d.Derive(raws, rates)
	require.Len(t, got, 4)

	tl := got[0]
	assert.Equal(t, "Testland", tl.Name)
	assert.Equal(t, "Test City", *tl.Capital)
	assert.Equal(t, "Africa", *tl.Region)
	assert.Equal(t, int64(1_000_000), tl.Population)
	assert.Equal(t, "TST", *tl.CurrencyCode)
	assert.Equal(t, 50.0, *tl.ExchangeRate)
	assert.InDelta(t, 30_000_000.0, *tl.EstimatedGDP, 1e-6)
	assert.Equal(t, "https://flags.example/tl.svg", *tl.FlagURL)

	// 有货币代码但没有汇率：汇率和GDP都为空
	nr := got[1]
	assert.Equal(t, "XXX", *nr.CurrencyCode)
	assert.Nil(t, nr.ExchangeRate)
	assert.Nil(t, nr.EstimatedGDP)

	// 没有货币代码：GDP为0
	nc := got[2]
	assert.Nil(t, nc.CurrencyCode)
	assert.Nil(t, nc.ExchangeRate)
	require.NotNil(t, nc.EstimatedGDP)
	assert.Zero(t, *nc.EstimatedGDP)

	// 人口未知时按0存储，GDP为空
	np := got[3]
	assert.Zero(t, np.Population)
	assert.Equal(t, 50.0, *np.ExchangeRate)
	assert.Nil(t, np.EstimatedGDP)
}
