package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchCountries(t *testing.T) {
	srv := serve(t, http.StatusOK, `[
		{"name":"Testland","capital":"Test City","region":"Africa","population":1000000,
		 "flag":"https://flags.example/tl.svg","currencies":[{"code":"TST","name":"Test","symbol":"T"}]},
		{"name":"Nowhere","population":5}
	]`)

	got, err := NewCountriesClient(srv.URL, time.Second).FetchCountries(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Testland", got[0].Name)
	require.NotNil(t, got[0].Population)
	assert.Equal(t, int64(1000000), *got[0].Population)
	require.Len(t, got[0].Currencies, 1)
	assert.Equal(t, "TST", got[0].Currencies[0].Code)

	assert.Nil(t, got[1].Capital)
	assert.Nil(t, got[1].Region)
	assert.Empty(t, got[1].Currencies)
}

func TestFetchCountriesEmpty(t *testing.T) {
	srv := serve(t, http.StatusOK, `[]`)

	_, err := NewCountriesClient(srv.URL, time.Second).FetchCountries(context.Background())
	assert.ErrorIs(t, err, ErrEmptyPayload)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchCountriesBadStatus(t *testing.T) {
	srv := serve(t, http.StatusBadGateway, `upstream down`)

	_, err := NewCountriesClient(srv.URL, time.Second).FetchCountries(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrEmptyPayload)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchCountriesMalformed(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"not":"an array"`)

	_, err := NewCountriesClient(srv.URL, time.Second).FetchCountries(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchCountriesTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewCountriesClient(srv.URL, 20*time.Millisecond).FetchCountries(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestFetchRates(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"result":"success","base_code":"USD","rates":{"USD":1,"NGN":1600.5,"TST":50}}`)

	got, err := NewRatesClient(srv.URL, time.Second).FetchRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1600.5, got["NGN"])
	assert.Equal(t, 50.0, got["TST"])
}

func TestFetchRatesNullRateIsMissing(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"result":"success","base_code":"USD","rates":{"TST":50,"NUL":null}}`)

	got, err := NewRatesClient(srv.URL, time.Second).FetchRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"TST": 50}, got)
	_, exists := got["NUL"]
	assert.False(t, exists)
}

func TestFetchRatesMissingTable(t *testing.T) {
	srv := serve(t, http.StatusOK, `{"result":"success"}`)

	got, err := NewRatesClient(srv.URL, time.Second).FetchRates(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	rc := NewRatesClient(srv.URL, time.Second)
	for i := 0; i < breakerFailures; i++ {
		_, err := rc.FetchRates(context.Background())
		require.ErrorIs(t, err, ErrUnavailable)
	}

	_, err := rc.FetchRates(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(breakerFailures), hits.Load())
}

func TestBreakerIgnoresCanceledCallers(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"result":"success","rates":{"TST":50}}`))
	}))
	t.Cleanup(srv.Close)

	rc := NewRatesClient(srv.URL, time.Second)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < breakerFailures+1; i++ {
		_, err := rc.FetchRates(canceled)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, rc.c.cb.State())
	assert.Zero(t, hits.Load())

	got, err := rc.FetchRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, got["TST"])
}

func TestBreakerIgnoresCancellationInFlight(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	rc := NewRatesClient(srv.URL, 5*time.Second)
	for i := 0; i < breakerFailures; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		time.AfterFunc(20*time.Millisecond, cancel)
		_, err := rc.FetchRates(ctx)
		require.ErrorIs(t, err, context.Canceled)
		cancel()
	}
	assert.Equal(t, gobreaker.StateClosed, rc.c.cb.State())
}
