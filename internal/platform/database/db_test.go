package database

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/SlpAus/country-cache-backend/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorFor(t *testing.T) {
	tests := []struct {
		url     string
		driver  string
		wantErr bool
	}{
		{url: "postgres://u:p@localhost/db", driver: "postgres"},
		{url: "postgresql://u:p@localhost/db", driver: "postgres"},
		{url: filepath.Join(t.TempDir(), "a.db"), driver: "sqlite"},
		{url: "sqlite://" + filepath.Join(t.TempDir(), "nested", "b.db"), driver: "sqlite"},
		{url: "mysql://u:p@localhost/db", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			d, err := dialectorFor(tt.url)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.driver, d.Name())
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "countries.db"), MaxOpenConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	var one int
	require.NoError(t, db.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)
}

func TestReadiness(t *testing.T) {
	r := NewReadiness()

	ready, err := r.State()
	assert.False(t, ready)
	assert.NoError(t, err)

	boom := errors.New("migrate failed")
	r.MarkFailed(boom)
	ready, err = r.State()
	assert.False(t, ready)
	assert.ErrorIs(t, err, boom)

	r.MarkReady()
	assert.True(t, r.IsReady())
	_, err = r.State()
	assert.NoError(t, err)
}
