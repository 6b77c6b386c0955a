package pool

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	pkgerrors "github.com/TFMV/campaignqa/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}

func TestNew(t *testing.T) {
	logger := zerolog.New(zerolog.NewTestWriter(t))

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "duckdb in memory",
			config: Config{Driver: DriverDuckDB, DSN: ":memory:"},
		},
		{
			name:   "default driver",
			config: Config{},
		},
		{
			name:   "sqlite in memory",
			config: Config{Driver: DriverSQLite, DSN: ":memory:"},
		},
		{
			name:    "unsupported driver",
			config:  Config{Driver: "oracle"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.config, logger)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, pkgerrors.CodeConfigInvalid, pkgerrors.GetCode(err))
				return
			}
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.NoError(t, p.Close())
		})
	}
}

func TestConnectionPool_Get(t *testing.T) {
	p, err := New(Config{Driver: DriverDuckDB}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	defer p.Close()

	db, err := p.Get(context.Background())
	require.NoError(t, err)
	require.NotNil(t, db)

	var n int
	require.NoError(t, db.QueryRow("SELECT 42").Scan(&n))
	assert.Equal(t, 42, n)
}

func TestConnectionPool_SQLiteMemoryIsPinned(t *testing.T) {
	p, err := New(Config{Driver: DriverSQLite}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	defer p.Close()

	db, err := p.Get(context.Background())
	require.NoError(t, err)

	_, err = db.Exec("CREATE TABLE t (id INTEGER)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t VALUES (1), (2)")
	require.NoError(t, err)

	// A second handle must see the same in-memory database.
	db2, err := p.Get(context.Background())
	require.NoError(t, err)
	var count int
	require.NoError(t, db2.QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 2, count)
	assert.Equal(t, DriverSQLite, p.Driver())
}

func TestConnectionPool_Stats(t *testing.T) {
	p, err := New(Config{Driver: DriverDuckDB}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.Get(context.Background())
	require.NoError(t, err)

	stats := p.Stats()
	assert.Equal(t, DriverDuckDB, stats.Driver)
	assert.Equal(t, "healthy", stats.HealthCheckStatus)
	assert.EqualValues(t, 1, stats.WaitCount)
	assert.False(t, stats.LastHealthCheck.IsZero())
}

func TestConnectionPool_HealthCheckRoutine(t *testing.T) {
	p, err := New(Config{
		Driver:            DriverDuckDB,
		HealthCheckPeriod: 10 * time.Millisecond,
	}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, "healthy", p.Stats().HealthCheckStatus)
	require.NoError(t, p.Close())
}

func TestConnectionPool_Close(t *testing.T) {
	p, err := New(Config{Driver: DriverDuckDB}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.NoError(t, p.Close(), "second close is a no-op")

	_, err = p.Get(context.Background())
	assert.ErrorIs(t, err, pkgerrors.ErrPoolClosed)
	assert.ErrorIs(t, p.HealthCheck(context.Background()), pkgerrors.ErrPoolClosed)
}

func TestConnectionPool_LogQuery(t *testing.T) {
	p, err := New(Config{
		Driver:                 DriverDuckDB,
		EnableSlowQueryLogging: true,
		SlowQueryThreshold:     5 * time.Millisecond,
	}, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)
	defer p.Close()

	p.LogQuery("SELECT 1", time.Millisecond, nil)
	p.LogQuery("SELECT * FROM email_campaigns", 50*time.Millisecond, nil)

	assert.EqualValues(t, 1, p.Stats().SlowQueries)
}

func TestMaskDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"memory", ":memory:", ":memory:"},
		{"empty", "", ""},
		{"short path", "a.db", "***"},
		{"file path", "/var/data/campaigns.duckdb", "/va***kdb"},
		{"url password", "md:campaigns?motherduck_token=abc", "md:campaigns?motherduck_token=%2A%2A%2A%2A%2A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, maskDSN(tt.dsn))
		})
	}
}

func TestTruncateQuery(t *testing.T) {
	assert.Equal(t, "SELECT 1 FROM t", truncateQuery("SELECT  1\n  FROM t"))

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	got := truncateQuery(string(long))
	assert.Len(t, got, 203)
	assert.Equal(t, "...", got[200:])
}
