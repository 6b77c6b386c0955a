// Package pool provides database handles for the embedded SQL engines.
package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	pkgerrors "github.com/TFMV/campaignqa/pkg/errors"
)

// Supported drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// Config represents pool configuration.
type Config struct {
	Driver             string        `json:"driver"`
	DSN                string        `json:"dsn"`
	MaxOpenConnections int           `json:"max_open_connections"`
	MaxIdleConnections int           `json:"max_idle_connections"`
	ConnMaxLifetime    time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime    time.Duration `json:"conn_max_idle_time"`
	HealthCheckPeriod  time.Duration `json:"health_check_period"`
	ConnectionTimeout  time.Duration `json:"connection_timeout"`

	EnableSlowQueryLogging bool          `json:"enable_slow_query_logging"`
	SlowQueryThreshold     time.Duration `json:"slow_query_threshold"`
}

// ConnectionPool hands out the shared *sql.DB of one engine.
type ConnectionPool interface {
	// Get returns a live database handle.
	Get(ctx context.Context) (*sql.DB, error)
	// Driver returns the driver name the pool was opened with.
	Driver() string
	// Stats returns pool statistics.
	Stats() PoolStats
	// HealthCheck pings the database and runs a trivial statement.
	HealthCheck(ctx context.Context) error
	// LogQuery records a statement execution for slow-statement logging.
	LogQuery(query string, duration time.Duration, err error)
	// Close closes the pool and stops the health check routine.
	Close() error
}

// PoolStats represents connection pool statistics.
type PoolStats struct {
	Driver            string        `json:"driver"`
	OpenConnections   int           `json:"open_connections"`
	InUse             int           `json:"in_use"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"wait_count"`
	WaitDuration      time.Duration `json:"wait_duration"`
	SlowQueries       int64         `json:"slow_queries"`
	LastHealthCheck   time.Time     `json:"last_health_check"`
	HealthCheckStatus string        `json:"health_check_status"`
}

type connectionPool struct {
	db     *sql.DB
	config Config
	logger zerolog.Logger

	closed atomic.Bool

	lastHealthCheck atomic.Int64 // Unix timestamp
	healthStatus    atomic.Value // string

	cancel context.CancelFunc
	wg     sync.WaitGroup

	waitCount    atomic.Int64
	waitDuration atomic.Int64
	slowQueries  atomic.Int64

	queryLogger *QueryLogger
}

// QueryLogger logs slow statements.
type QueryLogger struct {
	logger    zerolog.Logger
	threshold time.Duration
	enabled   bool
}

// NewQueryLogger creates a new query logger.
func NewQueryLogger(logger zerolog.Logger, threshold time.Duration, enabled bool) *QueryLogger {
	return &QueryLogger{
		logger:    logger,
		threshold: threshold,
		enabled:   enabled,
	}
}

// LogQuery logs query execution details. It reports whether the query was slow.
func (ql *QueryLogger) LogQuery(query string, duration time.Duration, err error) bool {
	slow := duration > ql.threshold
	if !ql.enabled {
		return slow
	}

	logEvent := ql.logger.Debug()
	if slow {
		logEvent = ql.logger.Warn().Bool("slow_query", true)
	}

	logEvent.
		Dur("duration", duration).
		Str("query", truncateQuery(query)).
		Bool("success", err == nil).
		Msg("Statement executed")

	return slow
}

// New opens a pool for cfg.Driver and verifies it with a health check.
func New(cfg Config, logger zerolog.Logger) (ConnectionPool, error) {
	if cfg.Driver == "" {
		cfg.Driver = DriverDuckDB
	}
	if cfg.Driver != DriverDuckDB && cfg.Driver != DriverSQLite {
		return nil, pkgerrors.New(pkgerrors.CodeConfigInvalid, fmt.Sprintf("unsupported driver: %s", cfg.Driver))
	}
	if cfg.DSN == "" {
		cfg.DSN = ":memory:"
	}

	if cfg.MaxOpenConnections <= 0 {
		cfg.MaxOpenConnections = 4
	}
	if cfg.MaxIdleConnections <= 0 {
		cfg.MaxIdleConnections = 2
	}
	if cfg.ConnectionTimeout <= 0 {
		cfg.ConnectionTimeout = 30 * time.Second
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 1 * time.Second
	}

	// An in-memory SQLite database lives and dies with its single connection.
	if cfg.Driver == DriverSQLite && isMemoryDSN(cfg.DSN) {
		cfg.MaxOpenConnections = 1
		cfg.MaxIdleConnections = 1
		cfg.ConnMaxLifetime = 0
		cfg.ConnMaxIdleTime = 0
	}

	logger.Info().
		Str("driver", cfg.Driver).
		Str("dsn", maskDSN(cfg.DSN)).
		Int("max_open", cfg.MaxOpenConnections).
		Int("max_idle", cfg.MaxIdleConnections).
		Dur("conn_lifetime", cfg.ConnMaxLifetime).
		Dur("conn_idle_time", cfg.ConnMaxIdleTime).
		Msg("Opening connection pool")

	db, err := sql.Open(cfg.Driver, driverDSN(cfg.Driver, cfg.DSN))
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to open database")
	}

	db.SetMaxOpenConns(cfg.MaxOpenConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithCancel(context.Background())

	p := &connectionPool{
		db:          db,
		config:      cfg,
		logger:      logger,
		cancel:      cancel,
		queryLogger: NewQueryLogger(logger, cfg.SlowQueryThreshold, cfg.EnableSlowQueryLogging),
	}
	p.healthStatus.Store("unknown")

	connCtx, connCancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer connCancel()

	if err := p.HealthCheck(connCtx); err != nil {
		db.Close()
		cancel()
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "initial health check failed")
	}

	if cfg.HealthCheckPeriod > 0 {
		p.wg.Add(1)
		go p.healthCheckRoutine(ctx)
	}

	logger.Info().Str("driver", cfg.Driver).Msg("Connection pool ready")

	return p, nil
}

// Get returns the database handle after verifying it is alive.
func (p *connectionPool) Get(ctx context.Context) (*sql.DB, error) {
	if p.closed.Load() {
		return nil, pkgerrors.ErrPoolClosed
	}

	start := time.Now()
	p.waitCount.Add(1)
	defer func() {
		p.waitDuration.Add(int64(time.Since(start)))
	}()

	if err := p.db.PingContext(ctx); err != nil {
		p.logger.Error().Err(err).Msg("Database ping failed")
		return nil, pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "database connection failed")
	}

	return p.db, nil
}

func (p *connectionPool) Driver() string {
	return p.config.Driver
}

// LogQuery forwards to the slow-statement logger and counts slow statements.
func (p *connectionPool) LogQuery(query string, duration time.Duration, err error) {
	if p.queryLogger.LogQuery(query, duration, err) {
		p.slowQueries.Add(1)
	}
}

// Stats returns pool statistics.
func (p *connectionPool) Stats() PoolStats {
	dbStats := p.db.Stats()

	return PoolStats{
		Driver:            p.config.Driver,
		OpenConnections:   dbStats.OpenConnections,
		InUse:             dbStats.InUse,
		Idle:              dbStats.Idle,
		WaitCount:         p.waitCount.Load(),
		WaitDuration:      time.Duration(p.waitDuration.Load()),
		SlowQueries:       p.slowQueries.Load(),
		LastHealthCheck:   time.Unix(p.lastHealthCheck.Load(), 0),
		HealthCheckStatus: p.getHealthStatus(),
	}
}

// HealthCheck performs a health check on the pool.
func (p *connectionPool) HealthCheck(ctx context.Context) error {
	if p.closed.Load() {
		return pkgerrors.ErrPoolClosed
	}

	if err := p.db.PingContext(ctx); err != nil {
		p.updateHealthStatus("unhealthy", err.Error())
		return pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "health check ping failed")
	}

	var result int
	err := p.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
	if err != nil || result != 1 {
		p.updateHealthStatus("unhealthy", "query test failed")
		if err == nil {
			err = fmt.Errorf("unexpected health check result: %d", result)
		}
		return pkgerrors.Wrap(err, pkgerrors.CodeConnectionFailed, "health check query failed")
	}

	p.updateHealthStatus("healthy", "")
	return nil
}

// Close closes the connection pool. Closing twice is a no-op.
func (p *connectionPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.logger.Info().Str("driver", p.config.Driver).Msg("Closing connection pool")

	p.cancel()
	p.wg.Wait()

	if err := p.db.Close(); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.CodeInternal, "failed to close database")
	}

	return nil
}

// healthCheckRoutine performs periodic health checks until ctx is cancelled.
func (p *connectionPool) healthCheckRoutine(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.HealthCheckPeriod)
	defer ticker.Stop()

	p.logger.Debug().Dur("period", p.config.HealthCheckPeriod).Msg("Health check routine started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug().Msg("Health check routine stopped")
			return
		case <-ticker.C:
			probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := p.HealthCheck(probeCtx); err != nil && !errors.Is(err, context.Canceled) {
				p.logger.Error().Err(err).Msg("Periodic health check failed")
			}
			cancel()
		}
	}
}

func (p *connectionPool) updateHealthStatus(status, detail string) {
	p.lastHealthCheck.Store(time.Now().Unix())
	p.healthStatus.Store(status)

	if status == "unhealthy" && detail != "" {
		p.logger.Warn().
			Str("status", status).
			Str("detail", detail).
			Msg("Connection pool health status changed")
	}
}

func (p *connectionPool) getHealthStatus() string {
	if v := p.healthStatus.Load(); v != nil {
		return v.(string)
	}
	return "unknown"
}

func isMemoryDSN(dsn string) bool {
	return dsn == "" || dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// driverDSN maps the user-facing DSN onto what each driver expects.
func driverDSN(driver, dsn string) string {
	if driver == DriverDuckDB && dsn == ":memory:" {
		return ""
	}
	return dsn
}

// maskDSN hides passwords and secret query parameters but keeps enough of the
// string to be recognisable in logs.
//
//   - ":memory:" or empty → returned verbatim
//   - URL-like DSNs       → redact user password and sensitive query params
//   - plain paths/files   → keep first/last 3 runes, mask the middle
func maskDSN(dsn string) string {
	if dsn == "" || dsn == ":memory:" {
		return dsn
	}

	u, err := url.Parse(dsn)
	if err == nil && looksLikeURL(u) {
		if ui := u.User; ui != nil {
			user := ui.Username()
			if _, hasPass := ui.Password(); hasPass {
				u.User = url.UserPassword(user, "*****")
			} else {
				u.User = url.User(user)
			}
		}

		q := u.Query()
		for k := range q {
			if isSensitiveKey(k) {
				q.Set(k, "*****")
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	runes := []rune(dsn)
	if len(runes) <= 10 {
		return "***"
	}
	return string(runes[:3]) + "***" + string(runes[len(runes)-3:])
}

func looksLikeURL(u *url.URL) bool {
	return u.Scheme != "" || u.Host != "" || u.User != nil || u.RawQuery != ""
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "pass"),
		strings.Contains(key, "token"),
		strings.Contains(key, "secret"),
		strings.HasSuffix(key, "key"):
		return true
	default:
		return false
	}
}

// truncateQuery shortens a statement for log output.
func truncateQuery(query string) string {
	const maxLen = 200
	query = strings.Join(strings.Fields(query), " ")
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen] + "..."
}
