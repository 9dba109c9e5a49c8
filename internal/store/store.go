package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

// HybridStore keeps reports in Redis. PG is nil when no database is
// configured; otherwise it is shared with the audit writer and covered by
// HealthCheck.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// RedisConfig addresses the report cache.
type RedisConfig struct {
	Addr     string
	DB       int
	Password string
}

// NewHybrid connects to Redis and, when pgURL is set, to Postgres.
func NewHybrid(rc RedisConfig, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     rc.Addr,
		DB:       rc.DB,
		Password: rc.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		var err error
		pgPool, err = OpenPG(ctx, pgURL, pgPoolConfig)
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
	}

	return &HybridStore{redis: rdb, PG: pgPool, logger: logger}, nil
}

// OpenPG opens a Postgres pool with the non-zero settings of pc applied.
func OpenPG(ctx context.Context, pgURL string, pc PGPoolConfig) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(pgURL)
	if err != nil {
		return nil, fmt.Errorf("invalid pg config: %w", err)
	}
	if pc.MaxConns > 0 {
		cfg.MaxConns = pc.MaxConns
	}
	if pc.MinConns > 0 {
		cfg.MinConns = pc.MinConns
	}
	if pc.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = pc.MaxConnIdleTime
	}
	if pc.HealthCheckPeriod > 0 {
		cfg.HealthCheckPeriod = pc.HealthCheckPeriod
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return pool, nil
}

// ReportKey is the Redis key holding the cached report for server (host:port).
func ReportKey(server string) string {
	return "arcgis:report:" + server
}

// SaveReport caches report under its server key for ttl.
func (s *HybridStore) SaveReport(ctx context.Context, report *admin.ServerReport, ttl time.Duration) error {
	if report == nil {
		return errors.New("nil report")
	}
	if err := s.SetJSON(ctx, ReportKey(report.Server), report, ttl); err != nil {
		s.logger.Error("store.redis.save_report_failed",
			zap.String("server", report.Server),
			zap.Error(err))
		return err
	}
	return nil
}

// LoadReport returns the cached report for server, or nil when none is cached.
func (s *HybridStore) LoadReport(ctx context.Context, server string) (*admin.ServerReport, error) {
	var report admin.ServerReport
	err := s.GetJSON(ctx, ReportKey(server), &report)
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
