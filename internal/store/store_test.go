package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	st, err := NewHybrid(RedisConfig{Addr: mr.Addr()}, "", PGPoolConfig{}, zap.NewNop())
	require.NoError(t, err)
	return st, mr
}

func sampleReport() *admin.ServerReport {
	return &admin.ServerReport{
		Server:   "arcola:6080",
		Version:  "10.2",
		Build:    "3142",
		LogLevel: "WARNING",
		Clusters: []admin.ClusterInfo{{
			Name:            "default",
			ConfiguredState: "START",
			Machines:        []admin.MachineInfo{{Name: "ARCOLA.LOCAL", ConfiguredState: "START", Platform: "Windows"}},
		}},
		License: admin.LicenseInfo{
			Edition:    "Advanced",
			Level:      "Enterprise",
			CanExpire:  true,
			Expiration: time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC),
			Extensions: []string{"Spatial"},
		},
		GeneratedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

// --- Report cache ---

func TestSaveAndLoadReport(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)

	require.NoError(t, st.SaveReport(ctx, sampleReport(), 2*time.Minute))
	assert.True(t, mr.Exists("arcgis:report:arcola:6080"))
	assert.Equal(t, 2*time.Minute, mr.TTL("arcgis:report:arcola:6080"))

	got, err := st.LoadReport(ctx, "arcola:6080")
	require.NoError(t, err)
	assert.Equal(t, sampleReport(), got)
}

func TestLoadReport_Missing(t *testing.T) {
	st, _ := newTestStore(t)

	got, err := st.LoadReport(context.Background(), "nowhere:6080")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadReport_Expired(t *testing.T) {
	ctx := context.Background()
	st, mr := newTestStore(t)

	require.NoError(t, st.SaveReport(ctx, sampleReport(), time.Minute))
	mr.FastForward(2 * time.Minute)

	got, err := st.LoadReport(ctx, "arcola:6080")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestLoadReport_InvalidJSON(t *testing.T) {
	st, mr := newTestStore(t)
	require.NoError(t, mr.Set(ReportKey("arcola:6080"), "not-json"))

	got, err := st.LoadReport(context.Background(), "arcola:6080")
	assert.Nil(t, got)
	assert.Error(t, err)
}

func TestSaveReport_Nil(t *testing.T) {
	st, _ := newTestStore(t)
	assert.Error(t, st.SaveReport(context.Background(), nil, time.Minute))
}

// --- SetJSON / GetJSON edge cases ---

func TestGetJSON_KeyNotFound(t *testing.T) {
	st, _ := newTestStore(t)

	var dest map[string]string
	assert.ErrorIs(t, st.GetJSON(context.Background(), "nonexistent:key", &dest), redis.Nil)
}

func TestSetJSON_NilValue(t *testing.T) {
	st, _ := newTestStore(t)

	// nil marshals to "null"
	require.NoError(t, st.SetJSON(context.Background(), "test:nil", nil, 0))
}

// --- HealthCheck / Close ---

func TestHealthCheck(t *testing.T) {
	st, mr := newTestStore(t)
	require.NoError(t, st.HealthCheck(context.Background()))

	mr.Close()
	err := st.HealthCheck(context.Background())
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestHealthCheck_RedisNil(t *testing.T) {
	st := &HybridStore{}
	assert.ErrorContains(t, st.HealthCheck(context.Background()), "redis not initialized")
}

func TestClose(t *testing.T) {
	st, _ := newTestStore(t)
	require.NoError(t, st.Close())
	require.NoError(t, (&HybridStore{}).Close())
}

// --- NewHybrid ---

func TestNewHybrid(t *testing.T) {
	mr := miniredis.RunT(t)

	st, err := NewHybrid(RedisConfig{Addr: mr.Addr()}, "", PGPoolConfig{}, nil)
	require.NoError(t, err)
	assert.Nil(t, st.PG)
	require.NoError(t, st.Close())
}

func TestNewHybrid_RedisPassword(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("hunter2")

	_, err := NewHybrid(RedisConfig{Addr: mr.Addr()}, "", PGPoolConfig{}, nil)
	assert.Error(t, err)

	st, err := NewHybrid(RedisConfig{Addr: mr.Addr(), Password: "hunter2"}, "", PGPoolConfig{}, nil)
	require.NoError(t, err)
	require.NoError(t, st.Close())
}

func TestNewHybrid_InvalidRedis(t *testing.T) {
	_, err := NewHybrid(RedisConfig{Addr: "localhost:1"}, "", PGPoolConfig{}, nil)
	assert.ErrorContains(t, err, "redis ping failed")
}

func TestNewHybrid_InvalidPGURL(t *testing.T) {
	mr := miniredis.RunT(t)

	_, err := NewHybrid(RedisConfig{Addr: mr.Addr()}, "postgres://%zz", PGPoolConfig{}, nil)
	assert.ErrorContains(t, err, "invalid pg config")
}

// unreachablePG points at a closed port; pgxpool connects lazily, so opening
// succeeds and the first use fails.
const unreachablePG = "postgres://audit@127.0.0.1:1/agsadmin?connect_timeout=1"

func TestOpenPG_AppliesPoolConfig(t *testing.T) {
	pool, err := OpenPG(context.Background(), unreachablePG, PGPoolConfig{
		MaxConns:          7,
		MaxConnLifetime:   time.Minute,
		MaxConnIdleTime:   30 * time.Second,
		HealthCheckPeriod: 15 * time.Second,
	})
	require.NoError(t, err)
	defer pool.Close()

	cfg := pool.Config()
	assert.EqualValues(t, 7, cfg.MaxConns)
	assert.Equal(t, time.Minute, cfg.MaxConnLifetime)
	assert.Equal(t, 30*time.Second, cfg.MaxConnIdleTime)
	assert.Equal(t, 15*time.Second, cfg.HealthCheckPeriod)
}

func TestHealthCheck_CoversPostgres(t *testing.T) {
	mr := miniredis.RunT(t)

	st, err := NewHybrid(RedisConfig{Addr: mr.Addr()}, unreachablePG, PGPoolConfig{MaxConns: 1}, nil)
	require.NoError(t, err)
	defer st.Close()
	require.NotNil(t, st.PG)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.ErrorContains(t, st.HealthCheck(ctx), "postgres ping failed")
}
