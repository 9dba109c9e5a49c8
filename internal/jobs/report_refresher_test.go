package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/admin"
)

type fakeReporter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeReporter) ServerInfo(context.Context) (*admin.ServerReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &admin.ServerReport{Server: "arcola:6080", Version: "10.2"}, nil
}

func (f *fakeReporter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []*admin.ServerReport
	ttl   time.Duration
	err   error
}

func (f *fakeSaver) SaveReport(_ context.Context, r *admin.ServerReport, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, r)
	f.ttl = ttl
	return nil
}

type fakePublisher struct {
	subjects []string
	err      error
}

func (f *fakePublisher) Publish(_ context.Context, subject string, _ any) error {
	f.subjects = append(f.subjects, subject)
	return f.err
}

func TestRunOnce_CachesAndPublishes(t *testing.T) {
	saver := &fakeSaver{}
	pub := &fakePublisher{}
	r := NewReportRefresher(zap.NewNop(), &fakeReporter{}, saver, pub, time.Minute, 2*time.Minute)

	require.NoError(t, r.RunOnce(context.Background()))
	require.Len(t, saver.saved, 1)
	assert.Equal(t, "arcola:6080", saver.saved[0].Server)
	assert.Equal(t, 2*time.Minute, saver.ttl)
	assert.Equal(t, []string{SubjectReportRefreshed}, pub.subjects)
}

func TestRunOnce_PublishFailureIsNotFatal(t *testing.T) {
	r := NewReportRefresher(nil, &fakeReporter{}, &fakeSaver{}, &fakePublisher{err: errors.New("nats down")}, time.Minute, time.Minute)
	assert.NoError(t, r.RunOnce(context.Background()))
}

func TestRunOnce_ReportFailure(t *testing.T) {
	saver := &fakeSaver{}
	pub := &fakePublisher{}
	r := NewReportRefresher(nil, &fakeReporter{err: &admin.BusinessError{Operation: "server info"}}, saver, pub, time.Minute, time.Minute)

	var be *admin.BusinessError
	require.ErrorAs(t, r.RunOnce(context.Background()), &be)
	assert.Empty(t, saver.saved)
	assert.Empty(t, pub.subjects)
}

func TestRunOnce_CacheFailure(t *testing.T) {
	pub := &fakePublisher{}
	r := NewReportRefresher(nil, &fakeReporter{}, &fakeSaver{err: errors.New("redis down")}, pub, time.Minute, time.Minute)

	assert.EqualError(t, r.RunOnce(context.Background()), "redis down")
	assert.Empty(t, pub.subjects)
}

func TestStart_RunsImmediatelyAndStops(t *testing.T) {
	rep := &fakeReporter{}
	r := NewReportRefresher(nil, rep, &fakeSaver{}, nil, 10*time.Millisecond, time.Minute)

	done := make(chan struct{})
	go func() {
		r.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return rep.count() >= 2 }, time.Second, 5*time.Millisecond)
	r.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestStart_ContextCancel(t *testing.T) {
	r := NewReportRefresher(nil, &fakeReporter{}, &fakeSaver{}, nil, time.Hour, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop on cancel")
	}
}
