package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore stands in for the pgx pool / redis client the shop probes.
type fakeStore struct {
	mu  sync.Mutex
	err error
}

func (f *fakeStore) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func readyRecorder(s *Service) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	return w
}

func liveRecorder(s *Service) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	return w
}

func decodeReport(t *testing.T, w *httptest.ResponseRecorder) probeReport {
	t.Helper()
	var r probeReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&r))
	return r
}

func TestReadyEndpoint_StoresHealthy(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, PingCheck("postgres", &fakeStore{}))
	s.AddReadinessCheck("redis", time.Second, PingCheck("redis", &fakeStore{}))
	s.SetReady(true)
	s.sample(context.Background())

	w := readyRecorder(s)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeReport(t, w).Status)
}

func TestReadyEndpoint_PostgresDown(t *testing.T) {
	pg := &fakeStore{err: errors.New("connection refused")}
	s := New()
	s.AddReadinessCheck("postgres", time.Second, PingCheck("postgres", pg))
	s.AddReadinessCheck("redis", time.Second, PingCheck("redis", &fakeStore{}))
	s.SetReady(true)

	// Three consecutive failed samples flip the probe.
	ctx := context.Background()
	s.sample(ctx)
	s.sample(ctx)
	s.sample(ctx)

	w := readyRecorder(s)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	report := decodeReport(t, w)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Contains(t, report.Checks, "postgres")
	assert.Equal(t, "ping postgres: connection refused", report.Checks["postgres"])
	assert.NotContains(t, report.Checks, "redis", "the healthy store is not reported")
}

func TestReadyEndpoint_SingleFailureTolerated(t *testing.T) {
	pg := &fakeStore{err: errors.New("timeout")}
	s := New()
	s.AddReadinessCheck("postgres", time.Second, PingCheck("postgres", pg))
	s.SetReady(true)

	// Two failures, threshold is three: still in rotation.
	ctx := context.Background()
	s.sample(ctx)
	s.sample(ctx)

	assert.Equal(t, http.StatusOK, readyRecorder(s).Code)
}

func TestProbeRecovery(t *testing.T) {
	pg := &fakeStore{err: errors.New("down")}
	s := New()
	s.AddReadinessCheck("postgres", time.Second, PingCheck("postgres", pg))
	s.SetReady(true)

	ctx := context.Background()
	s.sample(ctx)
	s.sample(ctx)
	s.sample(ctx)
	require.False(t, s.IsReady())

	// One successful ping brings the pod back.
	pg.setErr(nil)
	s.sample(ctx)
	assert.True(t, s.IsReady())
	assert.Equal(t, http.StatusOK, readyRecorder(s).Code)
}

func TestReadyEndpoint_ManualGate(t *testing.T) {
	s := New()
	s.AddReadinessCheck("postgres", time.Second, PingCheck("postgres", &fakeStore{}))
	s.sample(context.Background())

	// Gate closed before SetReady(true): startup is not finished.
	w := readyRecorder(s)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeReport(t, w).Checks, "service")

	s.SetReady(true)
	assert.Equal(t, http.StatusOK, readyRecorder(s).Code)

	// Closing the gate again drains traffic during shutdown.
	s.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, readyRecorder(s).Code)
}

func TestIsReady(t *testing.T) {
	s := New()
	s.AddReadinessCheck("redis", time.Second, PingCheck("redis", &fakeStore{}))
	s.sample(context.Background())

	assert.False(t, s.IsReady(), "not ready before the gate opens")
	s.SetReady(true)
	assert.True(t, s.IsReady())
	s.SetReady(false)
	assert.False(t, s.IsReady())
}

func TestLiveEndpoint_GoroutineGuard(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))
	s.sample(context.Background())

	assert.Equal(t, http.StatusOK, liveRecorder(s).Code)
}

func TestLiveEndpoint_GoroutineGuardTripped(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(0))

	ctx := context.Background()
	s.sample(ctx)
	s.sample(ctx)
	s.sample(ctx)

	w := liveRecorder(s)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	report := decodeReport(t, w)
	assert.Contains(t, report.Checks, "goroutines")
	assert.Contains(t, report.Checks["goroutines"], "exceeds threshold")
}

func TestLiveEndpoint_ReadinessFailureDoesNotAffectLiveness(t *testing.T) {
	pg := &fakeStore{err: errors.New("down")}
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))
	s.AddReadinessCheck("postgres", time.Second, PingCheck("postgres", pg))
	s.SetReady(true)

	ctx := context.Background()
	s.sample(ctx)
	s.sample(ctx)
	s.sample(ctx)

	// Postgres being down takes the pod out of rotation but must not
	// restart it.
	assert.Equal(t, http.StatusOK, liveRecorder(s).Code)
	assert.Equal(t, http.StatusServiceUnavailable, readyRecorder(s).Code)
}

func TestEndpointsWithNoProbes(t *testing.T) {
	s := New()
	s.SetReady(true)

	assert.Equal(t, http.StatusOK, liveRecorder(s).Code)
	assert.Equal(t, http.StatusOK, readyRecorder(s).Code)
}

func TestStopIsIdempotent(t *testing.T) {
	s := New()
	s.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))
	s.Start(context.Background(), 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)

	s.Stop()
	s.Stop()
}

func TestConcurrentProbesAndEndpoints(t *testing.T) {
	// The scheduler samples while handlers read; the race detector keeps us
	// honest here.
	pg := &fakeStore{err: errors.New("flaky")}
	s := New()
	s.AddReadinessCheck("postgres", time.Second, PingCheck("postgres", pg))
	s.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))
	s.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx, time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				s.IsReady()
				liveRecorder(s)
				readyRecorder(s)
			}
		}()
	}
	wg.Wait()
	s.Stop()
}

func TestGCMaxPauseCheck(t *testing.T) {
	check := GCMaxPauseCheck(time.Hour)
	assert.NoError(t, check(context.Background()))
}
