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

func passing() CheckFunc {
	return func(_ context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(_ context.Context) error { return errors.New(msg) }
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) statusResponse {
	t.Helper()
	var body statusResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestLiveEndpointAllPassing(t *testing.T) {
	h := New()
	h.AddLivenessCheck("check1", time.Second, passing())
	h.AddLivenessCheck("check2", time.Second, passing())

	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decodeStatus(t, w).Status)
}

func TestLiveEndpointFailureThreshold(t *testing.T) {
	h := New()
	h.AddLivenessCheck("db", time.Second, failing("connection refused"))
	c := h.liveness[0]
	ctx := context.Background()

	// Below the threshold the check stays healthy.
	c.run(ctx)
	c.run(ctx)
	w := httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// The third consecutive failure flips it.
	c.run(ctx)
	w = httptest.NewRecorder()
	h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/livez", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	body := decodeStatus(t, w)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, "connection refused", body.Checks["db"])
}

func TestCheckRecovery(t *testing.T) {
	down := true
	h := New()
	h.AddLivenessCheck("flaky", time.Second, func(_ context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	})
	c := h.liveness[0]
	ctx := context.Background()

	for range failureThreshold {
		c.run(ctx)
	}
	healthy, _ := c.state()
	assert.False(t, healthy)

	down = false
	c.run(ctx)
	healthy, _ = c.state()
	assert.True(t, healthy, "one pass should recover the check")
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheck("cache", time.Second, passing())

	// Not marked ready yet.
	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, decodeStatus(t, w).Checks, "_readiness")

	h.SetReady(true)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	// Draining flips it back.
	h.SetReady(false)
	w = httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestReadyEndpointOneFailingCheck(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passing())
	h.AddReadinessCheck("cache", time.Second, failing("cache miss"))
	h.SetReady(true)

	ctx := context.Background()
	for range failureThreshold {
		h.readiness[1].run(ctx)
	}

	w := httptest.NewRecorder()
	h.ReadyEndpoint(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decodeStatus(t, w)
	assert.Contains(t, body.Checks, "cache")
	assert.NotContains(t, body.Checks, "db")
}

func TestIsReady(t *testing.T) {
	h := New()
	h.AddReadinessCheck("db", time.Second, passing())

	assert.False(t, h.IsReady())
	h.SetReady(true)
	assert.True(t, h.IsReady())
	h.SetReady(false)
	assert.False(t, h.IsReady())
}

func TestStartStop(t *testing.T) {
	h := New()
	h.AddLivenessCheck("noop", time.Second, passing())

	h.Start(context.Background(), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestConcurrentAccess(t *testing.T) {
	h := New()
	h.AddLivenessCheck("live", time.Second, failing("err"))
	h.AddReadinessCheck("ready", time.Second, passing())
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.Start(ctx, 5*time.Millisecond)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				h.IsReady()
				h.LiveEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", nil))
				h.ReadyEndpoint(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))
			}
		}()
	}
	wg.Wait()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(100000)(context.Background()))

	err := GoroutineCountCheck(0)(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds threshold")
}
