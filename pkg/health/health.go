// Package health provides Kubernetes-style liveness and readiness probes.
//
// Registered checks run periodically in the background. A check flips to
// unhealthy only after failureThreshold consecutive failures and recovers
// after successThreshold consecutive passes, so a single blip does not make
// the probe flap.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one component. Nil means healthy.
type CheckFunc func(ctx context.Context) error

const (
	failureThreshold = 3
	successThreshold = 1
)

type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	passes  int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	// Assume healthy until proven otherwise.
	return &check{name: name, timeout: timeout, fn: fn, healthy: true}
}

func (c *check) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.fn(checkCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = err
	if err != nil {
		c.passes = 0
		if c.fails++; c.fails >= failureThreshold {
			c.healthy = false
		}
		return
	}
	c.fails = 0
	if c.passes++; c.passes >= successThreshold {
		c.healthy = true
	}
}

func (c *check) state() (healthy bool, lastErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.healthy, c.lastErr
}

// Health runs liveness and readiness checks and serves their probe
// endpoints. The zero value is usable; the service starts not ready.
type Health struct {
	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	ready     bool
	cancel    context.CancelFunc
}

// New creates a Health service in the not-ready state. Call SetReady(true)
// once initialization finishes.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a check for the /livez probe. Liveness failures
// mean the process itself is broken, e.g. a goroutine leak.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a check for the /readyz probe. Readiness
// failures mean traffic should drain, e.g. the database is unreachable.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start launches one background goroutine per registered check, firing at
// the given interval until Stop or context cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := append(append([]*check(nil), h.liveness...), h.readiness...)
	h.mu.Unlock()

	for _, c := range checks {
		go func() {
			c.run(ctx)
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.run(ctx)
				}
			}
		}()
	}
}

// Stop cancels the background check goroutines. Safe to call repeatedly.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Set false during graceful
// shutdown to drain traffic before the listener closes.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

// IsReady reports whether the service was marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	h.mu.RLock()
	ready := h.ready
	checks := h.readiness
	h.mu.RUnlock()

	if !ready {
		return false
	}
	for _, c := range checks {
		if healthy, _ := c.state(); !healthy {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the /livez probe: 200 when every liveness check
// passes, 503 with failure details otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := h.liveness
	h.mu.RUnlock()

	writeStatus(w, failures(checks))
}

// ReadyEndpoint serves the /readyz probe: 200 when the service is marked
// ready and every readiness check passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	ready := h.ready
	checks := h.readiness
	h.mu.RUnlock()

	failed := failures(checks)
	if !ready {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(checks []*check) map[string]string {
	failed := make(map[string]string)
	for _, c := range checks {
		healthy, lastErr := c.state()
		if healthy {
			continue
		}
		if lastErr != nil {
			failed[c.name] = lastErr.Error()
		} else {
			failed[c.name] = "check is unhealthy"
		}
	}
	return failed
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		resp = statusResponse{Status: "unhealthy", Checks: failed}
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
