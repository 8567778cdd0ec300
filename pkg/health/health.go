// Package health serves the storefront's /livez and /readyz probe endpoints.
//
// The shop registers its probes once at startup — postgres and redis
// readiness, a goroutine-count liveness guard — and a single background
// scheduler samples all of them at a fixed interval. A probe flips to
// failing only after three consecutive errors, so one slow database
// round-trip does not drop the pod out of rotation, and a single success
// flips it back. Readiness additionally carries a manual gate: the app sets
// it after migrations finish and clears it to drain traffic during shutdown.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// failAfter is the number of consecutive errors before a probe is reported
// as failing.
const failAfter = 3

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

// probe holds one registered check plus its sampled state. State fields are
// guarded by the owning Service's mutex.
type probe struct {
	name    string
	kind    probeKind
	timeout time.Duration
	check   CheckFunc

	fails   int
	failing bool
	lastErr error
}

// Service tracks the shop's probes and answers the /livez and /readyz
// endpoints. The zero value is unusable; call New.
type Service struct {
	mu     sync.Mutex
	probes []*probe
	ready  bool
	stop   context.CancelFunc
}

// New returns a Service with no probes and readiness gated off. Call
// SetReady(true) once initialization (migrations, connections) completes.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe for /livez. Liveness failures mean the
// process itself is wedged, so keep these cheap and in-process.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(liveness, name, timeout, check)
}

// AddReadinessCheck registers a probe for /readyz. These cover the shop's
// hard dependencies: a failing one takes the pod out of rotation without
// restarting it.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	s.add(readiness, name, timeout, check)
}

func (s *Service) add(k probeKind, name string, timeout time.Duration, check CheckFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probes = append(s.probes, &probe{
		name:    name,
		kind:    k,
		timeout: timeout,
		check:   check,
	})
}

// Start launches the probe scheduler. All probes are sampled immediately and
// then once per interval until Stop is called or ctx is cancelled.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.stop = cancel
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.sample(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sample(ctx)
			}
		}
	}()
}

// sample runs every probe once. Checks execute outside the lock because they
// do real I/O (database pings); only the state update takes it.
func (s *Service) sample(ctx context.Context) {
	s.mu.Lock()
	probes := make([]*probe, len(s.probes))
	copy(probes, s.probes)
	s.mu.Unlock()

	for _, p := range probes {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.check(checkCtx)
		cancel()

		s.mu.Lock()
		p.lastErr = err
		if err != nil {
			p.fails++
			if p.fails >= failAfter {
				p.failing = true
			}
		} else {
			p.fails = 0
			p.failing = false
		}
		s.mu.Unlock()
	}
}

// Stop halts the scheduler. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// SetReady flips the manual readiness gate. The app sets it true after
// startup and false at the beginning of graceful shutdown so the load
// balancer stops routing new checkouts here.
func (s *Service) SetReady(ready bool) {
	s.mu.Lock()
	s.ready = ready
	s.mu.Unlock()
}

// IsReady reports whether the shop should receive traffic: the manual gate
// is open and no readiness probe is failing.
func (s *Service) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return false
	}
	for _, p := range s.probes {
		if p.kind == readiness && p.failing {
			return false
		}
	}
	return true
}

// failures returns name → message for failing probes of the given kind.
func (s *Service) failures(k probeKind) map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string)
	for _, p := range s.probes {
		if p.kind != k || !p.failing {
			continue
		}
		msg := "probe is failing"
		if p.lastErr != nil {
			msg = p.lastErr.Error()
		}
		out[p.name] = msg
	}
	return out
}

// probeReport is the JSON body for both endpoints.
type probeReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint answers /livez: 200 while the process is functioning, 503
// with the failing probes otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, s.failures(liveness))
}

// ReadyEndpoint answers /readyz: 200 only when the manual gate is open and
// postgres/redis probes pass, 503 with details otherwise.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failing := s.failures(readiness)

	s.mu.Lock()
	ready := s.ready
	s.mu.Unlock()
	if !ready {
		failing["service"] = "not accepting traffic"
	}
	writeReport(w, failing)
}

func writeReport(w http.ResponseWriter, failing map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	report := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(failing) > 0 {
		report.Status = "unhealthy"
		report.Checks = failing
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(report)
}
