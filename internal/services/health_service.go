package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/parkgolf/golf-bff/internal/apperr"
	"github.com/parkgolf/golf-bff/internal/rpc"
)

// Probe is one downstream readiness target.
type Probe struct {
	Caller  Caller
	Subject string // e.g. "course.ping"
}

// DomainStatus is the readiness of one downstream domain.
type DomainStatus struct {
	Status    string      `json:"status" example:"up"` // up|down
	LatencyMS int64       `json:"latencyMs" example:"3"`
	Code      apperr.Code `json:"code,omitempty" example:"SYS_004"`
}

// Readiness is the aggregate answer of Ready.
type Readiness struct {
	Ready   bool                    `json:"ready"`
	Domains map[string]DomainStatus `json:"domains"`
}

// HealthService pings every downstream domain.
type HealthService struct {
	probes  []Probe
	timeout time.Duration
	now     func() time.Time
}

// NewHealthService builds a HealthService. timeout bounds each ping.
func NewHealthService(timeout time.Duration, probes ...Probe) *HealthService {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthService{probes: probes, timeout: timeout, now: time.Now}
}

// Ready pings all domains concurrently. A domain is up when its ping
// returns any reply before the timeout.
func (s *HealthService) Ready(ctx context.Context) Readiness {
	var (
		mu  sync.Mutex
		g   errgroup.Group
		out = Readiness{Ready: true, Domains: make(map[string]DomainStatus, len(s.probes))}
	)
	for _, p := range s.probes {
		p := p
		g.Go(func() error {
			start := s.now()
			_, err := p.Caller.Call(ctx, rpc.Request{Operation: p.Subject, Timeout: s.timeout})
			st := DomainStatus{Status: "up", LatencyMS: s.now().Sub(start).Milliseconds()}
			if f, ok := rpc.AsFailure(err); ok && f.Kind == rpc.KindUpstream {
				// An error envelope still proves the service is serving.
				err = nil
			}
			if err != nil {
				st.Status = "down"
				if f, ok := rpc.AsFailure(err); ok {
					st.Code, _ = rpc.Classify(f)
				} else {
					st.Code = apperr.CodeOf(err)
				}
			}

			mu.Lock()
			defer mu.Unlock()
			out.Domains[p.Caller.Domain()] = st
			if err != nil {
				out.Ready = false
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
