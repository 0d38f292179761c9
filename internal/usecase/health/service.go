// Package health aggregates liveness probes of the stores and model providers.
package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates that every store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names reported in Report.Checks.
const (
	ComponentRedis     = "redis"
	ComponentPostgres  = "postgres"
	ComponentEmbedding = "embedding"
	ComponentLLM       = "llm"
)

// DefaultTimeout bounds a single probe.
const DefaultTimeout = 3 * time.Second

// Probe is one named health check. Stores are critical: the service is
// unhealthy only when all critical probes fail.
type Probe struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Store probes a store by PING.
func Store(name string, p Pinger) Probe {
	return Probe{Name: name, Critical: true, Check: p.Ping}
}

// Dependency probes a model provider. A nil checker yields no probe.
func Dependency(name string, c Checker) Probe {
	if c == nil {
		return Probe{Name: name}
	}
	return Probe{Name: name, Check: c.HealthCheck}
}

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service runs all probes concurrently.
type Service struct {
	probes  []Probe
	timeout time.Duration
}

// New creates a Service. Probes without a Check func are skipped.
func New(timeout time.Duration, probes ...Probe) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	active := make([]Probe, 0, len(probes))
	for _, p := range probes {
		if p.Check != nil {
			active = append(active, p)
		}
	}
	return &Service{probes: active, timeout: timeout}
}

// Check runs every probe with its own timeout and aggregates the outcome.
func (s *Service) Check(ctx context.Context) Report {
	results := make([]CheckResult, len(s.probes))
	var wg sync.WaitGroup
	for i, p := range s.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			results[i] = outcome(p.Check(pctx))
		}()
	}
	wg.Wait()

	checks := make(map[string]CheckResult, len(s.probes))
	status := Healthy
	critical, criticalDown := 0, 0
	for i, p := range s.probes {
		checks[p.Name] = results[i]
		if p.Critical {
			critical++
		}
		if results[i] == CheckOK {
			continue
		}
		status = Degraded
		if p.Critical {
			criticalDown++
		}
	}
	if critical > 0 && criticalDown == critical {
		status = Unhealthy
	}
	return Report{Status: status, Checks: checks}
}

func outcome(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
