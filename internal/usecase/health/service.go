package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	embedding ProviderChecker
	llm       ProviderChecker
}

// New creates a Service. embedding and llm can be nil.
func New(store StorePinger, embedding, llm ProviderChecker) *Service {
	return &Service{store: store, embedding: embedding, llm: llm}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.store.Ping(ctx); err != nil {
		checks["store"] = CheckError
	} else {
		checks["store"] = CheckOK
	}

	if s.embedding != nil {
		checks["embedding"] = checkProvider(ctx, s.embedding)
	}
	if s.llm != nil {
		checks["llm"] = checkProvider(ctx, s.llm)
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}

func checkProvider(ctx context.Context, p ProviderChecker) CheckResult {
	if err := p.HealthCheck(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
