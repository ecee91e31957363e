package health

import (
	"context"
	"testing"
)

func TestRunAllEmpty(t *testing.T) {
	r := NewRegistry("ballsy", "1.0.0")

	results, overall := r.RunAll(context.Background())
	if len(results) != 0 {
		t.Errorf("results = %v, want empty", results)
	}
	if overall != StatusHealthy {
		t.Errorf("overall = %v, want healthy", overall)
	}
}

func TestRunAllAggregation(t *testing.T) {
	r := NewRegistry("ballsy", "1.0.0")
	r.RegisterFunc("ok", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusHealthy}
	})
	r.RegisterFunc("slow", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusDegraded, Message: "slow"}
	})

	results, overall := r.RunAll(context.Background())
	if overall != StatusDegraded {
		t.Errorf("overall = %v, want degraded", overall)
	}
	if results["slow"].Name != "slow" {
		t.Errorf("result name = %v, want slow", results["slow"].Name)
	}

	r.RegisterFunc("down", func(ctx context.Context) CheckResult {
		return CheckResult{Status: StatusUnhealthy, Message: "db gone"}
	})
	_, overall = r.RunAll(context.Background())
	if overall != StatusUnhealthy {
		t.Errorf("overall = %v, want unhealthy", overall)
	}
}
