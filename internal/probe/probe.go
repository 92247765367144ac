package probe

import "context"

// CheckResult is the unified result of a single probe.
type CheckResult struct {
	Success   bool
	LatencyMS float64
	Message   string
}

// Checker performs a single reachability check against a target.
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}
