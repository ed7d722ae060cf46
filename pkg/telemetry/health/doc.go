// Package health serves liveness and readiness probes for watch mode.
//
// Liveness (/healthz) answers 200 while the process serves HTTP. Readiness
// (/readyz) runs every registered check and answers 503 when one fails. The
// RunState check ties readiness to the latest hydration: the probe fails
// until a run completes and whenever the latest run failed.
//
//	state := &health.RunState{}
//	checker := health.New(time.Second)
//	checker.RegisterCheck("hydration", state.Check)
//	health.Register(mux, checker, version, commit, buildTime)
package health
