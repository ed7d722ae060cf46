package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tmobile/percy-cake-sub002/pkg/hydrate"
)

// ErrNoRun is reported until the first hydration run completes.
var ErrNoRun = errors.New("no hydration run has completed")

// RunInfo describes the most recent hydration run.
type RunInfo struct {
	RunID    string
	Trigger  string
	Status   hydrate.Status
	Finished time.Time
	Err      error
}

// RunState remembers the outcome of the latest hydration run so readiness
// can reflect it. The zero value is ready to use.
type RunState struct {
	mu   sync.RWMutex
	last *RunInfo
}

// Observe records the outcome of a run. Its signature matches
// watch.ReportFunc.
func (s *RunState) Observe(trigger string, report *hydrate.Report, err error) {
	info := &RunInfo{Trigger: trigger, Finished: time.Now(), Err: err}
	if report != nil {
		info.RunID = report.RunID
		info.Status = report.Status()
	}

	s.mu.Lock()
	s.last = info
	s.mu.Unlock()
}

// Last returns the latest run, if any.
func (s *RunState) Last() (RunInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return RunInfo{}, false
	}
	return *s.last, true
}

// Check fails before the first run, and when the latest run was aborted or
// left an application without output. Partial runs pass.
func (s *RunState) Check(ctx context.Context) error {
	last, ok := s.Last()
	switch {
	case !ok:
		return ErrNoRun
	case last.Err != nil:
		return fmt.Errorf("last run (%s) aborted: %w", last.Trigger, last.Err)
	case last.Status == hydrate.StatusFailed:
		return fmt.Errorf("last run %s failed", last.RunID)
	default:
		return nil
	}
}
