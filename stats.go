package sitesnap

import (
	"fmt"
	"sync"
)

// Stats counts outcomes. Safe for concurrent use; the zero value is ready.
type Stats struct {
	mu      sync.Mutex
	total   int
	success int
	failed  int
}

// StatsSnapshot is a consistent copy of the counters.
type StatsSnapshot struct {
	Total   int
	Success int
	Failed  int
}

// Record counts one outcome. Fallbacks count as failed.
func (s *Stats) Record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if o == OutcomeSuccess {
		s.success++
	} else {
		s.failed++
	}
}

// Snapshot returns the counters read under one lock.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{Total: s.total, Success: s.success, Failed: s.failed}
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("total: %d, success: %d, failed: %d", s.Total, s.Success, s.Failed)
}
