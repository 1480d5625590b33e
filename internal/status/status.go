package status

import (
	"sync"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/dispatch"
	"github.com/Yterayut/vm-daily-report-system/internal/report"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Outcome is everything one completed cycle produced.
type Outcome struct {
	CycleID    string            `json:"cycle_id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Snapshots  []types.Snapshot  `json:"snapshots"`
	Summary    report.Summary    `json:"summary"`
	Bundle     report.Bundle     `json:"bundle"`
	Results    []dispatch.Result `json:"channel_results"`
	Delivered  bool              `json:"delivered"`
}

// Latest is a thread-safe holder of the most recent Outcome.
type Latest struct {
	mu sync.RWMutex
	o  *Outcome
}

// NewLatest creates an empty holder.
func NewLatest() *Latest { return &Latest{} }

// Set replaces the held outcome.
func (l *Latest) Set(o *Outcome) {
	l.mu.Lock()
	l.o = o
	l.mu.Unlock()
}

// Get returns the held outcome, or ok=false before the first cycle.
func (l *Latest) Get() (o *Outcome, ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.o == nil {
		return nil, false
	}
	return l.o, true
}
