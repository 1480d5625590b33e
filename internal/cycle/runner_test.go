package cycle

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/collector"
	"github.com/Yterayut/vm-daily-report-system/internal/dispatch"
	"github.com/Yterayut/vm-daily-report-system/internal/power"
	"github.com/Yterayut/vm-daily-report-system/internal/statestore"
	"github.com/Yterayut/vm-daily-report-system/internal/status"
	"github.com/Yterayut/vm-daily-report-system/internal/threshold"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// fakeCollector returns a fixed batch, or an error.
type fakeCollector struct {
	batch []types.Snapshot
	err   error
}

func (f *fakeCollector) Collect(context.Context) ([]types.Snapshot, error) {
	return f.batch, f.err
}

var _ collector.Collector = (*fakeCollector)(nil)

// memChannel records messages in memory.
type memChannel struct {
	name     string
	fail     bool
	messages []string
}

func (c *memChannel) Name() string { return c.name }
func (c *memChannel) Send(_ context.Context, message string, _ types.Severity) error {
	if c.fail {
		return errors.New("refused")
	}
	c.messages = append(c.messages, message)
	return nil
}

func newRunner(t *testing.T, batch []types.Snapshot, channels ...dispatch.Channel) (*Runner, *statestore.Store, *status.Latest) {
	t.Helper()
	store := statestore.New(filepath.Join(t.TempDir(), "vm_states.json"))
	th := threshold.Defaults()
	latest := status.NewLatest()
	r := New(
		&fakeCollector{batch: batch},
		store,
		power.NewDetector(time.Hour, th.Status),
		th,
		dispatch.New(channels, 5),
		7*24*time.Hour,
		latest,
	)
	return r, store, latest
}

func TestRun_FullCycle(t *testing.T) {
	batch := []types.Snapshot{
		{ID: "1", Name: "vm-1", Online: true, CPUPercent: 90, ObservedAt: time.Now()},
		{ID: "2", Name: "vm-2", Online: false, ObservedAt: time.Now()},
	}
	ch := &memChannel{name: "line"}
	r, store, latest := newRunner(t, batch, ch)

	outcome, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if outcome.Bundle.Severity != types.SeverityCritical {
		t.Errorf("severity: got %q, want critical", outcome.Bundle.Severity)
	}
	if len(outcome.Bundle.Critical) != 1 || len(outcome.Bundle.Offline) != 1 {
		t.Errorf("bundle: got %d critical, %d offline", len(outcome.Bundle.Critical), len(outcome.Bundle.Offline))
	}
	if !outcome.Delivered || len(outcome.Results) != 1 || !outcome.Results[0].Succeeded {
		t.Errorf("dispatch outcome: %+v", outcome.Results)
	}
	if len(ch.messages) != 1 {
		t.Errorf("channel received %d messages, want 1", len(ch.messages))
	}

	// The cycle seeded the state store.
	st := store.Load()
	if len(st) != 2 {
		t.Errorf("persisted state: got %d records, want 2", len(st))
	}
	if st["1"].AlertStatus != "critical" {
		t.Errorf("alert status for vm-1: got %q, want critical", st["1"].AlertStatus)
	}

	if got, ok := latest.Get(); !ok || got.CycleID != outcome.CycleID {
		t.Error("latest outcome not recorded")
	}
}

func TestRun_RepeatedBatchEmitsNoTransitions(t *testing.T) {
	// Example scenario: same one-VM critical batch twice — one critical cpu
	// alert each run, zero transition events on the second.
	batch := []types.Snapshot{
		{ID: "1", Name: "vm-1", Online: true, CPUPercent: 90, ObservedAt: time.Now()},
	}
	r, _, _ := newRunner(t, batch, &memChannel{name: "line"})

	first, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if len(first.Bundle.Transitions) != 0 {
		t.Errorf("first run transitions: got %d, want 0 (quiet start)", len(first.Bundle.Transitions))
	}
	if len(first.Bundle.Critical) != 1 {
		t.Errorf("first run critical: got %d, want 1", len(first.Bundle.Critical))
	}

	second, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if len(second.Bundle.Transitions) != 0 {
		t.Errorf("second run transitions: got %d, want 0", len(second.Bundle.Transitions))
	}
	if len(second.Bundle.Critical) != 1 {
		t.Errorf("second run critical: got %d, want 1", len(second.Bundle.Critical))
	}
}

func TestRun_DetectsPowerOffBetweenCycles(t *testing.T) {
	now := time.Now()
	ch := &memChannel{name: "line"}
	r, _, _ := newRunner(t, nil, ch)

	r.collector = &fakeCollector{batch: []types.Snapshot{
		{ID: "1", Name: "vm-1", Online: true, ObservedAt: now},
	}}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("seed Run: %v", err)
	}

	r.collector = &fakeCollector{batch: []types.Snapshot{
		{ID: "1", Name: "vm-1", Online: false, ObservedAt: now.Add(time.Minute)},
	}}
	outcome, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if len(outcome.Bundle.Transitions) != 1 || outcome.Bundle.Transitions[0].Kind != power.KindPoweredOff {
		t.Fatalf("transitions: got %+v, want one powered_off", outcome.Bundle.Transitions)
	}
}

func TestRun_CollectorErrorBecomesEmptyBatch(t *testing.T) {
	r, store, _ := newRunner(t, nil, &memChannel{name: "line"})

	// Seed one online VM.
	r.collector = &fakeCollector{batch: []types.Snapshot{
		{ID: "1", Name: "vm-1", Online: true, ObservedAt: time.Now()},
	}}
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("seed Run: %v", err)
	}

	// Collector failure: cycle proceeds as an empty batch and the seeded
	// VM is reported as disappeared.
	r.collector = &fakeCollector{err: errors.New("backend unreachable")}
	outcome, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run with failing collector: %v", err)
	}
	if len(outcome.Bundle.Transitions) != 1 || outcome.Bundle.Transitions[0].Kind != power.KindDisappeared {
		t.Fatalf("transitions: got %+v, want one disappeared", outcome.Bundle.Transitions)
	}
	if len(store.Load()) != 0 {
		t.Error("state store should be empty after an empty batch")
	}
}

func TestRun_NoChannelsIsNotAnError(t *testing.T) {
	batch := []types.Snapshot{{ID: "1", Name: "vm-1", Online: true, ObservedAt: time.Now()}}
	r, _, _ := newRunner(t, batch)

	outcome, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.Delivered {
		t.Error("delivered: got true with zero channels")
	}
	if len(outcome.Results) != 0 {
		t.Errorf("results: got %d, want 0", len(outcome.Results))
	}
}
