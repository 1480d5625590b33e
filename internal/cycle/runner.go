package cycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Yterayut/vm-daily-report-system/internal/collector"
	"github.com/Yterayut/vm-daily-report-system/internal/dispatch"
	"github.com/Yterayut/vm-daily-report-system/internal/power"
	"github.com/Yterayut/vm-daily-report-system/internal/report"
	"github.com/Yterayut/vm-daily-report-system/internal/statestore"
	"github.com/Yterayut/vm-daily-report-system/internal/status"
	"github.com/Yterayut/vm-daily-report-system/internal/threshold"
)

// Runner wires the pipeline components of one reporting cycle.
type Runner struct {
	collector  collector.Collector
	store      *statestore.Store
	detector   *power.Detector
	thresholds threshold.Thresholds
	dispatcher *dispatch.Dispatcher
	retention  time.Duration
	latest     *status.Latest

	now func() time.Time
}

// New assembles a Runner. latest may be nil when no status surface is served.
func New(
	c collector.Collector,
	store *statestore.Store,
	detector *power.Detector,
	thresholds threshold.Thresholds,
	dispatcher *dispatch.Dispatcher,
	retention time.Duration,
	latest *status.Latest,
) *Runner {
	return &Runner{
		collector:  c,
		store:      store,
		detector:   detector,
		thresholds: thresholds,
		dispatcher: dispatcher,
		retention:  retention,
		latest:     latest,
		now:        time.Now,
	}
}

// Run executes one cycle to completion and returns its outcome.
//
// Soft failures never abort the cycle: a collector error becomes an empty
// batch (every previously-online VM will be reported as disappeared), and
// a state write failure leaves the store stale but keeps the detected
// transitions. The returned error is reserved for programming defects
// surfaced by the dispatcher.
func (r *Runner) Run(ctx context.Context) (*status.Outcome, error) {
	cycleID := uuid.NewString()
	started := r.now()
	log := slog.With("cycle", cycleID)

	batch, err := r.collector.Collect(ctx)
	if err != nil {
		log.Warn("cycle: collection failed — treating as empty batch", "err", err)
		batch = nil
	}
	log.Info("cycle: collected", "vms", len(batch))

	prev := r.store.Load()
	analysis := r.thresholds.Analyze(batch)
	events, next := r.detector.Detect(batch, prev)
	log.Info("cycle: analyzed",
		"critical", len(analysis.Critical),
		"warning", len(analysis.Warning),
		"offline", len(analysis.Offline),
		"healthy", len(analysis.Healthy),
		"transitions", len(events),
	)

	bundle := report.Build(analysis, events, r.now())
	summary := report.Summarize(batch)
	log.Info("cycle: aggregated", "severity", bundle.Severity)

	if err := r.store.Replace(next); err != nil {
		// The store stays stale; the transitions still go out this cycle.
		log.Error("cycle: state write failed — store left stale", "err", err)
	} else if pruned, err := r.store.Prune(r.retention); err != nil {
		log.Warn("cycle: state prune failed", "err", err)
	} else if pruned > 0 {
		log.Info("cycle: pruned stale state entries", "count", pruned)
	}

	delivered, results, err := r.dispatcher.Dispatch(ctx, bundle, summary)
	if err != nil {
		return nil, err
	}
	log.Info("cycle: dispatched", "delivered", delivered, "channels", len(results))

	outcome := &status.Outcome{
		CycleID:    cycleID,
		StartedAt:  started,
		FinishedAt: r.now(),
		Snapshots:  batch,
		Summary:    summary,
		Bundle:     bundle,
		Results:    results,
		Delivered:  delivered,
	}
	if r.latest != nil {
		r.latest.Set(outcome)
	}
	return outcome, nil
}
