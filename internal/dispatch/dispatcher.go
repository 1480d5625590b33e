package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Yterayut/vm-daily-report-system/internal/report"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Channel is one independently configured delivery mechanism. Send blocks
// with whatever timeout the implementation owns and returns an error on
// delivery failure.
type Channel interface {
	Name() string
	Send(ctx context.Context, message string, severity types.Severity) error
}

// Result is the per-channel outcome of one dispatch attempt.
type Result struct {
	Channel   string `json:"channel_name"`
	Succeeded bool   `json:"succeeded"`
	Error     string `json:"error_detail,omitempty"`
}

// DefaultTransitionCap limits transition sub-messages per cycle.
const DefaultTransitionCap = 5

// Dispatcher fans one cycle's rendered report out to every configured
// channel. It never mutates cycle state — dispatch is a read-only consumer
// of the bundle.
type Dispatcher struct {
	channels      []Channel
	transitionCap int
}

// New creates a Dispatcher. A non-positive transitionCap falls back to
// DefaultTransitionCap. Zero channels is valid: Dispatch then reports
// delivered=false with an empty result set.
func New(channels []Channel, transitionCap int) *Dispatcher {
	if transitionCap <= 0 {
		transitionCap = DefaultTransitionCap
	}
	return &Dispatcher{channels: channels, transitionCap: transitionCap}
}

// Dispatch sends the cycle report, then the capped transition sub-messages,
// through every channel. Every channel is attempted unconditionally — an
// info-severity healthy summary is itself a delivery. The returned error is
// non-nil only for a programming defect (an unknown severity); channel
// failures are recorded in the results, never propagated.
//
// delivered is true if at least one channel accepted the report.
func (d *Dispatcher) Dispatch(ctx context.Context, b report.Bundle, s report.Summary) (delivered bool, results []Result, err error) {
	if !b.Severity.Valid() {
		return false, nil, fmt.Errorf("dispatch: unknown severity %q", b.Severity)
	}

	message := report.Render(b, s)

	transitions := b.Transitions
	if len(transitions) > d.transitionCap {
		slog.Info("dispatch: transition alerts capped",
			"sent", d.transitionCap, "limited_from", len(transitions))
		transitions = transitions[:d.transitionCap]
	}

	results = make([]Result, 0, len(d.channels))
	for _, ch := range d.channels {
		res := Result{Channel: ch.Name()}

		if sendErr := sendSafe(ctx, ch, message, b.Severity); sendErr != nil {
			res.Error = sendErr.Error()
			slog.Error("dispatch: channel delivery failed",
				"channel", ch.Name(), "err", sendErr)
		} else {
			res.Succeeded = true
			delivered = true
			slog.Debug("dispatch: report delivered",
				"channel", ch.Name(), "severity", b.Severity)
		}

		// Transition sub-messages are best-effort per event; they do not
		// change the channel's recorded outcome for the cycle.
		for _, ev := range transitions {
			if sendErr := sendSafe(ctx, ch, report.RenderTransition(ev), types.SeverityInfo); sendErr != nil {
				slog.Warn("dispatch: transition alert failed",
					"channel", ch.Name(), "vm", ev.Name, "kind", ev.Kind, "err", sendErr)
			}
		}

		results = append(results, res)
	}

	return delivered, results, nil
}

// sendSafe invokes ch.Send and converts a panicking channel implementation
// into an ordinary error so one channel can never abort the others.
func sendSafe(ctx context.Context, ch Channel, message string, sev types.Severity) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel %s panicked: %v", ch.Name(), r)
		}
	}()
	return ch.Send(ctx, message, sev)
}
