package power

import (
	"sort"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/statestore"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Kind classifies one detected transition.
type Kind string

const (
	KindPoweredOn   Kind = "powered_on"
	KindPoweredOff  Kind = "powered_off"
	KindRecovered   Kind = "recovered"
	KindNewVM       Kind = "new_vm"
	KindDisappeared Kind = "disappeared"
)

// Title returns the human-readable event headline, e.g. "VM Powered On".
func (k Kind) Title() string {
	switch k {
	case KindPoweredOn:
		return "VM Powered On"
	case KindPoweredOff:
		return "VM Powered Off"
	case KindRecovered:
		return "VM Recovered"
	case KindNewVM:
		return "New VM Discovered"
	case KindDisappeared:
		return "VM Disappeared"
	default:
		return "Power State Change"
	}
}

// Event is one detected power-state transition.
//
// Downtime is set only for KindRecovered and is zero when the previous
// timestamp could not be parsed. LastSeen carries the previous cycle's
// raw observed_at string for KindPoweredOff and KindDisappeared.
type Event struct {
	ID         string        `json:"id"`
	Name       string        `json:"display_name"`
	Hostname   string        `json:"network_host"`
	Address    string        `json:"address"`
	Kind       Kind          `json:"kind"`
	OccurredAt time.Time     `json:"occurred_at"`
	Downtime   time.Duration `json:"downtime_duration,omitempty"`
	LastSeen   string        `json:"last_seen_at,omitempty"`
}

// Detector diffs snapshot batches against the previous persisted state.
//
// RecoveryWindow separates a plain power-on from a recovery: a VM that
// comes back online after being offline for longer than the window is
// classified as recovered.
type Detector struct {
	RecoveryWindow time.Duration

	// Status derives the alert_status string persisted per VM. Optional;
	// records carry "unknown" when nil.
	Status func(types.Snapshot) string

	now func() time.Time
}

// DefaultRecoveryWindow is the stock recovery-vs-power-on boundary.
const DefaultRecoveryWindow = time.Hour

// NewDetector creates a Detector with the given recovery window
// (DefaultRecoveryWindow when zero).
func NewDetector(recoveryWindow time.Duration, status func(types.Snapshot) string) *Detector {
	if recoveryWindow <= 0 {
		recoveryWindow = DefaultRecoveryWindow
	}
	return &Detector{
		RecoveryWindow: recoveryWindow,
		Status:         status,
		now:            time.Now,
	}
}

// Detect compares current against prev and returns the classified
// transitions plus the state map to persist for the next cycle.
//
// An empty prev is a first run: no events are emitted, only the seed
// state, so boot never produces "all VMs just appeared" noise. An empty
// current batch marks every previously-online VM as disappeared.
func (d *Detector) Detect(current []types.Snapshot, prev statestore.State) ([]Event, statestore.State) {
	now := d.now()
	next := make(statestore.State, len(current))
	var events []Event

	for _, vm := range current {
		status := "unknown"
		if d.Status != nil {
			status = d.Status(vm)
		}
		next[vm.ID] = statestore.RecordOf(vm, status)
	}

	if len(prev) == 0 {
		return nil, next
	}

	for _, vm := range current {
		before, known := prev[vm.ID]
		if !known {
			if vm.Online {
				events = append(events, Event{
					ID: vm.ID, Name: vm.Name, Hostname: vm.Hostname, Address: vm.Address,
					Kind: KindNewVM, OccurredAt: now,
				})
			}
			continue
		}

		switch {
		case !before.Online && vm.Online:
			ev := Event{
				ID: vm.ID, Name: vm.Name, Hostname: vm.Hostname, Address: vm.Address,
				Kind: KindPoweredOn, OccurredAt: now,
			}
			if seen, ok := before.ObservedTime(); ok {
				down := now.Sub(seen)
				if down > d.RecoveryWindow {
					ev.Kind = KindRecovered
					ev.Downtime = down
				}
			}
			events = append(events, ev)

		case before.Online && !vm.Online:
			events = append(events, Event{
				ID: vm.ID, Name: vm.Name, Hostname: vm.Hostname, Address: vm.Address,
				Kind: KindPoweredOff, OccurredAt: now, LastSeen: before.ObservedAt,
			})
		}
	}

	// Map iteration order is random; sort disappeared VMs by id so event
	// output is stable across cycles.
	gone := make([]string, 0)
	for id, before := range prev {
		if _, present := next[id]; present || !before.Online {
			continue
		}
		gone = append(gone, id)
	}
	sort.Strings(gone)
	for _, id := range gone {
		before := prev[id]
		events = append(events, Event{
			ID: id, Name: before.Name, Hostname: before.Hostname, Address: before.Address,
			Kind: KindDisappeared, OccurredAt: now, LastSeen: before.ObservedAt,
		})
	}

	return events, next
}
