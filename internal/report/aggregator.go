package report

import (
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/power"
	"github.com/Yterayut/vm-daily-report-system/internal/threshold"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Bundle is the aggregated output of one reporting cycle.
type Bundle struct {
	Critical    []threshold.Alert `json:"critical"`
	Warning     []threshold.Alert `json:"warning"`
	Offline     []threshold.Alert `json:"offline"`
	Healthy     []string          `json:"healthy"`
	Transitions []power.Event     `json:"transitions"`
	Severity    types.Severity    `json:"overall_severity"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Summary is the fleet-wide roll-up rendered at the top of every report.
type Summary struct {
	Total      int     `json:"total"`
	Online     int     `json:"online"`
	Offline    int     `json:"offline"`
	OnlinePct  float64 `json:"online_percent"`
	OfflinePct float64 `json:"offline_percent"`
	AvgCPU     float64 `json:"avg_cpu"`
	AvgMemory  float64 `json:"avg_memory"`
	AvgDisk    float64 `json:"avg_disk"`
}

// Build merges one cycle's threshold analysis and transition events into a
// Bundle with the overall severity resolved.
func Build(a threshold.Analysis, events []power.Event, at time.Time) Bundle {
	return Bundle{
		Critical:    a.Critical,
		Warning:     a.Warning,
		Offline:     a.Offline,
		Healthy:     a.Healthy,
		Transitions: events,
		Severity:    ResolveSeverity(a),
		GeneratedAt: at,
	}
}

// ResolveSeverity applies the strict priority chain: any offline VM or
// critical breach makes the cycle critical; otherwise any warning breach
// makes it warning; otherwise info. Offline and critical dominate no
// matter how many warnings coexist.
func ResolveSeverity(a threshold.Analysis) types.Severity {
	switch {
	case len(a.Offline) > 0 || len(a.Critical) > 0:
		return types.SeverityCritical
	case len(a.Warning) > 0:
		return types.SeverityWarning
	default:
		return types.SeverityInfo
	}
}

// Summarize computes the fleet roll-up for batch. Metric averages cover
// online VMs only.
func Summarize(batch []types.Snapshot) Summary {
	s := Summary{Total: len(batch)}
	if s.Total == 0 {
		return s
	}

	var cpu, mem, disk float64
	for _, vm := range batch {
		if !vm.Online {
			s.Offline++
			continue
		}
		s.Online++
		cpu += vm.CPUPercent
		mem += vm.MemoryPercent
		disk += vm.DiskPercent
	}

	s.OnlinePct = 100 * float64(s.Online) / float64(s.Total)
	s.OfflinePct = 100 * float64(s.Offline) / float64(s.Total)
	if s.Online > 0 {
		s.AvgCPU = cpu / float64(s.Online)
		s.AvgMemory = mem / float64(s.Online)
		s.AvgDisk = disk / float64(s.Online)
	}
	return s
}
