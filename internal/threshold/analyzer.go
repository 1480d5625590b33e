package threshold

import (
	"fmt"

	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Metric identifies which resource a threshold alert refers to.
type Metric string

const (
	MetricCPU    Metric = "cpu"
	MetricMemory Metric = "memory"
	MetricDisk   Metric = "disk"
)

// Label returns the display name used in rendered alert messages.
func (m Metric) Label() string {
	switch m {
	case MetricCPU:
		return "CPU"
	case MetricMemory:
		return "Memory"
	case MetricDisk:
		return "Disk"
	default:
		return string(m)
	}
}

// Limit is one metric's warning/critical boundary pair. A value greater
// than or equal to Critical is critical; greater than or equal to Warning
// is warning.
type Limit struct {
	Warning  float64
	Critical float64
}

// Thresholds holds the per-metric limits for one analysis run.
type Thresholds struct {
	CPU    Limit
	Memory Limit
	Disk   Limit
}

// Defaults returns the stock thresholds: CPU 70/85, memory 75/90, disk 80/90.
func Defaults() Thresholds {
	return Thresholds{
		CPU:    Limit{Warning: 70, Critical: 85},
		Memory: Limit{Warning: 75, Critical: 90},
		Disk:   Limit{Warning: 80, Critical: 90},
	}
}

// Alert is one metric breach (or one offline VM) detected during analysis.
type Alert struct {
	ID       string         `json:"id"`
	Name     string         `json:"display_name"`
	Metric   Metric         `json:"metric,omitempty"`
	Value    float64        `json:"value,omitempty"`
	Limit    float64        `json:"threshold,omitempty"`
	Severity types.Severity `json:"severity"`
	Message  string         `json:"message"`
}

// Analysis is the classified output of one batch: metric breaches split by
// severity, offline VMs, and the names of VMs with nothing to report.
type Analysis struct {
	Critical []Alert
	Warning  []Alert
	Offline  []Alert
	Healthy  []string
}

// Analyze classifies every snapshot in batch. Offline VMs produce a single
// critical offline entry and skip metric checks. Online VMs are checked
// per metric independently, so one VM can contribute several alerts in the
// same cycle; a VM with zero breaches is recorded as healthy.
func (t Thresholds) Analyze(batch []types.Snapshot) Analysis {
	var out Analysis

	for _, vm := range batch {
		if !vm.Online {
			out.Offline = append(out.Offline, Alert{
				ID:       vm.ID,
				Name:     vm.Name,
				Severity: types.SeverityCritical,
				Message:  fmt.Sprintf("%s is OFFLINE", vm.Name),
			})
			continue
		}

		breached := false
		for _, check := range []struct {
			metric Metric
			value  float64
			limit  Limit
		}{
			{MetricCPU, vm.CPUPercent, t.CPU},
			{MetricMemory, vm.MemoryPercent, t.Memory},
			{MetricDisk, vm.DiskPercent, t.Disk},
		} {
			switch {
			case check.value >= check.limit.Critical:
				breached = true
				out.Critical = append(out.Critical, Alert{
					ID:       vm.ID,
					Name:     vm.Name,
					Metric:   check.metric,
					Value:    check.value,
					Limit:    check.limit.Critical,
					Severity: types.SeverityCritical,
					Message: fmt.Sprintf("%s: %s %.1f%% (Critical)",
						vm.Name, check.metric.Label(), check.value),
				})
			case check.value >= check.limit.Warning:
				breached = true
				out.Warning = append(out.Warning, Alert{
					ID:       vm.ID,
					Name:     vm.Name,
					Metric:   check.metric,
					Value:    check.value,
					Limit:    check.limit.Warning,
					Severity: types.SeverityWarning,
					Message: fmt.Sprintf("%s: %s %.1f%% (Warning)",
						vm.Name, check.metric.Label(), check.value),
				})
			}
		}

		if !breached {
			out.Healthy = append(out.Healthy, vm.Name)
		}
	}

	return out
}

// Status derives the single per-VM status string persisted alongside the
// VM's state: "offline", "critical", "warning", or "ok".
func (t Thresholds) Status(vm types.Snapshot) string {
	if !vm.Online {
		return "offline"
	}
	switch {
	case vm.CPUPercent >= t.CPU.Critical,
		vm.MemoryPercent >= t.Memory.Critical,
		vm.DiskPercent >= t.Disk.Critical:
		return "critical"
	case vm.CPUPercent >= t.CPU.Warning,
		vm.MemoryPercent >= t.Memory.Warning,
		vm.DiskPercent >= t.Disk.Warning:
		return "warning"
	default:
		return "ok"
	}
}
