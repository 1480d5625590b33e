package api

import (
	"github.com/Yterayut/vm-daily-report-system/internal/dispatch"
	"github.com/Yterayut/vm-daily-report-system/internal/report"
)

// HealthResponse is the GET /api/v1/health payload.
type HealthResponse struct {
	State       string  `json:"state"` // info | warning | critical | unknown
	Total       int     `json:"total_vms"`
	Online      int     `json:"online"`
	Offline     int     `json:"offline"`
	OnlinePct   float64 `json:"online_percent"`
	AvgCPU      float64 `json:"avg_cpu"`
	AvgMemory   float64 `json:"avg_memory"`
	AvgDisk     float64 `json:"avg_disk"`
	GeneratedAt string  `json:"generated_at,omitempty"`
}

// VMResponse is one VM's state in GET /api/v1/vms.
type VMResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"display_name"`
	Hostname      string  `json:"network_host"`
	Address       string  `json:"address"`
	Online        bool    `json:"is_online"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	DiskPercent   float64 `json:"disk_percent"`
	ObservedAt    string  `json:"observed_at"`
}

// ReportResponse is the GET /api/v1/report payload: the last cycle's
// bundle plus its delivery outcome.
type ReportResponse struct {
	CycleID     string            `json:"cycle_id"`
	GeneratedAt string            `json:"generated_at"`
	Summary     report.Summary    `json:"summary"`
	Bundle      report.Bundle     `json:"bundle"`
	Delivered   bool              `json:"delivered"`
	Channels    []dispatch.Result `json:"channel_results"`
}

type errorResponse struct {
	Error string `json:"error"`
}
