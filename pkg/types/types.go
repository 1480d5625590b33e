package types

import (
	"fmt"
	"time"
)

// Severity is the three-level alert scale used across the whole pipeline.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severity values.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

// Label returns the bracketed uppercase form used in rendered messages,
// e.g. "[CRITICAL]".
func (s Severity) Label() string {
	switch s {
	case SeverityCritical:
		return "[CRITICAL]"
	case SeverityWarning:
		return "[WARNING]"
	default:
		return "[INFO]"
	}
}

// Snapshot is one VM's observed state at one instant, as reported by a
// collector. ID is the stable key (e.g. the Zabbix host id) and must be
// unique within a batch.
//
// When Online is false the three percentage fields are meaningless and
// must not be used for threshold evaluation.
type Snapshot struct {
	ID            string    `json:"id"`
	Name          string    `json:"display_name"`
	Hostname      string    `json:"network_host"`
	Address       string    `json:"address"`
	Online        bool      `json:"is_online"`
	Available     int       `json:"available"`
	Status        int       `json:"status"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	DiskPercent   float64   `json:"disk_percent"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Ident returns "Name (Hostname)" for human-readable log and message output.
func (s Snapshot) Ident() string {
	if s.Hostname == "" || s.Hostname == s.Name {
		return s.Name
	}
	return fmt.Sprintf("%s (%s)", s.Name, s.Hostname)
}
