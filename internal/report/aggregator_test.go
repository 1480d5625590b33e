package report

import (
	"strings"
	"testing"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/power"
	"github.com/Yterayut/vm-daily-report-system/internal/threshold"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

func alert(name string, sev types.Severity) threshold.Alert {
	return threshold.Alert{ID: "1", Name: name, Severity: sev, Message: name + ": breach"}
}

func TestResolveSeverity_PriorityChain(t *testing.T) {
	tests := []struct {
		name string
		a    threshold.Analysis
		want types.Severity
	}{
		{"all healthy", threshold.Analysis{Healthy: []string{"a"}}, types.SeverityInfo},
		{"warnings only", threshold.Analysis{
			Warning: []threshold.Alert{alert("a", types.SeverityWarning)},
		}, types.SeverityWarning},
		{"critical dominates warnings", threshold.Analysis{
			Critical: []threshold.Alert{alert("a", types.SeverityCritical)},
			Warning:  []threshold.Alert{alert("b", types.SeverityWarning)},
		}, types.SeverityCritical},
		{"one offline dominates many warnings", threshold.Analysis{
			Offline: []threshold.Alert{alert("down", types.SeverityCritical)},
			Warning: []threshold.Alert{
				alert("w1", types.SeverityWarning),
				alert("w2", types.SeverityWarning),
				alert("w3", types.SeverityWarning),
			},
		}, types.SeverityCritical},
		{"empty cycle is info", threshold.Analysis{}, types.SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveSeverity(tt.a); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	at := time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC)
	a := threshold.Analysis{
		Warning: []threshold.Alert{alert("w", types.SeverityWarning)},
		Healthy: []string{"h"},
	}
	events := []power.Event{{ID: "1", Name: "vm-1", Kind: power.KindNewVM, OccurredAt: at}}

	b := Build(a, events, at)
	if b.Severity != types.SeverityWarning {
		t.Errorf("severity: got %q, want warning", b.Severity)
	}
	if len(b.Transitions) != 1 || b.Transitions[0].Kind != power.KindNewVM {
		t.Errorf("transitions: got %+v", b.Transitions)
	}
	if !b.GeneratedAt.Equal(at) {
		t.Errorf("generated at: got %v, want %v", b.GeneratedAt, at)
	}
}

func TestSummarize(t *testing.T) {
	batch := []types.Snapshot{
		{ID: "1", Online: true, CPUPercent: 40, MemoryPercent: 60, DiskPercent: 20},
		{ID: "2", Online: true, CPUPercent: 60, MemoryPercent: 20, DiskPercent: 40},
		{ID: "3", Online: false, CPUPercent: 99}, // offline metrics excluded
	}

	s := Summarize(batch)
	if s.Total != 3 || s.Online != 2 || s.Offline != 1 {
		t.Fatalf("counts: got %+v", s)
	}
	if s.AvgCPU != 50 || s.AvgMemory != 40 || s.AvgDisk != 30 {
		t.Errorf("averages: got cpu=%v mem=%v disk=%v", s.AvgCPU, s.AvgMemory, s.AvgDisk)
	}
	if s.OfflinePct < 33.3 || s.OfflinePct > 33.4 {
		t.Errorf("offline pct: got %v", s.OfflinePct)
	}
}

func TestSummarize_EmptyBatch(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || s.AvgCPU != 0 {
		t.Errorf("empty batch summary: got %+v", s)
	}
}

func TestRender_Sections(t *testing.T) {
	at := time.Date(2026, 8, 23, 8, 0, 0, 0, time.UTC)
	b := Build(threshold.Analysis{
		Critical: []threshold.Alert{{Name: "db-01", Message: "db-01: CPU 95.0% (Critical)"}},
		Offline:  []threshold.Alert{{Name: "app-02", Message: "app-02 is OFFLINE"}},
		Healthy:  []string{"web-01"},
	}, nil, at)
	s := Summary{Total: 3, Online: 2, Offline: 1, OnlinePct: 66.7, OfflinePct: 33.3, AvgCPU: 55}

	out := Render(b, s)
	for _, want := range []string{
		"=== SYSTEM OVERVIEW ===",
		"Total VMs: 3",
		"=== OFFLINE SYSTEMS ===",
		"app-02 is OFFLINE",
		"=== CRITICAL ALERTS ===",
		"db-01: CPU 95.0% (Critical)",
		"=== PERFORMANCE OVERVIEW ===",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "=== WARNING ALERTS ===") {
		t.Error("warning section rendered with no warnings")
	}
}

func TestRender_CollapsesExcessWarnings(t *testing.T) {
	var warns []threshold.Alert
	for i := 0; i < 8; i++ {
		warns = append(warns, threshold.Alert{Message: "warn"})
	}
	out := Render(Build(threshold.Analysis{Warning: warns}, nil, time.Now()), Summary{})

	if !strings.Contains(out, "... and 3 more warnings") {
		t.Errorf("expected collapsed warning note, got:\n%s", out)
	}
}

func TestRenderTransition(t *testing.T) {
	e := power.Event{
		ID: "1", Name: "db-01", Hostname: "db01", Address: "10.0.1.20",
		Kind: power.KindRecovered, Downtime: 95 * time.Minute,
	}
	out := RenderTransition(e)
	for _, want := range []string{"VM Recovered: db-01", "Host: db01", "IP: 10.0.1.20", "Downtime: 1h35m"} {
		if !strings.Contains(out, want) {
			t.Errorf("transition message missing %q:\n%s", want, out)
		}
	}

	off := power.Event{Name: "db-01", Hostname: "db01", Kind: power.KindPoweredOff, LastSeen: "2026-08-23T07:00:00Z"}
	if !strings.Contains(RenderTransition(off), "Last Seen: 2026-08-23T07:00:00Z") {
		t.Error("powered_off message missing last-seen line")
	}
}

func TestSubject(t *testing.T) {
	date := time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		b    Bundle
		want string
	}{
		{"offline", Bundle{
			Severity: types.SeverityCritical,
			Offline:  []threshold.Alert{{}, {}},
		}, "VM Infrastructure Report - 2026-08-23 - 2 VMs OFFLINE"},
		{"critical", Bundle{
			Severity: types.SeverityCritical,
			Critical: []threshold.Alert{{}},
		}, "VM Infrastructure Report - 2026-08-23 - 1 CRITICAL ALERTS"},
		{"warning", Bundle{
			Severity: types.SeverityWarning,
			Warning:  []threshold.Alert{{}, {}, {}},
		}, "VM Infrastructure Report - 2026-08-23 - 3 Warnings"},
		{"info", Bundle{Severity: types.SeverityInfo},
			"VM Infrastructure Report - 2026-08-23 - All Systems Normal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Subject(tt.b, Summary{}, date); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
