package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/power"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// warningRenderLimit caps the warning lines spelled out in the report body;
// the remainder is collapsed into a "... and N more" line.
const warningRenderLimit = 5

// Render produces the plain-text cycle report delivered through every
// channel: fleet overview, alert counts, then one section per non-empty
// alert category.
func Render(b Bundle, s Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "VM Infrastructure Report\nGenerated: %s\n\n",
		b.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(&sb, "=== SYSTEM OVERVIEW ===\n")
	fmt.Fprintf(&sb, "Total VMs: %d\n", s.Total)
	fmt.Fprintf(&sb, "Online: %d (%.1f%%)\n", s.Online, s.OnlinePct)
	fmt.Fprintf(&sb, "Offline: %d (%.1f%%)\n\n", s.Offline, s.OfflinePct)

	fmt.Fprintf(&sb, "=== ALERT SUMMARY ===\n")
	fmt.Fprintf(&sb, "Critical: %d\n", len(b.Critical))
	fmt.Fprintf(&sb, "Warning: %d\n", len(b.Warning))
	fmt.Fprintf(&sb, "Offline: %d\n", len(b.Offline))
	fmt.Fprintf(&sb, "Healthy: %d\n\n", len(b.Healthy))

	if len(b.Offline) > 0 {
		sb.WriteString("=== OFFLINE SYSTEMS ===\n")
		for _, a := range b.Offline {
			fmt.Fprintf(&sb, "- %s\n", a.Message)
		}
		sb.WriteString("\n")
	}

	if len(b.Critical) > 0 {
		sb.WriteString("=== CRITICAL ALERTS ===\n")
		for _, a := range b.Critical {
			fmt.Fprintf(&sb, "- %s\n", a.Message)
		}
		sb.WriteString("\n")
	}

	if len(b.Warning) > 0 {
		sb.WriteString("=== WARNING ALERTS ===\n")
		for i, a := range b.Warning {
			if i == warningRenderLimit {
				fmt.Fprintf(&sb, "... and %d more warnings\n", len(b.Warning)-warningRenderLimit)
				break
			}
			fmt.Fprintf(&sb, "- %s\n", a.Message)
		}
		sb.WriteString("\n")
	}

	if s.Online > 0 {
		fmt.Fprintf(&sb, "=== PERFORMANCE OVERVIEW ===\n")
		fmt.Fprintf(&sb, "Average CPU: %.1f%%\n", s.AvgCPU)
		fmt.Fprintf(&sb, "Average Memory: %.1f%%\n", s.AvgMemory)
		fmt.Fprintf(&sb, "Average Disk: %.1f%%\n\n", s.AvgDisk)
	}

	sb.WriteString("---\nVM Monitoring System")
	return sb.String()
}

// RenderTransition produces the short per-event sub-message sent after the
// main report for each power-state transition.
func RenderTransition(e power.Event) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s: %s\n", e.Kind.Title(), e.Name)
	fmt.Fprintf(&sb, "Host: %s\n", e.Hostname)
	if e.Address != "" {
		fmt.Fprintf(&sb, "IP: %s\n", e.Address)
	}
	fmt.Fprintf(&sb, "Event: %s", string(e.Kind))

	switch e.Kind {
	case power.KindRecovered:
		if e.Downtime > 0 {
			fmt.Fprintf(&sb, "\nDowntime: %s", formatDuration(e.Downtime))
		}
	case power.KindPoweredOff, power.KindDisappeared:
		if e.LastSeen != "" {
			fmt.Fprintf(&sb, "\nLast Seen: %s", e.LastSeen)
		}
	}
	return sb.String()
}

// Subject builds the email subject line for one cycle.
func Subject(b Bundle, s Summary, date time.Time) string {
	base := fmt.Sprintf("VM Infrastructure Report - %s", date.Format("2006-01-02"))

	switch b.Severity {
	case types.SeverityCritical:
		if len(b.Offline) > 0 {
			return fmt.Sprintf("%s - %d VMs OFFLINE", base, len(b.Offline))
		}
		return fmt.Sprintf("%s - %d CRITICAL ALERTS", base, len(b.Critical))
	case types.SeverityWarning:
		return fmt.Sprintf("%s - %d Warnings", base, len(b.Warning))
	default:
		return base + " - All Systems Normal"
	}
}

// formatDuration renders a downtime as "2h05m" / "45m" / "30s".
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", d/time.Second)
	}
}
