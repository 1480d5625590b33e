package collector

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// node_exporter metric families used to derive the three percentages.
const (
	neMemTotal   = "node_memory_MemTotal_bytes"
	neMemAvail   = "node_memory_MemAvailable_bytes"
	neFSSize     = "node_filesystem_size_bytes"
	neFSAvail    = "node_filesystem_avail_bytes"
	neLoad1      = "node_load1"
	neCPUSeconds = "node_cpu_seconds_total"
)

const nodeExporterTimeout = 10 * time.Second

// NodeExporter scrapes each configured host's node_exporter endpoint. A
// host that cannot be scraped is reported as an offline snapshot rather
// than failing the batch.
type NodeExporter struct {
	hosts  []config.HostTarget
	client *http.Client
	now    func() time.Time
}

// NewNodeExporter creates a collector over the given scrape targets.
func NewNodeExporter(hosts []config.HostTarget) *NodeExporter {
	return &NodeExporter{
		hosts:  hosts,
		client: &http.Client{Timeout: nodeExporterTimeout},
		now:    time.Now,
	}
}

// Collect scrapes every target sequentially and maps the metric families
// to snapshots.
func (n *NodeExporter) Collect(ctx context.Context) ([]types.Snapshot, error) {
	observed := n.now()
	out := make([]types.Snapshot, 0, len(n.hosts))

	for _, h := range n.hosts {
		snap := types.Snapshot{
			ID:         h.ID,
			Name:       h.Name,
			Hostname:   h.Hostname,
			Address:    h.Address,
			ObservedAt: observed,
		}

		mfs, err := n.fetch(ctx, h.Endpoint)
		if err != nil {
			slog.Warn("collector: node_exporter scrape failed — reporting offline",
				"host", h.ID, "endpoint", h.Endpoint, "err", err)
			out = append(out, snap)
			continue
		}

		snap.Online = true
		snap.Available = 1
		snap.CPUPercent = cpuPercent(mfs)
		snap.MemoryPercent = memoryPercent(mfs)
		snap.DiskPercent = diskPercent(mfs)
		out = append(out, snap)
	}

	slog.Info("collector: node_exporter batch collected", "hosts", len(out))
	return out, nil
}

// fetch performs an HTTP GET and returns parsed metric families.
func (n *NodeExporter) fetch(ctx context.Context, url string) (map[string]*dto.MetricFamily, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return parseMetrics(resp.Body)
}

// parseMetrics decodes a Prometheus text exposition from r. A partial
// result with a non-fatal parse warning is still returned successfully.
func parseMetrics(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("parse prometheus text: %w", err)
	}
	return mfs, nil
}

// cpuPercent approximates CPU usage as 1-minute load over CPU count. The
// exporter has no usage gauge; deriving a true rate would need two scrapes.
func cpuPercent(mfs map[string]*dto.MetricFamily) float64 {
	load := gaugeValue(mfs[neLoad1])

	cpus := map[string]struct{}{}
	if mf := mfs[neCPUSeconds]; mf != nil {
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "cpu" {
					cpus[l.GetValue()] = struct{}{}
				}
			}
		}
	}
	if len(cpus) == 0 {
		return 0
	}

	pct := 100 * load / float64(len(cpus))
	if pct > 100 {
		pct = 100
	}
	return pct
}

// memoryPercent derives used memory from MemTotal and MemAvailable.
func memoryPercent(mfs map[string]*dto.MetricFamily) float64 {
	total := gaugeValue(mfs[neMemTotal])
	avail := gaugeValue(mfs[neMemAvail])
	if total <= 0 {
		return 0
	}
	return 100 * (total - avail) / total
}

// diskPercent reports usage of the root filesystem when present, otherwise
// the fullest filesystem in the scrape.
func diskPercent(mfs map[string]*dto.MetricFamily) float64 {
	sizes := byMountpoint(mfs[neFSSize])
	avails := byMountpoint(mfs[neFSAvail])

	usage := func(mount string) (float64, bool) {
		size, ok := sizes[mount]
		if !ok || size <= 0 {
			return 0, false
		}
		return 100 * (size - avails[mount]) / size, true
	}

	if pct, ok := usage("/"); ok {
		return pct
	}

	var worst float64
	for mount := range sizes {
		if pct, ok := usage(mount); ok && pct > worst {
			worst = pct
		}
	}
	return worst
}

// byMountpoint indexes a filesystem metric family by its mountpoint label.
func byMountpoint(mf *dto.MetricFamily) map[string]float64 {
	out := map[string]float64{}
	if mf == nil {
		return out
	}
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "mountpoint" {
				out[l.GetValue()] = m.GetGauge().GetValue()
			}
		}
	}
	return out
}

// gaugeValue sums all gauge or untyped values in a MetricFamily. Returns 0
// if mf is nil (metric not present in the scrape).
func gaugeValue(mf *dto.MetricFamily) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		switch {
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		case m.Counter != nil:
			total += m.Counter.GetValue()
		}
	}
	return total
}
