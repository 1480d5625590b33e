package collector

import (
	"context"
	"fmt"

	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Collector produces one batch of snapshots per reporting cycle. Identity
// values are unique within a batch; offline VMs carry zeroed metrics.
type Collector interface {
	Collect(ctx context.Context) ([]types.Snapshot, error)
}

// New returns the Collector selected by the configuration.
func New(cfg config.CollectorConfig) (Collector, error) {
	switch cfg.Type {
	case "zabbix":
		return NewZabbix(cfg.Zabbix), nil
	case "node_exporter":
		return NewNodeExporter(cfg.Hosts), nil
	default:
		return nil, fmt.Errorf("collector: unsupported type %q", cfg.Type)
	}
}
