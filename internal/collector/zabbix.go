package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Yterayut/vm-daily-report-system/internal/config"
	"github.com/Yterayut/vm-daily-report-system/pkg/types"
)

// Candidate item keys per metric, in priority order. Key layouts differ
// between Zabbix agent versions, so the first key with a usable last value
// wins.
var (
	zabbixCPUKeys = []string{
		"system.cpu.util",
		"system.cpu.util[,idle]",
		"system.cpu.load[percpu,avg1]",
	}
	zabbixMemoryKeys = []string{
		"vm.memory.util",
		"vm.memory.size[pused]",
	}
	zabbixDiskKeys = []string{
		"vfs.fs.dependent.size[/,pused]",
		"vfs.fs.size[/,pused]",
	}
)

// Zabbix collects snapshots through the Zabbix JSON-RPC API: one login,
// one host.get, one bulk item.get per cycle.
type Zabbix struct {
	cfg    config.ZabbixConfig
	client *http.Client
	now    func() time.Time

	nextID int
}

// NewZabbix creates a Zabbix collector from its config section.
func NewZabbix(cfg config.ZabbixConfig) *Zabbix {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultZabbixTimeout
	}
	return &Zabbix{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

type zabbixHost struct {
	HostID    string `json:"hostid"`
	Name      string `json:"name"`
	Host      string `json:"host"`
	Status    string `json:"status"`
	Available string `json:"available"`

	Interfaces []struct {
		IP string `json:"ip"`
	} `json:"interfaces"`
}

type zabbixItem struct {
	HostID    string `json:"hostid"`
	Key       string `json:"key_"`
	LastValue string `json:"lastvalue"`
}

// Collect logs in, fetches all enabled hosts with their interfaces, bulk
// fetches the metric items, and maps everything to snapshots.
func (z *Zabbix) Collect(ctx context.Context) ([]types.Snapshot, error) {
	auth, err := z.login(ctx)
	if err != nil {
		return nil, fmt.Errorf("zabbix: login: %w", err)
	}
	defer z.logout(ctx, auth)

	var hosts []zabbixHost
	err = z.rpc(ctx, "host.get", map[string]any{
		"output":           []string{"hostid", "name", "host", "status", "available"},
		"selectInterfaces": []string{"ip"},
		"filter":           map[string]any{"status": 0}, // enabled hosts only
	}, auth, &hosts)
	if err != nil {
		return nil, fmt.Errorf("zabbix: host.get: %w", err)
	}
	if len(hosts) == 0 {
		return nil, nil
	}

	hostIDs := make([]string, 0, len(hosts))
	for _, h := range hosts {
		hostIDs = append(hostIDs, h.HostID)
	}

	allKeys := make([]string, 0, len(zabbixCPUKeys)+len(zabbixMemoryKeys)+len(zabbixDiskKeys))
	allKeys = append(allKeys, zabbixCPUKeys...)
	allKeys = append(allKeys, zabbixMemoryKeys...)
	allKeys = append(allKeys, zabbixDiskKeys...)

	var items []zabbixItem
	err = z.rpc(ctx, "item.get", map[string]any{
		"hostids": hostIDs,
		"output":  []string{"hostid", "key_", "lastvalue"},
		"filter":  map[string]any{"key_": allKeys},
	}, auth, &items)
	if err != nil {
		return nil, fmt.Errorf("zabbix: item.get: %w", err)
	}

	// key -> value, per host.
	values := make(map[string]map[string]float64, len(hosts))
	for _, it := range items {
		v, err := strconv.ParseFloat(it.LastValue, 64)
		if err != nil {
			continue
		}
		if values[it.HostID] == nil {
			values[it.HostID] = make(map[string]float64)
		}
		values[it.HostID][it.Key] = v
	}

	observed := z.now()
	out := make([]types.Snapshot, 0, len(hosts))
	for _, h := range hosts {
		available, _ := strconv.Atoi(h.Available)
		status, _ := strconv.Atoi(h.Status)

		snap := types.Snapshot{
			ID:         h.HostID,
			Name:       h.Name,
			Hostname:   h.Host,
			Online:     available == 1,
			Available:  available,
			Status:     status,
			ObservedAt: observed,
		}
		if len(h.Interfaces) > 0 {
			snap.Address = h.Interfaces[0].IP
		}
		if snap.Online {
			hv := values[h.HostID]
			snap.CPUPercent = firstPercent(hv, zabbixCPUKeys)
			snap.MemoryPercent = firstPercent(hv, zabbixMemoryKeys)
			snap.DiskPercent = firstPercent(hv, zabbixDiskKeys)
		}
		out = append(out, snap)
	}

	slog.Info("collector: zabbix batch collected", "hosts", len(out))
	return out, nil
}

// firstPercent returns the first candidate key present with a value in the
// 0-100 range, or 0 when none matches.
func firstPercent(values map[string]float64, keys []string) float64 {
	for _, k := range keys {
		if v, ok := values[k]; ok && v >= 0 && v <= 100 {
			return v
		}
	}
	return 0
}

func (z *Zabbix) login(ctx context.Context) (string, error) {
	var token string
	err := z.rpc(ctx, "user.login", map[string]any{
		"username": z.cfg.User(),
		"password": z.cfg.Password(),
	}, "", &token)
	if err != nil {
		return "", err
	}
	return token, nil
}

func (z *Zabbix) logout(ctx context.Context, auth string) {
	var ok bool
	if err := z.rpc(ctx, "user.logout", []any{}, auth, &ok); err != nil {
		slog.Debug("collector: zabbix logout failed", "err", err)
	}
}

// rpc performs one JSON-RPC 2.0 call and decodes the result into out.
func (z *Zabbix) rpc(ctx context.Context, method string, params any, auth string, out any) error {
	z.nextID++
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      z.nextID,
	}
	if auth != "" {
		req["auth"] = auth
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, z.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json-rpc")

	resp, err := z.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    string `json:"data"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if envelope.Error != nil {
		return fmt.Errorf("api error %d: %s %s",
			envelope.Error.Code, envelope.Error.Message, envelope.Error.Data)
	}
	if out != nil && len(envelope.Result) > 0 {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode result: %w", err)
		}
	}
	return nil
}
