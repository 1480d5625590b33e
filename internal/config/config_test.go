package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	p := writeConfig(t, `collector:
  zabbix:
    url: "http://zabbix.local/api_jsonrpc.php"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collector.Type != "zabbix" {
		t.Errorf("collector.type: got %q, want zabbix", cfg.Collector.Type)
	}
	if cfg.Thresholds.CPU.Warning != 70 || cfg.Thresholds.CPU.Critical != 85 {
		t.Errorf("cpu thresholds: got %+v", cfg.Thresholds.CPU)
	}
	if cfg.Thresholds.Memory.Critical != 90 || cfg.Thresholds.Disk.Warning != 80 {
		t.Errorf("default thresholds: got %+v", cfg.Thresholds)
	}
	if cfg.State.Retention != 7*24*time.Hour {
		t.Errorf("state.retention: got %v, want 168h", cfg.State.Retention)
	}
	if cfg.Power.RecoveryWindow != time.Hour {
		t.Errorf("power.recovery_window: got %v, want 1h", cfg.Power.RecoveryWindow)
	}
	if cfg.Dispatch.TransitionCap != 5 {
		t.Errorf("dispatch.transition_cap: got %d, want 5", cfg.Dispatch.TransitionCap)
	}
	if cfg.Schedule != DefaultSchedule {
		t.Errorf("schedule: got %q, want %q", cfg.Schedule, DefaultSchedule)
	}
	if cfg.HTTP.Port != DefaultHTTPPort {
		t.Errorf("http.port: got %d, want %d", cfg.HTTP.Port, DefaultHTTPPort)
	}
}

func TestLoad_Full(t *testing.T) {
	p := writeConfig(t, `collector:
  type: node_exporter
  hosts:
    - id: "10001"
      name: web-01
      hostname: web01
      address: 10.0.1.10
      endpoint: "http://10.0.1.10:9100/metrics"
thresholds:
  cpu:
    warning: 60
    critical: 80
state:
  path: /var/lib/vmreport/states.json
  retention: 72h
power:
  recovery_window: 30m
dispatch:
  transition_cap: 3
schedule: "*/30 * * * *"
http:
  port: 9090
  stream_interval: 2s
channels:
  line:
    token_env: LINE_CHANNEL_ACCESS_TOKEN
    to_env: LINE_USER_ID
  webhooks:
    - type: slack
      url_env: SLACK_WEBHOOK_URL
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Collector.Type != "node_exporter" || len(cfg.Collector.Hosts) != 1 {
		t.Errorf("collector: got %+v", cfg.Collector)
	}
	if cfg.Thresholds.CPU.Warning != 60 || cfg.Thresholds.CPU.Critical != 80 {
		t.Errorf("cpu thresholds: got %+v", cfg.Thresholds.CPU)
	}
	// Sections absent from the file keep their defaults.
	if cfg.Thresholds.Memory.Warning != 75 {
		t.Errorf("memory warning default: got %v", cfg.Thresholds.Memory.Warning)
	}
	if cfg.Power.RecoveryWindow != 30*time.Minute {
		t.Errorf("recovery window: got %v", cfg.Power.RecoveryWindow)
	}
	if cfg.Dispatch.TransitionCap != 3 {
		t.Errorf("transition cap: got %d", cfg.Dispatch.TransitionCap)
	}
	if cfg.Channels.Line == nil || cfg.Channels.Line.TokenEnv != "LINE_CHANNEL_ACCESS_TOKEN" {
		t.Errorf("line channel: got %+v", cfg.Channels.Line)
	}
	if len(cfg.Channels.Webhooks) != 1 || cfg.Channels.Webhooks[0].Type != "slack" {
		t.Errorf("webhooks: got %+v", cfg.Channels.Webhooks)
	}
}

func TestLoad_EnvResolution(t *testing.T) {
	t.Setenv("TEST_LINE_TOKEN", "tok-123")
	t.Setenv("TEST_LINE_TO", "U456")

	l := LineConfig{TokenEnv: "TEST_LINE_TOKEN", ToEnv: "TEST_LINE_TO"}
	if l.Token() != "tok-123" || l.To() != "U456" {
		t.Errorf("env resolution: got token=%q to=%q", l.Token(), l.To())
	}

	if (WebhookConfig{}).URL() != "" {
		t.Error("empty url_env should resolve to empty string")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown collector", `collector:
  type: snmp
`},
		{"zabbix without url", `collector:
  type: zabbix
`},
		{"node_exporter without hosts", `collector:
  type: node_exporter
`},
		{"warning above critical", `collector:
  zabbix:
    url: "http://z/api_jsonrpc.php"
thresholds:
  disk:
    warning: 95
    critical: 90
`},
		{"negative retention", `collector:
  zabbix:
    url: "http://z/api_jsonrpc.php"
state:
  retention: -1h
`},
		{"unknown webhook type", `collector:
  zabbix:
    url: "http://z/api_jsonrpc.php"
channels:
  webhooks:
    - type: pigeon
      url_env: X
`},
		{"email without recipients", `collector:
  zabbix:
    url: "http://z/api_jsonrpc.php"
channels:
  email:
    host: smtp.gmail.com
    port: 587
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Load: expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load on missing file: expected error")
	}
}
