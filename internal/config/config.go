package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the monitor configuration.
const (
	DefaultSchedule       = "0 8 * * *" // daily report at 08:00
	DefaultHTTPPort       = 8080
	DefaultStreamInterval = 5 * time.Second
	DefaultStateFile      = "vm_states.json"
	DefaultRetention      = 7 * 24 * time.Hour
	DefaultRecoveryWindow = time.Hour
	DefaultTransitionCap  = 5
	DefaultZabbixTimeout  = 30 * time.Second
)

// Config is the root of the YAML configuration file.
type Config struct {
	Collector  CollectorConfig  `yaml:"collector"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	State      StateConfig      `yaml:"state"`
	Power      PowerConfig      `yaml:"power"`
	Dispatch   DispatchConfig   `yaml:"dispatch"`
	Channels   ChannelsConfig   `yaml:"channels"`

	// Schedule is the cron expression that triggers a reporting cycle.
	Schedule string `yaml:"schedule"`

	HTTP HTTPConfig `yaml:"http"`
}

// CollectorConfig selects and configures the metric source.
type CollectorConfig struct {
	// Type is one of: zabbix | node_exporter.
	Type string `yaml:"type"`

	Zabbix ZabbixConfig `yaml:"zabbix"`

	// Hosts lists the scrape targets for the node_exporter collector.
	Hosts []HostTarget `yaml:"hosts"`
}

// ZabbixConfig holds the Zabbix JSON-RPC endpoint and credentials.
type ZabbixConfig struct {
	// URL is the api_jsonrpc.php endpoint.
	URL string `yaml:"url"`

	// UserEnv and PasswordEnv name the environment variables holding the
	// API credentials.
	UserEnv     string `yaml:"user_env"`
	PasswordEnv string `yaml:"password_env"`

	// Timeout bounds each API call. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// User returns the API username resolved from the environment.
func (z ZabbixConfig) User() string { return envOrEmpty(z.UserEnv) }

// Password returns the API password resolved from the environment.
func (z ZabbixConfig) Password() string { return envOrEmpty(z.PasswordEnv) }

// HostTarget is one node_exporter scrape target.
type HostTarget struct {
	// ID is the stable identity persisted across cycles.
	ID string `yaml:"id"`

	Name     string `yaml:"name"`
	Hostname string `yaml:"hostname"`
	Address  string `yaml:"address"`

	// Endpoint is the full metrics URL, e.g. "http://10.0.1.10:9100/metrics".
	Endpoint string `yaml:"endpoint"`
}

// ThresholdsConfig holds per-metric warning/critical boundaries.
type ThresholdsConfig struct {
	CPU    LimitConfig `yaml:"cpu"`
	Memory LimitConfig `yaml:"memory"`
	Disk   LimitConfig `yaml:"disk"`
}

// LimitConfig is one warning/critical pair.
type LimitConfig struct {
	Warning  float64 `yaml:"warning"`
	Critical float64 `yaml:"critical"`
}

// StateConfig controls the persisted previous-cycle state.
type StateConfig struct {
	// Path is the JSON state file location. Default: vm_states.json.
	Path string `yaml:"path"`

	// Retention prunes entries not observed within this window. Default: 168h.
	Retention time.Duration `yaml:"retention"`
}

// PowerConfig tunes power-change detection.
type PowerConfig struct {
	// RecoveryWindow separates "recovered" from a plain "powered on":
	// a VM offline longer than this window classifies as recovered.
	// Default: 1h.
	RecoveryWindow time.Duration `yaml:"recovery_window"`
}

// DispatchConfig tunes notification delivery.
type DispatchConfig struct {
	// TransitionCap limits transition sub-messages per cycle. Default: 5.
	TransitionCap int `yaml:"transition_cap"`
}

// ChannelsConfig configures the notification channels. Absent sections
// leave the channel unconfigured.
type ChannelsConfig struct {
	Email    *EmailConfig    `yaml:"email"`
	Line     *LineConfig     `yaml:"line"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`

	To  []string `yaml:"to"`
	Cc  []string `yaml:"cc"`
	Bcc []string `yaml:"bcc"`

	// UsernameEnv and PasswordEnv name the environment variables holding
	// the SMTP credentials.
	UsernameEnv string `yaml:"username_env"`
	PasswordEnv string `yaml:"password_env"`

	// Timeout bounds the SMTP conversation. Default: 30s.
	Timeout time.Duration `yaml:"timeout"`
}

// Username returns the SMTP username resolved from the environment.
func (e EmailConfig) Username() string { return envOrEmpty(e.UsernameEnv) }

// Password returns the SMTP password resolved from the environment.
func (e EmailConfig) Password() string { return envOrEmpty(e.PasswordEnv) }

// LineConfig configures the LINE Messaging API push channel.
type LineConfig struct {
	// TokenEnv names the environment variable holding the channel access token.
	TokenEnv string `yaml:"token_env"`

	// ToEnv names the environment variable holding the recipient user ID.
	ToEnv string `yaml:"to_env"`
}

// Token returns the channel access token resolved from the environment.
func (l LineConfig) Token() string { return envOrEmpty(l.TokenEnv) }

// To returns the recipient user ID resolved from the environment.
func (l LineConfig) To() string { return envOrEmpty(l.ToEnv) }

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv names the environment variable that holds the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string { return envOrEmpty(w.URLEnv) }

// HTTPConfig configures the read-only status API and WebSocket stream.
type HTTPConfig struct {
	// Port is the listen port. Default: 8080. Zero disables the server.
	Port int `yaml:"port"`

	// StreamInterval is the WebSocket broadcast period. Default: 5s.
	StreamInterval time.Duration `yaml:"stream_interval"`
}

// Load reads and parses the config file at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Collector: CollectorConfig{
			Type:   "zabbix",
			Zabbix: ZabbixConfig{Timeout: DefaultZabbixTimeout},
		},
		Thresholds: ThresholdsConfig{
			CPU:    LimitConfig{Warning: 70, Critical: 85},
			Memory: LimitConfig{Warning: 75, Critical: 90},
			Disk:   LimitConfig{Warning: 80, Critical: 90},
		},
		State: StateConfig{
			Path:      DefaultStateFile,
			Retention: DefaultRetention,
		},
		Power:    PowerConfig{RecoveryWindow: DefaultRecoveryWindow},
		Dispatch: DispatchConfig{TransitionCap: DefaultTransitionCap},
		Schedule: DefaultSchedule,
		HTTP: HTTPConfig{
			Port:           DefaultHTTPPort,
			StreamInterval: DefaultStreamInterval,
		},
	}
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	switch cfg.Collector.Type {
	case "zabbix", "node_exporter":
	default:
		return fmt.Errorf("collector.type %q unknown: want zabbix|node_exporter", cfg.Collector.Type)
	}
	if cfg.Collector.Type == "zabbix" && cfg.Collector.Zabbix.URL == "" {
		return fmt.Errorf("collector.zabbix.url is required")
	}
	if cfg.Collector.Type == "node_exporter" && len(cfg.Collector.Hosts) == 0 {
		return fmt.Errorf("collector.hosts must list at least one target")
	}
	for i, h := range cfg.Collector.Hosts {
		if h.ID == "" || h.Endpoint == "" {
			return fmt.Errorf("collector.hosts[%d]: id and endpoint are required", i)
		}
	}

	for _, lim := range []struct {
		name string
		l    LimitConfig
	}{
		{"cpu", cfg.Thresholds.CPU},
		{"memory", cfg.Thresholds.Memory},
		{"disk", cfg.Thresholds.Disk},
	} {
		if lim.l.Warning < 0 || lim.l.Critical > 100 {
			return fmt.Errorf("thresholds.%s out of range [0, 100]", lim.name)
		}
		if lim.l.Warning > lim.l.Critical {
			return fmt.Errorf("thresholds.%s: warning %.1f exceeds critical %.1f",
				lim.name, lim.l.Warning, lim.l.Critical)
		}
	}

	if cfg.State.Retention <= 0 {
		return fmt.Errorf("state.retention must be positive")
	}
	if cfg.Power.RecoveryWindow <= 0 {
		return fmt.Errorf("power.recovery_window must be positive")
	}
	if cfg.Dispatch.TransitionCap < 0 {
		return fmt.Errorf("dispatch.transition_cap must not be negative")
	}
	if cfg.HTTP.Port < 0 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d is out of range [0, 65535]", cfg.HTTP.Port)
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		return fmt.Errorf("schedule must not be empty")
	}

	for i, wh := range cfg.Channels.Webhooks {
		switch wh.Type {
		case "slack", "http":
		default:
			return fmt.Errorf("channels.webhooks[%d].type %q unknown: want slack|http", i, wh.Type)
		}
	}
	if e := cfg.Channels.Email; e != nil {
		if e.Host == "" || e.Port <= 0 {
			return fmt.Errorf("channels.email: host and port are required")
		}
		if len(e.To) == 0 && len(e.Cc) == 0 && len(e.Bcc) == 0 {
			return fmt.Errorf("channels.email: at least one recipient is required")
		}
	}

	return nil
}

func envOrEmpty(key string) string {
	if key == "" {
		return ""
	}
	return os.Getenv(key)
}
