package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config drives the whole watchdog. It is loaded from a JSON file (created
// with defaults on first run) and individual fields can be overridden from
// the environment, which is what the service wrapper uses.
type Config struct {
	MaxReboots        int      `json:"max_reboots"`
	CheckIntervalSec  int      `json:"check_interval_seconds"`
	RebootCooldownSec int      `json:"reboot_cooldown_seconds"`
	TestHosts         []string `json:"test_hosts"`
	RemoteProcesses   []string `json:"remote_software_processes"`
	PingTimeoutSec    int      `json:"ping_timeout_seconds"`
	FailureThreshold  int      `json:"connection_failures_threshold"`

	// ProbePolicy selects the aggregation policy: "full" requires pings AND
	// (DNS or HTTP) with a 0.5 ping threshold, "simple" is pings OR DNS with
	// 0.3 and no HTTP probe at all.
	ProbePolicy string `json:"probe_policy"`
	HTTPTestURL string `json:"http_test_url"`
	DNSTestHost string `json:"dns_test_host"`

	StateFile    string `json:"state_file"`
	LogDir       string `json:"log_dir"`
	Addr         string `json:"api_addr"`
	SlackWebhook string `json:"slack_webhook,omitempty"`
}

const (
	PolicyFull   = "full"
	PolicySimple = "simple"

	// minCheckInterval is the floor for user-edited intervals; anything
	// tighter just hammers ping/DNS for no benefit.
	minCheckInterval = 10
)

func Default() Config {
	return Config{
		MaxReboots:        2,
		CheckIntervalSec:  30,
		RebootCooldownSec: 3600,
		TestHosts:         []string{"8.8.8.8", "1.1.1.1", "google.com"},
		RemoteProcesses: []string{
			"teamviewer.exe",
			"anydesk.exe",
			"chrome_remote_desktop.exe",
			"mstsc.exe",
			"rdpclip.exe",
		},
		PingTimeoutSec:   5,
		FailureThreshold: 3,
		ProbePolicy:      PolicyFull,
		HTTPTestURL:      "http://www.google.com",
		DNSTestHost:      "google.com",
		StateFile:        "reboot_count.json",
		LogDir:           "logs",
		Addr:             "127.0.0.1:8090",
	}
}

// Load reads path if it exists, otherwise writes the defaults there so the
// operator has something to edit. Env overrides are applied on top either way.
func Load(path string) (Config, error) {
	cfg := Default()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if os.IsNotExist(err) && path != "" {
		if data, err := json.MarshalIndent(Default(), "", "    "); err == nil {
			_ = os.WriteFile(path, data, 0o644)
		}
	}

	applyEnv(&cfg)

	if cfg.CheckIntervalSec < minCheckInterval {
		cfg.CheckIntervalSec = minCheckInterval
	}

	return cfg, cfg.Validate()
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("NETWATCHDOG_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("NETWATCHDOG_LOG_DIR"); v != "" {
		cfg.LogDir = v
	}
	if v := os.Getenv("NETWATCHDOG_STATE_FILE"); v != "" {
		cfg.StateFile = v
	}
	if v := os.Getenv("NETWATCHDOG_SLACK_WEBHOOK"); v != "" {
		cfg.SlackWebhook = v
	}
	if v := os.Getenv("NETWATCHDOG_POLICY"); v != "" {
		cfg.ProbePolicy = v
	}
	if v := os.Getenv("NETWATCHDOG_TEST_HOSTS"); v != "" {
		cfg.TestHosts = splitList(v)
	}
	if v := os.Getenv("NETWATCHDOG_REMOTE_PROCESSES"); v != "" {
		cfg.RemoteProcesses = splitList(v)
	}
	if n, ok := envInt("NETWATCHDOG_MAX_REBOOTS"); ok && n >= 0 {
		cfg.MaxReboots = n
	}
	if n, ok := envInt("NETWATCHDOG_CHECK_INTERVAL_S"); ok && n > 0 {
		cfg.CheckIntervalSec = n
	}
	if n, ok := envInt("NETWATCHDOG_COOLDOWN_S"); ok && n > 0 {
		cfg.RebootCooldownSec = n
	}
	if n, ok := envInt("NETWATCHDOG_PING_TIMEOUT_S"); ok && n > 0 {
		cfg.PingTimeoutSec = n
	}
	if n, ok := envInt("NETWATCHDOG_FAILURE_THRESHOLD"); ok && n > 0 {
		cfg.FailureThreshold = n
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate reports every problem at once rather than the first one.
func (c Config) Validate() error {
	var err error
	if c.MaxReboots < 0 {
		err = multierr.Append(err, fmt.Errorf("max_reboots must be >= 0, got %d", c.MaxReboots))
	}
	if c.FailureThreshold < 1 {
		err = multierr.Append(err, fmt.Errorf("connection_failures_threshold must be >= 1, got %d", c.FailureThreshold))
	}
	if len(c.TestHosts) == 0 {
		err = multierr.Append(err, fmt.Errorf("test_hosts must not be empty"))
	}
	if len(c.RemoteProcesses) == 0 {
		err = multierr.Append(err, fmt.Errorf("remote_software_processes must not be empty"))
	}
	if c.ProbePolicy != PolicyFull && c.ProbePolicy != PolicySimple {
		err = multierr.Append(err, fmt.Errorf("probe_policy must be %q or %q, got %q", PolicyFull, PolicySimple, c.ProbePolicy))
	}
	if c.PingTimeoutSec >= c.CheckIntervalSec {
		err = multierr.Append(err, fmt.Errorf("ping_timeout_seconds (%d) must be shorter than check_interval_seconds (%d)", c.PingTimeoutSec, c.CheckIntervalSec))
	}
	return err
}

func (c Config) CheckInterval() time.Duration { return time.Duration(c.CheckIntervalSec) * time.Second }
func (c Config) RebootCooldown() time.Duration {
	return time.Duration(c.RebootCooldownSec) * time.Second
}
func (c Config) PingTimeout() time.Duration { return time.Duration(c.PingTimeoutSec) * time.Second }
