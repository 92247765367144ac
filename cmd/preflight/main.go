// preflight sanity-checks the host before installing the watchdog as a
// service: config parses, the state file location is writable, the ping
// binary exists, and the reboot command is likely to be permitted.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/schwarzekatzer/netwatchdog/internal/config"
)

func main() {
	cfgPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		os.Exit(1)
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fail("config invalid: " + err.Error())
	}
	ok(fmt.Sprintf("config loaded: policy=%s interval=%ds threshold=%d max_reboots=%d",
		cfg.ProbePolicy, cfg.CheckIntervalSec, cfg.FailureThreshold, cfg.MaxReboots))

	if _, err := exec.LookPath("ping"); err != nil {
		fail("ping binary not found in PATH")
	}
	ok("ping binary present")

	if runtime.GOOS != "windows" {
		if _, err := exec.LookPath("shutdown"); err != nil {
			warn("shutdown binary not found; the reboot escalation will fail")
		} else {
			ok("shutdown binary present")
		}
		if os.Geteuid() != 0 {
			warn("not running as root; the reboot command will likely be denied")
		}
	}

	dir := filepath.Dir(cfg.StateFile)
	probe := filepath.Join(dir, ".netwatchdog_preflight")
	if err := os.WriteFile(probe, []byte("x"), 0o644); err != nil {
		fail("state file directory not writable: " + err.Error())
	}
	_ = os.Remove(probe)
	ok("state file location writable: " + cfg.StateFile)

	if cfg.SlackWebhook == "" {
		warn("slack_webhook empty; reboot alerts will only reach the log")
	} else {
		ok("slack webhook configured")
	}

	ok("preflight passed")
}
