package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/schwarzekatzer/netwatchdog/internal/history"
	"github.com/schwarzekatzer/netwatchdog/internal/notify"
	"github.com/schwarzekatzer/netwatchdog/internal/probe"
	"github.com/schwarzekatzer/netwatchdog/internal/procscan"
	"github.com/schwarzekatzer/netwatchdog/internal/reboot"
)

// State names of the watchdog cycle.
const (
	StateIdle          = "idle"           // no remote-access process detected
	StateChecking      = "checking"       // remote session active, connectivity healthy
	StateDegraded      = "degraded"       // one or more consecutive failed probes
	StateRebootPending = "reboot_pending" // escalation triggered, reboot being issued
	StateRebooted      = "rebooted"       // terminal for this process lifetime
)

// Prober runs one battery of connectivity checks.
type Prober interface {
	Probe(ctx context.Context) probe.Report
}

// Status is the read-only snapshot served to the observer surface.
type Status struct {
	Enabled             bool          `json:"enabled"`
	State               string        `json:"state"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
	RemoteActive        bool          `json:"remote_active"`
	RemoteProcesses     []string      `json:"remote_processes,omitempty"`
	LastCheck           *time.Time    `json:"last_check,omitempty"`
	LastReport          *probe.Report `json:"last_report,omitempty"`
	Budget              reboot.State  `json:"budget"`
	MaxReboots          int           `json:"max_reboots"`
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdResetBudget
)

// Monitor owns all watchdog state. One goroutine (Run) performs every scan,
// probe and decision; the API layer reaches it only through Status snapshots
// and the non-blocking command channel.
type Monitor struct {
	Logger    *zap.Logger
	Scanner   procscan.Scanner
	Prober    Prober
	Tracker   *reboot.Tracker
	Rebooter  reboot.Rebooter
	Notifier  notify.Notifier
	History   *history.Ring
	Interval  time.Duration
	Threshold int
	Known     []string

	now func() time.Time

	// loop-owned, never touched outside Run/cycle
	enabled  bool
	failures int

	cmds chan commandKind

	mu     sync.RWMutex
	status Status
}

func New(
	logger *zap.Logger,
	scanner procscan.Scanner,
	prober Prober,
	tracker *reboot.Tracker,
	rebooter reboot.Rebooter,
	notifier notify.Notifier,
	hist *history.Ring,
	interval time.Duration,
	threshold int,
	known []string,
) *Monitor {
	if threshold < 1 {
		threshold = 3
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &Monitor{
		Logger:    logger,
		Scanner:   scanner,
		Prober:    prober,
		Tracker:   tracker,
		Rebooter:  rebooter,
		Notifier:  notifier,
		History:   hist,
		Interval:  interval,
		Threshold: threshold,
		Known:     known,
		now:       time.Now,
		enabled:   true,
		cmds:      make(chan commandKind, 8),
	}
	m.status = Status{
		Enabled:    true,
		State:      StateIdle,
		Budget:     tracker.Current(),
		MaxReboots: tracker.MaxReboots,
	}
	return m
}

// Start, Stop and ResetBudget hand control requests to the loop without
// blocking the caller. A full queue drops the request; the operator can retry.
func (m *Monitor) Start()       { m.send(cmdStart) }
func (m *Monitor) Stop()        { m.send(cmdStop) }
func (m *Monitor) ResetBudget() { m.send(cmdResetBudget) }

func (m *Monitor) send(c commandKind) {
	select {
	case m.cmds <- c:
	default:
		m.Logger.Warn("monitor_command_dropped", zap.Int("cmd", int(c)))
	}
}

// Status returns the latest snapshot.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// TestNow runs one probe battery and process scan outside the loop cadence.
// It reads nothing but collaborator state and never touches the failure
// counter, so it is safe from any goroutine.
func (m *Monitor) TestNow(ctx context.Context) (probe.Report, []string) {
	_, matched, err := m.Scanner.Scan(ctx, m.Known)
	if err != nil {
		m.Logger.Warn("manual_scan_error", zap.Error(err))
	}
	rep := m.Prober.Probe(ctx)
	m.History.Append(history.Entry{Time: m.now().UTC(), Kind: "probe", Detail: "manual test", Report: &rep})
	m.Logger.Info("manual_test",
		zap.Bool("overall_ok", rep.OK),
		zap.Strings("remote_processes", matched),
	)
	return rep, matched
}

// Run is the watchdog loop: immediate first cycle, then one cycle per tick
// until the context is cancelled or a reboot was issued. Cancellation never
// aborts an in-flight cycle, it just stops scheduling the next one.
func (m *Monitor) Run(ctx context.Context) {
	m.Logger.Info("monitor_started",
		zap.Duration("interval", m.Interval),
		zap.Int("failure_threshold", m.Threshold),
	)

	if m.cycle(ctx) {
		return
	}

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info("monitor_stopped")
			return
		case c := <-m.cmds:
			m.apply(c)
		case <-ticker.C:
			if !m.enabled {
				continue
			}
			if m.cycle(ctx) {
				return
			}
		}
	}
}

func (m *Monitor) apply(c commandKind) {
	switch c {
	case cmdStart:
		if !m.enabled {
			m.enabled = true
			m.Logger.Info("monitor_enabled")
		}
	case cmdStop:
		if m.enabled {
			m.enabled = false
			m.failures = 0
			m.setStatus(func(s *Status) {
				s.Enabled = false
				s.State = StateIdle
				s.ConsecutiveFailures = 0
			})
			m.Logger.Info("monitor_disabled")
		}
	case cmdResetBudget:
		st := m.Tracker.Reset()
		m.setStatus(func(s *Status) { s.Budget = st })
	}
	m.setStatus(func(s *Status) { s.Enabled = m.enabled })
}

// cycle runs one scan-probe-decide pass. It returns true when a reboot was
// issued, which ends the loop for this process lifetime. Panics are contained
// here so a bad cycle costs one tick, not the process.
func (m *Monitor) cycle(ctx context.Context) (rebooted bool) {
	defer func() {
		if r := recover(); r != nil {
			m.Logger.Error("monitor_cycle_panic", zap.Any("panic", r))
		}
	}()

	now := m.now().UTC()

	active, matched, err := m.Scanner.Scan(ctx, m.Known)
	if err != nil {
		// treated like "nothing detected": skip probing, keep the loop alive
		m.Logger.Warn("process_scan_error", zap.Error(err))
	}

	if !active {
		if m.failures != 0 || m.Status().State != StateIdle {
			m.History.Append(history.Entry{Time: now, Kind: "state", Detail: "idle: no remote software detected"})
		}
		m.failures = 0
		m.setStatus(func(s *Status) {
			s.State = StateIdle
			s.ConsecutiveFailures = 0
			s.RemoteActive = false
			s.RemoteProcesses = nil
			s.LastCheck = &now
		})
		return false
	}

	m.Logger.Info("remote_software_detected", zap.Strings("processes", matched))

	rep := m.Prober.Probe(ctx)
	m.History.Append(history.Entry{Time: now, Kind: "probe", Report: &rep})

	if rep.OK {
		if m.failures > 0 {
			m.Logger.Info("connectivity_recovered", zap.Int("after_failures", m.failures))
			m.History.Append(history.Entry{Time: now, Kind: "state", Detail: "connectivity recovered"})
		}
		m.failures = 0
		m.setStatus(func(s *Status) {
			s.State = StateChecking
			s.ConsecutiveFailures = 0
			s.RemoteActive = true
			s.RemoteProcesses = matched
			s.LastCheck = &now
			s.LastReport = &rep
		})
		return false
	}

	m.failures++
	diagnosis := rep.Explain()
	m.Logger.Warn("connectivity_check_failed",
		zap.Int("consecutive_failures", m.failures),
		zap.String("diagnosis", diagnosis),
	)

	m.setStatus(func(s *Status) {
		s.State = StateDegraded
		s.ConsecutiveFailures = m.failures
		s.RemoteActive = true
		s.RemoteProcesses = matched
		s.LastCheck = &now
		s.LastReport = &rep
	})

	if m.failures < m.Threshold {
		return false
	}

	if !m.Tracker.MayReboot() {
		if m.Tracker.Current().Count >= m.Tracker.MaxReboots {
			m.Logger.Error("reboot_budget_exhausted",
				zap.Int("count", m.Tracker.Current().Count),
				zap.Int("max_reboots", m.Tracker.MaxReboots),
				zap.String("diagnosis", diagnosis),
			)
		} else {
			m.Logger.Info("reboot_cooldown_active",
				zap.Duration("remaining", m.Tracker.CooldownRemaining()),
			)
		}
		// counter intentionally not reset: the degradation is still live
		return false
	}

	m.setStatus(func(s *Status) { s.State = StateRebootPending })
	m.History.Append(history.Entry{Time: now, Kind: "reboot", Detail: diagnosis})

	if m.Notifier != nil {
		nctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_ = m.Notifier.Send(nctx, "netwatchdog: rebooting host",
			fmt.Sprintf("consecutive failures: %d\ndiagnosis: %s\nreboot %d of %d",
				m.failures, diagnosis, m.Tracker.Current().Count+1, m.Tracker.MaxReboots))
		cancel()
	}

	// persist the attempt before issuing the command so a crash mid-reboot
	// still counts against the budget
	st := m.Tracker.Record()
	m.Logger.Error("issuing_reboot",
		zap.Int("reboot_count", st.Count),
		zap.Int("max_reboots", m.Tracker.MaxReboots),
		zap.String("diagnosis", diagnosis),
	)

	if err := m.Rebooter.Reboot(ctx); err != nil {
		// budget already spent; surface for manual intervention, do not retry
		m.Logger.Error("reboot_command_failed", zap.Error(err))
	}

	m.setStatus(func(s *Status) {
		s.State = StateRebooted
		s.Enabled = false
		s.Budget = st
	})
	return true
}

func (m *Monitor) setStatus(mut func(*Status)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mut(&m.status)
	m.status.Budget = m.Tracker.Current()
}
