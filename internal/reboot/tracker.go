package reboot

import (
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"
)

// State is the persisted reboot budget: how many reboots this watchdog has
// performed and when the last one happened.
type State struct {
	Count      int        `json:"count"`
	LastReboot *time.Time `json:"last_reboot"`
}

// Tracker owns the persisted counter file and decides whether a new reboot is
// permitted. All mutation happens on the monitor loop, so there is no locking
// here; the in-memory state stays authoritative if the disk write fails.
type Tracker struct {
	Path       string
	MaxReboots int
	Cooldown   time.Duration
	Logger     *zap.Logger

	now   func() time.Time
	state State
}

func NewTracker(path string, maxReboots int, cooldown time.Duration, logger *zap.Logger) *Tracker {
	return &Tracker{
		Path:       path,
		MaxReboots: maxReboots,
		Cooldown:   cooldown,
		Logger:     logger,
		now:        time.Now,
	}
}

// Load reads the counter file. A missing or corrupt file falls back to a
// zeroed state. If the cooldown has elapsed since the last reboot, the
// counter self-heals to zero and the reset is persisted immediately.
func (t *Tracker) Load() State {
	t.state = State{}

	data, err := os.ReadFile(t.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			t.Logger.Warn("reboot_state_read_error", zap.String("path", t.Path), zap.Error(err))
		}
		return t.state
	}
	if err := json.Unmarshal(data, &t.state); err != nil {
		t.Logger.Warn("reboot_state_corrupt", zap.String("path", t.Path), zap.Error(err))
		t.state = State{}
		return t.state
	}
	if t.state.Count < 0 {
		t.state.Count = 0
	}

	if t.state.LastReboot != nil && t.now().Sub(*t.state.LastReboot) > t.Cooldown && t.state.Count > 0 {
		t.Logger.Info("reboot_budget_reset_after_cooldown",
			zap.Int("previous_count", t.state.Count),
			zap.Time("last_reboot", *t.state.LastReboot),
		)
		t.state.Count = 0
		t.persist()
	}

	return t.state
}

// MayReboot is the budget gate: the count must be under the cap and the
// cooldown since the last reboot must have elapsed. It never mutates state,
// so an exhausted budget stays exhausted until Load or Reset.
func (t *Tracker) MayReboot() bool {
	if t.state.Count >= t.MaxReboots {
		return false
	}
	if t.state.LastReboot == nil {
		return true
	}
	return t.now().Sub(*t.state.LastReboot) > t.Cooldown
}

// CooldownRemaining reports how long until the cooldown expires; zero when no
// reboot has been recorded or the window already passed.
func (t *Tracker) CooldownRemaining() time.Duration {
	if t.state.LastReboot == nil {
		return 0
	}
	remaining := t.Cooldown - t.now().Sub(*t.state.LastReboot)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Record increments the counter and persists it. Callers must invoke this
// strictly before issuing the OS reboot command, so a crash mid-reboot still
// reflects the attempt.
func (t *Tracker) Record() State {
	now := t.now()
	t.state.Count++
	t.state.LastReboot = &now
	t.persist()
	return t.state
}

// Reset zeroes the budget on explicit operator request.
func (t *Tracker) Reset() State {
	t.state = State{}
	t.persist()
	t.Logger.Info("reboot_budget_reset_manual")
	return t.state
}

// Current returns the in-memory state.
func (t *Tracker) Current() State {
	return t.state
}

func (t *Tracker) persist() {
	data, err := json.Marshal(t.state)
	if err == nil {
		err = os.WriteFile(t.Path, data, 0o644)
	}
	if err != nil {
		// not fatal: memory stays authoritative for this process lifetime
		t.Logger.Warn("reboot_state_write_error", zap.String("path", t.Path), zap.Error(err))
	}
}
