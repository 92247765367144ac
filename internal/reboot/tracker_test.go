package reboot

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestTracker(t *testing.T, maxReboots int, cooldown time.Duration) (*Tracker, *time.Time) {
	t.Helper()
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tr := NewTracker(filepath.Join(t.TempDir(), "reboot_count.json"), maxReboots, cooldown, zap.NewNop())
	tr.now = func() time.Time { return now }
	return tr, &now
}

func TestMayReboot_BudgetExhaustedRegardlessOfCooldown(t *testing.T) {
	tr, now := newTestTracker(t, 2, time.Hour)
	long := now.Add(-48 * time.Hour)
	tr.state = State{Count: 2, LastReboot: &long}

	if tr.MayReboot() {
		t.Fatalf("count == max must block reboot even with cooldown long past")
	}
}

func TestMayReboot_CooldownElapsedUnderBudget(t *testing.T) {
	tr, now := newTestTracker(t, 2, time.Hour)
	past := now.Add(-2 * time.Hour)
	tr.state = State{Count: 1, LastReboot: &past}

	if !tr.MayReboot() {
		t.Fatalf("want reboot permitted: under budget and cooldown elapsed")
	}
}

func TestMayReboot_WithinCooldown(t *testing.T) {
	tr, now := newTestTracker(t, 2, time.Hour)
	recent := now.Add(-10 * time.Minute)
	tr.state = State{Count: 1, LastReboot: &recent}

	if tr.MayReboot() {
		t.Fatalf("reboot inside cooldown window must be blocked")
	}
	if rem := tr.CooldownRemaining(); rem != 50*time.Minute {
		t.Fatalf("want 50m remaining, got %v", rem)
	}
}

func TestLoad_SelfHealsAfterCooldown(t *testing.T) {
	tr, _ := newTestTracker(t, 2, time.Hour)

	// persisted state from a run two hours ago
	old := `{"count":2,"last_reboot":"2026-08-24T10:00:00Z"}`
	if err := os.WriteFile(tr.Path, []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}

	st := tr.Load()
	if st.Count != 0 {
		t.Fatalf("want counter reset after cooldown, got %d", st.Count)
	}

	// the reset must be persisted, not just in memory
	data, err := os.ReadFile(tr.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == old {
		t.Fatalf("reset was not written back")
	}
}

func TestLoad_KeepsCountWithinCooldown(t *testing.T) {
	tr, _ := newTestTracker(t, 2, time.Hour)
	if err := os.WriteFile(tr.Path, []byte(`{"count":1,"last_reboot":"2026-08-24T11:30:00Z"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if st := tr.Load(); st.Count != 1 {
		t.Fatalf("count must survive a load inside the cooldown, got %d", st.Count)
	}
}

func TestLoad_IsIdempotent(t *testing.T) {
	tr, _ := newTestTracker(t, 2, time.Hour)
	if err := os.WriteFile(tr.Path, []byte(`{"count":1,"last_reboot":"2026-08-24T11:30:00Z"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	a := tr.Load()
	b := tr.Load()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("two loads without a reboot differ: %+v vs %+v", a, b)
	}
}

func TestLoad_CorruptFileFallsBackToZero(t *testing.T) {
	tr, _ := newTestTracker(t, 2, time.Hour)
	if err := os.WriteFile(tr.Path, []byte(`{not json`), 0o644); err != nil {
		t.Fatal(err)
	}
	st := tr.Load()
	if st.Count != 0 || st.LastReboot != nil {
		t.Fatalf("corrupt file should zero the state, got %+v", st)
	}
}

func TestRecord_IncrementsAndPersists(t *testing.T) {
	tr, now := newTestTracker(t, 2, time.Hour)
	tr.Load()

	st := tr.Record()
	if st.Count != 1 || st.LastReboot == nil || !st.LastReboot.Equal(*now) {
		t.Fatalf("record wrong: %+v", st)
	}

	// a fresh tracker sees the write
	tr2 := NewTracker(tr.Path, 2, time.Hour, zap.NewNop())
	tr2.now = tr.now
	if st := tr2.Load(); st.Count != 1 {
		t.Fatalf("persisted count not visible, got %d", st.Count)
	}
}

func TestReset_ZeroesAndPersists(t *testing.T) {
	tr, _ := newTestTracker(t, 2, time.Hour)
	tr.Load()
	tr.Record()
	tr.Record()

	st := tr.Reset()
	if st.Count != 0 || st.LastReboot != nil {
		t.Fatalf("reset wrong: %+v", st)
	}
	if !tr.MayReboot() {
		t.Fatalf("reboot should be permitted after manual reset")
	}
}

func TestPersistFailure_MemoryStaysAuthoritative(t *testing.T) {
	tr, _ := newTestTracker(t, 2, time.Hour)
	tr.Path = filepath.Join(tr.Path, "not", "writable", "state.json")

	st := tr.Record()
	if st.Count != 1 {
		t.Fatalf("in-memory count must advance despite write failure, got %d", st.Count)
	}
	if tr.Current().Count != 1 {
		t.Fatalf("current state lost after failed persist")
	}
}
