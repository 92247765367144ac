package probe

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"time"
)

// PingChecker shells out to the platform ping binary for a single packet.
// Raw ICMP sockets need elevated privileges on both Windows and Linux, so the
// OS tool is the pragmatic collaborator here.
type PingChecker struct {
	Timeout time.Duration
}

func NewPingChecker(timeout time.Duration) *PingChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PingChecker{Timeout: timeout}
}

func (p *PingChecker) Check(ctx context.Context, host string) CheckResult {
	// small grace on top of the ping deadline so the tool reports the
	// timeout itself instead of being killed mid-write
	cctx, cancel := context.WithTimeout(ctx, p.Timeout+2*time.Second)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		ms := strconv.Itoa(int(p.Timeout / time.Millisecond))
		cmd = exec.CommandContext(cctx, "ping", "-n", "1", "-w", ms, host)
	} else {
		s := strconv.Itoa(int(p.Timeout / time.Second))
		cmd = exec.CommandContext(cctx, "ping", "-c", "1", "-W", s, host)
	}

	start := time.Now()
	err := cmd.Run()
	latency := time.Since(start).Seconds() * 1000
	if err != nil {
		return CheckResult{Success: false, LatencyMS: latency, Message: "ping " + host + ": " + err.Error()}
	}
	return CheckResult{Success: true, LatencyMS: latency, Message: "ping ok"}
}
