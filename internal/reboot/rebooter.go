package reboot

import (
	"context"
	"os/exec"
	"runtime"
)

// Rebooter issues the privileged OS restart command.
type Rebooter interface {
	Reboot(ctx context.Context) error
}

// OSRebooter runs the platform shutdown tool. On Windows the 10 second delay
// gives the remote operator a moment to see the notice before the session
// drops.
type OSRebooter struct{}

func (OSRebooter) Reboot(ctx context.Context) error {
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "shutdown", "/r", "/t", "10", "/c", "netwatchdog automatic restart")
	} else {
		cmd = exec.CommandContext(ctx, "shutdown", "-r", "now")
	}
	return cmd.Run()
}
