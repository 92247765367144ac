package notify

import (
	"context"

	"go.uber.org/multierr"
)

// Notifier delivers a watchdog alert. Sends are best-effort: the monitor
// never blocks a reboot decision on a failed notification.
type Notifier interface {
	Send(ctx context.Context, title, text string) error
}

type Multi []Notifier

func (m Multi) Send(ctx context.Context, title, text string) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, title, text))
	}
	return err
}
