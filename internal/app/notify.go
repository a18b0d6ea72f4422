package app

import (
	"context"

	"github.com/vk/devdag/internal/notify"
)

// notifier returns the publisher for result events, dialing the server on
// first use. Notifications are best effort: a server that cannot be reached
// is logged and the command carries on without one.
func (a *App) notifier(ctx context.Context) *notify.Publisher {
	if a.publisher != nil || a.cfg.NotifyURL == "" || a.notifyFailed {
		return a.publisher
	}
	p, err := notify.Dial(ctx, notify.Options{URL: a.cfg.NotifyURL})
	if err != nil {
		a.logger.Warn("Notification server unavailable, continuing without it.", "url", a.cfg.NotifyURL, "error", err)
		a.notifyFailed = true
		return nil
	}
	a.publisher = p
	a.closers = append(a.closers, func(context.Context) error {
		p.Close()
		return nil
	})
	return p
}
