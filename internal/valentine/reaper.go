package valentine

import (
	"context"
	"log/slog"
	"time"
)

// CleanupCallback is called for every session the reaper closes.
type CleanupCallback func(key string)

// StartReaper runs a background goroutine that periodically closes
// sessions idle for longer than ttl. It stops when ctx is done.
func StartReaper(ctx context.Context, reg *Registry, interval, ttl time.Duration, onCleanup CleanupCallback) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session reaper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				reapIdle(reg, ttl, onCleanup)
			case <-ctx.Done():
				slog.Info("Session reaper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

func reapIdle(reg *Registry, ttl time.Duration, onCleanup CleanupCallback) {
	keys := reg.Sweep(ttl)
	if len(keys) == 0 {
		return
	}

	for _, key := range keys {
		slog.Debug("Session reaper closed idle session", "session_key", key)
		if onCleanup != nil {
			onCleanup(key)
		}
	}

	slog.Info("Session reaper cleanup completed", "cleaned", len(keys), "remaining", reg.Len())
}
