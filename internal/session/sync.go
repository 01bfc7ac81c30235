package session

import (
	"context"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// SyncWindow bounds how long a session push keeps retrying before
// giving up silently.
const SyncWindow = 5 * time.Second

// SyncInterval is the fixed delay between push attempts. Delivery
// timing across contexts is not guaranteed, so the sender retries
// until the relay acknowledges.
const SyncInterval = 500 * time.Millisecond

// Pusher delivers one session push attempt and reports whether the
// relay acknowledged it.
type Pusher interface {
	Push(ctx context.Context, session schema.Session) (acked bool, err error)
}

// PushUntilAcked retries the push on a fixed interval inside a bounded
// wall-clock window. It reports whether an ack arrived; expiry of the
// window is silent by design.
func PushUntilAcked(ctx context.Context, pusher Pusher, session schema.Session, logger pslog.Logger) bool {
	return pushUntilAcked(ctx, pusher, session, SyncInterval, SyncWindow, logger)
}

func pushUntilAcked(ctx context.Context, pusher Pusher, session schema.Session, interval, window time.Duration, logger pslog.Logger) bool {
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	deadline := time.Now().Add(window)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		acked, err := pusher.Push(ctx, session)
		if err != nil {
			logger.Debug("session push attempt failed", "err", err)
		}
		if acked {
			logger.Debug("session push acked")
			return true
		}
		if !time.Now().Before(deadline) {
			logger.Debug("session push window expired")
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
