package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

type contextKey int

const tabKey contextKey = iota

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTab annotates the logger with the tab id, skipping the field
// when the context already carries the same tab marker.
func WithTab(ctx context.Context, tabID schema.TabID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if tabID != 0 {
		if current, ok := ctx.Value(tabKey).(schema.TabID); ok && current == tabID {
			return log
		}
		log = log.With("tab", tabID)
	}
	return log
}

// ContextWithTab stores the tab marker on the context for log
// de-duplication.
func ContextWithTab(ctx context.Context, tabID schema.TabID) context.Context {
	if ctx == nil || tabID == 0 {
		return ctx
	}
	return context.WithValue(ctx, tabKey, tabID)
}
