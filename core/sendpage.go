package core

import (
	"context"
	"errors"
	"fmt"

	"pkt.systems/webclip/internal/logx"
	"pkt.systems/webclip/schema"
)

// sendToPage delivers an envelope to the tab's page context. When the
// page has no listener yet, typically a tab opened before the
// extension was installed or last updated, the manifest's content
// scripts are injected, the page is given a short settle delay, and
// the send is retried exactly once. A failure on the retry propagates.
func (s *service) sendToPage(ctx context.Context, tabID schema.TabID, env schema.Envelope) (schema.Result, error) {
	res, err := s.pages.Send(ctx, tabID, env)
	if err == nil || !errors.Is(err, schema.ErrNoReceiver) {
		return res, err
	}
	log := logx.WithTab(ctx, tabID)
	log.Debug("no page listener, injecting content scripts", "action", env.Action)
	if s.manifest == nil {
		return schema.Result{}, fmt.Errorf("%w: no manifest source configured", schema.ErrInjectionFailed)
	}
	files, err := s.manifest.ContentScripts()
	if err != nil {
		return schema.Result{}, fmt.Errorf("%w: %v", schema.ErrInjectionFailed, err)
	}
	if err := s.pages.Inject(ctx, tabID, files); err != nil {
		log.Warn("content-script injection failed", "err", err)
		return schema.Result{}, fmt.Errorf("%w: %v", schema.ErrInjectionFailed, err)
	}
	settleSleep(s.cfg.SettleDelay)
	return s.pages.Send(ctx, tabID, env)
}
