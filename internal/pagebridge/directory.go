package pagebridge

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// Handler answers envelopes inside one page context.
type Handler interface {
	HandlePage(ctx context.Context, env schema.Envelope) (schema.Result, bool)
}

// Provisioner builds a page handler for a tab; the loopback directory
// calls it when the coordinator injects content scripts.
type Provisioner func(tabID schema.TabID) (Handler, error)

// Directory is an in-process page directory: handlers stand in for
// page contexts and injection provisions one. It mirrors the browser
// bridge's contract, ErrNoReceiver included, so coordinator behavior
// can be exercised without a browser.
type Directory struct {
	provision Provisioner
	log       pslog.Logger

	mu       sync.Mutex
	handlers map[schema.TabID]Handler
}

// NewDirectory constructs an empty directory.
func NewDirectory(provision Provisioner, logger pslog.Logger) *Directory {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Directory{
		provision: provision,
		log:       logger,
		handlers:  map[schema.TabID]Handler{},
	}
}

// Attach registers a page handler for a tab.
func (d *Directory) Attach(tabID schema.TabID, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[tabID] = handler
}

// Detach drops the tab's handler, as when its page navigates away.
func (d *Directory) Detach(tabID schema.TabID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, tabID)
}

// Send delivers an envelope to the tab's handler.
func (d *Directory) Send(ctx context.Context, tabID schema.TabID, env schema.Envelope) (schema.Result, error) {
	d.mu.Lock()
	handler := d.handlers[tabID]
	d.mu.Unlock()
	if handler == nil {
		return schema.Result{}, schema.ErrNoReceiver
	}
	res, handled := handler.HandlePage(ctx, env)
	if !handled {
		return schema.Fail(errors.New("page ignored action " + string(env.Action))), nil
	}
	return res, nil
}

// Inject provisions a handler for the tab via the Provisioner.
func (d *Directory) Inject(ctx context.Context, tabID schema.TabID, files []string) error {
	if d.provision == nil {
		return errors.New("no page provisioner configured")
	}
	handler, err := d.provision(tabID)
	if err != nil {
		return err
	}
	d.Attach(tabID, handler)
	d.log.Debug("page handler provisioned", "tab", tabID, "files", len(files))
	return nil
}
