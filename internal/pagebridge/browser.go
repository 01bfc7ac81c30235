package pagebridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/chromedp/chromedp"

	"pkt.systems/pslog"
	"pkt.systems/webclip/schema"
)

// deliverFn is the page-global function injected content scripts
// register to receive coordinator envelopes.
const deliverFn = "__webclipDeliver"

// Config configures the browser attachment.
type Config struct {
	// Endpoint is a DevTools websocket URL; when set the bridge
	// attaches to a running browser instead of launching one.
	Endpoint string
	// ExecPath overrides the browser binary for local launch.
	ExecPath string
	Headless bool
	// ScriptDir is where injectable content-script files live.
	ScriptDir string
	Logger    pslog.Logger
}

// Browser drives page contexts over the DevTools protocol. It
// implements the coordinator's page directory and its viewport
// screenshot source.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	scriptDir   string
	log         pslog.Logger

	mu     sync.Mutex
	tabs   map[schema.TabID]*browserTab
	nextID schema.TabID
}

type browserTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Connect attaches to or launches a browser.
func Connect(ctx context.Context, cfg Config) (*Browser, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.Ctx(ctx)
	}
	var allocCtx context.Context
	var cancel context.CancelFunc
	if cfg.Endpoint != "" {
		logger.Info("attaching to browser", "endpoint", cfg.Endpoint)
		allocCtx, cancel = chromedp.NewRemoteAllocator(context.Background(), cfg.Endpoint)
	} else {
		opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
		opts = append(opts,
			chromedp.Flag("headless", cfg.Headless),
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
		)
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}
		logger.Info("launching browser", "headless", cfg.Headless)
		allocCtx, cancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return &Browser{
		allocCtx:    allocCtx,
		allocCancel: cancel,
		scriptDir:   cfg.ScriptDir,
		log:         logger,
		tabs:        map[schema.TabID]*browserTab{},
	}, nil
}

// Close tears down every tab and the browser attachment.
func (b *Browser) Close() {
	b.mu.Lock()
	tabs := b.tabs
	b.tabs = map[schema.TabID]*browserTab{}
	b.mu.Unlock()
	for _, t := range tabs {
		t.cancel()
	}
	b.allocCancel()
}

// OpenTab navigates a fresh tab to the URL and returns its id.
func (b *Browser) OpenTab(ctx context.Context, pageURL string) (schema.TabID, error) {
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	if err := chromedp.Run(tabCtx, chromedp.Navigate(pageURL)); err != nil {
		cancel()
		return 0, fmt.Errorf("navigate: %w", err)
	}
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.tabs[id] = &browserTab{ctx: tabCtx, cancel: cancel}
	b.mu.Unlock()
	b.log.Debug("tab opened", "tab", id, "url", pageURL)
	return id, nil
}

// CloseTab closes the tab. Closing an unknown tab is a no-op.
func (b *Browser) CloseTab(tabID schema.TabID) {
	b.mu.Lock()
	t, ok := b.tabs[tabID]
	delete(b.tabs, tabID)
	b.mu.Unlock()
	if ok {
		t.cancel()
		b.log.Debug("tab closed", "tab", tabID)
	}
}

func (b *Browser) tab(tabID schema.TabID) (*browserTab, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tabs[tabID]
	if !ok {
		return nil, schema.ErrInvalidTab
	}
	return t, nil
}

// Send delivers an envelope to the page's registered handler. Pages
// without a handler report schema.ErrNoReceiver so the coordinator can
// inject and retry.
func (b *Browser) Send(ctx context.Context, tabID schema.TabID, env schema.Envelope) (schema.Result, error) {
	t, err := b.tab(tabID)
	if err != nil {
		return schema.Result{}, err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return schema.Result{}, err
	}
	expr := fmt.Sprintf(
		`(() => { if (typeof window.%s !== "function") { return null; } return JSON.stringify(window.%s(%s)); })()`,
		deliverFn, deliverFn, string(data),
	)
	var encoded string
	if err := chromedp.Run(t.ctx, chromedp.Evaluate(expr, &encoded)); err != nil {
		return schema.Result{}, fmt.Errorf("evaluate: %w", err)
	}
	if encoded == "" {
		return schema.Result{}, schema.ErrNoReceiver
	}
	var res schema.Result
	if err := json.Unmarshal([]byte(encoded), &res); err != nil {
		return schema.Result{}, fmt.Errorf("decode page reply: %w", err)
	}
	return res, nil
}

// Inject evaluates the content-script files in the page, in manifest
// order.
func (b *Browser) Inject(ctx context.Context, tabID schema.TabID, files []string) error {
	t, err := b.tab(tabID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errors.New("no content scripts to inject")
	}
	for _, file := range files {
		src, err := os.ReadFile(filepath.Join(b.scriptDir, filepath.Clean(file)))
		if err != nil {
			return fmt.Errorf("read script %s: %w", file, err)
		}
		if err := chromedp.Run(t.ctx, chromedp.Evaluate(string(src), nil)); err != nil {
			return fmt.Errorf("inject %s: %w", file, err)
		}
	}
	b.log.Debug("content scripts injected", "tab", tabID, "files", len(files))
	return nil
}

// CaptureViewport screenshots the tab's visible viewport as PNG at
// device resolution.
func (b *Browser) CaptureViewport(ctx context.Context, tabID schema.TabID) ([]byte, error) {
	t, err := b.tab(tabID)
	if err != nil {
		return nil, err
	}
	var buf []byte
	if err := chromedp.Run(t.ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	return buf, nil
}
