package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
)

type cdpTab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// CDPDriver drives Chrome directly over the DevTools protocol.
type CDPDriver struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu      sync.Mutex
	tabs    []cdpTab
	current int

	cfg    config.BrowserConfig
	logger *zap.Logger
}

var _ Driver = (*CDPDriver)(nil)

// NewCDPDriver launches a Chrome process and opens the first tab.
func NewCDPDriver(cfg config.BrowserConfig, logger *zap.Logger) (*CDPDriver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(cfg.ViewportWidth, cfg.ViewportHeight),
	)
	if cfg.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.UserDataDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	return &CDPDriver{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabs:          []cdpTab{{ctx: browserCtx, cancel: func() {}}},
		cfg:           cfg,
		logger:        logger.Named("cdp"),
	}, nil
}

// run executes actions on the active tab, bounded by the action timeout.
func (d *CDPDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	tab := d.tabs[d.current]
	d.mu.Unlock()

	runCtx, cancel := context.WithTimeout(tab.ctx, d.timeout())
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (d *CDPDriver) timeout() time.Duration {
	t := d.cfg.ActionTimeout
	if d.cfg.NavigationTimeout > t {
		t = d.cfg.NavigationTimeout
	}
	if t <= 0 {
		t = 30 * time.Second
	}
	return t
}

func (d *CDPDriver) Snapshot(ctx context.Context, opts SnapshotOptions) (*Snapshot, error) {
	attrs := opts.IncludeAttributes
	if attrs == nil {
		attrs = []string{}
	}
	args, err := json.MarshalToString(attrs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot args: %w", err)
	}

	var raw string
	var shot []byte
	actions := []chromedp.Action{
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf("(%s)(%s)", snapshotScript, args), &raw),
	}
	if opts.Screenshot {
		actions = append(actions, chromedp.CaptureScreenshot(&shot))
	}
	if err := d.run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("js evaluation failed: %w", err)
	}

	res, err := decodeScriptResult(raw)
	if err != nil {
		return nil, err
	}
	snap := res.toSnapshot()
	snap.Screenshot = shot
	snap.Tabs = d.listTabs()
	return snap, nil
}

func (d *CDPDriver) listTabs() []Tab {
	infos, err := chromedp.Targets(d.browserCtx)
	if err != nil {
		d.logger.Debug("Failed to list targets.", zap.Error(err))
		return nil
	}
	byID := make(map[target.ID]*target.Info, len(infos))
	for _, info := range infos {
		byID[info.TargetID] = info
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Tab, 0, len(d.tabs))
	for i, tab := range d.tabs {
		c := chromedp.FromContext(tab.ctx)
		if c == nil || c.Target == nil {
			continue
		}
		t := Tab{PageID: i}
		if info, ok := byID[c.Target.TargetID]; ok {
			t.URL, t.Title = info.URL, info.Title
		}
		out = append(out, t)
	}
	return out
}

// withElement resolves the element tagged with index and calls fn on its
// remote object.
func (d *CDPDriver) withElement(ctx context.Context, index int, fn string) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var nodes []*cdp.Node
		if err := chromedp.Nodes(aiSelector(index), &nodes, chromedp.ByQuery, chromedp.AtLeast(0)).Do(ctx); err != nil {
			return fmt.Errorf("query index %d: %w", index, err)
		}
		if len(nodes) == 0 {
			return elementNotFound(index)
		}

		obj, err := dom.ResolveNode().WithBackendNodeID(nodes[0].BackendNodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node failed: %w", err)
		}
		if obj == nil || obj.ObjectID == "" {
			return fmt.Errorf("object id is empty (node might be detached)")
		}

		_, exc, err := runtime.CallFunctionOn(fn).WithObjectID(obj.ObjectID).Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return fmt.Errorf("script exception on index %d: %s", index, exc.Text)
		}
		return nil
	}))
}

func (d *CDPDriver) Click(ctx context.Context, index int) error {
	return d.withElement(ctx, index, clickScript)
}

func (d *CDPDriver) Input(ctx context.Context, index int, text string) error {
	literal, err := json.MarshalToString(text)
	if err != nil {
		return fmt.Errorf("encode input text: %w", err)
	}
	return d.withElement(ctx, index, fmt.Sprintf(inputScriptFormat, literal))
}

func (d *CDPDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *CDPDriver) GoBack(ctx context.Context) error {
	return d.run(ctx, chromedp.NavigateBack())
}

func (d *CDPDriver) Scroll(ctx context.Context, up bool, pixels int) error {
	return d.run(ctx, chromedp.Evaluate(scrollExpression(up, pixels), nil))
}

func (d *CDPDriver) OpenTab(ctx context.Context, url string) error {
	tabCtx, cancel := chromedp.NewContext(d.browserCtx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return fmt.Errorf("open tab: %w", err)
	}
	d.mu.Lock()
	d.tabs = append(d.tabs, cdpTab{ctx: tabCtx, cancel: cancel})
	d.current = len(d.tabs) - 1
	d.mu.Unlock()
	return d.Navigate(ctx, url)
}

func (d *CDPDriver) SwitchTab(ctx context.Context, pageID int) error {
	d.mu.Lock()
	if pageID < 0 || pageID >= len(d.tabs) {
		n := len(d.tabs)
		d.mu.Unlock()
		return fmt.Errorf("no tab with page_id %d (%d open)", pageID, n)
	}
	d.current = pageID
	d.mu.Unlock()

	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		t := chromedp.FromContext(ctx).Target
		if t == nil {
			return fmt.Errorf("tab %d has no target", pageID)
		}
		return target.ActivateTarget(t.TargetID).Do(ctx)
	}))
}

// namedKeys maps key names used in send_keys to DevTools key strings.
var namedKeys = map[string]string{
	"enter":      kb.Enter,
	"tab":        kb.Tab,
	"escape":     kb.Escape,
	"backspace":  kb.Backspace,
	"delete":     kb.Delete,
	"arrowdown":  kb.ArrowDown,
	"arrowup":    kb.ArrowUp,
	"arrowleft":  kb.ArrowLeft,
	"arrowright": kb.ArrowRight,
	"pagedown":   kb.PageDown,
	"pageup":     kb.PageUp,
	"home":       kb.Home,
	"end":        kb.End,
}

var modifierKeys = map[string]input.Modifier{
	"control": input.ModifierCtrl,
	"ctrl":    input.ModifierCtrl,
	"shift":   input.ModifierShift,
	"alt":     input.ModifierAlt,
	"meta":    input.ModifierMeta,
}

// parseKeyCombo splits a combo such as "Control+a" into the key and its
// modifiers.
func parseKeyCombo(combo string) (string, []input.Modifier) {
	parts := strings.Split(combo, "+")
	var mods []input.Modifier
	for _, p := range parts[:len(parts)-1] {
		if m, ok := modifierKeys[strings.ToLower(strings.TrimSpace(p))]; ok {
			mods = append(mods, m)
		}
	}
	key := parts[len(parts)-1]
	if named, ok := namedKeys[strings.ToLower(key)]; ok {
		key = named
	}
	return key, mods
}

func (d *CDPDriver) SendKeys(ctx context.Context, keys string) error {
	key, mods := parseKeyCombo(keys)
	var opts []chromedp.KeyOption
	if len(mods) > 0 {
		opts = append(opts, chromedp.KeyModifiers(mods...))
	}
	return d.run(ctx, chromedp.KeyEvent(key, opts...))
}

func (d *CDPDriver) TypeText(ctx context.Context, text string) error {
	return d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.InsertText(text).Do(ctx)
	}))
}

func (d *CDPDriver) PageHTML(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *CDPDriver) PageText(ctx context.Context) (string, error) {
	var text string
	err := d.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	return text, err
}

func (d *CDPDriver) Close() error {
	d.mu.Lock()
	for _, t := range d.tabs {
		t.cancel()
	}
	d.mu.Unlock()
	d.browserCancel()
	d.allocCancel()
	return nil
}
