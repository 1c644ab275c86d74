package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
)

const (
	LoadStateLoad             = "load"
	LoadStateDomcontentloaded = "domcontentloaded"
	LoadStateNetworkidle      = "networkidle"
)

// Manager drives a persistent Chromium context through playwright.
type Manager struct {
	pw      *playwright.Playwright
	Context playwright.BrowserContext

	mu     sync.Mutex
	page   playwright.Page
	cfg    config.BrowserConfig
	logger *zap.Logger
}

var _ Driver = (*Manager)(nil)

// NewManager installs the playwright driver if needed and launches Chromium.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	if err := playwright.Install(); err != nil {
		return nil, fmt.Errorf("install pw failed: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start pw failed: %w", err)
	}

	userDataDir, err := filepath.Abs(cfg.UserDataDir)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("resolve user data dir: %w", err)
	}

	bctx, err := pw.Chromium.LaunchPersistentContext(userDataDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(cfg.Headless),
		Viewport: &playwright.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
		Args: []string{
			"--disable-blink-features=AutomationControlled",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	var page playwright.Page
	if pages := bctx.Pages(); len(pages) > 0 {
		page = pages[0]
	} else if page, err = bctx.NewPage(); err != nil {
		_ = bctx.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	m := &Manager{
		pw:      pw,
		Context: bctx,
		page:    page,
		cfg:     cfg,
		logger:  logger.Named("playwright"),
	}
	m.applyTimeouts(page)
	return m, nil
}

func (m *Manager) applyTimeouts(page playwright.Page) {
	page.SetDefaultTimeout(float64(m.cfg.ActionTimeout.Milliseconds()))
	page.SetDefaultNavigationTimeout(float64(m.cfg.NavigationTimeout.Milliseconds()))
}

// Page returns the active page.
func (m *Manager) Page() playwright.Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.page
}

func (m *Manager) waitForLoad(page playwright.Page) {
	state := playwright.LoadState(LoadStateDomcontentloaded)
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: &state}); err != nil {
		m.logger.Debug("Wait for load state failed.", zap.Error(err))
	}
}

func (m *Manager) Snapshot(ctx context.Context, opts SnapshotOptions) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page := m.Page()
	if page == nil {
		return nil, fmt.Errorf("page is not initialized")
	}
	m.waitForLoad(page)

	attrs := opts.IncludeAttributes
	if attrs == nil {
		attrs = []string{}
	}
	raw, err := page.Evaluate(snapshotScript, attrs)
	if err != nil {
		return nil, fmt.Errorf("js evaluation failed: %w", err)
	}
	res, err := decodeScriptResult(raw)
	if err != nil {
		return nil, err
	}
	snap := res.toSnapshot()
	snap.Tabs = m.tabs()

	if opts.Screenshot {
		buf, err := page.Screenshot(playwright.PageScreenshotOptions{
			FullPage: playwright.Bool(false),
			Type:     playwright.ScreenshotTypePng,
		})
		if err != nil {
			m.logger.Warn("Failed to take screenshot.", zap.Error(err))
		} else {
			snap.Screenshot = buf
		}
	}
	return snap, nil
}

func (m *Manager) tabs() []Tab {
	pages := m.Context.Pages()
	out := make([]Tab, 0, len(pages))
	for i, p := range pages {
		title, _ := p.Title()
		out = append(out, Tab{PageID: i, URL: p.URL(), Title: title})
	}
	return out
}

func (m *Manager) locate(index int) (playwright.Locator, error) {
	loc := m.Page().Locator(aiSelector(index)).First()
	count, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("locate index %d: %w", index, err)
	}
	if count == 0 {
		return nil, elementNotFound(index)
	}
	return loc, nil
}

func (m *Manager) Click(ctx context.Context, index int) error {
	loc, err := m.locate(index)
	if err != nil {
		return err
	}
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		m.logger.Debug("Scroll into view failed.", zap.Int("index", index), zap.Error(err))
	}
	if err := loc.Click(); err != nil {
		return fmt.Errorf("click index %d: %w", index, err)
	}
	m.waitForLoad(m.Page())
	return nil
}

func (m *Manager) Input(ctx context.Context, index int, text string) error {
	loc, err := m.locate(index)
	if err != nil {
		return err
	}
	if err := loc.Fill(text); err != nil {
		return fmt.Errorf("fill index %d: %w", index, err)
	}
	return nil
}

func (m *Manager) Navigate(ctx context.Context, url string) error {
	if _, err := m.Page().Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

func (m *Manager) GoBack(ctx context.Context) error {
	if _, err := m.Page().GoBack(); err != nil {
		return fmt.Errorf("go back: %w", err)
	}
	m.waitForLoad(m.Page())
	return nil
}

func (m *Manager) Scroll(ctx context.Context, up bool, pixels int) error {
	_, err := m.Page().Evaluate(scrollExpression(up, pixels))
	return err
}

func (m *Manager) OpenTab(ctx context.Context, url string) error {
	page, err := m.Context.NewPage()
	if err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	m.applyTimeouts(page)
	m.mu.Lock()
	m.page = page
	m.mu.Unlock()
	return m.Navigate(ctx, url)
}

func (m *Manager) SwitchTab(ctx context.Context, pageID int) error {
	pages := m.Context.Pages()
	if pageID < 0 || pageID >= len(pages) {
		return fmt.Errorf("no tab with page_id %d (%d open)", pageID, len(pages))
	}
	page := pages[pageID]
	if err := page.BringToFront(); err != nil {
		return fmt.Errorf("switch tab: %w", err)
	}
	m.mu.Lock()
	m.page = page
	m.mu.Unlock()
	m.waitForLoad(page)
	return nil
}

func (m *Manager) SendKeys(ctx context.Context, keys string) error {
	return m.Page().Keyboard().Press(keys)
}

func (m *Manager) TypeText(ctx context.Context, text string) error {
	return m.Page().Keyboard().InsertText(text)
}

func (m *Manager) PageHTML(ctx context.Context) (string, error) {
	return m.Page().Content()
}

func (m *Manager) PageText(ctx context.Context) (string, error) {
	return m.Page().Locator("body").InnerText()
}

func (m *Manager) Close() error {
	var errs []string
	if m.Context != nil {
		if err := m.Context.Close(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if m.pw != nil {
		if err := m.pw.Stop(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close browser: %s", strings.Join(errs, "; "))
	}
	return nil
}

func scrollExpression(up bool, pixels int) string {
	sign := ""
	if up {
		sign = "-"
	}
	if pixels <= 0 {
		return fmt.Sprintf("window.scrollBy(0, %swindow.innerHeight)", sign)
	}
	return fmt.Sprintf("window.scrollBy(0, %s%d)", sign, pixels)
}
