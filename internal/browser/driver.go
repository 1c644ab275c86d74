package browser

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
)

// ErrElementNotFound is returned when an index no longer resolves to a node.
var ErrElementNotFound = errors.New("element not found")

// Driver is the browser capability the agent runs against. Element indexes
// refer to the most recent Snapshot.
type Driver interface {
	Snapshot(ctx context.Context, opts SnapshotOptions) (*Snapshot, error)
	Click(ctx context.Context, index int) error
	Input(ctx context.Context, index int, text string) error
	Navigate(ctx context.Context, url string) error
	GoBack(ctx context.Context) error
	// Scroll moves the viewport. pixels <= 0 scrolls one viewport height.
	Scroll(ctx context.Context, up bool, pixels int) error
	OpenTab(ctx context.Context, url string) error
	SwitchTab(ctx context.Context, pageID int) error
	SendKeys(ctx context.Context, keys string) error
	// TypeText inserts text into the focused element.
	TypeText(ctx context.Context, text string) error
	PageHTML(ctx context.Context) (string, error)
	PageText(ctx context.Context) (string, error)
	Close() error
}

func elementNotFound(index int) error {
	return fmt.Errorf("%w: index %d", ErrElementNotFound, index)
}

func aiSelector(index int) string {
	return fmt.Sprintf("[data-ai-id='%d']", index)
}

// NewDriver starts the browser backend named by cfg.Driver.
func NewDriver(cfg config.BrowserConfig, logger *zap.Logger) (Driver, error) {
	switch cfg.Driver {
	case "", config.DriverPlaywright:
		return NewManager(cfg, logger)
	case config.DriverChromedp:
		return NewCDPDriver(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported browser driver %q", cfg.Driver)
	}
}
