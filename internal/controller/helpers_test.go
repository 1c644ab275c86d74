package controller

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
)

// mockDriver is a testify mock of browser.Driver.
type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) Snapshot(ctx context.Context, opts browser.SnapshotOptions) (*browser.Snapshot, error) {
	args := m.Called(ctx, opts)
	snap, _ := args.Get(0).(*browser.Snapshot)
	return snap, args.Error(1)
}

func (m *mockDriver) Click(ctx context.Context, index int) error {
	return m.Called(ctx, index).Error(0)
}

func (m *mockDriver) Input(ctx context.Context, index int, text string) error {
	return m.Called(ctx, index, text).Error(0)
}

func (m *mockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockDriver) GoBack(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockDriver) Scroll(ctx context.Context, up bool, pixels int) error {
	return m.Called(ctx, up, pixels).Error(0)
}

func (m *mockDriver) OpenTab(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockDriver) SwitchTab(ctx context.Context, pageID int) error {
	return m.Called(ctx, pageID).Error(0)
}

func (m *mockDriver) SendKeys(ctx context.Context, keys string) error {
	return m.Called(ctx, keys).Error(0)
}

func (m *mockDriver) TypeText(ctx context.Context, text string) error {
	return m.Called(ctx, text).Error(0)
}

func (m *mockDriver) PageHTML(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockDriver) PageText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockDriver) Close() error {
	return m.Called().Error(0)
}
