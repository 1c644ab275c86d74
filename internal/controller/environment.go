package controller

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// Environment binds a Registry to a browser.Driver.
type Environment struct {
	registry *Registry
	runtime  *Runtime
	opts     browser.SnapshotOptions
	logger   *zap.Logger
}

func NewEnvironment(registry *Registry, driver browser.Driver, clip Clipboard, opts browser.SnapshotOptions, logger *zap.Logger) *Environment {
	return &Environment{
		registry: registry,
		runtime:  &Runtime{Driver: driver, Clipboard: clip},
		opts:     opts,
		logger:   logger.Named("controller"),
	}
}

// Snapshot captures the page, with a screenshot when the options ask for
// one.
func (e *Environment) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	return e.runtime.Driver.Snapshot(ctx, e.opts)
}

// Fingerprint captures a screenshot-free snapshot and summarizes it.
func (e *Environment) Fingerprint(ctx context.Context) (browser.Fingerprint, error) {
	snap, err := e.runtime.Driver.Snapshot(ctx, browser.SnapshotOptions{IncludeAttributes: e.opts.IncludeAttributes})
	if err != nil {
		return browser.Fingerprint{}, err
	}
	return snap.Fingerprint(), nil
}

// Execute runs one command. Commands decoded elsewhere (for example loaded
// from history) are re-decoded through the registry.
func (e *Environment) Execute(ctx context.Context, cmd llm.ActionCommand) (llm.ActionOutcome, error) {
	spec, ok := e.registry.Lookup(cmd.Name)
	if !ok {
		return llm.ActionOutcome{}, newActionError(CodeUnknownAction, cmd.Name, fmt.Errorf("action is not registered"))
	}

	params := cmd.Params
	if params == nil {
		decoded, err := e.registry.Decode(cmd.Name, cmd.Raw)
		if err != nil {
			return llm.ActionOutcome{}, newActionError(CodeInvalidParameters, cmd.Name, err)
		}
		params = decoded
	}

	e.logger.Debug("Executing action", zap.String("action", cmd.Name), zap.String("params", cmd.String()))
	out, err := spec.Exec(ctx, e.runtime, params)
	if err != nil {
		e.logger.Warn("Action failed", zap.String("action", cmd.Name), zap.String("code", string(CodeOf(err))), zap.Error(err))
		return llm.ActionOutcome{}, err
	}
	return out, nil
}

// IsTerminal reports whether the named action ends the run.
func (e *Environment) IsTerminal(name string) bool {
	return e.registry.IsTerminal(name)
}

// NewDefaultRegistry returns a registry with the base and custom actions.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterBaseActions(r)
	RegisterCustomActions(r)
	return r
}
