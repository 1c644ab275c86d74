package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/planner"
)

const (
	ModeAlternate = "alternate"
	ModeParallel  = "parallel"
)

const reportTimeout = time.Minute

type CoordinatorConfig struct {
	// Mode is ModeAlternate or ModeParallel.
	Mode string
	// MonitorEvery audits after every N agent steps.
	MonitorEvery int
	// FeedAudit merges audits into the agent state for V1/V2 runs. V3 runs
	// always merge.
	FeedAudit bool
	// TrustMonitorDone ends the run on a "Yes" completion verdict.
	TrustMonitorDone bool
	// ModelRetries is how many times a failed agent model call is retried
	// before the run is aborted.
	ModelRetries int
	HistoryPath  string
}

// StopSignal is polled between steps.
type StopSignal interface {
	StopRequested() bool
}

// PlanBuilder drafts the initial plan of a run.
type PlanBuilder interface {
	BuildPlan(ctx context.Context, task string) (*planner.Plan, error)
}

// RunResult is the outcome of Coordinator.Run.
type RunResult struct {
	RunID        string
	Status       Status
	Err          error
	FinalContent string
	State        llm.StateView
	History      []StepRecord
	// Audit is the last monitor verdict, if a monitor ran.
	Audit    *llm.AuditRecord
	Summary  string
	Duration time.Duration
}

// Coordinator drives the agent and, optionally, the monitor over one
// environment. It is the only writer of audits into the agent state and does
// so strictly between agent steps.
type Coordinator struct {
	cfg      CoordinatorConfig
	agent    *Agent
	env      Environment
	monitor  *Monitor
	planner  PlanBuilder
	stop     StopSignal
	reporter *Reporter
	logger   *zap.Logger

	lastAudit *llm.AuditRecord
}

type Option func(*Coordinator)

func WithMonitor(m *Monitor) Option { return func(c *Coordinator) { c.monitor = m } }
func WithPlanner(p PlanBuilder) Option { return func(c *Coordinator) { c.planner = p } }
func WithStopSignal(s StopSignal) Option { return func(c *Coordinator) { c.stop = s } }
func WithReporter(r *Reporter) Option { return func(c *Coordinator) { c.reporter = r } }

func NewCoordinator(cfg CoordinatorConfig, a *Agent, env Environment, logger *zap.Logger, opts ...Option) *Coordinator {
	if cfg.MonitorEvery <= 0 {
		cfg.MonitorEvery = 1
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeAlternate
	}
	c := &Coordinator{
		cfg:    cfg,
		agent:  a,
		env:    env,
		logger: logger.Named("coordinator").With(zap.String("run_id", a.RunID())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run steps the agent until it is Done or Aborted. The returned error is
// the abort reason; the result is populated either way. A delegated-variant
// agent without a monitor is refused before the first step with
// ErrMonitorRequired and a nil result.
func (c *Coordinator) Run(ctx context.Context) (*RunResult, error) {
	if c.agent.Variant() == llm.VariantDelegated && c.monitor == nil {
		return nil, ErrMonitorRequired
	}
	start := time.Now()
	c.logger.Info("Run started",
		zap.String("task", c.agent.State().Task()),
		zap.String("variant", c.agent.Variant().String()),
		zap.Bool("monitor", c.monitor != nil),
		zap.String("mode", c.cfg.Mode),
	)

	c.seedPlan(ctx)

	for c.agent.Status() == StatusRunning {
		if ctx.Err() != nil || (c.stop != nil && c.stop.StopRequested()) {
			c.agent.Abort(ErrInterrupted)
			break
		}

		if c.monitorDue(ModeParallel) {
			c.parallelStep(ctx)
			continue
		}

		c.agentStep(ctx)
		if c.monitorDue(ModeAlternate) {
			c.auditCurrent(ctx)
		}
	}
	if c.trailingAuditDue(ctx) {
		c.auditCurrent(ctx)
	}

	res := &RunResult{
		RunID:        c.agent.RunID(),
		Status:       c.agent.Status(),
		Err:          c.agent.Err(),
		FinalContent: c.agent.FinalContent(),
		State:        c.agent.State().View(),
		History:      c.agent.History().Records(),
		Audit:        c.lastAudit,
		Duration:     time.Since(start),
	}

	if c.reporter != nil {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		res.Summary = c.reporter.Report(rctx, res)
		cancel()
	}
	if c.cfg.HistoryPath != "" {
		if err := c.agent.History().Save(c.cfg.HistoryPath); err != nil {
			c.logger.Warn("Failed to save history", zap.String("path", c.cfg.HistoryPath), zap.Error(err))
		} else {
			c.logger.Info("History saved", zap.String("path", c.cfg.HistoryPath))
		}
	}

	if res.Status == StatusAborted {
		return res, res.Err
	}
	return res, nil
}

func (c *Coordinator) seedPlan(ctx context.Context) {
	if c.planner == nil || c.agent.Variant() == llm.VariantMinimal {
		return
	}
	plan, err := c.planner.BuildPlan(ctx, c.agent.State().Task())
	if err != nil {
		c.logger.Warn("Planner failed, starting without a plan", zap.Error(err))
		return
	}
	c.agent.State().FuturePlans = plan.String()
	c.logger.Info("Plan", zap.String("future_plans", c.agent.State().FuturePlans))
}

// monitorDue reports whether an audit is due in the given mode after the
// steps completed so far.
func (c *Coordinator) monitorDue(mode string) bool {
	if c.monitor == nil || c.cfg.Mode != mode || c.agent.Status() != StatusRunning {
		return false
	}
	n := c.agent.State().StepNumber
	return n > 0 && n%c.cfg.MonitorEvery == 0
}

// trailingAuditDue reports whether the final step of a parallel run still
// needs its audit. Parallel audits trail the agent by one step, so the step
// that finished the run has none yet.
func (c *Coordinator) trailingAuditDue(ctx context.Context) bool {
	if c.monitor == nil || c.cfg.Mode != ModeParallel || c.cfg.TrustMonitorDone {
		return false
	}
	if c.agent.Status() != StatusDone || ctx.Err() != nil {
		return false
	}
	n := c.agent.State().StepNumber
	return n > 0 && n%c.cfg.MonitorEvery == 0
}

// agentStep runs one agent step, retrying model transport failures up to
// ModelRetries times.
func (c *Coordinator) agentStep(ctx context.Context) {
	for attempt := 0; ; attempt++ {
		out, err := c.agent.Step(ctx)
		if err == nil {
			if out.ParseError != nil {
				c.logger.Warn("Step rejected", zap.Int("step", out.Step), zap.Error(out.ParseError))
			}
			return
		}

		var mce *ModelCallError
		if !errors.As(err, &mce) {
			// the agent already aborted
			return
		}
		if ctx.Err() != nil {
			c.agent.Abort(ErrInterrupted)
			return
		}
		if attempt < c.cfg.ModelRetries {
			c.logger.Warn("Model call failed, retrying step",
				zap.Int("attempt", attempt+1),
				zap.Int("max_retries", c.cfg.ModelRetries),
				zap.Error(err),
			)
			continue
		}
		c.agent.Abort(err)
		return
	}
}

func (c *Coordinator) monitorInput(snap *browser.Snapshot) llm.MonitorInput {
	st := c.agent.State()
	return llm.MonitorInput{
		Task:     st.Task(),
		Step:     st.StepNumber - 1,
		MaxSteps: st.MaxSteps,
		Snapshot: snap,
		Actions:  append([]llm.ActionCommand(nil), c.agent.LastPlanned()...),
		Results:  append([]llm.ActionResult(nil), c.agent.LastResults()...),
	}
}

// auditCurrent audits the step that just completed against a fresh
// snapshot. Monitor failures are logged and never end the run.
func (c *Coordinator) auditCurrent(ctx context.Context) {
	snap, err := c.env.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("Monitor snapshot failed", zap.Error(err))
		return
	}
	in := c.monitorInput(snap)
	audit, err := c.monitor.Audit(ctx, in)
	if err != nil {
		c.logger.Warn("Monitor audit failed", zap.Error(err))
		return
	}
	c.mergeAudit(in.Step+1, audit)
}

// parallelStep audits the previous step while the agent runs the next one.
// The monitor only sees a snapshot captured before the agent's step begins.
func (c *Coordinator) parallelStep(ctx context.Context) {
	snap, err := c.env.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("Monitor snapshot failed", zap.Error(err))
		c.agentStep(ctx)
		return
	}
	in := c.monitorInput(snap)

	var audit *llm.AuditRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a, err := c.monitor.Audit(gctx, in)
		if err != nil {
			c.logger.Warn("Monitor audit failed", zap.Error(err))
			return nil
		}
		audit = &a
		return nil
	})
	g.Go(func() error {
		c.agentStep(gctx)
		return nil
	})
	_ = g.Wait()

	if audit != nil {
		c.mergeAudit(in.Step+1, *audit)
	}
}

func (c *Coordinator) mergeAudit(step int, audit llm.AuditRecord) {
	c.lastAudit = &audit
	c.agent.History().AttachAudit(step, audit)

	if c.agent.Status() != StatusRunning {
		return
	}
	if c.agent.Variant() == llm.VariantDelegated || c.cfg.FeedAudit {
		c.agent.State().ApplyAudit(audit)
	}
	if c.cfg.TrustMonitorDone && audit.IsDone.Done() {
		c.logger.Info("Monitor confirmed completion", zap.String("reason", audit.IsDone.Reason))
		c.agent.MarkDone(audit.IsDone.Reason)
	}
}
