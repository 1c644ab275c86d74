package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// ActionCatalog is the action registry as seen by the agent: it decodes
// model actions and describes them in the instruction message.
type ActionCatalog interface {
	llm.ActionSchema
	llm.CatalogSource
}

type Config struct {
	Variant           llm.Variant
	MaxSteps          int
	MaxActionsPerStep int
	// MaxFailures is the number of consecutive rejected replies that aborts
	// the run.
	MaxFailures       int
	MaxErrorLength    int
	UseVision         bool
	IncludeAttributes []string
	LoopThreshold     int
}

// StepOutcome describes one completed Step.
type StepOutcome struct {
	Step       int
	Snapshot   *browser.Snapshot
	Decision   *llm.DecisionRecord
	Actions    []llm.ActionCommand
	Results    []llm.ActionResult
	ParseError error
	Done       bool
}

// Agent is the acting loop. It exclusively owns its StepState; between
// steps the coordinator may merge audits into it.
type Agent struct {
	cfg       Config
	env       Environment
	client    llm.Client
	assembler *llm.Assembler
	parser    *llm.Parser
	sequencer *Sequencer
	guard     *LoopGuard
	state     *llm.StepState
	history   *History
	logger    *zap.Logger

	status       Status
	err          error
	failures     int
	finalContent string
	lastActions  []llm.ActionCommand
	lastResults  []llm.ActionResult
	lastPlanned  []llm.ActionCommand
}

func New(cfg Config, env Environment, client llm.Client, catalog ActionCatalog, task, hints string, logger *zap.Logger) *Agent {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	history := NewHistory(task, cfg.Variant)
	logger = logger.Named("agent").With(zap.String("run_id", history.RunID))

	return &Agent{
		cfg:    cfg,
		env:    env,
		client: client,
		assembler: llm.NewAssembler(llm.AssemblerConfig{
			Variant:           cfg.Variant,
			MaxActionsPerStep: cfg.MaxActionsPerStep,
			MaxErrorLength:    cfg.MaxErrorLength,
			IncludeAttributes: cfg.IncludeAttributes,
			UseVision:         cfg.UseVision,
		}, catalog),
		parser:    llm.NewParser(cfg.Variant, catalog),
		sequencer: NewSequencer(env, cfg.MaxActionsPerStep, logger),
		guard:     NewLoopGuard(cfg.LoopThreshold),
		state:     llm.NewStepState(task, hints, cfg.MaxSteps),
		history:   history,
		logger:    logger,
		status:    StatusRunning,
	}
}

func (a *Agent) RunID() string { return a.history.RunID }
func (a *Agent) Status() Status { return a.status }
func (a *Agent) Err() error { return a.err }
func (a *Agent) State() *llm.StepState { return a.state }
func (a *Agent) History() *History { return a.history }
func (a *Agent) FinalContent() string { return a.finalContent }
func (a *Agent) Variant() llm.Variant { return a.cfg.Variant }
func (a *Agent) LastActions() []llm.ActionCommand { return a.lastActions }
func (a *Agent) LastResults() []llm.ActionResult { return a.lastResults }

// LastPlanned is the full action list of the last accepted reply, including
// actions the sequencer did not reach.
func (a *Agent) LastPlanned() []llm.ActionCommand { return a.lastPlanned }

// Step runs one StepPrep, ModelCall, Parse, Execute and StateUpdate cycle.
//
// A rejected reply is not an error: it is reflected into memory and
// reported in StepOutcome.ParseError. A *ModelCallError leaves the run
// Running so the caller can decide to retry. Any error that ends the run
// (ErrMaxSteps, ErrTooManyFailures, *EnvironmentError) is also returned.
func (a *Agent) Step(ctx context.Context) (StepOutcome, error) {
	if a.status != StatusRunning {
		return StepOutcome{}, ErrRunFinished
	}
	if a.state.Exhausted() {
		return StepOutcome{}, a.Abort(ErrMaxSteps)
	}

	stepNo := a.state.StepNumber + 1
	log := a.logger.With(zap.Int("step", stepNo))

	snap, err := a.env.Snapshot(ctx)
	if err != nil {
		return StepOutcome{}, a.Abort(&EnvironmentError{Action: "snapshot", Err: err})
	}
	out := StepOutcome{Step: stepNo, Snapshot: snap}

	instruction, observation := a.assembler.Assemble(snap, a.state, a.lastResults, a.lastActions)
	start := time.Now()
	raw, err := a.client.Complete(ctx, []llm.Message{instruction, observation})
	if err != nil {
		return out, &ModelCallError{Role: "agent", Err: err}
	}
	log.Debug("Model replied", zap.Duration("duration", time.Since(start)), zap.Int("length", len(raw)))

	decision, err := a.parser.Parse(raw)
	if err != nil {
		return a.rejectReply(out, snap, err)
	}
	a.failures = 0
	out.Decision = &decision

	log.Info("Decision",
		zap.String("url", snap.URL),
		zap.String("thought", decision.State.ThoughtText()),
		zap.String("summary", decision.State.SummaryText()),
		zap.Int("actions", len(decision.Actions)),
		zap.Bool("is_done", decision.IsDone),
	)

	results, err := a.sequencer.Execute(ctx, snap, decision.Actions)
	if err != nil {
		return out, a.Abort(err)
	}
	executed := decision.Actions[:len(results)]
	out.Actions = executed
	out.Results = results

	a.state.ApplyDecision(decision)
	for _, note := range a.guard.Observe(snap.URL, executed) {
		log.Warn("Loop guard", zap.String("note", note))
		a.state.AppendMemory(note)
	}
	a.state.Advance()

	done := decision.IsDone
	for i, r := range results {
		if r.Failed() {
			log.Warn("Action failed", zap.String("action", executed[i].Name), zap.String("error", r.Error))
		}
		if r.IsDone {
			done = true
			a.finalContent = r.ExtractedContent
		}
	}
	if done {
		if a.finalContent == "" {
			a.finalContent = finalFromResults(results, decision.State)
		}
		a.finish()
		out.Done = true
	}

	a.lastActions = executed
	a.lastResults = results
	a.lastPlanned = decision.Actions
	a.history.Append(StepRecord{
		Step:         stepNo,
		URL:          snap.URL,
		CurrentState: decision.State,
		State:        a.state.View(),
		Actions:      executed,
		Results:      results,
		Time:         time.Now(),
	})

	if !done && a.state.Exhausted() {
		return out, a.Abort(ErrMaxSteps)
	}
	return out, nil
}

func (a *Agent) rejectReply(out StepOutcome, snap *browser.Snapshot, err error) (StepOutcome, error) {
	var se *llm.SchemaError
	if !errors.As(err, &se) {
		se = &llm.SchemaError{Reason: err.Error(), Err: err}
	}
	a.failures++
	out.ParseError = se
	a.logger.Warn("Rejected model reply",
		zap.Int("step", out.Step),
		zap.Int("consecutive_failures", a.failures),
		zap.Error(se),
	)

	a.state.RecordParseFailure(se.Error())
	a.state.Advance()
	a.lastActions = nil
	a.lastResults = nil
	a.lastPlanned = nil
	a.history.Append(StepRecord{
		Step:       out.Step,
		URL:        snap.URL,
		State:      a.state.View(),
		ParseError: se.Error(),
		Time:       time.Now(),
	})

	if a.failures >= a.cfg.MaxFailures {
		return out, a.Abort(fmt.Errorf("%w: %d invalid replies in a row", ErrTooManyFailures, a.failures))
	}
	if a.state.Exhausted() {
		return out, a.Abort(ErrMaxSteps)
	}
	return out, nil
}

// finalFromResults picks the content a run ends with when the model
// declared completion without a done action.
func finalFromResults(results []llm.ActionResult, state llm.CurrentState) string {
	for i := len(results) - 1; i >= 0; i-- {
		if c := strings.TrimSpace(results[i].ExtractedContent); c != "" && results[i].IncludeInMemory {
			return c
		}
	}
	if state != nil {
		return state.SummaryText()
	}
	return ""
}

// MarkDone ends the run successfully from outside the loop, for example on
// a trusted monitor verdict.
func (a *Agent) MarkDone(content string) {
	if a.status != StatusRunning {
		return
	}
	if a.finalContent == "" {
		a.finalContent = content
	}
	a.finish()
}

func (a *Agent) finish() {
	if !a.state.MarkDone() {
		return
	}
	a.status = StatusDone
	a.history.finish(StatusDone, "", a.finalContent)
	a.logger.Info("Run finished", zap.Int("steps", a.state.StepNumber))
}

// Abort ends the run with err and returns it. It is a no-op on a finished
// run.
func (a *Agent) Abort(err error) error {
	if a.status != StatusRunning {
		return err
	}
	a.status = StatusAborted
	a.err = err
	a.history.finish(StatusAborted, err.Error(), a.finalContent)
	a.logger.Warn("Run aborted", zap.Int("steps", a.state.StepNumber), zap.Error(err))
	return err
}
