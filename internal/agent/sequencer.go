package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// Environment is the browser collaborator. Only the agent loop calls
// Execute.
type Environment interface {
	Snapshot(ctx context.Context) (*browser.Snapshot, error)
	Execute(ctx context.Context, cmd llm.ActionCommand) (llm.ActionOutcome, error)
	Fingerprint(ctx context.Context) (browser.Fingerprint, error)
	IsTerminal(name string) bool
}

// Sequencer runs one action list against the environment, stopping as soon
// as the page structure changes.
type Sequencer struct {
	env        Environment
	maxActions int
	logger     *zap.Logger
}

func NewSequencer(env Environment, maxActions int, logger *zap.Logger) *Sequencer {
	return &Sequencer{env: env, maxActions: maxActions, logger: logger.Named("sequencer")}
}

// Execute runs actions in order. snap is the snapshot the actions were
// planned against. The returned results line up with actions[:len(results)].
// Cancellation of ctx does not interrupt an in-flight list.
//
// Only a failure to take the baseline fingerprint is returned as an error;
// per-action failures land in ActionResult.Error.
func (s *Sequencer) Execute(ctx context.Context, snap *browser.Snapshot, actions []llm.ActionCommand) ([]llm.ActionResult, error) {
	ctx = context.WithoutCancel(ctx)

	if s.maxActions > 0 && len(actions) > s.maxActions {
		s.logger.Warn("Truncating action list", zap.Int("requested", len(actions)), zap.Int("max", s.maxActions))
		actions = actions[:s.maxActions]
	}

	before, err := s.env.Fingerprint(ctx)
	if err != nil {
		return nil, &EnvironmentError{Action: "fingerprint", Err: err}
	}

	results := make([]llm.ActionResult, 0, len(actions))
	for i, action := range actions {
		if idx, ok := action.Index(); ok && !snap.HasIndex(idx) {
			stale := &StaleReferenceError{Action: action.Name, Index: idx}
			s.logger.Warn("Stale element reference", zap.String("action", action.Name), zap.Int("index", idx))
			results = append(results, llm.ActionResult{Error: stale.Error(), IncludeInMemory: true})
			continue
		}

		out, err := s.env.Execute(ctx, action)
		if err != nil {
			envErr := &EnvironmentError{Action: action.Name, Err: err}
			results = append(results, llm.ActionResult{Error: envErr.Error(), IncludeInMemory: true})
			continue
		}

		result := llm.ActionResult{
			ExtractedContent: out.ExtractedContent,
			IncludeInMemory:  out.IncludeInMemory,
		}
		if s.env.IsTerminal(action.Name) {
			result.IsDone = true
			results = append(results, result)
			break
		}
		results = append(results, result)

		if i == len(actions)-1 {
			break
		}
		if out.Navigated {
			s.logger.Info("Page replaced, stopping sequence", zap.String("action", action.Name), zap.Int("executed", i+1), zap.Int("planned", len(actions)))
			break
		}
		after, err := s.env.Fingerprint(ctx)
		if err != nil || after != before {
			s.logger.Info("Page structure changed, stopping sequence", zap.String("action", action.Name), zap.Int("executed", i+1), zap.Int("planned", len(actions)))
			break
		}
	}
	return results, nil
}
