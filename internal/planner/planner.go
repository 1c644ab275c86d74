package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	ModeNavigation  = "navigation"
	ModeInteraction = "interaction"
)

var ErrEmptyPlan = errors.New("planner returned no steps")

type PlanStep struct {
	Index int    `json:"index"`
	Goal  string `json:"goal"`
	Mode  string `json:"mode"`
}

type Plan struct {
	Steps []PlanStep `json:"steps"`
}

// String renders the plan as the numbered list used for future_plans.
func (p *Plan) String() string {
	var sb strings.Builder
	for i, s := range p.Steps {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%d. %s", s.Index, s.Goal)
	}
	return sb.String()
}

// Planner drafts a high-level plan before the first agent step.
type Planner struct {
	client llm.Client
	logger *zap.Logger
}

func New(client llm.Client, logger *zap.Logger) *Planner {
	return &Planner{client: client, logger: logger.Named("planner")}
}

const plannerSystemPrompt = `You draft the opening plan of a browser automation run.

The plan seeds the agent's "future plans" field before it sees the first
page. Split the user's request into 3 to 7 ordered goals, each small enough
to be finished in a few browser actions. Name what must be achieved, not which
element to click: the agent has not seen the page yet.

Tag every goal with a mode:
- "navigation" for reaching the right page, section, listing or tab
- "interaction" for work on a single page: forms, options, confirmations

Reply with JSON only:
{"steps": [{"index": 1, "goal": "...", "mode": "navigation"}]}
`

func (p *Planner) BuildPlan(ctx context.Context, task string) (*Plan, error) {
	userMsg := fmt.Sprintf("User task:\n%s\n\nProduce 3-7 high-level steps.", task)

	content, err := p.client.Complete(ctx, []llm.Message{
		llm.TextMessage(llm.RoleSystem, plannerSystemPrompt),
		llm.TextMessage(llm.RoleUser, userMsg),
	})
	if err != nil {
		return nil, fmt.Errorf("planner model call failed: %w", err)
	}

	raw, ok := llm.ExtractJSON(content)
	if !ok {
		return nil, fmt.Errorf("planner reply contains no JSON object: %q", content)
	}
	var plan Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return nil, fmt.Errorf("planner JSON parse error: %w | content: %s", err, content)
	}

	steps := plan.Steps[:0]
	for _, s := range plan.Steps {
		s.Goal = strings.TrimSpace(s.Goal)
		if s.Goal == "" {
			continue
		}
		s.Index = len(steps) + 1
		s.Mode = normalizeMode(s.Mode, s.Goal)
		steps = append(steps, s)
	}
	if len(steps) == 0 {
		return nil, ErrEmptyPlan
	}
	plan.Steps = steps

	p.logger.Debug("Plan drafted", zap.Int("steps", len(steps)))
	return &plan, nil
}

// normalizeMode falls back to a keyword guess when the model's mode is
// missing or unknown.
func normalizeMode(mode, goal string) string {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == ModeNavigation || mode == ModeInteraction {
		return mode
	}
	g := strings.ToLower(goal)
	for _, kw := range []string{"search", "go to", "open", "navigate"} {
		if strings.Contains(g, kw) {
			return ModeNavigation
		}
	}
	return ModeInteraction
}
