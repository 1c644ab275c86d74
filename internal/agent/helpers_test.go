package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/goleak"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/controller"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// leakOptions ignores the opencensus stats worker, which the genai
// dependency starts at package init and never stops.
var leakOptions = []goleak.Option{
	goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"),
}

// fakeEnv is a scripted page. react may replace the page to simulate the
// effect of an action.
type fakeEnv struct {
	mu       sync.Mutex
	snap     *browser.Snapshot
	executed []llm.ActionCommand
	react    func(e *fakeEnv, cmd llm.ActionCommand) (llm.ActionOutcome, error)
	snapErr  error
	fpErr    error
}

func newFakeEnv(snap *browser.Snapshot) *fakeEnv {
	return &fakeEnv{snap: snap}
}

func (e *fakeEnv) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snapErr != nil {
		return nil, e.snapErr
	}
	return e.snap, nil
}

func (e *fakeEnv) Fingerprint(ctx context.Context) (browser.Fingerprint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fpErr != nil {
		return browser.Fingerprint{}, e.fpErr
	}
	return e.snap.Fingerprint(), nil
}

func (e *fakeEnv) Execute(ctx context.Context, cmd llm.ActionCommand) (llm.ActionOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.executed = append(e.executed, cmd)
	if e.react != nil {
		return e.react(e, cmd)
	}
	if p, ok := cmd.Params.(*controller.DoneParams); ok {
		return llm.ActionOutcome{ExtractedContent: p.Text, IncludeInMemory: true}, nil
	}
	return llm.ActionOutcome{ExtractedContent: "ok " + cmd.Name, IncludeInMemory: true}, nil
}

func (e *fakeEnv) IsTerminal(name string) bool {
	return name == controller.DoneAction
}

func (e *fakeEnv) executedNames() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.executed))
	for _, c := range e.executed {
		names = append(names, c.Name)
	}
	return names
}

// setPage must be called with e.mu held, i.e. from react.
func (e *fakeEnv) setPage(snap *browser.Snapshot) {
	e.snap = snap
}

type reply struct {
	text string
	err  error
}

// scriptClient returns its replies in order and repeats the last one.
type scriptClient struct {
	mu      sync.Mutex
	replies []reply
	calls   int
	seen    [][]llm.Message
}

func newScript(replies ...reply) *scriptClient {
	return &scriptClient{replies: replies}
}

func (c *scriptClient) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, messages)
	i := c.calls
	if i >= len(c.replies) {
		i = len(c.replies) - 1
	}
	c.calls++
	return c.replies[i].text, c.replies[i].err
}

func (c *scriptClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *scriptClient) prompt(call int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.seen[call]
	return msgs[len(msgs)-1].Text()
}

func ok(text string) reply { return reply{text: text} }

func click(index int) string { return fmt.Sprintf(`{"click_element": {"index": %d}}`, index) }

func input(index int, text string) string {
	return fmt.Sprintf(`{"input_text": {"index": %d, "text": %q}}`, index, text)
}

func done(text string) string { return fmt.Sprintf(`{"done": {"text": %q}}`, text) }

const scrollDown = `{"scroll_down": {}}`

// v2Reply is a self-critique reply carrying actions.
func v2Reply(actions ...string) string {
	return `{"current_state": {
		"prev_action_evaluation": "Unknown",
		"important_contents": "",
		"task_progress": "",
		"future_plans": "",
		"thought": "next move",
		"summary": "acting"
	}, "action": [` + strings.Join(actions, ", ") + `]}`
}

// v3Reply is a delegated reply carrying actions.
func v3Reply(actions ...string) string {
	return `{"current_state": {"thought": "next move", "summary": "acting"}, "action": [` + strings.Join(actions, ", ") + `]}`
}

func loginPage() *browser.Snapshot {
	return &browser.Snapshot{
		URL:   "https://example.com/login",
		Title: "Login",
		Tabs:  []browser.Tab{{PageID: 0, URL: "https://example.com/login", Title: "Login"}},
		Elements: []browser.Element{
			{Index: 1, Tag: "input", Attributes: []browser.Attribute{{Name: "name", Value: "user"}}},
			{Index: 2, Tag: "button", Text: "Sign in"},
		},
	}
}

// withSuggestions is loginPage with an autocomplete list opened under the
// input.
func withSuggestions() *browser.Snapshot {
	snap := loginPage()
	snap.Elements = append(snap.Elements, browser.Element{Index: 3, Tag: "li", Text: "bob@example.com", Attributes: []browser.Attribute{{Name: "role", Value: "option"}}})
	return snap
}

func testConfig(variant llm.Variant) Config {
	return Config{
		Variant:           variant,
		MaxSteps:          10,
		MaxActionsPerStep: 5,
		MaxFailures:       3,
		LoopThreshold:     3,
	}
}
