package controller

import (
	"context"
	"fmt"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

const DoneAction = "done"

type ClickElementParams struct {
	Index int `json:"index" validate:"required,gte=1" jsonschema:"description=Index of the element to click"`
}

func (p ClickElementParams) ElementIndex() int { return p.Index }

type InputTextParams struct {
	Index int    `json:"index" validate:"required,gte=1" jsonschema:"description=Index of the input element"`
	Text  string `json:"text" jsonschema:"description=Text to type"`
}

func (p InputTextParams) ElementIndex() int { return p.Index }

type GoToURLParams struct {
	URL string `json:"url" validate:"required,url" jsonschema:"description=Absolute URL to open"`
}

type ScrollParams struct {
	Amount int `json:"amount,omitempty" validate:"gte=0" jsonschema:"description=Pixels to scroll; omit for one page"`
}

type OpenTabParams struct {
	URL string `json:"url" validate:"required,url"`
}

type SwitchTabParams struct {
	PageID int `json:"page_id" validate:"gte=0"`
}

type SendKeysParams struct {
	Keys string `json:"keys" validate:"required" jsonschema:"description=Key or combination such as Enter or Control+a"`
}

type DoneParams struct {
	Text string `json:"text" jsonschema:"description=Final answer shown to the user"`
}

type NoParams struct{}

// RegisterBaseActions adds the browser actions every run has.
func RegisterBaseActions(r *Registry) {
	Register(r, "click_element", "Click element",
		func(ctx context.Context, rt *Runtime, p *ClickElementParams) (llm.ActionOutcome, error) {
			if err := rt.Driver.Click(ctx, p.Index); err != nil {
				return llm.ActionOutcome{}, classify("click_element", CodeExecutionFailure, err)
			}
			return llm.ActionOutcome{ExtractedContent: fmt.Sprintf("Clicked element %d", p.Index), IncludeInMemory: true}, nil
		})

	Register(r, "input_text", "Input text into an input interactive element",
		func(ctx context.Context, rt *Runtime, p *InputTextParams) (llm.ActionOutcome, error) {
			if err := rt.Driver.Input(ctx, p.Index, p.Text); err != nil {
				return llm.ActionOutcome{}, classify("input_text", CodeExecutionFailure, err)
			}
			return llm.ActionOutcome{ExtractedContent: fmt.Sprintf("Input %q into element %d", p.Text, p.Index), IncludeInMemory: true}, nil
		})

	Register(r, "go_to_url", "Navigate to URL in the current tab",
		func(ctx context.Context, rt *Runtime, p *GoToURLParams) (llm.ActionOutcome, error) {
			if err := rt.Driver.Navigate(ctx, p.URL); err != nil {
				return llm.ActionOutcome{}, classify("go_to_url", CodeNavigationError, err)
			}
			return llm.ActionOutcome{ExtractedContent: "Navigated to " + p.URL, IncludeInMemory: true, Navigated: true}, nil
		})

	Register(r, "go_back", "Go back",
		func(ctx context.Context, rt *Runtime, _ *NoParams) (llm.ActionOutcome, error) {
			if err := rt.Driver.GoBack(ctx); err != nil {
				return llm.ActionOutcome{}, classify("go_back", CodeNavigationError, err)
			}
			return llm.ActionOutcome{ExtractedContent: "Navigated back", IncludeInMemory: true, Navigated: true}, nil
		})

	Register(r, "scroll_down", "Scroll down the page by pixel amount - if no amount is specified, scroll down one page",
		func(ctx context.Context, rt *Runtime, p *ScrollParams) (llm.ActionOutcome, error) {
			return scroll(ctx, rt, "scroll_down", false, p.Amount)
		})

	Register(r, "scroll_up", "Scroll up the page by pixel amount - if no amount is specified, scroll up one page",
		func(ctx context.Context, rt *Runtime, p *ScrollParams) (llm.ActionOutcome, error) {
			return scroll(ctx, rt, "scroll_up", true, p.Amount)
		})

	Register(r, "open_tab", "Open url in new tab",
		func(ctx context.Context, rt *Runtime, p *OpenTabParams) (llm.ActionOutcome, error) {
			if err := rt.Driver.OpenTab(ctx, p.URL); err != nil {
				return llm.ActionOutcome{}, classify("open_tab", CodeNavigationError, err)
			}
			return llm.ActionOutcome{ExtractedContent: "Opened new tab with " + p.URL, IncludeInMemory: true, Navigated: true}, nil
		})

	Register(r, "switch_tab", "Switch tab",
		func(ctx context.Context, rt *Runtime, p *SwitchTabParams) (llm.ActionOutcome, error) {
			if err := rt.Driver.SwitchTab(ctx, p.PageID); err != nil {
				return llm.ActionOutcome{}, classify("switch_tab", CodeExecutionFailure, err)
			}
			return llm.ActionOutcome{ExtractedContent: fmt.Sprintf("Switched to tab %d", p.PageID), IncludeInMemory: true, Navigated: true}, nil
		})

	Register(r, "send_keys", "Send strings of special keys like Escape, Backspace, Insert, PageDown, Delete, Enter. Shortcuts such as Control+o are supported",
		func(ctx context.Context, rt *Runtime, p *SendKeysParams) (llm.ActionOutcome, error) {
			if err := rt.Driver.SendKeys(ctx, p.Keys); err != nil {
				return llm.ActionOutcome{}, classify("send_keys", CodeExecutionFailure, err)
			}
			return llm.ActionOutcome{ExtractedContent: "Sent keys: " + p.Keys, IncludeInMemory: true}, nil
		})

	Register(r, DoneAction, "Complete task",
		func(ctx context.Context, rt *Runtime, p *DoneParams) (llm.ActionOutcome, error) {
			return llm.ActionOutcome{ExtractedContent: p.Text, IncludeInMemory: true}, nil
		})
	r.MarkTerminal(DoneAction)
}

func scroll(ctx context.Context, rt *Runtime, name string, up bool, amount int) (llm.ActionOutcome, error) {
	if err := rt.Driver.Scroll(ctx, up, amount); err != nil {
		return llm.ActionOutcome{}, classify(name, CodeExecutionFailure, err)
	}
	dir := "down"
	if up {
		dir = "up"
	}
	what := "one page"
	if amount > 0 {
		what = fmt.Sprintf("%d pixels", amount)
	}
	return llm.ActionOutcome{ExtractedContent: fmt.Sprintf("Scrolled %s by %s", dir, what), IncludeInMemory: true}, nil
}
