package llm

import (
	"fmt"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
)

type indexParams struct {
	Index int    `json:"index"`
	Text  string `json:"text,omitempty"`
}

func (p indexParams) ElementIndex() int { return p.Index }

type doneParams struct {
	Text string `json:"text"`
}

// fakeSchema knows click_element, input_text and done.
type fakeSchema struct{}

func (fakeSchema) Decode(name string, raw []byte) (any, error) {
	switch name {
	case "click_element", "input_text":
		var p indexParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		if p.Index < 1 {
			return nil, fmt.Errorf("index must be >= 1")
		}
		return p, nil
	case "done":
		var p doneParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown action %q", name)
}

type staticCatalog string

func (c staticCatalog) Describe() string { return string(c) }

func loginSnapshot() *browser.Snapshot {
	return &browser.Snapshot{
		URL:   "https://example.com/login",
		Title: "Login",
		Tabs:  []browser.Tab{{PageID: 0, URL: "https://example.com/login", Title: "Login"}},
		Elements: []browser.Element{
			{Index: 1, Tag: "input", Attributes: []browser.Attribute{{Name: "placeholder", Value: "Search"}}},
			{Index: 2, Tag: "button", Text: "Submit"},
		},
	}
}
