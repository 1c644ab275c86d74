package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		want   string
		wantOK bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, true},
		{"fenced", "text\n```json\n{\"a\":1}\n```\nmore", `{"a":1}`, true},
		{"fence without tag", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"prose around", `Sure! {"a":{"b":2}} hope this helps`, `{"a":{"b":2}}`, true},
		{"think block", `<think>maybe {"x":0}</think>{"a":1}`, `{"a":1}`, true},
		{"unterminated think", `reasoning {"x":0}</think> {"a":1}`, `{"a":1}`, true},
		{"no object", "nothing here", "", false},
		{"reversed braces", "} {", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
