package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorPrompt_Observation(t *testing.T) {
	p := MonitorPrompt{}
	msgs := p.Messages(MonitorInput{
		Task:     "log in as bob",
		Step:     2,
		MaxSteps: 10,
		Snapshot: loginSnapshot(),
		Actions: []ActionCommand{
			{Name: "input_text", Params: indexParams{Index: 1, Text: "bob"}},
			{Name: "click_element", Params: indexParams{Index: 2}},
		},
		Results: []ActionResult{
			{Error: "invalid password", IncludeInMemory: false},
		},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.NotContains(t, msgs[0].Text(), "Functions:")

	text := msgs[1].Text()
	assert.True(t, strings.HasPrefix(text, "1. Current Step: 3/10\n2. Task: log in as bob\n"))
	// errors are always shown to the monitor
	assert.Contains(t, text, "Action 1/2: ")
	assert.Contains(t, text, " | Error: invalid password")
	assert.Contains(t, text, "Action 2/2: ")
	assert.Contains(t, text, " | not executed")
	assert.Contains(t, text, "[Start of page]")
}

func TestMonitorPrompt_NoPreviousActions(t *testing.T) {
	text := MonitorPrompt{}.Observation(MonitorInput{Task: "t", MaxSteps: 3}).Text()
	assert.Contains(t, text, "3. Previous actions:\nnone\n")
	assert.True(t, strings.HasSuffix(text, EmptyPage))
}

func TestParseAudit(t *testing.T) {
	raw := "```json\n" + `{
		"prev_action_evaluation": "Failed - the password was rejected",
		"important_contents": "error banner shown",
		"task_progress": ["opened login page"],
		"plans": ["retry with the right password"],
		"is_done": "No - not logged in"
	}` + "\n```"

	a, err := ParseAudit(raw)
	require.NoError(t, err)
	assert.Equal(t, EvalFailed, a.PrevActionEvaluation.Status)
	assert.Equal(t, "the password was rejected", a.PrevActionEvaluation.Explanation)
	assert.Equal(t, []string{"error banner shown"}, a.ImportantContents)
	assert.Equal(t, []string{"opened login page"}, a.TaskProgress)
	assert.Equal(t, []string{"retry with the right password"}, a.FuturePlans)
	assert.Equal(t, Completion{Status: CompletionNo, Reason: "not logged in"}, a.IsDone)
}

func TestParseAudit_BoolDoneAndDefaults(t *testing.T) {
	a, err := ParseAudit(`{"is_done": true, "future_plans": []}`)
	require.NoError(t, err)
	assert.True(t, a.IsDone.Done())
	assert.True(t, a.PrevActionEvaluation.IsZero())
	assert.Empty(t, a.FuturePlans)

	a, err = ParseAudit(`{"prev_action_evaluation": "Unknown - first step"}`)
	require.NoError(t, err)
	assert.Equal(t, CompletionUnknown, a.IsDone.Status)
}

func TestParseAudit_NullFields(t *testing.T) {
	a, err := ParseAudit(`{
		"prev_action_evaluation": null,
		"important_contents": null,
		"task_progress": ["opened login page"],
		"future_plans": null,
		"is_done": null
	}`)
	require.NoError(t, err)
	assert.True(t, a.PrevActionEvaluation.IsZero())
	assert.Nil(t, a.ImportantContents)
	assert.Equal(t, []string{"opened login page"}, a.TaskProgress)
	assert.Nil(t, a.FuturePlans)
	assert.Equal(t, CompletionUnknown, a.IsDone.Status)
}

func TestParseAudit_Errors(t *testing.T) {
	_, err := ParseAudit("the agent did fine")
	assert.True(t, IsSchemaError(err))

	_, err = ParseAudit(`{"task_progress": 42}`)
	assert.True(t, IsSchemaError(err))
}
