package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEvaluation(t *testing.T) {
	tests := []struct {
		in   string
		want Evaluation
	}{
		{"", Evaluation{}},
		{"Success - clicked login", Evaluation{Status: EvalSuccess, Explanation: "clicked login"}},
		{"failed: wrong password", Evaluation{Status: EvalFailed, Explanation: "wrong password"}},
		{"Unknown", Evaluation{Status: EvalUnknown}},
		{"Successfully typed the name", Evaluation{Status: EvalSuccess, Explanation: "typed the name"}},
		{"Successful: form sent", Evaluation{Status: EvalSuccess, Explanation: "form sent"}},
		{"Failure - the page did not load", Evaluation{Status: EvalFailed, Explanation: "the page did not load"}},
		{"fail", Evaluation{Status: EvalFailed}},
		{"Successive clicks opened the menu", Evaluation{Status: EvalUnknown, Explanation: "Successive clicks opened the menu"}},
		{"no idea", Evaluation{Status: EvalUnknown, Explanation: "no idea"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseEvaluation(tt.in))
		})
	}
}

func TestParseCompletion(t *testing.T) {
	assert.Equal(t, Completion{Status: CompletionYes, Reason: "all fields submitted"}, ParseCompletion("Yes - all fields submitted"))
	assert.Equal(t, Completion{Status: CompletionNo}, ParseCompletion("no"))
	assert.Equal(t, Completion{Status: CompletionYes}, ParseCompletion("true"))
	assert.Equal(t, CompletionUnknown, ParseCompletion("maybe later").Status)
	assert.True(t, ParseCompletion("YES").Done())
}

func TestStepState_AdvanceAndDone(t *testing.T) {
	s := NewStepState("task", "hint", 2)
	assert.False(t, s.Exhausted())

	s.Advance()
	s.Advance()
	s.Advance()
	assert.Equal(t, 2, s.StepNumber)
	assert.True(t, s.Exhausted())

	assert.True(t, s.MarkDone())
	assert.False(t, s.MarkDone())
	assert.True(t, s.IsDone())
}

func TestStepState_ApplyDecision(t *testing.T) {
	s := NewStepState("task", "", 10)
	s.ApplyDecision(DecisionRecord{State: SelfCritiqueState{
		PrevActionEvaluation: "Failed - captcha",
		ImportantContents:    "price is 12 EUR",
		TaskProgress:         " 1. opened ",
		FuturePlans:          "1. buy",
	}})
	assert.Equal(t, "price is 12 EUR", s.Memory)
	assert.Equal(t, "1. opened", s.TaskProgress)
	assert.Equal(t, EvalFailed, s.PrevActionEvaluation.Status)

	// delegated decisions leave critique fields to the monitor
	s.ApplyDecision(DecisionRecord{State: DelegatedState{Thought: "x"}})
	assert.Equal(t, "1. opened", s.TaskProgress)
	assert.Equal(t, "1. buy", s.FuturePlans)

	s.ApplyDecision(DecisionRecord{State: MinimalState{ImportantContents: "stock: 3"}})
	assert.Equal(t, "price is 12 EUR\nstock: 3", s.Memory)
}

func TestStepState_ApplyAudit(t *testing.T) {
	s := NewStepState("task", "", 10)
	s.FuturePlans = "1. old plan"

	s.ApplyAudit(AuditRecord{
		PrevActionEvaluation: Evaluation{Status: EvalSuccess, Explanation: "logged in"},
		TaskProgress:         []string{"open site", " ", "log in"},
		ImportantContents:    []string{"user: bob"},
	})

	assert.Equal(t, "1. open site\n2. log in", s.TaskProgress)
	assert.Equal(t, "1. old plan", s.FuturePlans)
	assert.Equal(t, "user: bob", s.Memory)
	assert.Equal(t, "Success - logged in", s.PrevActionEvaluation.String())
}

func TestStepState_RecordParseFailure(t *testing.T) {
	s := NewStepState("task", "", 10)
	s.StepNumber = 4
	s.RecordParseFailure("missing \"action\" key")
	assert.Equal(t, "Step 5: your previous reply was rejected: missing \"action\" key", s.Memory)

	v := s.View()
	assert.Equal(t, "task", v.Task)
	assert.Equal(t, 4, v.StepNumber)
	assert.False(t, v.IsDone)
}
