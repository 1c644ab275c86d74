package llm

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

type EvalStatus string

const (
	EvalSuccess EvalStatus = "Success"
	EvalFailed  EvalStatus = "Failed"
	EvalUnknown EvalStatus = "Unknown"
)

// Evaluation is a verdict on the previous step's actions.
type Evaluation struct {
	Status      EvalStatus `json:"status,omitempty"`
	Explanation string     `json:"explanation,omitempty"`
}

// ParseEvaluation reads free text such as "Failed - the login form
// rejected the password". Text without a recognised status is Unknown.
func ParseEvaluation(text string) Evaluation {
	text = strings.TrimSpace(text)
	if text == "" {
		return Evaluation{}
	}
	for _, form := range evalForms {
		if hasWordPrefix(text, form.word) {
			return Evaluation{Status: form.status, Explanation: trimSeparator(text[len(form.word):])}
		}
	}
	return Evaluation{Status: EvalUnknown, Explanation: text}
}

// evalForms lists the leading words read as a status. Longer forms come
// first so "Successfully" is not cut at "Success".
var evalForms = []struct {
	word   string
	status EvalStatus
}{
	{"Successfully", EvalSuccess},
	{"Successful", EvalSuccess},
	{"Succeeded", EvalSuccess},
	{"Success", EvalSuccess},
	{"Failure", EvalFailed},
	{"Failed", EvalFailed},
	{"Failing", EvalFailed},
	{"Fail", EvalFailed},
	{"Unknown", EvalUnknown},
}

// hasWordPrefix reports whether text starts with word followed by a
// non-letter or the end of the string.
func hasWordPrefix(text, word string) bool {
	if len(text) < len(word) || !strings.EqualFold(text[:len(word)], word) {
		return false
	}
	if len(text) == len(word) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[len(word):])
	return !unicode.IsLetter(r)
}

func trimSeparator(s string) string {
	return strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(s), "-:.,"))
}

// IsZero reports whether no evaluation has been recorded.
func (e Evaluation) IsZero() bool {
	return e.Status == "" && e.Explanation == ""
}

func (e Evaluation) String() string {
	switch {
	case e.IsZero():
		return ""
	case e.Explanation == "":
		return string(e.Status)
	default:
		return fmt.Sprintf("%s - %s", e.Status, e.Explanation)
	}
}

type CompletionStatus string

const (
	CompletionYes     CompletionStatus = "Yes"
	CompletionNo      CompletionStatus = "No"
	CompletionUnknown CompletionStatus = "Unknown"
)

// Completion is the monitor's tri-state opinion on whether the task is done.
type Completion struct {
	Status CompletionStatus `json:"status"`
	Reason string           `json:"reason,omitempty"`
}

// Done reports an affirmative verdict.
func (c Completion) Done() bool {
	return c.Status == CompletionYes
}

func (c Completion) String() string {
	if c.Reason == "" {
		return string(c.Status)
	}
	return fmt.Sprintf("%s - %s", c.Status, c.Reason)
}

// ParseCompletion reads "Yes - reason", "No", "unknown: reason" and similar.
func ParseCompletion(text string) Completion {
	text = strings.TrimSpace(text)
	for _, st := range []CompletionStatus{CompletionYes, CompletionNo, CompletionUnknown} {
		if hasWordPrefix(text, string(st)) {
			return Completion{Status: st, Reason: trimSeparator(text[len(st):])}
		}
	}
	switch strings.ToLower(text) {
	case "true":
		return Completion{Status: CompletionYes}
	case "false":
		return Completion{Status: CompletionNo}
	}
	return Completion{Status: CompletionUnknown, Reason: text}
}

// AuditRecord is the monitor's read-only verdict on the run so far.
type AuditRecord struct {
	PrevActionEvaluation Evaluation `json:"prev_action_evaluation"`
	ImportantContents    []string   `json:"important_contents,omitempty"`
	TaskProgress         []string   `json:"task_progress,omitempty"`
	FuturePlans          []string   `json:"future_plans,omitempty"`
	IsDone               Completion `json:"is_done"`
}

// StepState is the durable context of one run. A single AgentLoop owns it;
// the coordinator merges monitor audits into it between steps.
type StepState struct {
	StepNumber           int
	MaxSteps             int
	Memory               string
	TaskProgress         string
	FuturePlans          string
	PrevActionEvaluation Evaluation

	task  string
	hints string
	done  bool
}

// NewStepState starts a run at step zero.
func NewStepState(task, hints string, maxSteps int) *StepState {
	if maxSteps < 0 {
		maxSteps = 0
	}
	return &StepState{task: task, hints: hints, MaxSteps: maxSteps}
}

func (s *StepState) Task() string  { return s.task }
func (s *StepState) Hints() string { return s.hints }
func (s *StepState) IsDone() bool  { return s.done }

// Exhausted reports whether the step budget is spent.
func (s *StepState) Exhausted() bool {
	return s.StepNumber >= s.MaxSteps
}

// Advance moves to the next step without ever passing MaxSteps.
func (s *StepState) Advance() {
	if s.StepNumber < s.MaxSteps {
		s.StepNumber++
	}
}

// MarkDone flips the completion flag. It returns false if the run was
// already done.
func (s *StepState) MarkDone() bool {
	if s.done {
		return false
	}
	s.done = true
	return true
}

// AppendMemory adds a line to the model-visible memory.
func (s *StepState) AppendMemory(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if s.Memory != "" {
		s.Memory += "\n"
	}
	s.Memory += text
}

// ApplyDecision merges the model's current_state into s.
func (s *StepState) ApplyDecision(d DecisionRecord) {
	switch st := d.State.(type) {
	case MinimalState:
		s.AppendMemory(st.ImportantContents)
	case SelfCritiqueState:
		s.AppendMemory(st.ImportantContents)
		s.TaskProgress = strings.TrimSpace(st.TaskProgress)
		s.FuturePlans = strings.TrimSpace(st.FuturePlans)
		s.PrevActionEvaluation = ParseEvaluation(st.PrevActionEvaluation)
	case DelegatedState:
		// evaluation, progress and plans arrive through ApplyAudit
	}
}

// ApplyAudit merges a monitor verdict into s. Empty lists leave the current
// values untouched.
func (s *StepState) ApplyAudit(a AuditRecord) {
	if !a.PrevActionEvaluation.IsZero() {
		s.PrevActionEvaluation = a.PrevActionEvaluation
	}
	for _, c := range a.ImportantContents {
		s.AppendMemory(c)
	}
	if len(a.TaskProgress) > 0 {
		s.TaskProgress = numbered(a.TaskProgress)
	}
	if len(a.FuturePlans) > 0 {
		s.FuturePlans = numbered(a.FuturePlans)
	}
}

// RecordParseFailure reflects a rejected reply back into memory so the model
// sees its own mistake on the next step.
func (s *StepState) RecordParseFailure(reason string) {
	s.AppendMemory(fmt.Sprintf("Step %d: your previous reply was rejected: %s", s.StepNumber+1, reason))
}

func numbered(items []string) string {
	var sb strings.Builder
	n := 0
	for _, it := range items {
		it = strings.TrimSpace(it)
		if it == "" {
			continue
		}
		n++
		if n > 1 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%d. %s", n, it)
	}
	return sb.String()
}

// StateView is the serializable copy of a StepState kept in run history.
type StateView struct {
	StepNumber           int        `json:"step_number"`
	MaxSteps             int        `json:"max_steps"`
	Task                 string     `json:"task"`
	Hints                string     `json:"hints,omitempty"`
	Memory               string     `json:"memory,omitempty"`
	TaskProgress         string     `json:"task_progress,omitempty"`
	FuturePlans          string     `json:"future_plans,omitempty"`
	PrevActionEvaluation Evaluation `json:"prev_action_evaluation"`
	IsDone               bool       `json:"is_done"`
}

// View copies s for history or for a concurrently running reader.
func (s *StepState) View() StateView {
	return StateView{
		StepNumber:           s.StepNumber,
		MaxSteps:             s.MaxSteps,
		Task:                 s.task,
		Hints:                s.hints,
		Memory:               s.Memory,
		TaskProgress:         s.TaskProgress,
		FuturePlans:          s.FuturePlans,
		PrevActionEvaluation: s.PrevActionEvaluation,
		IsDone:               s.done,
	}
}
