package agent

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StepRecord is one agent step as kept in run history. Its
// {state, actions, results} shape is what the monitor consumes.
type StepRecord struct {
	Step         int                 `json:"step"`
	URL          string              `json:"url,omitempty"`
	CurrentState llm.CurrentState    `json:"current_state,omitempty"`
	State        llm.StateView       `json:"state"`
	Actions      []llm.ActionCommand `json:"actions"`
	Results      []llm.ActionResult  `json:"results"`
	ParseError   string              `json:"parse_error,omitempty"`
	Audit        *llm.AuditRecord    `json:"audit,omitempty"`
	Time         time.Time           `json:"time"`
}

// History is the ordered record of a run.
type History struct {
	mu sync.RWMutex

	RunID        string       `json:"run_id"`
	Task         string       `json:"task"`
	Variant      string       `json:"variant"`
	Status       Status       `json:"status"`
	Reason       string       `json:"reason,omitempty"`
	FinalContent string       `json:"final_content,omitempty"`
	Steps        []StepRecord `json:"steps"`
}

func NewHistory(task string, variant llm.Variant) *History {
	return &History{
		RunID:   uuid.NewString(),
		Task:    task,
		Variant: variant.String(),
		Status:  StatusRunning,
	}
}

func (h *History) Append(rec StepRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Steps = append(h.Steps, rec)
}

// AttachAudit stores audit on the record of the given step. It reports
// false if no such step was recorded.
func (h *History) AttachAudit(step int, audit llm.AuditRecord) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i := len(h.Steps) - 1; i >= 0; i-- {
		if h.Steps[i].Step == step {
			h.Steps[i].Audit = &audit
			return true
		}
	}
	return false
}

// Records returns a copy of the recorded steps.
func (h *History) Records() []StepRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]StepRecord(nil), h.Steps...)
}

// Last returns the latest step, if any.
func (h *History) Last() (StepRecord, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.Steps) == 0 {
		return StepRecord{}, false
	}
	return h.Steps[len(h.Steps)-1], true
}

func (h *History) finish(status Status, reason, final string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Status = status
	h.Reason = reason
	h.FinalContent = final
}

// Save writes the history as indented JSON.
func (h *History) Save(path string) error {
	h.mu.RLock()
	data, err := json.MarshalIndent(h, "", "  ")
	h.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// LoadHistory reads a history saved by Save. Current states are not
// restored.
func LoadHistory(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	var raw struct {
		RunID        string `json:"run_id"`
		Task         string `json:"task"`
		Variant      string `json:"variant"`
		Status       Status `json:"status"`
		Reason       string `json:"reason"`
		FinalContent string `json:"final_content"`
		Steps        []struct {
			Step       int                 `json:"step"`
			URL        string              `json:"url"`
			State      llm.StateView       `json:"state"`
			Actions    []llm.ActionCommand `json:"actions"`
			Results    []llm.ActionResult  `json:"results"`
			ParseError string              `json:"parse_error"`
			Audit      *llm.AuditRecord    `json:"audit"`
			Time       time.Time           `json:"time"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	h := &History{
		RunID:        raw.RunID,
		Task:         raw.Task,
		Variant:      raw.Variant,
		Status:       raw.Status,
		Reason:       raw.Reason,
		FinalContent: raw.FinalContent,
	}
	for _, s := range raw.Steps {
		h.Steps = append(h.Steps, StepRecord{
			Step:       s.Step,
			URL:        s.URL,
			State:      s.State,
			Actions:    s.Actions,
			Results:    s.Results,
			ParseError: s.ParseError,
			Audit:      s.Audit,
			Time:       s.Time,
		})
	}
	return h, nil
}
