package llm

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is a model endpoint: it takes an ordered list of messages and
// returns the raw completion text.
type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image_url"
)

// ContentPart is one piece of a multimodal message. Image parts carry a
// data URL.
type ContentPart struct {
	Type     PartType
	Text     string
	ImageURL string
}

// Message is a chat message. Plain text messages have a single text part.
type Message struct {
	Role  Role
	Parts []ContentPart
}

// TextMessage builds a text-only message.
func TextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []ContentPart{{Type: PartText, Text: text}}}
}

// Text concatenates the text parts of m.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// HasImage reports whether m carries an image part.
func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == PartImage {
			return true
		}
	}
	return false
}

// Variant selects the shape of current_state the acting model produces.
type Variant int

const (
	// VariantMinimal asks for important_contents, thought and summary.
	VariantMinimal Variant = iota + 1
	// VariantSelfCritique additionally asks the model to evaluate its
	// previous actions and restate progress and plans every step.
	VariantSelfCritique
	// VariantDelegated asks only for thought and summary; evaluation,
	// progress and plans come from the monitor.
	VariantDelegated
)

func (v Variant) String() string {
	switch v {
	case VariantMinimal:
		return "v1"
	case VariantSelfCritique:
		return "v2"
	case VariantDelegated:
		return "v3"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant accepts "v1", "v2" or "v3" (case-insensitive).
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "v1", "minimal":
		return VariantMinimal, nil
	case "v2", "self-critique":
		return VariantSelfCritique, nil
	case "v3", "delegated":
		return VariantDelegated, nil
	default:
		return 0, fmt.Errorf("unknown protocol variant %q", s)
	}
}

// Fields lists the current_state keys the variant requires, in prompt order.
func (v Variant) Fields() []string {
	switch v {
	case VariantMinimal:
		return []string{fieldImportantContents, fieldThought, fieldSummary}
	case VariantSelfCritique:
		return []string{fieldPrevEvaluation, fieldImportantContents, fieldTaskProgress, fieldFuturePlans, fieldThought, fieldSummary}
	case VariantDelegated:
		return []string{fieldThought, fieldSummary}
	default:
		return nil
	}
}

const (
	fieldPrevEvaluation    = "prev_action_evaluation"
	fieldImportantContents = "important_contents"
	fieldTaskProgress      = "task_progress"
	fieldFuturePlans       = "future_plans"
	fieldThought           = "thought"
	fieldSummary           = "summary"
	fieldIsDone            = "is_done"
)

// CurrentState is the model's structured assessment for one step. It is a
// closed union of MinimalState, SelfCritiqueState and DelegatedState.
type CurrentState interface {
	Variant() Variant
	ThoughtText() string
	SummaryText() string
}

type MinimalState struct {
	ImportantContents string `json:"important_contents"`
	Thought           string `json:"thought"`
	Summary           string `json:"summary"`
}

type SelfCritiqueState struct {
	PrevActionEvaluation string `json:"prev_action_evaluation"`
	ImportantContents    string `json:"important_contents"`
	TaskProgress         string `json:"task_progress"`
	FuturePlans          string `json:"future_plans"`
	Thought              string `json:"thought"`
	Summary              string `json:"summary"`
}

type DelegatedState struct {
	Thought string `json:"thought"`
	Summary string `json:"summary"`
}

func (MinimalState) Variant() Variant { return VariantMinimal }
func (s MinimalState) ThoughtText() string { return s.Thought }
func (s MinimalState) SummaryText() string { return s.Summary }
func (SelfCritiqueState) Variant() Variant { return VariantSelfCritique }
func (s SelfCritiqueState) ThoughtText() string { return s.Thought }
func (s SelfCritiqueState) SummaryText() string { return s.Summary }
func (DelegatedState) Variant() Variant { return VariantDelegated }
func (s DelegatedState) ThoughtText() string { return s.Thought }
func (s DelegatedState) SummaryText() string { return s.Summary }

// ActionCommand is one decoded entry of the model's action list. Params is
// the typed parameter value produced by the action schema.
type ActionCommand struct {
	Name   string
	Params any
	Raw    jsoniter.RawMessage
}

// Indexed is implemented by parameter types that target an element.
type Indexed interface {
	ElementIndex() int
}

// Index returns the element index the command targets, if any.
func (c ActionCommand) Index() (int, bool) {
	if p, ok := c.Params.(Indexed); ok {
		return p.ElementIndex(), true
	}
	return 0, false
}

// MarshalJSON renders the command in the same single-key form the model
// uses: {"click_element": {"index": 3}}.
func (c ActionCommand) MarshalJSON() ([]byte, error) {
	raw := c.Raw
	if len(raw) == 0 {
		if c.Params == nil {
			raw = jsoniter.RawMessage("{}")
		} else {
			b, err := json.Marshal(c.Params)
			if err != nil {
				return nil, err
			}
			raw = b
		}
	}
	return json.Marshal(map[string]jsoniter.RawMessage{c.Name: raw})
}

// UnmarshalJSON restores a command from its single-key form. Params stay
// nil; they are only rebuilt through an ActionSchema.
func (c *ActionCommand) UnmarshalJSON(data []byte) error {
	var m map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if len(m) != 1 {
		return fmt.Errorf("action must have exactly one key, got %d", len(m))
	}
	for name, raw := range m {
		c.Name = name
		c.Raw = raw
	}
	return nil
}

// String is the serialized form shown back to models.
func (c ActionCommand) String() string {
	b, err := c.MarshalJSON()
	if err != nil {
		return c.Name
	}
	return string(b)
}

// DecisionRecord is one parsed reply of the acting model.
type DecisionRecord struct {
	State   CurrentState
	IsDone  bool
	Actions []ActionCommand
}

// ActionOutcome is what the environment reports after executing an action.
type ActionOutcome struct {
	ExtractedContent string
	IncludeInMemory  bool
	// Navigated is set by actions that always replace the page (navigation,
	// tab switches).
	Navigated bool
}

// ActionResult is the per-action record kept between steps.
type ActionResult struct {
	ExtractedContent string `json:"extracted_content,omitempty"`
	Error            string `json:"error,omitempty"`
	IncludeInMemory  bool   `json:"include_in_memory"`
	IsDone           bool   `json:"is_done,omitempty"`
}

// Failed reports whether the action ended with an error.
func (r ActionResult) Failed() bool {
	return r.Error != ""
}
