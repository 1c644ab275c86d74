package llm

import (
	"errors"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// ActionSchema decodes and validates the parameters of one action kind.
type ActionSchema interface {
	Decode(name string, raw []byte) (any, error)
}

// SchemaError reports a completion that does not match the expected
// envelope, variant or action schema.
type SchemaError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error: %s: %v", e.Reason, e.Err)
	}
	return "schema error: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

// IsSchemaError reports whether err is, or wraps, a *SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}

// Parser decodes acting-model completions for one protocol variant.
type Parser struct {
	variant Variant
	schema  ActionSchema
}

func NewParser(variant Variant, schema ActionSchema) *Parser {
	return &Parser{variant: variant, schema: schema}
}

// Parse validates raw and returns the decision it describes. Unknown keys
// are ignored. Parse performs no I/O.
func (p *Parser) Parse(raw string) (DecisionRecord, error) {
	fail := func(err error, format string, args ...any) (DecisionRecord, error) {
		return DecisionRecord{}, &SchemaError{Reason: fmt.Sprintf(format, args...), Raw: raw, Err: err}
	}

	body, ok := ExtractJSON(raw)
	if !ok {
		return fail(nil, "no JSON object in reply")
	}

	var envelope map[string]jsoniter.RawMessage
	if err := json.UnmarshalFromString(body, &envelope); err != nil {
		return fail(err, "reply is not a JSON object")
	}

	csRaw, ok := envelope["current_state"]
	if !ok {
		return fail(nil, "missing %q key", "current_state")
	}
	actRaw, ok := envelope["action"]
	if !ok {
		return fail(nil, "missing %q key", "action")
	}

	var cs map[string]jsoniter.RawMessage
	if isNull(csRaw) {
		return fail(nil, "current_state must be an object")
	}
	if err := json.Unmarshal(csRaw, &cs); err != nil || cs == nil {
		return fail(err, "current_state must be an object")
	}

	values := make(map[string]string, len(p.variant.Fields()))
	for _, f := range p.variant.Fields() {
		v, ok := cs[f]
		if !ok {
			return fail(nil, "current_state is missing %q required by %s", f, p.variant)
		}
		s, err := flexString(v)
		if err != nil {
			return fail(err, "current_state field %q", f)
		}
		values[f] = s
	}

	decision := DecisionRecord{State: p.buildState(values)}

	doneRaw, ok := cs[fieldIsDone]
	if !ok {
		doneRaw, ok = envelope[fieldIsDone]
	}
	if ok {
		done, err := flexBool(doneRaw)
		if err != nil {
			return fail(err, "field %q", fieldIsDone)
		}
		decision.IsDone = done
	}

	var entries []jsoniter.RawMessage
	if !isNull(actRaw) {
		if err := json.Unmarshal(actRaw, &entries); err != nil {
			return fail(err, "action must be a list")
		}
	}
	for i, entry := range entries {
		var m map[string]jsoniter.RawMessage
		if err := json.Unmarshal(entry, &m); err != nil {
			return fail(err, "action %d must be an object", i+1)
		}
		if len(m) != 1 {
			return fail(nil, "action %d must name exactly one action, got %d keys", i+1, len(m))
		}
		for name, params := range m {
			if isNull(params) {
				params = jsoniter.RawMessage("{}")
			}
			value, err := p.schema.Decode(name, params)
			if err != nil {
				return fail(err, "action %d (%s)", i+1, name)
			}
			decision.Actions = append(decision.Actions, ActionCommand{Name: name, Params: value, Raw: params})
		}
	}
	if len(decision.Actions) == 0 && !decision.IsDone {
		return fail(nil, "action list is empty")
	}
	return decision, nil
}

func (p *Parser) buildState(v map[string]string) CurrentState {
	switch p.variant {
	case VariantMinimal:
		return MinimalState{
			ImportantContents: v[fieldImportantContents],
			Thought:           v[fieldThought],
			Summary:           v[fieldSummary],
		}
	case VariantSelfCritique:
		return SelfCritiqueState{
			PrevActionEvaluation: v[fieldPrevEvaluation],
			ImportantContents:    v[fieldImportantContents],
			TaskProgress:         v[fieldTaskProgress],
			FuturePlans:          v[fieldFuturePlans],
			Thought:              v[fieldThought],
			Summary:              v[fieldSummary],
		}
	default:
		return DelegatedState{Thought: v[fieldThought], Summary: v[fieldSummary]}
	}
}

// isNull reports whether raw holds a JSON null. jsoniter decodes a null
// member of a RawMessage map as an empty message rather than the literal.
func isNull(raw jsoniter.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

// flexString accepts a string, a list of strings (joined by newlines) or
// null.
func flexString(raw jsoniter.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return "", fmt.Errorf("must be a string or a list of strings")
	}
	return strings.Join(list, "\n"), nil
}

// flexStrings accepts a list of strings or a single string.
func flexStrings(raw jsoniter.RawMessage) ([]string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("must be a list of strings or a string")
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	return []string{s}, nil
}

// flexBool accepts a JSON boolean or the strings "true"/"false"/"yes"/"no".
func flexBool(raw jsoniter.RawMessage) (bool, error) {
	if isNull(raw) {
		return false, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return false, fmt.Errorf("must be a boolean")
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes":
		return true, nil
	case "false", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("must be a boolean, got %q", s)
}
