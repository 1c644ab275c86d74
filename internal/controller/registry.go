package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	jsoniter "github.com/json-iterator/go"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Runtime is what an executor may touch.
type Runtime struct {
	Driver    browser.Driver
	Clipboard Clipboard
}

// ExecFunc runs one decoded action. params is the pointer produced by the
// spec's parameter factory.
type ExecFunc func(ctx context.Context, rt *Runtime, params any) (llm.ActionOutcome, error)

// ActionSpec describes one action kind.
type ActionSpec struct {
	Name        string
	Description string
	// NewParams returns a pointer to a zero parameter struct.
	NewParams func() any
	Exec      ExecFunc
	// Terminal actions end the action sequence and the run.
	Terminal bool
}

// Registry maps action names to their specs. It is built once at startup
// and read concurrently afterwards.
type Registry struct {
	specs    map[string]ActionSpec
	order    []string
	validate *validator.Validate
}

func NewRegistry() *Registry {
	return &Registry{
		specs:    make(map[string]ActionSpec),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Add registers spec, replacing any action of the same name.
func (r *Registry) Add(spec ActionSpec) {
	if _, exists := r.specs[spec.Name]; !exists {
		r.order = append(r.order, spec.Name)
	}
	r.specs[spec.Name] = spec
}

// Register adds an action whose parameters decode into P.
func Register[P any](r *Registry, name, description string, exec func(ctx context.Context, rt *Runtime, p *P) (llm.ActionOutcome, error)) {
	r.Add(ActionSpec{
		Name:        name,
		Description: description,
		NewParams:   func() any { return new(P) },
		Exec: func(ctx context.Context, rt *Runtime, params any) (llm.ActionOutcome, error) {
			p, ok := params.(*P)
			if !ok {
				return llm.ActionOutcome{}, newActionError(CodeInvalidParameters, name, fmt.Errorf("unexpected params type %T", params))
			}
			return exec(ctx, rt, p)
		},
	})
}

// MarkTerminal flags an already registered action as terminal.
func (r *Registry) MarkTerminal(name string) {
	if spec, ok := r.specs[name]; ok {
		spec.Terminal = true
		r.specs[name] = spec
	}
}

func (r *Registry) Lookup(name string) (ActionSpec, bool) {
	spec, ok := r.specs[name]
	return spec, ok
}

// Names lists registered actions in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// IsTerminal reports whether name is a terminal action.
func (r *Registry) IsTerminal(name string) bool {
	return r.specs[name].Terminal
}

// Decode implements llm.ActionSchema. Unknown fields are ignored; struct
// tags drive validation.
func (r *Registry) Decode(name string, raw []byte) (any, error) {
	spec, ok := r.specs[name]
	if !ok {
		return nil, fmt.Errorf("unknown action %q (available: %s)", name, strings.Join(r.order, ", "))
	}
	params := spec.NewParams()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, params); err != nil {
			return nil, fmt.Errorf("invalid parameters: %w", err)
		}
	}
	if err := r.validate.Struct(params); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid parameters: %s", describeValidation(verrs))
		}
		return nil, fmt.Errorf("invalid parameters: %w", err)
	}
	return params, nil
}

func describeValidation(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

// Describe renders the action catalog shown to the acting model, one entry
// per action:
//
//	click_element: Click the element with the given index
//	{"index":{"type":"integer"}}
func (r *Registry) Describe() string {
	reflector := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}

	entries := make([]string, 0, len(r.order))
	for _, name := range r.order {
		spec := r.specs[name]
		entries = append(entries, fmt.Sprintf("%s: %s\n%s", name, spec.Description, paramsSummary(reflector, spec.NewParams())))
	}
	return strings.Join(entries, "\n")
}

// paramsSummary keeps only the schema keys a model needs, in field order.
func paramsSummary(reflector *jsonschema.Reflector, params any) string {
	schema := reflector.Reflect(params)
	out := orderedmap.New[string, any]()
	if schema.Properties != nil {
		for pair := schema.Properties.Oldest(); pair != nil; pair = pair.Next() {
			prop := orderedmap.New[string, any]()
			prop.Set("type", pair.Value.Type)
			if pair.Value.Description != "" {
				prop.Set("description", pair.Value.Description)
			}
			if len(pair.Value.Enum) > 0 {
				prop.Set("enum", pair.Value.Enum)
			}
			out.Set(pair.Key, prop)
		}
	}
	b, err := out.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(b)
}
