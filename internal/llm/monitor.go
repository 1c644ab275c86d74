package llm

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
)

// MonitorInput is everything the monitor sees for one audit.
type MonitorInput struct {
	Task     string
	Step     int
	MaxSteps int
	Snapshot *browser.Snapshot
	Actions  []ActionCommand
	Results  []ActionResult
}

// MonitorPrompt builds the read-only auditor's message pair.
type MonitorPrompt struct {
	IncludeAttributes []string
	UseVision         bool
	MaxErrorLength    int
}

func (p MonitorPrompt) Messages(in MonitorInput) []Message {
	return []Message{TextMessage(RoleSystem, monitorSystemPrompt), p.Observation(in)}
}

// Observation renders the monitor's view of step in.Step. The step counter
// is shown one-based.
func (p MonitorPrompt) Observation(in MonitorInput) Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "1. Current Step: %d/%d\n", in.Step+1, in.MaxSteps)
	fmt.Fprintf(&sb, "2. Task: %s\n", strings.TrimSpace(in.Task))

	sb.WriteString("3. Previous actions:\n")
	if len(in.Results) == 0 && len(in.Actions) == 0 {
		sb.WriteString("none\n")
	} else {
		sb.WriteString(formatMonitorActions(in.Actions, in.Results, p.MaxErrorLength))
		sb.WriteString("\n")
	}

	sb.WriteString("4. Interactive Elements:\n")
	if in.Snapshot != nil {
		if in.Snapshot.URL != "" {
			fmt.Fprintf(&sb, "Current URL: %s\n", in.Snapshot.URL)
		}
		sb.WriteString(RenderElements(in.Snapshot, p.IncludeAttributes))
	} else {
		sb.WriteString(EmptyPage)
	}

	text := sb.String()
	if p.UseVision && in.Snapshot.HasScreenshot() {
		return Message{Role: RoleUser, Parts: []ContentPart{
			{Type: PartText, Text: text},
			{Type: PartImage, ImageURL: PNGDataURL(in.Snapshot.Screenshot)},
		}}
	}
	return TextMessage(RoleUser, text)
}

// formatMonitorActions differs from FormatResults in that errors are always
// shown: the monitor's job is to judge them.
func formatMonitorActions(actions []ActionCommand, results []ActionResult, maxErr int) string {
	n := len(actions)
	if len(results) > n {
		n = len(results)
	}
	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		line := fmt.Sprintf("Action %d/%d", i+1, n)
		if i < len(actions) {
			line += ": " + actions[i].String()
		}
		if i < len(results) {
			r := results[i]
			switch {
			case r.Error != "":
				line += " | Error: " + TruncateError(r.Error, maxErr)
			case r.ExtractedContent != "":
				line += " | Result: " + r.ExtractedContent
			}
		} else {
			line += " | not executed"
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// ParseAudit decodes a monitor completion. Missing list fields are empty;
// an absent verdict is Unknown.
func ParseAudit(raw string) (AuditRecord, error) {
	fail := func(err error, format string, args ...any) (AuditRecord, error) {
		return AuditRecord{}, &SchemaError{Reason: fmt.Sprintf(format, args...), Raw: raw, Err: err}
	}

	body, ok := ExtractJSON(raw)
	if !ok {
		return fail(nil, "no JSON object in monitor reply")
	}
	var m map[string]jsoniter.RawMessage
	if err := json.UnmarshalFromString(body, &m); err != nil {
		return fail(err, "monitor reply is not a JSON object")
	}

	var audit AuditRecord
	if v, ok := m[fieldPrevEvaluation]; ok {
		s, err := flexString(v)
		if err != nil {
			return fail(err, "field %q", fieldPrevEvaluation)
		}
		audit.PrevActionEvaluation = ParseEvaluation(s)
	}

	lists := []struct {
		keys []string
		dst  *[]string
	}{
		{[]string{fieldImportantContents}, &audit.ImportantContents},
		{[]string{fieldTaskProgress}, &audit.TaskProgress},
		{[]string{fieldFuturePlans, "plans"}, &audit.FuturePlans},
	}
	for _, l := range lists {
		for _, k := range l.keys {
			v, ok := m[k]
			if !ok {
				continue
			}
			items, err := flexStrings(v)
			if err != nil {
				return fail(err, "field %q", k)
			}
			*l.dst = items
			break
		}
	}

	audit.IsDone = Completion{Status: CompletionUnknown}
	if v, ok := m[fieldIsDone]; ok && !isNull(v) {
		var b bool
		if err := json.Unmarshal(v, &b); err == nil {
			if b {
				audit.IsDone = Completion{Status: CompletionYes}
			} else {
				audit.IsDone = Completion{Status: CompletionNo}
			}
		} else {
			s, err := flexString(v)
			if err != nil {
				return fail(err, "field %q", fieldIsDone)
			}
			audit.IsDone = ParseCompletion(s)
		}
	}
	return audit, nil
}
