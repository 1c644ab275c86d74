package llm

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/browser"
)

// DefaultMaxErrorLength bounds how much of an action error is shown back to
// the model.
const DefaultMaxErrorLength = 400

// EmptyPage replaces an empty element listing.
const EmptyPage = "empty page"

const (
	startOfPage = "[Start of page]"
	endOfPage   = "[End of page]"
)

// CatalogSource renders the available actions and their parameters.
type CatalogSource interface {
	Describe() string
}

type AssemblerConfig struct {
	Variant           Variant
	MaxActionsPerStep int
	MaxErrorLength    int
	IncludeAttributes []string
	UseVision         bool
	// Now stamps the instruction message. Defaults to time.Now.
	Now func() time.Time
}

// Assembler turns a snapshot and the step state into the message pair sent
// to the acting model. The instruction message is built once.
type Assembler struct {
	cfg         AssemblerConfig
	instruction Message
}

func NewAssembler(cfg AssemblerConfig, catalog CatalogSource) *Assembler {
	if cfg.MaxErrorLength <= 0 {
		cfg.MaxErrorLength = DefaultMaxErrorLength
	}
	if cfg.MaxActionsPerStep <= 0 {
		cfg.MaxActionsPerStep = 10
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	a := &Assembler{cfg: cfg}
	a.instruction = TextMessage(RoleSystem, a.buildInstruction(catalog.Describe()))
	return a
}

// Instruction returns the cached instruction message.
func (a *Assembler) Instruction() Message {
	return a.instruction
}

// Assemble returns the instruction and observation messages for one step.
func (a *Assembler) Assemble(snap *browser.Snapshot, state *StepState, results []ActionResult, actions []ActionCommand) (Message, Message) {
	return a.instruction, a.Observation(snap, state, results, actions)
}

func (a *Assembler) buildInstruction(catalog string) string {
	var sb strings.Builder
	sb.WriteString(agentPreamble)
	sb.WriteString("\n\nCurrent date and time: ")
	sb.WriteString(a.cfg.Now().Format("2006-01-02 15:04"))
	sb.WriteString("\n\nINPUT STRUCTURE:\n")
	sb.WriteString(a.inputLegend())
	sb.WriteString("\n\nIMPORTANT RULES:\n")
	sb.WriteString(a.responseFormat())
	sb.WriteString("\n\n")
	sb.WriteString(actionRules)
	fmt.Fprintf(&sb, "\n   - use maximum %d actions per sequence", a.cfg.MaxActionsPerStep)
	sb.WriteString("\n\nFunctions:\n")
	sb.WriteString(catalog)
	sb.WriteString("\n\nRemember: Your responses must be valid JSON matching the specified format. Each action in the sequence must be valid.")
	return sb.String()
}

// observationFields lists the step state labels the variant shows.
func (a *Assembler) observationFields() []string {
	fields := []string{"Task", "Hints(Optional)", "Memory"}
	if a.cfg.Variant != VariantMinimal {
		fields = append(fields, "Task Progress", "Future Plans", "Previous Action Evaluation")
	}
	return fields
}

var legendText = map[string]string{
	"Task":                       "The user's instructions you need to complete.",
	"Hints(Optional)":            "Hints to help you complete the user's instructions.",
	"Memory":                     "Important contents recorded during previous steps.",
	"Task Progress":              "What has been completed so far.",
	"Future Plans":               "The remaining steps planned to complete the task.",
	"Previous Action Evaluation": "Whether the previous actions succeeded.",
	"Current URL":                "The webpage you're currently on.",
	"Available Tabs":             "List of open browser tabs.",
}

func (a *Assembler) inputLegend() string {
	var sb strings.Builder
	n := 0
	for _, label := range append(a.observationFields(), "Current URL", "Available Tabs") {
		n++
		fmt.Fprintf(&sb, "%d. %s: %s\n", n, label, legendText[label])
	}
	n++
	fmt.Fprintf(&sb, "%d. Interactive Elements: List in the format:\n%s\n", n, elementLegend)
	sb.WriteString("\nFields with no content are left out, and the remaining fields are renumbered.\n")
	sb.WriteString("After the elements, one line per action of your previous step shows the action and, where relevant, its result or error.")
	return sb.String()
}

func (a *Assembler) responseFormat() string {
	var sb strings.Builder
	sb.WriteString("1. RESPONSE FORMAT: You must ALWAYS respond with valid JSON in this exact format:\n")
	sb.WriteString("   {\n     \"current_state\": {\n")
	fields := a.cfg.Variant.Fields()
	for i, f := range fields {
		sep := ","
		if i == len(fields)-1 {
			sep = ""
		}
		fmt.Fprintf(&sb, "       %q: %q%s\n", f, fieldDescriptions[f], sep)
	}
	sb.WriteString("     },\n")
	sb.WriteString("     \"action\": [\n       {\n         \"action_name\": {\n           // action-specific parameters\n         }\n       },\n       // ... more actions in sequence\n     ]\n   }")
	return sb.String()
}

// Observation renders the per-step message.
func (a *Assembler) Observation(snap *browser.Snapshot, state *StepState, results []ActionResult, actions []ActionCommand) Message {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Current Step: %d/%d\n", state.StepNumber+1, state.MaxSteps)

	n := 0
	field := func(label, value string, block bool) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		n++
		if block {
			fmt.Fprintf(&sb, "%d. %s:\n%s\n", n, label, value)
			return
		}
		fmt.Fprintf(&sb, "%d. %s: %s\n", n, label, value)
	}

	field("Task", state.Task(), false)
	field("Hints(Optional)", state.Hints(), true)
	field("Memory", state.Memory, true)
	if a.cfg.Variant != VariantMinimal {
		field("Task Progress", state.TaskProgress, true)
		field("Future Plans", state.FuturePlans, true)
		field("Previous Action Evaluation", state.PrevActionEvaluation.String(), false)
	}
	field("Current URL", snap.URL, false)
	field("Available Tabs", formatTabs(snap.Tabs), true)
	n++
	fmt.Fprintf(&sb, "%d. Interactive elements:\n%s\n", n, RenderElements(snap, a.cfg.IncludeAttributes))

	if len(results) > 0 {
		sb.WriteString("\n")
		sb.WriteString(FormatResults(results, actions, a.cfg.MaxErrorLength))
	}

	text := strings.TrimRight(sb.String(), "\n")
	if a.cfg.UseVision && snap.HasScreenshot() {
		return Message{Role: RoleUser, Parts: []ContentPart{
			{Type: PartText, Text: text},
			{Type: PartImage, ImageURL: PNGDataURL(snap.Screenshot)},
		}}
	}
	return TextMessage(RoleUser, text)
}

// RenderElements renders the element listing with page boundary markers or
// scroll hints. An empty listing renders as EmptyPage.
func RenderElements(snap *browser.Snapshot, include []string) string {
	listing := snap.ClickableElementsToString(include)
	if listing == "" {
		return EmptyPage
	}

	var sb strings.Builder
	if snap.PixelsAbove > 0 {
		fmt.Fprintf(&sb, "... %d pixels above — scroll or extract to see more ...\n", snap.PixelsAbove)
	} else {
		sb.WriteString(startOfPage + "\n")
	}
	sb.WriteString(listing)
	if snap.PixelsBelow > 0 {
		fmt.Fprintf(&sb, "\n... %d pixels below — scroll or extract to see more ...", snap.PixelsBelow)
	} else {
		sb.WriteString("\n" + endOfPage)
	}
	return sb.String()
}

func formatTabs(tabs []browser.Tab) string {
	if len(tabs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tabs))
	for _, t := range tabs {
		parts = append(parts, fmt.Sprintf("{page_id: %d, url: %s, title: %s}", t.PageID, t.URL, t.Title))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// FormatResults renders one line per result in order. Content and errors are
// shown only for results kept in memory.
func FormatResults(results []ActionResult, actions []ActionCommand, maxErrorLength int) string {
	lines := make([]string, 0, len(results))
	for i, r := range results {
		line := fmt.Sprintf("Action %d/%d", i+1, len(results))
		if i < len(actions) {
			line += ": " + actions[i].String()
		}
		if r.IncludeInMemory {
			switch {
			case r.Error != "":
				line += " | Error: " + TruncateError(r.Error, maxErrorLength)
			case r.ExtractedContent != "":
				line += " | Result: " + r.ExtractedContent
			}
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// TruncateError keeps the last max characters of msg, prefixed with "...",
// when msg is longer than max.
func TruncateError(msg string, max int) string {
	if max <= 0 {
		max = DefaultMaxErrorLength
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return "..." + string(runes[len(runes)-max:])
}

// PNGDataURL inlines a PNG image as a data URL.
func PNGDataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
