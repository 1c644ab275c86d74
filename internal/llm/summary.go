package llm

import (
	"context"
	"fmt"
	"strings"
)

// SummaryInput is the run digest handed to the summarizing model.
type SummaryInput struct {
	Task       string
	ExitReason string
	Duration   string
	FinalURL   string
	Steps      []string
	// Audit is the last monitor verdict, if any.
	Audit *AuditRecord
}

// Summarize asks client for a short human-readable report on a finished run.
func Summarize(ctx context.Context, client Client, input SummaryInput) (string, error) {
	var sb strings.Builder
	sb.WriteString("TASK:\n" + input.Task + "\n\n")
	sb.WriteString("EXIT_REASON:\n" + input.ExitReason + "\n\n")
	sb.WriteString("DURATION:\n" + input.Duration + "\n\n")

	if input.FinalURL != "" {
		sb.WriteString("FINAL_URL:\n" + input.FinalURL + "\n\n")
	}

	if len(input.Steps) > 0 {
		sb.WriteString("STEPS:\n")
		for _, s := range input.Steps {
			sb.WriteString(s + "\n")
		}
	}

	if a := input.Audit; a != nil {
		sb.WriteString("\nMONITOR:\n")
		fmt.Fprintf(&sb, "evaluation: %s\n", a.PrevActionEvaluation)
		fmt.Fprintf(&sb, "is_done: %s\n", a.IsDone)
		if len(a.TaskProgress) > 0 {
			sb.WriteString("progress:\n" + numbered(a.TaskProgress) + "\n")
		}
	}

	out, err := client.Complete(ctx, []Message{
		TextMessage(RoleSystem, summarySystemPrompt),
		TextMessage(RoleUser, sb.String()),
	})
	if err != nil {
		return "", fmt.Errorf("summary: %w", err)
	}
	return strings.TrimSpace(out), nil
}
