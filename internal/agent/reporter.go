package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// Reporter logs the per-step trace and the end-of-run report. When a
// summarizer is set, the report carries a model-written summary.
type Reporter struct {
	summarizer llm.Client
	logger     *zap.Logger
}

func NewReporter(summarizer llm.Client, logger *zap.Logger) *Reporter {
	return &Reporter{summarizer: summarizer, logger: logger.Named("reporter")}
}

// StepTrace renders one history record as a single line.
func StepTrace(rec StepRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "STEP %d | URL=%s", rec.Step, rec.URL)
	if rec.ParseError != "" {
		fmt.Fprintf(&sb, " | REJECTED=%s", rec.ParseError)
		return sb.String()
	}
	if rec.CurrentState != nil {
		fmt.Fprintf(&sb, " | SUMMARY=%s", rec.CurrentState.SummaryText())
	}
	for i, a := range rec.Actions {
		fmt.Fprintf(&sb, " | ACTION=%s", a.String())
		if i < len(rec.Results) && rec.Results[i].Failed() {
			fmt.Fprintf(&sb, " ERROR=%s", llm.TruncateError(rec.Results[i].Error, 120))
		}
	}
	if rec.Audit != nil {
		fmt.Fprintf(&sb, " | MONITOR=%s; done=%s", rec.Audit.PrevActionEvaluation, rec.Audit.IsDone)
	}
	return sb.String()
}

// Report logs the outcome of res and returns the model summary, if any.
func (r *Reporter) Report(ctx context.Context, res *RunResult) string {
	reason := humanizeReason(res.Status, res.Err)
	r.logger.Info("Execution report",
		zap.String("run_id", res.RunID),
		zap.String("task", res.State.Task),
		zap.String("status", string(res.Status)),
		zap.String("exit_reason", reason),
		zap.Duration("duration", res.Duration),
		zap.Int("steps", res.State.StepNumber),
		zap.String("final_content", res.FinalContent),
	)

	trace := make([]string, 0, len(res.History))
	for _, rec := range res.History {
		line := StepTrace(rec)
		trace = append(trace, line)
		r.logger.Info(line)
	}

	if r.summarizer == nil {
		return ""
	}

	var finalURL string
	if n := len(res.History); n > 0 {
		finalURL = res.History[n-1].URL
	}
	summary, err := llm.Summarize(ctx, r.summarizer, llm.SummaryInput{
		Task:       res.State.Task,
		ExitReason: reason,
		Duration:   res.Duration.String(),
		FinalURL:   finalURL,
		Steps:      trace,
		Audit:      res.Audit,
	})
	if err != nil {
		r.logger.Warn("Failed to generate summary", zap.Error(err))
		return ""
	}
	r.logger.Info("Run summary", zap.String("summary", summary))
	return summary
}
