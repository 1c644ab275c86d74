package agent

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// Monitor is the read-only auditor. It has no access to the environment:
// it only sees the snapshot and the agent's last step it is handed.
type Monitor struct {
	client llm.Client
	prompt llm.MonitorPrompt
	logger *zap.Logger
}

func NewMonitor(client llm.Client, prompt llm.MonitorPrompt, logger *zap.Logger) *Monitor {
	return &Monitor{client: client, prompt: prompt, logger: logger.Named("monitor")}
}

// Audit asks the monitor model for a verdict on in.
func (m *Monitor) Audit(ctx context.Context, in llm.MonitorInput) (llm.AuditRecord, error) {
	start := time.Now()
	raw, err := m.client.Complete(ctx, m.prompt.Messages(in))
	if err != nil {
		return llm.AuditRecord{}, &ModelCallError{Role: "monitor", Err: err}
	}
	audit, err := llm.ParseAudit(raw)
	if err != nil {
		m.logger.Warn("Rejected monitor reply", zap.Int("step", in.Step+1), zap.Error(err))
		return llm.AuditRecord{}, err
	}

	m.logger.Info("Audit",
		zap.Int("step", in.Step+1),
		zap.Duration("duration", time.Since(start)),
		zap.Stringer("evaluation", audit.PrevActionEvaluation),
		zap.Stringer("is_done", audit.IsDone),
		zap.Strings("future_plans", audit.FuturePlans),
	)
	return audit, nil
}
