package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	var seen []Message
	client := clientFunc(func(ctx context.Context, m []Message) (string, error) {
		seen = m
		return "  The task completed.  ", nil
	})

	out, err := Summarize(context.Background(), client, SummaryInput{
		Task:       "buy milk",
		ExitReason: "done",
		Duration:   "12s",
		FinalURL:   "https://shop.example/cart",
		Steps:      []string{"step 1: click_element"},
		Audit:      &AuditRecord{IsDone: Completion{Status: CompletionYes}, TaskProgress: []string{"added milk"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "The task completed.", out)

	require.Len(t, seen, 2)
	user := seen[1].Text()
	assert.Contains(t, user, "TASK:\nbuy milk")
	assert.Contains(t, user, "FINAL_URL:\nhttps://shop.example/cart")
	assert.Contains(t, user, "is_done: Yes")
	assert.Contains(t, user, "1. added milk")
}

func TestSummarize_Error(t *testing.T) {
	client := clientFunc(func(ctx context.Context, m []Message) (string, error) {
		return "", errors.New("boom")
	})
	_, err := Summarize(context.Background(), client, SummaryInput{Task: "t"})
	assert.ErrorContains(t, err, "boom")
}
