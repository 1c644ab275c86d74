package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/atotto/clipboard"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/llm"
)

// Clipboard is the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard uses the host clipboard.
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// MemoryClipboard is a process-local clipboard for headless hosts where
// no system clipboard is available.
type MemoryClipboard struct {
	text string
}

func (c *MemoryClipboard) ReadAll() (string, error) { return c.text, nil }

func (c *MemoryClipboard) WriteAll(text string) error {
	c.text = text
	return nil
}

// DefaultClipboard returns the system clipboard when the host has one.
func DefaultClipboard() Clipboard {
	if clipboard.Unsupported {
		return &MemoryClipboard{}
	}
	return SystemClipboard{}
}

type CopyToClipboardParams struct {
	Text string `json:"text" validate:"required" jsonschema:"description=Text to copy"`
}

type ExtractContentParams struct {
	Value string `json:"value" validate:"required,oneof=text markdown" jsonschema:"enum=text,enum=markdown"`
}

var errNoClipboard = errors.New("no clipboard configured")

// RegisterCustomActions adds the clipboard and extraction actions.
func RegisterCustomActions(r *Registry) {
	Register(r, "copy_to_clipboard", "Copy text to the clipboard",
		func(ctx context.Context, rt *Runtime, p *CopyToClipboardParams) (llm.ActionOutcome, error) {
			if rt.Clipboard == nil {
				return llm.ActionOutcome{}, newActionError(CodeClipboardError, "copy_to_clipboard", errNoClipboard)
			}
			if err := rt.Clipboard.WriteAll(p.Text); err != nil {
				return llm.ActionOutcome{}, newActionError(CodeClipboardError, "copy_to_clipboard", err)
			}
			return llm.ActionOutcome{ExtractedContent: p.Text}, nil
		})

	Register(r, "paste_from_clipboard", "Paste what's in the clipboard into the focused element",
		func(ctx context.Context, rt *Runtime, _ *NoParams) (llm.ActionOutcome, error) {
			if rt.Clipboard == nil {
				return llm.ActionOutcome{}, newActionError(CodeClipboardError, "paste_from_clipboard", errNoClipboard)
			}
			text, err := rt.Clipboard.ReadAll()
			if err != nil {
				return llm.ActionOutcome{}, newActionError(CodeClipboardError, "paste_from_clipboard", err)
			}
			if err := rt.Driver.TypeText(ctx, text); err != nil {
				return llm.ActionOutcome{}, classify("paste_from_clipboard", CodeExecutionFailure, err)
			}
			return llm.ActionOutcome{ExtractedContent: text}, nil
		})

	Register(r, "extract_content", "Extract the page content as text or markdown",
		func(ctx context.Context, rt *Runtime, p *ExtractContentParams) (llm.ActionOutcome, error) {
			content, err := extractContent(ctx, rt, p.Value)
			if err != nil {
				return llm.ActionOutcome{}, err
			}
			return llm.ActionOutcome{
				ExtractedContent: fmt.Sprintf("Page content (%s):\n%s", p.Value, content),
				IncludeInMemory:  true,
			}, nil
		})
}

func extractContent(ctx context.Context, rt *Runtime, format string) (string, error) {
	if format == "text" {
		text, err := rt.Driver.PageText(ctx)
		if err != nil {
			return "", classify("extract_content", CodeExecutionFailure, err)
		}
		return strings.TrimSpace(text), nil
	}

	html, err := rt.Driver.PageHTML(ctx)
	if err != nil {
		return "", classify("extract_content", CodeExecutionFailure, err)
	}
	markdown, err := HTMLToMarkdown(html)
	if err != nil {
		return "", newActionError(CodeExecutionFailure, "extract_content", err)
	}
	return markdown, nil
}

// HTMLToMarkdown converts a page to markdown, dropping scripts and styles.
func HTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, nil)
	converter.Remove("script", "style", "noscript")
	out, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html: %w", err)
	}
	return strings.TrimSpace(out), nil
}
