package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/nbenliogludev/go-browser-agent-monitor/internal/config"
)

// GeminiClient implements Client for the Gemini API.
type GeminiClient struct {
	client *genai.Client
	cfg    config.LLMModelConfig
	logger *zap.Logger
}

func NewGeminiClient(ctx context.Context, cfg config.LLMModelConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API Key is required")
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.APITimeout},
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{
		client: client,
		cfg:    cfg,
		logger: logger.Named("llm.gemini"),
	}, nil
}

// Complete sends system messages as the system instruction and the rest as
// conversation turns.
func (c *GeminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	system, contents, err := toGeminiContents(messages)
	if err != nil {
		return "", err
	}

	temperature := c.cfg.Temperature
	gc := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       &temperature,
	}
	if c.cfg.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}
	if c.cfg.JSONMode {
		gc.ResponseMIMEType = "application/json"
	}

	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 30 * time.Second

	operation := func() (string, error) {
		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, contents, gc)
		if err != nil {
			if ctx.Err() != nil {
				return "", backoff.Permanent(ctx.Err())
			}
			var apiErr genai.APIError
			if errors.As(err, &apiErr) && !retryableStatus(apiErr.Code) {
				return "", backoff.Permanent(fmt.Errorf("gemini: %w", err))
			}
			c.logger.Warn("Model request failed, retrying...", zap.Error(err))
			return "", fmt.Errorf("gemini: %w", err)
		}
		text := resp.Text()
		if text == "" {
			return "", backoff.Permanent(errors.New("gemini: empty response"))
		}
		c.logger.Debug("Model completion received",
			zap.String("model", c.cfg.Model),
			zap.Duration("duration", time.Since(start)),
		)
		return text, nil
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(maxElapsed(c.cfg)),
	)
}

func toGeminiContents(messages []Message) (*genai.Content, []*genai.Content, error) {
	var system *genai.Content
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system == nil {
				system = &genai.Content{}
			}
			system.Parts = append(system.Parts, genai.NewPartFromText(m.Text()))
			continue
		}
		parts := make([]*genai.Part, 0, len(m.Parts))
		for _, p := range m.Parts {
			switch p.Type {
			case PartText:
				parts = append(parts, genai.NewPartFromText(p.Text))
			case PartImage:
				data, mime, err := decodeDataURL(p.ImageURL)
				if err != nil {
					return nil, nil, err
				}
				parts = append(parts, genai.NewPartFromBytes(data, mime))
			}
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return system, contents, nil
}

// decodeDataURL reads "data:<mime>;base64,<payload>".
func decodeDataURL(u string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, "", fmt.Errorf("unsupported image url %q", u)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", fmt.Errorf("malformed data url")
	}
	mime, _, _ := strings.Cut(meta, ";")
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("malformed data url: %w", err)
	}
	return data, mime, nil
}
