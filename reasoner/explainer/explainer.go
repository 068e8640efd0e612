// Package explainer decorates a reasoning backend with plain-language
// summaries of inconsistency explanations, produced by an
// OpenAI-compatible chat completion endpoint (OpenAI, LocalAI, vLLM,
// Ollama and similar).
//
// Reasoning itself is never delegated to the model. The backend's own
// explanation lines are kept verbatim and the summary is appended after
// them. When the endpoint fails, the backend's lines are returned alone.
package explainer

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/c360/semreason/errors"
	"github.com/c360/semreason/reasoner"
	"github.com/c360/semreason/triple"
)

// SummaryPrefix marks the line carrying the model's summary.
const SummaryPrefix = "summary: "

const systemPrompt = "You explain logical inconsistencies found by an ontology reasoner. " +
	"Given the reasoner's derivation lines, reply with two or three plain sentences naming " +
	"the conflicting facts and the axiom they violate. Do not invent facts."

// Config configures the decorator.
type Config struct {
	// BaseURL of the OpenAI-compatible API, e.g. "http://localhost:8080/v1".
	BaseURL string
	// Model used for chat completions.
	Model string
	// APIKey, optional for local services.
	APIKey string
	// Timeout for each HTTP request (default 30s).
	Timeout time.Duration
	// MaxLines caps how many explanation lines are sent (default 50).
	MaxLines int
	// MaxTokens caps the summary length (default 256).
	MaxTokens int
	Logger    *slog.Logger
}

// Backend wraps another backend.
type Backend struct {
	inner     reasoner.Backend
	client    *openai.Client
	model     string
	maxLines  int
	maxTokens int
	logger    *slog.Logger
}

var (
	_ reasoner.Backend   = (*Backend)(nil)
	_ reasoner.Explainer = (*Backend)(nil)
)

// New wraps inner.
func New(inner reasoner.Backend, cfg Config) (*Backend, error) {
	if inner == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Explainer", "New", "inner backend is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Explainer", "New", "base_url is required")
	}
	if cfg.Model == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "Explainer", "New", "model is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "unused" // local services ignore it
	}

	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	b := &Backend{
		inner:     inner,
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxLines:  cfg.MaxLines,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
	if b.maxLines <= 0 {
		b.maxLines = 50
	}
	if b.maxTokens <= 0 {
		b.maxTokens = 256
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	b.logger = b.logger.With("component", "llm-explainer", "model", cfg.Model)
	return b, nil
}

// Name implements reasoner.Backend.
func (b *Backend) Name() string {
	return b.inner.Name() + "+llm"
}

// Reason implements reasoner.Backend.
func (b *Backend) Reason(ctx context.Context, ds triple.Dataset, cfg reasoner.Configuration) (*reasoner.Result, error) {
	return b.inner.Reason(ctx, ds, cfg)
}

// CheckConsistency implements reasoner.Backend.
func (b *Backend) CheckConsistency(ctx context.Context, ds triple.Dataset) (bool, error) {
	return b.inner.CheckConsistency(ctx, ds)
}

// UnsatisfiableEntities implements reasoner.Backend.
func (b *Backend) UnsatisfiableEntities(ctx context.Context, ds triple.Dataset) ([]string, error) {
	return b.inner.UnsatisfiableEntities(ctx, ds)
}

// ExplainInconsistency implements reasoner.Backend. The inner backend's
// lines come first, followed by one SummaryPrefix line when the model
// answered.
func (b *Backend) ExplainInconsistency(ctx context.Context, ds triple.Dataset) ([]string, error) {
	lines, err := b.inner.ExplainInconsistency(ctx, ds)
	if err != nil && !stderrors.Is(err, errors.ErrCapabilityUnsupported) {
		return nil, err
	}
	if len(lines) == 0 {
		return lines, err
	}

	summary, sumErr := b.summarize(ctx, lines)
	if sumErr != nil {
		b.logger.Warn("Explanation summary unavailable", "error", sumErr)
		return lines, nil
	}
	return append(lines, SummaryPrefix+summary), nil
}

// ExplainTriple implements reasoner.Explainer by delegating to the inner
// backend when it can justify triples.
func (b *Backend) ExplainTriple(ctx context.Context, ds triple.Dataset, t triple.Triple) ([]string, error) {
	if ex, ok := b.inner.(reasoner.Explainer); ok {
		return ex.ExplainTriple(ctx, ds, t)
	}
	return []string{
		fmt.Sprintf("Triple %s was inferred through reasoning", t),
		fmt.Sprintf("Backend %s does not report derivations", b.inner.Name()),
	}, nil
}

func (b *Backend) summarize(ctx context.Context, lines []string) (string, error) {
	sent := lines
	if len(sent) > b.maxLines {
		sent = sent[:b.maxLines]
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.model,
		MaxTokens:   b.maxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: strings.Join(sent, "\n")},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	summary := strings.Join(strings.Fields(resp.Choices[0].Message.Content), " ")
	if summary == "" {
		return "", fmt.Errorf("chat completion returned an empty message")
	}
	return summary, nil
}
