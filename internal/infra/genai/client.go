// Package genai answers questions through the google.golang.org/genai SDK.
// It honours the same contract as the REST client in package gemini.
package genai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"

	"voicechat/internal/domain"
)

const scopeName = "voicechat/internal/infra/genai"

var tracer = otel.Tracer(scopeName)

type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewClient builds a Gemini API client. baseURL may be empty to use the
// SDK default endpoint.
func NewClient(ctx context.Context, apiKey, model, baseURL string, logger *slog.Logger) (*Client, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}

	httpClient := &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	return &Client{client: client, model: model, logger: logger}, nil
}

// Ask sends question as a single user content with no history. Any SDK
// error yields domain.NetworkErrorAnswer; a response without text yields
// domain.FallbackAnswer.
func (c *Client) Ask(ctx context.Context, question string) string {
	ctx, span := tracer.Start(ctx, "genai.ask")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", c.model))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: question}},
		},
	}, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("genai request failed", "error", err)
		return domain.NetworkErrorAnswer
	}

	if text := firstText(resp); text != "" {
		return text
	}

	span.SetAttributes(attribute.Bool("answer.fallback", true))
	c.logger.Warn("genai returned no usable content")
	return domain.FallbackAnswer
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}
	if part := candidate.Content.Parts[0]; part != nil {
		return part.Text
	}
	return ""
}
