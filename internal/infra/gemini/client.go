package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"voicechat/internal/domain"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"
)

var errNoContent = errors.New("no generated content in response")

type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	logger     *slog.Logger
}

func NewClient(apiKey, model string, logger *slog.Logger) *Client {
	return NewClientWithURL(apiKey, model, DefaultBaseURL, logger)
}

// NewClientWithURL builds a client against baseURL. The HTTP client has no
// timeout: a request that never answers stalls the caller.
func NewClientWithURL(apiKey, model, baseURL string, logger *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, r *http.Request) string {
				return operationName + " " + r.URL.Path
			}),
		)},
		baseURL: baseURL,
		model:   model,
		logger:  logger,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type request struct {
	Contents []content `json:"contents"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

// Ask sends question as a single-shot generateContent request. It makes
// exactly one attempt and always returns text: the generated reply,
// domain.FallbackAnswer when the body holds no usable content, or
// domain.NetworkErrorAnswer when the request fails or the body is not JSON.
func (c *Client) Ask(ctx context.Context, question string) string {
	ctx, span := tracer.Start(ctx, "gemini.ask")
	defer span.End()
	span.SetAttributes(attribute.String("gemini.model", c.model))

	answer, err := c.generate(ctx, question)
	switch {
	case errors.Is(err, errNoContent):
		span.SetAttributes(attribute.Bool("answer.fallback", true))
		c.logger.Warn("gemini returned no usable content", "error", err)
		return domain.FallbackAnswer
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("answer.fallback", true))
		c.logger.Warn("gemini request failed", "error", err)
		return domain.NetworkErrorAnswer
	}

	return answer
}

func (c *Client) generate(ctx context.Context, question string) (string, error) {
	bodyBytes, err := json.Marshal(request{
		Contents: []content{{Parts: []part{{Text: question}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	// Status is not checked: an error body that is valid JSON simply has no
	// candidates and falls through to the no-content case.
	var result *response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}
	// A JSON null is not a response document.
	if result == nil {
		return "", fmt.Errorf("decoding response (status %d): null body", resp.StatusCode)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%w: gemini error %d: %s", errNoContent, result.Error.Code, result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errNoContent
	}

	text := result.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("%w: empty text", errNoContent)
	}

	return text, nil
}
