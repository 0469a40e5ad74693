package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/koscakluka/gisa/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash-exp"

var ErrMissingAPIKey = errors.New("google api key not found")

type Client struct {
	client  *genai.Client
	model   string
	options llms.GenerationOptions
}

type ClientOption func(*clientConfig)

type clientConfig struct {
	apiKey     string
	model      string
	baseURL    string
	generation []llms.GenerationOption
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *clientConfig) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *clientConfig) { c.model = model }
}

// WithBaseURL points the client at a different Gemini API host.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *clientConfig) { c.baseURL = baseURL }
}

func WithGenerationOptions(opts ...llms.GenerationOption) ClientOption {
	return func(c *clientConfig) { c.generation = append(c.generation, opts...) }
}

// NewClient falls back to GOOGLE_API_KEY when no key is given. Sampling
// defaults to temperature 0.7, topP 0.95, topK 40 and 500 output tokens.
func NewClient(ctx context.Context, opts ...ClientOption) (*Client, error) {
	cfg := clientConfig{model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.apiKey == "" {
		apiKey, ok := os.LookupEnv("GOOGLE_API_KEY")
		if !ok || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		cfg.apiKey = apiKey
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	if cfg.baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.baseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	defaults := []llms.GenerationOption{
		llms.WithTemperature(0.7),
		llms.WithTopP(0.95),
		llms.WithTopK(40),
		llms.WithMaxOutputTokens(500),
	}
	return &Client{
		client:  client,
		model:   cfg.model,
		options: llms.NewGenerationOptions(append(defaults, cfg.generation...)...),
	}, nil
}

func (c *Client) Generate(ctx context.Context, messages []llms.Message) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "generate gemini response")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.model", c.model),
		attribute.Int("request.messages", len(messages)),
	)

	systemInstruction, contents := toContents(messages)
	if len(contents) == 0 {
		err := fmt.Errorf("no conversational messages to send")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, c.generateConfig(systemInstruction))
	if err != nil {
		err = fmt.Errorf("gemini generate: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	response, err := toResponse(resp, c.model)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("response.finish_reason", response.Metadata["finish_reason"]))
	return response, nil
}

func (c *Client) generateConfig(systemInstruction *genai.Content) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: systemInstruction,
		Temperature:       c.options.Temperature,
		TopP:              c.options.TopP,
		TopK:              c.options.TopK,
		MaxOutputTokens:   c.options.MaxOutputTokens,
	}
}

// toContents moves system messages into the system instruction and merges
// consecutive messages from the same role. Gemini expects the conversation
// to open with a user turn, so when the first turn is the model's the
// system prompt is repeated as a user turn ahead of it.
func toContents(messages []llms.Message) (*genai.Content, []*genai.Content) {
	var systemParts []*genai.Part
	var contents []*genai.Content
	for _, msg := range messages {
		if msg.Role == llms.RoleSystem {
			systemParts = append(systemParts, genai.NewPartFromText(msg.Content))
			continue
		}

		role := "user"
		if msg.Role == llms.RoleAssistant {
			role = "model"
		}

		if last := len(contents) - 1; last >= 0 && contents[last].Role == role {
			contents[last].Parts = append(contents[last].Parts, genai.NewPartFromText(msg.Content))
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	var systemInstruction *genai.Content
	if len(systemParts) > 0 {
		systemInstruction = &genai.Content{Parts: systemParts}
		if len(contents) > 0 && contents[0].Role == "model" {
			contents = append([]*genai.Content{{Role: "user", Parts: systemParts}}, contents...)
		}
	}

	return systemInstruction, contents
}

func toResponse(resp *genai.GenerateContentResponse, model string) (*llms.Response, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates: %w", llms.ErrEmptyResponse)
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReasonMaxTokens, "":
	default:
		return nil, fmt.Errorf("unexpected finish reason: %s", candidate.FinishReason)
	}
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		logger.Warn("gemini response truncated at max tokens", "model", model)
	}

	var sb strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, llms.ErrEmptyResponse
	}

	return &llms.Response{
		Text: text,
		Metadata: map[string]string{
			"provider":      "gemini",
			"model":         model,
			"finish_reason": string(candidate.FinishReason),
		},
	}, nil
}
