package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/koscakluka/gisa/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultURL   = "https://api.groq.com/openai/v1/chat/completions"
	DefaultModel = "llama-3.3-70b-versatile"
)

var ErrMissingAPIKey = errors.New("groq api key not found")

// Client generates replies through Groq's OpenAI-compatible chat
// completions endpoint.
type Client struct {
	apiKey     string
	model      string
	url        string
	options    llms.GenerationOptions
	httpClient *http.Client
}

type ClientOption func(*Client)

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) { c.apiKey = apiKey }
}

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithURL(url string) ClientOption {
	return func(c *Client) { c.url = url }
}

func WithGenerationOptions(opts ...llms.GenerationOption) ClientOption {
	return func(c *Client) {
		for _, opt := range opts {
			opt(&c.options)
		}
	}
}

// NewClient falls back to GROQ_API_KEY when no key is given.
func NewClient(opts ...ClientOption) (*Client, error) {
	client := &Client{
		model:   DefaultModel,
		url:     defaultURL,
		options: llms.NewGenerationOptions(llms.WithTemperature(0.7), llms.WithMaxOutputTokens(500)),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithSpanNameFormatter(func(operationName string, request *http.Request) string {
				return operationName + " " + request.URL.Path
			}),
		)},
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.apiKey == "" {
		apiKey, ok := os.LookupEnv("GROQ_API_KEY")
		if !ok || apiKey == "" {
			return nil, ErrMissingAPIKey
		}
		client.apiKey = apiKey
	}

	return client, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float32  `json:"temperature,omitempty"`
	TopP        *float32  `json:"top_p,omitempty"`
	MaxTokens   int32     `json:"max_completion_tokens,omitempty"`
}

type responseBody struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

func (c *Client) Generate(ctx context.Context, messages []llms.Message) (*llms.Response, error) {
	ctx, span := tracer.Start(ctx, "generate groq response")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	fail := func(err error) (*llms.Response, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var wireMessages []message
	if err := copier.Copy(&wireMessages, messages); err != nil {
		return fail(fmt.Errorf("error converting messages: %w", err))
	}

	requestBodyBytes, err := json.Marshal(requestBody{
		Model:       c.model,
		Messages:    wireMessages,
		Temperature: c.options.Temperature,
		TopP:        c.options.TopP,
		MaxTokens:   c.options.MaxOutputTokens,
	})
	if err != nil {
		return fail(fmt.Errorf("error marshalling JSON: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return fail(fmt.Errorf("error creating HTTP request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fail(fmt.Errorf("error sending request: %w", err))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		if errorBody, err := io.ReadAll(resp.Body); err == nil {
			span.SetAttributes(attribute.String("response.error", string(errorBody)))
		}
		return fail(fmt.Errorf("non-OK HTTP status: %s", resp.Status))
	}

	var body responseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fail(fmt.Errorf("error decoding response: %w", err))
	}
	if len(body.Choices) == 0 {
		return fail(llms.ErrEmptyResponse)
	}

	text := strings.TrimSpace(body.Choices[0].Message.Content)
	if text == "" {
		return fail(llms.ErrEmptyResponse)
	}
	logger.Debug("groq response received", "model", body.Model, "finish_reason", body.Choices[0].FinishReason)

	return &llms.Response{
		Text: text,
		Metadata: map[string]string{
			"provider":      "groq",
			"model":         body.Model,
			"finish_reason": body.Choices[0].FinishReason,
		},
	}, nil
}
