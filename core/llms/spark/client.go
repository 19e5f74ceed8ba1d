// Package spark generates interview replies with the iFlytek Spark chat
// completions API.
package spark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/koscakluka/ema-interview/core/faults"
	"github.com/koscakluka/ema-interview/core/llms"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Client struct {
	apiKey  string
	options ClientOptions
	client  *http.Client

	tokens metric.Int64Counter
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	options := defaultClientOptions()
	for _, opt := range opts {
		opt(&options)
	}

	client := options.HTTPClient
	if client == nil {
		client = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	tokens, err := meter.Int64Counter("spark.tokens",
		metric.WithDescription("Tokens used by Spark completions"),
		metric.WithUnit("{token}"))
	if err != nil {
		logger.Warn("failed to create token counter", "error", err)
	}

	return &Client{
		apiKey:  apiKey,
		options: options,
		client:  client,
		tokens:  tokens,
	}
}

type requestBody struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type responseBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Sid     string `json:"sid"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

// Generate makes one completion request for history. Failures wrap
// [faults.ErrGeneration]; retrying is left to the caller.
func (c *Client) Generate(ctx context.Context, history []llms.Message) (llms.Reply, error) {
	ctx, span := tracer.Start(ctx, "generate reply")
	defer span.End()

	reply, err := c.generate(ctx, history)
	if err != nil {
		err = fmt.Errorf("%w: %w", faults.ErrGeneration, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llms.Reply{}, err
	}
	return reply, nil
}

func (c *Client) generate(ctx context.Context, history []llms.Message) (llms.Reply, error) {
	span := trace.SpanFromContext(ctx)

	messages, err := toMessages(history)
	if err != nil {
		return llms.Reply{}, fmt.Errorf("failed to convert history: %w", err)
	}
	if c.options.StructuredReply {
		instructions, err := structuredInstructions()
		if err != nil {
			return llms.Reply{}, err
		}
		messages = withInstructions(messages, instructions)
	}

	requestBodyBytes, err := json.Marshal(requestBody{
		Model:       c.options.Model,
		Messages:    messages,
		Temperature: c.options.Temperature,
		MaxTokens:   c.options.MaxTokens,
	})
	if err != nil {
		return llms.Reply{}, fmt.Errorf("error marshalling JSON: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.options.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.options.URL, bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return llms.Reply{}, fmt.Errorf("error creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	span.SetAttributes(
		attribute.String("request.model", c.options.Model),
		attribute.Int("request.messages", len(messages)),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return llms.Reply{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("response.status_code", resp.StatusCode))
	respBodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return llms.Reply{}, fmt.Errorf("error reading response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		span.SetAttributes(attribute.String("response.error", string(respBodyBytes)))
		return llms.Reply{}, fmt.Errorf("non-OK HTTP status: %s", resp.Status)
	}

	var body responseBody
	if err := json.Unmarshal(respBodyBytes, &body); err != nil {
		return llms.Reply{}, fmt.Errorf("error unmarshalling response: %w", err)
	}
	if body.Code != 0 {
		return llms.Reply{}, fmt.Errorf("spark returned code %d: %s", body.Code, body.Message)
	}
	if len(body.Choices) == 0 {
		return llms.Reply{}, fmt.Errorf("spark returned no choices")
	}
	if body.Usage != nil && c.tokens != nil {
		c.tokens.Add(ctx, body.Usage.PromptTokens, metric.WithAttributes(attribute.String("kind", "prompt")))
		c.tokens.Add(ctx, body.Usage.CompletionTokens, metric.WithAttributes(attribute.String("kind", "completion")))
	}

	content := body.Choices[0].Message.Content
	if c.options.StructuredReply {
		return parseReply(content), nil
	}
	return llms.Reply{Text: content}, nil
}
