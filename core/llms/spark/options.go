package spark

import (
	"net/http"
	"time"
)

const (
	defaultURL   = "https://spark-api-open.xf-yun.com/v2/chat/completions"
	defaultModel = "x1"
)

type ClientOptions struct {
	URL         string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	// StructuredReply asks for a JSON reply that states whether the
	// interview is over.
	StructuredReply bool

	HTTPClient *http.Client
}

func defaultClientOptions() ClientOptions {
	return ClientOptions{
		URL:             defaultURL,
		Model:           defaultModel,
		Temperature:     0.7,
		MaxTokens:       2048,
		Timeout:         90 * time.Second,
		StructuredReply: true,
	}
}

type ClientOption func(*ClientOptions)

func WithURL(url string) ClientOption {
	return func(o *ClientOptions) {
		if url != "" {
			o.URL = url
		}
	}
}

func WithModel(model string) ClientOption {
	return func(o *ClientOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

func WithTemperature(temperature float64) ClientOption {
	return func(o *ClientOptions) { o.Temperature = temperature }
}

func WithMaxTokens(maxTokens int) ClientOption {
	return func(o *ClientOptions) {
		if maxTokens > 0 {
			o.MaxTokens = maxTokens
		}
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if timeout > 0 {
			o.Timeout = timeout
		}
	}
}

func WithStructuredReply(structured bool) ClientOption {
	return func(o *ClientOptions) { o.StructuredReply = structured }
}

// WithHTTPClient replaces the instrumented default client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(o *ClientOptions) { o.HTTPClient = client }
}
