// Package deepgram speaks Deepgram's live transcription protocol.
package deepgram

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/transport"
)

const listenURL = "wss://api.deepgram.com/v1/listen"

type ListenOptions struct {
	Model    string
	Language string
	// Endpointing is the endpoint's own pause detection in milliseconds.
	Endpointing int

	EncodingInfo audio.EncodingInfo
}

func DefaultListenOptions() ListenOptions {
	return ListenOptions{
		Model:        "nova-2",
		Language:     "zh-CN",
		Endpointing:  300,
		EncodingInfo: audio.GetDefaultEncodingInfo(),
	}
}

// ListenURL builds the streaming endpoint address for options.
func ListenURL(options ListenOptions) (string, error) {
	encoding, err := listenEncoding(options.EncodingInfo)
	if err != nil {
		return "", fmt.Errorf("invalid encoding: %w", err)
	}

	listenUrl, _ := url.Parse(listenURL)
	queryParams := listenUrl.Query()
	queryParams.Set("encoding", encoding)
	queryParams.Set("sample_rate", strconv.Itoa(options.EncodingInfo.SampleRate))
	queryParams.Set("channels", "1")
	queryParams.Set("model", options.Model)
	queryParams.Set("language", options.Language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("utterance_end_ms", "1000")
	queryParams.Set("vad_events", "true")
	queryParams.Set("endpointing", strconv.Itoa(options.Endpointing))
	listenUrl.RawQuery = queryParams.Encode()

	return listenUrl.String(), nil
}

// NewTransport returns a websocket transport authenticated with apiKey.
func NewTransport(apiKey string, options ListenOptions) *transport.Websocket {
	return transport.NewWebsocket("deepgram-listen",
		func() (string, error) {
			if apiKey == "" {
				return "", fmt.Errorf("deepgram api key not found")
			}
			return ListenURL(options)
		},
		transport.WithHeader(http.Header{"Authorization": {"Token " + apiKey}}),
	)
}
