// Package deepgram speaks Deepgram's streaming text to speech protocol.
package deepgram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/texttospeech"
	"github.com/koscakluka/ema-interview/core/transport"
)

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// Codec implements [texttospeech.Codec]. Every segment is a Speak message
// followed by a Flush, and the Flushed reply ends the segment's audio.
type Codec struct{}

func NewCodec() *Codec { return &Codec{} }

func (c *Codec) EncodeText(text string) ([]transport.Message, error) {
	msgs := make([]transport.Message, 0, 2)
	for _, msg := range []websocketMessage{{Type: "Speak", Text: text}, {Type: "Flush"}} {
		payload, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("error marshalling JSON: %w", err)
		}
		msgs = append(msgs, transport.Text(payload))
	}
	return msgs, nil
}

func (c *Codec) Decode(msg transport.Message) (texttospeech.Frame, bool, error) {
	if msg.Binary {
		return texttospeech.Frame{Audio: msg.Data}, len(msg.Data) > 0, nil
	}

	var parsedMsg struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(msg.Data, &parsedMsg); err != nil {
		return texttospeech.Frame{}, false, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	switch parsedMsg.Type {
	case "Flushed":
		return texttospeech.Frame{Last: true}, true, nil
	case "Error":
		return texttospeech.Frame{Code: -1, Message: parsedMsg.Description}, true, nil
	}
	return texttospeech.Frame{}, false, nil
}

// SpeakURL builds the streaming endpoint address for voice and encoding.
func SpeakURL(voice Voice, encodingInfo audio.EncodingInfo) (string, error) {
	if !slices.Contains(GetAvailableVoices(), voice) {
		return "", fmt.Errorf("invalid voice %q", voice)
	}

	urlValues := url.Values{}
	urlValues.Set("encoding", encodingInfo.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(encodingInfo.SampleRate))
	urlValues.Set("model", string(voice))
	urlValues.Set("container", "none")

	return (&url.URL{
		Scheme:   "wss",
		Host:     "api.deepgram.com",
		Path:     "/v1/speak",
		RawQuery: urlValues.Encode(),
	}).String(), nil
}

// NewTransport returns a websocket transport authenticated with apiKey. An
// empty voice selects the default one.
func NewTransport(apiKey string, voice Voice, encodingInfo audio.EncodingInfo) *transport.Websocket {
	if voice == "" {
		voice = defaultVoice
	}
	return transport.NewWebsocket("deepgram-speak",
		func() (string, error) {
			if apiKey == "" {
				return "", fmt.Errorf("deepgram api key not found")
			}
			return SpeakURL(voice, encodingInfo)
		},
		transport.WithHeader(http.Header{"Authorization": {"Token " + apiKey}}),
	)
}
