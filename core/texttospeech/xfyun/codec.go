// Package xfyun speaks the xfyun online speech synthesis (tts) protocol.
package xfyun

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/koscakluka/ema-interview/core/texttospeech"
	"github.com/koscakluka/ema-interview/core/transport"
	"github.com/koscakluka/ema-interview/core/xfyun"
)

const statusLast = 2

type Business struct {
	// Aue is the audio encoding, "raw" is PCM.
	Aue    string `json:"aue"`
	Auf    string `json:"auf"`
	Vcn    string `json:"vcn"`
	Tte    string `json:"tte"`
	Speed  int    `json:"speed"`
	Volume int    `json:"volume"`
	Pitch  int    `json:"pitch"`
}

func DefaultBusiness() Business {
	return Business{
		Aue:    "raw",
		Auf:    "audio/L16;rate=16000",
		Vcn:    "x4_xiaoyan",
		Tte:    "utf8",
		Speed:  50,
		Volume: 50,
		Pitch:  50,
	}
}

// Codec implements [texttospeech.Codec] for xfyun tts. The endpoint serves
// one request per connection, so pair it with
// [texttospeech.WithReconnectPerSegment].
type Codec struct {
	appID    string
	business Business
}

type CodecOption func(*Codec)

func WithBusiness(business Business) CodecOption {
	return func(c *Codec) { c.business = business }
}

func NewCodec(creds xfyun.Credentials, opts ...CodecOption) *Codec {
	c := &Codec{appID: creds.AppID, business: DefaultBusiness()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	Common struct {
		AppID string `json:"app_id"`
	} `json:"common"`
	Business Business `json:"business"`
	Data     struct {
		Status int    `json:"status"`
		Text   string `json:"text"`
	} `json:"data"`
}

func (c *Codec) EncodeText(text string) ([]transport.Message, error) {
	var req request
	req.Common.AppID = c.appID
	req.Business = c.business
	req.Data.Status = statusLast
	req.Data.Text = base64.StdEncoding.EncodeToString([]byte(text))

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}
	return []transport.Message{transport.Text(payload)}, nil
}

type response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Sid     string `json:"sid"`
	Data    *struct {
		Audio  string `json:"audio"`
		Status int    `json:"status"`
	} `json:"data"`
}

func (c *Codec) Decode(msg transport.Message) (texttospeech.Frame, bool, error) {
	if msg.Binary {
		return texttospeech.Frame{}, false, nil
	}

	var resp response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return texttospeech.Frame{}, false, fmt.Errorf("error unmarshalling JSON: %w", err)
	}
	if resp.Code != 0 {
		return texttospeech.Frame{Code: resp.Code, Message: resp.Message}, true, nil
	}
	if resp.Data == nil {
		return texttospeech.Frame{}, false, nil
	}

	audio, err := base64.StdEncoding.DecodeString(resp.Data.Audio)
	if err != nil {
		return texttospeech.Frame{}, false, fmt.Errorf("failed to decode audio: %w", err)
	}
	return texttospeech.Frame{Audio: audio, Last: resp.Data.Status == statusLast}, true, nil
}

// NewTransport returns a websocket transport that signs every dial with
// creds.
func NewTransport(creds xfyun.Credentials) *transport.Websocket {
	return transport.NewWebsocket("xfyun-tts", xfyun.URLFunc(xfyun.SynthesisURL, creds))
}
