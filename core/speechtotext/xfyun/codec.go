// Package xfyun speaks the xfyun streaming dictation (iat) protocol.
package xfyun

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/transport"
	"github.com/koscakluka/ema-interview/core/xfyun"
)

const (
	frameStatusFirst    = 0
	frameStatusContinue = 1
	frameStatusLast     = 2

	audioFormat   = "audio/L16;rate=16000"
	audioEncoding = "raw"
)

type Business struct {
	Language string `json:"language"`
	Domain   string `json:"domain"`
	Accent   string `json:"accent"`
	// VadEOS is the endpoint's own trailing silence in milliseconds.
	VadEOS int `json:"vad_eos,omitempty"`
	// Dwa "wpgs" turns on dynamic correction of earlier fragments.
	Dwa string `json:"dwa,omitempty"`
	Ptt int    `json:"ptt,omitempty"`
}

func DefaultBusiness() Business {
	return Business{
		Language: "zh_cn",
		Domain:   "iat",
		Accent:   "mandarin",
		VadEOS:   10000,
		Dwa:      "wpgs",
		Ptt:      1,
	}
}

// Codec implements [speechtotext.Codec] for xfyun iat. It assembles the
// per-sentence fragments, applying dynamic corrections, so every decoded
// result carries the whole transcript so far.
type Codec struct {
	appID    string
	business Business

	fragments map[int]string
}

type CodecOption func(*Codec)

func WithBusiness(business Business) CodecOption {
	return func(c *Codec) { c.business = business }
}

func NewCodec(creds xfyun.Credentials, opts ...CodecOption) *Codec {
	c := &Codec{
		appID:     creds.AppID,
		business:  DefaultBusiness(),
		fragments: map[int]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Codec) Reset() {
	c.fragments = map[int]string{}
}

type common struct {
	AppID string `json:"app_id"`
}

type frameData struct {
	Status   int    `json:"status"`
	Format   string `json:"format"`
	Encoding string `json:"encoding"`
	Audio    string `json:"audio"`
}

type frameRequest struct {
	Common   *common   `json:"common,omitempty"`
	Business *Business `json:"business,omitempty"`
	Data     frameData `json:"data"`
}

func (c *Codec) EncodeFrame(frame []byte, marker speechtotext.FrameMarker) ([]transport.Message, error) {
	req := frameRequest{
		Data: frameData{
			Format:   audioFormat,
			Encoding: audioEncoding,
			Audio:    base64.StdEncoding.EncodeToString(frame),
		},
	}

	switch marker {
	case speechtotext.FrameStart:
		business := c.business
		req.Common = &common{AppID: c.appID}
		req.Business = &business
		req.Data.Status = frameStatusFirst
	case speechtotext.FrameContinue:
		req.Data.Status = frameStatusContinue
	case speechtotext.FrameEnd:
		req.Data.Status = frameStatusLast
	default:
		return nil, fmt.Errorf("unknown frame marker %d", marker)
	}

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
		Status int `json:"status"`
		Result *struct {
			Sn  int    `json:"sn"`
			Ls  bool   `json:"ls"`
			Pgs string `json:"pgs"`
			Rg  []int  `json:"rg"`
			Ws  []struct {
				Cw []struct {
					W string `json:"w"`
				} `json:"cw"`
			} `json:"ws"`
		} `json:"result"`
	} `json:"data"`
}

func (c *Codec) Decode(msg transport.Message) (speechtotext.Result, bool, error) {
	if msg.Binary {
		return speechtotext.Result{}, false, nil
	}

	var resp response
	if err := json.Unmarshal(msg.Data, &resp); err != nil {
		return speechtotext.Result{}, false, fmt.Errorf("error unmarshalling JSON: %w", err)
	}

	if resp.Code != 0 {
		return speechtotext.Result{Code: resp.Code, Message: resp.Message}, true, nil
	}
	if resp.Data == nil {
		return speechtotext.Result{}, false, nil
	}

	if result := resp.Data.Result; result != nil {
		var fragment strings.Builder
		for _, word := range result.Ws {
			for _, candidate := range word.Cw {
				fragment.WriteString(candidate.W)
			}
		}

		if result.Pgs == "rpl" && len(result.Rg) == 2 {
			for sn := result.Rg[0]; sn <= result.Rg[1]; sn++ {
				delete(c.fragments, sn)
			}
		}
		c.fragments[result.Sn] = fragment.String()
	}

	status := speechtotext.StatusInterim
	switch resp.Data.Status {
	case frameStatusFirst:
		status = speechtotext.StatusStart
	case frameStatusLast:
		status = speechtotext.StatusFinal
	}

	return speechtotext.Result{Status: status, Text: c.text()}, true, nil
}

func (c *Codec) text() string {
	sns := make([]int, 0, len(c.fragments))
	for sn := range c.fragments {
		sns = append(sns, sn)
	}
	sort.Ints(sns)

	var text strings.Builder
	for _, sn := range sns {
		text.WriteString(c.fragments[sn])
	}
	return text.String()
}
