package deepgram

import (
	"encoding/json"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/transport"
)

// errorCode marks endpoint errors, Deepgram reports them without a numeric
// code.
const errorCode = -1

type controlMessage struct {
	Type string `json:"type"`
}

// Codec implements [speechtotext.Codec] for Deepgram live transcription.
// Audio goes out as binary frames, the end of an answer is a Finalize
// request, and the answer is final once the finalized results or the
// following utterance end arrive.
type Codec struct {
	finalizedTranscript string
	started             bool
	finalizing          bool
}

func NewCodec() *Codec {
	return &Codec{}
}

func (c *Codec) Reset() {
	c.finalizedTranscript = ""
	c.started = false
	c.finalizing = false
}

func (c *Codec) EncodeFrame(frame []byte, marker speechtotext.FrameMarker) ([]transport.Message, error) {
	var msgs []transport.Message
	if len(frame) > 0 {
		msgs = append(msgs, transport.Binary(frame))
	}
	if marker != speechtotext.FrameEnd {
		return msgs, nil
	}

	finalize, err := json.Marshal(controlMessage{Type: "Finalize"})
	if err != nil {
		return nil, fmt.Errorf("error marshalling JSON: %w", err)
	}
	c.finalizing = true
	return append(msgs, transport.Text(finalize)), nil
}

func (c *Codec) Decode(msg transport.Message) (speechtotext.Result, bool, error) {
	if msg.Binary {
		return speechtotext.Result{}, false, nil
	}

	var parsedMsg struct {
		Type        string `json:"type"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(msg.Data, &parsedMsg); err != nil {
		return speechtotext.Result{}, false, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg.Data, &msgResp); err != nil {
			return speechtotext.Result{}, false, fmt.Errorf("failed to unmarshal deepgram results: %w", err)
		}
		var finalize struct {
			FromFinalize bool `json:"from_finalize"`
		}
		_ = json.Unmarshal(msg.Data, &finalize)

		transcript := ""
		if len(msgResp.Channel.Alternatives) > 0 {
			transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		text := joinTranscript(c.finalizedTranscript, transcript)
		if msgResp.IsFinal {
			c.finalizedTranscript = text
		}

		status := speechtotext.StatusInterim
		switch {
		case msgResp.IsFinal && (finalize.FromFinalize || (c.finalizing && msgResp.SpeechFinal)):
			status = speechtotext.StatusFinal
		case !c.started:
			status = speechtotext.StatusStart
		}
		c.started = true
		return speechtotext.Result{Status: status, Text: text}, true, nil

	case api.TypeUtteranceEndResponse:
		if !c.finalizing {
			return speechtotext.Result{}, false, nil
		}
		return speechtotext.Result{Status: speechtotext.StatusFinal, Text: c.finalizedTranscript}, true, nil

	case api.TypeSpeechStartedResponse, api.TypeCloseStreamResponse:
		return speechtotext.Result{}, false, nil

	case "Error":
		return speechtotext.Result{Code: errorCode, Message: parsedMsg.Description}, true, nil
	}

	return speechtotext.Result{}, false, nil
}

func joinTranscript(finalized, interim string) string {
	switch {
	case finalized == "":
		return interim
	case interim == "":
		return finalized
	}
	return finalized + " " + interim
}
