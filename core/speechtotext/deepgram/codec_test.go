package deepgram

import (
	"strings"
	"testing"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/transport"
)

func results(transcript string, isFinal, speechFinal bool) transport.Message {
	payload := `{"type":"Results","is_final":` + boolString(isFinal) +
		`,"speech_final":` + boolString(speechFinal) +
		`,"channel":{"alternatives":[{"transcript":"` + transcript + `"}]}}`
	return transport.Text([]byte(payload))
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func TestCodecAccumulatesFinalizedSegments(t *testing.T) {
	codec := NewCodec()

	steps := []struct {
		msg    transport.Message
		status speechtotext.Status
		text   string
	}{
		{results("I have", false, false), speechtotext.StatusStart, "I have"},
		{results("I have three years", true, true), speechtotext.StatusInterim, "I have three years"},
		{results("of Go", false, false), speechtotext.StatusInterim, "I have three years of Go"},
	}
	for _, step := range steps {
		result, ok, err := codec.Decode(step.msg)
		if err != nil || !ok {
			t.Fatalf("expected result, got ok=%t err=%v", ok, err)
		}
		if result.Status != step.status || result.Text != step.text {
			t.Fatalf("expected status %d text %q, got status %d text %q", step.status, step.text, result.Status, result.Text)
		}
	}
}

func TestCodecFinalizesAfterEndFrame(t *testing.T) {
	codec := NewCodec()

	msgs, err := codec.EncodeFrame([]byte{1, 2}, speechtotext.FrameEnd)
	if err != nil {
		t.Fatalf("expected end frame to encode, got %v", err)
	}
	if len(msgs) != 2 || !msgs[0].Binary || msgs[1].Binary || !strings.Contains(string(msgs[1].Data), "Finalize") {
		t.Fatalf("expected audio followed by a Finalize request, got %+v", msgs)
	}

	result, ok, err := codec.Decode(results("done", true, true))
	if err != nil || !ok {
		t.Fatalf("expected result, got ok=%t err=%v", ok, err)
	}
	if result.Status != speechtotext.StatusFinal || result.Text != "done" {
		t.Fatalf("expected final %q, got %+v", "done", result)
	}
}

func TestCodecUtteranceEndOnlyFinalizesAfterEndFrame(t *testing.T) {
	codec := NewCodec()
	utteranceEnd := transport.Text([]byte(`{"type":"UtteranceEnd","last_word_end":1.2}`))

	if _, ok, _ := codec.Decode(utteranceEnd); ok {
		t.Fatalf("expected utterance end to be ignored mid answer")
	}

	_, _, _ = codec.Decode(results("hello", true, false))
	_, _ = codec.EncodeFrame(nil, speechtotext.FrameEnd)

	result, ok, err := codec.Decode(utteranceEnd)
	if err != nil || !ok {
		t.Fatalf("expected result, got ok=%t err=%v", ok, err)
	}
	if result.Status != speechtotext.StatusFinal || result.Text != "hello" {
		t.Fatalf("expected final %q, got %+v", "hello", result)
	}
}

func TestCodecReportsErrors(t *testing.T) {
	codec := NewCodec()

	result, ok, err := codec.Decode(transport.Text([]byte(`{"type":"Error","description":"bad audio"}`)))
	if err != nil || !ok || !result.IsError() || result.Message != "bad audio" {
		t.Fatalf("expected error result, got %+v ok=%t err=%v", result, ok, err)
	}
}

func TestListenURLRejectsUnsupportedSampleRate(t *testing.T) {
	options := DefaultListenOptions()
	options.EncodingInfo = audio.EncodingInfo{SampleRate: 11025, Format: audio.EncodingLinear16}

	if _, err := ListenURL(options); err == nil {
		t.Fatalf("expected error for unsupported sample rate")
	}

	url, err := ListenURL(DefaultListenOptions())
	if err != nil {
		t.Fatalf("expected default options to build a url, got %v", err)
	}
	if !strings.Contains(url, "sample_rate=16000") || !strings.Contains(url, "encoding=linear16") {
		t.Fatalf("expected encoding parameters in url, got %s", url)
	}
}
