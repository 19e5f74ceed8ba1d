package deepgram

import (
	"strings"
	"testing"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/transport"
)

func TestCodecSpeaksThenFlushes(t *testing.T) {
	msgs, err := NewCodec().EncodeText("Hello there.")
	if err != nil {
		t.Fatalf("expected text to encode, got %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if got := string(msgs[0].Data); got != `{"type":"Speak","text":"Hello there."}` {
		t.Fatalf("expected speak message, got %s", got)
	}
	if got := string(msgs[1].Data); got != `{"type":"Flush"}` {
		t.Fatalf("expected flush message, got %s", got)
	}
}

func TestCodecDecodesAudioAndFlushed(t *testing.T) {
	codec := NewCodec()

	frame, ok, err := codec.Decode(transport.Binary([]byte{1, 2, 3}))
	if err != nil || !ok || len(frame.Audio) != 3 || frame.Last {
		t.Fatalf("expected audio frame, got %+v ok=%t err=%v", frame, ok, err)
	}

	frame, ok, err = codec.Decode(transport.Text([]byte(`{"type":"Flushed","sequence_id":0}`)))
	if err != nil || !ok || !frame.Last {
		t.Fatalf("expected end marker, got %+v ok=%t err=%v", frame, ok, err)
	}

	if _, ok, _ := codec.Decode(transport.Text([]byte(`{"type":"Metadata"}`))); ok {
		t.Fatalf("expected metadata to be ignored")
	}
}

func TestSpeakURLValidatesVoice(t *testing.T) {
	if _, err := SpeakURL("unknown", audio.GetDefaultEncodingInfo()); err == nil {
		t.Fatalf("expected error for unknown voice")
	}

	speakURL, err := SpeakURL(VoiceLuna, audio.GetDefaultEncodingInfo())
	if err != nil {
		t.Fatalf("expected url, got %v", err)
	}
	if !strings.Contains(speakURL, "model=aura-luna-en") || !strings.Contains(speakURL, "container=none") {
		t.Fatalf("expected voice and container in url, got %s", speakURL)
	}
}
