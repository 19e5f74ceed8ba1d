package xfyun

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/koscakluka/ema-interview/core/transport"
	"github.com/koscakluka/ema-interview/core/xfyun"
)

func TestEncodeTextBuildsSingleRequest(t *testing.T) {
	codec := NewCodec(xfyun.Credentials{AppID: "app-1"})

	msgs, err := codec.EncodeText("请开始回答")
	if err != nil {
		t.Fatalf("expected text to encode, got %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	var req request
	if err := json.Unmarshal(msgs[0].Data, &req); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if req.Common.AppID != "app-1" || req.Business.Vcn != "x4_xiaoyan" || req.Business.Aue != "raw" {
		t.Fatalf("expected default request parameters, got %+v", req)
	}
	if req.Data.Status != 2 {
		t.Fatalf("expected status 2, got %d", req.Data.Status)
	}
	text, _ := base64.StdEncoding.DecodeString(req.Data.Text)
	if string(text) != "请开始回答" {
		t.Fatalf("expected base64 text, got %q", text)
	}
}

func TestDecodeAudioAndEndMarker(t *testing.T) {
	codec := NewCodec(xfyun.Credentials{})
	audio := base64.StdEncoding.EncodeToString([]byte{1, 0, 2, 0})

	frame, ok, err := codec.Decode(transport.Text([]byte(`{"code":0,"data":{"audio":"` + audio + `","status":1}}`)))
	if err != nil || !ok {
		t.Fatalf("expected frame, got ok=%t err=%v", ok, err)
	}
	if len(frame.Audio) != 4 || frame.Last {
		t.Fatalf("expected audio without end marker, got %+v", frame)
	}

	frame, _, _ = codec.Decode(transport.Text([]byte(`{"code":0,"data":{"audio":"","status":2}}`)))
	if !frame.Last {
		t.Fatalf("expected end marker on status 2")
	}

	frame, _, _ = codec.Decode(transport.Text([]byte(`{"code":10005,"message":"licc failed"}`)))
	if !frame.IsError() || frame.Code != 10005 {
		t.Fatalf("expected error frame, got %+v", frame)
	}
}
