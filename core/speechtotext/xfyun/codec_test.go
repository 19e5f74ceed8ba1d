package xfyun

import (
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/koscakluka/ema-interview/core/speechtotext"
	"github.com/koscakluka/ema-interview/core/transport"
	"github.com/koscakluka/ema-interview/core/xfyun"
)

func TestEncodeFrameCarriesSessionParametersOnlyOnStart(t *testing.T) {
	codec := NewCodec(xfyun.Credentials{AppID: "app-1"})

	msgs, err := codec.EncodeFrame([]byte{1, 2, 3}, speechtotext.FrameStart)
	if err != nil {
		t.Fatalf("expected start frame to encode, got %v", err)
	}
	if len(msgs) != 1 || msgs[0].Binary {
		t.Fatalf("expected one text message, got %+v", msgs)
	}

	var first map[string]any
	if err := json.Unmarshal(msgs[0].Data, &first); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if first["common"].(map[string]any)["app_id"] != "app-1" {
		t.Fatalf("expected app id in start frame, got %v", first["common"])
	}
	business := first["business"].(map[string]any)
	if business["language"] != "zh_cn" || business["dwa"] != "wpgs" {
		t.Fatalf("expected default business parameters, got %v", business)
	}
	data := first["data"].(map[string]any)
	if data["status"].(float64) != 0 || data["audio"] != base64.StdEncoding.EncodeToString([]byte{1, 2, 3}) {
		t.Fatalf("expected status 0 with audio, got %v", data)
	}

	msgs, err = codec.EncodeFrame(nil, speechtotext.FrameEnd)
	if err != nil {
		t.Fatalf("expected end frame to encode, got %v", err)
	}
	var last map[string]any
	if err := json.Unmarshal(msgs[0].Data, &last); err != nil {
		t.Fatalf("expected valid JSON, got %v", err)
	}
	if _, ok := last["common"]; ok {
		t.Fatalf("expected end frame without common parameters")
	}
	if last["data"].(map[string]any)["status"].(float64) != 2 {
		t.Fatalf("expected status 2 in end frame, got %v", last["data"])
	}
}

func TestDecodeAssemblesFragmentsWithCorrections(t *testing.T) {
	codec := NewCodec(xfyun.Credentials{AppID: "app"})

	steps := []struct {
		payload string
		status  speechtotext.Status
		text    string
	}{
		{`{"code":0,"data":{"status":0,"result":{"sn":1,"pgs":"apd","ws":[{"cw":[{"w":"你"}]}]}}}`, speechtotext.StatusStart, "你"},
		{`{"code":0,"data":{"status":1,"result":{"sn":2,"pgs":"rpl","rg":[1,1],"ws":[{"cw":[{"w":"你好"}]}]}}}`, speechtotext.StatusInterim, "你好"},
		{`{"code":0,"data":{"status":1,"result":{"sn":3,"pgs":"apd","ws":[{"cw":[{"w":"，"}]}]}}}`, speechtotext.StatusInterim, "你好，"},
		{`{"code":0,"data":{"status":2,"result":{"sn":4,"pgs":"apd","ws":[{"cw":[{"w":""}]}]}}}`, speechtotext.StatusFinal, "你好，"},
	}

	for _, step := range steps {
		result, ok, err := codec.Decode(transport.Text([]byte(step.payload)))
		if err != nil || !ok {
			t.Fatalf("expected %s to decode, got ok=%t err=%v", step.payload, ok, err)
		}
		if result.Status != step.status || result.Text != step.text {
			t.Fatalf("expected status %d text %q, got status %d text %q", step.status, step.text, result.Status, result.Text)
		}
	}

	codec.Reset()
	result, _, _ := codec.Decode(transport.Text([]byte(`{"code":0,"data":{"status":1,"result":{"sn":1,"ws":[{"cw":[{"w":"新"}]}]}}}`)))
	if result.Text != "新" {
		t.Fatalf("expected reset to drop previous fragments, got %q", result.Text)
	}
}

func TestDecodeReportsErrorCodes(t *testing.T) {
	codec := NewCodec(xfyun.Credentials{})

	result, ok, err := codec.Decode(transport.Text([]byte(`{"code":10165,"message":"invalid handle","sid":"x"}`)))
	if err != nil || !ok {
		t.Fatalf("expected error response to decode, got ok=%t err=%v", ok, err)
	}
	if !result.IsError() || result.Code != 10165 || result.Message != "invalid handle" {
		t.Fatalf("expected error result, got %+v", result)
	}
}
