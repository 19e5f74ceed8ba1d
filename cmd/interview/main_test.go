package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestSchemaCommandPrintsConfigKeys(t *testing.T) {
	var out bytes.Buffer
	schemaCmd.SetOut(&out)
	if err := schemaCmd.RunE(schemaCmd, nil); err != nil {
		t.Fatalf("expected schema command to succeed, got %v", err)
	}

	var schema struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(out.Bytes(), &schema); err != nil {
		t.Fatalf("expected JSON output, got %v", err)
	}
	for _, key := range []string{"interview", "recognition", "synthesis", "health", "xfyun"} {
		if _, ok := schema.Properties[key]; !ok {
			t.Fatalf("expected %s section in schema, got %v", key, schema.Properties)
		}
	}
}

type frameInput struct {
	frames [][]byte
	opened bool
	closed bool
}

func (f *frameInput) OpenInput(context.Context) error {
	f.opened = true
	return nil
}

func (f *frameInput) CloseInput() error {
	f.closed = true
	return nil
}

func (f *frameInput) ReadFrame(ctx context.Context) ([]byte, error) {
	if len(f.frames) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	frame := f.frames[0]
	f.frames = f.frames[1:]
	return frame, nil
}

func TestRecordTracksLoudestFrame(t *testing.T) {
	quiet := []byte{0x10, 0x00, 0x10, 0x00}
	loud := []byte{0xE8, 0x03, 0x18, 0xFC}
	input := &frameInput{frames: [][]byte{quiet, loud, quiet}}

	recording, loudest, err := record(context.Background(), input, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("expected record to succeed, got %v", err)
	}
	if len(recording) != 12 {
		t.Fatalf("expected 12 recorded bytes, got %d", len(recording))
	}
	if loudest != 1000 {
		t.Fatalf("expected loudest frame of 1000, got %v", loudest)
	}
	if !input.opened || !input.closed {
		t.Fatalf("expected input to be opened and closed")
	}
}

type chunkOutput struct {
	chunks [][]byte
	closed bool
}

func (c *chunkOutput) OpenOutput(context.Context) error { return nil }

func (c *chunkOutput) WriteChunk(_ context.Context, chunk []byte) error {
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *chunkOutput) CloseOutput(context.Context) error {
	c.closed = true
	return nil
}

func TestPlayWritesChunks(t *testing.T) {
	output := &chunkOutput{}
	if err := play(context.Background(), output, make([]byte, 10), 4); err != nil {
		t.Fatalf("expected play to succeed, got %v", err)
	}
	if len(output.chunks) != 3 || len(output.chunks[2]) != 2 {
		t.Fatalf("expected chunks of 4, 4 and 2 bytes, got %d chunks", len(output.chunks))
	}
	if !output.closed {
		t.Fatalf("expected output to be closed")
	}
}

func TestHealthCheckReportsDownComponent(t *testing.T) {
	healthy := false
	check := healthCheck(func() bool { return healthy })

	if err := check(context.Background()); !errors.Is(err, errComponentDown) {
		t.Fatalf("expected component down error, got %v", err)
	}
	healthy = true
	if err := check(context.Background()); err != nil {
		t.Fatalf("expected healthy component, got %v", err)
	}
}
