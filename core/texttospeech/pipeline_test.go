package texttospeech

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/koscakluka/ema-interview/core/faults"
	"github.com/koscakluka/ema-interview/core/transport"
)

// stubDuplex answers every text request with two audio chunks and an end
// marker unless the request is listed in silent.
type stubDuplex struct {
	mu       sync.Mutex
	handler  transport.Handler
	open     bool
	opens    int
	openErrs []error
	silent   map[string]bool
	requests []string
}

func (d *stubDuplex) Open(ctx context.Context, handler transport.Handler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opens++
	if len(d.openErrs) > 0 {
		err := d.openErrs[0]
		d.openErrs = d.openErrs[1:]
		if err != nil {
			return err
		}
	}
	d.handler = handler
	d.open = true
	return nil
}

func (d *stubDuplex) Send(ctx context.Context, msg transport.Message) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	text := string(msg.Data)
	d.requests = append(d.requests, text)
	if d.silent[text] {
		return nil
	}

	handler := d.handler
	go func() {
		handler.OnMessage(transport.Text([]byte("audio:" + text + "-1")))
		handler.OnMessage(transport.Text([]byte("audio:" + text + "-2")))
		handler.OnMessage(transport.Text([]byte("end")))
	}()
	return nil
}

func (d *stubDuplex) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	return nil
}

func (d *stubDuplex) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

func (d *stubDuplex) sentRequests() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.requests...)
}

type stubCodec struct{}

func (stubCodec) EncodeText(text string) ([]transport.Message, error) {
	return []transport.Message{transport.Text([]byte(text))}, nil
}

func (stubCodec) Decode(msg transport.Message) (Frame, bool, error) {
	payload := string(msg.Data)
	switch {
	case payload == "end":
		return Frame{Last: true}, true, nil
	case strings.HasPrefix(payload, "audio:"):
		return Frame{Audio: []byte(strings.TrimPrefix(payload, "audio:"))}, true, nil
	}
	return Frame{}, false, nil
}

// stubOutput records written chunks. Closing takes a little while so tests
// notice a Speak that returns before the device is closed.
type stubOutput struct {
	mu     sync.Mutex
	chunks []string
	opened bool
	closed bool
	block  bool

	// hang keeps CloseOutput from returning until it is closed.
	hang chan struct{}
}

func (o *stubOutput) OpenOutput(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = true
	o.closed = false
	return nil
}

func (o *stubOutput) WriteChunk(ctx context.Context, chunk []byte) error {
	o.mu.Lock()
	block := o.block
	o.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.chunks = append(o.chunks, string(chunk))
	return nil
}

func (o *stubOutput) CloseOutput(ctx context.Context) error {
	if o.hang != nil {
		<-o.hang
	}
	time.Sleep(20 * time.Millisecond)
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

func (o *stubOutput) state() ([]string, bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.chunks...), o.opened, o.closed
}

func TestSpeakPlaysSegmentsInOrderAndClosesDevice(t *testing.T) {
	duplex := &stubDuplex{}
	output := &stubOutput{}
	var marks []string
	var marksMu sync.Mutex
	pipeline := NewPipeline(duplex, stubCodec{}, output, WithSpeechMarkCallback(func(segment string) {
		marksMu.Lock()
		marks = append(marks, segment)
		marksMu.Unlock()
	}))

	if err := pipeline.Speak(context.Background(), "你好。请开始回答"); err != nil {
		t.Fatalf("expected speak to succeed, got %v", err)
	}

	chunks, _, closed := output.state()
	if !closed {
		t.Fatalf("expected output device to be closed when speak returns")
	}
	expected := []string{"你好。-1", "你好。-2", "请开始回答-1", "请开始回答-2"}
	if strings.Join(chunks, "|") != strings.Join(expected, "|") {
		t.Fatalf("expected chunks %q, got %q", expected, chunks)
	}

	marksMu.Lock()
	defer marksMu.Unlock()
	if len(marks) != 2 || marks[0] != "你好。" || marks[1] != "请开始回答" {
		t.Fatalf("expected a mark per segment, got %q", marks)
	}
}

func TestSpeakIgnoresBlankText(t *testing.T) {
	duplex := &stubDuplex{}
	output := &stubOutput{}
	pipeline := NewPipeline(duplex, stubCodec{}, output)

	if err := pipeline.Speak(context.Background(), "  \n "); err != nil {
		t.Fatalf("expected nil for blank text, got %v", err)
	}
	if _, opened, _ := output.state(); opened {
		t.Fatalf("expected output device to stay untouched")
	}
	if len(duplex.sentRequests()) != 0 {
		t.Fatalf("expected no synthesis requests")
	}
}

func TestSpeakSegmentTimeoutDrainsBufferedAudio(t *testing.T) {
	duplex := &stubDuplex{silent: map[string]bool{"第二句。": true}}
	output := &stubOutput{}
	pipeline := NewPipeline(duplex, stubCodec{}, output, WithSegmentTimeout(50*time.Millisecond))

	err := pipeline.Speak(context.Background(), "第一句。第二句。第三句。")
	if !errors.Is(err, faults.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}

	chunks, _, closed := output.state()
	if !closed {
		t.Fatalf("expected output device to be closed before returning")
	}
	if len(chunks) != 2 || chunks[0] != "第一句。-1" {
		t.Fatalf("expected first segment audio to be played, got %q", chunks)
	}
	for _, request := range duplex.sentRequests() {
		if request == "第三句。" {
			t.Fatalf("expected remaining segments to be abandoned")
		}
	}
}

func TestSpeakReconnectsOnceBeforeFailing(t *testing.T) {
	connErr := errors.New("dial failed")

	duplex := &stubDuplex{openErrs: []error{connErr}}
	pipeline := NewPipeline(duplex, stubCodec{}, &stubOutput{})
	if err := pipeline.Speak(context.Background(), "你好。"); err != nil {
		t.Fatalf("expected speak to succeed after one reconnect, got %v", err)
	}

	duplex = &stubDuplex{openErrs: []error{connErr, connErr}}
	pipeline = NewPipeline(duplex, stubCodec{}, &stubOutput{})
	err := pipeline.Speak(context.Background(), "你好。")
	if !errors.Is(err, faults.ErrSynthesis) {
		t.Fatalf("expected synthesis error, got %v", err)
	}
	if pipeline.Healthy() {
		t.Fatalf("expected pipeline to be unhealthy after failed reconnect")
	}
}

func TestSpeakReconnectsPerSegment(t *testing.T) {
	duplex := &stubDuplex{}
	pipeline := NewPipeline(duplex, stubCodec{}, &stubOutput{}, WithReconnectPerSegment(true))

	if err := pipeline.Speak(context.Background(), "一。二。三。"); err != nil {
		t.Fatalf("expected speak to succeed, got %v", err)
	}

	duplex.mu.Lock()
	defer duplex.mu.Unlock()
	if duplex.opens != 3 {
		t.Fatalf("expected a connection per segment, got %d opens", duplex.opens)
	}
}

func TestSpeakTimesOutWhenPlaybackStalls(t *testing.T) {
	duplex := &stubDuplex{}
	output := &stubOutput{block: true}
	pipeline := NewPipeline(duplex, stubCodec{}, output, WithPlaybackTimeout(50*time.Millisecond, 2))

	err := pipeline.Speak(context.Background(), "你好。")
	if !errors.Is(err, faults.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if _, _, closed := output.state(); !closed {
		t.Fatalf("expected output device to be closed when speak returns")
	}
}

func TestSpeakClosesDeviceWhenCancelled(t *testing.T) {
	duplex := &stubDuplex{}
	output := &stubOutput{block: true}
	pipeline := NewPipeline(duplex, stubCodec{}, output, WithPlaybackTimeout(5*time.Second, 0))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	err := pipeline.Speak(ctx, "你好。")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if _, _, closed := output.state(); !closed {
		t.Fatalf("expected output device to be closed when speak returns")
	}
}

func TestSpeakGivesUpOnDeviceThatNeverCloses(t *testing.T) {
	duplex := &stubDuplex{}
	hang := make(chan struct{})
	defer close(hang)
	output := &stubOutput{block: true, hang: hang}
	pipeline := NewPipeline(duplex, stubCodec{}, output,
		WithPlaybackTimeout(20*time.Millisecond, 0), WithDrainTimeout(30*time.Millisecond))

	start := time.Now()
	err := pipeline.Speak(context.Background(), "你好。")
	if !errors.Is(err, faults.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if !strings.Contains(err.Error(), "did not close") {
		t.Fatalf("expected drain timeout to be reported, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected speak to return after the drain timeout, got %s", elapsed)
	}
}

func TestSpeakSerializesConcurrentCalls(t *testing.T) {
	duplex := &stubDuplex{}
	pipeline := NewPipeline(duplex, stubCodec{}, &stubOutput{})

	var wg sync.WaitGroup
	for _, text := range []string{"一。二。", "三。四。"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := pipeline.Speak(context.Background(), text); err != nil {
				t.Errorf("expected speak to succeed, got %v", err)
			}
		}()
	}
	wg.Wait()

	requests := strings.Join(duplex.sentRequests(), "")
	if requests != "一。二。三。四。" && requests != "三。四。一。二。" {
		t.Fatalf("expected prompts not to interleave, got %q", requests)
	}
}
