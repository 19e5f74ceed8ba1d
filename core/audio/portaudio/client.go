package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-interview/core/audio"
)

// Client drives one blocking full-duplex PortAudio stream. It implements both
// [audio.InputDevice] and [audio.OutputDevice]; the stream runs while either
// side is open.
type Client struct {
	bufferSize    int
	stream        *portaudio.Stream
	leftoverAudio []byte

	in  []int16
	out []int16

	mu          sync.Mutex
	inputOpen   bool
	outputOpen  bool
	streamStart bool
}

// NewClient opens the default duplex stream. frameBytes is the size of frames
// returned by ReadFrame and the unit of writes to the speaker.
func NewClient(frameBytes int) (*Client, error) {
	if frameBytes <= 0 {
		frameBytes = audio.DefaultFrameBytes
	}
	bufferSize := frameBytes / 2

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, bufferSize)
	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 1, audio.DefaultSampleRate, bufferSize, in, out)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open portaudio stream: %w", err)
	}

	return &Client{
		bufferSize: bufferSize,
		stream:     stream,
		in:         in,
		out:        out,
	}, nil
}

func (c *Client) OpenInput(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputOpen = true
	return c.startLocked()
}

func (c *Client) ReadFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inputOpen {
		return nil, audio.ErrDeviceClosed
	}

	if err := c.stream.Read(); err != nil {
		return nil, fmt.Errorf("failed to read from portaudio stream: %w", err)
	}

	frame := bytes.Buffer{}
	if err := binary.Write(&frame, binary.LittleEndian, c.in); err != nil {
		return nil, fmt.Errorf("failed to encode captured frame: %w", err)
	}
	return frame.Bytes(), nil
}

func (c *Client) CloseInput() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputOpen = false
	return c.stopIfIdleLocked()
}

func (c *Client) OpenOutput(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputOpen = true
	c.leftoverAudio = c.leftoverAudio[:0]
	return c.startLocked()
}

func (c *Client) WriteChunk(_ context.Context, chunk []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.outputOpen {
		return audio.ErrDeviceClosed
	}

	c.leftoverAudio = append(c.leftoverAudio, chunk...)
	return c.writeBuffersLocked(false)
}

// CloseOutput pads and writes whatever is left. Writes block until the device
// has taken the audio, so returning means the speaker has been fed fully.
func (c *Client) CloseOutput(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.outputOpen {
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.writeBuffersLocked(true); err != nil {
		return err
	}
	c.outputOpen = false
	return c.stopIfIdleLocked()
}

func (c *Client) writeBuffersLocked(flush bool) error {
	bufferBytes := c.bufferSize * 2
	if flush && len(c.leftoverAudio)%bufferBytes != 0 {
		padding := bufferBytes - len(c.leftoverAudio)%bufferBytes
		c.leftoverAudio = append(c.leftoverAudio, make([]byte, padding)...)
	}

	for len(c.leftoverAudio) >= bufferBytes {
		if err := binary.Read(bytes.NewReader(c.leftoverAudio[:bufferBytes]), binary.LittleEndian, c.out); err != nil {
			return fmt.Errorf("failed to decode playback buffer: %w", err)
		}
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("failed to write to portaudio stream: %w", err)
		}
		c.leftoverAudio = c.leftoverAudio[bufferBytes:]
	}
	return nil
}

func (c *Client) startLocked() error {
	if c.streamStart {
		return nil
	}
	if err := c.stream.Start(); err != nil {
		return fmt.Errorf("failed to start portaudio stream: %w", err)
	}
	c.streamStart = true
	return nil
}

func (c *Client) stopIfIdleLocked() error {
	if !c.streamStart || c.inputOpen || c.outputOpen {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop portaudio stream: %w", err)
	}
	c.streamStart = false
	return nil
}

func (c *Client) Close() {
	_ = c.stream.Close()
	_ = portaudio.Terminate()
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: audio.DefaultSampleRate,
		Format:     audio.EncodingLinear16,
	}
}
