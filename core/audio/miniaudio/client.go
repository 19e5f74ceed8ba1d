package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-interview/core/audio"
)

// Client owns one malgo context with a capture and a playback device. It
// implements both [audio.InputDevice] and [audio.OutputDevice].
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

type ClientOption func(*Client)

// WithFrameBytes sets the size of frames returned by ReadFrame.
func WithFrameBytes(frameBytes int) ClientOption {
	return func(c *Client) {
		if frameBytes > 0 {
			c.captureClient.frameBytes = frameBytes
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{
		audioContext:  audioCtx,
		captureClient: captureClient{frameBytes: audio.DefaultFrameBytes},
	}
	for _, opt := range opts {
		opt(&client)
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	if err := client.captureClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}

	return &client, nil
}

func (c *Client) OpenInput(_ context.Context) error {
	return c.captureClient.Start()
}

func (c *Client) ReadFrame(ctx context.Context) ([]byte, error) {
	return c.captureClient.ReadFrame(ctx)
}

func (c *Client) CloseInput() error {
	return c.captureClient.Stop()
}

func (c *Client) OpenOutput(_ context.Context) error {
	return c.playbackClient.Start()
}

func (c *Client) WriteChunk(_ context.Context, chunk []byte) error {
	return c.playbackClient.SendAudio(chunk)
}

func (c *Client) CloseOutput(ctx context.Context) error {
	if err := c.playbackClient.AwaitDrain(ctx); err != nil {
		return err
	}
	return c.playbackClient.Stop()
}

func (c *Client) Close() {
	_ = c.captureClient.Uninit()
	_ = c.playbackClient.Uninit()
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
	}
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.GetDefaultEncodingInfo()
}
