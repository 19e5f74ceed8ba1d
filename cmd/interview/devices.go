package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/audio/miniaudio"
	"github.com/koscakluka/ema-interview/core/audio/portaudio"
	"github.com/koscakluka/ema-interview/core/config"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Inspect the audio devices",
}

var devicesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Record from the microphone and play the recording back",
	RunE:  checkDevices,
}

func init() {
	devicesCheckCmd.Flags().Duration("duration", 3*time.Second, "How long to record")
	devicesCheckCmd.Flags().Bool("playback", true, "Play the recording back")
}

func openDevice(cfg *config.Config) (audioDevice, error) {
	switch cfg.Audio.Backend {
	case config.BackendPortaudio:
		client, err := portaudio.NewClient(cfg.Capture.FrameBytes)
		if err != nil {
			return nil, err
		}
		return client, nil
	default:
		client, err := miniaudio.NewClient(miniaudio.WithFrameBytes(cfg.Capture.FrameBytes))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

func checkDevices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	duration, _ := cmd.Flags().GetDuration("duration")
	playback, _ := cmd.Flags().GetBool("playback")

	device, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer device.Close()

	logger.Info("recording, say something", "backend", cfg.Audio.Backend, "duration", duration)
	recording, loudest, err := record(cmd.Context(), device, duration)
	if err != nil {
		return err
	}

	heard := loudest >= cfg.Capture.SpeechThreshold
	logger.Info("recording done",
		"bytes", len(recording),
		"loudest_frame", fmt.Sprintf("%.0f", loudest),
		"speech_threshold", cfg.Capture.SpeechThreshold,
		"speech_heard", heard)
	if !heard {
		logger.Warn("no frame crossed the speech threshold, check the microphone or lower capture.speech_threshold")
	}

	if !playback {
		return nil
	}
	logger.Info("playing the recording back")
	return play(cmd.Context(), device, recording, device.EncodingInfo().BytesFor(100*time.Millisecond))
}

func record(ctx context.Context, input audio.InputDevice, duration time.Duration) ([]byte, float64, error) {
	if err := input.OpenInput(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to open microphone: %w", err)
	}
	defer input.CloseInput()

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var (
		recording []byte
		loudest   float64
	)
	for ctx.Err() == nil {
		frame, err := input.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return nil, 0, fmt.Errorf("failed to read from microphone: %w", err)
		}
		recording = append(recording, frame...)
		loudest = max(loudest, audio.MeanAbsAmplitude(frame))
	}
	return recording, loudest, nil
}

func play(ctx context.Context, output audio.OutputDevice, recording []byte, chunkBytes int) error {
	if err := output.OpenOutput(ctx); err != nil {
		return fmt.Errorf("failed to open speaker: %w", err)
	}
	for chunk := range slices.Chunk(recording, max(chunkBytes, 2)) {
		if err := output.WriteChunk(ctx, chunk); err != nil {
			_ = output.CloseOutput(ctx)
			return fmt.Errorf("failed to write to speaker: %w", err)
		}
	}
	return output.CloseOutput(ctx)
}
