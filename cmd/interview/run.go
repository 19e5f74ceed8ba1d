package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	orchestration "github.com/koscakluka/ema-interview/core"
	"github.com/koscakluka/ema-interview/core/audio"
	"github.com/koscakluka/ema-interview/core/config"
	"github.com/koscakluka/ema-interview/core/health"
	"github.com/koscakluka/ema-interview/core/llms/spark"
	"github.com/koscakluka/ema-interview/core/speechtotext"
	stdeepgram "github.com/koscakluka/ema-interview/core/speechtotext/deepgram"
	stxfyun "github.com/koscakluka/ema-interview/core/speechtotext/xfyun"
	"github.com/koscakluka/ema-interview/core/texttospeech"
	ttsdeepgram "github.com/koscakluka/ema-interview/core/texttospeech/deepgram"
	ttsxfyun "github.com/koscakluka/ema-interview/core/texttospeech/xfyun"
	"github.com/koscakluka/ema-interview/core/transport"
	"github.com/koscakluka/ema-interview/core/xfyun"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var errComponentDown = errors.New("component is not connected")

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one interview",
	RunE:  runInterview,
}

// transcriptFile is what --transcript writes.
type transcriptFile struct {
	ID        string                   `json:"id"`
	State     string                   `json:"state"`
	StartedAt time.Time                `json:"started_at"`
	Exchanges []orchestration.Exchange `json:"exchanges"`
}

func runInterview(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Address != "" {
		stopMetrics := serveMetrics(cfg.Metrics.Address)
		defer stopMetrics()
	}

	device, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer device.Close()
	encodingInfo := device.EncodingInfo()

	recognizer := newRecognizer(cfg, encodingInfo)
	speaker := newSpeaker(cfg, device, encodingInfo)
	defer speaker.Close()

	ledger := health.NewLedger(
		health.WithCheckInterval(cfg.Health.CheckInterval),
		health.WithCheckTimeout(cfg.Health.CheckTimeout),
		health.WithMaxAttempts(cfg.Health.MaxAttempts),
		health.WithCooldown(cfg.Health.Cooldown),
		health.WithAutoRecovery(cfg.Health.AutoRecovery),
	)
	ledger.Register("recognition", healthCheck(recognizer.Healthy), health.WithRecovery(recognizer.Open))
	ledger.Register("synthesis", healthCheck(speaker.Healthy), health.WithRecovery(speaker.Open))

	generator := spark.NewClient(cfg.Spark.Password,
		spark.WithURL(cfg.Spark.URL),
		spark.WithModel(cfg.Spark.Model),
		spark.WithTemperature(cfg.Spark.Temperature),
		spark.WithMaxTokens(cfg.Spark.MaxTokens),
		spark.WithTimeout(cfg.Spark.Timeout),
		spark.WithStructuredReply(cfg.Spark.StructuredReply),
	)

	opts := []orchestration.OrchestratorOption{
		orchestration.WithRecognizer(recognizer),
		orchestration.WithSpeaker(speaker),
		orchestration.WithDialogueGenerator(generator),
		orchestration.WithHealthGate(ledger),
		orchestration.WithAudioInput(device),
		orchestration.WithTotalQuestions(cfg.Interview.TotalQuestions),
		orchestration.WithMaxFailures(cfg.Interview.MaxFailures),
		orchestration.WithMaxRetries(cfg.Interview.MaxRetries),
		orchestration.WithFinalTimeout(cfg.Interview.FinalTimeout),
		orchestration.WithTurnRetryDelay(cfg.Interview.TurnRetryDelay),
		orchestration.WithGenerationRetry(cfg.Interview.GenerationAttempts),
		orchestration.WithAnswerCue(cfg.Interview.AnswerCue),
		orchestration.WithAnswerPolishing(cfg.Interview.PolishAnswers),
		orchestration.WithSilenceDetection(audio.SilenceDetectorConfig{
			SpeechThreshold: cfg.Capture.SpeechThreshold,
			TrailingSilence: cfg.Capture.TrailingSilence,
			MaxDuration:     cfg.Capture.MaxListen,
		}),
		orchestration.WithSystemPrompt(cfg.Interview.SystemPrompt),
	}
	orchestrator := orchestration.NewOrchestrator(opts...)

	logger.Info("starting interview", "id", orchestrator.Snapshot().ID,
		"recognition", cfg.Recognition.Provider, "synthesis", cfg.Synthesis.Provider)
	runErr := orchestrator.Run(ctx,
		orchestration.WithStateChangedCallback(func(from, to orchestration.State) {
			logger.Info("interview state changed", "from", from, "to", to)
		}),
		orchestration.WithPromptCallback(func(prompt string) {
			logger.Info("interviewer", "text", prompt)
		}),
		orchestration.WithTranscriptionCallback(func(transcript string) {
			logger.Info("candidate", "text", transcript)
		}),
	)

	if path, _ := cmd.Flags().GetString("transcript"); path != "" {
		if err := writeTranscript(path, orchestrator); err != nil {
			logger.Error("failed to write transcript", "path", path, "error", err)
		} else {
			logger.Info("transcript written", "path", path)
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	logger.Info("interview finished", "state", orchestrator.State())
	return nil
}

type audioDevice interface {
	audio.InputDevice
	audio.OutputDevice
	EncodingInfo() audio.EncodingInfo
	Close()
}

func newRecognizer(cfg *config.Config, encodingInfo audio.EncodingInfo) *speechtotext.Session {
	opts := []speechtotext.SessionOption{
		speechtotext.WithOpenTimeout(cfg.Recognition.OpenTimeout),
		speechtotext.WithAutoFinalizeTimeout(cfg.Recognition.AutoFinalize),
		speechtotext.WithInterimUpdateInterval(cfg.Recognition.InterimInterval),
		speechtotext.WithEncodingInfo(encodingInfo),
		speechtotext.WithPartialTranscriptionCallback(func(transcript string) {
			logger.Debug("partial transcript", "text", transcript)
		}),
	}

	switch cfg.Recognition.Provider {
	case config.ProviderDeepgram:
		listen := stdeepgram.DefaultListenOptions()
		listen.Model = cfg.Recognition.DeepgramModel
		listen.Language = cfg.Recognition.DeepgramLanguage
		listen.EncodingInfo = encodingInfo
		return speechtotext.NewSession(
			stdeepgram.NewTransport(cfg.Deepgram.APIKey, listen),
			stdeepgram.NewCodec(),
			opts...,
		)
	default:
		creds := xfyun.Credentials(cfg.Xfyun.ASR)
		business := stxfyun.DefaultBusiness()
		business.Language = cfg.Recognition.Language
		business.VadEOS = cfg.Recognition.VadEOS
		return speechtotext.NewSession(
			transport.NewWebsocket("xfyun-iat", xfyun.URLFunc(xfyun.RecognitionURL, creds)),
			stxfyun.NewCodec(creds, stxfyun.WithBusiness(business)),
			opts...,
		)
	}
}

func newSpeaker(cfg *config.Config, output audio.OutputDevice, encodingInfo audio.EncodingInfo) *texttospeech.Pipeline {
	opts := []texttospeech.PipelineOption{
		texttospeech.WithMaxSegmentRunes(cfg.Synthesis.MaxSegmentRunes),
		texttospeech.WithOpenTimeout(cfg.Synthesis.OpenTimeout),
		texttospeech.WithSegmentTimeout(cfg.Synthesis.SegmentTimeout),
		texttospeech.WithPlaybackTimeout(cfg.Synthesis.PlaybackTimeout, cfg.Synthesis.PlaybackRetries),
		texttospeech.WithEncodingInfo(encodingInfo),
		texttospeech.WithErrorCallback(func(err error) {
			logger.Warn("speech synthesis failed", "error", err)
		}),
	}

	switch cfg.Synthesis.Provider {
	case config.ProviderDeepgram:
		voice := ttsdeepgram.Voice(cfg.Deepgram.Voice)
		return texttospeech.NewPipeline(
			ttsdeepgram.NewTransport(cfg.Deepgram.APIKey, voice, encodingInfo),
			ttsdeepgram.NewCodec(),
			output,
			opts...,
		)
	default:
		creds := xfyun.Credentials(cfg.Xfyun.TTS)
		business := ttsxfyun.DefaultBusiness()
		business.Vcn = cfg.Synthesis.Voice
		business.Speed = cfg.Synthesis.Speed
		business.Volume = cfg.Synthesis.Volume
		business.Pitch = cfg.Synthesis.Pitch
		return texttospeech.NewPipeline(
			ttsxfyun.NewTransport(creds),
			ttsxfyun.NewCodec(creds, ttsxfyun.WithBusiness(business)),
			output,
			append(opts, texttospeech.WithReconnectPerSegment(true))...,
		)
	}
}

func healthCheck(healthy func() bool) health.CheckFunc {
	return func(context.Context) error {
		if !healthy() {
			return errComponentDown
		}
		return nil
	}
}

// serveMetrics exposes the prometheus registry until the returned function is
// called.
func serveMetrics(address string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", otelhttp.NewHandler(promhttp.Handler(), "metrics"))
	server := &http.Server{Addr: address, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	logger.Debug("serving metrics", "address", address)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func writeTranscript(path string, orchestrator *orchestration.Orchestrator) error {
	snapshot := orchestrator.Snapshot()
	file := transcriptFile{
		ID:        snapshot.ID,
		State:     string(snapshot.State),
		StartedAt: snapshot.StartedAt,
		Exchanges: orchestrator.Transcript(),
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
