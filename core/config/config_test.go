package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("expected defaults to load without a config file, got %v", err)
	}

	if cfg.Interview.TotalQuestions != 3 {
		t.Fatalf("expected 3 questions, got %d", cfg.Interview.TotalQuestions)
	}
	if cfg.Interview.FinalTimeout != 20*time.Second {
		t.Fatalf("expected final timeout of 20s, got %s", cfg.Interview.FinalTimeout)
	}
	if cfg.Recognition.InterimInterval != 300*time.Millisecond {
		t.Fatalf("expected interim interval of 300ms, got %s", cfg.Recognition.InterimInterval)
	}
	if cfg.Synthesis.MaxSegmentRunes != 300 {
		t.Fatalf("expected 300 runes per segment, got %d", cfg.Synthesis.MaxSegmentRunes)
	}
	if !cfg.Health.AutoRecovery {
		t.Fatalf("expected auto recovery to be enabled by default")
	}
	if cfg.Audio.Backend != BackendMiniaudio {
		t.Fatalf("expected %s backend, got %s", BackendMiniaudio, cfg.Audio.Backend)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("INTERVIEW_TOTAL_QUESTIONS", "5")
	t.Setenv("CAPTURE_TRAILING_SILENCE", "1500ms")
	t.Setenv("XFYUN_ASR_APPID", "legacy-app")
	t.Setenv("SPARK_HTTP_API_PASSWORD", "secret")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	if cfg.Interview.TotalQuestions != 5 {
		t.Fatalf("expected 5 questions from env, got %d", cfg.Interview.TotalQuestions)
	}
	if cfg.Capture.TrailingSilence != 1500*time.Millisecond {
		t.Fatalf("expected trailing silence of 1.5s, got %s", cfg.Capture.TrailingSilence)
	}
	if cfg.Xfyun.ASR.AppID != "legacy-app" {
		t.Fatalf("expected app id from legacy env name, got %q", cfg.Xfyun.ASR.AppID)
	}
	if cfg.Spark.Password != "secret" {
		t.Fatalf("expected spark password from legacy env name, got %q", cfg.Spark.Password)
	}
}

func TestLoadReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
interview:
  total_questions: 2
  polish_answers: true
synthesis:
  provider: deepgram
deepgram:
  api_key: dg-key
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(New(), path)
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	if cfg.Interview.TotalQuestions != 2 || !cfg.Interview.PolishAnswers {
		t.Fatalf("expected interview section from file, got %+v", cfg.Interview)
	}
	if cfg.Synthesis.Provider != ProviderDeepgram || cfg.Deepgram.APIKey != "dg-key" {
		t.Fatalf("expected deepgram synthesis from file, got %q with key %q", cfg.Synthesis.Provider, cfg.Deepgram.APIKey)
	}
	if cfg.Synthesis.Voice != "x4_xiaoyan" {
		t.Fatalf("expected unset keys to keep defaults, got voice %q", cfg.Synthesis.Voice)
	}
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	if _, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("expected load to succeed, got %v", err)
	}

	err = cfg.Validate()
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected invalid config without credentials, got %v", err)
	}
	for _, want := range []string{"xfyun.asr.app_id", "xfyun.tts.api_secret", "spark.password"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %v", want, err)
		}
	}

	cfg.Xfyun.ASR = Credentials{AppID: "a", APIKey: "k", APISecret: "s"}
	cfg.Xfyun.TTS = cfg.Xfyun.ASR
	cfg.Spark.Password = "p"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected complete config to validate, got %v", err)
	}

	cfg.Recognition.Provider = "unknown"
	cfg.Capture.FrameBytes = 3
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "unknown recognition provider") ||
		!strings.Contains(err.Error(), "frame_bytes") {
		t.Fatalf("expected provider and frame size errors, got %v", err)
	}
}

func TestSchemaUsesConfigKeys(t *testing.T) {
	schema := Schema()

	interview, ok := schema.Properties.Get("interview")
	if !ok {
		t.Fatalf("expected interview section in schema")
	}
	timeout, ok := interview.Properties.Get("final_timeout")
	if !ok {
		t.Fatalf("expected final_timeout key in interview section")
	}
	if timeout.Type != "string" {
		t.Fatalf("expected durations as strings, got %q", timeout.Type)
	}
}
