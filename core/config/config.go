// Package config loads interview settings from a config file, the
// environment and command line flags.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/spf13/viper"
)

const (
	ProviderXfyun    = "xfyun"
	ProviderDeepgram = "deepgram"

	BackendMiniaudio = "miniaudio"
	BackendPortaudio = "portaudio"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Interview   Interview   `mapstructure:"interview"`
	Recognition Recognition `mapstructure:"recognition"`
	Synthesis   Synthesis   `mapstructure:"synthesis"`
	Health      Health      `mapstructure:"health"`
	Capture     Capture     `mapstructure:"capture"`
	Audio       Audio       `mapstructure:"audio"`
	Xfyun       Xfyun       `mapstructure:"xfyun"`
	Spark       Spark       `mapstructure:"spark"`
	Deepgram    Deepgram    `mapstructure:"deepgram"`
	Metrics     Metrics     `mapstructure:"metrics"`
}

type Interview struct {
	TotalQuestions     int           `mapstructure:"total_questions" jsonschema:"minimum=1"`
	MaxFailures        int           `mapstructure:"max_failures" jsonschema:"minimum=0"`
	MaxRetries         int           `mapstructure:"max_retries" jsonschema:"minimum=1"`
	FinalTimeout       time.Duration `mapstructure:"final_timeout"`
	TurnRetryDelay     time.Duration `mapstructure:"turn_retry_delay"`
	GenerationAttempts int           `mapstructure:"generation_attempts" jsonschema:"minimum=1"`
	AnswerCue          string        `mapstructure:"answer_cue"`
	SystemPrompt       string        `mapstructure:"system_prompt"`
	PolishAnswers      bool          `mapstructure:"polish_answers"`
}

type Recognition struct {
	Provider         string        `mapstructure:"provider" jsonschema:"enum=xfyun,enum=deepgram"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
	AutoFinalize     time.Duration `mapstructure:"auto_finalize"`
	InterimInterval  time.Duration `mapstructure:"interim_interval"`
	Language         string        `mapstructure:"language"`
	VadEOS           int           `mapstructure:"vad_eos"`
	DeepgramModel    string        `mapstructure:"deepgram_model"`
	DeepgramLanguage string        `mapstructure:"deepgram_language"`
}

type Synthesis struct {
	Provider        string        `mapstructure:"provider" jsonschema:"enum=xfyun,enum=deepgram"`
	MaxSegmentRunes int           `mapstructure:"max_segment_runes" jsonschema:"minimum=1"`
	OpenTimeout     time.Duration `mapstructure:"open_timeout"`
	SegmentTimeout  time.Duration `mapstructure:"segment_timeout"`
	PlaybackTimeout time.Duration `mapstructure:"playback_timeout"`
	PlaybackRetries int           `mapstructure:"playback_retries" jsonschema:"minimum=0"`
	Voice           string        `mapstructure:"voice"`
	Speed           int           `mapstructure:"speed" jsonschema:"minimum=0,maximum=100"`
	Volume          int           `mapstructure:"volume" jsonschema:"minimum=0,maximum=100"`
	Pitch           int           `mapstructure:"pitch" jsonschema:"minimum=0,maximum=100"`
}

type Health struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	CheckTimeout  time.Duration `mapstructure:"check_timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts" jsonschema:"minimum=0"`
	Cooldown      time.Duration `mapstructure:"cooldown"`
	AutoRecovery  bool          `mapstructure:"auto_recovery"`
}

type Capture struct {
	SpeechThreshold float64       `mapstructure:"speech_threshold"`
	TrailingSilence time.Duration `mapstructure:"trailing_silence"`
	MaxListen       time.Duration `mapstructure:"max_listen"`
	FrameBytes      int           `mapstructure:"frame_bytes" jsonschema:"minimum=2"`
}

type Audio struct {
	Backend string `mapstructure:"backend" jsonschema:"enum=miniaudio,enum=portaudio"`
}

type Credentials struct {
	AppID     string `mapstructure:"app_id"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

type Xfyun struct {
	ASR Credentials `mapstructure:"asr"`
	TTS Credentials `mapstructure:"tts"`
}

type Spark struct {
	Password        string        `mapstructure:"password"`
	URL             string        `mapstructure:"url"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	StructuredReply bool          `mapstructure:"structured_reply"`
}

type Deepgram struct {
	APIKey string `mapstructure:"api_key"`
	// Voice is the aura voice used when deepgram synthesizes prompts.
	Voice string `mapstructure:"voice"`
}

type Metrics struct {
	// Address serves /metrics when not empty.
	Address string `mapstructure:"address"`
}

var defaults = map[string]any{
	"interview.total_questions":     3,
	"interview.max_failures":        2,
	"interview.max_retries":         3,
	"interview.final_timeout":       "20s",
	"interview.turn_retry_delay":    "5s",
	"interview.generation_attempts": 3,
	"interview.answer_cue":          "请开始回答",
	"interview.system_prompt":       "",
	"interview.polish_answers":      false,

	"recognition.provider":          ProviderXfyun,
	"recognition.open_timeout":      "3s",
	"recognition.auto_finalize":     "3s",
	"recognition.interim_interval":  "300ms",
	"recognition.language":          "zh_cn",
	"recognition.vad_eos":           10000,
	"recognition.deepgram_model":    "nova-2",
	"recognition.deepgram_language": "zh-CN",

	"synthesis.provider":          ProviderXfyun,
	"synthesis.max_segment_runes": 300,
	"synthesis.open_timeout":      "5s",
	"synthesis.segment_timeout":   "15s",
	"synthesis.playback_timeout":  "60s",
	"synthesis.playback_retries":  2,
	"synthesis.voice":             "x4_xiaoyan",
	"synthesis.speed":             50,
	"synthesis.volume":            50,
	"synthesis.pitch":             50,

	"health.check_interval": "5s",
	"health.check_timeout":  "5s",
	"health.max_attempts":   3,
	"health.cooldown":       "2s",
	"health.auto_recovery":  true,

	"capture.speech_threshold": 300.0,
	"capture.trailing_silence": "2s",
	"capture.max_listen":       "60s",
	"capture.frame_bytes":      640,

	"audio.backend": BackendMiniaudio,

	"xfyun.asr.app_id":     "",
	"xfyun.asr.api_key":    "",
	"xfyun.asr.api_secret": "",
	"xfyun.tts.app_id":     "",
	"xfyun.tts.api_key":    "",
	"xfyun.tts.api_secret": "",

	"spark.password":         "",
	"spark.url":              "https://spark-api-open.xf-yun.com/v2/chat/completions",
	"spark.model":            "x1",
	"spark.temperature":      0.7,
	"spark.max_tokens":       2048,
	"spark.timeout":          "90s",
	"spark.structured_reply": true,

	"deepgram.api_key": "",
	"deepgram.voice":   "aura-asteria-en",

	"metrics.address": ":9090",
}

// legacyEnv maps keys to the environment variable names used by earlier
// deployments. They are consulted after the derived names.
var legacyEnv = map[string][]string{
	"interview.max_failures": {"ASR_MAX_FAILURES"},
	"health.auto_recovery":   {"ENABLE_AUTO_RECOVERY"},
	"health.max_attempts":    {"RECOVERY_MAX_ATTEMPTS"},
	"synthesis.voice":        {"XFYUN_TTS_VOICE_NAME"},
	"xfyun.asr.app_id":       {"XFYUN_ASR_APPID"},
	"xfyun.tts.app_id":       {"XFYUN_TTS_APPID"},
	"spark.password":         {"SPARK_HTTP_API_PASSWORD"},
	"spark.model":            {"SPARK_MODEL_VERSION"},
}

// New returns a viper instance with defaults, environment binding and the
// config file search path set up.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("interview")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/ema-interview")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envNames := append([]string{strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		_ = v.BindEnv(append([]string{key}, envNames...)...)
	}
	return v
}

// Load reads the config file, if one exists, and decodes v into a Config.
// A non-empty path replaces the search path.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem with the selected providers and their
// credentials at once.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	switch c.Recognition.Provider {
	case ProviderXfyun:
		if missing := c.Xfyun.ASR.missing(); len(missing) > 0 {
			invalid("recognition provider xfyun needs xfyun.asr.%s", strings.Join(missing, ", xfyun.asr."))
		}
	case ProviderDeepgram:
		if c.Deepgram.APIKey == "" {
			invalid("recognition provider deepgram needs deepgram.api_key")
		}
	default:
		invalid("unknown recognition provider %q", c.Recognition.Provider)
	}

	switch c.Synthesis.Provider {
	case ProviderXfyun:
		if missing := c.Xfyun.TTS.missing(); len(missing) > 0 {
			invalid("synthesis provider xfyun needs xfyun.tts.%s", strings.Join(missing, ", xfyun.tts."))
		}
	case ProviderDeepgram:
		if c.Deepgram.APIKey == "" {
			invalid("synthesis provider deepgram needs deepgram.api_key")
		}
	default:
		invalid("unknown synthesis provider %q", c.Synthesis.Provider)
	}

	if c.Audio.Backend != BackendMiniaudio && c.Audio.Backend != BackendPortaudio {
		invalid("unknown audio backend %q", c.Audio.Backend)
	}
	if c.Spark.Password == "" {
		invalid("spark.password is required")
	}
	if c.Interview.TotalQuestions < 1 {
		invalid("interview.total_questions must be positive")
	}
	if c.Interview.MaxRetries < 1 {
		invalid("interview.max_retries must be positive")
	}
	if c.Capture.FrameBytes < 2 || c.Capture.FrameBytes%2 != 0 {
		invalid("capture.frame_bytes must be a positive even number")
	}

	return errors.Join(errs...)
}

func (c Credentials) missing() []string {
	var missing []string
	if c.AppID == "" {
		missing = append(missing, "app_id")
	}
	if c.APIKey == "" {
		missing = append(missing, "api_key")
	}
	if c.APISecret == "" {
		missing = append(missing, "api_secret")
	}
	return missing
}

// Schema describes the config file. Durations are written as Go duration
// strings such as "20s".
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		FieldNameTag:   "mapstructure",
		DoNotReference: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(time.Duration(0)) {
				return &jsonschema.Schema{Type: "string", Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`}
			}
			return nil
		},
	}
	return reflector.Reflect(&Config{})
}
