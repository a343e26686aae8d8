package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider names the recognition backend.
type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderDeepgram Provider = "deepgram"
)

// Config stores runtime configuration for the desktop host and the CLI.
type Config struct {
	Provider Provider
	Language string
	LogLevel string
	Google   GoogleConfig
	Deepgram DeepgramConfig
	Audio    AudioConfig
	Rules    RulesConfig
}

type GoogleConfig struct {
	APIKey            string
	SpeechEndpoint    string
	SynthesisEndpoint string
	Voice             string
}

type DeepgramConfig struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
}

type AudioConfig struct {
	RecorderCommand string
	PlayerCommand   string
	InputFormat     string
	InputDevice     string
	SampleRate      int
	DeviceRate      int
	BlockSize       int
}

type RulesConfig struct {
	Path           string
	IterationLimit int
}

// Load resolves configuration from a local .env file, environment variables
// and defaults. Variables already set in the environment win over .env.
func Load() (Config, error) {
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return Config{}, errors.New("could not determine home directory")
	}

	cfg := Config{
		Provider: Provider(strings.ToLower(envOrDefault("VOXBRIDGE_PROVIDER", string(ProviderGoogle)))),
		Language: envOrDefault("VOXBRIDGE_LANGUAGE", "en-US"),
		LogLevel: strings.ToLower(envOrDefault("VOXBRIDGE_LOG_LEVEL", "info")),
		Google: GoogleConfig{
			APIKey:            strings.TrimSpace(os.Getenv("GOOGLE_API_KEY")),
			SpeechEndpoint:    envOrDefault("GOOGLE_SPEECH_ENDPOINT", "https://speech.googleapis.com/"),
			SynthesisEndpoint: envOrDefault("GOOGLE_TTS_ENDPOINT", "https://texttospeech.googleapis.com/"),
			Voice:             strings.TrimSpace(os.Getenv("GOOGLE_TTS_VOICE")),
		},
		Deepgram: DeepgramConfig{
			APIKey:      strings.TrimSpace(os.Getenv("DEEPGRAM_API_KEY")),
			APIBaseURL:  envOrDefault("DEEPGRAM_API_BASE", "https://api.deepgram.com/v1"),
			Model:       envOrDefault("DEEPGRAM_MODEL", "nova-2"),
			SmartFormat: envOrDefaultBool("DEEPGRAM_SMART_FORMAT", true),
		},
		Audio: AudioConfig{
			RecorderCommand: envOrDefault("VOXBRIDGE_FFMPEG_COMMAND", "ffmpeg"),
			PlayerCommand:   envOrDefault("VOXBRIDGE_PLAYER_COMMAND", "ffplay"),
			InputFormat:     envOrDefault("VOXBRIDGE_AUDIO_INPUT_FORMAT", "pulse"),
			InputDevice:     envOrDefault("VOXBRIDGE_AUDIO_INPUT_DEVICE", "default"),
			SampleRate:      envOrDefaultInt("VOXBRIDGE_SAMPLE_RATE", 16000),
			DeviceRate:      envOrDefaultInt("VOXBRIDGE_DEVICE_RATE", 0),
			BlockSize:       envOrDefaultInt("VOXBRIDGE_BLOCK_SIZE", 4096),
		},
		Rules: RulesConfig{
			Path:           envOrDefault("VOXBRIDGE_RULES_FILE", filepath.Join(home, ".config", "voxbridge", "substitutions.rules")),
			IterationLimit: envOrDefaultInt("VOXBRIDGE_RULE_ITERATION_LIMIT", 30),
		},
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize replaces out-of-range values with defaults. The CLI calls it
// again after applying flag overrides.
func (c *Config) Normalize() {
	switch c.Provider {
	case ProviderGoogle, ProviderDeepgram:
	default:
		c.Provider = ProviderGoogle
	}
	if strings.TrimSpace(c.Language) == "" {
		c.Language = "en-US"
	}
	if c.Audio.SampleRate <= 0 {
		c.Audio.SampleRate = 16000
	}
	if c.Audio.DeviceRate < 0 {
		c.Audio.DeviceRate = 0
	}
	if c.Audio.BlockSize < 256 {
		c.Audio.BlockSize = 4096
	}
	if c.Rules.IterationLimit <= 0 {
		c.Rules.IterationLimit = 30
	}
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
