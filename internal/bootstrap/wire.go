package bootstrap

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"voxbridge/internal/audio"
	"voxbridge/internal/config"
	"voxbridge/internal/ports"
	"voxbridge/internal/providers/deepgram"
	"voxbridge/internal/providers/google"
	"voxbridge/internal/rules"
	"voxbridge/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Session    *usecase.CaptureSession
	Speaker    *usecase.Speaker
	Player     *audio.FFPlayPlayer
	Recognizer ports.RecognitionGateway
	Rules      *rules.Engine
	Config     config.Config
	Logger     *log.Logger
}

// Option adjusts how the graph is assembled.
type Option func(*buildOptions)

type buildOptions struct {
	wrapRecognizer func(ports.RecognitionGateway) ports.RecognitionGateway
}

// WithRecognizerWrapper decorates the recognition gateway used by the
// capture session, e.g. to keep a copy of every recognized buffer.
func WithRecognizerWrapper(wrap func(ports.RecognitionGateway) ports.RecognitionGateway) Option {
	return func(o *buildOptions) {
		o.wrapRecognizer = wrap
	}
}

// Build loads configuration and wires all backend dependencies.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}
	return BuildWithConfig(cfg, eventSink, clipboard)
}

// BuildWithConfig wires dependencies for an already resolved configuration.
// clipboard may be nil, in which case transcripts are not copied.
func BuildWithConfig(cfg config.Config, eventSink ports.EventSink, clipboard ports.Clipboard, opts ...Option) (Services, error) {
	var options buildOptions
	for _, opt := range opts {
		opt(&options)
	}
	cfg.Normalize()
	logger := NewLogger(os.Stderr, cfg.LogLevel)

	rulesEngine, err := rules.NewEngine(cfg.Rules.Path, cfg.Rules.IterationLimit)
	if err != nil {
		return Services{}, err
	}
	logger.Debug("rules loaded", "path", cfg.Rules.Path, "count", rulesEngine.Len())

	recognizer := recognitionGateway(cfg, logger)
	if options.wrapRecognizer != nil {
		recognizer = options.wrapRecognizer(recognizer)
	}

	session := usecase.NewCaptureSession(
		audio.NewFFMPEGMicrophone(audio.MicrophoneOptions{
			Command:     cfg.Audio.RecorderCommand,
			InputFormat: cfg.Audio.InputFormat,
			InputDevice: cfg.Audio.InputDevice,
			DeviceRate:  cfg.Audio.DeviceRate,
		}),
		audio.NewContextFactory(),
		recognizer,
		rulesEngine,
		clipboard,
		eventSink,
		logger.WithPrefix("capture"),
		usecase.Config{
			SampleRate:   cfg.Audio.SampleRate,
			Channels:     1,
			BlockSize:    cfg.Audio.BlockSize,
			LanguageCode: cfg.Language,
		},
	)

	player := audio.NewFFPlayPlayer(cfg.Audio.PlayerCommand, logger.WithPrefix("player"))
	speaker := usecase.NewSpeaker(
		google.NewSynthesisGateway(google.Config{
			APIKey:   cfg.Google.APIKey,
			Endpoint: cfg.Google.SynthesisEndpoint,
			Voice:    cfg.Google.Voice,
		}),
		player,
		logger.WithPrefix("speaker"),
		cfg.Language,
	)

	return Services{
		Session:    session,
		Speaker:    speaker,
		Player:     player,
		Recognizer: recognizer,
		Rules:      rulesEngine,
		Config:     cfg,
		Logger:     logger,
	}, nil
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func NewLogger(w io.Writer, level string) *log.Logger {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "voxbridge",
		Level:           parsed,
	})
}

func recognitionGateway(cfg config.Config, logger *log.Logger) ports.RecognitionGateway {
	if cfg.Provider == config.ProviderDeepgram {
		return deepgram.NewGateway(deepgram.Config{
			APIKey:      cfg.Deepgram.APIKey,
			APIBaseURL:  cfg.Deepgram.APIBaseURL,
			Model:       cfg.Deepgram.Model,
			SmartFormat: cfg.Deepgram.SmartFormat,
		}, logger.WithPrefix("deepgram"))
	}
	return google.NewSpeechGateway(google.Config{
		APIKey:   cfg.Google.APIKey,
		Endpoint: cfg.Google.SpeechEndpoint,
	})
}
