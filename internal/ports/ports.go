package ports

import (
	"context"
	"io"

	"voxbridge/internal/domain"
)

// MicrophoneConfig describes how the microphone should be opened.
type MicrophoneConfig struct {
	Channels   int
	SampleRate int
}

// MicrophoneStream is an acquired microphone producing little-endian
// float32 samples at SampleRate.
type MicrophoneStream interface {
	io.Reader
	SampleRate() int
	// Stop releases the device. It is safe to call more than once.
	Stop() error
}

// Microphone acquires input streams, prompting for access when needed.
type Microphone interface {
	Acquire(ctx context.Context, cfg MicrophoneConfig) (MicrophoneStream, error)
}

// CaptureSource delivers fixed-size blocks from an attached stream in
// arrival order. Blocks is closed once the source is disconnected or the
// stream ends.
type CaptureSource interface {
	Blocks() <-chan []float32
	Disconnect()
	// Err is the read error that ended delivery. It is nil after Disconnect
	// or a clean end of stream.
	Err() error
}

// AudioContext is the processing graph a stream is attached to.
type AudioContext interface {
	SampleRate() int
	Attach(stream MicrophoneStream, blockSize int) (CaptureSource, error)
}

// AudioContextFactory builds contexts. A sample rate of 0 asks for the
// platform default.
type AudioContextFactory interface {
	NewContext(sampleRate int) (AudioContext, error)
}

// AudioPlayer decodes and starts playback without waiting for it to end.
type AudioPlayer interface {
	Play(ctx context.Context, audio []byte) error
}

// RecognitionGateway transcribes one finished buffer of LINEAR16 audio.
type RecognitionGateway interface {
	Recognize(ctx context.Context, req domain.RecognitionRequest) (domain.RecognitionResult, error)
}

// SynthesisGateway turns text into encoded audio.
type SynthesisGateway interface {
	Synthesize(ctx context.Context, req domain.SynthesisRequest) ([]byte, error)
}

// RulesEngine transforms transcripts using deterministic rules.
type RulesEngine interface {
	Apply(text string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink emits backend state/events to the UI.
type EventSink interface {
	SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason)
	FinalTranscript(raw string, transformed string)
	SessionError(code domain.ErrorCode, detail string)
}
