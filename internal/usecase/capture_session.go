package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"voxbridge/internal/domain"
	"voxbridge/internal/pcm"
	"voxbridge/internal/ports"
)

var (
	ErrNoActiveSession = errors.New("no active capture session")
	ErrSessionBusy     = errors.New("capture session is still stopping")
)

// Config controls capture and recognition defaults.
type Config struct {
	SampleRate   int
	Channels     int
	BlockSize    int
	LanguageCode string
}

// CaptureSession owns one microphone capture lifecycle at a time: it
// acquires the input, accumulates LINEAR16 audio while listening and hands
// the finished buffer to the recognition gateway on Stop.
type CaptureSession struct {
	mic       ports.Microphone
	contexts  ports.AudioContextFactory
	gateway   ports.RecognitionGateway
	events    ports.EventSink
	finalizer transcriptFinalizer
	logger    *log.Logger
	cfg       Config

	mu sync.Mutex
	// starting is set while an acquisition is in flight. cancelRequested
	// is only ever set while starting and is cleared when Start observes it.
	starting        bool
	cancelRequested bool
	state           domain.SessionState
	audioCtx        ports.AudioContext
	current         *activeCapture
	buffer          []byte
}

func NewCaptureSession(
	mic ports.Microphone,
	contexts ports.AudioContextFactory,
	gateway ports.RecognitionGateway,
	rules ports.RulesEngine,
	clipboard ports.Clipboard,
	events ports.EventSink,
	logger *log.Logger,
	cfg Config,
) *CaptureSession {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.BlockSize < 256 {
		cfg.BlockSize = 4096
	}
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CaptureSession{
		mic:       mic,
		contexts:  contexts,
		gateway:   gateway,
		events:    events,
		finalizer: newTranscriptFinalizer(rules, clipboard, events),
		logger:    logger,
		cfg:       cfg,
		state:     domain.SessionStateIdle,
		buffer:    []byte{},
	}
}

// Start acquires the microphone and begins accumulating audio. Calls made
// while an acquisition is already in flight, or while listening, return nil
// without acquiring a second input. If Stop is called before acquisition
// resolves, the input is released as soon as it arrives and nothing is
// captured.
func (c *CaptureSession) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.starting {
		c.mu.Unlock()
		c.logger.Debug("start already in flight")
		return nil
	}
	switch c.state {
	case domain.SessionStateListening:
		c.mu.Unlock()
		return nil
	case domain.SessionStateStopping:
		c.mu.Unlock()
		return ErrSessionBusy
	}
	c.starting = true
	c.state = domain.SessionStateStarting
	c.buffer = []byte{}
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateStarting, domain.SessionReasonAcquiring)

	active, err := c.acquire(ctx)

	c.mu.Lock()
	cancelled := c.cancelRequested
	c.cancelRequested = false
	c.starting = false

	if err != nil {
		c.state = domain.SessionStateIdle
		c.mu.Unlock()
		c.logger.Error("microphone acquisition failed", "error", err)
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonAcquisitionFailed)
		return err
	}

	if cancelled {
		c.state = domain.SessionStateIdle
		c.mu.Unlock()
		c.teardown(active)
		c.logger.Info("start cancelled by stop", "session", active.id)
		c.events.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonStartCancelled)
		return nil
	}

	active.done = make(chan struct{})
	c.current = active
	c.state = domain.SessionStateListening
	go c.consume(active)
	c.mu.Unlock()

	c.logger.Info("listening", "session", active.id, "rate", active.context.SampleRate())
	c.events.SessionStateChanged(domain.SessionStateListening, domain.SessionReasonListeningStarted)
	return nil
}

// Stop tears down the input and, when audio was captured, returns the
// recognition result for it. A nil result with a nil error means nothing
// was captured: Stop was called while idle, during acquisition, or before
// any block arrived. An empty languageCode uses the configured default.
func (c *CaptureSession) Stop(ctx context.Context, languageCode string) (*domain.RecognitionResult, error) {
	c.mu.Lock()
	if c.starting {
		c.cancelRequested = true
		c.mu.Unlock()
		c.logger.Debug("stop requested during acquisition")
		return nil, nil
	}
	active := c.current
	if active == nil || c.state != domain.SessionStateListening {
		c.mu.Unlock()
		return nil, nil
	}
	c.state = domain.SessionStateStopping
	c.mu.Unlock()

	audio := c.release(active)
	if len(audio) == 0 {
		c.finish(domain.SessionReasonNothingCaptured)
		return nil, nil
	}

	if languageCode == "" {
		languageCode = c.cfg.LanguageCode
	}
	rate := active.context.SampleRate()

	c.events.SessionStateChanged(domain.SessionStateStopping, domain.SessionReasonRecognizing)
	c.logger.Info("recognizing",
		"session", active.id,
		"size", humanize.Bytes(uint64(len(audio))),
		"rate", rate,
		"language", languageCode,
	)

	result, err := c.gateway.Recognize(ctx, domain.RecognitionRequest{
		Audio:        audio,
		SampleRate:   rate,
		LanguageCode: languageCode,
	})
	if err != nil {
		c.logger.Error("recognition failed", "session", active.id, "error", err)
		c.finish(domain.SessionReasonRecognitionFailed)
		return nil, err
	}

	raw, reason := c.finalizer.Complete(ctx, &result)
	if reason == domain.SessionReasonNoTranscript {
		c.finish(reason)
		return &result, nil
	}
	c.events.FinalTranscript(raw, result.Transcript)
	c.finish(reason)
	return &result, nil
}

// Abort discards the current capture without recognition.
func (c *CaptureSession) Abort() error {
	c.mu.Lock()
	if c.starting {
		c.cancelRequested = true
		c.mu.Unlock()
		return nil
	}
	active := c.current
	if active == nil || c.state != domain.SessionStateListening {
		c.mu.Unlock()
		return ErrNoActiveSession
	}
	c.state = domain.SessionStateStopping
	c.mu.Unlock()

	audio := c.release(active)
	c.logger.Info("capture discarded", "session", active.id, "size", humanize.Bytes(uint64(len(audio))))
	c.finish(domain.SessionReasonCaptureDiscarded)
	return nil
}

// Status returns the current backend status.
func (c *CaptureSession) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{
		State:  c.state,
		Active: c.state != domain.SessionStateIdle,
	}
	if c.current != nil {
		status.SessionID = c.current.id
		status.Message = c.current.lost
	}
	if c.audioCtx != nil {
		status.SampleRate = c.audioCtx.SampleRate()
	}
	return status
}

// SampleRate reports the rate of the audio context, or the configured
// target before any context exists.
func (c *CaptureSession) SampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audioCtx == nil {
		return c.cfg.SampleRate
	}
	return c.audioCtx.SampleRate()
}

func (c *CaptureSession) acquire(ctx context.Context) (*activeCapture, error) {
	stream, err := c.mic.Acquire(ctx, ports.MicrophoneConfig{
		Channels:   c.cfg.Channels,
		SampleRate: c.cfg.SampleRate,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire microphone: %w", err)
	}

	audioCtx, err := c.audioContext(c.cfg.SampleRate, false)
	if err != nil {
		_ = stream.Stop()
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}

	source, err := audioCtx.Attach(stream, c.cfg.BlockSize)
	if errors.Is(err, domain.ErrDeviceRateMismatch) {
		c.logger.Warn("device rate differs from context, retrying at default rate",
			"requested", c.cfg.SampleRate,
			"device", stream.SampleRate(),
		)
		audioCtx, err = c.audioContext(0, true)
		if err == nil {
			source, err = audioCtx.Attach(stream, c.cfg.BlockSize)
		}
	}
	if err != nil {
		_ = stream.Stop()
		return nil, fmt.Errorf("failed to attach microphone: %w", err)
	}

	return &activeCapture{
		id:      uuid.NewString(),
		input:   stream,
		source:  source,
		context: audioCtx,
	}, nil
}

// audioContext returns the shared audio context, building it on first use or
// when replace is set.
func (c *CaptureSession) audioContext(sampleRate int, replace bool) (ports.AudioContext, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.audioCtx != nil && !replace {
		return c.audioCtx, nil
	}
	audioCtx, err := c.contexts.NewContext(sampleRate)
	if err != nil {
		return nil, err
	}
	c.audioCtx = audioCtx
	return audioCtx, nil
}

func (c *CaptureSession) consume(active *activeCapture) {
	defer close(active.done)

	for block := range active.source.Blocks() {
		encoded := pcm.EncodeBlock(block)
		c.mu.Lock()
		if c.current == active {
			c.buffer = pcm.Combine(c.buffer, encoded)
		}
		c.mu.Unlock()
	}

	c.reportLostInput(active)
}

// reportLostInput handles a source that ended without Stop or Abort. The
// session keeps listening so the audio captured so far still reaches the
// gateway on Stop.
func (c *CaptureSession) reportLostInput(active *activeCapture) {
	detail := "microphone stream ended unexpectedly"
	if err := active.source.Err(); err != nil {
		detail = fmt.Sprintf("microphone stream failed: %v", err)
	}

	c.mu.Lock()
	if c.current != active || c.state != domain.SessionStateListening {
		c.mu.Unlock()
		return
	}
	active.lost = detail
	size := len(c.buffer)
	c.mu.Unlock()

	c.logger.Warn("microphone input lost", "session", active.id, "detail", detail, "captured", humanize.Bytes(uint64(size)))
	c.events.SessionError(domain.ErrorCodeAudioStream, detail)
}

// teardown disconnects the source and stops the hardware input, then waits
// for the consumer, if one was started, to drain.
func (c *CaptureSession) teardown(active *activeCapture) {
	active.source.Disconnect()
	if err := active.input.Stop(); err != nil {
		c.logger.Warn("failed to stop microphone cleanly", "session", active.id, "error", err)
		c.events.SessionError(domain.ErrorCodeAudioStop, "failed to stop microphone cleanly")
	}
	if active.done != nil {
		<-active.done
	}
}

// release tears down active and takes the accumulated buffer, leaving an
// empty one in its place.
func (c *CaptureSession) release(active *activeCapture) []byte {
	c.teardown(active)

	c.mu.Lock()
	defer c.mu.Unlock()
	audio := c.buffer
	c.buffer = []byte{}
	if c.current == active {
		c.current = nil
	}
	return audio
}

func (c *CaptureSession) finish(reason domain.SessionStateReason) {
	c.mu.Lock()
	c.state = domain.SessionStateIdle
	c.mu.Unlock()

	c.events.SessionStateChanged(domain.SessionStateIdle, reason)
}
