package usecase

import (
	"context"
	"io"
	"sync"

	"voxbridge/internal/domain"
	"voxbridge/internal/ports"
)

type fakeMicrophone struct {
	mu      sync.Mutex
	streams []*fakeStream
	err     error
	calls   int
	rate    int

	// entered receives a value when Acquire is called; gate, when set,
	// holds Acquire until it is closed.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeMicrophone) Acquire(ctx context.Context, cfg ports.MicrophoneConfig) (ports.MicrophoneStream, error) {
	f.mu.Lock()
	f.calls++
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}

	rate := f.rate
	if rate == 0 {
		rate = cfg.SampleRate
	}
	stream := &fakeStream{rate: rate}

	f.mu.Lock()
	f.streams = append(f.streams, stream)
	f.mu.Unlock()
	return stream, nil
}

func (f *fakeMicrophone) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeMicrophone) stream(i int) *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streams[i]
}

type fakeStream struct {
	mu        sync.Mutex
	rate      int
	stopCalls int
	stopErr   error
}

func (f *fakeStream) Read(_ []byte) (int, error) { return 0, io.EOF }

func (f *fakeStream) SampleRate() int { return f.rate }

func (f *fakeStream) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	return f.stopErr
}

func (f *fakeStream) stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

type fakeContextFactory struct {
	mu        sync.Mutex
	requested []int
	contexts  []*fakeContext
	// strictRates lists fixed rates whose contexts reject streams running
	// at a different rate.
	strictRates map[int]bool
	attachErr   error
}

func (f *fakeContextFactory) NewContext(sampleRate int) (ports.AudioContext, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ctx := &fakeContext{rate: sampleRate, strict: f.strictRates[sampleRate], attachErr: f.attachErr}
	f.requested = append(f.requested, sampleRate)
	f.contexts = append(f.contexts, ctx)
	return ctx, nil
}

func (f *fakeContextFactory) requestedRates() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.requested...)
}

func (f *fakeContextFactory) lastSource() *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.contexts) - 1; i >= 0; i-- {
		if src := f.contexts[i].lastSource(); src != nil {
			return src
		}
	}
	return nil
}

type fakeContext struct {
	mu        sync.Mutex
	rate      int
	strict    bool
	attachErr error
	sources   []*fakeSource
}

func (f *fakeContext) SampleRate() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

func (f *fakeContext) Attach(stream ports.MicrophoneStream, _ int) (ports.CaptureSource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	if f.strict && stream.SampleRate() != f.rate {
		return nil, domain.ErrDeviceRateMismatch
	}
	if f.rate == 0 {
		f.rate = stream.SampleRate()
	}
	src := &fakeSource{blocks: make(chan []float32, 8)}
	f.sources = append(f.sources, src)
	return src, nil
}

func (f *fakeContext) lastSource() *fakeSource {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sources) == 0 {
		return nil
	}
	return f.sources[len(f.sources)-1]
}

type fakeSource struct {
	blocks       chan []float32
	once         sync.Once
	mu           sync.Mutex
	disconnected bool
	err          error
}

func (f *fakeSource) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// fail ends delivery the way a dying input does: blocks closes without a
// Disconnect.
func (f *fakeSource) fail(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.blocks)
	})
}

func (f *fakeSource) Blocks() <-chan []float32 { return f.blocks }

func (f *fakeSource) Disconnect() {
	f.once.Do(func() {
		f.mu.Lock()
		f.disconnected = true
		f.mu.Unlock()
		close(f.blocks)
	})
}

func (f *fakeSource) isDisconnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.disconnected
}

type fakeGateway struct {
	mu       sync.Mutex
	requests []domain.RecognitionRequest
	result   domain.RecognitionResult
	err      error

	// entered and gate work like fakeMicrophone's: Recognize signals entered
	// and then waits for gate to close.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeGateway) Recognize(_ context.Context, req domain.RecognitionRequest) (domain.RecognitionResult, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	entered, gate := f.entered, f.gate
	f.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

func (f *fakeGateway) snapshot() []domain.RecognitionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.RecognitionRequest(nil), f.requests...)
}

type fakeSynthesis struct {
	audio []byte
	err   error
	reqs  []domain.SynthesisRequest
}

func (f *fakeSynthesis) Synthesize(_ context.Context, req domain.SynthesisRequest) ([]byte, error) {
	f.reqs = append(f.reqs, req)
	return f.audio, f.err
}

type fakePlayer struct {
	played [][]byte
	err    error
}

func (f *fakePlayer) Play(_ context.Context, audio []byte) error {
	f.played = append(f.played, audio)
	return f.err
}

type fakeRules struct {
	transform string
	err       error
}

func (f *fakeRules) Apply(text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.transform != "" {
		return f.transform, nil
	}
	return text, nil
}

type fakeClipboard struct {
	lastText string
	err      error
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.lastText = text
	return f.err
}

type fakeEventSink struct {
	mu sync.Mutex

	states []stateEvent
	finals []finalEvent
	errors []errEvent
}

type stateEvent struct {
	state  domain.SessionState
	reason domain.SessionStateReason
}

type finalEvent struct {
	raw         string
	transformed string
}

type errEvent struct {
	code   domain.ErrorCode
	detail string
}

func (f *fakeEventSink) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, stateEvent{state: state, reason: reason})
}

func (f *fakeEventSink) FinalTranscript(raw string, transformed string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finals = append(f.finals, finalEvent{raw: raw, transformed: transformed})
}

func (f *fakeEventSink) SessionError(code domain.ErrorCode, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, errEvent{code: code, detail: detail})
}

func (f *fakeEventSink) snapshotStates() []stateEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]stateEvent, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeEventSink) snapshotErrors() []errEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]errEvent, len(f.errors))
	copy(out, f.errors)
	return out
}

func (f *fakeEventSink) lastReason() domain.SessionStateReason {
	states := f.snapshotStates()
	if len(states) == 0 {
		return ""
	}
	return states[len(states)-1].reason
}
