package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"voxbridge/internal/domain"
	"voxbridge/internal/pcm"
	"voxbridge/internal/ports"
)

const (
	// DefaultSampleRate is the rate a default context reports before any
	// stream is attached.
	DefaultSampleRate = 48000
	// DefaultBlockSize is the number of frames in one capture block.
	DefaultBlockSize = 4096

	blockQueueDepth = 8
	bytesPerFloat   = 4
)

// ContextFactory builds processing contexts.
type ContextFactory struct{}

func NewContextFactory() ContextFactory {
	return ContextFactory{}
}

// NewContext returns a context fixed at sampleRate, or one that follows the
// rate of whatever stream is attached when sampleRate is 0.
func (ContextFactory) NewContext(sampleRate int) (ports.AudioContext, error) {
	if sampleRate < 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}
	return NewContext(sampleRate), nil
}

// Context mirrors a platform audio context: streams attach to it and are
// cut into fixed-size blocks.
type Context struct {
	mu    sync.Mutex
	rate  int
	fixed bool
}

func NewContext(sampleRate int) *Context {
	if sampleRate <= 0 {
		return &Context{rate: DefaultSampleRate}
	}
	return &Context{rate: sampleRate, fixed: true}
}

func (c *Context) SampleRate() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// Attach starts delivering blocks of blockSize frames from stream. A fixed
// context rejects streams running at another rate with
// domain.ErrDeviceRateMismatch.
func (c *Context) Attach(stream ports.MicrophoneStream, blockSize int) (ports.CaptureSource, error) {
	if blockSize < 256 {
		blockSize = DefaultBlockSize
	}

	native := stream.SampleRate()
	c.mu.Lock()
	if c.fixed && native > 0 && native != c.rate {
		rate := c.rate
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: stream runs at %d Hz, context at %d Hz", domain.ErrDeviceRateMismatch, native, rate)
	}
	if !c.fixed && native > 0 {
		c.rate = native
	}
	c.mu.Unlock()

	source := &captureSource{
		stream: stream,
		blocks: make(chan []float32, blockQueueDepth),
		done:   make(chan struct{}),
	}
	go source.run(blockSize)
	return source, nil
}

type captureSource struct {
	stream ports.MicrophoneStream
	blocks chan []float32

	done      chan struct{}
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

func (s *captureSource) Blocks() <-chan []float32 {
	return s.blocks
}

// Disconnect stops delivery. Blocks already queued stay readable; the
// channel closes once the reader notices, which may require the stream to be
// stopped first.
func (s *captureSource) Disconnect() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Err returns the read error that ended delivery, if any.
func (s *captureSource) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *captureSource) run(blockSize int) {
	defer close(s.blocks)

	buf := make([]byte, blockSize*bytesPerFloat)
	for {
		n, err := io.ReadFull(s.stream, buf)
		if n >= bytesPerFloat {
			if !s.deliver(pcm.DecodeFloat32LE(buf[:n])) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !s.disconnected() {
				s.errMu.Lock()
				s.err = err
				s.errMu.Unlock()
			}
			return
		}
	}
}

func (s *captureSource) deliver(block []float32) bool {
	if s.disconnected() {
		return false
	}
	select {
	case s.blocks <- block:
		return true
	case <-s.done:
		return false
	}
}

func (s *captureSource) disconnected() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
