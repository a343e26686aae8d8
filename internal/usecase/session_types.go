package usecase

import (
	"voxbridge/internal/ports"
)

// activeCapture is the wiring owned between a successful acquisition and
// the teardown that releases it.
type activeCapture struct {
	id      string
	input   ports.MicrophoneStream
	source  ports.CaptureSource
	context ports.AudioContext

	// done is closed by the consumer once the source has drained. It stays
	// nil when the capture is torn down before a consumer was started.
	done chan struct{}

	// lost is set, under the session mutex, when the input ended while the
	// session was still listening.
	lost string
}
