package domain

// SessionState models the listening lifecycle.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateStarting  SessionState = "starting"
	SessionStateListening SessionState = "listening"
	SessionStateStopping  SessionState = "stopping"
	SessionStateError     SessionState = "error"
)

// SessionStateReason provides a structured reason for state transitions.
type SessionStateReason string

const (
	SessionReasonMicCold                        SessionStateReason = "mic_cold"
	SessionReasonAcquiring                      SessionStateReason = "acquiring"
	SessionReasonListeningStarted               SessionStateReason = "listening_started"
	SessionReasonStartCancelled                 SessionStateReason = "start_cancelled"
	SessionReasonAcquisitionFailed              SessionStateReason = "acquisition_failed"
	SessionReasonRecognizing                    SessionStateReason = "recognizing"
	SessionReasonTranscriptReady                SessionStateReason = "transcript_ready"
	SessionReasonTranscriptCopied               SessionStateReason = "transcript_copied"
	SessionReasonTranscriptReadyClipboardFailed SessionStateReason = "transcript_clipboard_failed"
	SessionReasonNothingCaptured                SessionStateReason = "nothing_captured"
	SessionReasonNoTranscript                   SessionStateReason = "no_transcript"
	SessionReasonCaptureDiscarded               SessionStateReason = "capture_discarded"
	SessionReasonRecognitionFailed              SessionStateReason = "recognition_failed"
	SessionReasonRulesFailed                    SessionStateReason = "rules_failed"
)

// ErrorCode identifies non-fatal and fatal backend errors.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeAcquisition ErrorCode = "acquisition"
	ErrorCodeAudioStop   ErrorCode = "audio_stop"
	ErrorCodeAudioStream ErrorCode = "audio_stream"
	ErrorCodeBusy        ErrorCode = "busy"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeSynthesis   ErrorCode = "synthesis"
	ErrorCodeRules       ErrorCode = "rules"
	ErrorCodeClipboard   ErrorCode = "clipboard"
)

// RecognitionRequest is one finished capture handed to a recognition gateway.
type RecognitionRequest struct {
	Audio        []byte
	SampleRate   int
	LanguageCode string
}

// Alternative is one candidate transcription of a recognized segment.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// SegmentResult holds the alternatives for one consecutive portion of audio.
type SegmentResult struct {
	Alternatives []Alternative `json:"alternatives"`
	LanguageCode string        `json:"languageCode,omitempty"`
}

// RecognitionResult is what a gateway returns for one session's audio.
// Transcript is filled after rules have been applied.
type RecognitionResult struct {
	Results    []SegmentResult `json:"results"`
	Transcript string          `json:"transcript"`
	Copied     bool            `json:"copied"`
}

// BestTranscript joins the first alternative of every segment.
func (r RecognitionResult) BestTranscript() string {
	out := ""
	for _, segment := range r.Results {
		if len(segment.Alternatives) == 0 {
			continue
		}
		text := segment.Alternatives[0].Transcript
		if text == "" {
			continue
		}
		if out != "" && out[len(out)-1] != ' ' && text[0] != ' ' {
			out += " "
		}
		out += text
	}
	return out
}

// SynthesisRequest asks a synthesis gateway to speak text.
type SynthesisRequest struct {
	Text         string
	LanguageCode string
}

// Status summarizes the current runtime status.
type Status struct {
	State      SessionState `json:"state"`
	Active     bool         `json:"active"`
	SessionID  string       `json:"sessionId,omitempty"`
	SampleRate int          `json:"sampleRate,omitempty"`
	Message    string       `json:"message,omitempty"`
}
