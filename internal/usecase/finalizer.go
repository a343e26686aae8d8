package usecase

import (
	"context"

	"voxbridge/internal/domain"
	"voxbridge/internal/ports"
)

type transcriptFinalizer struct {
	rules     ports.RulesEngine
	clipboard ports.Clipboard
	events    ports.EventSink
}

func newTranscriptFinalizer(rules ports.RulesEngine, clipboard ports.Clipboard, events ports.EventSink) transcriptFinalizer {
	return transcriptFinalizer{rules: rules, clipboard: clipboard, events: events}
}

// FinalizeResult applies rules and the optional clipboard to a recognition
// result. It returns the raw best transcript; an empty one leaves result
// untouched with SessionReasonNoTranscript.
func FinalizeResult(ctx context.Context, rules ports.RulesEngine, clipboard ports.Clipboard, events ports.EventSink, result *domain.RecognitionResult) (string, domain.SessionStateReason) {
	return newTranscriptFinalizer(rules, clipboard, events).Complete(ctx, result)
}

func (f transcriptFinalizer) Complete(ctx context.Context, result *domain.RecognitionResult) (string, domain.SessionStateReason) {
	raw := result.BestTranscript()
	if raw == "" {
		return "", domain.SessionReasonNoTranscript
	}
	return raw, f.Finalize(ctx, raw, result)
}

// Finalize fills result.Transcript from raw and copies it to the clipboard.
// Rules and clipboard failures are reported as events but never discard the
// recognition result.
func (f transcriptFinalizer) Finalize(ctx context.Context, raw string, result *domain.RecognitionResult) domain.SessionStateReason {
	result.Transcript = raw
	if f.rules != nil {
		transformed, err := f.rules.Apply(raw)
		if err != nil {
			f.events.SessionError(domain.ErrorCodeRules, err.Error())
			return domain.SessionReasonRulesFailed
		}
		result.Transcript = transformed
	}

	if f.clipboard == nil {
		return domain.SessionReasonTranscriptReady
	}
	if err := f.clipboard.SetText(ctx, result.Transcript); err != nil {
		f.events.SessionError(domain.ErrorCodeClipboard, "transcript ready but clipboard write failed")
		return domain.SessionReasonTranscriptReadyClipboardFailed
	}
	result.Copied = true
	return domain.SessionReasonTranscriptCopied
}
