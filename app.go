package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voxbridge/internal/bootstrap"
	"voxbridge/internal/config"
	"voxbridge/internal/domain"
	"voxbridge/internal/usecase"
)

const (
	eventSession = "voxbridge:session"
	eventFinal   = "voxbridge:final"
	eventError   = "voxbridge:error"
)

// App is the Wails application root.
type App struct {
	ctx context.Context

	session *usecase.CaptureSession
	speaker *usecase.Speaker
	cfg     config.Config
	bootErr error
}

func NewApp() *App {
	return &App{}
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a, &wailsClipboard{})
	if err != nil {
		a.bootErr = err
		a.SessionError(domain.ErrorCodeStartup, err.Error())
		return
	}

	a.cfg = services.Config
	a.session = services.Session
	a.speaker = services.Speaker
	a.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonMicCold)
}

func (a *App) shutdown(_ context.Context) {
	if a.session == nil {
		return
	}
	_ = a.session.Abort()
}

// StartListening acquires the microphone and starts buffering audio.
func (a *App) StartListening() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.session.Start(a.ctx); err != nil {
		a.SessionError(startErrorCode(err), err.Error())
		return domain.Status{}, err
	}
	return a.session.Status(), nil
}

func startErrorCode(err error) domain.ErrorCode {
	if errors.Is(err, usecase.ErrSessionBusy) {
		return domain.ErrorCodeBusy
	}
	return domain.ErrorCodeAcquisition
}

// StopListening ends the capture and returns the recognition result. An
// empty language code uses the configured default. A nil result means
// nothing was captured.
func (a *App) StopListening(languageCode string) (*domain.RecognitionResult, error) {
	if err := a.requireReady(); err != nil {
		return nil, err
	}
	result, err := a.session.Stop(a.ctx, languageCode)
	if err != nil {
		a.SessionError(domain.ErrorCodeRecognition, err.Error())
		return nil, err
	}
	return result, nil
}

// AbortListening discards an in-progress capture.
func (a *App) AbortListening() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.session.Abort(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveSession) {
			return nil
		}
		a.SessionError(domain.ErrorCodeAudioStop, err.Error())
		return err
	}
	return nil
}

// Speak synthesizes text and starts playing it.
func (a *App) Speak(text string, languageCode string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	if err := a.speaker.Speak(a.ctx, text, languageCode); err != nil {
		a.SessionError(domain.ErrorCodeSynthesis, err.Error())
		return err
	}
	return nil
}

// GetStatus returns the current session status.
func (a *App) GetStatus() domain.Status {
	if a.session == nil {
		if a.bootErr != nil {
			return domain.Status{State: domain.SessionStateError, Active: false, Message: a.bootErr.Error()}
		}
		return domain.Status{State: domain.SessionStateIdle, Active: false}
	}
	return a.session.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	info := map[string]string{
		"provider":         string(a.cfg.Provider),
		"language":         a.cfg.Language,
		"sampleRate":       strconv.Itoa(a.cfg.Audio.SampleRate),
		"rulesFile":        a.cfg.Rules.Path,
		"audioInput":       a.cfg.Audio.InputDevice,
		"audioInputFormat": a.cfg.Audio.InputFormat,
	}
	switch a.cfg.Provider {
	case config.ProviderDeepgram:
		info["model"] = a.cfg.Deepgram.Model
	default:
		info["endpoint"] = a.cfg.Google.SpeechEndpoint
	}
	return info
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.session == nil || a.speaker == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// SessionStateChanged emits session lifecycle updates to the frontend.
func (a *App) SessionStateChanged(state domain.SessionState, reason domain.SessionStateReason) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventSession, map[string]string{
		"state":   string(state),
		"reason":  string(reason),
		"message": sessionReasonMessage(reason),
	})
}

// FinalTranscript emits final transcript output.
func (a *App) FinalTranscript(raw string, transformed string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventFinal, map[string]string{
		"raw":         raw,
		"transformed": transformed,
	})
}

// SessionError emits backend errors to the UI.
func (a *App) SessionError(code domain.ErrorCode, detail string) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code, detail),
		"detail":  detail,
	})
}

func sessionReasonMessage(reason domain.SessionStateReason) string {
	switch reason {
	case domain.SessionReasonMicCold:
		return "Mic cold"
	case domain.SessionReasonAcquiring:
		return "Waiting for microphone..."
	case domain.SessionReasonListeningStarted:
		return "Listening"
	case domain.SessionReasonStartCancelled:
		return "Start cancelled"
	case domain.SessionReasonAcquisitionFailed:
		return "Microphone unavailable"
	case domain.SessionReasonRecognizing:
		return "Stopped. Recognizing..."
	case domain.SessionReasonTranscriptReady:
		return "Transcript ready"
	case domain.SessionReasonTranscriptCopied:
		return "Transcript copied to clipboard"
	case domain.SessionReasonTranscriptReadyClipboardFailed:
		return "Transcript ready (clipboard write failed)"
	case domain.SessionReasonNothingCaptured:
		return "Nothing captured"
	case domain.SessionReasonNoTranscript:
		return "No speech recognized"
	case domain.SessionReasonCaptureDiscarded:
		return "Capture discarded"
	case domain.SessionReasonRecognitionFailed:
		return "Recognition failed"
	case domain.SessionReasonRulesFailed:
		return "Rules processing failed"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode, detail string) string {
	switch code {
	case domain.ErrorCodeStartup:
		return "Startup failed"
	case domain.ErrorCodeAcquisition:
		return "Microphone error"
	case domain.ErrorCodeAudioStop:
		return "Audio stop issue"
	case domain.ErrorCodeAudioStream:
		return "Audio streaming issue"
	case domain.ErrorCodeBusy:
		return "Still finishing the previous capture"
	case domain.ErrorCodeRecognition:
		return "Recognition error"
	case domain.ErrorCodeSynthesis:
		return "Speech synthesis error"
	case domain.ErrorCodeClipboard:
		return "Clipboard write failed"
	case domain.ErrorCodeRules:
		return "Rules processing failed"
	default:
		if detail == "" {
			return "Unknown error"
		}
		return detail
	}
}

type wailsClipboard struct{}

func (c *wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}
