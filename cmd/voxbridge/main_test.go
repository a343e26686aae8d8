package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"voxbridge/internal/config"
	"voxbridge/internal/domain"
	"voxbridge/internal/pcm"
)

func TestApplyOverrides(t *testing.T) {
	keys := []string{"provider", "language", "log_level", "rules_file"}
	t.Cleanup(func() {
		for _, key := range keys {
			viper.Set(key, "")
		}
	})

	viper.Set("provider", "Deepgram")
	viper.Set("language", "fr-FR")
	viper.Set("log_level", "DEBUG")
	viper.Set("rules_file", "/tmp/x.rules")

	cfg := config.Config{Provider: config.ProviderGoogle, Language: "en-US", LogLevel: "info"}
	applyOverrides(&cfg)

	if cfg.Provider != config.ProviderDeepgram || cfg.Language != "fr-FR" || cfg.LogLevel != "debug" || cfg.Rules.Path != "/tmp/x.rules" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
}

func TestApplyOverridesKeepsConfigWhenUnset(t *testing.T) {
	for _, key := range []string{"provider", "language", "log_level", "rules_file"} {
		viper.Set(key, "")
	}

	cfg := config.Config{Provider: config.ProviderDeepgram, Language: "de-DE", Rules: config.RulesConfig{Path: "a.rules"}}
	applyOverrides(&cfg)

	if cfg.Provider != config.ProviderDeepgram || cfg.Language != "de-DE" || cfg.Rules.Path != "a.rules" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestSavingGatewayWritesWAV(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "capture.wav")
	next := &recordingGateway{result: domain.RecognitionResult{Results: []domain.SegmentResult{
		{Alternatives: []domain.Alternative{{Transcript: "hi"}}},
	}}}
	gateway := &savingGateway{next: next, path: path}

	audio := []byte{1, 0, 2, 0, 3, 0}
	result, err := gateway.Recognize(context.Background(), domain.RecognitionRequest{Audio: audio, SampleRate: 22050})
	if err != nil {
		t.Fatalf("recognize failed: %v", err)
	}
	if result.BestTranscript() != "hi" || next.calls != 1 {
		t.Fatalf("expected request forwarded once, got calls=%d result=%+v", next.calls, result)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected saved capture: %v", err)
	}
	saved, rate, err := pcm.DecodeWAV(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if rate != 22050 || !bytes.Equal(saved, audio) {
		t.Fatalf("unexpected saved capture: rate=%d audio=%v", rate, saved)
	}
}

func TestSavingGatewayRejectsBadRate(t *testing.T) {
	t.Parallel()

	next := &recordingGateway{}
	gateway := &savingGateway{next: next, path: filepath.Join(t.TempDir(), "x.wav")}
	if _, err := gateway.Recognize(context.Background(), domain.RecognitionRequest{Audio: []byte{0, 0}}); err == nil {
		t.Fatalf("expected error for missing sample rate")
	}
	if next.calls != 0 {
		t.Fatalf("expected no forwarded request")
	}
}

func TestLogSinkWithoutLogger(t *testing.T) {
	t.Parallel()

	sink := &logSink{}
	sink.SessionStateChanged(domain.SessionStateIdle, domain.SessionReasonMicCold)
	sink.FinalTranscript("a", "b")
	sink.SessionError(domain.ErrorCodeRules, "detail")
}

func TestTranscribeCommand(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[{"alternatives":[{"transcript":"hello world","confidence":0.9}]}]}`)
	}))
	defer server.Close()

	dir := t.TempDir()
	rulesPath := filepath.Join(dir, "substitutions.rules")
	if err := os.WriteFile(rulesPath, []byte("hello => hi\n"), 0o600); err != nil {
		t.Fatalf("write rules failed: %v", err)
	}
	wav, err := pcm.EncodeWAV(pcm.EncodeBlock([]float32{0.1, -0.1, 0.2, -0.2}), 16000)
	if err != nil {
		t.Fatalf("encode wav failed: %v", err)
	}
	wavPath := filepath.Join(dir, "speech.wav")
	if err := os.WriteFile(wavPath, wav, 0o600); err != nil {
		t.Fatalf("write wav failed: %v", err)
	}

	t.Setenv("HOME", dir)
	t.Setenv("VOXBRIDGE_PROVIDER", "google")
	t.Setenv("VOXBRIDGE_LANGUAGE", "en-US")
	t.Setenv("VOXBRIDGE_RULES_FILE", rulesPath)
	t.Setenv("VOXBRIDGE_LOG_LEVEL", "error")
	t.Setenv("GOOGLE_API_KEY", "secret")
	t.Setenv("GOOGLE_SPEECH_ENDPOINT", server.URL)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"transcribe", wavPath})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("transcribe failed: %v", err)
	}
	if gotPath != "/v1/speech:recognize" {
		t.Fatalf("unexpected request path: %q", gotPath)
	}
	if got := strings.TrimSpace(out.String()); got != "hi world" {
		t.Fatalf("unexpected transcript output: %q", got)
	}
}

type recordingGateway struct {
	calls  int
	result domain.RecognitionResult
}

func (g *recordingGateway) Recognize(_ context.Context, _ domain.RecognitionRequest) (domain.RecognitionResult, error) {
	g.calls++
	return g.result, nil
}
