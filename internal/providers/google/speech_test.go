package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"voxbridge/internal/domain"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                                     DefaultSpeechEndpoint,
		"https://eu-speech.googleapis.com":     "https://eu-speech.googleapis.com/",
		" https://eu-speech.googleapis.com// ": "https://eu-speech.googleapis.com/",
	}
	for in, want := range cases {
		if got := normalizeEndpoint(in, DefaultSpeechEndpoint); got != want {
			t.Fatalf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSpeechGatewayRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewSpeechGateway(Config{}).Recognize(context.Background(), domain.RecognitionRequest{Audio: []byte{0, 0}})
	if err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestSpeechGatewayRecognize(t *testing.T) {
	t.Parallel()

	audio := []byte{1, 2, 3, 4}
	var got struct {
		Config struct {
			Encoding        string `json:"encoding"`
			SampleRateHertz int    `json:"sampleRateHertz"`
			LanguageCode    string `json:"languageCode"`
		} `json:"config"`
		Audio struct {
			Content string `json:"content"`
		} `json:"audio"`
	}
	var gotKey, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"results":[
			{"alternatives":[{"transcript":"hello","confidence":0.92},{"transcript":"yellow","confidence":0.4}],"languageCode":"en-us"},
			{"alternatives":[]},
			{"alternatives":[{"transcript":"world","confidence":0.88}]}
		]}`)
	}))
	defer server.Close()

	gateway := NewSpeechGateway(Config{APIKey: "secret", Endpoint: server.URL})
	result, err := gateway.Recognize(context.Background(), domain.RecognitionRequest{
		Audio:        audio,
		SampleRate:   44100,
		LanguageCode: "en-US",
	})
	if err != nil {
		t.Fatalf("recognize failed: %v", err)
	}

	if gotPath != "/v1/speech:recognize" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("expected api key in query, got %q", gotKey)
	}
	if got.Config.Encoding != "LINEAR16" || got.Config.SampleRateHertz != 44100 || got.Config.LanguageCode != "en-US" {
		t.Fatalf("unexpected config: %+v", got.Config)
	}
	if got.Audio.Content != base64.StdEncoding.EncodeToString(audio) {
		t.Fatalf("unexpected audio content: %q", got.Audio.Content)
	}

	if len(result.Results) != 2 {
		t.Fatalf("expected empty segments to be dropped, got %+v", result.Results)
	}
	if result.Results[0].Alternatives[0].Confidence != 0.92 || result.Results[0].LanguageCode != "en-us" {
		t.Fatalf("unexpected first segment: %+v", result.Results[0])
	}
	if got := result.BestTranscript(); got != "hello world" {
		t.Fatalf("unexpected best transcript: %q", got)
	}
}

func TestSpeechGatewayRemoteError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":400,"message":"sample_rate_hertz (1) must be between 8000 and 48000.","status":"INVALID_ARGUMENT"}}`)
	}))
	defer server.Close()

	gateway := NewSpeechGateway(Config{APIKey: "secret", Endpoint: server.URL})
	_, err := gateway.Recognize(context.Background(), domain.RecognitionRequest{Audio: []byte{0, 0}, SampleRate: 1})

	remote, ok := domain.AsRemoteError(err)
	if !ok {
		t.Fatalf("expected remote error, got %v", err)
	}
	if remote.Code != 400 || remote.Message != "sample_rate_hertz (1) must be between 8000 and 48000." {
		t.Fatalf("unexpected remote error: %+v", remote)
	}
}

func TestToRecognitionResultNil(t *testing.T) {
	t.Parallel()

	if got := toRecognitionResult(nil); len(got.Results) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}
