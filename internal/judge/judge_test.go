package judge

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/timvw/judge-patrol/internal/artifact"
)

var testImage = &artifact.Image{Path: "shot.png", MediaType: "image/png", Data: []byte("\x89PNG fake")}

// fakeServer answers every POST whose path ends in suffix with body and
// records the decoded request and call count.
type fakeServer struct {
	*httptest.Server
	calls   atomic.Int32
	lastReq atomic.Value // string
}

func newFakeServer(t *testing.T, suffix string, status int, body string) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, suffix) {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fs.calls.Add(1)
		data, _ := io.ReadAll(r.Body)
		fs.lastReq.Store(string(data))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) request() string {
	v, _ := fs.lastReq.Load().(string)
	return v
}

func anthropicReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"id":            "msg_1",
		"type":          "message",
		"role":          "assistant",
		"model":         "judge-model",
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"content":       []map[string]any{{"type": "text", "text": text}},
		"usage":         map[string]any{"input_tokens": 120, "output_tokens": 14},
	})
	return string(b)
}

func openAIReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "judge-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": text},
		}},
		"usage": map[string]any{"prompt_tokens": 80, "completion_tokens": 9, "total_tokens": 89},
	})
	return string(b)
}

func geminiReply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content":      map[string]any{"role": "model", "parts": []map[string]any{{"text": text}}},
			"finishReason": "STOP",
		}},
		"usageMetadata": map[string]any{"promptTokenCount": 50, "candidatesTokenCount": 7},
	})
	return string(b)
}

func TestAnthropicJudge_Text(t *testing.T) {
	srv := newFakeServer(t, "/messages", http.StatusOK, anthropicReply(`{"pass": true}`))
	j := NewAnthropicJudge(AnthropicConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})

	v, err := j.JudgeText(context.Background(), "tone is warm", "Welcome to the city!")
	if err != nil {
		t.Fatalf("JudgeText: %v", err)
	}
	if !*v.Pass {
		t.Error("Pass = false, want true")
	}
	if v.Usage.InputTokens != 120 || v.Usage.OutputTokens != 14 {
		t.Errorf("Usage = %+v", v.Usage)
	}
	if !strings.Contains(srv.request(), "Welcome to the city!") {
		t.Error("request should carry the artifact text")
	}
}

func TestAnthropicJudge_Image(t *testing.T) {
	srv := newFakeServer(t, "/messages", http.StatusOK,
		anthropicReply("```json\n{\"pass\": false, \"feedback\": \"no primary action\"}\n```"))
	j := NewAnthropicJudge(AnthropicConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})

	v, err := j.JudgeImage(context.Background(), "clear hierarchy", testImage)
	if err != nil {
		t.Fatalf("JudgeImage: %v", err)
	}
	if *v.Pass {
		t.Error("Pass = true, want false")
	}
	if v.Feedback != "no primary action" {
		t.Errorf("Feedback = %q", v.Feedback)
	}
	req := srv.request()
	if !strings.Contains(req, `"image"`) || !strings.Contains(req, "image/png") {
		t.Errorf("request should carry an image block: %s", req)
	}
	if !strings.Contains(req, testImage.Base64()) {
		t.Error("request should carry the base64 screenshot")
	}
}

func TestAnthropicJudge_ServerErrorNotRetried(t *testing.T) {
	srv := newFakeServer(t, "/messages", http.StatusInternalServerError,
		`{"type":"error","error":{"type":"api_error","message":"boom"}}`)
	j := NewAnthropicJudge(AnthropicConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})

	if _, err := j.JudgeText(context.Background(), "c", "t"); err == nil {
		t.Fatal("expected error")
	}
	if got := srv.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want exactly 1", got)
	}
}

func TestAnthropicJudge_MalformedReply(t *testing.T) {
	srv := newFakeServer(t, "/messages", http.StatusOK, anthropicReply("I think it passes."))
	j := NewAnthropicJudge(AnthropicConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})

	if _, err := j.JudgeText(context.Background(), "c", "t"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOpenAIJudge_Text(t *testing.T) {
	srv := newFakeServer(t, "/chat/completions", http.StatusOK,
		openAIReply(`{"pass": false, "feedback": "tone is cold"}`))
	j := NewOpenAIJudge(OpenAIConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})

	v, err := j.JudgeText(context.Background(), "tone is warm", "Go away.")
	if err != nil {
		t.Fatalf("JudgeText: %v", err)
	}
	if *v.Pass || v.Feedback != "tone is cold" {
		t.Errorf("verdict = pass %v feedback %q", *v.Pass, v.Feedback)
	}
	if v.Usage.InputTokens != 80 || v.Usage.OutputTokens != 9 {
		t.Errorf("Usage = %+v", v.Usage)
	}
}

func TestOpenAIJudge_Image(t *testing.T) {
	srv := newFakeServer(t, "/chat/completions", http.StatusOK, openAIReply(`{"pass": true}`))
	j := NewOpenAIJudge(OpenAIConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})

	v, err := j.JudgeImage(context.Background(), "brand consistency", testImage)
	if err != nil {
		t.Fatalf("JudgeImage: %v", err)
	}
	if !*v.Pass {
		t.Error("Pass = false, want true")
	}
	if !strings.Contains(srv.request(), "data:image/png;base64,") {
		t.Errorf("request should carry a data URL: %s", srv.request())
	}
}

func TestOpenAIJudge_ServerErrorNotRetried(t *testing.T) {
	srv := newFakeServer(t, "/chat/completions", http.StatusServiceUnavailable,
		`{"error":{"message":"overloaded","type":"server_error"}}`)
	j := NewOpenAIJudge(OpenAIConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})

	if _, err := j.JudgeText(context.Background(), "c", "t"); err == nil {
		t.Fatal("expected error")
	}
	if got := srv.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want exactly 1", got)
	}
}

func TestGeminiJudge_Image(t *testing.T) {
	srv := newFakeServer(t, ":generateContent", http.StatusOK,
		geminiReply(`{"pass": false, "feedback": "labels unreadable"}`))
	j, err := NewGeminiJudge(context.Background(), GeminiConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})
	if err != nil {
		t.Fatalf("NewGeminiJudge: %v", err)
	}

	v, err := j.JudgeImage(context.Background(), "readable text", testImage)
	if err != nil {
		t.Fatalf("JudgeImage: %v", err)
	}
	if *v.Pass || v.Feedback != "labels unreadable" {
		t.Errorf("verdict = pass %v feedback %q", *v.Pass, v.Feedback)
	}
	if v.Usage.InputTokens != 50 || v.Usage.OutputTokens != 7 {
		t.Errorf("Usage = %+v", v.Usage)
	}
	if !strings.Contains(srv.request(), "inlineData") {
		t.Errorf("request should carry inline image data: %s", srv.request())
	}
}

func TestGeminiJudge_Text(t *testing.T) {
	srv := newFakeServer(t, ":generateContent", http.StatusOK, geminiReply(`{"pass": true}`))
	j, err := NewGeminiJudge(context.Background(), GeminiConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})
	if err != nil {
		t.Fatalf("NewGeminiJudge: %v", err)
	}

	v, err := j.JudgeText(context.Background(), "tone is warm", "Welcome to the city!")
	if err != nil {
		t.Fatalf("JudgeText: %v", err)
	}
	if !*v.Pass {
		t.Error("Pass = false, want true")
	}
	if v.Feedback != "" {
		t.Errorf("Feedback = %q, want empty", v.Feedback)
	}
	req := srv.request()
	if !strings.Contains(req, "Welcome to the city!") {
		t.Errorf("request should carry the artifact text: %s", req)
	}
	if strings.Contains(req, "inlineData") {
		t.Error("text review must not send image data")
	}
}

func TestGeminiJudge_ServerErrorNotRetried(t *testing.T) {
	srv := newFakeServer(t, ":generateContent", http.StatusServiceUnavailable,
		`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`)
	j, err := NewGeminiJudge(context.Background(), GeminiConfig{BaseURL: srv.URL + "/", APIKey: "k", Model: "judge-model"})
	if err != nil {
		t.Fatalf("NewGeminiJudge: %v", err)
	}

	if _, err := j.JudgeText(context.Background(), "c", "t"); err == nil {
		t.Fatal("expected error")
	}
	if got := srv.calls.Load(); got != 1 {
		t.Errorf("calls = %d, want exactly 1", got)
	}
}

func TestOutputTokenLimit(t *testing.T) {
	tests := []struct {
		in   int64
		want int32
	}{
		{in: 1024, want: 1024},
		{in: math.MaxInt32, want: math.MaxInt32},
		{in: math.MaxInt32 + 1, want: math.MaxInt32},
		{in: 1 << 40, want: math.MaxInt32},
	}
	for _, tt := range tests {
		if got := outputTokenLimit(tt.in); got != tt.want {
			t.Errorf("outputTokenLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNewGeminiJudge_RequiresKey(t *testing.T) {
	if _, err := NewGeminiJudge(context.Background(), GeminiConfig{Model: "m"}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		settings     Settings
		wantProvider string
		wantErr      bool
	}{
		{name: "anthropic", settings: Settings{Provider: "anthropic", Model: "m", APIKey: "k"}, wantProvider: "anthropic"},
		{name: "openai", settings: Settings{Provider: "openai", Model: "m", APIKey: "k"}, wantProvider: "openai"},
		{name: "gemini", settings: Settings{Provider: "gemini", Model: "m", APIKey: "k"}, wantProvider: "gemini"},
		{name: "google alias", settings: Settings{Provider: "google", Model: "m", APIKey: "k"}, wantProvider: "gemini"},
		{name: "unknown provider", settings: Settings{Provider: "llamas", Model: "m"}, wantErr: true},
		{name: "missing model", settings: Settings{Provider: "anthropic"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := New(tt.settings)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if b.Provider() != tt.wantProvider {
				t.Errorf("Provider() = %q, want %q", b.Provider(), tt.wantProvider)
			}
			if b.Model() != "m" {
				t.Errorf("Model() = %q, want m", b.Model())
			}
		})
	}
}
