package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timvw/judge-patrol/internal/config"
	"github.com/timvw/judge-patrol/internal/review"
)

// isolate clears config-related env and points HOME and cwd at temp dirs.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"JUDGE_PATROL_PROVIDER", "JUDGE_PATROL_MODEL", "JUDGE_PATROL_BASE_URL",
		"JUDGE_PATROL_API_KEY", "JUDGE_PATROL_TIMEOUT",
		"JUDGE_PATROL_TEXT_FAST_MODEL", "JUDGE_PATROL_TEXT_SMART_MODEL",
		"JUDGE_PATROL_VISUAL_FAST_MODEL", "JUDGE_PATROL_VISUAL_SMART_MODEL",
		"JUDGE_PATROL_TEXT_FAST_PROVIDER", "JUDGE_PATROL_TEXT_SMART_PROVIDER",
		"JUDGE_PATROL_VISUAL_FAST_PROVIDER", "JUDGE_PATROL_VISUAL_SMART_PROVIDER",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
		"ANTHROPIC_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
		"AZURE_OPENAI_API_KEY", "AZURE_RESOURCE_NAME",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

// fakeAnthropic serves Messages API replies whose text is reply.
func fakeAnthropic(t *testing.T, reply string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.Copy(io.Discard, r.Body)
		body, _ := json.Marshal(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         "judge-model",
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]any{{"type": "text", "text": reply}},
			"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func useJudge(t *testing.T, srv *httptest.Server) {
	t.Helper()
	t.Setenv("JUDGE_PATROL_PROVIDER", "anthropic")
	t.Setenv("JUDGE_PATROL_MODEL", "judge-model")
	t.Setenv("JUDGE_PATROL_BASE_URL", srv.URL+"/")
	t.Setenv("JUDGE_PATROL_API_KEY", "test-key")
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReview_Pass(t *testing.T) {
	isolate(t)
	srv, calls := fakeAnthropic(t, `{"pass": true}`)
	useJudge(t, srv)

	out, err := execute(t, "", "review", "Welcome to Arcology Builder!",
		"--criteria", "Message uses a warm tone", "--intelligence", "fast")
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls.Load())

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["pass"])
	assert.Equal(t, "textual", got["modality"])
	assert.Equal(t, "fast", got["intelligence"])
	assert.Equal(t, "anthropic", got["provider"])
	assert.Equal(t, "judge-model", got["model"])
	_, hasFeedback := got["feedback"]
	assert.False(t, hasFeedback)
}

func TestReview_FailExitsWithVerdict(t *testing.T) {
	isolate(t)
	srv, _ := fakeAnthropic(t, `{"pass": false, "feedback": "tone is cold"}`)
	useJudge(t, srv)

	out, err := execute(t, "Go away.", "review", "-",
		"--criteria", "Message uses a warm tone", "--intelligence", "smart")
	assert.ErrorIs(t, err, errVerdictFailed)
	assert.Contains(t, out, "tone is cold")
	assert.Contains(t, out, `"intelligence": "smart"`)
}

func TestReview_UnwiredRoute(t *testing.T) {
	isolate(t)

	_, err := execute(t, "", "review", "shot.png",
		"--criteria", "clear hierarchy", "--intelligence", "fast")
	require.Error(t, err)
	assert.ErrorIs(t, err, review.ErrBackendUnavailable)
	assert.False(t, errors.Is(err, errVerdictFailed))
}

func TestSuite_TextReport(t *testing.T) {
	isolate(t)
	srv, calls := fakeAnthropic(t, `{"pass": true}`)
	useJudge(t, srv)

	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cases:
  - name: welcome tone
    criteria: Message uses a warm tone
    artifact: Welcome aboard!
  - name: error copy
    criteria: Error message tells the user what to do next
    artifact: Something went wrong. Try again in a minute.
`), 0o644))

	out, err := execute(t, "", "suite", path, "--json=false", "--parallel", "2")
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load())
	assert.Contains(t, out, "welcome tone")
	assert.Contains(t, out, "2 cases: 2 passed, 0 failed, 0 errors")
}

func TestSuite_JSONWithErrors(t *testing.T) {
	isolate(t)
	srv, _ := fakeAnthropic(t, `{"pass": true}`)
	useJudge(t, srv)

	path := filepath.Join(t.TempDir(), "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
cases:
  - name: copy
    criteria: Clear copy
    artifact: Hello there.
  - name: missing screenshot
    criteria: Clear hierarchy
    artifact: missing.png
`), 0o644))

	out, err := execute(t, "", "suite", path, "--json")
	require.Error(t, err)
	assert.False(t, errors.Is(err, errVerdictFailed), "errored cases must not look like a failed verdict")

	var rep struct {
		Summary struct {
			Passed int `json:"passed"`
			Errors int `json:"errors"`
		} `json:"summary"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 1, rep.Summary.Passed)
	assert.Equal(t, 1, rep.Summary.Errors)
	assert.True(t, strings.HasPrefix(rep.SessionID, "js-"))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		artifact string
		want     string
	}{
		{"tmp/dashboard.png", "visual"},
		{"notes.PNG", "visual"},
		{"report.pngx", "textual"},
		{"Welcome to Arcology Builder!", "textual"},
	}
	for _, tt := range tests {
		t.Run(tt.artifact, func(t *testing.T) {
			out, err := execute(t, "", "classify", tt.artifact)
			require.NoError(t, err)
			assert.Equal(t, tt.want+"\n", out)
		})
	}
}

func TestRoutes_NeverPrintsKeys(t *testing.T) {
	isolate(t)
	t.Setenv("JUDGE_PATROL_MODEL", "shared")
	t.Setenv("JUDGE_PATROL_API_KEY", "super-secret")
	t.Setenv("JUDGE_PATROL_VISUAL_SMART_PROVIDER", "openai")
	t.Setenv("JUDGE_PATROL_VISUAL_SMART_MODEL", "vision")

	out, err := execute(t, "", "routes")
	require.NoError(t, err)
	assert.NotContains(t, out, "super-secret")

	var views []struct {
		Route     string `json:"route"`
		Provider  string `json:"provider"`
		Model     string `json:"model"`
		HasAPIKey bool   `json:"has_api_key"`
		Wired     bool   `json:"wired"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 4)
	assert.Equal(t, "text_fast", views[0].Route)
	assert.Equal(t, "visual_smart", views[3].Route)
	assert.Equal(t, "openai", views[3].Provider)
	assert.Equal(t, "vision", views[3].Model)
	for _, v := range views {
		assert.True(t, v.Wired, v.Route)
		assert.True(t, v.HasAPIKey, v.Route)
	}
}

func TestBuildRoutes_SharesIdenticalBackends(t *testing.T) {
	isolate(t)
	cfg := config.Defaults()
	cfg.Model = "shared"
	cfg.APIKey = "k"
	cfg.Routes.VisualSmart.Model = "vision"

	routes, err := buildRoutes(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NotNil(t, routes.TextFast)
	assert.Same(t, routes.TextFast, routes.TextSmart)
	assert.Equal(t, "vision", routes.VisualSmart.Model())
	assert.Equal(t, "shared", routes.VisualFast.Model())
}

func TestBuildRoutes_UnknownProvider(t *testing.T) {
	isolate(t)
	cfg := config.Defaults()
	cfg.Provider = "llamas"
	cfg.Model = "m"

	_, err := buildRoutes(cfg, zap.NewNop())
	assert.ErrorContains(t, err, "text_fast")
}

func TestSettingsFor_AzureHeader(t *testing.T) {
	isolate(t)
	s := settingsFor(config.RouteConfig{
		Provider: "openai",
		Model:    "m",
		BaseURL:  "https://res.openai.azure.com/openai/v1",
		APIKey:   "k",
	}, 0)
	assert.Equal(t, "k", s.ExtraHeaders["api-key"])

	s = settingsFor(config.RouteConfig{Provider: "openai", Model: "m", APIKey: "k"}, 0)
	assert.Empty(t, s.ExtraHeaders)
}
