package insight

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/balloon-atlas/internal/balloon"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/internal/weather"
	"go.uber.org/zap/zaptest"
)

func sampleContext() Context {
	return Context{
		Stats: balloon.AggregateStats{
			AvgAltitude: 14.2,
			MinAltitude: 1.5,
			MaxAltitude: 22,
			TotalActive: 312,
			Hemispheres: balloon.Hemispheres{Northern: 200, Southern: 112},
		},
		TotalBalloons: 7000,
		Weather: weather.Summary{
			AvgTemp:            12.3,
			ConditionHistogram: map[string]int{"Clouds": 4},
			SampleCount:        4,
		},
	}
}

func TestParseInsights(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "bullets",
			text: "Here you go:\n• first\n\n- second\n* third",
			want: []string{"first", "second", "third"},
		},
		{
			name: "numbered",
			text: "1. one\n2.two\n10. ten",
			want: []string{"one", "two", "ten"},
		},
		{
			name: "no markers",
			text: "just prose",
			want: []string{"just prose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseInsights(tt.text))
		})
	}
}

func TestRenderPrompts(t *testing.T) {
	prompt, err := renderInsightsPrompt(sampleContext())
	require.NoError(t, err)
	assert.Contains(t, prompt, "Total Active Balloons: 312")
	assert.Contains(t, prompt, "Geographic Distribution: 200 Northern, 112 Southern")
	assert.Contains(t, prompt, "Total Historical Points: 7000 (last 24 hours)")
	assert.Contains(t, prompt, `Weather Conditions: {"Clouds":4}`)

	question, err := renderQuestionPrompt("Where are they?", sampleContext())
	require.NoError(t, err)
	assert.Contains(t, question, "- 312 active balloons")
	assert.Contains(t, question, "Question: Where are they?")
	assert.Contains(t, question, "Average temperature: 12.3°C")
}

func TestGemini_NotConfigured(t *testing.T) {
	g, err := NewGemini(context.Background(), &config.InsightConfig{Model: "m"}, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	assert.False(t, g.Configured())

	got := g.GenerateInsights(context.Background(), sampleContext())

	assert.Equal(t, NotConfiguredMessage, got.Error)
	assert.NotNil(t, got.Insights)
	assert.Empty(t, got.Insights)
	assert.Equal(t, NotConfiguredMessage, g.AnswerQuestion(context.Background(), "why?", sampleContext()))
}

// generateBody is the part of the generateContent request the tests inspect.
type generateBody struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func geminiServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1beta/models/gemini-test:generateContent", r.URL.Path)
		assert.Equal(t, "k3y", r.Header.Get("x-goog-api-key"))

		var req generateBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Contents, 1)
		require.NotEmpty(t, req.Contents[0].Parts)
		assert.NotEmpty(t, req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func newTestGemini(t *testing.T, baseURL string) *Gemini {
	t.Helper()
	cfg := &config.InsightConfig{APIKey: "k3y", Model: "gemini-test", BaseURL: baseURL, APIVersion: "v1beta", Timeout: 5}
	g, err := NewGemini(context.Background(), cfg, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	require.True(t, g.Configured())
	g.SetClock(clockwork.NewFakeClockAt(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)))
	return g
}

func TestGemini_GenerateInsights(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"• a\n• b"}]}}]}`)
	defer srv.Close()

	got := newTestGemini(t, srv.URL).GenerateInsights(context.Background(), sampleContext())

	assert.Empty(t, got.Error)
	assert.Equal(t, []string{"a", "b"}, got.Insights)
	assert.Equal(t, "• a\n• b", got.RawResponse)
	assert.Equal(t, "2025-03-01T12:00:00Z", got.Timestamp)
}

func TestGemini_UpstreamError(t *testing.T) {
	srv := geminiServer(t, http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	defer srv.Close()
	g := newTestGemini(t, srv.URL)

	got := g.GenerateInsights(context.Background(), sampleContext())

	assert.Equal(t, "API key not valid", got.Error)
	assert.Empty(t, got.Insights)
	assert.Equal(t, "Error: API key not valid", g.AnswerQuestion(context.Background(), "q", sampleContext()))
}

func TestGemini_AnswerQuestion(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Mostly north."}]}}]}`)
	defer srv.Close()

	answer := newTestGemini(t, srv.URL).AnswerQuestion(context.Background(), "Where?", sampleContext())

	assert.Equal(t, "Mostly north.", answer)
}

func TestGemini_EmptyCandidates(t *testing.T) {
	srv := geminiServer(t, http.StatusOK, `{"candidates":[]}`)
	defer srv.Close()

	got := newTestGemini(t, srv.URL).GenerateInsights(context.Background(), sampleContext())

	assert.Equal(t, errEmptyResponse.Error(), got.Error)
}

func TestGemini_OversizedReplyIsCut(t *testing.T) {
	huge := strings.Repeat("a", maxResponseBytes+1024)
	srv := geminiServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"`+huge+`"}]}}]}`)
	defer srv.Close()

	got := newTestGemini(t, srv.URL).GenerateInsights(context.Background(), sampleContext())

	assert.NotEmpty(t, got.Error)
	assert.Empty(t, got.Insights)
	assert.Empty(t, got.RawResponse)
}

func TestLimitedTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("0123456789"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: limitedTransport{next: http.DefaultTransport, limit: 4}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "0123", string(body))
}
