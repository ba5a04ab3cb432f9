// Package insight turns pipeline results into free-text observations using a
// hosted language model.
package insight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vzahanych/balloon-atlas/internal/config"
	"github.com/vzahanych/balloon-atlas/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const NotConfiguredMessage = "Gemini API key not configured"

// maxResponseBytes bounds a single model reply body.
const maxResponseBytes = 4 << 20

var errEmptyResponse = errors.New("empty response from model")

// Insights is the degraded-or-successful result of one generation. Error is set
// instead of failing the caller.
type Insights struct {
	Insights    []string `json:"insights"`
	RawResponse string   `json:"rawResponse,omitempty"`
	Error       string   `json:"error,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
}

// Gemini calls generateContent through the genai SDK. A nil client means no
// API key was configured.
type Gemini struct {
	client *genai.Client
	model  string
	clock  clockwork.Clock
	logger *zap.Logger
	tele   *telemetry.Telemetry
}

// NewGemini builds the model client. Without an API key it returns a Gemini
// that only produces degraded results.
func NewGemini(ctx context.Context, cfg *config.InsightConfig, logger *zap.Logger, tele *telemetry.Telemetry) (*Gemini, error) {
	g := &Gemini{
		model:  cfg.Model,
		clock:  clockwork.NewRealClock(),
		logger: logger,
		tele:   tele,
	}
	if cfg.APIKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout:   time.Duration(cfg.Timeout) * time.Second,
			Transport: limitedTransport{next: http.DefaultTransport, limit: maxResponseBytes},
		},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *Gemini) SetClock(c clockwork.Clock) {
	g.clock = c
}

func (g *Gemini) Configured() bool {
	return g.client != nil
}

// GenerateInsights asks for five insights about the run. It never fails: a
// missing key or an upstream error comes back in Insights.Error.
func (g *Gemini) GenerateInsights(ctx context.Context, data Context) Insights {
	if !g.Configured() {
		return Insights{Error: NotConfiguredMessage, Insights: []string{}}
	}

	prompt, err := renderInsightsPrompt(data)
	if err == nil {
		var text string
		text, err = g.generate(ctx, "insight.GenerateInsights", prompt)
		if err == nil {
			return Insights{
				Insights:    ParseInsights(text),
				RawResponse: text,
				Timestamp:   g.clock.Now().UTC().Format(time.RFC3339Nano),
			}
		}
	}

	g.logger.Error("Insight generation failed", zap.Error(err))
	return Insights{Error: errorMessage(err), Insights: []string{}}
}

// AnswerQuestion returns the model's answer, or a human-readable message when
// the model is unavailable.
func (g *Gemini) AnswerQuestion(ctx context.Context, question string, data Context) string {
	if !g.Configured() {
		return NotConfiguredMessage
	}

	prompt, err := renderQuestionPrompt(question, data)
	if err != nil {
		return "Error: " + err.Error()
	}

	answer, err := g.generate(ctx, "insight.AnswerQuestion", prompt)
	if err != nil {
		g.logger.Error("Question answering failed", zap.Error(err))
		return "Error: " + errorMessage(err)
	}
	return answer
}

func (g *Gemini) generate(ctx context.Context, spanName, prompt string) (string, error) {
	ctx, span := g.tele.GetTracer().Start(ctx, spanName)
	defer span.End()
	span.SetAttributes(attribute.String("model", g.model))

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return "", err
	}

	// first candidate only
	var sb strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, p := range resp.Candidates[0].Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			sb.WriteString(p.Text)
		}
	}
	if sb.Len() == 0 {
		span.SetAttributes(attribute.Bool("success", false))
		return "", errEmptyResponse
	}

	span.SetAttributes(attribute.Bool("success", true))
	return sb.String(), nil
}

// errorMessage prefers the API's own message over the SDK's formatted error.
func errorMessage(err error) string {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil && apiErrPtr.Message != "" {
		return apiErrPtr.Message
	}
	return err.Error()
}

// limitedTransport caps how much of each response body can be read.
type limitedTransport struct {
	next  http.RoundTripper
	limit int64
}

func (t limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = struct {
		io.Reader
		io.Closer
	}{io.LimitReader(resp.Body, t.limit), resp.Body}
	return resp, nil
}
