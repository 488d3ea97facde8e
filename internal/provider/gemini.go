package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"
)

// GeminiConfig controls the remote provider's timeout and retry budget.
type GeminiConfig struct {
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// Gemini is the remote natural-language provider. Every call carries a
// bounded timeout and a small exponential-backoff retry budget; exhausting
// either yields ErrUnavailable.
type Gemini struct {
	client *genai.Client
	cfg    GeminiConfig
}

// NewGemini creates the remote provider. Credentials come from the
// environment, same as the rest of the genai tooling.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, cfg: cfg}, nil
}

// Rewrite asks the model for a friendlier phrasing of the catalog body.
func (g *Gemini) Rewrite(ctx context.Context, req RewriteRequest) (string, error) {
	prompt := rewritePrompt(req)

	text, err := g.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrMalformed
	}
	return text, nil
}

// ScoreTone asks the model to rate the text and parses a 0-10 number.
func (g *Gemini) ScoreTone(ctx context.Context, text string) (float64, error) {
	prompt := "Rate the following personal-finance recommendation text for tone. " +
		"Score 0-10 where 10 is warm, encouraging, and judgment-free and 0 is " +
		"shaming or condescending. Respond with ONLY the number, nothing else.\n\n" +
		"Text:\n" + text

	raw, err := g.generate(ctx, prompt)
	if err != nil {
		return 0, err
	}
	score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || score < 0 || score > 10 {
		return 0, fmt.Errorf("%w: tone score %q", ErrMalformed, strings.TrimSpace(raw))
	}
	return score, nil
}

// generate runs one model call under the timeout/retry budget.
func (g *Gemini) generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}

	var out string
	backoff := retry.WithMaxRetries(uint64(g.cfg.MaxRetries), retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()

		resp, err := g.client.Models.GenerateContent(callCtx, g.cfg.Model, contents, nil)
		if err != nil {
			return retry.RetryableError(err)
		}
		out = resp.Text()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func rewritePrompt(req RewriteRequest) string {
	var b strings.Builder
	b.WriteString("Rewrite the following personal-finance tip for a user classified as \"")
	b.WriteString(req.PersonaName)
	b.WriteString("\". Keep it under 80 words, warm and encouraging, free of financial ")
	b.WriteString("jargon, and never shaming. Keep every number and account reference ")
	b.WriteString("exactly as written. Respond with the rewritten text only.\n\n")
	b.WriteString("Title: " + req.Title + "\n")
	b.WriteString("Text: " + req.Body + "\n")
	if req.Rationale != "" {
		b.WriteString("Why it was chosen: " + req.Rationale + "\n")
	}
	if len(req.DataPoints) > 0 {
		b.WriteString("Data points to preserve: " + strings.Join(req.DataPoints, ", ") + "\n")
	}
	return b.String()
}
