package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/deusflow/trendpulse/internal/logger"
)

// preferredModels is tried in order when no model is configured.
var preferredModels = []string{
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-flash-latest",
	"gemini-1.5-pro",
	"gemini-pro",
}

// Client generates JSON completions with Gemini. The model is resolved once
// per client, either from configuration or by listing available models.
type Client struct {
	client *genai.Client

	mu    sync.Mutex
	model string
	log   *slog.Logger
}

func NewClient(ctx context.Context, apiKey, model string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{client: client, model: model, log: logger.With("gemini")}, nil
}

func (c *Client) Name() string { return "gemini" }

func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Generate sends prompt and returns the text of the first candidate.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	name, err := c.resolveModel(ctx)
	if err != nil {
		return "", err
	}

	model := c.client.GenerativeModel(name)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.3)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	text := responseText(resp)
	if text == "" {
		return "", errors.New("no response from Gemini")
	}
	return text, nil
}

// resolveModel returns the configured model or detects one and remembers it.
func (c *Client) resolveModel(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.model != "" {
		return c.model, nil
	}

	var available []string
	it := c.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("list models: %w", err)
		}
		if supportsGenerate(m.SupportedGenerationMethods) {
			available = append(available, m.Name)
		}
	}

	name, ok := pickModel(available)
	if !ok {
		return "", fmt.Errorf("no usable Gemini model among %d listed", len(available))
	}
	c.model = name
	c.log.Info("selected model", "model", name)
	return name, nil
}

func supportsGenerate(methods []string) bool {
	for _, m := range methods {
		if m == "generateContent" {
			return true
		}
	}
	return false
}

// pickModel chooses the first preferred model present in available. Names may
// carry the "models/" prefix returned by the API.
func pickModel(available []string) (string, bool) {
	set := make(map[string]struct{}, len(available))
	for _, n := range available {
		set[strings.TrimPrefix(n, "models/")] = struct{}{}
	}
	for _, p := range preferredModels {
		if _, ok := set[p]; ok {
			return p, true
		}
	}
	return "", false
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String())
}
