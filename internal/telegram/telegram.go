package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/deusflow/trendpulse/internal/logger"
	"github.com/deusflow/trendpulse/internal/retry"
	"github.com/deusflow/trendpulse/internal/storage"
)

const (
	captionLimit = 1024
	messageLimit = 4096
)

// Client posts published trends to a Telegram chat or channel.
type Client struct {
	token   string
	chatID  string
	baseURL string
	http    *http.Client
	retry   retry.RetryConfig
	log     *slog.Logger
}

func NewClient(token, chatID string, rc retry.RetryConfig) *Client {
	return &Client{
		token:   token,
		chatID:  chatID,
		baseURL: "https://api.telegram.org",
		http:    &http.Client{Timeout: 30 * time.Second},
		retry:   rc,
		log:     logger.With("telegram"),
	}
}

// Publish sends rec as a photo post when it has an image, otherwise as text.
func (c *Client) Publish(ctx context.Context, rec storage.Record) error {
	if rec.ImageURL != "" {
		err := c.SendPhoto(ctx, rec.ImageURL, limitRunes(FormatRecord(rec), captionLimit))
		if err == nil {
			return nil
		}
		c.log.Warn("photo post failed, falling back to text", "error", err)
	}
	return c.SendMessage(ctx, limitRunes(FormatRecord(rec), messageLimit))
}

// SendMessage sends text message to Telegram chat/channel with retry logic
func (c *Client) SendMessage(ctx context.Context, text string) error {
	return c.send(ctx, "sendMessage", map[string]interface{}{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
}

// SendPhoto sends a photo with caption to Telegram chat/channel with retry logic
func (c *Client) SendPhoto(ctx context.Context, photoURL, caption string) error {
	return c.send(ctx, "sendPhoto", map[string]interface{}{
		"chat_id":    c.chatID,
		"photo":      photoURL,
		"caption":    caption,
		"parse_mode": "HTML",
	})
}

func (c *Client) send(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	attempt := 0
	err = retry.WithRetry(ctx, c.retry, func() error {
		attempt++
		err := c.sendOnce(ctx, method, body)
		if err != nil {
			c.log.Warn("telegram send failed", "method", method, "attempt", attempt, "retryable", !retry.IsPermanent(err), "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("telegram %s: %w", method, err)
	}
	c.log.Info("sent to telegram", "method", method, "attempt", attempt)
	return nil
}

func (c *Client) sendOnce(ctx context.Context, method string, body []byte) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := fmt.Errorf("telegram API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(err)
		}
		return err
	}
	return nil
}

// FormatRecord renders the HTML post body: English first, then Polish.
func FormatRecord(rec storage.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🇬🇧 <b>%s</b>\n%s\n\n", html.EscapeString(rec.TitleEN), html.EscapeString(rec.DescriptionEN))
	fmt.Fprintf(&b, "🇵🇱 <b>%s</b>\n%s\n\n", html.EscapeString(rec.TitlePL), html.EscapeString(rec.DescriptionPL))
	fmt.Fprintf(&b, "Credibility: %d/100", rec.CredibilityScore)
	if rec.Topic != "" {
		fmt.Fprintf(&b, " · #%s", strings.ReplaceAll(rec.Topic, " ", "_"))
	}
	return b.String()
}

// limitRunes cuts s to at most max runes without splitting a character.
func limitRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
