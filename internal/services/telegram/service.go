// Package telegram provides Telegram notification services.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fgeck/gobackup-homelab/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendSummary(ctx context.Context, cfg models.TelegramConfig, host string, summary models.RunSummary) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendSummary sends the summary of a backup run via Telegram.
func (s *Impl) SendSummary(ctx context.Context, cfg models.TelegramConfig, host string, summary models.RunSummary) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Info().
		Str("chat_id", cfg.ChatID).
		Bool("success", !summary.HasFailures()).
		Msg("sending Telegram notification")

	reqBody := sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      formatMessage(host, summary),
		ParseMode: "HTML",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("telegram API returned status %d", resp.StatusCode)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Info().Msg("Telegram notification sent successfully")

	return result, nil
}

func formatMessage(host string, summary models.RunSummary) string {
	var b bytes.Buffer

	if summary.HasFailures() {
		b.WriteString("❌ <b>Backup Failed</b>\n\n")
	} else {
		b.WriteString("✅ <b>Backup Successful</b>\n\n")
	}

	b.WriteString(fmt.Sprintf("🖥 <b>Host:</b> %s\n", escapeHTML(host)))
	b.WriteString(fmt.Sprintf("🆔 <b>Run:</b> <code>%s</code>\n", summary.RunID))
	b.WriteString(fmt.Sprintf("⏰ <b>Started:</b> %s\n", summary.StartTime.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("⏱ <b>Duration:</b> %s\n", summary.Duration.Round(time.Second)))

	b.WriteString("\n<b>📊 Tasks:</b>\n")
	b.WriteString(fmt.Sprintf("  • Succeeded: %d\n", summary.Count(models.OutcomeSuccess)))
	b.WriteString(fmt.Sprintf("  • Failed: %d\n", summary.Count(models.OutcomeFailed)))
	b.WriteString(fmt.Sprintf("  • Source missing: %d\n", summary.Count(models.OutcomeSkippedMissingSource)))
	b.WriteString(fmt.Sprintf("  • Disabled: %d\n", summary.Count(models.OutcomeSkippedDisabled)))

	for _, r := range summary.Succeeded() {
		if r.Task.Strategy == models.StrategyIncremental {
			b.WriteString(fmt.Sprintf("  • %s: %d new files\n", escapeHTML(r.Task.Name), r.FilesCopied))
		}
	}

	if failed := summary.Failed(); len(failed) > 0 {
		b.WriteString("\n<b>⚠️ Error Details:</b>\n")
		for _, r := range failed {
			msg := ""
			if r.Error != nil {
				msg = r.Error.Error()
			}
			b.WriteString(fmt.Sprintf("  • %s: <code>%s</code>\n", escapeHTML(r.Task.Name), escapeHTML(msg)))
		}
	}

	return b.String()
}

// escapeHTML escapes HTML special characters.
func escapeHTML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
