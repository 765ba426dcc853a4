package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/leonid-shevtsov/telegold"
	"github.com/yuin/goldmark"
	"golang.org/x/time/rate"

	"fieldreport/internal/models"
)

// Telegram allows ~30 messages per second bot-wide; stay under it.
const telegramSendRate = 25

// UpdateHandler receives every update the poller fetches, in arrival order
type UpdateHandler func(update *models.TelegramUpdate)

// ChannelService is the Telegram transport: it long-polls getUpdates and
// carries the bot's outbound sendMessage / editMessageText /
// answerCallbackQuery requests.
type ChannelService struct {
	botToken string

	httpClient    *http.Client
	pollingClient *http.Client
	limiter       *rate.Limiter

	handler UpdateHandler

	mu         sync.Mutex
	stopChan   chan struct{}
	running    bool
	lastOffset int64
}

// NewChannelService creates a Telegram channel service for one bot token
func NewChannelService(botToken string) *ChannelService {
	return &ChannelService{
		botToken: botToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		// Long polling holds the connection open for up to 30 seconds;
		// give the client room on top of that.
		pollingClient: &http.Client{
			Timeout: 40 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(telegramSendRate), telegramSendRate),
	}
}

// SetUpdateHandler sets the callback invoked for each fetched update
func (s *ChannelService) SetUpdateHandler(handler UpdateHandler) {
	s.handler = handler
}

// StartPolling starts the long polling loop
func (s *ChannelService) StartPolling() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Println("📡 [POLLING] Poller already running")
		return
	}

	s.stopChan = make(chan struct{})
	s.running = true

	go s.runPoller(s.stopChan)
	log.Println("📡 [POLLING] Started poller")
}

// Stop stops the long polling loop
func (s *ChannelService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false
	log.Println("📡 [POLLING] Poller stopped")
}

// runPoller runs the long polling loop. Updates are handed to the handler
// one at a time, so each user's events are processed in arrival order.
func (s *ChannelService) runPoller(stopChan chan struct{}) {
	log.Println("📡 [POLLING] Polling loop started")

	for {
		select {
		case <-stopChan:
			log.Println("📡 [POLLING] Polling loop exited")
			return
		default:
			updates, err := s.getUpdates()
			if err != nil {
				log.Printf("⚠️ [POLLING] Error getting updates: %v", err)
				time.Sleep(5 * time.Second)
				continue
			}

			for _, update := range updates {
				if update.UpdateID >= s.lastOffset {
					s.lastOffset = update.UpdateID + 1
				}
				if s.handler != nil {
					s.handler(update)
				}
			}
		}
	}
}

// getUpdates fetches updates using long polling
func (s *ChannelService) getUpdates() ([]*models.TelegramUpdate, error) {
	url := fmt.Sprintf("https://api.telegram.org/bot%s/getUpdates?timeout=30&allowed_updates=%s",
		s.botToken, `["message","callback_query"]`)
	if s.lastOffset > 0 {
		url += fmt.Sprintf("&offset=%d", s.lastOffset)
	}

	req, _ := http.NewRequest("GET", url, nil)

	resp, err := s.pollingClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get updates: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool                     `json:"ok"`
		Result []*models.TelegramUpdate `json:"result"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.OK {
		return nil, fmt.Errorf("Telegram API returned not OK")
	}

	return result.Result, nil
}

// Telegram Markdown converter using telegold (goldmark with Telegram HTML renderer)
var telegramMarkdownConverter = goldmark.New(goldmark.WithRenderer(telegold.NewRenderer()))

// convertToTelegramHTML converts Markdown to Telegram-compatible HTML,
// which also escapes user-supplied angle brackets and ampersands
func convertToTelegramHTML(text string) string {
	var buf bytes.Buffer
	if err := telegramMarkdownConverter.Convert([]byte(text), &buf); err != nil {
		log.Printf("⚠️ [TELEGRAM] Markdown conversion failed: %v", err)
		return text
	}
	return strings.TrimRight(buf.String(), "\n")
}

// SendMessage sends a message via the Telegram Bot API. markup may be a
// *models.ReplyKeyboardMarkup, *models.ReplyKeyboardRemove,
// *models.InlineKeyboardMarkup, or nil. Uses HTML parse mode with a plain
// text fallback when Telegram rejects the entities.
func (s *ChannelService) SendMessage(ctx context.Context, chatID int64, text string, markup any) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       convertToTelegramHTML(text),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}

	err := s.callAPI(ctx, "sendMessage", payload)
	if err != nil && strings.Contains(err.Error(), "can't parse entities") {
		log.Printf("⚠️ [TELEGRAM] HTML parsing failed, retrying without parse_mode")
		payload["text"] = text
		delete(payload, "parse_mode")
		return s.callAPI(ctx, "sendMessage", payload)
	}
	return err
}

// EditMessageText replaces the text (and inline keyboard) of a previously
// sent message in place
func (s *ChannelService) EditMessageText(ctx context.Context, chatID, messageID int64, text string, markup *models.InlineKeyboardMarkup) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       convertToTelegramHTML(text),
		"parse_mode": "HTML",
	}
	if markup != nil {
		payload["reply_markup"] = markup
	}
	return s.callAPI(ctx, "editMessageText", payload)
}

// AnswerCallbackQuery acknowledges an inline keyboard tap, optionally with
// a short notification text
func (s *ChannelService) AnswerCallbackQuery(ctx context.Context, callbackID, text string) error {
	payload := map[string]any{
		"callback_query_id": callbackID,
	}
	if text != "" {
		payload["text"] = text
	}
	return s.callAPI(ctx, "answerCallbackQuery", payload)
}

// callAPI posts one Bot API method call and surfaces non-OK responses as
// errors with Telegram's description
func (s *ChannelService) callAPI(ctx context.Context, method string, payload map[string]any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/%s", s.botToken, method)

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to serialize payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("Telegram API error (%s): %s", method, string(respBody))
}
