package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"convoassist/internal/config"
)

// BotClient is the chat-transport send/reply boundary the pipeline's
// Orchestrator never talks to directly — only WebhookHandler does,
// translating an OutboundMessage into Telegram API calls.
type BotClient interface {
	// SendMessage posts text to chatID, optionally threaded as a reply
	// to replyToMessageID (0 means no threading), and returns the sent
	// message's id so the caller can record it as the assistant turn's
	// externalId for future reply-threading lookups.
	SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) (int64, error)
}

type HTTPBotClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.TelegramConfig, httpClient *http.Client) BotClient {
	return &HTTPBotClient{
		token:      cfg.BotToken,
		baseURL:    cfg.APIBaseURL,
		httpClient: httpClient,
	}
}

func (c *HTTPBotClient) SendMessage(ctx context.Context, chatID int64, text string, replyToMessageID int64) (int64, error) {
	payload := sendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: replyToMessageID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("marshal telegram request: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("execute telegram request: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("read telegram response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return 0, fmt.Errorf("telegram api status %d: %s", resp.StatusCode, string(respBody))
	}

	var response SendMessageResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return 0, fmt.Errorf("decode telegram response: %w", err)
	}
	if !response.Ok {
		return 0, fmt.Errorf("telegram api error")
	}

	return response.Result.MessageID, nil
}

type sendMessageRequest struct {
	ChatID           int64  `json:"chat_id"`
	Text             string `json:"text"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
}
