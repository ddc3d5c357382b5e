package dify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const DefaultBaseURL = "https://api.dify.ai/v1"

var ErrNotConfigured = errors.New("dify não configurado")

type Client struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string

	// conversa local -> conversation_id do Dify, para o assistente manter contexto
	mu       sync.Mutex
	sessions map[string]string
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		sessions:   map[string]string{},
	}
}

type chatRequest struct {
	Inputs         map[string]any `json:"inputs"`
	Query          string         `json:"query"`
	ResponseMode   string         `json:"response_mode"`
	ConversationID string         `json:"conversation_id,omitempty"`
	User           string         `json:"user"`
}

type chatResponse struct {
	Answer         string `json:"answer"`
	ConversationID string `json:"conversation_id"`
}

// Suggest pede ao app do Dify uma sugestão de resposta para a última mensagem do contato.
func (c *Client) Suggest(ctx context.Context, conversationID, lastMessage string) (string, error) {
	if c.APIKey == "" {
		return "", ErrNotConfigured
	}

	payload := chatRequest{
		Inputs:         map[string]any{},
		Query:          lastMessage,
		ResponseMode:   "blocking",
		ConversationID: c.session(conversationID),
		User:           conversationID,
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat-messages", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("falha request dify: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errBody bytes.Buffer
		errBody.ReadFrom(resp.Body)
		log.Printf("❌ [Dify] Erro: %s", errBody.String())
		return "", fmt.Errorf("erro api dify (%d)", resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("erro decode dify: %w", err)
	}

	if result.ConversationID != "" {
		c.mu.Lock()
		c.sessions[conversationID] = result.ConversationID
		c.mu.Unlock()
	}

	return strings.TrimSpace(result.Answer), nil
}

func (c *Client) session(conversationID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[conversationID]
}
