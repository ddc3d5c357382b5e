package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const DefaultBaseURL = "https://graph.facebook.com/v18.0"

var ErrNotConfigured = errors.New("whatsapp não configurado")

type Client struct {
	accessToken string
	phoneID     string
	baseURL     string
	http        *http.Client
}

func NewClient(accessToken, phoneID, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		accessToken: accessToken,
		phoneID:     phoneID,
		baseURL:     baseURL,
		http:        &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.accessToken != "" && c.phoneID != ""
}

// SendText envia uma mensagem de texto livre e devolve o wamid da Meta.
func (c *Client) SendText(ctx context.Context, phone, body string) (string, error) {
	if !c.Configured() {
		log.Println("⚠️ WhatsApp: ACCESS_TOKEN ou PHONE_ID não configurados")
		return "", ErrNotConfigured
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                phone,
		"type":              "text",
		"text": map[string]interface{}{
			"preview_url": false,
			"body":        body,
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("❌ WhatsApp: Erro ao enviar mensagem: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	var result SendMessageResponse
	_ = json.Unmarshal(respBody, &result)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		log.Printf("❌ WhatsApp: API retornou status %d: %s", resp.StatusCode, string(respBody))
		if result.Error != nil {
			return "", fmt.Errorf("whatsapp: %s (code %d)", result.Error.Message, result.Error.Code)
		}
		return "", fmt.Errorf("whatsapp api error: %d", resp.StatusCode)
	}
	if len(result.Messages) == 0 {
		return "", fmt.Errorf("whatsapp: resposta sem id de mensagem")
	}

	log.Printf("✅ WhatsApp: Mensagem enviada para %s", phone)
	return result.Messages[0].ID, nil
}
