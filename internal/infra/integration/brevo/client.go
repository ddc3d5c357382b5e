package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.brevo.com/v3"

var ErrNotConfigured = errors.New("brevo não configurado")

type Client struct {
	apiKey  string
	listID  int64
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string, listID int64, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		listID:  listID,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// UpsertContact cria ou atualiza o contato na lista configurada e devolve o id do Brevo.
func (c *Client) UpsertContact(ctx context.Context, contact Contact) (int64, error) {
	if !c.Configured() {
		return 0, ErrNotConfigured
	}

	attrs := map[string]any{}
	for k, v := range contact.Attributes {
		attrs[k] = v
	}
	if contact.FirstName != "" {
		attrs["FIRSTNAME"] = contact.FirstName
	}
	if contact.LastName != "" {
		attrs["LASTNAME"] = contact.LastName
	}
	if contact.Phone != "" {
		attrs["SMS"] = "+" + strings.TrimPrefix(contact.Phone, "+")
	}
	if len(contact.Tags) > 0 {
		attrs["TAGS"] = strings.Join(contact.Tags, ",")
	}

	req := upsertContactRequest{
		Email:            contact.Email,
		Attributes:       attrs,
		EmailBlacklisted: contact.Blacklist,
		UpdateEnabled:    true,
	}
	if c.listID > 0 {
		req.ListIDs = []int64{c.listID}
	}

	var resp contactResponse
	status, err := c.do(ctx, http.MethodPost, "/contacts", req, &resp)
	if err != nil {
		return 0, fmt.Errorf("erro ao sincronizar contato: %w", err)
	}

	// 204 = contato já existia e foi atualizado, sem corpo
	if status == http.StatusNoContent || resp.ID == 0 {
		return c.findContactID(ctx, contact.Email)
	}

	log.Printf("✅ Brevo: Contato criado #%d (%s)", resp.ID, contact.Email)
	return resp.ID, nil
}

func (c *Client) findContactID(ctx context.Context, email string) (int64, error) {
	var resp contactResponse
	if _, err := c.do(ctx, http.MethodGet, "/contacts/"+url.PathEscape(email), nil, &resp); err != nil {
		return 0, fmt.Errorf("erro ao buscar contato: %w", err)
	}
	return resp.ID, nil
}

// SendTransactional dispara um email pela API transacional e devolve o messageId.
func (c *Client) SendTransactional(ctx context.Context, email TransactionalEmail) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	var resp sendEmailResponse
	if _, err := c.do(ctx, http.MethodPost, "/smtp/email", email, &resp); err != nil {
		return "", fmt.Errorf("erro ao enviar email brevo: %w", err)
	}
	return resp.MessageID, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	c.addAuthHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return resp.StatusCode, fmt.Errorf("brevo %d: %s (%s)", resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return resp.StatusCode, fmt.Errorf("brevo %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("erro decode brevo: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (c *Client) addAuthHeaders(req *http.Request) {
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}
