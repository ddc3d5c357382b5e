package asaas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const maxPageSize = 100

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateCustomer: Cria o cliente no Asaas e retorna o ID (cus_xxxx)
func (c *Client) CreateCustomer(ctx context.Context, input CreateCustomerInput) (string, error) {
	payload := createCustomerRequest{
		Name:                 input.Name,
		Email:                input.Email,
		CpfCnpj:              input.CpfCnpj,
		Phone:                input.Phone,
		MobilePhone:          input.MobilePhone,
		PostalCode:           input.PostalCode,
		AddressNumber:        input.AddressNumber,
		ExternalReference:    input.ExternalReference,
		NotificationDisabled: true,
	}

	var response customerResponse
	if err := c.do(ctx, http.MethodPost, "/customers", payload, &response); err != nil {
		return "", fmt.Errorf("erro criar cliente asaas: %w", err)
	}
	return response.ID, nil
}

// CreateSubscription abre a cobrança recorrente de uma matrícula.
func (c *Client) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*Subscription, error) {
	if input.NextDueDate == "" {
		input.NextDueDate = time.Now().Format("2006-01-02")
	}
	if input.Cycle == "" {
		input.Cycle = "MONTHLY"
	}
	if input.BillingType == "" {
		input.BillingType = "UNDEFINED"
	}

	payload := createSubscriptionRequest{
		Customer:          input.CustomerID,
		BillingType:       input.BillingType,
		Value:             input.Value,
		NextDueDate:       input.NextDueDate,
		Cycle:             input.Cycle,
		Description:       input.Description,
		MaxPayments:       input.MaxPayments,
		ExternalReference: input.ExternalReference,
	}

	var sub Subscription
	if err := c.do(ctx, http.MethodPost, "/subscriptions", payload, &sub); err != nil {
		return nil, fmt.Errorf("erro criar assinatura asaas: %w", err)
	}
	return &sub, nil
}

func (c *Client) CancelSubscription(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/subscriptions/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("erro cancelar assinatura asaas: %w", err)
	}
	return nil
}

func (c *Client) ListPayments(ctx context.Context, params ListParams) (*Page[Payment], error) {
	q := params.query()
	if params.DueDateFrom != "" {
		q.Set("dueDate[ge]", params.DueDateFrom)
	}

	var page Page[Payment]
	if err := c.do(ctx, http.MethodGet, "/payments?"+q.Encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("erro listar cobranças asaas: %w", err)
	}
	return &page, nil
}

func (c *Client) ListSubscriptions(ctx context.Context, params ListParams) (*Page[Subscription], error) {
	var page Page[Subscription]
	if err := c.do(ctx, http.MethodGet, "/subscriptions?"+params.query().Encode(), nil, &page); err != nil {
		return nil, fmt.Errorf("erro listar assinaturas asaas: %w", err)
	}
	return &page, nil
}

func (p ListParams) query() url.Values {
	limit := p.Limit
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	q := url.Values{}
	q.Set("offset", strconv.Itoa(p.Offset))
	q.Set("limit", strconv.Itoa(limit))
	if p.Customer != "" {
		q.Set("customer", p.Customer)
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonBody, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("erro ao gerar json: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("erro na conexão com asaas: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		log.Printf("❌ ERRO API ASAAS (Status %d): %s", resp.StatusCode, string(raw))
		var apiErr errorResponse
		if json.Unmarshal(raw, &apiErr) == nil && len(apiErr.Errors) > 0 {
			return fmt.Errorf("api asaas rejeitou (status %d): %s", resp.StatusCode, apiErr.Errors[0].Description)
		}
		return fmt.Errorf("api asaas rejeitou (status %d)", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("erro ao ler resposta asaas: %w", err)
	}
	return nil
}

// setHeaders centraliza os headers obrigatórios
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("access_token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "LigueCRM/1.0")
}
