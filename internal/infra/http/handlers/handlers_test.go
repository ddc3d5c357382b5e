package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

var testPrincipal = usecase.Principal{UserID: "u-1", ClerkID: "user_1", OrganizationID: "org-1", Role: entity.RoleAgent}

// authed simula o middleware de auth e o roteamento do chi.
func authed(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithPrincipal(ctx, testPrincipal))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// ============ MAPEAMENTO DE ERROS ============

func TestWriteErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"validação", &usecase.DomainError{Code: usecase.CodeValidation, Message: "x"}, http.StatusBadRequest, usecase.CodeValidation},
		{"cpf inválido", &usecase.DomainError{Code: usecase.CodeInvalidCPF, Message: "x"}, http.StatusBadRequest, usecase.CodeInvalidCPF},
		{"não encontrado", &usecase.DomainError{Code: usecase.CodeNotFound, Message: "x"}, http.StatusNotFound, usecase.CodeNotFound},
		{"proibido", &usecase.DomainError{Code: usecase.CodeForbidden, Message: "x"}, http.StatusForbidden, usecase.CodeForbidden},
		{"conflito", &usecase.DomainError{Code: usecase.CodeConflict, Message: "x"}, http.StatusConflict, usecase.CodeConflict},
		{"duplicado", &usecase.DomainError{Code: "DUPLICATE_EMAIL", Message: "x"}, http.StatusConflict, "DUPLICATE_EMAIL"},
		{"transição inválida", &usecase.DomainError{Code: usecase.CodeInvalidStep, Message: "x"}, http.StatusUnprocessableEntity, usecase.CodeInvalidStep},
		{"técnico", &usecase.TechnicalError{Code: usecase.CodeGateway, Message: "asaas fora", Err: errors.New("timeout")}, http.StatusInternalServerError, usecase.CodeGateway},
		{"desconhecido", errors.New("boom"), http.StatusInternalServerError, usecase.CodeDatabase},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, httptest.NewRequest(http.MethodGet, "/x", nil), tc.err)

			assert.Equal(t, tc.want, rec.Code)
			var body ErrorResponse
			decodeBody(t, rec, &body)
			assert.Equal(t, tc.code, body.Error)
		})
	}
}

func TestWriteErrorValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), &usecase.DomainError{
		Code:    usecase.CodeValidation,
		Message: "dados inválidos",
		Fields:  []usecase.ValidationError{{Field: "email", Message: "is required"}},
	})

	var body ErrorResponse
	decodeBody(t, rec, &body)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "email", body.Fields[0].Field)
}

func TestWriteErrorRateLimitSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodPost, "/x", nil), &usecase.RateLimitError{RetryAfter: 1500 * time.Millisecond})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))
}

func TestClientIPIgnoresForwardedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5555"
	req.Header.Set("X-Forwarded-For", "200.1.2.3")
	req.Header.Set("X-Real-IP", "200.1.2.3")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}

// ============ LEADS ============

func TestCaptureLead(t *testing.T) {
	t.Run("sucesso usa a organização padrão e o IP do cliente", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("CaptureLead", mock.Anything, "org-default", mock.MatchedBy(func(in usecase.CreateLeadInput) bool {
			return in.Email == "ana@example.com" && in.IP == "200.1.2.3" && in.OwnerID == ""
		})).Return(&entity.Lead{ID: "lead-1"}, nil)

		h := NewLeadHandler(svc, "org-default")
		req := httptest.NewRequest(http.MethodPost, "/public/leads",
			strings.NewReader(`{"name":"Ana","email":"ana@example.com","owner_id":"hacker"}`))
		req.RemoteAddr = "200.1.2.3:5555"
		rec := httptest.NewRecorder()

		h.CaptureLead(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		var body CaptureLeadResponse
		decodeBody(t, rec, &body)
		assert.True(t, body.Success)
		assert.Equal(t, "lead-1", body.LeadID)
		svc.AssertExpectations(t)
	})

	t.Run("limite excedido devolve 429", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("CaptureLead", mock.Anything, "org-1", mock.Anything).Return(nil, &usecase.RateLimitError{RetryAfter: time.Minute})

		rec := httptest.NewRecorder()
		NewLeadHandler(svc, "org-default").CaptureLead(rec, httptest.NewRequest(http.MethodPost, "/public/leads",
			strings.NewReader(`{"organization_id":"org-1","name":"Ana","email":"ana@example.com"}`)))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	})

	t.Run("validação devolve success=false", func(t *testing.T) {
		svc := new(MockLeadService)
		svc.On("CaptureLead", mock.Anything, "org-default", mock.Anything).
			Return(nil, &usecase.DomainError{Code: usecase.CodeValidation, Message: "email inválido"})

		rec := httptest.NewRecorder()
		NewLeadHandler(svc, "org-default").CaptureLead(rec, httptest.NewRequest(http.MethodPost, "/public/leads",
			strings.NewReader(`{"name":"Ana","email":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body CaptureLeadResponse
		decodeBody(t, rec, &body)
		assert.False(t, body.Success)
		assert.Equal(t, "email inválido", body.Error)
	})

	t.Run("JSON inválido", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewLeadHandler(new(MockLeadService), "org").CaptureLead(rec, httptest.NewRequest(http.MethodPost, "/public/leads", strings.NewReader(`{`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLeadRoutesRequirePrincipal(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLeadHandler(new(MockLeadService), "org").List(rec, httptest.NewRequest(http.MethodGet, "/api/leads", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListLeadsPassesFilters(t *testing.T) {
	svc := new(MockLeadService)
	svc.On("ListLeads", mock.Anything, testPrincipal.Actor(), entity.LeadFilter{
		Stage: entity.LeadStage("CONTACTED"), Search: "ana", Limit: 10, Offset: 20,
	}).Return(nil, nil)

	rec := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodGet, "/api/leads?stage=CONTACTED&search=ana&limit=10&offset=20", nil), nil)
	NewLeadHandler(svc, "org").List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestGetLeadNotFound(t *testing.T) {
	svc := new(MockLeadService)
	svc.On("GetLead", mock.Anything, testPrincipal.Actor(), "lead-9").
		Return(nil, &usecase.DomainError{Code: usecase.CodeNotFound, Message: "lead não encontrado"})

	rec := httptest.NewRecorder()
	NewLeadHandler(svc, "org").Get(rec, authed(httptest.NewRequest(http.MethodGet, "/api/leads/lead-9", nil), map[string]string{"id": "lead-9"}))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoveStageInvalidTransition(t *testing.T) {
	svc := new(MockLeadService)
	svc.On("MoveLeadStage", mock.Anything, testPrincipal.Actor(), "lead-1", entity.LeadStage("WON"), "").
		Return(nil, &usecase.DomainError{Code: usecase.CodeInvalidStep, Message: "transição inválida"})

	rec := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodPost, "/api/leads/lead-1/stage", strings.NewReader(`{"stage":"WON"}`)), map[string]string{"id": "lead-1"})
	NewLeadHandler(svc, "org").MoveStage(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ============ WEBHOOK ASAAS ============

func TestAsaasWebhook(t *testing.T) {
	body := []byte(`{"id":"evt_1","event":"PAYMENT_RECEIVED","payment":{"id":"pay_1"}}`)

	cases := []struct {
		name      string
		token     string
		duplicate bool
		err       error
		want      int
		called    bool
	}{
		{"sem token", "", false, nil, http.StatusUnauthorized, false},
		{"token errado", "outro", false, nil, http.StatusUnauthorized, false},
		{"aceito", "segredo", false, nil, http.StatusOK, true},
		{"duplicado também é 200", "segredo", true, nil, http.StatusOK, true},
		{"falha ao gravar", "segredo", false, &usecase.TechnicalError{Code: usecase.CodeDatabase, Message: "db", Err: errors.New("down")}, http.StatusInternalServerError, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			billing := new(MockBillingReceiver)
			if tc.called {
				billing.On("ReceiveWebhook", mock.Anything, body).Return(tc.duplicate, tc.err)
			}

			req := httptest.NewRequest(http.MethodPost, "/asaas/webhook", bytes.NewReader(body))
			if tc.token != "" {
				req.Header.Set("asaas-access-token", tc.token)
			}
			rec := httptest.NewRecorder()
			NewAsaasWebhookHandler(billing, "segredo").Handle(rec, req)

			assert.Equal(t, tc.want, rec.Code)
			billing.AssertExpectations(t)
			if !tc.called {
				billing.AssertNotCalled(t, "ReceiveWebhook", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestAsaasWebhookRejectsWhenTokenNotConfigured(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/asaas/webhook", strings.NewReader(`{}`))
	req.Header.Set("asaas-access-token", "")
	rec := httptest.NewRecorder()

	NewAsaasWebhookHandler(new(MockBillingReceiver), "").Handle(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// ============ WEBHOOK CLERK ============

var clerkKey = []byte("0123456789abcdef0123456789abcdef")

func clerkSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString(clerkKey)
}

func signedClerkRequest(t *testing.T, body string) *http.Request {
	t.Helper()
	id := "msg_1"
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, clerkKey)
	mac.Write([]byte(id + "." + ts + "." + body))

	req := httptest.NewRequest(http.MethodPost, "/clerk/webhook", strings.NewReader(body))
	req.Header.Set("svix-id", id)
	req.Header.Set("svix-timestamp", ts)
	req.Header.Set("svix-signature", "v1,"+base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	return req
}

func TestClerkWebhookRejectsBadSignature(t *testing.T) {
	users := new(MockClerkUsers)
	h, err := NewClerkWebhookHandler(users, clerkSecret(), "org-default")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/clerk/webhook", strings.NewReader(`{"type":"user.deleted","data":{"id":"user_1"}}`))
	req.Header.Set("svix-id", "msg_1")
	req.Header.Set("svix-timestamp", strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set("svix-signature", "v1,AAAA")
	rec := httptest.NewRecorder()

	h.Handle(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	users.AssertNotCalled(t, "DeleteClerkUser", mock.Anything, mock.Anything)
}

func TestClerkWebhookSyncsCreatedUser(t *testing.T) {
	users := new(MockClerkUsers)
	users.On("SyncClerkUser", mock.Anything, usecase.ClerkUserInput{
		ClerkID:        "user_1",
		Email:          "ana@example.com",
		Name:           "Ana Souza",
		OrganizationID: "org-default",
		Role:           entity.RoleManager,
	}).Return(&entity.User{ID: "u-1"}, nil)

	h, err := NewClerkWebhookHandler(users, clerkSecret(), "org-default")
	require.NoError(t, err)

	body := `{"type":"user.created","data":{"id":"user_1","first_name":"Ana","last_name":"Souza",
		"primary_email_address_id":"em_2",
		"email_addresses":[{"id":"em_1","email_address":"old@example.com"},{"id":"em_2","email_address":"ana@example.com"}],
		"public_metadata":{"role":"manager"}}}`
	rec := httptest.NewRecorder()
	h.Handle(rec, signedClerkRequest(t, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestClerkWebhookDeletesUser(t *testing.T) {
	users := new(MockClerkUsers)
	users.On("DeleteClerkUser", mock.Anything, "user_1").Return(nil)

	h, err := NewClerkWebhookHandler(users, clerkSecret(), "org-default")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.Handle(rec, signedClerkRequest(t, `{"type":"user.deleted","data":{"id":"user_1","deleted":true}}`))

	assert.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

// ============ WHATSAPP ============

func TestWhatsAppVerify(t *testing.T) {
	h := NewWhatsAppWebhookHandler(new(MockChatService), "verify-me", "org-1")

	rec := httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodGet, "/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())

	rec = httptest.NewRecorder()
	h.Verify(rec, httptest.NewRequest(http.MethodGet, "/whatsapp/webhook?hub.mode=subscribe&hub.verify_token=errado&hub.challenge=12345", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWhatsAppReceiveStoresTextMessages(t *testing.T) {
	chat := new(MockChatService)
	chat.On("ReceiveMessage", mock.Anything, usecase.InboundMessageInput{
		OrganizationID:    "org-1",
		Phone:             "5511999998888",
		ContactName:       "Ana",
		Body:              "Oi, quero saber do curso",
		ProviderMessageID: "wamid.1",
	}).Return(&entity.Message{ID: "m-1"}, nil)

	body := `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"field":"messages","value":{
		"contacts":[{"wa_id":"5511999998888","profile":{"name":"Ana"}}],
		"messages":[
			{"id":"wamid.1","from":"5511999998888","type":"text","text":{"body":"Oi, quero saber do curso"}},
			{"id":"wamid.2","from":"5511999998888","type":"image"}
		]}}]}]}`
	rec := httptest.NewRecorder()
	NewWhatsAppWebhookHandler(chat, "verify-me", "org-1").Receive(rec, httptest.NewRequest(http.MethodPost, "/whatsapp/webhook", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	chat.AssertExpectations(t)
	chat.AssertNumberOfCalls(t, "ReceiveMessage", 1)
}

func TestSendMessageFailedReturnsBadGateway(t *testing.T) {
	chat := new(MockChatService)
	chat.On("SendMessage", mock.Anything, testPrincipal.Actor(), "conv-1", "olá").
		Return(&entity.Message{ID: "m-1", Status: entity.MessageFailed}, nil)

	rec := httptest.NewRecorder()
	req := authed(httptest.NewRequest(http.MethodPost, "/api/conversations/conv-1/messages", strings.NewReader(`{"body":"olá"}`)), map[string]string{"id": "conv-1"})
	NewChatHandler(chat).Send(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// ============ IMPORTAÇÃO ============

func TestImportExecuteReadsMultipart(t *testing.T) {
	imports := new(MockImportService)
	imports.On("Execute", mock.Anything, testPrincipal.Actor(), "lead", mock.Anything, map[string]string{"E-mail": "email"}).
		Return(&usecase.ImportResult{Created: 2, Errors: []usecase.RowError{}}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "leads.csv")
	require.NoError(t, err)
	fw.Write([]byte("Nome,E-mail\nAna,ana@example.com\nBia,bia@example.com\n"))
	require.NoError(t, mw.WriteField("mapping", `{"E-mail":"email"}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/imports/lead", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	NewImportHandler(imports).Execute(rec, authed(req, map[string]string{"kind": "lead"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	var result usecase.ImportResult
	decodeBody(t, rec, &result)
	assert.Equal(t, 2, result.Created)
	imports.AssertExpectations(t)
}

func TestImportWithoutFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/imports/lead", strings.NewReader("nada"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	NewImportHandler(new(MockImportService)).Preview(rec, authed(req, map[string]string{"kind": "lead"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ============ HEALTH ============

func TestHealth(t *testing.T) {
	t.Run("saudável", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(stubPinger{}, stubBroker{}, map[string]bool{"asaas": true, "dify": false}).
			Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body HealthResponse
		decodeBody(t, rec, &body)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "configured", body.Dependencies["asaas"])
		assert.Equal(t, "not configured", body.Dependencies["dify"])
	})

	t.Run("banco fora", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(stubPinger{err: errors.New("refused")}, nil, nil).
			Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("broker fechado", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(stubPinger{}, stubBroker{closed: true}, nil).
			Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
