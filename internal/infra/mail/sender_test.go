package mail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/brevo"
)

func TestRenderFillsFirstName(t *testing.T) {
	subject, body, err := Render("Oi {{.FirstName}}!", "<p>{{.Name}} ({{.Email}})</p>", TemplateData{
		Name:  "Maria da Silva & Cia",
		Email: "maria@x.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Oi Maria!", subject)
	assert.Equal(t, "<p>Maria da Silva &amp; Cia (maria@x.com)</p>", body)
}

func TestRenderRejectsBrokenTemplate(t *testing.T) {
	_, _, err := Render("{{.Name", "", TemplateData{})
	assert.Error(t, err)
	assert.Error(t, Validate("{{ if }}"))
	assert.NoError(t, Validate("<b>{{.FirstName}}</b>"))
}

func TestDispatcherPrefersBrevo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"messageId":"<m1>"}`))
	}))
	defer srv.Close()

	d := NewDispatcher(brevo.NewClient("key", 0, srv.URL), NewEmailSender("", 0, "", "", ""), "no-reply@ligue.com", "Ligue")
	id, err := d.Send(context.Background(), Message{To: "ana@x.com", Subject: "s", HTML: "<p>b</p>"})
	require.NoError(t, err)
	assert.Equal(t, "<m1>", id)
}

func TestDispatcherWithoutProvider(t *testing.T) {
	d := NewDispatcher(brevo.NewClient("", 0, ""), NewEmailSender("", 0, "", "", ""), "a@b.com", "")
	_, err := d.Send(context.Background(), Message{To: "ana@x.com"})
	assert.ErrorIs(t, err, ErrNoProvider)
}
