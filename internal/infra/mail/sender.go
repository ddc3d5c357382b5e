package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"strings"
	texttemplate "text/template"

	"github.com/xavierca1/ligue-crm/internal/infra/integration/brevo"
	"gopkg.in/gomail.v2"
)

var ErrNoProvider = errors.New("nenhum provedor de email configurado")

func NewEmailSender(host string, port int, user, password, from string) *EmailSender {
	return &EmailSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
	}
}

func (s *EmailSender) Configured() bool {
	return s != nil && s.Host != ""
}

// Send entrega via SMTP. O SMTP não devolve id de mensagem.
func (s *EmailSender) Send(_ context.Context, msg Message) (string, error) {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	if msg.ToName != "" {
		m.SetAddressHeader("To", msg.To, msg.ToName)
	} else {
		m.SetHeader("To", msg.To)
	}
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.HTML)

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return "", fmt.Errorf("erro ao enviar email SMTP: %w", err)
	}
	return "", nil
}

// Dispatcher envia pelo Brevo e cai para o SMTP quando o Brevo não está configurado.
type Dispatcher struct {
	brevo  *brevo.Client
	smtp   *EmailSender
	sender brevo.Recipient
}

func NewDispatcher(b *brevo.Client, smtp *EmailSender, fromEmail, fromName string) *Dispatcher {
	return &Dispatcher{
		brevo:  b,
		smtp:   smtp,
		sender: brevo.Recipient{Email: fromEmail, Name: fromName},
	}
}

func (d *Dispatcher) Send(ctx context.Context, msg Message) (string, error) {
	if d.brevo != nil && d.brevo.Configured() {
		return d.brevo.SendTransactional(ctx, brevo.TransactionalEmail{
			Sender:      d.sender,
			To:          []brevo.Recipient{{Email: msg.To, Name: msg.ToName}},
			Subject:     msg.Subject,
			HTMLContent: msg.HTML,
			Tags:        msg.Tags,
		})
	}
	if d.smtp.Configured() {
		return d.smtp.Send(ctx, msg)
	}
	log.Printf("⚠️ Email para %s descartado: %v", msg.To, ErrNoProvider)
	return "", ErrNoProvider
}

// Render aplica os dados do destinatário no assunto e no corpo do template.
func Render(subject, htmlBody string, data TemplateData) (string, string, error) {
	if data.FirstName == "" {
		data.FirstName = FirstName(data.Name)
	}

	// assunto é texto puro, sem escape de HTML
	st, err := texttemplate.New("subject").Parse(subject)
	if err != nil {
		return "", "", fmt.Errorf("erro ao ler assunto do email: %w", err)
	}
	var renderedSubject bytes.Buffer
	if err := st.Execute(&renderedSubject, data); err != nil {
		return "", "", fmt.Errorf("erro ao processar assunto: %w", err)
	}

	bt, err := template.New("body").Parse(htmlBody)
	if err != nil {
		return "", "", fmt.Errorf("erro ao ler template de email: %w", err)
	}
	var renderedBody bytes.Buffer
	if err := bt.Execute(&renderedBody, data); err != nil {
		return "", "", fmt.Errorf("erro ao processar template: %w", err)
	}
	return renderedSubject.String(), renderedBody.String(), nil
}

// Validate confere se o corpo do template é parseável.
func Validate(text string) error {
	_, err := template.New("check").Parse(text)
	return err
}

func FirstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
