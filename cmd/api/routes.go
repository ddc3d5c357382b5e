package main

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xavierca1/ligue-crm/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
)

type routes struct {
	Auth         *middleware.ClerkAuth
	CORSOrigins  []string
	Proxies      []netip.Prefix
	Health       *handlers.HealthHandler
	Leads        *handlers.LeadHandler
	Students     *handlers.StudentHandler
	Validation   *handlers.ValidationHandler
	Enrollments  *handlers.EnrollmentHandler
	Chat         *handlers.ChatHandler
	WhatsApp     *handlers.WhatsAppWebhookHandler
	Email        *handlers.EmailHandler
	Imports      *handlers.ImportHandler
	Compliance   *handlers.ComplianceHandler
	Users        *handlers.UserHandler
	AsaasWebhook *handlers.AsaasWebhookHandler
	ClerkWebhook *handlers.ClerkWebhookHandler
}

func (rt routes) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(rt.Proxies))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// --- públicas ---
	r.Get("/health", rt.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/public/leads", rt.Leads.CaptureLead)
	r.Post("/public/unsubscribe", rt.Email.PublicUnsubscribe)
	r.Post("/asaas/webhook", rt.AsaasWebhook.Handle)
	if rt.ClerkWebhook != nil {
		r.Post("/clerk/webhook", rt.ClerkWebhook.Handle)
	}
	r.Get("/whatsapp/webhook", rt.WhatsApp.Verify)
	r.Post("/whatsapp/webhook", rt.WhatsApp.Receive)

	// --- autenticadas (JWT do Clerk) ---
	r.Route("/api", func(r chi.Router) {
		r.Use(rt.Auth.Handler)

		r.Get("/me", rt.Users.Me)
		r.Get("/dashboard", rt.Users.GetDashboard)
		r.Put("/users/{id}/role", rt.Users.UpdateRole)

		r.Route("/leads", func(r chi.Router) {
			r.Get("/", rt.Leads.List)
			r.Post("/", rt.Leads.Create)
			r.Get("/{id}", rt.Leads.Get)
			r.Patch("/{id}", rt.Leads.Update)
			r.Delete("/{id}", rt.Leads.Delete)
			r.Post("/{id}/stage", rt.Leads.MoveStage)
			r.Post("/{id}/assign", rt.Leads.Assign)
			r.Post("/{id}/convert", rt.Leads.Convert)
		})

		r.Route("/students", func(r chi.Router) {
			r.Get("/", rt.Students.List)
			r.Post("/", rt.Students.Create)
			r.Post("/validate", rt.Validation.Handle)
			r.Get("/{id}", rt.Students.Get)
			r.Patch("/{id}", rt.Students.Update)
			r.Delete("/{id}", rt.Students.Deactivate)
			r.Post("/{id}/anonymize", rt.Students.Anonymize)
			r.Get("/{id}/payments", rt.Students.ListPayments)
			r.Get("/{id}/export", rt.Students.Export)
			r.Get("/{id}/enrollments", rt.Enrollments.ListByStudent)
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Post("/", rt.Enrollments.Create)
			r.Get("/{id}", rt.Enrollments.Get)
			r.Post("/{id}/cancel", rt.Enrollments.Cancel)
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", rt.Chat.ListConversations)
			r.Get("/{id}/messages", rt.Chat.Messages)
			r.Post("/{id}/messages", rt.Chat.Send)
			r.Post("/{id}/suggest", rt.Chat.Suggest)
		})

		r.Route("/email", func(r chi.Router) {
			r.Get("/templates", rt.Email.ListTemplates)
			r.Post("/templates", rt.Email.CreateTemplate)
			r.Get("/templates/{id}", rt.Email.GetTemplate)
			r.Put("/templates/{id}", rt.Email.UpdateTemplate)
			r.Delete("/templates/{id}", rt.Email.DeleteTemplate)
			r.Post("/templates/{id}/preview", rt.Email.PreviewTemplate)

			r.Get("/contacts", rt.Email.ListContacts)
			r.Post("/contacts", rt.Email.UpsertContact)
			r.Post("/contacts/unsubscribe", rt.Email.UnsubscribeContact)

			r.Get("/campaigns", rt.Email.ListCampaigns)
			r.Post("/campaigns", rt.Email.CreateCampaign)
			r.Get("/campaigns/{id}", rt.Email.GetCampaign)
			r.Post("/campaigns/{id}/send", rt.Email.SendCampaign)
			r.Post("/campaigns/{id}/cancel", rt.Email.CancelCampaign)
		})

		r.Post("/imports/{kind}/preview", rt.Imports.Preview)
		r.Post("/imports/{kind}", rt.Imports.Execute)

		r.Get("/consents", rt.Compliance.ListConsents)
		r.Post("/consents", rt.Compliance.RecordConsent)
		r.Delete("/consents/{subjectType}/{subjectID}/{purpose}", rt.Compliance.RevokeConsent)
		r.Get("/audit-logs", rt.Compliance.ListAuditLogs)
	})

	return otelhttp.NewHandler(r, "ligue-crm")
}
