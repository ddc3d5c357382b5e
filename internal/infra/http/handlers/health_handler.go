package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const version = "1.0.0"

type Pinger interface {
	PingContext(ctx context.Context) error
}

// BrokerConn é satisfeito por *amqp091.Connection.
type BrokerConn interface {
	IsClosed() bool
}

type HealthHandler struct {
	DB           Pinger
	RabbitMQ     BrokerConn
	Integrations map[string]bool
	StartTime    time.Time
}

type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// NewHealthHandler: integrations diz quais integrações externas têm credencial (asaas, brevo, whatsapp, dify...).
func NewHealthHandler(db Pinger, rabbitMQ BrokerConn, integrations map[string]bool) *HealthHandler {
	return &HealthHandler{
		DB:           db,
		RabbitMQ:     rabbitMQ,
		Integrations: integrations,
		StartTime:    time.Now(),
	}
}

func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string)
	status := "healthy"

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			deps["database"] = fmt.Sprintf("unhealthy: %v", err)
			status = "degraded"
		} else {
			deps["database"] = "healthy"
		}
	} else {
		deps["database"] = "not configured"
		status = "degraded"
	}

	// sem RabbitMQ a API continua atendendo; os jobs caem no modo síncrono
	if h.RabbitMQ != nil {
		if h.RabbitMQ.IsClosed() {
			deps["rabbitmq"] = "unhealthy: connection closed"
			status = "degraded"
		} else {
			deps["rabbitmq"] = "healthy"
		}
	} else {
		deps["rabbitmq"] = "not configured"
	}

	for name, ok := range h.Integrations {
		if ok {
			deps[name] = "configured"
		} else {
			deps[name] = "not configured"
		}
	}

	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, HealthResponse{
		Status:       status,
		Version:      version,
		Uptime:       time.Since(h.StartTime).Round(time.Second).String(),
		Dependencies: deps,
	})
}
