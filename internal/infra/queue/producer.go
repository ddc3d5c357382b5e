package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// WebhookEventPayload aponta para o evento já persistido; o worker relê o payload do banco.
type WebhookEventPayload struct {
	EventID string `json:"event_id"`
}

type CampaignSendPayload struct {
	OrganizationID string `json:"organization_id"`
	CampaignID     string `json:"campaign_id"`
	ContactID      string `json:"contact_id"`
}

// Publisher é o pedaço de *amqp.Channel que o producer usa.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type RabbitMQProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *RabbitMQProducer {
	return &RabbitMQProducer{Ch: ch}
}

func (p *RabbitMQProducer) PublishWebhookEvent(ctx context.Context, payload WebhookEventPayload) error {
	return p.publish(ctx, WebhookRoutingKey, payload)
}

func (p *RabbitMQProducer) PublishCampaignSend(ctx context.Context, payload CampaignSendPayload) error {
	return p.publish(ctx, CampaignRoutingKey, payload)
}

func (p *RabbitMQProducer) publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		routingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Mensagem salva no disco
		},
	)
	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %w", err)
	}
	return nil
}
