package queue

import (
	"context"
	"log"
)

// InlinePublisher executa o trabalho na hora, sem broker. Usado quando RABBITMQ_URL
// está vazio ou o broker não responde no boot.
type InlinePublisher struct {
	Webhooks  WebhookProcessor
	Campaigns CampaignDeliverer
}

func NewInlinePublisher(webhooks WebhookProcessor, campaigns CampaignDeliverer) *InlinePublisher {
	return &InlinePublisher{Webhooks: webhooks, Campaigns: campaigns}
}

func (p *InlinePublisher) PublishWebhookEvent(ctx context.Context, payload WebhookEventPayload) error {
	if p.Webhooks == nil {
		return nil
	}
	// o evento fica FAILED e o job de retry tenta de novo; não é erro de publicação
	if err := p.Webhooks.ProcessWebhookEvent(ctx, payload.EventID); err != nil {
		log.Printf("⚠️ Webhook %s falhou no modo síncrono: %v", payload.EventID, err)
	}
	return nil
}

func (p *InlinePublisher) PublishCampaignSend(ctx context.Context, payload CampaignSendPayload) error {
	if p.Campaigns == nil {
		return nil
	}
	return p.Campaigns.DeliverCampaignEmail(ctx, payload)
}
