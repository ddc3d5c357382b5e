package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

type WebhookProcessor interface {
	ProcessWebhookEvent(ctx context.Context, eventID string) error
}

type CampaignDeliverer interface {
	DeliverCampaignEmail(ctx context.Context, payload CampaignSendPayload) error
}

// Acknowledger é o pedaço de amqp.Delivery que o worker usa; nos testes entra um mock.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

type Worker struct {
	Channel   *amqp.Channel
	Webhooks  WebhookProcessor
	Campaigns CampaignDeliverer
}

func NewWorker(ch *amqp.Channel, webhooks WebhookProcessor, campaigns CampaignDeliverer) *Worker {
	return &Worker{
		Channel:   ch,
		Webhooks:  webhooks,
		Campaigns: campaigns,
	}
}

// Start consome as duas filas até o contexto ser cancelado.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.Channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("falha ao configurar prefetch: %w", err)
	}

	webhookMsgs, err := w.consume(WebhookQueue)
	if err != nil {
		return err
	}
	campaignMsgs, err := w.consume(CampaignQueue)
	if err != nil {
		return err
	}

	log.Printf(" [*] Worker rodando e aguardando nas filas '%s' e '%s'", WebhookQueue, CampaignQueue)

	for {
		select {
		case <-ctx.Done():
			log.Println("⚠️ Worker RabbitMQ encerrado")
			return nil
		case d, ok := <-webhookMsgs:
			if !ok {
				return fmt.Errorf("canal da fila %s fechado", WebhookQueue)
			}
			w.HandleWebhook(ctx, d.Body, &d)
		case d, ok := <-campaignMsgs:
			if !ok {
				return fmt.Errorf("canal da fila %s fechado", CampaignQueue)
			}
			w.HandleCampaign(ctx, d.Body, d.Redelivered, &d)
		}
	}
}

func (w *Worker) consume(queueName string) (<-chan amqp.Delivery, error) {
	msgs, err := w.Channel.Consume(
		queueName, // fila
		"",        // consumer
		false,     // auto-ack (manual é mais seguro)
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return nil, fmt.Errorf("falha ao registrar consumidor em %s: %w", queueName, err)
	}
	return msgs, nil
}

func (w *Worker) HandleWebhook(ctx context.Context, body []byte, ack Acknowledger) {
	var payload WebhookEventPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.EventID == "" {
		log.Printf("❌ [WORKER] Webhook inválido: %v", err)
		// Mensagem podre. Rejeita sem requeue para não travar a fila.
		ack.Nack(false, false)
		return
	}

	log.Printf("⚙️ [WORKER] Processando evento Asaas %s", payload.EventID)

	// falhas ficam registradas no evento e o job de retry reprocessa; a mensagem sai da fila
	if err := w.Webhooks.ProcessWebhookEvent(ctx, payload.EventID); err != nil {
		log.Printf("❌ [WORKER] Evento %s falhou: %s", payload.EventID, err)
	}
	ack.Ack(false)
}

// HandleCampaign devolve a mensagem à fila uma vez em erro de infraestrutura; na segunda
// falha ela vai para a DLQ.
func (w *Worker) HandleCampaign(ctx context.Context, body []byte, redelivered bool, ack Acknowledger) {
	var payload CampaignSendPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.CampaignID == "" || payload.ContactID == "" {
		log.Printf("❌ [WORKER] Envio de campanha inválido: %v", err)
		ack.Nack(false, false)
		return
	}

	if err := w.Campaigns.DeliverCampaignEmail(ctx, payload); err != nil {
		log.Printf("❌ [WORKER] Campanha %s contato %s (reentrega=%t): %s", payload.CampaignID, payload.ContactID, redelivered, err)
		ack.Nack(false, !redelivered)
		return
	}
	ack.Ack(false)
}
