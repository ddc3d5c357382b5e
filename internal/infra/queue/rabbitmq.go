package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName = "ex.crm"
	DLXName      = "ex.dlx" // Dead Letter Exchange

	WebhookQueue      = "q.asaas-webhooks"
	WebhookDLQ        = "q.asaas-webhooks.dlq"
	WebhookRoutingKey = "k.asaas-webhook"

	CampaignQueue      = "q.campaign-sends"
	CampaignDLQ        = "q.campaign-sends.dlq"
	CampaignRoutingKey = "k.campaign-send"
)

type binding struct {
	queue, dlq, routingKey string
}

var bindings = []binding{
	{WebhookQueue, WebhookDLQ, WebhookRoutingKey},
	{CampaignQueue, CampaignDLQ, CampaignRoutingKey},
}

type RabbitMQ struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("falha ao abrir canal: %w", err)
	}

	if err := setupTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("falha ao declarar topologia: %w", err)
	}

	return &RabbitMQ{Conn: conn, Ch: ch}, nil
}

func (r *RabbitMQ) Close() {
	if r.Ch != nil {
		r.Ch.Close()
	}
	if r.Conn != nil {
		r.Conn.Close()
	}
}

// setupTopology declara exchange principal, DLX e um par fila/DLQ por tipo de mensagem.
func setupTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(DLXName, "direct", true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(ExchangeName, "direct", true, false, false, false, nil); err != nil {
		return err
	}

	for _, b := range bindings {
		if _, err := ch.QueueDeclare(b.dlq, true, false, false, false, nil); err != nil {
			return err
		}
		if err := ch.QueueBind(b.dlq, b.routingKey, DLXName, false, nil); err != nil {
			return err
		}

		args := amqp.Table{
			"x-dead-letter-exchange":    DLXName,      // Se der Nack, manda pra DLX
			"x-dead-letter-routing-key": b.routingKey, // Com essa chave
		}
		if _, err := ch.QueueDeclare(b.queue, true, false, false, false, args); err != nil {
			return err
		}
		if err := ch.QueueBind(b.queue, b.routingKey, ExchangeName, false, nil); err != nil {
			return err
		}
	}
	return nil
}
