package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, key, msg)
	return args.Error(0)
}

type MockAck struct {
	mock.Mock
}

func (m *MockAck) Ack(multiple bool) error {
	return m.Called(multiple).Error(0)
}

func (m *MockAck) Nack(multiple, requeue bool) error {
	return m.Called(multiple, requeue).Error(0)
}

type MockWebhookProcessor struct {
	mock.Mock
}

func (m *MockWebhookProcessor) ProcessWebhookEvent(ctx context.Context, eventID string) error {
	return m.Called(ctx, eventID).Error(0)
}

type MockCampaignDeliverer struct {
	mock.Mock
}

func (m *MockCampaignDeliverer) DeliverCampaignEmail(ctx context.Context, payload CampaignSendPayload) error {
	return m.Called(ctx, payload).Error(0)
}

// ============ TESTES DO PRODUCER ============

func TestPublishCampaignSendRoutesToCampaignKey(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishWithContext", mock.Anything, ExchangeName, CampaignRoutingKey, mock.MatchedBy(func(msg amqp.Publishing) bool {
		var p CampaignSendPayload
		require.NoError(t, json.Unmarshal(msg.Body, &p))
		return p.CampaignID == "camp-1" && p.ContactID == "ct-1" && msg.DeliveryMode == amqp.Persistent
	})).Return(nil)

	err := NewProducer(pub).PublishCampaignSend(context.Background(), CampaignSendPayload{
		OrganizationID: "org-1", CampaignID: "camp-1", ContactID: "ct-1",
	})
	assert.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestPublishWebhookEventWrapsBrokerError(t *testing.T) {
	pub := new(MockPublisher)
	pub.On("PublishWithContext", mock.Anything, ExchangeName, WebhookRoutingKey, mock.Anything).Return(errors.New("channel closed"))

	err := NewProducer(pub).PublishWebhookEvent(context.Background(), WebhookEventPayload{EventID: "evt_1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel closed")
}

// ============ TESTES DO WORKER ============

func TestHandleWebhookAcksEvenOnProcessingError(t *testing.T) {
	proc := new(MockWebhookProcessor)
	proc.On("ProcessWebhookEvent", mock.Anything, "evt_1").Return(errors.New("boom"))
	ack := new(MockAck)
	ack.On("Ack", false).Return(nil)

	w := &Worker{Webhooks: proc}
	w.HandleWebhook(context.Background(), []byte(`{"event_id":"evt_1"}`), ack)

	proc.AssertExpectations(t)
	ack.AssertExpectations(t)
}

func TestHandleWebhookRejectsMalformed(t *testing.T) {
	ack := new(MockAck)
	ack.On("Nack", false, false).Return(nil)

	w := &Worker{Webhooks: new(MockWebhookProcessor)}
	w.HandleWebhook(context.Background(), []byte(`not json`), ack)
	w.HandleWebhook(context.Background(), []byte(`{}`), ack)

	ack.AssertNumberOfCalls(t, "Nack", 2)
}

func TestHandleCampaign(t *testing.T) {
	payload := CampaignSendPayload{OrganizationID: "org", CampaignID: "c", ContactID: "ct"}
	body, _ := json.Marshal(payload)

	t.Run("entregue", func(t *testing.T) {
		d := new(MockCampaignDeliverer)
		d.On("DeliverCampaignEmail", mock.Anything, payload).Return(nil)
		ack := new(MockAck)
		ack.On("Ack", false).Return(nil)

		(&Worker{Campaigns: d}).HandleCampaign(context.Background(), body, false, ack)
		ack.AssertExpectations(t)
	})

	t.Run("primeira falha de infra volta para a fila", func(t *testing.T) {
		d := new(MockCampaignDeliverer)
		d.On("DeliverCampaignEmail", mock.Anything, payload).Return(errors.New("db down"))
		ack := new(MockAck)
		ack.On("Nack", false, true).Return(nil)

		(&Worker{Campaigns: d}).HandleCampaign(context.Background(), body, false, ack)
		ack.AssertExpectations(t)
	})

	t.Run("falha na reentrega vai para a DLQ", func(t *testing.T) {
		d := new(MockCampaignDeliverer)
		d.On("DeliverCampaignEmail", mock.Anything, payload).Return(errors.New("db down"))
		ack := new(MockAck)
		ack.On("Nack", false, false).Return(nil)

		(&Worker{Campaigns: d}).HandleCampaign(context.Background(), body, true, ack)
		ack.AssertExpectations(t)
	})

	t.Run("corpo malformado é rejeitado", func(t *testing.T) {
		ack := new(MockAck)
		ack.On("Nack", false, false).Return(nil)

		(&Worker{}).HandleCampaign(context.Background(), []byte(`{}`), false, ack)
		ack.AssertExpectations(t)
	})
}

// ============ TESTES DO MODO SÍNCRONO ============

func TestInlinePublisherSwallowsWebhookErrors(t *testing.T) {
	proc := new(MockWebhookProcessor)
	proc.On("ProcessWebhookEvent", mock.Anything, "evt_9").Return(errors.New("customer not linked"))

	err := NewInlinePublisher(proc, nil).PublishWebhookEvent(context.Background(), WebhookEventPayload{EventID: "evt_9"})

	assert.NoError(t, err)
	proc.AssertExpectations(t)
}

func TestInlinePublisherDeliversCampaignImmediately(t *testing.T) {
	payload := CampaignSendPayload{OrganizationID: "org", CampaignID: "c", ContactID: "ct"}
	d := new(MockCampaignDeliverer)
	d.On("DeliverCampaignEmail", mock.Anything, payload).Return(errors.New("db down"))

	err := NewInlinePublisher(nil, d).PublishCampaignSend(context.Background(), payload)

	assert.EqualError(t, err, "db down")
}
