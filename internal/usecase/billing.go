package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/asaas"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/telemetry"
)

const (
	MaxWebhookAttempts = 5
	webhookRetryDelay  = time.Minute
	paymentSyncWindow  = 90 * 24 * time.Hour
	providerAsaas      = "asaas"
)

// ErrUnlinkedCustomer: a cobrança pertence a um cliente Asaas sem aluno no CRM.
var ErrUnlinkedCustomer = errors.New("cliente asaas não vinculado a nenhum aluno")

type SyncReport struct {
	Upserted int `json:"upserted"`
	Skipped  int `json:"skipped"`
}

type BillingUseCase struct {
	Events        entity.WebhookEventRepositoryInterface
	Payments      entity.PaymentRepositoryInterface
	Subscriptions entity.BillingSubscriptionRepository
	Students      entity.StudentRepositoryInterface
	Gateway       BillingGateway
	Queue         QueuePublisher
	Now           func() time.Time
}

func NewBillingUseCase(
	events entity.WebhookEventRepositoryInterface,
	payments entity.PaymentRepositoryInterface,
	subs entity.BillingSubscriptionRepository,
	students entity.StudentRepositoryInterface,
	gateway BillingGateway,
	queue QueuePublisher,
) *BillingUseCase {
	return &BillingUseCase{
		Events:        events,
		Payments:      payments,
		Subscriptions: subs,
		Students:      students,
		Gateway:       gateway,
		Queue:         queue,
		Now:           time.Now,
	}
}

// ReceiveWebhook persiste o evento cru e o enfileira. Eventos repetidos (mesmo id) são
// reconhecidos sem reprocessar; duplicate=true nesse caso.
func (uc *BillingUseCase) ReceiveWebhook(ctx context.Context, body []byte) (duplicate bool, err error) {
	var evt asaas.WebhookEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return false, &DomainError{Code: CodeValidation, Message: "payload inválido"}
	}
	if evt.ID == "" || evt.Event == "" {
		return false, validationFailed([]ValidationError{{"id", "event id and type are required"}})
	}

	record := &entity.WebhookEvent{
		ID:         evt.ID,
		Provider:   providerAsaas,
		Event:      evt.Event,
		Payload:    json.RawMessage(body),
		Status:     entity.WebhookPending,
		ReceivedAt: uc.Now(),
	}
	if err := uc.Events.Create(ctx, record); err != nil {
		if errors.Is(err, entity.ErrDuplicate) {
			log.Printf("🔁 Webhook Asaas %s já recebido, ignorando", evt.ID)
			telemetry.RecordWebhook(providerAsaas, "duplicate")
			return true, nil
		}
		return false, dbError("failed to store webhook", err)
	}

	// se a fila falhar o evento segue PENDING e o job de retry processa
	if uc.Queue != nil {
		if err := uc.Queue.PublishWebhookEvent(ctx, queue.WebhookEventPayload{EventID: evt.ID}); err != nil {
			log.Printf("⚠️ CRITICAL: Webhook %s salvo, mas falha na fila: %v", evt.ID, err)
		}
	}

	telemetry.RecordWebhook(providerAsaas, "accepted")
	log.Printf("📩 Webhook Asaas %s (%s) recebido", evt.ID, evt.Event)
	return false, nil
}

// ProcessWebhookEvent aplica o evento salvo. Sucesso marca PROCESSED; erro marca FAILED
// com attempts++ e devolve o erro.
func (uc *BillingUseCase) ProcessWebhookEvent(ctx context.Context, eventID string) error {
	record, err := uc.Events.FindByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("evento %s: %w", eventID, err)
	}
	if record.Status == entity.WebhookProcessed {
		return nil
	}

	if err := uc.apply(ctx, record); err != nil {
		if markErr := uc.Events.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			log.Printf("⚠️ Falha ao marcar webhook %s como FAILED: %v", record.ID, markErr)
		}
		return err
	}

	if err := uc.Events.MarkProcessed(ctx, record.ID); err != nil {
		return fmt.Errorf("falha ao marcar webhook %s como processado: %w", record.ID, err)
	}
	log.Printf("✅ Webhook %s (%s) processado", record.ID, record.Event)
	return nil
}

func (uc *BillingUseCase) apply(ctx context.Context, record *entity.WebhookEvent) error {
	var evt asaas.WebhookEvent
	if err := json.Unmarshal(record.Payload, &evt); err != nil {
		return fmt.Errorf("payload inválido: %w", err)
	}

	switch {
	case strings.HasPrefix(evt.Event, "PAYMENT_") && evt.Payment != nil:
		status := PaymentStatusForEvent(evt.Event, evt.Payment.Status)
		if evt.Payment.Deleted {
			status = entity.PaymentDeleted
		}
		return uc.upsertPayment(ctx, *evt.Payment, status)
	case strings.HasPrefix(evt.Event, "SUBSCRIPTION_") && evt.Subscription != nil:
		return uc.upsertSubscription(ctx, *evt.Subscription)
	default:
		log.Printf("ℹ️ Evento Asaas %s ignorado", evt.Event)
		return nil
	}
}

// PaymentStatusForEvent traduz o tipo do evento (ou o status da cobrança) para o status local.
func PaymentStatusForEvent(event, asaasStatus string) string {
	switch event {
	case "PAYMENT_RECEIVED", "PAYMENT_RECEIVED_IN_CASH":
		return entity.PaymentReceived
	case "PAYMENT_CONFIRMED":
		return entity.PaymentConfirmed
	case "PAYMENT_OVERDUE":
		return entity.PaymentOverdue
	case "PAYMENT_REFUNDED", "PAYMENT_PARTIALLY_REFUNDED":
		return entity.PaymentRefunded
	case "PAYMENT_DELETED":
		return entity.PaymentDeleted
	}
	return MapPaymentStatus(asaasStatus)
}

// MapPaymentStatus reduz os status do Asaas aos que o CRM acompanha.
func MapPaymentStatus(asaasStatus string) string {
	switch asaasStatus {
	case "RECEIVED", "RECEIVED_IN_CASH", "DUNNING_RECEIVED":
		return entity.PaymentReceived
	case "CONFIRMED":
		return entity.PaymentConfirmed
	case "OVERDUE", "DUNNING_REQUESTED":
		return entity.PaymentOverdue
	case "REFUNDED", "REFUND_REQUESTED", "REFUND_IN_PROGRESS", "CHARGEBACK_REQUESTED", "CHARGEBACK_DISPUTE", "AWAITING_CHARGEBACK_REVERSAL":
		return entity.PaymentRefunded
	default:
		return entity.PaymentPending
	}
}

func (uc *BillingUseCase) upsertPayment(ctx context.Context, p asaas.Payment, status string) error {
	student, err := uc.Students.FindByAsaasCustomerID(ctx, p.Customer)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnlinkedCustomer, p.Customer)
		}
		return fmt.Errorf("falha ao buscar aluno: %w", err)
	}

	payment := &entity.Payment{
		ID:              p.ID,
		OrganizationID:  student.OrganizationID,
		StudentID:       student.ID,
		AsaasCustomerID: p.Customer,
		SubscriptionID:  p.Subscription,
		ValueCents:      toCents(p.Value),
		NetValueCents:   toCents(p.NetValue),
		BillingType:     p.BillingType,
		Status:          status,
		InvoiceURL:      p.InvoiceURL,
		SyncedAt:        uc.Now(),
	}
	if d, err := time.Parse("2006-01-02", p.DueDate); err == nil {
		payment.DueDate = d
	}
	paid := p.PaymentDate
	if paid == "" {
		paid = p.ClientPaymentDate
	}
	if d, err := time.Parse("2006-01-02", paid); err == nil && payment.IsPaid() {
		payment.PaidAt = &d
	}

	if err := uc.Payments.Upsert(ctx, payment); err != nil {
		return fmt.Errorf("falha ao salvar cobrança %s: %w", p.ID, err)
	}
	telemetry.RecordPaymentSynced(status)
	return nil
}

func (uc *BillingUseCase) upsertSubscription(ctx context.Context, s asaas.Subscription) error {
	student, err := uc.Students.FindByAsaasCustomerID(ctx, s.Customer)
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnlinkedCustomer, s.Customer)
		}
		return fmt.Errorf("falha ao buscar aluno: %w", err)
	}

	sub := subscriptionFromAsaas(&s, student, s.ExternalReference)
	if s.Deleted {
		sub.Status = "INACTIVE"
	}
	sub.SyncedAt = uc.Now()
	if err := uc.Subscriptions.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("falha ao salvar assinatura %s: %w", s.ID, err)
	}
	return nil
}

// RetryFailedWebhooks reprocessa eventos FAILED/PENDING parados, até MaxWebhookAttempts tentativas.
func (uc *BillingUseCase) RetryFailedWebhooks(ctx context.Context) error {
	events, err := uc.Events.ListRetryable(ctx, MaxWebhookAttempts, uc.Now().Add(-webhookRetryDelay), 100)
	if err != nil {
		return fmt.Errorf("falha ao listar webhooks para retry: %w", err)
	}

	var ok, failed int
	for _, evt := range events {
		if err := uc.ProcessWebhookEvent(ctx, evt.ID); err != nil {
			failed++
			continue
		}
		ok++
	}
	if len(events) > 0 {
		log.Printf("🔁 Retry de webhooks: %d ok, %d com falha", ok, failed)
	}
	return nil
}

// SyncPayments varre as cobranças recentes no Asaas, página a página.
func (uc *BillingUseCase) SyncPayments(ctx context.Context) (SyncReport, error) {
	var report SyncReport
	from := uc.Now().Add(-paymentSyncWindow).Format("2006-01-02")

	for offset := 0; ; {
		page, err := uc.Gateway.ListPayments(ctx, asaas.ListParams{Offset: offset, Limit: 100, DueDateFrom: from})
		if err != nil {
			telemetry.RecordIntegrationError("asaas")
			return report, err
		}

		for _, p := range page.Data {
			status := MapPaymentStatus(p.Status)
			if p.Deleted {
				status = entity.PaymentDeleted
			}
			if err := uc.upsertPayment(ctx, p, status); err != nil {
				if errors.Is(err, ErrUnlinkedCustomer) {
					report.Skipped++
					continue
				}
				return report, err
			}
			report.Upserted++
		}

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		offset += len(page.Data)
	}

	log.Printf("💰 Sync de cobranças: %d atualizadas, %d sem aluno", report.Upserted, report.Skipped)
	return report, nil
}

func (uc *BillingUseCase) SyncSubscriptions(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	for offset := 0; ; {
		page, err := uc.Gateway.ListSubscriptions(ctx, asaas.ListParams{Offset: offset, Limit: 100})
		if err != nil {
			telemetry.RecordIntegrationError("asaas")
			return report, err
		}

		for _, s := range page.Data {
			if err := uc.upsertSubscription(ctx, s); err != nil {
				if errors.Is(err, ErrUnlinkedCustomer) {
					report.Skipped++
					continue
				}
				return report, err
			}
			report.Upserted++
		}

		if !page.HasMore || len(page.Data) == 0 {
			break
		}
		offset += len(page.Data)
	}

	log.Printf("🔄 Sync de assinaturas: %d atualizadas, %d sem aluno", report.Upserted, report.Skipped)
	return report, nil
}

func (uc *BillingUseCase) ListStudentPayments(ctx context.Context, actor Actor, studentID string) ([]*entity.Payment, error) {
	payments, err := uc.Payments.ListByStudent(ctx, actor.OrganizationID, studentID)
	if err != nil {
		return nil, dbError("failed to list payments", err)
	}
	return payments, nil
}

func toCents(v float64) int {
	return int(math.Round(v * 100))
}
