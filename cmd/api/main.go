package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/infra/crypto"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-crm/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/asaas"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/brevo"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/dify"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/ligue-crm/internal/infra/mail"
	"github.com/xavierca1/ligue-crm/internal/infra/queue"
	"github.com/xavierca1/ligue-crm/internal/infra/telemetry"
	"github.com/xavierca1/ligue-crm/internal/infra/worker"
	"github.com/xavierca1/ligue-crm/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup("ligue-crm", cfg.OTelEndpoint, cfg.OTelInsecure)

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Falha ao conectar no Postgres: %v", err)
	}
	defer db.Close()

	gormDB, err := database.NewGormDB(db)
	if err != nil {
		log.Fatalf("❌ Falha ao iniciar gorm: %v", err)
	}

	vault, err := crypto.NewVault(cfg.DataEncryptionKey)
	if err != nil {
		log.Fatalf("❌ DATA_ENCRYPTION_KEY inválida: %v", err)
	}
	if cfg.DataEncryptionKey == "" {
		log.Println("⚠️ DATA_ENCRYPTION_KEY vazio: CPFs serão gravados sem criptografia")
	}

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db, vault)
	studentRepo := database.NewStudentRepository(db, vault)
	enrollmentRepo := database.NewEnrollmentRepository(db)
	subRepo := database.NewSubscriptionRepository(db)
	paymentRepo := database.NewPaymentRepository(db)
	webhookRepo := database.NewWebhookEventRepository(db)
	userRepo := database.NewUserRepository(db)
	conversationRepo := database.NewConversationRepository(db)
	templateRepo := database.NewEmailTemplateRepository(db)
	contactRepo := database.NewEmailContactRepository(db)
	campaignRepo := database.NewEmailCampaignRepository(db)
	rateLimitRepo := database.NewRateLimitRepository(db)
	complianceRepo := database.NewComplianceRepository(gormDB)

	// 2. Integrações
	gateway := asaas.NewClient(cfg.AsaasAPIKey, cfg.AsaasURL)
	brevoClient := brevo.NewClient(cfg.BrevoAPIKey, cfg.BrevoListID, cfg.BrevoURL)
	smtp := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
	mailer := mail.NewDispatcher(brevoClient, smtp, cfg.MailFrom, "Ligue")
	waClient := whatsapp.NewClient(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneID, cfg.WhatsAppURL)

	var wa usecase.WhatsAppSender
	if waClient.Configured() {
		wa = waClient
	}
	var suggester usecase.ReplySuggester
	if cfg.FeatureAISuggestions && cfg.DifyAPIKey != "" {
		suggester = dify.NewClient(cfg.DifyAPIKey, cfg.DifyURL)
	}
	var syncer usecase.ContactSyncer
	if brevoClient.Configured() {
		syncer = brevoClient
	}

	// 3. UseCases
	limiter := usecase.NewRateLimiter(rateLimitRepo)
	compliance := usecase.NewComplianceUseCase(complianceRepo, studentRepo, enrollmentRepo, paymentRepo)
	users := usecase.NewUserUseCase(userRepo, compliance)
	students := usecase.NewStudentUseCase(studentRepo, contactRepo, compliance)
	leads := usecase.NewLeadUseCase(leadRepo, userRepo, contactRepo, students, compliance, compliance, limiter)
	enrollments := usecase.NewEnrollmentUseCase(enrollmentRepo, studentRepo, subRepo, gateway, compliance)
	billing := usecase.NewBillingUseCase(webhookRepo, paymentRepo, subRepo, studentRepo, gateway, nil)
	chat := usecase.NewChatUseCase(conversationRepo, wa, suggester, limiter)
	campaigns := usecase.NewCampaignUseCase(templateRepo, contactRepo, campaignRepo, compliance, nil, mailer, syncer, limiter, compliance)
	dashboard := usecase.NewDashboardUseCase(leadRepo, studentRepo, paymentRepo)
	imports := usecase.NewImportUseCase(leads, students)

	// 4. Fila: RabbitMQ quando disponível, senão processamento síncrono
	var rabbitMQ *queue.RabbitMQ
	var publisher usecase.QueuePublisher = queue.NewInlinePublisher(billing, campaigns)
	if cfg.RabbitMQURL != "" {
		rabbitMQ, err = queue.NewRabbitMQ(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("⚠️ RabbitMQ indisponível, seguindo em modo síncrono: %v", err)
			rabbitMQ = nil
		} else {
			defer rabbitMQ.Close()
			publisher = queue.NewProducer(rabbitMQ.Ch)
		}
	}
	billing.Queue = publisher
	campaigns.Queue = publisher

	// 5. Workers e jobs
	sched := worker.NewScheduler()
	if cfg.FeatureWorkers {
		if rabbitMQ != nil {
			consumer := queue.NewWorker(rabbitMQ.Ch, billing, campaigns)
			go func() {
				if err := consumer.Start(ctx); err != nil {
					log.Printf("❌ Worker RabbitMQ parou: %v", err)
				}
			}()
		}

		sched.Register("webhook-retry", cfg.WebhookRetryInterval, billing.RetryFailedWebhooks)
		if cfg.AsaasAPIKey != "" {
			sched.Register("payment-sync", cfg.PaymentSyncInterval, func(ctx context.Context) error {
				_, err := billing.SyncPayments(ctx)
				return err
			})
			sched.Register("subscription-sync", cfg.SubscriptionInterval, func(ctx context.Context) error {
				_, err := billing.SyncSubscriptions(ctx)
				return err
			})
		}
		sched.Register("campaign-dispatch", cfg.CampaignInterval, campaigns.DispatchScheduled)
		if syncer != nil {
			sched.Register("brevo-contact-sync", cfg.ContactSyncInterval, func(ctx context.Context) error {
				_, err := campaigns.SyncContacts(ctx)
				return err
			})
		}
		sched.Register("rate-limit-purge", time.Hour, func(ctx context.Context) error {
			_, err := rateLimitRepo.Purge(ctx, time.Now().Add(-24*time.Hour))
			return err
		})
		sched.Start(ctx)
	} else {
		log.Println("ℹ️ FEATURE_WORKERS=false: consumidores e jobs desligados nesta instância")
	}

	// 6. HTTP
	if cfg.ClerkJWTKey == "" {
		log.Fatal("❌ CLERK_JWT_KEY é obrigatório para a API autenticada")
	}
	auth, err := middleware.NewClerkAuth(cfg.ClerkJWTKey, users)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	var clerkWebhook *handlers.ClerkWebhookHandler
	if cfg.ClerkWebhookSecret != "" {
		clerkWebhook, err = handlers.NewClerkWebhookHandler(users, cfg.ClerkWebhookSecret, cfg.DefaultOrganizationID)
		if err != nil {
			log.Fatalf("❌ CLERK_WEBHOOK_SECRET inválido: %v", err)
		}
	} else {
		log.Println("⚠️ CLERK_WEBHOOK_SECRET vazio: /clerk/webhook desativado")
	}

	var broker handlers.BrokerConn
	if rabbitMQ != nil {
		broker = rabbitMQ.Conn
	}

	rt := routes{
		Auth:        auth,
		CORSOrigins: cfg.CORSOrigins,
		Proxies:     cfg.TrustedProxies,
		Health: handlers.NewHealthHandler(db, broker, map[string]bool{
			"asaas":    cfg.AsaasAPIKey != "",
			"brevo":    brevoClient.Configured(),
			"smtp":     smtp.Configured(),
			"whatsapp": waClient.Configured(),
			"dify":     suggester != nil,
		}),
		Leads:        handlers.NewLeadHandler(leads, cfg.DefaultOrganizationID),
		Students:     handlers.NewStudentHandler(students, billing, compliance),
		Validation:   handlers.NewValidationHandler(students),
		Enrollments:  handlers.NewEnrollmentHandler(enrollments),
		Chat:         handlers.NewChatHandler(chat),
		WhatsApp:     handlers.NewWhatsAppWebhookHandler(chat, cfg.WhatsAppVerifyToken, cfg.WhatsAppOrganizationID),
		Email:        handlers.NewEmailHandler(campaigns, cfg.DefaultOrganizationID),
		Imports:      handlers.NewImportHandler(imports),
		Compliance:   handlers.NewComplianceHandler(compliance),
		Users:        handlers.NewUserHandler(users, dashboard),
		AsaasWebhook: handlers.NewAsaasWebhookHandler(billing, cfg.AsaasWebhookToken),
		ClerkWebhook: clerkWebhook,
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           rt.handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("🔥 Ligue CRM rodando na porta %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ HTTP server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("🛑 Encerrando...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Shutdown HTTP: %v", err)
	}
	sched.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Printf("⚠️ Shutdown tracing: %v", err)
	}
	log.Println("👋 Até logo")
}
