package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	auditlog "lab-results-portal/internal/audit"
	auditrepo "lab-results-portal/internal/audit/repository"
	challengerepo "lab-results-portal/internal/challenge/repository"
	"lab-results-portal/internal/config"
	"lab-results-portal/internal/db"
	"lab-results-portal/internal/devotp"
	documentrepo "lab-results-portal/internal/document/repository"
	guesthandler "lab-results-portal/internal/guest/handler"
	guestservice "lab-results-portal/internal/guest/service"
	healthhandler "lab-results-portal/internal/health/handler"
	policyengine "lab-results-portal/internal/policy/engine"
	"lab-results-portal/internal/security"
	"lab-results-portal/internal/server"
	"lab-results-portal/internal/server/middleware"
	"lab-results-portal/internal/sms"
	"lab-results-portal/internal/storage"
	"lab-results-portal/internal/telemetry"
	telemetryotel "lab-results-portal/internal/telemetry/otel"
	"lab-results-portal/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "lab-results-portal", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	evaluator, err := policyengine.NewOPAEvaluator()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	grants, err := storage.NewMinioGrantIssuer(
		cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var kafkaProducer *producer.KafkaProducer
	if brokers := cfg.TelemetryKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer, err = producer.NewKafkaProducer(brokers, cfg.TelemetryKafkaTopic)
		if err != nil {
			log.Fatalf("telemetry: %v", err)
		}
		defer kafkaProducer.Close()
	}

	var devStore devotp.Store
	if cfg.OTPReturnToClient {
		log.Println("dev OTP mode enabled: codes are retrievable via GET /dev/guest/otp and SMS is not sent")
		devStore = devotp.NewMemoryStore()
	}

	var events telemetry.EventEmitter
	if kafkaProducer != nil {
		events = kafkaProducer
	} else {
		events = telemetryotel.NewEventEmitter(providers.LoggerProvider)
	}

	svc := guestservice.NewVerificationService(
		security.NewLinkTokenProvider([]byte(cfg.GuestLinkSecret), cfg.GuestLinkIssuer, cfg.LinkTTL()),
		security.NewHasher(cfg.BcryptCost),
		challengerepo.NewPostgresRepository(conn),
		documentrepo.NewPostgresRepository(conn),
		sms.NewSMSLocalClient(cfg.SMSLocalAPIKey, cfg.SMSLocalBaseURL, cfg.SMSLocalSender),
		grants,
		auditlog.NewLogger(auditrepo.NewPostgresRepository(conn), middleware.ClientIP),
		evaluator,
		guestservice.Options{
			ChallengeTTL:   cfg.ChallengeTTL(),
			GrantTTL:       cfg.GrantTTL(),
			OTPMaxAttempts: cfg.OTPMaxAttempts,
			DOBMaxAttempts: cfg.DOBMaxAttempts,
			DevOTP:         devStore,
			Events:         events,
		},
	)

	deps := server.Deps{
		Guest:  guesthandler.NewHandler(svc, devStore),
		Health: healthhandler.NewHandler(conn, evaluator),
	}
	if kafkaProducer != nil {
		deps.Telemetry = kafkaProducer
	}
	handler := server.NewRouter(deps)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Let in-flight async telemetry emits land before tearing down providers.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
