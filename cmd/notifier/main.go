package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/lumenspa/booking/internal/consumer"
	"github.com/lumenspa/booking/internal/email"
	"github.com/lumenspa/booking/internal/inbox"
	"github.com/lumenspa/booking/internal/outbox"
	"github.com/lumenspa/booking/libs/config"
	"github.com/lumenspa/booking/libs/db"
	"github.com/lumenspa/booking/libs/httpx"
	"github.com/lumenspa/booking/libs/kafkax"
	otelx "github.com/lumenspa/booking/libs/otel"
	"github.com/lumenspa/booking/libs/runtime"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type bookedPayload struct {
	AppointmentID string `json:"appointment_id"`
	GroupID       string `json:"group_id"`
	ClientID      string `json:"client_id"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ServiceName   string `json:"service_name"`
	StaffName     string `json:"staff_name"`
	ScheduledAt   string `json:"scheduled_at"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	TotalPrice    string `json:"total_price"`
}

func writeOutcome(ctx context.Context, pool *db.Pool, outboxRepo *outbox.Repository, payload bookedPayload, eventType, reason string) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fields := map[string]any{
		"appointment_id": payload.AppointmentID,
		"group_id":       payload.GroupID,
		"recipient":      payload.ClientEmail,
		"at":             time.Now().UTC().Format(time.RFC3339),
	}
	if reason != "" {
		fields["error_reason"] = reason
	}
	eventPayload, err := json.Marshal(fields)
	if err != nil {
		return err
	}

	if err := outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "confirmation",
		AggregateID:   payload.AppointmentID,
		EventType:     eventType,
		Payload:       eventPayload,
	}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func main() {
	service := config.String("SERVICE_NAME", "notifier")
	port, err := config.Port("PORT", "8081")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	inboxRepo := inbox.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	var sender email.Sender
	smtpHost := config.String("SMTP_HOST", "")
	if smtpHost != "" {
		sender = email.NewSMTPSender(smtpHost, config.String("SMTP_PORT", "1025"), config.String("SMTP_FROM", ""))
	} else {
		logger.Warn("SMTP_HOST not set; confirmations will be dropped")
		sender = email.NewNoopSender()
	}

	consumerCfg := consumer.Config{
		Brokers: config.String("KAFKA_BROKERS", ""),
		GroupID: config.String("KAFKA_GROUP_ID", "notifier"),
		Topic:   config.String("KAFKA_CONSUME_TOPIC", outbox.EventAppointmentBooked),
	}
	eventConsumer := consumer.New(logger, inboxRepo, consumerCfg, func(ctx context.Context, msg kafka.Message) error {
		var payload bookedPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid booked payload", "err", err)
			return nil
		}
		if payload.AppointmentID == "" || strings.TrimSpace(payload.ClientEmail) == "" {
			logger.Error("missing booked event fields", "appointment_id", payload.AppointmentID)
			return nil
		}
		scheduledAt, err := time.Parse(time.RFC3339, payload.ScheduledAt)
		if err != nil {
			logger.Error("invalid scheduled_at", "err", err, "appointment_id", payload.AppointmentID)
			return nil
		}

		conf := email.Confirmation{
			ClientName:    payload.ClientName,
			ServiceName:   payload.ServiceName,
			StaffName:     payload.StaffName,
			ScheduledAt:   scheduledAt,
			TotalPrice:    payload.TotalPrice,
			PaymentStatus: payload.PaymentStatus,
		}

		if err := sender.Send(payload.ClientEmail, conf.Subject(), conf.Body()); err != nil {
			logger.Error("confirmation send failed", "err", err, "appointment_id", payload.AppointmentID)
			if err := writeOutcome(ctx, pool, outboxRepo, payload, outbox.EventConfirmationFailed, err.Error()); err != nil {
				logger.Error("failed to enqueue confirmation.failed", "err", err)
				return err
			}
			return nil
		}

		if err := writeOutcome(ctx, pool, outboxRepo, payload, outbox.EventConfirmationSent, ""); err != nil {
			logger.Error("failed to enqueue confirmation.sent", "err", err)
			return err
		}
		logger.Info("confirmation sent", "appointment_id", payload.AppointmentID, "recipient", payload.ClientEmail)
		return nil
	})
	go eventConsumer.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(handler, "notifier"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
