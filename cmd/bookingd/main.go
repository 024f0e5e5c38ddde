package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/lumenspa/booking/internal/availability"
	"github.com/lumenspa/booking/internal/booking"
	"github.com/lumenspa/booking/internal/catalog"
	"github.com/lumenspa/booking/internal/handlers"
	"github.com/lumenspa/booking/internal/outbox"
	"github.com/lumenspa/booking/internal/reservation"
	"github.com/lumenspa/booking/libs/config"
	"github.com/lumenspa/booking/libs/db"
	"github.com/lumenspa/booking/libs/httpx"
	"github.com/lumenspa/booking/libs/kafkax"
	otelx "github.com/lumenspa/booking/libs/otel"
	"github.com/lumenspa/booking/libs/runtime"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func gridFromEnv() availability.Grid {
	grid := availability.DefaultGrid()
	grid.OpenHour = config.Int("GRID_OPEN_HOUR", grid.OpenHour)
	grid.CloseHour = config.Int("GRID_CLOSE_HOUR", grid.CloseHour)
	grid.StepMinutes = config.Int("GRID_STEP_MINUTES", grid.StepMinutes)
	return grid
}

func windowFromEnv() booking.Window {
	window := booking.DefaultWindow()
	window.MinLead = config.Duration("BOOKING_MIN_LEAD", window.MinLead)
	window.MaxHorizon = config.Duration("BOOKING_MAX_HORIZON", window.MaxHorizon)
	return window
}

func main() {
	service := config.String("SERVICE_NAME", "bookingd")
	port, err := config.Port("PORT", "8080")
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
	secret, err := config.RequiredString("AUTH_JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	catalogRepo := catalog.NewRepository(pool)
	outboxRepo := outbox.NewRepository(pool)
	reservationRepo := reservation.NewRepository(pool, outboxRepo)

	var catalogStore handlers.Catalog = catalogRepo
	var rdb *redis.Client
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		defer rdb.Close()
		cached := catalog.NewCachedRepository(catalogRepo, rdb, config.Duration("CATALOG_CACHE_TTL", time.Minute), logger)
		catalogStore = cached
	}

	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	grid := gridFromEnv()
	calc := availability.NewCalculator(grid, reservationRepo,
		availability.WithDurationAware(config.Bool("DURATION_AWARE_SLOTS", false)))
	orch := booking.NewOrchestrator(catalogRepo, reservationRepo, calc, windowFromEnv(), logger)
	bookingHandler := handlers.NewBookingHandler(catalogStore, reservationRepo, orch, calc, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if brokers := config.String("KAFKA_BROKERS", ""); brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	bookHandler := http.Handler(http.HandlerFunc(bookingHandler.Book))
	if rdb != nil {
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("BOOK_RATE_LIMIT", 30),
			config.Duration("BOOK_RATE_WINDOW", time.Minute),
			"book")
		bookHandler = limiter.Middleware(logger, true)(bookHandler)
	}

	staffOnly := handlers.RequireRole([]byte(secret), "staff", "admin")
	adminOnly := handlers.RequireRole([]byte(secret), "admin")

	mux.HandleFunc("/api/v1/public/services", bookingHandler.ListServices)
	mux.HandleFunc("/api/v1/public/staff", bookingHandler.ListStaff)
	mux.HandleFunc("/api/v1/public/slots", bookingHandler.Slots)
	mux.HandleFunc("/api/v1/public/quote", bookingHandler.Quote)
	mux.Handle("/api/v1/public/book", bookHandler)
	mux.Handle("/api/v1/appointments", staffOnly(http.HandlerFunc(bookingHandler.List)))
	mux.Handle("/api/v1/appointments/cancel", handlers.WithOptionalAuth([]byte(secret))(http.HandlerFunc(bookingHandler.Cancel)))
	mux.Handle("/api/v1/appointments/complete", staffOnly(http.HandlerFunc(bookingHandler.Complete)))
	mux.Handle("/api/v1/admin/services", adminOnly(http.HandlerFunc(bookingHandler.CreateService)))
	mux.Handle("/api/v1/admin/staff", adminOnly(http.HandlerFunc(bookingHandler.CreateStaff)))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: strings.Split(config.String("CORS_ALLOWED_ORIGINS", ""), ","),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
		}),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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
