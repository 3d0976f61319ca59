package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/roomhub/bookings/internal/http/handlers"
	mw "github.com/roomhub/bookings/internal/http/middleware"
	"github.com/roomhub/bookings/internal/service"
	"github.com/roomhub/bookings/internal/store/postgres"
	"github.com/roomhub/bookings/pkg/config"
	"github.com/roomhub/bookings/pkg/database"
	"github.com/roomhub/bookings/pkg/events"
	"github.com/roomhub/bookings/pkg/logger"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	var bus events.Publisher = events.NoopPublisher{}
	if cfg.NATS.Enabled {
		natsBus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer natsBus.Close()
		bus = natsBus
	}

	st := postgres.New(pool)
	bookingService := service.NewBookingService(st, bus)
	roomService := service.NewRoomService(st, bus)
	h := handlers.New(bookingService, roomService)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Metrics)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-ID"},
		MaxAge:         300,
	}))

	var limitWrites func(http.Handler) http.Handler
	if cfg.Redis.Enabled {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid Redis URL", "error", err)
			os.Exit(1)
		}
		limiter := mw.NewRedisRateLimiter(redis.NewClient(opts), cfg.Redis.RateLimit, cfg.Redis.RateLimitWindow)
		limitWrites = limiter.Middleware
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/rooms", func(r chi.Router) {
		if limitWrites != nil {
			r.With(limitWrites).Post("/", h.CreateRoom)
		} else {
			r.Post("/", h.CreateRoom)
		}
		r.Get("/", h.ListRooms)
	})

	r.Route("/bookings", func(r chi.Router) {
		if limitWrites != nil {
			r.With(limitWrites).Post("/", h.CreateBooking)
		} else {
			r.Post("/", h.CreateBooking)
		}
		r.Get("/", h.ListBookings)
		r.Get("/{id}", h.GetBooking)
		r.Post("/{id}/cancel", h.CancelBooking)
	})

	r.Get("/reports/room-utilization", h.RoomUtilization)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Bookings service listening", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Bookings service failed", "error", err)
		os.Exit(1)
	}
}
