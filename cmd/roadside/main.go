package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"roadside-service/internal/config"
	"roadside-service/internal/dashboard"
	"roadside-service/internal/feed"
	"roadside-service/internal/geo"
	"roadside-service/internal/mechanics"
	"roadside-service/internal/notify"
	"roadside-service/internal/requests"
	"roadside-service/internal/tracking"
	"roadside-service/internal/users"
	"roadside-service/migrations"
	"roadside-service/pkg/db"
	"roadside-service/pkg/jwt"
	"roadside-service/pkg/kafka"
	"roadside-service/pkg/metrics"
	rredis "roadside-service/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. Configuration ──
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := jwt.Init(cfg.JWTSecret); err != nil {
		log.Fatal(err)
	}

	// ── 2. PostgreSQL ──
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	if err := database.RunMigrations(ctx, migrations.FS); err != nil {
		log.Fatal("migrations failed:", err)
	}

	// ── 3. Redis ──
	redisClient, err := rredis.NewClient(cfg.RedisAddr)
	if err != nil {
		log.Fatal(err)
	}
	defer redisClient.Close()

	// ── 4. Kafka ──
	kafkaClient := kafka.NewClient(cfg.KafkaBrokers)
	if err := kafkaClient.EnsureTopics(ctx,
		kafka.TopicRequestCreated,
		kafka.TopicRequestChanged,
		kafka.TopicRequestCompleted,
	); err != nil {
		log.Fatal(err)
	}

	// ── 5. Services ──
	userSvc := users.NewService(database.Pool)
	mechSvc := mechanics.NewService(database.Pool, redisClient)
	requestStore := requests.NewPostgresStore(database.Pool)
	requestSvc := requests.NewService(requestStore, kafkaClient, redisClient)

	// ── 6. Change feed ──
	dispatcher := feed.NewDispatcher()
	feed.RunKafkaSource(ctx, kafkaClient, "feed-fanout", dispatcher)

	// ── 7. Background consumers ──
	gateway := notify.NewGateway(cfg.PushGatewayURL)
	fallback := geo.Point{Lat: cfg.DefaultCityLat, Lng: cfg.DefaultCityLng}
	notifier := notify.NewNotifier(kafkaClient, redisClient, database.Pool, gateway, cfg.NotifyRadiusKm, fallback)
	notifier.Start(ctx)

	// ── 8. WebSocket hub ──
	wsHub := tracking.NewHub()
	hubSub := dispatcher.SubscribeAll()
	go wsHub.Run(hubSub)

	// ── 9. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(jwt.OptionalAuth)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"roadside-service"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Mount("/users", users.NewHandler(userSvc).Routes())
	r.Mount("/mechanics", mechanics.NewHandler(mechSvc).Routes())
	r.Mount("/requests", requests.NewHandler(requestSvc, mechSvc.NameOf).Routes())
	r.Mount("/dashboard", dashboard.NewHandler(requestSvc).Routes())
	r.Mount("/ws", wsHub.Routes())

	// ── 10. Start server ──
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}

	go func() {
		log.Printf("roadside-service listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// ── 11. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	srv.Shutdown(shutCtx)
	hubSub.Stop()
	cancel() // stop consumers
}
