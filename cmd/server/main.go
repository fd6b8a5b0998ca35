package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"

	"github.com/teccUI/inteliTASK/internal/handlers"
	"github.com/teccUI/inteliTASK/internal/middleware"
	"github.com/teccUI/inteliTASK/internal/models"
	"github.com/teccUI/inteliTASK/internal/services"
	"github.com/teccUI/inteliTASK/internal/store"
	"github.com/teccUI/inteliTASK/pkg/cache"
	"github.com/teccUI/inteliTASK/pkg/config"
)

// notifierStore routes the batch notifiers' user lookups through the
// Redis-backed user cache while every other store call goes straight to
// Firestore. Batch scans hit the same owners repeatedly across runs, so
// this is where the cache pays for itself.
type notifierStore struct {
	*store.Store
	users *cache.UserCache
}

func (n *notifierStore) GetUser(ctx context.Context, uid string) (*models.User, error) {
	return n.users.GetUser(ctx, uid)
}

func main() {
	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("env", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Msg("Starting IntelliTask API")

	ctx := context.Background()

	// Initialize Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Firestore")
	}
	db := store.New(fsClient)
	defer db.Close()

	// Initialize Redis
	redisDB, err := store.NewRedisDB(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisDB.Close()

	// Initialize caches
	var (
		cacheInstance *cache.Cache
		userCache     *cache.UserCache
	)
	if cfg.Cache.Enabled {
		cacheInstance = cache.NewCache(redisDB.Client())
		userCache = cache.NewUserCache(cacheInstance, db, cfg.Cache.UserTTL)
	}

	// Initialize Firebase Cloud Messaging
	fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firebase")
	}
	fcmClient, err := fbApp.Messaging(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Firebase messaging")
	}

	// Initialize services
	mailer := services.NewMailer(sendgrid.NewSendClient(cfg.Email.SendGridKey), &cfg.Email)
	pushService := services.NewPushService(fcmClient, db)
	calendarService := services.NewCalendarService(&cfg.OAuth, db, redisDB)
	taskSyncService := services.NewTaskSyncService(calendarService, db)
	analyticsService := services.NewAnalyticsService(db, cacheInstance, cfg.Cache.AnalyticsTTL)

	var notifierDB services.NotifierStore = db
	var userInvalidator handlers.UserCacheInvalidator
	if userCache != nil {
		notifierDB = &notifierStore{Store: db, users: userCache}
		userInvalidator = userCache
	}
	notifier := services.NewNotifier(notifierDB, mailer, cfg.Notify)

	// Initialize handlers
	taskHandler := handlers.NewTaskHandler(db, mailer, pushService, analyticsService)
	taskListHandler := handlers.NewTaskListHandler(db)
	userHandler := handlers.NewUserHandler(db, pushService, userInvalidator)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	calendarHandler := handlers.NewCalendarHandler(calendarService, taskSyncService, cfg.Server.FrontendURL)
	notificationHandler := handlers.NewNotificationHandler(db, pushService, mailer, notifier)
	sharedHandler := handlers.NewSharedHandler(db)
	healthHandler := handlers.NewHealthHandler(db, redisDB, cfg)

	// Initialize middleware
	rateLimiter := middleware.NewRateLimiter(redisDB, cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.WindowDuration)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(chimiddleware.Compress(5))
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// Health check endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", middleware.MetricsHandler())

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)
			r.Get("/{id}", taskHandler.Get)
			r.Put("/{id}", taskHandler.Update)
			r.Delete("/{id}", taskHandler.Delete)

			r.Group(func(r chi.Router) {
				r.Use(rateLimiter.Limit("reminders"))
				r.Post("/reminders", taskHandler.Reminders)
			})
		})

		r.Route("/task-lists", func(r chi.Router) {
			r.Get("/", taskListHandler.List)
			r.Post("/", taskListHandler.Create)
			r.Get("/{id}", taskListHandler.Get)
			r.Put("/{id}", taskListHandler.Update)
			r.Delete("/{id}", taskListHandler.Delete)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", userHandler.Get)
			r.Post("/", userHandler.Upsert)
			r.Get("/settings", userHandler.GetSettings)
			r.Put("/settings", userHandler.UpdateSettings)

			r.Group(func(r chi.Router) {
				r.Use(rateLimiter.Limit("digest"))
				r.Post("/digest", userHandler.Digest)
			})
		})

		r.Get("/analytics", analyticsHandler.Get)

		r.Route("/calendar", func(r chi.Router) {
			r.Get("/auth", calendarHandler.Auth)
			r.Get("/callback", calendarHandler.Callback)
			r.Get("/status", calendarHandler.Status)

			r.Group(func(r chi.Router) {
				r.Use(rateLimiter.Limit("calendar_sync"))
				r.Post("/sync", calendarHandler.Sync)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Post("/register", notificationHandler.Register)
			r.Post("/send", notificationHandler.Send)
			r.Post("/email", notificationHandler.Email)

			r.Group(func(r chi.Router) {
				r.Use(rateLimiter.Limit("scheduled"))
				r.Post("/scheduled", notificationHandler.Scheduled)
			})
		})

		r.Get("/shared/tasks", sharedHandler.Tasks)
		r.Post("/integrations/test", healthHandler.IntegrationsTest)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
