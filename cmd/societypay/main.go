package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/RiyaTorgal/SocietyPay-backend/app/controllers"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/account"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/auth"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/cache"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/database"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/env"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/export"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/jobqueue"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/mail"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/objectstore"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/payment"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/receipt"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/router"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/scheduler"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/statistics"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/upload"
)

const shutdownTimeout = 10 * time.Second

// Application holds the HTTP server and the background workers it owns
type Application struct {
	App       *fiber.App
	Scheduler *scheduler.Scheduler
	Jobs      *jobqueue.Manager
}

func main() {
	application := NewApplication()

	application.Scheduler.Start()
	application.Jobs.Start()

	go func() {
		addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
		if err := application.App.Listen(addr); err != nil {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	application.Scheduler.Stop()
	application.Jobs.Stop()
	if err := application.App.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
}

func NewApplication() *Application {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	loc := env.Location()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalRepositories()

	payments := payment.NewService(repos, payment.UPIConfigFromEnv(), payment.WithLocation(loc))
	issuer := receipt.NewIssuer(repos,
		receipt.WithLocation(loc),
		receipt.WithSocietyName(env.GetEnv("SOCIETY_NAME", "")),
	)
	payments.SetReceiptIssuer(issuer)

	store := newObjectStore()

	var mailer mail.Sender
	if mailCfg := mail.LoadConfig(); mailCfg.Configured() {
		mailer = mail.NewSMTPMailer(mailCfg)
	} else {
		log.Println("SMTP is not configured, receipts will not be emailed")
	}

	// Receipt delivery runs on the job queue; the redelivery task picks up anything a worker dropped.
	queue := jobqueue.NewQueue(env.GetEnvInt("JOBQUEUE_WORKERS", 3))
	jobs := jobqueue.NewManager(queue)
	deliverer := receipt.NewDeliverer(issuer, repos, mailer, store)
	queue.RegisterHandler(jobqueue.JobTypeReceiptDelivery, deliverer.HandleJob)
	notifier := receipt.NewQueueNotifier(queue)
	issuer.SetNotifier(notifier)
	jobs.AddTask(receipt.RedeliveryTask(repos, notifier, 15*time.Minute, 10*time.Minute, 7*24*time.Hour))

	billing := scheduler.New(payments, repos.Setting, repos.MaintenanceMonth, scheduler.Config{
		Interval: env.GetEnvDuration("SCHEDULER_INTERVAL", scheduler.DefaultInterval),
	})

	tokens, err := auth.NewIssuerFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	accounts := account.NewService(repos, tokens, payments)
	stats := statistics.NewService(repos, cache.GetClient(), payments)
	exports := export.NewService(payments, loc)

	app := fiber.New(fiber.Config{
		AppName:   env.GetEnv("APP_NAME", "SocietyPay"),
		BodyLimit: 8 << 20,
	})
	app.Use(recover.New(), logger.New())

	router.InstallRouter(app, router.Deps{
		Tokens:          tokens,
		Auth:            controllers.NewAuthController(accounts, tokens.TTL(), !env.IsDev()),
		Flats:           controllers.NewFlatController(accounts),
		Maintenance:     controllers.NewMaintenanceController(payments, billing),
		Payments:        controllers.NewPaymentController(payments, upload.NewProofUploader(store), stats),
		Receipts:        controllers.NewReceiptController(issuer),
		Exports:         controllers.NewExportController(exports),
		Admin:           controllers.NewAdminController(billing, stats, queue),
		LimiterStorage:  limiterStorage(),
		RateLimitMax:    env.GetEnvInt("RATE_LIMIT_MAX", 0),
		RateLimitWindow: env.GetEnvDuration("RATE_LIMIT_WINDOW", 0),
		CORSOrigins:     env.GetEnv("CORS_ORIGINS", ""),
		MetricsUser:     env.GetEnv("METRICS_USER", ""),
		MetricsPassword: env.GetEnv("METRICS_PASSWORD", ""),
		OpenAPIFile:     "./public/docs/v1/openapi.yml",
	})

	return &Application{App: app, Scheduler: billing, Jobs: jobs}
}

// newObjectStore falls back to process memory when S3 is off, so uploads still work in development
func newObjectStore() objectstore.Store {
	cfg, err := objectstore.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	if !cfg.IsEnabled() {
		log.Println("S3 is disabled, keeping uploads in memory")
		return objectstore.NewMemoryStore("memory://societypay")
	}
	client, err := objectstore.NewClient(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	return client
}

// limiterStorage shares rate-limit counters through Redis when it is reachable
func limiterStorage() fiber.Storage {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := cache.GetClient().Ping(ctx).Err(); err != nil {
		log.Printf("Redis unavailable, rate limiting per instance: %v", err)
		return nil
	}
	return cache.NewFiberStorage(cache.LimiterDB)
}
