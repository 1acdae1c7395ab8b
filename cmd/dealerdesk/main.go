package main

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/BenKrueger/DealerDesk/app/controllers"
	"github.com/BenKrueger/DealerDesk/internal/pkg/cache"
	"github.com/BenKrueger/DealerDesk/internal/pkg/database"
	"github.com/BenKrueger/DealerDesk/internal/pkg/env"
	"github.com/BenKrueger/DealerDesk/internal/pkg/jobqueue"
	"github.com/BenKrueger/DealerDesk/internal/pkg/metrics/counter"
	"github.com/BenKrueger/DealerDesk/internal/pkg/payments"
	"github.com/BenKrueger/DealerDesk/internal/pkg/router"
)

func main() {
	app, queue := NewApplication()
	defer queue.Stop()

	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	fiberlog.Fatal(err)
}

// NewApplication builds the fiber app with all collaborators explicitly
// constructed and injected; nothing here keeps ambient singletons.
func NewApplication() (*fiber.App, *jobqueue.Queue) {
	env.SetupEnvFile()

	db, err := database.Connect()
	if err != nil {
		fiberlog.Fatalf("database setup failed: %v", err)
	}

	redisClient, err := cache.NewClient()
	if err != nil {
		fiberlog.Fatalf("cache setup failed: %v", err)
	}

	queue := jobqueue.NewQueue(redisClient, 3)
	queue.RegisterProcessor(jobqueue.JobTypePriceCorrection, jobqueue.PriceCorrectionProcessor)
	queue.Start()

	repo := payments.NewRepository(db)
	dispatcher := payments.NewDispatcher(repo, queue)
	metrics := counter.New(redisClient)
	webhooks := controllers.NewPaymentWebhookController(
		dispatcher,
		env.GetEnv("PAYMENT_WEBHOOK_SECRET", ""),
		metrics,
	)

	app := fiber.New()
	app.Use(recover.New(), logger.New())
	router.InstallRouter(app, router.NewApiRouter(webhooks))

	return app, queue
}
