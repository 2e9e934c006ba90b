package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/FelixBruckner/StackPay/app/controllers"
	"github.com/FelixBruckner/StackPay/internal/pkg/cache"
	"github.com/FelixBruckner/StackPay/internal/pkg/database"
	"github.com/FelixBruckner/StackPay/internal/pkg/env"
	"github.com/FelixBruckner/StackPay/internal/pkg/notification"
	"github.com/FelixBruckner/StackPay/internal/pkg/payment"
	"github.com/FelixBruckner/StackPay/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	// Payment configuration is read and validated once here; a misconfigured
	// gateway stops the process instead of failing lazily on first use.
	cfg := payment.LoadConfigFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("payment configuration invalid: %v", err)
	}

	registry := payment.NewRegistry(cfg)
	repo := payment.NewRepository(database.GetDB())
	service := payment.NewService(repo, notification.NewMailNotifier(), payment.NewRedisDedupe())
	payments := controllers.NewPaymentController(registry, service, repo)

	app := fiber.New(fiber.Config{
		AppName: "StackPay",
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// SWAGGER / OPENAPI
	if basePath := findBasePath(); basePath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: basePath + "public/docs/v1/openapi.yml",
			Path:     "v1",
		}))
	}

	router.InstallRouter(app, router.NewHttpRouter(payments))

	return app
}

func findBasePath() string {
	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/stackpay to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		if _, err := os.Stat(path + "public"); !os.IsNotExist(err) {
			return path
		}
	}
	return ""
}
