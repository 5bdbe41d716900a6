package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clinicpay/terminal-bridge/internal/cache"
	"github.com/clinicpay/terminal-bridge/internal/config"
	"github.com/clinicpay/terminal-bridge/internal/database"
	"github.com/clinicpay/terminal-bridge/internal/database/migrations"
	"github.com/clinicpay/terminal-bridge/internal/handlers"
	"github.com/clinicpay/terminal-bridge/internal/jobs"
	"github.com/clinicpay/terminal-bridge/internal/queue"
	"github.com/clinicpay/terminal-bridge/internal/routes"
	"github.com/clinicpay/terminal-bridge/internal/services/ledger"
	"github.com/clinicpay/terminal-bridge/internal/services/paystack"
	"github.com/clinicpay/terminal-bridge/internal/services/terminal"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	jobQueue := queue.NewQueue(db)

	paystackClient := paystack.NewClient(cfg.Paystack)
	ledgerSvc := ledger.NewService(db, cfg.Paystack)
	presence := cache.NewTerminalStatusCache(cfg.Redis, cfg.Paystack.PresenceCacheTTL)
	terminalSvc := terminal.NewService(db, paystackClient, cfg.Paystack, presence)

	jobs.RegisterWebhookJobHandlers(jobQueue, db, ledgerSvc)
	jobQueue.StartProcessing()
	defer jobQueue.Close()

	reconciliation := jobs.NewReconciliationJob(db, paystackClient, ledgerSvc, cfg.Paystack)
	scheduler := jobs.NewScheduler()
	if err := scheduler.ScheduleReconciliation(reconciliation, cfg.Paystack.ReconcileAt); err != nil {
		log.Fatalf("Failed to schedule reconciliation: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	webhookHandler := handlers.NewPaystackWebhookHandler(ledgerSvc, jobQueue, cfg.Paystack)
	terminalHandler := handlers.NewTerminalHandler(terminalSvc)

	routes.SetupRoutes(router, webhookHandler, terminalHandler)

	go func() {
		log.Printf("Server listening on port %s", cfg.Server.Port)
		if err := router.Run(":" + cfg.Server.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down")
}
