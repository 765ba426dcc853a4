package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fieldreport/internal/config"
	"fieldreport/internal/database"
	"fieldreport/internal/handlers"
	"fieldreport/internal/logging"
	"fieldreport/internal/services"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting field report bot...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (DB: %s, allow-list: %d users)", cfg.DatabasePath, len(cfg.AllowedUserIDs))

	// Open SQLite database and ensure schema
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Core services
	reportService := services.NewReportService(db)
	digestService := services.NewDigestService()
	verificationService := services.NewVerificationService(cfg.VerificationFile)
	sessionService := services.NewSessionService()

	// Telegram transport
	channelService := services.NewChannelService(cfg.BotToken)

	// Session state machine
	botHandler := handlers.NewBotHandler(
		channelService,
		sessionService,
		reportService,
		digestService,
		verificationService,
		cfg.AllowedUserIDs,
	)
	channelService.SetUpdateHandler(botHandler.HandleUpdate)

	// Supervisor digest scheduler
	schedulerService, err := services.NewSchedulerService(
		reportService,
		digestService,
		channelService,
		cfg.AllowedUserIDs,
		cfg.DigestCron,
		cfg.DigestTimezone,
	)
	if err != nil {
		log.Fatalf("❌ Failed to create scheduler: %v", err)
	}
	if err := schedulerService.Start(); err != nil {
		log.Fatalf("❌ Failed to start scheduler: %v", err)
	}

	channelService.StartPolling()
	log.Println("✅ Bot is running")

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("\n🛑 Shutting down...")

	channelService.Stop()
	if err := schedulerService.Stop(); err != nil {
		log.Printf("⚠️ Error stopping scheduler: %v", err)
	}

	log.Println("👋 Shutdown complete")
}
