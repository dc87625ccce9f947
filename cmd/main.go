package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbanwusi/TradePulse-server/cmd/api"
	"github.com/mbanwusi/TradePulse-server/cmd/models"
	"github.com/mbanwusi/TradePulse-server/db"
	"github.com/mbanwusi/TradePulse-server/pkg/logger"
	"github.com/mbanwusi/TradePulse-server/service/subscription"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	log, err := newLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations(log)
			return
		case "clear-db":
			runDatabaseClear(log)
			return
		default:
			log.Fatal("unknown command", zap.String("command", os.Args[1]))
		}
	}

	startServer(log)
}

func newLogger() (*logger.Logger, error) {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	encoding := os.Getenv("LOG_ENCODING")
	if encoding == "" {
		encoding = "console"
	}
	return logger.New(level, encoding)
}

func runMigrations(log *logger.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatal("database initialization error", zap.Error(err))
	}
	defer closeDB(DB, log)
	log.Info("connected to the database for migrations")

	if err := performMigrations(DB, log); err != nil {
		log.Fatal("migration error", zap.Error(err))
	}
	log.Info("migrations completed successfully")
}

func performMigrations(DB *gorm.DB, log *logger.Logger) error {
	migrations := []struct {
		model interface{}
		name  string
	}{
		{&models.Profile{}, "Profile"},
		{&models.TradingSignal{}, "TradingSignal"},
		{&models.MarketAnalysis{}, "MarketAnalysis"},
		{&models.RefreshToken{}, "RefreshToken"},
		{&models.PasswordResetToken{}, "PasswordResetToken"},
	}

	log.Info("starting database migrations")
	for _, m := range migrations {
		log.Info("migrating table", zap.String("table", m.name))
		if err := DB.AutoMigrate(m.model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", m.name, err)
		}
	}
	return nil
}

func startServer(log *logger.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatal("database initialization error", zap.Error(err))
	}
	defer closeDB(DB, log)
	log.Info("connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	// Hourly sweep marking overdue subscriptions expired.
	sweeper := cron.New()
	_, err = sweeper.AddFunc("@hourly", func() {
		expired, err := subscription.ExpireOverdue(DB)
		if err != nil {
			log.Error("subscription sweep error", zap.Error(err))
			return
		}
		if expired > 0 {
			log.Info("subscriptions expired", zap.Int64("count", expired))
		}
	})
	if err != nil {
		log.Fatal("scheduler error", zap.Error(err))
	}
	sweeper.Start()
	defer sweeper.Stop()

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB, log)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}()
	log.Info("server running", zap.String("port", port))

	<-quit
	log.Info("shutting down server")
}

func runDatabaseClear(log *logger.Logger) {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatal("database initialization error", zap.Error(err))
	}
	defer closeDB(DB, log)

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)
	if confirmation != "yes" {
		log.Info("database clearing cancelled")
		return
	}

	tables := []interface{}{
		&models.PasswordResetToken{},
		&models.RefreshToken{},
		&models.MarketAnalysis{},
		&models.TradingSignal{},
		&models.Profile{},
	}

	log.Info("dropping tables")
	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Warn("error dropping table", zap.String("table", fmt.Sprintf("%T", table)), zap.Error(err))
		} else {
			log.Info("table dropped", zap.String("table", fmt.Sprintf("%T", table)))
		}
	}

	log.Info("database cleared successfully")
}

func closeDB(DB *gorm.DB, log *logger.Logger) {
	sqlDB, err := DB.DB()
	if err != nil {
		return
	}
	sqlDB.Close()
	log.Info("database connection closed")
}
