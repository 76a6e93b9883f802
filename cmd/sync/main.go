package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/miletrack/server/internal/adapters/provider/strava"
	"github.com/miletrack/server/internal/adapters/repository/postgres"
	"github.com/miletrack/server/internal/core/services"
	"github.com/miletrack/server/internal/worker"
	"go.uber.org/zap"
)

// One-shot sync pass over every linked user. Meant to run from cron as a
// safety net for users who never open the dashboard.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	var dbHost, dbPort, dbUser, dbPass, dbName string

	flag.StringVar(&dbHost, "db-host", os.Getenv("POSTGRES_HOST"), "Database host")
	flag.StringVar(&dbPort, "db-port", os.Getenv("POSTGRES_PORT"), "Database port")
	flag.StringVar(&dbUser, "db-user", os.Getenv("POSTGRES_USER"), "Database user")
	flag.StringVar(&dbPass, "db-pass", os.Getenv("POSTGRES_PASSWORD"), "Database password")
	flag.StringVar(&dbName, "db-name", os.Getenv("POSTGRES_DB"), "Database name")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPass, dbHost, dbPort, dbName)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	// Initialize Repositories
	credRepo := postgres.NewCredentialRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	activityRepo := postgres.NewActivityRepository(db)

	provider := strava.NewClient(strava.Config{
		ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
	}, logger)

	pool := worker.NewPool(1, 1, time.Minute, logger)
	defer pool.Stop()

	// Initialize Services
	tokenService := services.NewTokenService(credRepo, profileRepo, provider, logger)
	syncService := services.NewSyncService(credRepo, activityRepo, tokenService, provider, pool, logger)

	// Use a timeout for the job execution to prevent it from hanging indefinitely
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Println("Starting activity sync job...")

	userIDs, err := credRepo.ListLinkedUserIDs(ctx)
	if err != nil {
		log.Fatalf("Error listing linked users: %v", err)
	}

	failures := 0
	for _, userID := range userIDs {
		if err := syncService.SyncNow(ctx, userID); err != nil {
			failures++
			log.Printf("Sync failed for user %s: %v", userID, err)
		}
	}
	if failures > 0 {
		log.Fatalf("Sync completed with %d failure(s) across %d user(s)", failures, len(userIDs))
	}

	log.Printf("Activity sync completed successfully for %d user(s).", len(userIDs))
}
