package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/miletrack/server/internal/adapters/handler/http"
	"github.com/miletrack/server/internal/adapters/provider/strava"
	"github.com/miletrack/server/internal/adapters/repository/postgres"
	"github.com/miletrack/server/internal/core/services"
	"github.com/miletrack/server/internal/worker"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	db, err := sql.Open("postgres", dbConnString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	credRepo := postgres.NewCredentialRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	activityRepo := postgres.NewActivityRepository(db)

	provider := strava.NewClient(strava.Config{
		ClientID:     os.Getenv("STRAVA_CLIENT_ID"),
		ClientSecret: os.Getenv("STRAVA_CLIENT_SECRET"),
	}, logger)

	// Background syncs run off the request path with a bounded timeout.
	pool := worker.NewPool(4, 64, 60*time.Second, logger)

	// Services
	tokenService := services.NewTokenService(credRepo, profileRepo, provider, logger)
	syncService := services.NewSyncService(credRepo, activityRepo, tokenService, provider, pool, logger)
	activityService := services.NewActivityService(activityRepo, profileRepo)
	userService := services.NewUserService(userRepo)

	redirectURL := os.Getenv("DASHBOARD_URL")
	if redirectURL == "" {
		redirectURL = "/"
	}

	handler := http.NewHandler(
		http.NewUserHandler(userService),
		http.NewActivityHandler(activityService, syncService),
		http.NewOAuthHandler(tokenService, syncService, redirectURL),
		[]byte(os.Getenv("JWT_SECRET")),
	)
	server := &stdhttp.Server{Addr: "0.0.0.0:8080", Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	fmt.Println("Gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}

	// Let in-flight syncs finish before the process exits.
	pool.Stop()
}

func dbConnString() string {
	dbName, user, password, host, port := dbConfig()
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, dbName)
}

func dbConfig() (dbName string, user string, password string, host string, port string) {
	dbName = os.Getenv("POSTGRES_DB")
	user = os.Getenv("POSTGRES_USER")
	password = os.Getenv("POSTGRES_PASSWORD")
	host = os.Getenv("POSTGRES_HOST")
	port = os.Getenv("POSTGRES_PORT")
	return
}
