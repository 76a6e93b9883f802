package integration

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	handler "github.com/miletrack/server/internal/adapters/handler/http"
	pgrepo "github.com/miletrack/server/internal/adapters/repository/postgres"
	"github.com/miletrack/server/internal/adapters/provider/strava"
	"github.com/miletrack/server/internal/core/domain"
	"github.com/miletrack/server/internal/core/services"
	"github.com/miletrack/server/internal/worker"
)

const testJWTSecret = "test-secret"

type testApp struct {
	Server   *httptest.Server
	DB       *sql.DB
	Client   *http.Client
	Provider *providerStub

	pool      *worker.Pool
	container testcontainers.Container
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	ctx := context.Background()

	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	require.NoError(t, applyMigrations(db))

	provider := newProviderStub()

	logger := zap.NewNop()
	userRepo := pgrepo.NewUserRepository(db)
	credRepo := pgrepo.NewCredentialRepository(db)
	profileRepo := pgrepo.NewProfileRepository(db)
	activityRepo := pgrepo.NewActivityRepository(db)

	providerClient := strava.NewClient(strava.Config{
		ClientID:     "test-client",
		ClientSecret: "test-client-secret",
		BaseURL:      provider.server.URL,
		TokenURL:     provider.server.URL + "/oauth/token",
	}, logger)

	pool := worker.NewPool(2, 16, 10*time.Second, logger)

	tokenService := services.NewTokenService(credRepo, profileRepo, providerClient, logger)
	syncService := services.NewSyncService(credRepo, activityRepo, tokenService, providerClient, pool, logger)
	activityService := services.NewActivityService(activityRepo, profileRepo)
	userService := services.NewUserService(userRepo)

	mux := handler.NewHandler(
		handler.NewUserHandler(userService),
		handler.NewActivityHandler(activityService, syncService),
		handler.NewOAuthHandler(tokenService, syncService, "/"),
		[]byte(testJWTSecret),
	)
	server := httptest.NewServer(mux)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{
		Server:    server,
		DB:        db,
		Client:    client,
		Provider:  provider,
		pool:      pool,
		container: container,
	}
}

func (a *testApp) Teardown(t *testing.T) {
	t.Helper()
	a.Server.Close()
	a.pool.Stop()
	a.Provider.server.Close()
	a.DB.Close()
	require.NoError(t, a.container.Terminate(context.Background()))
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		if !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		fullPath := filepath.Join(dirPath, entry.Name())
		content, err := os.ReadFile(fullPath)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		_, err = db.Exec(string(content))
		if err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func createUserAndToken(t *testing.T, db *sql.DB) string {
	t.Helper()

	suffix := uuid.New()
	user := &domain.User{
		Email: fmt.Sprintf("user-%s@example.com", suffix),
		Name:  fmt.Sprintf("User %s", suffix),
	}
	require.NoError(t, pgrepo.NewUserRepository(db).Create(context.Background(), user))

	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signedToken
}
