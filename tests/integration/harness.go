//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	"github.com/BradenHooton/warden/internal/worker"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

const (
	AllowedFailures = 50
	LockDuration    = 24 * time.Hour
	ResetLifetime   = time.Hour
)

// TestDB manages the PostgreSQL testcontainer.
type TestDB struct {
	Container testcontainers.Container
	DB        *database.DB
}

// SetupTestDatabase starts PostgreSQL and applies the embedded migrations.
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("warden"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	db := database.NewFromPool(pool, logger)

	if err := database.MigrateUp(ctx, db.Pool, logger); err != nil {
		db.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{Container: container, DB: db}, nil
}

// Teardown closes the pool and stops the container.
func (t *TestDB) Teardown(ctx context.Context) error {
	if t.DB != nil {
		t.DB.Close()
	}
	if t.Container != nil {
		return t.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates every table for test isolation.
func (t *TestDB) CleanupTables(ctx context.Context) error {
	_, err := t.DB.Pool.Exec(ctx, "TRUNCATE TABLE password_resets, failed_logins, credentials RESTART IDENTITY CASCADE")
	return err
}

// CapturingMailer records reset tickets instead of sending them.
type CapturingMailer struct {
	mu      sync.Mutex
	tickets []models.ResetTicket
}

func (m *CapturingMailer) SendPasswordReset(_ context.Context, ticket *models.ResetTicket, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets = append(m.tickets, *ticket)
	return nil
}

// Last returns the most recent ticket, or nil.
func (m *CapturingMailer) Last() *models.ResetTicket {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tickets) == 0 {
		return nil
	}
	t := m.tickets[len(m.tickets)-1]
	return &t
}

// Stack is the fully wired service graph over a real database.
type Stack struct {
	Credentials *services.CredentialService
	Resets      *services.PasswordResetService
	Lockout     *services.LoginHistoryService
	CredRepo    *repositories.CredentialRepository
	ResetRepo   *repositories.PasswordResetRepository
	HistoryRepo *repositories.LoginHistoryRepository
	Mailer      *CapturingMailer
	Metrics     *metrics.Metrics
	Server      *httptest.Server

	pool *worker.Pool
}

// NewStack wires repositories, services and the router the way serve does,
// with cheap hashing parameters.
func NewStack(db *database.DB) *Stack {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	audit := pkglogger.NewAuditLogger(logger)
	registry, m := metrics.NewRegistry()

	pool := worker.New(4, 16, worker.WithQueueObserver(m.HashQueue))
	hasher := auth.NewHasher(pool, "integration-hash-secret-0123456789", pkgauth.HashParams{
		Lanes: 1, TimeCost: 1, MemoryKiB: 64, KeyLength: 32,
	})
	tokens := auth.NewTokenManager("integration-jwt-secret-0123456789", time.Hour, "warden-test")

	credRepo := repositories.NewCredentialRepository(db.Pool)
	historyRepo := repositories.NewLoginHistoryRepository(db.Pool)
	resetRepo := repositories.NewPasswordResetRepository(db.Pool)

	lockout := services.NewLoginHistoryService(historyRepo, services.LockoutPolicy{
		AllowedFailedAttempts: AllowedFailures,
		LockDuration:          LockDuration,
	}, logger, audit, m)
	creds := services.NewCredentialService(credRepo, hasher, lockout, tokens, logger, audit, m)

	mailer := &CapturingMailer{}
	resets := services.NewPasswordResetService(resetRepo, credRepo, hasher, mailer, services.PasswordResetConfig{
		TimePeriod: ResetLifetime,
	}, logger, audit, m)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: "test"}))
	router.Use(middleware.SecureLogger(logger, pkghttp.NewIPConfig(nil)))
	router.Use(chimiddleware.Recoverer)
	routes.RegisterRoutes(
		router,
		handlers.NewCredentialHandler(creds, logger),
		handlers.NewResetHandler(resets, logger),
		handlers.Health(db),
		metrics.Handler(registry),
	)

	return &Stack{
		Credentials: creds,
		Resets:      resets,
		Lockout:     lockout,
		CredRepo:    credRepo,
		ResetRepo:   resetRepo,
		HistoryRepo: historyRepo,
		Mailer:      mailer,
		Metrics:     m,
		Server:      httptest.NewServer(router),
		pool:        pool,
	}
}

// Close stops the test server and the hashing pool.
func (s *Stack) Close() {
	s.Server.Close()
	s.pool.Close()
}

// Do sends a JSON request to the stack's server.
func (s *Stack) Do(method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, s.Server.URL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return s.Server.Client().Do(req)
}

// DecodeBody decodes a response body into a generic map and closes it.
func DecodeBody(resp *http.Response) (map[string]any, error) {
	defer resp.Body.Close()
	out := map[string]any{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil && err != io.EOF {
		return nil, err
	}
	return out, nil
}
