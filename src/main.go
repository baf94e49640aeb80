package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-tracker-server/src/api"
	"expense-tracker-server/src/auth"
	"expense-tracker-server/src/config"
	"expense-tracker-server/src/db"
	"expense-tracker-server/src/db/dynamo"
	sqldb "expense-tracker-server/src/db/sql"
	"expense-tracker-server/src/handlers"
)

type schemaStore interface {
	handlers.ExpenseStore
	EnsureSchema(ctx context.Context) error
}

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("DB connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("DB migration failed: %v", err)
	}

	users := sqldb.NewUserRepository(pool)
	versions, err := db.NewTokenVersionCache(users.GetTokenVersion, cfg.TokenCacheTTL)
	if err != nil {
		log.Fatalf("Token cache init failed: %v", err)
	}
	defer versions.Close()

	var expenses schemaStore
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.ClientOptions{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretKey,
		})
		if err != nil {
			log.Fatalf("DynamoDB client init failed: %v", err)
		}
		expenses = dynamo.NewExpenseStore(client, cfg.ExpensesTable, cfg.UserIDIndex)
	default:
		expenses = sqldb.NewExpenseRepository(pool, cfg.ExpensesTable)
	}

	if cfg.EnsureSchema {
		if err := expenses.EnsureSchema(ctx); err != nil {
			log.Fatalf("Expense table setup failed: %v", err)
		}
	}
	log.Printf("INFO: Storing expenses in %s table %s", cfg.StoreBackend, cfg.ExpensesTable)
	if cfg.ReadOnly {
		log.Println("INFO: Read-only mode enabled")
	}

	tokens := auth.NewManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	// Router
	router := api.NewRouter(expenses, users, versions, tokens, api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		ReadOnly:       cfg.ReadOnly,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("ERROR: Graceful shutdown failed: %v", err)
		}
	}()

	log.Println("API server running on port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
