package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-session-auth/internal/application/account"
	"github.com/go-session-auth/internal/application/ledger"
	"github.com/go-session-auth/internal/application/session"
	"github.com/go-session-auth/internal/config"
	"github.com/go-session-auth/internal/domain"
	"github.com/go-session-auth/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-session-auth/internal/infrastructure/jwt"
	redisinfra "github.com/go-session-auth/internal/infrastructure/redis"
	"github.com/go-session-auth/internal/infrastructure/sns"
	"github.com/go-session-auth/internal/pkg/password"
	"github.com/go-session-auth/internal/pkg/validate"
	transporthttp "github.com/go-session-auth/internal/transport/http"
	"github.com/go-session-auth/internal/transport/http/handler"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()
	ctx := context.Background()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}
	dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)

	rdb := redisinfra.NewClient(cfg)
	defer rdb.Close()

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		log.Fatalf("jwt provider: %v", err)
	}

	accountStores := make(map[domain.AccountType]account.AccountStore, len(domain.AccountTypes))
	for _, t := range domain.AccountTypes {
		accountStores[t] = dynamo.NewAccountRepo(dynamoClient, cfg.DynamoTables.Accounts[t])
	}
	registry, err := account.NewRegistry(account.RegistryDeps{
		Accounts:    accountStores,
		Credentials: dynamo.NewCredentialRepo(dynamoClient, cfg.DynamoTables.Credentials),
	})
	if err != nil {
		log.Fatalf("account registry: %v", err)
	}

	ledgerSvc := ledger.NewService(ledger.ServiceDeps{
		TokenRepo:      dynamo.NewAccessTokenRepo(dynamoClient, cfg.DynamoTables.AccessTokens),
		Accounts:       registry,
		Codec:          jwtProvider,
		AccessTokenTTL: cfg.AccessTokenTTL,
		StoreTimeout:   cfg.StoreTimeout,
		MintAttempts:   cfg.SessionCreateAttempts,
	})

	sessionDeps := session.ServiceDeps{
		Cache:          redisinfra.NewSessionCache(rdb, cfg.RedisKeyPrefix),
		Codec:          jwtProvider,
		Validator:      validate.Validator{},
		Hasher:         password.NewBcrypt(),
		Accounts:       registry,
		Ledger:         ledgerSvc,
		SigninTTL:      cfg.SigninSessionTTL,
		SignupTTL:      cfg.SignupSessionTTL,
		CreateAttempts: cfg.SessionCreateAttempts,
		StoreTimeout:   cfg.StoreTimeout,
	}
	// Partial-signup alerts are optional.
	if alerter, err := sns.NewAlerter(cfg); err == nil {
		sessionDeps.Alerter = alerter
	} else {
		log.Printf("WARN: ops alerts disabled: %v", err)
	}

	router, stop := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Sessions: session.NewService(sessionDeps),
		Ledger:   ledgerSvc,
		HealthChecks: map[string]handler.Check{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"dynamodb": func(ctx context.Context) error {
				return dynamo.Ping(ctx, dynamoClient, cfg.DynamoTables.AccessTokens)
			},
		},
	})
	defer stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
