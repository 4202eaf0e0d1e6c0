package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"healthrisk/packages/auth"
	"healthrisk/packages/config"
	"healthrisk/packages/handlers"
	"healthrisk/packages/logger"
	"healthrisk/packages/models"
	"healthrisk/packages/mongodb"
	"healthrisk/packages/predict"
	"healthrisk/packages/users"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.IsDev)
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌ Ошибка инициализации логгера:", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		// Сбрасываем буфер логов до выхода
		log.Error("❌ Сервер остановлен с ошибкой", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.IsDev {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключение к MongoDB
	client, err := mongodb.Connect(ctx, cfg.MongoURI, log)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Error("❌ Ошибка отключения от MongoDB", zap.Error(err))
			return
		}
		log.Info("🔌 Отключено от MongoDB")
	}()

	userStore := users.NewMongoStore(mongodb.GetCollection(client, cfg.MongoDatabase, users.CollectionName))
	if err := userStore.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("индексы users: %w", err)
	}

	history := predict.NewMongoHistory(mongodb.GetCollection(client, cfg.MongoDatabase, predict.HistoryCollection))
	if err := history.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("индексы predictions: %w", err)
	}

	// Свои токены всегда, Keycloak - если настроен
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	verifiers := []auth.TokenVerifier{tokens}
	if cfg.OIDCEnabled() {
		verifiers = append(verifiers, auth.NewOIDCVerifier(cfg.KeycloakURL, cfg.KeycloakClientID, cfg.KeycloakDevMode, log))
		log.Info("🔑 Включена проверка токенов Keycloak", zap.String("issuer", cfg.KeycloakURL))
	}

	mlClient := predict.NewClient(cfg.MLServiceURL, cfg.MLTimeout, cfg.MLRetries, log)
	predictor := predict.NewCachedPredictor(mlClient, predict.NewResultCache(cfg.CacheSize))

	router := handlers.NewRouter(handlers.Deps{
		DB:           mongodb.ClientPinger{Client: client},
		Auth:         auth.NewHandler(userStore, tokens, log),
		Predict:      predict.NewHandler(predictor, history, cfg.BatchWorkers, log),
		RequireAuth:  auth.JWTAuth(log, cfg.IsDev, verifiers...),
		RequireAdmin: auth.RequireRole(log, models.RoleAdmin),
		LoginLimit:   auth.NewIPRateLimiter(cfg.LoginRatePerMin).Middleware(log),
		Origins:      cfg.FrontURLs,
		Log:          log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("🚀 Сервер запущен", zap.String("addr", cfg.Addr()), zap.String("ml", cfg.MLServiceURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("🛑 Получен сигнал остановки, завершаем работу")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка остановки сервера: %w", err)
	}
	return nil
}
