package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mstgnz/cardsave/checkout"
	"github.com/mstgnz/cardsave/handler"
	"github.com/mstgnz/cardsave/infra/config"
	"github.com/mstgnz/cardsave/infra/conn"
	"github.com/mstgnz/cardsave/infra/logger"
	"github.com/mstgnz/cardsave/infra/opensearch"
	"github.com/mstgnz/cardsave/provider"
	"github.com/mstgnz/cardsave/router"

	_ "github.com/mstgnz/cardsave/provider/cardsave"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.GetAppConfig()
	app := config.App()

	// OpenSearch is optional; the service runs with console logging alone
	var openSearchLogger *opensearch.Logger
	if cfg.EnableLogging {
		osClient, err := opensearch.NewClient(cfg)
		if err != nil {
			log.Printf("Failed to initialize OpenSearch client: %v", err)
			log.Println("Continuing without OpenSearch logging...")
		} else {
			openSearchLogger = opensearch.NewLogger(osClient)
		}
	}
	logger.InitGlobalLogger(openSearchLogger)

	db := &conn.DB{}
	if err := db.ConnectDatabase(cfg.DatabasePath); err != nil {
		logger.Fatal("failed to connect database", err)
	}
	defer db.CloseDatabase()

	settingsStorage, err := config.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open settings storage", err)
	}
	defer settingsStorage.Close()
	settings := config.NewSettingsStore(settingsStorage)

	orderStore, err := checkout.NewSQLiteOrderStore(db.DB)
	if err != nil {
		logger.Fatal("failed to prepare order store", err)
	}

	gateway, err := provider.CreateProvider("cardsave")
	if err != nil {
		logger.Fatal("cardsave provider not registered", err)
	}
	gatewayConfig := settings.GatewayConfig()
	if gatewayConfig["merchantId"] == "" || gatewayConfig["password"] == "" {
		logger.Warn("gateway credentials are not configured; payments will fail until set via /v1/config")
	} else if err := gateway.Initialize(gatewayConfig); err != nil {
		logger.Fatal("failed to initialize cardsave provider", err)
	}

	// A nil *opensearch.Logger must not reach the service as a non-nil interface
	var recorder checkout.GatewayErrorRecorder
	if openSearchLogger != nil {
		recorder = openSearchLogger
	}

	service := checkout.NewService(
		"cardsave",
		gateway,
		orderStore,
		recorder,
		config.GetEnv("CHECKOUT_SUCCESS_URL", "/checkout/success"),
		config.GetEnv("CHECKOUT_URL", "/checkout"),
	)

	mux := router.New(router.Handlers{
		Payment: handler.NewPaymentHandler(service, app.Validator),
		Config:  handler.NewConfigHandler(settings, app.Validator),
		Health:  handler.NewHealthHandler(db.DB, settings),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.LogContext{
			Fields: map[string]any{"port": cfg.Port},
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", err)
	}
}
