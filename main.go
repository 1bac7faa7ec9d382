package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"medstat/adapters/statsapi"
	"medstat/internal"
	"medstat/internal/charts"
	"medstat/internal/config"
	"medstat/internal/session"
	"medstat/ui"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := internal.NewLogger(internal.ParseLogLevel(appConfig.LogLevel))
	internal.DefaultLogger = logger
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state := session.NewAppState(appConfig.Session.TTL, appConfig.StatsAPI.RequestTimeout, logger)
	go state.RunSweeper(ctx, appConfig.Session.SweepInterval)

	// Runs are bounded by the tab task; the client timeout only backs it up.
	client := statsapi.NewClient(appConfig.StatsAPI.BaseURL, appConfig.StatsAPI.RequestTimeout, logger)

	server, err := ui.NewServer(ui.Deps{
		Config: appConfig,
		State:  state,
		API:    client,
		Charts: charts.NewRenderer(charts.Options{
			Width:  appConfig.Charts.Width,
			Height: appConfig.Charts.Height,
		}, logger),
		Logger: logger,
	})
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	logger.Info("starting MedStat on port %s, stats API at %s", appConfig.Server.Port, client.BaseURL())
	if err := server.Run(ctx); err != nil {
		logger.Error("server stopped: %v", err)
		log.Fatal(err)
	}
	logger.Info("shutdown complete")
}
