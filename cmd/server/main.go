package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/mockpay/internal/logging"
	"github.com/dmitrijs2005/mockpay/internal/server"
	"github.com/dmitrijs2005/mockpay/internal/server/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	ctx := context.Background()
	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
