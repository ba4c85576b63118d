package main

import (
	"context"
	"flag"
	"os"

	"github.com/gothenburg-taxi/dispatch-service/config"
	"github.com/gothenburg-taxi/dispatch-service/internal/app"
	"github.com/gothenburg-taxi/dispatch-service/pkg/logger"

	_ "github.com/gothenburg-taxi/dispatch-service/docs"
)

var (
	helpFlag   = flag.Bool("help", false, "Show help message")
	configPath = flag.String("config-path", "config.yaml", "Path to the config yaml file")
)

func main() {
	flag.Parse()
	if *helpFlag {
		config.PrintHelp()
		return
	}

	ctx := context.Background()
	log := logger.InitLogger(app.ServiceName, logger.LevelDebug)

	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		log.Error(ctx, "failed to configure application", err)
		config.PrintHelp()
		return
	}

	if logger.ValidateLogLevel(cfg.Log.Level) {
		log = logger.InitLogger(app.ServiceName, cfg.Log.Level)
	}

	application, err := app.NewApplication(ctx, *cfg, log)
	if err != nil {
		log.Error(ctx, "failed to init application", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error(ctx, "failed to run application", err)
		os.Exit(1)
	}
}
