package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/autoservice/internal/buildinfo"
	"github.com/dmitrijs2005/autoservice/internal/client/cli"
	"github.com/dmitrijs2005/autoservice/internal/client/config"
	"github.com/dmitrijs2005/autoservice/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	// a missing .env is fine, real environment variables still apply
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	app, err := cli.NewApp(ctx, cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}
