package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/goliatone/go-rentadmin/internal/app"
	"github.com/goliatone/go-rentadmin/internal/config"
	"github.com/goliatone/go-rentadmin/internal/logging"
	"github.com/goliatone/go-rentadmin/pkg/prompt"
)

func main() {
	configFile := flag.String("config", "", "config file (rentadmin.yaml is searched when empty)")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), app.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	os.Exit(run(*configFile, flag.Args()))
}

func run(configFile string, args []string) int {
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Printf("Failed to build logger: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Printf("Failed to start: %v", err)
		return 1
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("Failed to close: %v", err)
		}
	}()

	switch err := a.Run(ctx, args); {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrUsage):
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		return 2
	case errors.Is(err, prompt.ErrAborted), errors.Is(err, context.Canceled):
		return 130
	default:
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
}
