package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"cyd/config"
	"cyd/service"
)

func main() {
	cfg, err := config.Load(config.NewFlagSet("cydd"), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Info().Interface("config", cfg).Msg("loaded-config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc, err := service.Connect(ctx, cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.NatsURL).Msg("nats-connect-failed")
	}
	defer nc.Close()

	if err := service.New(cfg).Serve(ctx, nc); err != nil {
		log.Fatal().Err(err).Msg("serve-failed")
	}
	log.Info().Msg("server gracefully shutting down")
}
