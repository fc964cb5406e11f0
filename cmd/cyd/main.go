package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cyd/config"
	"cyd/engine"
	"cyd/service"
)

const remoteTimeout = time.Minute

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load(config.NewFlagSet("cyd"), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.ApplyLogLevel(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Debug {
		if err := playOut(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("play-out-failed")
		}
		return
	}

	if cfg.Remote {
		if err := findRemote(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("remote-find-move-failed")
		}
		return
	}

	tt := engine.NewTransTableWithBook(cfg.BookPath)
	var mv string
	var score engine.Score
	if cfg.FEN != "" {
		mv, score = engine.FindMoveFEN(ctx, cfg.FEN, cfg.Depth, cfg.Threads, tt, cfg.SearchOptions())
	} else {
		mv, score = engine.FindMove(ctx, cfg.Moves, cfg.Depth, cfg.Threads, tt, cfg.SearchOptions())
	}
	fmt.Printf("%s, %d\n", mv, score)
}

// findRemote sends the position to a cydd daemon over NATS.
func findRemote(ctx context.Context, cfg *config.Config) error {
	nc, err := service.Connect(ctx, cfg.NatsURL)
	if err != nil {
		return err
	}
	defer nc.Close()

	c := service.NewClient(nc, cfg.Subject, remoteTimeout)
	resp, err := c.FindMove(ctx, service.Request{
		FEN:     cfg.FEN,
		Moves:   cfg.Moves,
		Depth:   cfg.Depth,
		Threads: cfg.Threads,
	})
	if err != nil {
		return err
	}
	log.Debug().Str("req-id", resp.ID).Msg("remote-reply")
	fmt.Printf("%s, %d\n", resp.Move, resp.Score)
	return nil
}

func playOut(ctx context.Context, cfg *config.Config) error {
	fen := cfg.FEN
	if fen == "" {
		pos, err := engine.ReplayMoves(cfg.Moves)
		if err != nil {
			return err
		}
		fen = pos.FEN()
	}

	out := termenv.NewOutput(os.Stdout)
	outcome, err := engine.PlayOut(ctx, fen, cfg.Depth, cfg.Threads, cfg.SearchOptions(), func(pm engine.PlayedMove) {
		side := "white"
		if !pm.White {
			side = "black"
		}
		fmt.Fprintf(out, "SCORE: %s, MOVE: %s, player: %s, time: %v\n%s\n",
			engine.ScoreString(pm.Score), pm.Move, side, pm.Elapsed, renderBoard(out, pm.Position))
	})
	if err != nil {
		return err
	}
	log.Info().Stringer("outcome", outcome).Msg("game-over")
	return nil
}
