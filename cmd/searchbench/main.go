package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cyd/engine"
)

func main() {
	// --- Flags ---
	depthFlag := flag.Int("depth", 4, "search depth in plies")
	repeatFlag := flag.Int("repeat", 1, "number of searches to run")
	threadsFlag := flag.Int("threads", 1, "lazy SMP workers per search")
	fenFlag := flag.String("fen", "", "FEN to search (empty = startpos)")
	negamaxFlag := flag.Bool("negamax", false, "also time the unpruned reference search (keep depth small)")
	cpuProfile := flag.String("cpuprofile", "", "write CPU profile to file")
	memProfile := flag.String("memprofile", "", "write memory profile (heap) to file")
	verbose := flag.Bool("v", false, "log every iteration")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *depthFlag <= 0 {
		log.Fatal().Int("depth", *depthFlag).Msg("depth must be positive")
	}

	// --- Optional CPU profiling setup ---
	if *cpuProfile != "" {
		cpuFile, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create CPU profile")
		}
		if err := pprof.StartCPUProfile(cpuFile); err != nil {
			log.Fatal().Err(err).Msg("could not start CPU profile")
		}
		defer func() {
			pprof.StopCPUProfile()
			cpuFile.Close()
		}()
	}

	fen := engine.Startpos
	if *fenFlag != "" {
		fen = *fenFlag
	}
	pos, err := engine.NewPosition(fen)
	if err != nil {
		log.Fatal().Err(err).Msg("bad fen")
	}

	depth := *depthFlag
	repeat := *repeatFlag
	opts := engine.DefaultSearchOptions()

	fmt.Printf("searchbench: fen=%q depth=%d repeat=%d threads=%d\n", fen, depth, repeat, *threadsFlag)

	startAll := time.Now()
	for i := 0; i < repeat; i++ {
		// Fresh table for each run
		tt := engine.NewTransTable()

		iterStart := time.Now()
		res, err := engine.SearchParallel(context.Background(), pos, depth, *threadsFlag, tt, opts)
		if err != nil {
			log.Fatal().Err(err).Msg("search failed")
		}
		iterElapsed := time.Since(iterStart)

		fmt.Printf("iteration %d: bestmove %v score %s entries=%d time=%v\n",
			i+1, engine.MoveString(res.Move), engine.ScoreString(res.Score), tt.Len(), iterElapsed)
	}
	fmt.Printf("total time: %v\n", time.Since(startAll))

	if *negamaxFlag {
		start := time.Now()
		score := engine.NegaMax(pos, depth, opts.Params)
		fmt.Printf("negamax: score %s time=%v\n", engine.ScoreString(score), time.Since(start))
	}

	// --- Optional heap profile at the end ---
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			log.Fatal().Err(err).Msg("could not create memory profile")
		}
		defer f.Close()

		runtime.GC() // get up-to-date heap info
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal().Err(err).Msg("could not write memory profile")
		}
	}
}
