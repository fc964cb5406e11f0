package engine

import (
	"context"
	"strings"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// fiftyMovePlies is the half-move count at which a played-out game is drawn.
const fiftyMovePlies = 100

// SplitMoves splits a move history on spaces or commas, dropping empty parts.
func SplitMoves(moves string) []string {
	parts := strings.FieldsFunc(moves, func(r rune) bool {
		return r == ' ' || r == ','
	})
	return lo.Map(parts, func(s string, _ int) string {
		return strings.ToLower(s)
	})
}

// ReplayMoves plays moves from the start position. Replay stops at the first
// move that is not legal; the position reached so far is returned along with
// the error.
func ReplayMoves(moves string) (*Position, error) {
	pos := StartPosition()
	for _, uci := range SplitMoves(moves) {
		if err := pos.ApplyUCI(uci); err != nil {
			return pos, err
		}
	}
	return pos, nil
}

// FindMove searches the position reached by playing moves from the start
// position. An illegal move ends the replay; the search then runs from the
// last legal position.
func FindMove(ctx context.Context, moves string, depth, workers int, tt *TransTable, opts SearchOptions) (string, Score) {
	pos, err := ReplayMoves(moves)
	if err != nil {
		log.Warn().Err(err).Msg("move-replay-aborted")
	}
	return findMove(ctx, pos, depth, workers, tt, opts)
}

// FindMoveFEN searches the position given by fen. An invalid fen yields an
// empty move and a zero score.
func FindMoveFEN(ctx context.Context, fen string, depth, workers int, tt *TransTable, opts SearchOptions) (string, Score) {
	pos, err := NewPosition(fen)
	if err != nil {
		log.Debug().Err(err).Str("fen", fen).Msg("invalid-fen")
		return "", 0
	}
	return findMove(ctx, pos, depth, workers, tt, opts)
}

func findMove(ctx context.Context, pos *Position, depth, workers int, tt *TransTable, opts SearchOptions) (string, Score) {
	res, err := SearchParallel(ctx, pos, depth, workers, tt, opts)
	if err != nil {
		log.Warn().Err(err).Msg("search-failed")
		return "", 0
	}
	return MoveString(res.Move), res.Score
}

// MoveString is m in long algebraic notation, or "" for the zero move.
func MoveString(m dragontoothmg.Move) string {
	if m == 0 {
		return ""
	}
	return m.String()
}

// PlayedMove describes one move of a played-out game.
type PlayedMove struct {
	Ply      int
	Move     string
	Score    Score
	White    bool // side that made the move
	Elapsed  time.Duration
	Position *Position // position after the move
}

// GameOutcome says why PlayOut stopped.
type GameOutcome int

const (
	OutcomeCheckmate GameOutcome = iota
	OutcomeStalemate
	OutcomeFiftyMoves
	OutcomeNoMove
)

func (o GameOutcome) String() string {
	switch o {
	case OutcomeCheckmate:
		return "checkmate"
	case OutcomeStalemate:
		return "stalemate"
	case OutcomeFiftyMoves:
		return "fifty-moves"
	case OutcomeNoMove:
		return "no-move"
	}
	return "unknown"
}

/*
PlayOut lets the engine play both sides from fen until checkmate, stalemate or
fifty moves without a capture or pawn move. Each move gets a fresh table and
its own time budget.
onMove, when set, is called after every move.
*/
func PlayOut(ctx context.Context, fen string, depth, workers int, opts SearchOptions, onMove func(PlayedMove)) (GameOutcome, error) {
	pos, err := NewPosition(fen)
	if err != nil {
		return OutcomeNoMove, err
	}

	quiet := pos.HalfmoveClock()
	for ply := 0; ; ply++ {
		switch {
		case pos.IsCheckmate():
			return OutcomeCheckmate, nil
		case pos.IsStalemate():
			return OutcomeStalemate, nil
		case quiet >= fiftyMovePlies:
			return OutcomeFiftyMoves, nil
		}

		start := time.Now()
		moveOpts := opts
		moveOpts.Timer = opts.Timer.Restarted()
		res, err := SearchParallel(ctx, pos, depth, workers, NewTransTable(), moveOpts)
		if err != nil {
			return OutcomeNoMove, err
		}
		if res.Move == 0 {
			return OutcomeNoMove, nil
		}

		white := pos.WhiteToMove()
		if resetsFiftyMoveClock(pos, res.Move) {
			quiet = 0
		} else {
			quiet++
		}
		pos.Apply(res.Move)

		if onMove != nil {
			onMove(PlayedMove{
				Ply:      ply,
				Move:     res.Move.String(),
				Score:    res.Score,
				White:    white,
				Elapsed:  time.Since(start),
				Position: pos.Clone(),
			})
		}
	}
}

func resetsFiftyMoveClock(pos *Position, m dragontoothmg.Move) bool {
	if pos.IsCapture(m) {
		return true
	}
	piece, _ := GetPieceTypeAtPosition(m.From(), pos.ownBitboards())
	return piece == dragontoothmg.Pawn
}
