package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func searchAt(t testing.TB, fen string, depth int, opts SearchOptions) SearchResult {
	t.Helper()
	s := newSearcher(NewTransTable(), opts)
	return s.alphaBeta(mustPosition(t, fen), depth, -Infinity, Infinity, 0, true)
}

func TestQueenCapture(t *testing.T) {
	fen := "2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1"
	for depth := 1; depth <= 2; depth++ {
		res := searchAt(t, fen, depth, DefaultSearchOptions())
		assert.Equal(t, "c4e6", res.Move.String(), "depth %d", depth)
		assert.Greater(t, res.Score, Score(0))
	}
}

func TestMateInOne(t *testing.T) {
	fen := "k7/5R2/6R1/8/8/8/4K3/8 w - - 0 1"
	for depth := 1; depth <= 3; depth++ {
		res := searchAt(t, fen, depth, DefaultSearchOptions())
		require.Equal(t, "g6g8", res.Move.String(), "depth %d", depth)
		assert.Equal(t, MateValue-1, res.Score)

		pos := mustPosition(t, fen)
		pos.Apply(res.Move)
		assert.True(t, pos.IsCheckmate())
	}
}

func TestPlaysIntoMate(t *testing.T) {
	pos := mustPosition(t, "k7/4R3/8/8/8/4R3/8/3K4 w - - 0 1")
	for ply := 0; ply < 3 && !pos.IsCheckmate(); ply++ {
		res, err := Search(context.Background(), pos, 3, NewTransTable(), DefaultSearchOptions())
		require.NoError(t, err)
		require.NotZero(t, res.Move)
		pos.Apply(res.Move)
	}
	assert.True(t, pos.IsCheckmate(), pos.String())
}

var referenceFENs = []string{
	Startpos,
	"2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1",
	"k7/5R2/6R1/8/8/8/4K3/8 w - - 0 1",
	"2k4r/6pp/8/2p1n3/8/3N4/4PPPP/2K4R w - - 0 1",
	"2k5/4b1n1/5P2/8/1Q3P2/4n3/2P3n1/1K6 b - - 0 1",
	"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
}

// With quiescence off, the pruned search must agree with full-width negamax.
func TestAlphaBetaMatchesNegaMax(t *testing.T) {
	opts := DefaultSearchOptions()
	opts.QuiescenceDepth = 0
	for _, fen := range referenceFENs {
		for depth := 1; depth <= 3; depth++ {
			if depth == 3 && fen == referenceFENs[len(referenceFENs)-1] {
				continue // too wide for an unpruned search
			}
			t.Run(fmt.Sprintf("%s/%d", fen, depth), func(t *testing.T) {
				want := NegaMax(mustPosition(t, fen), depth, opts.Params)
				got := searchAt(t, fen, depth, opts)
				assert.Equal(t, want, got.Score)
			})
		}
	}
}

// The move returned must be one of the moves negamax rates best.
func TestBestMoveIsNegaMaxOptimal(t *testing.T) {
	opts := DefaultSearchOptions()
	opts.QuiescenceDepth = 0
	for _, fen := range referenceFENs[:5] {
		const depth = 2
		res := searchAt(t, fen, depth, opts)

		pos := mustPosition(t, fen)
		best := -Infinity
		scores := map[string]Score{}
		for _, m := range pos.LegalMoves() {
			undo := pos.Apply(m)
			score := -negaMax(pos, depth-1, 1, opts.Params)
			undo()
			scores[m.String()] = score
			best = Max(best, score)
		}
		assert.Equal(t, best, scores[res.Move.String()], fen)
	}
}

func TestSearchWarmTableKeepsBestMove(t *testing.T) {
	fen := "2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1"
	pos := mustPosition(t, fen)
	tt := NewTransTable()

	cold, err := Search(context.Background(), pos, 2, tt, DefaultSearchOptions())
	require.NoError(t, err)
	warm, err := Search(context.Background(), pos, 2, tt, DefaultSearchOptions())
	require.NoError(t, err)
	assert.Equal(t, cold.Move, warm.Move)
	assert.Positive(t, tt.Len())
}

// Iterative deepening reuses the table across passes and across calls; the
// move it settles on must still be negamax-optimal for the last pass.
func TestSearchWarmTableIsNegaMaxOptimal(t *testing.T) {
	opts := DefaultSearchOptions()
	opts.QuiescenceDepth = 0
	for _, fen := range referenceFENs[:5] {
		for depth := 1; depth <= 2; depth++ {
			t.Run(fmt.Sprintf("%s/%d", fen, depth), func(t *testing.T) {
				pos := mustPosition(t, fen)
				tt := NewTransTable()
				_, err := Search(context.Background(), pos, depth, tt, opts)
				require.NoError(t, err)
				res, err := Search(context.Background(), pos, depth, tt, opts)
				require.NoError(t, err)

				// the last pass runs one ply deeper than asked
				last := depth + 1
				best := -Infinity
				scores := map[string]Score{}
				for _, m := range pos.LegalMoves() {
					undo := pos.Apply(m)
					score := -negaMax(pos, last-1, 1, opts.Params)
					undo()
					scores[m.String()] = score
					best = Max(best, score)
				}
				assert.Equal(t, best, scores[res.Move.String()])
				assert.Equal(t, best, res.Score)
			})
		}
	}
}

func TestStalemateLeafIsDraw(t *testing.T) {
	const fen = "k7/2Q5/1K6/8/8/8/8/8 b - - 0 1"
	for _, opts := range []SearchOptions{DefaultSearchOptions(), {Params: DefaultEvalParameters}} {
		s := newSearcher(NewTransTable(), opts)
		res := s.alphaBeta(mustPosition(t, fen), 2, -Infinity, Infinity, 1, true)
		assert.Equal(t, DrawScore, res.Score)
		assert.Zero(t, res.Move)
	}
	assert.Equal(t, DrawScore, NegaMax(mustPosition(t, fen), 2, DefaultEvalParameters))
}

func TestSearchLeavesPositionUntouched(t *testing.T) {
	pos := mustPosition(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	fen, hash := pos.FEN(), pos.Hash()

	s := newSearcher(NewTransTable(), DefaultSearchOptions())
	s.alphaBeta(pos, 3, -Infinity, Infinity, 0, true)
	assert.Equal(t, fen, pos.FEN())
	assert.Equal(t, hash, pos.Hash())
}

func TestSearchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Search(ctx, StartPosition(), 2, nil, DefaultSearchOptions())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchStopsOnTimer(t *testing.T) {
	opts := DefaultSearchOptions()
	opts.Timer = NewTimer(1) // a nanosecond: only the first pass runs
	res, err := Search(context.Background(), StartPosition(), 6, NewTransTable(), opts)
	require.NoError(t, err)
	assert.NotZero(t, res.Move)
}

func TestQuiescenceMonotonicInBeta(t *testing.T) {
	fens := []string{
		Startpos,
		"2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1",
		"2k4r/6pp/8/2p1n3/8/3N4/4PPPP/2K4R w - - 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
	}
	betas := []Score{-500, -100, 0, 50, 300, 1000, Infinity}
	for _, fen := range fens {
		s := newSearcher(NewTransTable(), DefaultSearchOptions())
		pos := mustPosition(t, fen)
		prev := -Infinity
		for _, beta := range betas {
			got := s.quiescence(pos, 1, -Infinity, beta, 0)
			assert.GreaterOrEqual(t, got, prev, "%s beta=%d", fen, beta)
			prev = got
		}
	}
}

func TestQuiescenceDepthZeroIsStandPat(t *testing.T) {
	pos := mustPosition(t, "2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1")
	s := newSearcher(nil, DefaultSearchOptions())
	assert.Equal(t, Evaluate(pos, DefaultEvalParameters), s.quiescence(pos, 0, -Infinity, Infinity, 0))
}

func TestQuiescenceSeesHangingQueen(t *testing.T) {
	pos := mustPosition(t, "2k5/8/4q3/8/2B5/8/8/1K6 w - - 0 1")
	s := newSearcher(nil, DefaultSearchOptions())
	standPat := Evaluate(pos, DefaultEvalParameters)
	assert.Greater(t, s.quiescence(pos, 2, -Infinity, Infinity, 0), standPat)
}

func TestNullMoveRestoresPosition(t *testing.T) {
	pos := mustPosition(t, "rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2")
	fen, hash := pos.FEN(), pos.Hash()

	undo := pos.ApplyNull()
	assert.False(t, pos.WhiteToMove())
	assert.NotEqual(t, hash, pos.Hash())
	assert.NotContains(t, pos.FEN(), "d6")
	undo()

	assert.Equal(t, fen, pos.FEN())
	assert.Equal(t, hash, pos.Hash())
}

func TestNullMoveDoesNotChangeTacticalResult(t *testing.T) {
	fen := "2k4r/6pp/8/2p1n3/8/3N4/4PPPP/2K4R w - - 0 1"
	with := DefaultSearchOptions()
	without := DefaultSearchOptions()
	without.NullMove.Enabled = false

	a := searchAt(t, fen, 4, with)
	b := searchAt(t, fen, 4, without)
	assert.Equal(t, b.Move, a.Move)
}

func TestScoreString(t *testing.T) {
	assert.Equal(t, "cp 35", ScoreString(35))
	assert.Equal(t, "cp -120", ScoreString(-120))
	assert.Equal(t, "mate 1", ScoreString(MateValue-1))
	assert.Equal(t, "mate 2", ScoreString(MateValue-3))
	assert.Equal(t, "mate -1", ScoreString(-(MateValue - 2)))
}

func BenchmarkSearchStartDepth3(b *testing.B) {
	pos := StartPosition()
	opts := DefaultSearchOptions()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(context.Background(), pos, 3, NewTransTable(), opts); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkSearchKiwipeteDepth3(b *testing.B) {
	pos := mustPosition(b, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	opts := DefaultSearchOptions()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Search(context.Background(), pos, 3, NewTransTable(), opts); err != nil {
			b.Fatal(err)
		}
	}
}
