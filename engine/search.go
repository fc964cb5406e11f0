package engine

import (
	"context"
	"time"

	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog/log"
)

// =============================================================================
// SEARCH CONSTANTS
// =============================================================================

// DeltaMargin is how far below alpha stand-pat may sit before quiescence gives
// up on the node without looking at captures.
const DeltaMargin Score = 200

const DefaultQuiescenceDepth = 4

// NullMoveConfig controls null-move pruning. A pass is tried only while
// Reduction+1 < depth < MaxDepth.
type NullMoveConfig struct {
	Enabled   bool `mapstructure:"enabled" json:"enabled"`
	Reduction int  `mapstructure:"reduction" json:"reduction"`
	MaxDepth  int  `mapstructure:"max_depth" json:"max_depth"`
}

// SearchOptions is everything a search needs besides the position and the
// table. It is copied into every worker and never mutated during a search.
type SearchOptions struct {
	Params          EvalParameters `mapstructure:"eval" json:"eval"`
	NullMove        NullMoveConfig `mapstructure:"null_move" json:"null_move"`
	QuiescenceDepth int            `mapstructure:"quiescence_depth" json:"quiescence_depth"`
	Timer           *Timer         `mapstructure:"-" json:"-"`
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Params: DefaultEvalParameters,
		NullMove: NullMoveConfig{
			Enabled:   true,
			Reduction: 2,
			MaxDepth:  10,
		},
		QuiescenceDepth: DefaultQuiescenceDepth,
	}
}

type SearchResult struct {
	Move  dragontoothmg.Move
	Score Score
}

// searcher is one worker's view of a search: the shared table plus its own
// options and counters.
type searcher struct {
	tt    *TransTable
	opts  SearchOptions
	stats CutStatistics
	nodes uint64
}

func newSearcher(tt *TransTable, opts SearchOptions) *searcher {
	if tt == nil {
		tt = NewTransTable()
	}
	return &searcher{tt: tt, opts: opts}
}

/*
Search runs iterative deepening on a private copy of pos, for depths 1 through
depth+1, and returns the result of the last completed pass. Shallow passes only
serve to warm tt for the deeper ones.

The context and the options' timer are polled between passes; the first pass
always completes. An error is returned only when ctx is already done on entry.
*/
func Search(ctx context.Context, pos *Position, depth int, tt *TransTable, opts SearchOptions) (SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return SearchResult{}, err
	}
	s := newSearcher(tt, opts)
	root := pos.Clone()

	var result SearchResult
	start := time.Now()
	for d := 1; d <= depth+1; d++ {
		if d > 1 {
			if ctx.Err() != nil || opts.Timer.Elapsed() {
				log.Debug().Int("depth", d-1).Msg("search-stopped-early")
				break
			}
		}
		result = s.alphaBeta(root, d, -Infinity, Infinity, 0, true)

		log.Debug().
			Int("depth", d).
			Str("score", ScoreString(result.Score)).
			Str("move", result.Move.String()).
			Uint64("nodes", s.nodes).
			Dur("elapsed", time.Since(start)).
			Msg("search-iteration")
	}
	s.stats.log(s.nodes)
	return result, nil
}

func (s *searcher) alphaBeta(pos *Position, depth int, alpha, beta Score, ply int, allowNull bool) SearchResult {
	s.nodes++
	key := pos.Hash()
	origAlpha := alpha

	// =====================================================================
	// TRANSPOSITION TABLE PROBE
	// =====================================================================
	var cached dragontoothmg.Move
	if entry, ok := s.tt.Get(key); ok {
		cached = entry.Move
		if int(entry.Depth) >= depth {
			switch entry.Flag {
			case ExactFlag:
				s.stats.TTCutoffs++
				return SearchResult{Move: entry.Move, Score: entry.Value}
			case LowerBoundFlag:
				alpha = Max(alpha, entry.Value)
			case UpperBoundFlag:
				beta = Min(beta, entry.Value)
			}
			if alpha >= beta {
				s.stats.TTCutoffs++
				return SearchResult{Move: entry.Move, Score: entry.Value}
			}
			origAlpha = alpha
		}
	}

	moves := pos.LegalMoves()
	if len(moves) == 0 && !pos.InCheck() {
		return SearchResult{Score: DrawScore}
	}
	if depth == 0 || len(moves) == 0 {
		return SearchResult{Score: s.quiescence(pos, s.opts.QuiescenceDepth, alpha, beta, ply)}
	}

	// =====================================================================
	// NULL MOVE PRUNING
	// =====================================================================
	nm := s.opts.NullMove
	if allowNull && nm.Enabled && ply > 0 &&
		depth > nm.Reduction+1 && depth < nm.MaxDepth &&
		!pos.InCheck() && pos.HasNonPawnMaterial() {
		if s.nullMoveFailsHigh(pos, depth, beta, ply) {
			s.stats.NullMoveCutoffs++
			return SearchResult{Score: beta}
		}
	}

	// =====================================================================
	// MOVE LOOP
	// =====================================================================
	list := scoreMovesList(pos, moves, cached)
	var best dragontoothmg.Move
	for i := range list.moves {
		orderNextMove(i, &list)
		m := list.moves[i].move

		score := -s.child(pos, m, depth-1, -beta, -alpha, ply+1)
		if score >= beta {
			s.stats.BetaCutoffs++
			s.tt.Insert(key, TTEntry{Move: m, Depth: int8(depth), Flag: LowerBoundFlag, Value: beta})
			return SearchResult{Move: m, Score: beta}
		}
		if score > alpha {
			alpha = score
			best = m
		}
	}

	flag := ExactFlag
	if alpha <= origAlpha {
		flag = UpperBoundFlag
	}
	s.tt.Insert(key, TTEntry{Move: best, Depth: int8(depth), Flag: flag, Value: alpha})
	return SearchResult{Move: best, Score: alpha}
}

// child searches m one ply down and always restores pos before returning.
func (s *searcher) child(pos *Position, m dragontoothmg.Move, depth int, alpha, beta Score, ply int) Score {
	undo := pos.Apply(m)
	defer undo()
	return s.alphaBeta(pos, depth, alpha, beta, ply, true).Score
}

// nullMoveFailsHigh gives the opponent a free move and reports whether a
// reduced, zero-width search still fails high for us.
func (s *searcher) nullMoveFailsHigh(pos *Position, depth int, beta Score, ply int) bool {
	undo := pos.ApplyNull()
	defer undo()
	reduced := depth - 1 - s.opts.NullMove.Reduction
	score := -s.alphaBeta(pos, reduced, -beta, -beta+1, ply+1, false).Score
	return score >= beta
}

func (s *searcher) quiescence(pos *Position, depth int, alpha, beta Score, ply int) Score {
	s.nodes++
	standPat := EvaluateAt(pos, s.opts.Params, ply)
	if depth <= 0 {
		return standPat
	}
	if standPat >= beta {
		s.stats.QStandPatCutoffs++
		return beta
	}
	if standPat > alpha {
		alpha = standPat
	}
	if standPat < alpha-DeltaMargin {
		s.stats.QDeltaPrunes++
		return alpha
	}

	list := scoreTacticalMoves(pos, pos.LegalMoves(), 0)
	for i := range list.moves {
		orderNextMove(i, &list)
		score := -s.quiescenceChild(pos, list.moves[i].move, depth-1, -beta, -alpha, ply+1)
		if score >= beta {
			s.stats.QBetaCutoffs++
			return beta
		}
		if score > alpha {
			alpha = score
		}
	}
	return alpha
}

func (s *searcher) quiescenceChild(pos *Position, m dragontoothmg.Move, depth int, alpha, beta Score, ply int) Score {
	undo := pos.Apply(m)
	defer undo()
	return s.quiescence(pos, depth, alpha, beta, ply)
}

// NegaMax is a full-width search with no pruning, no table and no quiescence.
// It is the reference alphaBeta is checked against.
func NegaMax(pos *Position, depth int, params EvalParameters) Score {
	return negaMax(pos.Clone(), depth, 0, params)
}

func negaMax(pos *Position, depth, ply int, params EvalParameters) Score {
	moves := pos.LegalMoves()
	if len(moves) == 0 && !pos.InCheck() {
		return DrawScore
	}
	if depth == 0 || len(moves) == 0 {
		return EvaluateAt(pos, params, ply)
	}
	best := -Infinity
	for _, m := range moves {
		undo := pos.Apply(m)
		score := -negaMax(pos, depth-1, ply+1, params)
		undo()
		if score > best {
			best = score
		}
	}
	return best
}
