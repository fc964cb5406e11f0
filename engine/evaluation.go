package engine

import (
	"math"
	"math/bits"

	"github.com/dylhunn/dragontoothmg"
)

// Score is a centipawn value; positive favours the side to move.
type Score int32

const (
	Infinity  Score = 32500
	MateValue Score = 20000
	DrawScore Score = 0
)

// Fixed material values indexed by dragontoothmg piece type. The king is
// never counted.
var PieceValue = [7]Score{
	dragontoothmg.Pawn:   100,
	dragontoothmg.Knight: 280,
	dragontoothmg.Bishop: 320,
	dragontoothmg.Rook:   479,
	dragontoothmg.Queen:  929,
	dragontoothmg.King:   0,
}

// EvalParameters weights the positional terms of the evaluation. Material is
// never scaled.
type EvalParameters struct {
	PSQ        float64 `mapstructure:"psq" json:"psq"`
	Pinned     float64 `mapstructure:"pinned" json:"pinned"`
	KingSafety float64 `mapstructure:"king_safety" json:"king_safety"`
}

// DefaultEvalParameters are the weights used when none are supplied.
var DefaultEvalParameters = EvalParameters{
	PSQ:        0.5,
	Pinned:     10,
	KingSafety: 2,
}

// Board indexing for black's side of the piece-square tables
var FlipView = [64]int{
	56, 57, 58, 59, 60, 61, 62, 63,
	48, 49, 50, 51, 52, 53, 54, 55,
	40, 41, 42, 43, 44, 45, 46, 47,
	32, 33, 34, 35, 36, 37, 38, 39,
	24, 25, 26, 27, 28, 29, 30, 31,
	16, 17, 18, 19, 20, 21, 22, 23,
	8, 9, 10, 11, 12, 13, 14, 15,
	0, 1, 2, 3, 4, 5, 6, 7,
}

// Piece-square tables from white's point of view, a1 first.
var PSQT = [7][64]int{
	dragontoothmg.Pawn: {
		0, 0, 0, 0, 0, 0, 0, 0,
		-46, -41, -42, -39, -40, -12, 1, -21,
		-51, -52, -45, -45, -37, -37, -20, -30,
		-46, -40, -33, -33, -23, -26, -15, -30,
		-36, -27, -27, -11, 1, 2, -4, -21,
		-33, -6, 7, 13, 27, 57, 19, -11,
		57, 54, 55, 54, 46, 32, 4, 9,
		0, 0, 0, 0, 0, 0, 0, 0,
	},
	dragontoothmg.Knight: {
		-24, -28, -46, -30, -25, -21, -27, -40,
		-35, -32, -18, -10, -14, -12, -20, -18,
		-25, -8, -4, 6, 7, -1, -1, -17,
		-14, -1, 8, 5, 13, 10, 26, -1,
		-5, 8, 30, 35, 24, 43, 19, 22,
		-21, 12, 40, 49, 67, 64, 37, 14,
		-17, -12, 20, 33, 33, 37, -8, 3,
		-61, -6, -12, -2, 1, -6, -1, -16,
	},
	dragontoothmg.Bishop: {
		4, -2, -15, -21, -18, -8, -8, 2,
		4, 8, 11, -2, 1, 5, 20, 11,
		-2, 11, 8, 13, 10, 8, 10, 13,
		-7, 10, 15, 21, 26, 11, 10, 7,
		-4, 22, 24, 49, 34, 37, 20, 6,
		4, 18, 36, 36, 47, 55, 37, 24,
		-22, 6, 3, -7, 4, 14, -3, 8,
		-27, -8, -13, -12, -8, -21, 1, -10,
	},
	dragontoothmg.Rook: {
		-46, -41, -37, -34, -36, -40, -19, -42,
		-71, -45, -44, -43, -47, -37, -25, -51,
		-60, -46, -50, -44, -47, -48, -21, -38,
		-49, -45, -43, -35, -37, -34, -13, -29,
		-33, -21, -11, 6, 0, 7, 8, 2,
		-22, 10, 4, 25, 41, 38, 44, 20,
		-3, -5, 16, 28, 31, 37, 9, 30,
		23, 22, 19, 24, 23, 20, 21, 34,
	},
	dragontoothmg.Queen: {
		-6, -17, -12, -3, -6, -28, -27, -12,
		-11, -4, 2, -2, -1, 7, 8, -7,
		-8, -1, -2, -4, -4, -1, 8, 7,
		-5, -3, -2, -6, -6, 10, 7, 16,
		-11, -6, -2, -1, 12, 22, 26, 26,
		-13, -6, -1, 14, 36, 58, 71, 42,
		-11, -40, 5, 5, 20, 44, -2, 27,
		0, 16, 21, 29, 36, 38, 25, 36,
	},
	dragontoothmg.King: {
		-4, 36, -1, -69, -23, -74, 19, 26,
		12, 0, -18, -53, -33, -39, 7, 25,
		-6, -4, -3, -11, -6, -8, 4, -15,
		-1, 8, 16, 10, 15, 12, 23, -9,
		0, 9, 16, 10, 13, 15, 15, -8,
		1, 11, 12, 9, 8, 14, 12, 0,
		-2, 6, 6, 2, 3, 4, 3, -2,
		-1, 0, 0, 2, 0, 0, 0, -2,
	},
}

// Evaluate scores pos for the side to move.
func Evaluate(pos *Position, params EvalParameters) Score {
	return EvaluateAt(pos, params, 0)
}

// EvaluateAt is Evaluate for a position ply half-moves below the search root,
// so that nearer mates score further from zero.
func EvaluateAt(pos *Position, params EvalParameters, ply int) Score {
	if pos.InCheck() && len(pos.LegalMoves()) == 0 {
		return -(MateValue - Score(ply))
	}

	b := &pos.board
	pinned := popcount(pinnedPieces(b, false)) - popcount(pinnedPieces(b, true))
	kingSafety := kingShelter(&b.White) - kingShelter(&b.Black)

	total := float64(Material(pos)) +
		params.PSQ*float64(PieceSquareBalance(pos)) +
		params.Pinned*float64(pinned) +
		params.KingSafety*float64(kingSafety)

	score := Score(math.Round(total))
	if !b.Wtomove {
		return -score
	}
	return score
}

// Material is white's material minus black's.
func Material(pos *Position) Score {
	return sideMaterial(&pos.board.White) - sideMaterial(&pos.board.Black)
}

func sideMaterial(bb *dragontoothmg.Bitboards) Score {
	return PieceValue[dragontoothmg.Pawn]*Score(popcount(bb.Pawns)) +
		PieceValue[dragontoothmg.Knight]*Score(popcount(bb.Knights)) +
		PieceValue[dragontoothmg.Bishop]*Score(popcount(bb.Bishops)) +
		PieceValue[dragontoothmg.Rook]*Score(popcount(bb.Rooks)) +
		PieceValue[dragontoothmg.Queen]*Score(popcount(bb.Queens))
}

// PieceSquareBalance is the unweighted piece-square sum, white minus black.
func PieceSquareBalance(pos *Position) int {
	return piecesSquareSum(&pos.board.White, false) - piecesSquareSum(&pos.board.Black, true)
}

func piecesSquareSum(bb *dragontoothmg.Bitboards, flip bool) int {
	sets := [7]uint64{
		dragontoothmg.Pawn:   bb.Pawns,
		dragontoothmg.Knight: bb.Knights,
		dragontoothmg.Bishop: bb.Bishops,
		dragontoothmg.Rook:   bb.Rooks,
		dragontoothmg.Queen:  bb.Queens,
		dragontoothmg.King:   bb.Kings,
	}
	total := 0
	for piece := dragontoothmg.Pawn; piece <= dragontoothmg.King; piece++ {
		for set := sets[piece]; set != 0; set &= set - 1 {
			sq := bits.TrailingZeros64(set)
			if flip {
				sq = FlipView[sq]
			}
			total += PSQT[piece][sq]
		}
	}
	return total
}

// pinnedPieces returns the pieces of one side that shield their own king
// from an enemy slider.
func pinnedPieces(b *dragontoothmg.Board, white bool) uint64 {
	own, enemy := &b.White, &b.Black
	if !white {
		own, enemy = enemy, own
	}
	if own.Kings == 0 {
		return 0
	}
	king := uint8(bits.TrailingZeros64(own.Kings))
	occupied := b.White.All | b.Black.All

	pinned := pinnedAlong(king, occupied, own.All, enemy.Rooks|enemy.Queens, dragontoothmg.CalculateRookMoveBitboard)
	pinned |= pinnedAlong(king, occupied, own.All, enemy.Bishops|enemy.Queens, dragontoothmg.CalculateBishopMoveBitboard)
	return pinned
}

func pinnedAlong(king uint8, occupied, own, sliders uint64, attacks func(uint8, uint64) uint64) uint64 {
	if sliders == 0 {
		return 0
	}
	direct := attacks(king, occupied)
	var pinned uint64
	for blockers := direct & own; blockers != 0; blockers &= blockers - 1 {
		blocker := blockers & -blockers
		// Lifting the blocker only opens the ray it stood on.
		if attacks(king, occupied&^blocker)&^direct&sliders != 0 {
			pinned |= blocker
		}
	}
	return pinned
}

// kingShelter counts a side's own pieces on the squares around its king.
func kingShelter(bb *dragontoothmg.Bitboards) int {
	if bb.Kings == 0 {
		return 0
	}
	return popcount(KingMoves[bits.TrailingZeros64(bb.Kings)] & bb.All)
}
