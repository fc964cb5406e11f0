package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

type move struct {
	move       dragontoothmg.Move
	score      uint16
	isCapture  bool
	givesCheck bool
}

type moveList struct {
	moves []move
}

// Most Valuable Victim - Least Valuable Aggressor; used to score & sort captures
var mvvLva [7][7]uint16 = [7][7]uint16{
	{0, 0, 0, 0, 0, 0, 0},
	{0, 14, 13, 12, 11, 10, 0}, // victim Pawn
	{0, 24, 23, 22, 21, 20, 0}, // victim Knight
	{0, 34, 33, 32, 31, 30, 0}, // victim Bishop
	{0, 44, 43, 42, 41, 40, 0}, // victim Rook
	{0, 54, 53, 52, 51, 50, 0}, // victim Queen
	{0, 0, 0, 0, 0, 0, 0},      // victim King
}

/*
	Move ordering offsets, highest first:
	- the cached/principal move from the transposition table
	- moves that give check
	- captures, MVV-LVA within the band
	- promotions
	- everything else stays at zero
*/
var pvOffset uint16 = 25000
var checkOffset uint16 = 20000
var captureOffset uint16 = 15000
var promotionOffset uint16 = 10000

// Ordering the moves one at a time, at index given
func orderNextMove(currIndex int, moves *moveList) {
	bestIndex := currIndex
	bestScore := moves.moves[bestIndex].score

	for index := bestIndex + 1; index < len(moves.moves); index++ {
		if moves.moves[index].score > bestScore {
			bestIndex = index
			bestScore = moves.moves[index].score
		}
	}

	moves.moves[currIndex], moves.moves[bestIndex] = moves.moves[bestIndex], moves.moves[currIndex]
}

func scoreMove(pos *Position, m dragontoothmg.Move, pvMove dragontoothmg.Move) move {
	own, enemy := pos.ownBitboards(), pos.enemyBitboards()
	victim, isCapture := GetPieceTypeAtPosition(m.To(), enemy)
	if !isCapture {
		// en passant lands on an empty square
		isCapture = pos.IsCapture(m)
		victim = dragontoothmg.Pawn
	}
	scored := move{
		move:       m,
		isCapture:  isCapture,
		givesCheck: pos.GivesCheck(m),
	}

	switch {
	case m == pvMove && pvMove != 0:
		scored.score = pvOffset
	case scored.givesCheck:
		scored.score = checkOffset
	case isCapture:
		attacker, _ := GetPieceTypeAtPosition(m.From(), own)
		scored.score = captureOffset + mvvLva[victim][attacker]
	case m.Promote() != 0:
		scored.score = promotionOffset + uint16(PieceValue[m.Promote()])
	}
	return scored
}

// scoreMovesList scores every move for the main search.
func scoreMovesList(pos *Position, moves []dragontoothmg.Move, pvMove dragontoothmg.Move) (movesList moveList) {
	movesList.moves = make([]move, len(moves))
	for i := range moves {
		movesList.moves[i] = scoreMove(pos, moves[i], pvMove)
	}
	return movesList
}

// scoreTacticalMoves keeps only captures and checking moves, for quiescence.
func scoreTacticalMoves(pos *Position, moves []dragontoothmg.Move, pvMove dragontoothmg.Move) (movesList moveList) {
	movesList.moves = make([]move, 0, len(moves))
	for i := range moves {
		scored := scoreMove(pos, moves[i], pvMove)
		if scored.isCapture || scored.givesCheck {
			movesList.moves = append(movesList.moves, scored)
		}
	}
	return movesList
}

// OrderMoves returns moves sorted best-first for pos. cached may be zero.
func OrderMoves(pos *Position, moves []dragontoothmg.Move, cached dragontoothmg.Move) []dragontoothmg.Move {
	list := scoreMovesList(pos, moves, cached)
	ordered := make([]dragontoothmg.Move, len(list.moves))
	for i := range list.moves {
		orderNextMove(i, &list)
		ordered[i] = list.moves[i].move
	}
	return ordered
}
