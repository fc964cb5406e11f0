package engine

import (
	"github.com/dylhunn/dragontoothmg"
)

// Perft counts the leaf nodes of the legal move tree below pos.
func Perft(pos *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	return perftRec(pos.Clone(), depth)
}

func perftRec(pos *Position, depth int) uint64 {
	moves := pos.LegalMoves()
	if depth == 1 {
		return uint64(len(moves))
	}
	var nodes uint64
	for _, m := range moves {
		undo := pos.Apply(m)
		nodes += perftRec(pos, depth-1)
		undo()
	}
	return nodes
}

// PerftDivide is Perft split by root move.
func PerftDivide(pos *Position, depth int) map[dragontoothmg.Move]uint64 {
	result := make(map[dragontoothmg.Move]uint64)
	if depth <= 0 {
		return result
	}
	root := pos.Clone()
	for _, m := range root.LegalMoves() {
		undo := root.Apply(m)
		result[m] = Perft(root, depth-1)
		undo()
	}
	return result
}
