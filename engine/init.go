package engine

// KingMoves holds the (up to) eight squares around each square.
var KingMoves [64]uint64

func init() {
	initKingMoves()
}

func initKingMoves() {
	for sq := 0; sq < 64; sq++ {
		rank, file := sq/8, sq%8
		var ring uint64
		for dr := -1; dr <= 1; dr++ {
			for df := -1; df <= 1; df++ {
				if dr == 0 && df == 0 {
					continue
				}
				r, f := rank+dr, file+df
				if r < 0 || r > 7 || f < 0 || f > 7 {
					continue
				}
				ring |= 1 << uint(r*8+f)
			}
		}
		KingMoves[sq] = ring
	}
}
