package engine

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

func Min[T constraints.Ordered](x, y T) T {
	if x < y {
		return x
	}
	return y
}

func Max[T constraints.Ordered](x, y T) T {
	if x > y {
		return x
	}
	return y
}

func Abs[T constraints.Signed | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// mateThreshold leaves room for any mate a search can actually reach.
const mateThreshold = MateValue - 1000

// IsMateScore reports whether score encodes a forced mate for either side.
func IsMateScore(score Score) bool {
	return Abs(score) >= mateThreshold && Abs(score) <= MateValue
}

// ScoreString renders score as "cp N", or "mate N" in moves, negative when
// the side to move is the one getting mated.
func ScoreString(score Score) string {
	if !IsMateScore(score) {
		return fmt.Sprintf("cp %d", score)
	}
	plies := int(MateValue - Abs(score))
	mateIn := (plies + 1) / 2
	if score < 0 {
		mateIn = -mateIn
	}
	return fmt.Sprintf("mate %d", mateIn)
}
