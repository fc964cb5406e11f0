package main

import (
	"strings"

	"github.com/muesli/termenv"

	"cyd/engine"
)

var (
	lightSquare = "#d9c9a3"
	darkSquare  = "#a67d5d"
	whitePiece  = "#ffffff"
	blackPiece  = "#1a1a1a"
)

// renderBoard draws pos rank 8 first with coloured squares. Terminals
// without colour support get the plain letter board.
func renderBoard(out *termenv.Output, pos *engine.Position) string {
	if out.Profile == termenv.Ascii {
		return pos.String()
	}
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for file := 0; file < 8; file++ {
			piece := pos.PieceAt(uint8(rank*8 + file))
			bg := darkSquare
			if (rank+file)%2 == 1 {
				bg = lightSquare
			}
			fg := blackPiece
			if piece >= 'A' && piece <= 'Z' {
				fg = whitePiece
			}
			glyph := " "
			if piece != '.' {
				glyph = string(piece)
			}
			sb.WriteString(out.String(" " + glyph + " ").
				Foreground(out.Color(fg)).
				Background(out.Color(bg)).
				Bold().
				String())
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   a  b  c  d  e  f  g  h\n")
	return sb.String()
}
