package engine

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/dylhunn/dragontoothmg"
)

// Startpos is the FEN of the standard initial position.
const Startpos = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var (
	ErrInvalidFEN  = errors.New("invalid FEN")
	ErrIllegalMove = errors.New("illegal move")
)

// Position is the board state owned by a single search path. It is mutated in
// place through Apply/ApplyNull, each of which hands back the matching undo.
// Clone is a full value copy; positions are never shared between workers.
type Position struct {
	board dragontoothmg.Board
}

// NewPosition validates fen and builds a position from it.
func NewPosition(fen string) (pos *Position, err error) {
	fen, err = normalizeFEN(fen)
	if err != nil {
		return nil, err
	}
	// The rules engine assumes well-formed input and panics otherwise.
	defer func() {
		if r := recover(); r != nil {
			pos = nil
			err = fmt.Errorf("%w: %v", ErrInvalidFEN, r)
		}
	}()
	return &Position{board: dragontoothmg.ParseFen(fen)}, nil
}

// StartPosition returns the standard initial position.
func StartPosition() *Position {
	return &Position{board: dragontoothmg.ParseFen(Startpos)}
}

func (p *Position) Clone() *Position {
	c := *p
	return &c
}

// Hash is the rules engine's zobrist key; equal positions share a key.
func (p *Position) Hash() uint64 {
	return p.board.Hash()
}

// HalfmoveClock counts plies since the last capture or pawn move.
func (p *Position) HalfmoveClock() int {
	return int(p.board.Halfmoveclock)
}

func (p *Position) WhiteToMove() bool {
	return p.board.Wtomove
}

func (p *Position) FEN() string {
	return p.board.ToFen()
}

func (p *Position) LegalMoves() []dragontoothmg.Move {
	return p.board.GenerateLegalMoves()
}

// InCheck reports whether the side to move is in check.
func (p *Position) InCheck() bool {
	return p.board.OurKingInCheck()
}

func (p *Position) IsCheckmate() bool {
	return p.InCheck() && len(p.LegalMoves()) == 0
}

func (p *Position) IsStalemate() bool {
	return !p.InCheck() && len(p.LegalMoves()) == 0
}

// Apply plays m and returns the closure restoring the previous state.
func (p *Position) Apply(m dragontoothmg.Move) func() {
	return p.board.Apply(m)
}

// ApplyNull passes the turn: the side to move flips and the en passant square
// is cleared. The returned closure restores the exact previous board.
//
// dragontoothmg has no null-move API and keeps the en passant square and the
// hash unexported, so the pass goes through a FEN round trip.
func (p *Position) ApplyNull() func() {
	saved := p.board
	fields := strings.Fields(p.board.ToFen())
	if fields[1] == "w" {
		fields[1] = "b"
	} else {
		fields[1] = "w"
	}
	fields[3] = "-"
	p.board = dragontoothmg.ParseFen(strings.Join(fields, " "))
	return func() {
		p.board = saved
	}
}

func (p *Position) IsCapture(m dragontoothmg.Move) bool {
	return dragontoothmg.IsCapture(m, &p.board)
}

// GivesCheck reports whether m leaves the opponent in check.
func (p *Position) GivesCheck(m dragontoothmg.Move) bool {
	undo := p.Apply(m)
	defer undo()
	return p.InCheck()
}

// HasNonPawnMaterial reports whether the side to move owns a knight, bishop,
// rook or queen.
func (p *Position) HasNonPawnMaterial() bool {
	own := p.ownBitboards()
	return own.Knights|own.Bishops|own.Rooks|own.Queens != 0
}

// ApplyUCI plays a move given in long algebraic notation ("e2e4", "e7e8q").
func (p *Position) ApplyUCI(uci string) error {
	uci = strings.ToLower(strings.TrimSpace(uci))
	for _, m := range p.LegalMoves() {
		if m.String() == uci {
			p.Apply(m)
			return nil
		}
	}
	return fmt.Errorf("%w: %q in %s", ErrIllegalMove, uci, p.FEN())
}

// ParseUCIMove resolves uci against the legal moves of the position.
func (p *Position) ParseUCIMove(uci string) (dragontoothmg.Move, error) {
	uci = strings.ToLower(strings.TrimSpace(uci))
	for _, m := range p.LegalMoves() {
		if m.String() == uci {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q in %s", ErrIllegalMove, uci, p.FEN())
}

func (p *Position) ownBitboards() *dragontoothmg.Bitboards {
	if p.board.Wtomove {
		return &p.board.White
	}
	return &p.board.Black
}

func (p *Position) enemyBitboards() *dragontoothmg.Bitboards {
	if p.board.Wtomove {
		return &p.board.Black
	}
	return &p.board.White
}

// PieceAt returns the FEN letter of the piece on sq, or '.' when empty.
func (p *Position) PieceAt(sq uint8) byte {
	if piece, ok := GetPieceTypeAtPosition(sq, &p.board.White); ok {
		return pieceLetters[piece] - 'a' + 'A'
	}
	if piece, ok := GetPieceTypeAtPosition(sq, &p.board.Black); ok {
		return pieceLetters[piece]
	}
	return '.'
}

var pieceLetters = [7]byte{'.', 'p', 'n', 'b', 'r', 'q', 'k'}

// String renders the board from white's point of view, rank 8 first.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteByte(' ')
		for file := 0; file < 8; file++ {
			sb.WriteByte(p.PieceAt(uint8(rank*8 + file)))
			if file < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("  a b c d e f g h\n")
	return sb.String()
}

// GetPieceTypeAtPosition reports which piece type of one colour occupies position.
func GetPieceTypeAtPosition(position uint8, bitboards *dragontoothmg.Bitboards) (pieceType dragontoothmg.Piece, occupied bool) {
	bb := uint64(1) << position
	switch {
	case bitboards.Pawns&bb != 0:
		return dragontoothmg.Pawn, true
	case bitboards.Knights&bb != 0:
		return dragontoothmg.Knight, true
	case bitboards.Bishops&bb != 0:
		return dragontoothmg.Bishop, true
	case bitboards.Rooks&bb != 0:
		return dragontoothmg.Rook, true
	case bitboards.Queens&bb != 0:
		return dragontoothmg.Queen, true
	case bitboards.Kings&bb != 0:
		return dragontoothmg.King, true
	}
	return 0, false
}

// normalizeFEN checks the structure the rules engine relies on and fills in
// missing move counters.
func normalizeFEN(fen string) (string, error) {
	fields := strings.Fields(fen)
	if len(fields) == 4 {
		fields = append(fields, "0", "1")
	}
	if len(fields) != 6 {
		return "", fmt.Errorf("%w: want 6 fields, got %d", ErrInvalidFEN, len(fields))
	}

	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return "", fmt.Errorf("%w: want 8 ranks, got %d", ErrInvalidFEN, len(ranks))
	}
	var whiteKings, blackKings int
	for _, rank := range ranks {
		width := 0
		for _, c := range rank {
			switch {
			case c >= '1' && c <= '8':
				width += int(c - '0')
			case strings.ContainsRune("pnbrqPNBRQ", c):
				width++
			case c == 'K':
				whiteKings++
				width++
			case c == 'k':
				blackKings++
				width++
			default:
				return "", fmt.Errorf("%w: unexpected %q in rank %q", ErrInvalidFEN, c, rank)
			}
		}
		if width != 8 {
			return "", fmt.Errorf("%w: rank %q spans %d files", ErrInvalidFEN, rank, width)
		}
	}
	if whiteKings != 1 || blackKings != 1 {
		return "", fmt.Errorf("%w: need exactly one king per side", ErrInvalidFEN)
	}

	if fields[1] != "w" && fields[1] != "b" {
		return "", fmt.Errorf("%w: side to move %q", ErrInvalidFEN, fields[1])
	}
	if fields[2] != "-" {
		for _, c := range fields[2] {
			if !strings.ContainsRune("KQkq", c) {
				return "", fmt.Errorf("%w: castling rights %q", ErrInvalidFEN, fields[2])
			}
		}
	}
	if ep := fields[3]; ep != "-" {
		if len(ep) != 2 || ep[0] < 'a' || ep[0] > 'h' || (ep[1] != '3' && ep[1] != '6') {
			return "", fmt.Errorf("%w: en passant square %q", ErrInvalidFEN, ep)
		}
	}
	for _, counter := range fields[4:] {
		for _, c := range counter {
			if c < '0' || c > '9' {
				return "", fmt.Errorf("%w: move counter %q", ErrInvalidFEN, counter)
			}
		}
	}
	return strings.Join(fields, " "), nil
}

func popcount(bb uint64) int {
	return bits.OnesCount64(bb)
}
