package board

import (
	nchess "github.com/corentings/chess/v2"
)

// Piece is the wire descriptor the JS board understands: the uppercase type
// letter, "w"/"b" color, English name, and the FEN letter (case carries the
// color).
type Piece struct {
	Type    string `json:"type"`
	Color   string `json:"color"`
	Name    string `json:"name"`
	FENType string `json:"fentype"`
}

func describePiece(p nchess.Piece) Piece {
	letter, name := pieceLetterName(p.Type())
	clr := "w"
	fen := letter
	if p.Color() == nchess.Black {
		clr = "b"
		fen = lower(letter)
	}
	return Piece{Type: letter, Color: clr, Name: name, FENType: fen}
}

func pieceLetterName(t nchess.PieceType) (string, string) {
	switch t {
	case nchess.King:
		return "K", "King"
	case nchess.Queen:
		return "Q", "Queen"
	case nchess.Rook:
		return "R", "Rook"
	case nchess.Bishop:
		return "B", "Bishop"
	case nchess.Knight:
		return "N", "Knight"
	default:
		return "P", "Pawn"
	}
}

func lower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
