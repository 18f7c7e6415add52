package board

import (
	"errors"

	nchess "github.com/corentings/chess/v2"

	"github.com/vchess/vchess-go/internal/game"
)

// MovePair is one scoresheet row: a white move and the black reply, empty
// while black has not answered yet.
type MovePair struct {
	W string `json:"w"`
	B string `json:"b"`
}

type Usernames struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// Snapshot is the complete client-facing projection of a game. It is rebuilt
// from scratch on every normalization and never mutated afterwards.
type Snapshot struct {
	ID            string      `json:"id"`
	Status        game.Status `json:"status"`
	WhiteID       string      `json:"white_id"`
	BlackID       string      `json:"black_id"`
	Turn          game.Color  `json:"turn"`
	MoveCount     int         `json:"move_count"`
	WhiteTimeLeft float64     `json:"white_time_left"`
	BlackTimeLeft float64     `json:"black_time_left"`
	DrawOfferedBy game.Color  `json:"draw_offered_by,omitempty"`
	Winner        string      `json:"winner,omitempty"`

	Pieces       map[string]Piece `json:"pieces"`
	BoardFlipped bool             `json:"boardFlipped"`
	Usernames    Usernames        `json:"usernames"`
	Moves        []MovePair       `json:"moves"`
	Captured     []Piece          `json:"captured"`
}

// Placeholder shown while a side has no player yet.
const unassignedName = "TBD"

var errCorruptMoves = errors.New("stored move list is corrupt")

// Normalizer projects a game record into a Snapshot. It is stateless and
// side-effect free: identical inputs produce identical snapshots, and empty
// or unstarted games are normal inputs, not errors.
type Normalizer struct{}

func NewNormalizer() *Normalizer { return &Normalizer{} }

// Normalize builds the snapshot for one viewer. boardFlipped is the viewer's
// stored orientation preference; it never comes from the game record.
func (n *Normalizer) Normalize(g *game.Game, boardFlipped bool) (*Snapshot, error) {
	snap := &Snapshot{
		ID:            g.ID,
		Status:        g.Status,
		WhiteID:       g.WhiteID,
		BlackID:       g.BlackID,
		Turn:          g.ToMove(),
		MoveCount:     g.PlyCount(),
		WhiteTimeLeft: g.WhiteTimeLeft,
		BlackTimeLeft: g.BlackTimeLeft,
		DrawOfferedBy: g.DrawOfferedBy,
		Winner:        g.Winner,
		Pieces:        map[string]Piece{},
		BoardFlipped:  boardFlipped,
		Usernames:     usernames(g),
		Moves:         movePairs(g.MovesSAN),
		Captured:      []Piece{},
	}

	ng := nchess.NewGame()
	for _, mv := range g.MovesUCI {
		if err := ng.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			// Still a well-formed snapshot, just without position data.
			return snap, errCorruptMoves
		}
	}

	for sq, piece := range ng.Position().Board().SquareMap() {
		snap.Pieces[sq.String()] = describePiece(piece)
	}
	snap.Captured = capturedPieces(ng)
	return snap, nil
}

func usernames(g *game.Game) Usernames {
	u := Usernames{White: g.WhiteName, Black: g.BlackName}
	if u.White == "" {
		u.White = unassignedName
	}
	if u.Black == "" {
		u.Black = unassignedName
	}
	return u
}

func movePairs(sans []string) []MovePair {
	pairs := make([]MovePair, 0, (len(sans)+1)/2)
	for i := 0; i < len(sans); i += 2 {
		p := MovePair{W: sans[i]}
		if i+1 < len(sans) {
			p.B = sans[i+1]
		}
		pairs = append(pairs, p)
	}
	return pairs
}

// capturedPieces walks the move list and collects captures in the order they
// happened. En passant removes a pawn from behind the destination square.
func capturedPieces(ng *nchess.Game) []Piece {
	captured := []Piece{}
	moves := ng.Moves()
	positions := ng.Positions()
	for i, mv := range moves {
		if i >= len(positions) {
			break
		}
		if !mv.HasTag(nchess.Capture) && !mv.HasTag(nchess.EnPassant) {
			continue
		}
		pos := positions[i]
		captureSquare := mv.S2()
		if mv.HasTag(nchess.EnPassant) {
			file := mv.S2().File()
			rank := mv.S2().Rank()
			if pos.Turn() == nchess.White {
				captureSquare = nchess.NewSquare(file, rank-1)
			} else {
				captureSquare = nchess.NewSquare(file, rank+1)
			}
		}
		capturedPiece := pos.Board().Piece(captureSquare)
		if capturedPiece == nchess.NoPiece || capturedPiece.Type() == nchess.King {
			continue
		}
		captured = append(captured, describePiece(capturedPiece))
	}
	return captured
}
