package game

import (
	"time"
)

// Color identifies a chess side on the wire ("w"/"b").
type Color string

const (
	White Color = "w"
	Black Color = "b"
	None  Color = ""
)

func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return None
	}
}

// Status represents a game lifecycle state. Transitions are monotonic:
// once a game leaves in_progress it never returns.
type Status string

const (
	StatusAwaitingPlayers Status = "awaiting_players"
	StatusInProgress      Status = "in_progress"
	StatusCheckmate       Status = "checkmate"
	StatusResigned        Status = "resigned"
	StatusDraw            Status = "draw"
	StatusAborted         Status = "aborted"
	StatusTimeout         Status = "timeout"
)

// Finished reports whether the status is a terminal one.
func (s Status) Finished() bool {
	switch s {
	case StatusAwaitingPlayers, StatusInProgress:
		return false
	default:
		return true
	}
}

// Game is the authoritative persisted record of a match.
//
// MovesUCI and MovesSAN are parallel, ply-ordered lists; the side to move is
// derived from their length, never stored. Version is the compare-and-swap
// counter bumped by every committed write.
type Game struct {
	ID        string `json:"id"`
	Status    Status `json:"status"`
	WhiteID   string `json:"white_id"`
	WhiteName string `json:"white_name"`
	BlackID   string `json:"black_id"`
	BlackName string `json:"black_name"`

	MovesUCI []string `json:"moves_uci"`
	MovesSAN []string `json:"moves_san"`
	FEN      string   `json:"fen"`

	WhiteTimeLeft float64 `json:"white_time_left"`
	BlackTimeLeft float64 `json:"black_time_left"`

	DrawOfferedBy Color  `json:"draw_offered_by,omitempty"`
	Winner        string `json:"winner,omitempty"`

	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PlyCount returns the number of half-moves played.
func (g *Game) PlyCount() int { return len(g.MovesUCI) }

// ToMove derives the side to move from ply-count parity.
func (g *Game) ToMove() Color {
	if len(g.MovesUCI)%2 == 0 {
		return White
	}
	return Black
}

// PlayerColor returns the color the viewer plays, or None for spectators.
func (g *Game) PlayerColor(viewerID string) Color {
	if viewerID == "" {
		return None
	}
	if g.WhiteID == viewerID {
		return White
	}
	if g.BlackID == viewerID {
		return Black
	}
	return None
}

// IsPlayersMove reports whether the viewer is seated and it is their turn.
func (g *Game) IsPlayersMove(viewerID string) bool {
	c := g.PlayerColor(viewerID)
	return c != None && c == g.ToMove()
}

// Seated reports whether both sides have a player.
func (g *Game) Seated() bool { return g.WhiteID != "" && g.BlackID != "" }

// PlayerID returns the id of the player on the given side.
func (g *Game) PlayerID(c Color) string {
	if c == White {
		return g.WhiteID
	}
	if c == Black {
		return g.BlackID
	}
	return ""
}

// TimeLeft returns the clock of the given side in seconds.
func (g *Game) TimeLeft(c Color) float64 {
	if c == Black {
		return g.BlackTimeLeft
	}
	return g.WhiteTimeLeft
}

// SetTimeLeft writes one side's clock, clamped non-negative.
func (g *Game) SetTimeLeft(c Color, seconds float64) {
	if seconds < 0 {
		seconds = 0
	}
	switch c {
	case White:
		g.WhiteTimeLeft = seconds
	case Black:
		g.BlackTimeLeft = seconds
	}
}

// Clone returns a deep copy, so stores never hand out shared slices.
func (g *Game) Clone() *Game {
	cp := *g
	cp.MovesUCI = append([]string(nil), g.MovesUCI...)
	cp.MovesSAN = append([]string(nil), g.MovesSAN...)
	return &cp
}
