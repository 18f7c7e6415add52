package game

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Result is the outcome of dispatching one command to the engine.
// Applied=false means nothing on the game changed that may be persisted.
type Result struct {
	Applied  bool
	Messages []string
	Errors   []string
}

// Engine is the rules capability the controller dispatches commands to.
// Implementations mutate the passed game in memory only; persistence is the
// caller's decision.
type Engine interface {
	ApplyMove(g *Game, color Color, raw string) Result
	Abort(g *Game, color Color) Result
	OfferDraw(g *Game, color Color) Result
	AcceptDraw(g *Game, color Color) Result
	RefuseDraw(g *Game, color Color) Result
	Resign(g *Game, color Color) Result
}

// A game may be aborted only before the second ply is on the board.
const abortPlyLimit = 2

// RulesEngine implements Engine on top of corentings/chess.
type RulesEngine struct{}

func NewRulesEngine() *RulesEngine { return &RulesEngine{} }

// replay rebuilds the library game from the stored UCI list. Reconstruction
// always starts from the initial position; the stored FEN is presentation
// state and applying it here would double-apply moves.
func replay(moves []string) *nchess.Game {
	g := nchess.NewGame()
	for _, mv := range moves {
		if err := g.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	return g
}

func rejected(errs ...string) Result { return Result{Applied: false, Errors: errs} }

func (e *RulesEngine) ApplyMove(g *Game, color Color, raw string) Result {
	if g.Status != StatusInProgress {
		return rejected("Game is not in progress")
	}
	ng := replay(g.MovesUCI)
	if ng == nil {
		return rejected("Stored move list is corrupt")
	}
	pos := ng.Position()

	var mv *nchess.Move
	if uci, ok := NormalizeMove(raw); ok {
		if decoded, derr := (nchess.UCINotation{}).Decode(pos, uci); derr == nil {
			mv = decoded
		}
	}
	if mv == nil {
		// Last resort: accept the token as SAN (e4, Nf3, O-O).
		if decoded, derr := (nchess.AlgebraicNotation{}).Decode(pos, strings.TrimSpace(raw)); derr == nil {
			mv = decoded
		}
	}
	if mv == nil {
		return rejected(fmt.Sprintf("Illegal move: %s", strings.TrimSpace(raw)))
	}

	// UCI decoding is syntactic only; Move is where legality is enforced.
	if err := ng.Move(mv, nil); err != nil {
		return rejected(fmt.Sprintf("Illegal move: %s", strings.TrimSpace(raw)))
	}
	san := nchess.AlgebraicNotation{}.Encode(pos, mv)

	g.MovesUCI = append(g.MovesUCI, mv.String())
	g.MovesSAN = append(g.MovesSAN, san)
	g.FEN = ng.FEN()
	// Moving past an opponent's offer declines it; the mover's own offer
	// stays on the table for the opponent's turn.
	if g.DrawOfferedBy == color.Opponent() {
		g.DrawOfferedBy = None
	}

	res := Result{Applied: true}
	switch ng.Outcome() {
	case nchess.WhiteWon:
		g.Status = StatusCheckmate
		g.Winner = g.WhiteID
		res.Messages = append(res.Messages, "Checkmate, white wins")
	case nchess.BlackWon:
		g.Status = StatusCheckmate
		g.Winner = g.BlackID
		res.Messages = append(res.Messages, "Checkmate, black wins")
	case nchess.Draw:
		g.Status = StatusDraw
		res.Messages = append(res.Messages, drawMessage(ng.Method()))
	}
	return res
}

func (e *RulesEngine) Abort(g *Game, color Color) Result {
	if g.Status != StatusInProgress {
		return rejected("Game is not in progress")
	}
	if g.PlyCount() >= abortPlyLimit {
		return rejected("Game can no longer be aborted")
	}
	g.Status = StatusAborted
	g.Winner = ""
	return Result{Applied: true, Messages: []string{"Game aborted"}}
}

func (e *RulesEngine) OfferDraw(g *Game, color Color) Result {
	if g.Status != StatusInProgress {
		return rejected("Game is not in progress")
	}
	if g.DrawOfferedBy == color {
		return rejected("You have already offered a draw")
	}
	g.DrawOfferedBy = color
	return Result{Applied: true, Messages: []string{"Draw offered"}}
}

func (e *RulesEngine) AcceptDraw(g *Game, color Color) Result {
	if g.Status != StatusInProgress {
		return rejected("Game is not in progress")
	}
	if g.DrawOfferedBy != color.Opponent() {
		return rejected("There is no draw offer to accept")
	}
	g.Status = StatusDraw
	g.DrawOfferedBy = None
	return Result{Applied: true, Messages: []string{"Draw agreed"}}
}

func (e *RulesEngine) RefuseDraw(g *Game, color Color) Result {
	if g.Status != StatusInProgress {
		return rejected("Game is not in progress")
	}
	if g.DrawOfferedBy != color.Opponent() {
		return rejected("There is no draw offer to refuse")
	}
	g.DrawOfferedBy = None
	return Result{Applied: true, Messages: []string{"Draw refused"}}
}

func (e *RulesEngine) Resign(g *Game, color Color) Result {
	if g.Status != StatusInProgress {
		return rejected("Game is not in progress")
	}
	g.Status = StatusResigned
	g.Winner = g.PlayerID(color.Opponent())
	g.DrawOfferedBy = None
	return Result{Applied: true, Messages: []string{"Game resigned"}}
}

func drawMessage(method nchess.Method) string {
	switch method {
	case nchess.Stalemate:
		return "Draw by stalemate"
	case nchess.ThreefoldRepetition, nchess.FivefoldRepetition:
		return "Draw by repetition"
	case nchess.FiftyMoveRule, nchess.SeventyFiveMoveRule:
		return "Draw by move rule"
	case nchess.InsufficientMaterial:
		return "Draw by insufficient material"
	default:
		return "Draw"
	}
}
