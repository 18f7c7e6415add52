// Package boardsync turns one client request into at most one validated
// state transition on a shared game record, and always answers with a full
// normalized snapshot plus human-readable messages.
package boardsync

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vchess/vchess-go/internal/board"
	"github.com/vchess/vchess-go/internal/game"
	"github.com/vchess/vchess-go/internal/msgcat"
	"github.com/vchess/vchess-go/internal/obslog"
	"github.com/vchess/vchess-go/internal/session"
)

// Statistics receives finished games. Failures are logged and swallowed;
// they never block or taint the response.
type Statistics interface {
	OnGameFinished(ctx context.Context, g *game.Game) error
}

// StateRequest carries the optional side effects a fetch may ask for.
// Nil pointers mean the field was absent from the request body.
type StateRequest struct {
	WhiteTimeLeft *float64
	BlackTimeLeft *float64
	BoardFlipped  *bool
}

// CommandRequest is one submitted command with the client's reported clocks.
type CommandRequest struct {
	Cmd           string
	WhiteTimeLeft *float64
	BlackTimeLeft *float64
}

// Response is what every operation answers with: the snapshot, whether
// anything was persisted, and the accumulated messages.
type Response struct {
	Game     *board.Snapshot
	Saved    bool
	Messages []string
}

type Options struct {
	// Clock budget per side, in seconds, applied when a game starts.
	InitialTimeLeft float64
}

type Controller struct {
	store      game.Store
	engine     game.Engine
	sessions   session.Store
	normalizer *board.Normalizer
	cat        *msgcat.Catalog
	stats      Statistics
	opts       Options
}

func NewController(store game.Store, engine game.Engine, sessions session.Store, cat *msgcat.Catalog, opts Options) *Controller {
	if opts.InitialTimeLeft <= 0 {
		opts.InitialTimeLeft = 600
	}
	return &Controller{
		store:      store,
		engine:     engine,
		sessions:   sessions,
		normalizer: board.NewNormalizer(),
		cat:        cat,
		opts:       opts,
	}
}

// AttachStatistics wires the finished-game collaborator.
func (c *Controller) AttachStatistics(s Statistics) {
	if c != nil {
		c.stats = s
	}
}

// FetchState loads the game, applies the request's display and clock side
// effects, and returns a snapshot. Only an unknown game id is an error;
// every other fault degrades to a message in the response.
func (c *Controller) FetchState(ctx context.Context, gameID, viewerID string, req StateRequest) (*Response, error) {
	g, err := c.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var messages []string

	// A clock report only ever touches the reporter's own color, and only
	// while it is actually their move. The opponent's clock is never
	// client-writable.
	if req.WhiteTimeLeft != nil && req.BlackTimeLeft != nil && g.Status == game.StatusInProgress {
		color := g.PlayerColor(viewerID)
		if color != game.None && g.ToMove() == color {
			own := *req.WhiteTimeLeft
			if color == game.Black {
				own = *req.BlackTimeLeft
			}
			g.SetTimeLeft(color, own)
			if own <= 0 {
				g.Status = game.StatusTimeout
				g.Winner = g.PlayerID(color.Opponent())
				g.DrawOfferedBy = game.None
			}
			if err := c.store.Update(ctx, g); err != nil {
				if errors.Is(err, game.ErrConflict) {
					// A move landed first; the next poll reconciles.
					if cur, lerr := c.store.Load(ctx, gameID); lerr == nil {
						g = cur
					}
				} else {
					messages = append(messages, c.internalMessage(err))
				}
			} else if g.Status.Finished() {
				c.notifyFinished(ctx, g)
			}
		}
	}

	if req.BoardFlipped != nil {
		if err := c.sessions.SetFlipped(ctx, gameID, viewerID, *req.BoardFlipped); err != nil {
			messages = append(messages, c.internalMessage(err))
		}
	}

	snap := c.snapshot(ctx, g, viewerID, &messages)
	return &Response{Game: snap, Messages: messages}, nil
}

// SubmitCommand runs the gating chain: status, turn, syntax, engine. The
// game is persisted iff the engine reports the command applied, and the
// snapshot is always rebuilt from what is durable.
func (c *Controller) SubmitCommand(ctx context.Context, gameID, viewerID string, req CommandRequest) (*Response, error) {
	g, err := c.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var messages []string
	saved := false

	switch {
	case g.Status == game.StatusAwaitingPlayers:
		messages = append(messages, c.cat.MustRender("game.awaiting_players", nil))

	case g.Status != game.StatusInProgress:
		messages = append(messages, c.cat.MustRender("game.over", nil))

	case !g.IsPlayersMove(viewerID):
		messages = append(messages, c.cat.MustRender("game.not_your_turn", nil))

	case strings.TrimSpace(req.Cmd) == "":
		messages = append(messages, c.cat.MustRender("game.invalid_command", nil))

	default:
		color := g.PlayerColor(viewerID)
		res := c.dispatch(g, color, req.Cmd)

		// The mover reports both clocks: their own stops, the opponent's
		// starts. The values only become durable with a committed command.
		if req.WhiteTimeLeft != nil {
			g.SetTimeLeft(game.White, *req.WhiteTimeLeft)
		}
		if req.BlackTimeLeft != nil {
			g.SetTimeLeft(game.Black, *req.BlackTimeLeft)
		}

		if res.Applied {
			if err := c.store.Update(ctx, g); err != nil {
				if errors.Is(err, game.ErrConflict) {
					messages = append(messages, c.cat.MustRender("sync.conflict", nil))
					obslog.L().Info("sync_conflict",
						zap.String("game_id", gameID),
						zap.String("viewer_id", viewerID),
						zap.String("cmd", req.Cmd),
					)
				} else {
					messages = append(messages, c.internalMessage(err))
				}
				if cur, lerr := c.store.Load(ctx, gameID); lerr == nil {
					g = cur
				}
			} else {
				saved = true
				messages = append(messages, res.Messages...)
				// Reload so the response reflects exactly what is durable.
				if cur, lerr := c.store.Load(ctx, gameID); lerr == nil {
					g = cur
				} else {
					messages = append(messages, c.internalMessage(lerr))
				}
				obslog.L().Info("sync_command",
					zap.String("game_id", g.ID),
					zap.String("viewer_id", viewerID),
					zap.String("cmd", req.Cmd),
					zap.String("status", string(g.Status)),
					zap.Int("ply", g.PlyCount()),
				)
				if g.Status.Finished() {
					c.notifyFinished(ctx, g)
				}
			}
		} else {
			messages = append(messages, res.Messages...)
			messages = append(messages, res.Errors...)
		}
	}

	snap := c.snapshot(ctx, g, viewerID, &messages)
	return &Response{Game: snap, Saved: saved, Messages: messages}, nil
}

func (c *Controller) dispatch(g *game.Game, color game.Color, cmd string) game.Result {
	if ctl, ok := game.ParseControl(cmd); ok {
		switch ctl {
		case game.CmdAbort:
			return c.engine.Abort(g, color)
		case game.CmdAcceptDraw:
			return c.engine.AcceptDraw(g, color)
		case game.CmdRefuseDraw:
			return c.engine.RefuseDraw(g, color)
		case game.CmdOfferDraw:
			return c.engine.OfferDraw(g, color)
		case game.CmdResign:
			return c.engine.Resign(g, color)
		}
	}
	return c.engine.ApplyMove(g, color, cmd)
}

// CreateGame seats the creator on the chosen side and leaves the game
// waiting for an opponent.
func (c *Controller) CreateGame(ctx context.Context, viewerID, viewerName, colorChoice string) (*game.Game, error) {
	now := time.Now()
	g := &game.Game{
		ID:            uuid.NewString(),
		Status:        game.StatusAwaitingPlayers,
		FEN:           "",
		MovesUCI:      []string{},
		MovesSAN:      []string{},
		WhiteTimeLeft: c.opts.InitialTimeLeft,
		BlackTimeLeft: c.opts.InitialTimeLeft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	side := game.White
	switch strings.ToLower(strings.TrimSpace(colorChoice)) {
	case "white", "w":
	case "black", "b":
		side = game.Black
	default:
		if n, _ := rand.Int(rand.Reader, big.NewInt(2)); n != nil && n.Int64() == 1 {
			side = game.Black
		}
	}
	if side == game.White {
		g.WhiteID, g.WhiteName = viewerID, viewerName
	} else {
		g.BlackID, g.BlackName = viewerID, viewerName
	}

	if err := c.store.Create(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("game_create",
		zap.String("game_id", g.ID),
		zap.String("creator", viewerID),
		zap.String("side", string(side)),
	)
	return g, nil
}

// JoinGame seats the second player and starts the game. The version CAS
// keeps two simultaneous joiners from both taking the empty seat.
func (c *Controller) JoinGame(ctx context.Context, gameID, viewerID, viewerName string) (*Response, error) {
	g, err := c.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}

	var messages []string
	saved := false

	switch {
	case g.Status != game.StatusAwaitingPlayers:
		messages = append(messages, c.cat.MustRender("game.already_started", nil))

	case g.PlayerColor(viewerID) != game.None:
		messages = append(messages, c.cat.MustRender("game.already_seated", nil))

	default:
		if g.WhiteID == "" {
			g.WhiteID, g.WhiteName = viewerID, viewerName
		} else {
			g.BlackID, g.BlackName = viewerID, viewerName
		}
		if g.Seated() {
			g.Status = game.StatusInProgress
		}
		if err := c.store.Update(ctx, g); err != nil {
			if errors.Is(err, game.ErrConflict) {
				messages = append(messages, c.cat.MustRender("sync.conflict", nil))
				if cur, lerr := c.store.Load(ctx, gameID); lerr == nil {
					g = cur
				}
			} else {
				messages = append(messages, c.internalMessage(err))
			}
		} else {
			saved = true
			obslog.L().Info("game_join",
				zap.String("game_id", g.ID),
				zap.String("viewer_id", viewerID),
				zap.String("status", string(g.Status)),
			)
		}
	}

	snap := c.snapshot(ctx, g, viewerID, &messages)
	return &Response{Game: snap, Saved: saved, Messages: messages}, nil
}

// snapshot joins the normalizer with the viewer's stored orientation. It
// always yields a usable snapshot; faults become messages.
func (c *Controller) snapshot(ctx context.Context, g *game.Game, viewerID string, messages *[]string) *board.Snapshot {
	flipped, err := c.sessions.Flipped(ctx, g.ID, viewerID)
	if err != nil {
		flipped = false
		obslog.L().Warn("session_read_error", zap.String("game_id", g.ID), zap.Error(err))
	}
	snap, err := c.normalizer.Normalize(g, flipped)
	if err != nil {
		*messages = append(*messages, c.internalMessage(err))
	}
	return snap
}

func (c *Controller) notifyFinished(ctx context.Context, g *game.Game) {
	if c.stats == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			obslog.L().Warn("stats_update_panic", zap.String("game_id", g.ID), zap.Any("panic", r))
		}
	}()
	if err := c.stats.OnGameFinished(ctx, g.Clone()); err != nil {
		obslog.L().Warn("stats_update_error", zap.String("game_id", g.ID), zap.Error(err))
	}
}

func (c *Controller) internalMessage(err error) string {
	obslog.L().Error("sync_internal_error", zap.Error(err))
	return c.cat.MustRender("sync.internal", map[string]any{"Error": err.Error()})
}
