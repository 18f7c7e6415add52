package httpapi

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vchess/vchess-go/internal/board"
	"github.com/vchess/vchess-go/internal/boardsync"
	"github.com/vchess/vchess-go/internal/game"
)

// bodyRequest is the single request shape both endpoints share.
// Pointers distinguish "absent" from zero values.
type bodyRequest struct {
	WhiteTimeLeft *float64 `json:"white_time_left"`
	BlackTimeLeft *float64 `json:"black_time_left"`
	BoardFlipped  *bool    `json:"board_flipped"`
	Cmd           string   `json:"cmd"`
}

type createRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type joinRequest struct {
	Name string `json:"name"`
}

// gameResponse preserves the legacy wire shape: messages newline-joined,
// saved present only when something was persisted.
type gameResponse struct {
	Game     *board.Snapshot `json:"game"`
	Saved    *bool           `json:"saved,omitempty"`
	Messages string          `json:"messages"`
}

type Handler struct {
	ctrl            *boardsync.Controller
	refreshInterval int
}

func NewHandler(ctrl *boardsync.Controller, refreshInterval int) *Handler {
	if refreshInterval <= 0 {
		refreshInterval = 5
	}
	return &Handler{ctrl: ctrl, refreshInterval: refreshInterval}
}

// Register mounts the API and the board page on the app.
func (h *Handler) Register(app *fiber.App) {
	api := app.Group("/api", EnsureViewerID())
	gameRoutes := api.Group("/game")
	gameRoutes.Post("/create", h.handleCreate)
	gameRoutes.Post("/join/:gameId", h.handleJoin)
	gameRoutes.Get("/:gameId", h.handleGetGame)
	gameRoutes.Post("/:gameId", h.handlePostGame)
	gameRoutes.Post("/:gameId/move", h.handleMove)

	app.Get("/game/:gameId", EnsureViewerID(), h.handleBoardPage)
}

func (h *Handler) handleCreate(c *fiber.Ctx) error {
	var req createRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	g, err := h.ctrl.CreateGame(c.Context(), viewerID(c), req.Name, req.Color)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"message": "Game created",
		"game_id": g.ID,
	})
}

func (h *Handler) handleJoin(c *fiber.Ctx) error {
	var req joinRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	resp, err := h.ctrl.JoinGame(c.Context(), c.Params("gameId"), viewerID(c), req.Name)
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(toWire(resp))
}

func (h *Handler) handleGetGame(c *fiber.Ctx) error {
	resp, err := h.ctrl.FetchState(c.Context(), c.Params("gameId"), viewerID(c), boardsync.StateRequest{})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(toWire(resp))
}

func (h *Handler) handlePostGame(c *fiber.Ctx) error {
	var req bodyRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	resp, err := h.ctrl.FetchState(c.Context(), c.Params("gameId"), viewerID(c), boardsync.StateRequest{
		WhiteTimeLeft: req.WhiteTimeLeft,
		BlackTimeLeft: req.BlackTimeLeft,
		BoardFlipped:  req.BoardFlipped,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(toWire(resp))
}

func (h *Handler) handleMove(c *fiber.Ctx) error {
	var req bodyRequest
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, err)
	}
	resp, err := h.ctrl.SubmitCommand(c.Context(), c.Params("gameId"), viewerID(c), boardsync.CommandRequest{
		Cmd:           req.Cmd,
		WhiteTimeLeft: req.WhiteTimeLeft,
		BlackTimeLeft: req.BlackTimeLeft,
	})
	if err != nil {
		return mapError(c, err)
	}
	return c.JSON(toWire(resp))
}

func toWire(resp *boardsync.Response) gameResponse {
	out := gameResponse{
		Game:     resp.Game,
		Messages: strings.Join(resp.Messages, "\n"),
	}
	if resp.Saved {
		saved := true
		out.Saved = &saved
	}
	return out
}

func parseBody(c *fiber.Ctx, out any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func mapError(c *fiber.Ctx, err error) error {
	if errors.Is(err, game.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "game not found",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}
