package httpapi

import (
	"bytes"
	"encoding/json"
	"html/template"

	"github.com/gofiber/fiber/v2"

	"github.com/vchess/vchess-go/internal/boardsync"
)

// The board page is a mounting shell: the JS client reads the embedded
// settings blob, renders the position, and polls the JSON API from there.
var boardPageTpl = template.Must(template.New("board").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>VChess</title>
</head>
<body>
  <div id="vchess-board"></div>
  <script>window.vchessSettings = {{.Settings}};</script>
  <script src="/assets/board.js"></script>
</body>
</html>
`))

func (h *Handler) handleBoardPage(c *fiber.Ctx) error {
	resp, err := h.ctrl.FetchState(c.Context(), c.Params("gameId"), viewerID(c), boardsync.StateRequest{})
	if err != nil {
		return mapError(c, err)
	}

	settings, err := json.Marshal(fiber.Map{
		"game":             resp.Game,
		"refresh_interval": h.refreshInterval,
	})
	if err != nil {
		return mapError(c, err)
	}

	var buf bytes.Buffer
	if err := boardPageTpl.Execute(&buf, map[string]any{
		"Settings": template.JS(settings),
	}); err != nil {
		return mapError(c, err)
	}
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}
