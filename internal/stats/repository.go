// Package stats records finished games and per-player aggregates in
// Postgres. The controller treats it as best-effort: a failure here is
// logged, never surfaced to the client.
package stats

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/vchess/vchess-go/internal/game"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// OnGameFinished archives the finished game and bumps both players'
// aggregates in one transaction. Replayed calls for the same game overwrite
// the archive row but do not double-count aggregates.
func (r *Repository) OnGameFinished(ctx context.Context, g *game.Game) error {
	if r == nil || r.db == nil || g == nil {
		return nil
	}
	if !g.Status.Finished() {
		return nil
	}

	result := resultToken(g)
	pgnResult := mapResultToPGN(result)
	pgn := buildPGN(g, pgnResult)
	movesUCIRaw, _ := json.Marshal(g.MovesUCI)
	movesSANRaw, _ := json.Marshal(g.MovesSAN)
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := `INSERT INTO vchess_games (
	    game_id, white_id, white_name, black_id, black_name,
	    result, result_method, moves_uci, moves_san, pgn,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
	  ) ON CONFLICT (game_id) DO UPDATE SET
	    result=EXCLUDED.result,
	    result_method=EXCLUDED.result_method,
	    moves_uci=EXCLUDED.moves_uci,
	    moves_san=EXCLUDED.moves_san,
	    pgn=EXCLUDED.pgn,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms
	  RETURNING (xmax = 0)`

	var inserted bool
	err = tx.QueryRowContext(ctx, insert,
		g.ID,
		g.WhiteID, g.WhiteName,
		g.BlackID, g.BlackName,
		result, string(g.Status), string(movesUCIRaw), string(movesSANRaw), pgn,
		g.CreatedAt, g.UpdatedAt, duration,
	).Scan(&inserted)
	if err != nil {
		return err
	}

	if inserted {
		if err := r.bumpPlayer(ctx, tx, g.WhiteID, result == "white", result == "black", result == "draw"); err != nil {
			return err
		}
		if err := r.bumpPlayer(ctx, tx, g.BlackID, result == "black", result == "white", result == "draw"); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *Repository) bumpPlayer(ctx context.Context, tx *sql.Tx, playerID string, won, lost, draw bool) error {
	if strings.TrimSpace(playerID) == "" {
		return nil
	}
	q := `INSERT INTO vchess_player_stats (player_id, played, wins, losses, draws, updated_at)
	  VALUES ($1, 1, $2, $3, $4, now())
	  ON CONFLICT (player_id) DO UPDATE SET
	    played = vchess_player_stats.played + 1,
	    wins = vchess_player_stats.wins + $2,
	    losses = vchess_player_stats.losses + $3,
	    draws = vchess_player_stats.draws + $4,
	    updated_at = now()`
	_, err := tx.ExecContext(ctx, q, playerID, boolToInt(won), boolToInt(lost), boolToInt(draw))
	return err
}

func resultToken(g *game.Game) string {
	switch g.Status {
	case game.StatusDraw:
		return "draw"
	case game.StatusAborted:
		return "aborted"
	}
	if g.Winner != "" && g.Winner == g.WhiteID {
		return "white"
	}
	if g.Winner != "" && g.Winner == g.BlackID {
		return "black"
	}
	return ""
}

func mapResultToPGN(result string) string {
	switch result {
	case "white":
		return "1-0"
	case "black":
		return "0-1"
	case "draw":
		return "1/2-1/2"
	default:
		return "*"
	}
}

func buildPGN(g *game.Game, pgnResult string) string {
	var b strings.Builder
	date := g.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"VChess\"]\n")
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.WhiteName)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.BlackName)))
	b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(string(g.Status))))
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", pgnResult))

	for i := 0; i < len(g.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(g.MovesSAN[i])))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(pgnResult)
	return b.String()
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
