package boardsync

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/vchess/vchess-go/internal/game"
	"github.com/vchess/vchess-go/internal/msgcat"
	"github.com/vchess/vchess-go/internal/session"
)

type stubStats struct {
	calls []string
	fail  bool
}

func (s *stubStats) OnGameFinished(ctx context.Context, g *game.Game) error {
	s.calls = append(s.calls, g.ID)
	if s.fail {
		return errors.New("stats backend down")
	}
	return nil
}

// conflictOnce makes the first Update lose the CAS race.
type conflictOnce struct {
	game.Store
	fired bool
}

func (c *conflictOnce) Update(ctx context.Context, g *game.Game) error {
	if !c.fired {
		c.fired = true
		return game.ErrConflict
	}
	return c.Store.Update(ctx, g)
}

func newTestController(t *testing.T, store game.Store) (*Controller, *stubStats) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	ctrl := NewController(store, game.NewRulesEngine(), session.NewMemoryStore(), cat, Options{InitialTimeLeft: 600})
	stats := &stubStats{}
	ctrl.AttachStatistics(stats)
	return ctrl, stats
}

func seedGame(t *testing.T, store game.Store, status game.Status) *game.Game {
	t.Helper()
	g := &game.Game{
		ID:            "g1",
		Status:        status,
		WhiteID:       "alice",
		WhiteName:     "Alice",
		BlackID:       "bob",
		BlackName:     "Bob",
		MovesUCI:      []string{},
		MovesSAN:      []string{},
		WhiteTimeLeft: 600,
		BlackTimeLeft: 600,
	}
	if status == game.StatusAwaitingPlayers {
		g.BlackID, g.BlackName = "", ""
	}
	if err := store.Create(context.Background(), g); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return g
}

func fptr(f float64) *float64 { return &f }
func bptr(b bool) *bool       { return &b }

func TestSubmitCommandAwaitingPlayers(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusAwaitingPlayers)
	ctx := context.Background()

	resp, err := ctrl.SubmitCommand(ctx, "g1", "alice", CommandRequest{Cmd: "Pe2-e4"})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if resp.Saved {
		t.Fatalf("nothing may be persisted for an awaiting game")
	}
	if !containsMessage(resp.Messages, "Game is awaiting players") {
		t.Fatalf("expected awaiting-players message, got %v", resp.Messages)
	}
	got, _ := store.Load(ctx, "g1")
	if got.Version != 0 || got.PlyCount() != 0 {
		t.Fatalf("awaiting game was mutated: %+v", got)
	}
}

func TestSubmitCommandFinishedGame(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	g := seedGame(t, store, game.StatusCheckmate)
	ctx := context.Background()

	resp, err := ctrl.SubmitCommand(ctx, g.ID, "alice", CommandRequest{Cmd: "Pe2-e4"})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if resp.Saved || !containsMessage(resp.Messages, "Game is over") {
		t.Fatalf("expected game-over rejection, got saved=%v messages=%v", resp.Saved, resp.Messages)
	}
}

func TestSubmitCommandNotYourTurn(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	before, _ := store.Load(ctx, "g1")
	resp, err := ctrl.SubmitCommand(ctx, "g1", "bob", CommandRequest{Cmd: "Pe7-e5"})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if resp.Saved || !containsMessage(resp.Messages, "Not your turn to play") {
		t.Fatalf("expected turn rejection, got saved=%v messages=%v", resp.Saved, resp.Messages)
	}
	after, _ := store.Load(ctx, "g1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("turn rejection mutated state")
	}
}

func TestSubmitCommandSpectatorRejected(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)

	resp, err := ctrl.SubmitCommand(context.Background(), "g1", "carol", CommandRequest{Cmd: "Pe2-e4"})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if resp.Saved || !containsMessage(resp.Messages, "Not your turn to play") {
		t.Fatalf("spectators must not move: %v", resp.Messages)
	}
}

func TestSubmitCommandEmptyCmd(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)

	resp, err := ctrl.SubmitCommand(context.Background(), "g1", "alice", CommandRequest{Cmd: "  "})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if resp.Saved || !containsMessage(resp.Messages, "Invalid move command") {
		t.Fatalf("expected invalid-command message, got %v", resp.Messages)
	}
}

func TestSubmitCommandAppliesMove(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	resp, err := ctrl.SubmitCommand(ctx, "g1", "alice", CommandRequest{
		Cmd:           "Pe2-e4",
		WhiteTimeLeft: fptr(590),
		BlackTimeLeft: fptr(600),
	})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if !resp.Saved {
		t.Fatalf("expected saved=true: %v", resp.Messages)
	}
	if len(resp.Game.Moves) != 1 || resp.Game.Moves[0].W != "e4" || resp.Game.Moves[0].B != "" {
		t.Fatalf("move should appear as ply 1 white entry: %+v", resp.Game.Moves)
	}
	if resp.Game.Status != game.StatusInProgress {
		t.Fatalf("status should stay in progress, got %s", resp.Game.Status)
	}

	got, _ := store.Load(ctx, "g1")
	if got.PlyCount() != 1 || got.WhiteTimeLeft != 590 || got.BlackTimeLeft != 600 {
		t.Fatalf("durable state mismatch: %+v", got)
	}
}

func TestSubmitCommandRejectedMoveIsAtomic(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	before, _ := store.Load(ctx, "g1")
	resp, err := ctrl.SubmitCommand(ctx, "g1", "alice", CommandRequest{
		Cmd:           "Pe2-e5",
		WhiteTimeLeft: fptr(100),
		BlackTimeLeft: fptr(100),
	})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if resp.Saved {
		t.Fatalf("rejected move must not persist")
	}
	if len(resp.Messages) == 0 {
		t.Fatalf("engine errors should surface as messages")
	}
	after, _ := store.Load(ctx, "g1")
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rejected move left partial state: %+v vs %+v", before, after)
	}

	// The game must stay playable: the same player's legal move commits.
	resp, err = ctrl.SubmitCommand(ctx, "g1", "alice", CommandRequest{Cmd: "Pe2-e4"})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if !resp.Saved {
		t.Fatalf("legal move after a rejection should commit: %v", resp.Messages)
	}
}

func TestSubmitCommandCheckmateTriggersStatisticsOnce(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, stats := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	for _, step := range []struct{ viewer, cmd string }{
		{"alice", "Pf2-f3"},
		{"bob", "Pe7-e5"},
		{"alice", "Pg2-g4"},
		{"bob", "Qd8-h4"},
	} {
		resp, err := ctrl.SubmitCommand(ctx, "g1", step.viewer, CommandRequest{Cmd: step.cmd})
		if err != nil {
			t.Fatalf("SubmitCommand(%s): %v", step.cmd, err)
		}
		if !resp.Saved {
			t.Fatalf("move %s not saved: %v", step.cmd, resp.Messages)
		}
	}

	got, _ := store.Load(ctx, "g1")
	if got.Status != game.StatusCheckmate || got.Winner != "bob" {
		t.Fatalf("expected checkmate for bob, got %+v", got)
	}
	if len(stats.calls) != 1 || stats.calls[0] != "g1" {
		t.Fatalf("statistics should fire exactly once, got %v", stats.calls)
	}
}

func TestStatisticsFailureIsSwallowed(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, stats := newTestController(t, store)
	stats.fail = true
	seedGame(t, store, game.StatusInProgress)

	resp, err := ctrl.SubmitCommand(context.Background(), "g1", "alice", CommandRequest{Cmd: "resign"})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if !resp.Saved {
		t.Fatalf("resign should commit regardless of statistics failure")
	}
	for _, m := range resp.Messages {
		if strings.Contains(m, "stats") || strings.Contains(m, "down") {
			t.Fatalf("statistics failure leaked into messages: %v", resp.Messages)
		}
	}
}

func TestSubmitCommandConflictIsRetryable(t *testing.T) {
	inner := game.NewMemoryStore()
	store := &conflictOnce{Store: inner}
	ctrl, _ := newTestController(t, store)
	seedGame(t, inner, game.StatusInProgress)
	ctx := context.Background()

	resp, err := ctrl.SubmitCommand(ctx, "g1", "alice", CommandRequest{Cmd: "Pe2-e4"})
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if resp.Saved {
		t.Fatalf("a lost race must not report saved")
	}
	if !containsMessage(resp.Messages, "please retry") {
		t.Fatalf("expected retryable conflict message, got %v", resp.Messages)
	}

	// Retrying succeeds.
	resp, err = ctrl.SubmitCommand(ctx, "g1", "alice", CommandRequest{Cmd: "Pe2-e4"})
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !resp.Saved {
		t.Fatalf("retry should commit: %v", resp.Messages)
	}
}

func TestFetchStateIdempotent(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	a, err := ctrl.FetchState(ctx, "g1", "alice", StateRequest{})
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	b, err := ctrl.FetchState(ctx, "g1", "alice", StateRequest{})
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("plain FetchState is not idempotent")
	}
	got, _ := store.Load(ctx, "g1")
	if got.Version != 0 {
		t.Fatalf("plain FetchState mutated the game: version=%d", got.Version)
	}
}

func TestFetchStateUnknownGame(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)

	if _, err := ctrl.FetchState(context.Background(), "nope", "alice", StateRequest{}); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchStateClockIsolation(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	// Alice is white and to move: only her clock may change, even though she
	// reports a bogus value for black.
	if _, err := ctrl.FetchState(ctx, "g1", "alice", StateRequest{
		WhiteTimeLeft: fptr(100),
		BlackTimeLeft: fptr(1),
	}); err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	got, _ := store.Load(ctx, "g1")
	if got.WhiteTimeLeft != 100 {
		t.Fatalf("own clock not persisted: %v", got.WhiteTimeLeft)
	}
	if got.BlackTimeLeft != 600 {
		t.Fatalf("opponent clock must be untouchable: %v", got.BlackTimeLeft)
	}

	// Bob is not to move: his report changes nothing.
	if _, err := ctrl.FetchState(ctx, "g1", "bob", StateRequest{
		WhiteTimeLeft: fptr(1),
		BlackTimeLeft: fptr(1),
	}); err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	got, _ = store.Load(ctx, "g1")
	if got.WhiteTimeLeft != 100 || got.BlackTimeLeft != 600 {
		t.Fatalf("off-turn clock report persisted: %+v", got)
	}
}

func TestFetchStateTimeoutFinishesGame(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, stats := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	if _, err := ctrl.FetchState(ctx, "g1", "alice", StateRequest{
		WhiteTimeLeft: fptr(0),
		BlackTimeLeft: fptr(500),
	}); err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	got, _ := store.Load(ctx, "g1")
	if got.Status != game.StatusTimeout || got.Winner != "bob" {
		t.Fatalf("expected timeout win for bob, got %+v", got)
	}
	if len(stats.calls) != 1 {
		t.Fatalf("timeout should trigger statistics once, got %v", stats.calls)
	}
}

func TestBoardFlipPersistsAcrossFetches(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	seedGame(t, store, game.StatusInProgress)
	ctx := context.Background()

	resp, err := ctrl.FetchState(ctx, "g1", "bob", StateRequest{BoardFlipped: bptr(true)})
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if !resp.Game.BoardFlipped {
		t.Fatalf("flip not reflected immediately")
	}

	resp, err = ctrl.FetchState(ctx, "g1", "bob", StateRequest{})
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if !resp.Game.BoardFlipped {
		t.Fatalf("flip not persisted across fetches")
	}

	// Other viewers keep their own orientation.
	resp, err = ctrl.FetchState(ctx, "g1", "alice", StateRequest{})
	if err != nil {
		t.Fatalf("FetchState: %v", err)
	}
	if resp.Game.BoardFlipped {
		t.Fatalf("flip leaked across viewers")
	}
}

func TestCreateAndJoinStartGame(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	ctx := context.Background()

	g, err := ctrl.CreateGame(ctx, "alice", "Alice", "white")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	if g.Status != game.StatusAwaitingPlayers || g.WhiteID != "alice" {
		t.Fatalf("unexpected created game: %+v", g)
	}
	if g.WhiteTimeLeft != 600 || g.BlackTimeLeft != 600 {
		t.Fatalf("initial clocks not applied: %+v", g)
	}

	resp, err := ctrl.JoinGame(ctx, g.ID, "bob", "Bob")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if !resp.Saved {
		t.Fatalf("join should persist: %v", resp.Messages)
	}
	got, _ := store.Load(ctx, g.ID)
	if got.Status != game.StatusInProgress || got.BlackID != "bob" {
		t.Fatalf("join did not start the game: %+v", got)
	}

	// A third participant cannot take a seat.
	resp, err = ctrl.JoinGame(ctx, g.ID, "carol", "Carol")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if resp.Saved || !containsMessage(resp.Messages, "already started") {
		t.Fatalf("third join should be rejected: %v", resp.Messages)
	}
}

func TestJoinOwnGameRejected(t *testing.T) {
	store := game.NewMemoryStore()
	ctrl, _ := newTestController(t, store)
	ctx := context.Background()

	g, err := ctrl.CreateGame(ctx, "alice", "Alice", "black")
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	resp, err := ctrl.JoinGame(ctx, g.ID, "alice", "Alice")
	if err != nil {
		t.Fatalf("JoinGame: %v", err)
	}
	if resp.Saved || !containsMessage(resp.Messages, "already seated") {
		t.Fatalf("creator must not fill both seats: %v", resp.Messages)
	}
}

func containsMessage(messages []string, fragment string) bool {
	for _, m := range messages {
		if strings.Contains(m, fragment) {
			return true
		}
	}
	return false
}
