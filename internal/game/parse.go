package game

import (
	"regexp"
	"strings"
)

// Clients submit moves in the long algebraic form the legacy board used
// (Pe2-e4, Qd1xd7, Pe7-e8=Q) or in plain UCI (e2e4, e7e8q).
var (
	longMoveRe = regexp.MustCompile(`^([kqrbnp]?)([a-h][1-8])[-x]([a-h][1-8])(?:=([qrbn]))?$`)
	uciMoveRe  = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)
)

// NormalizeMove converts a submitted move token into lowercase UCI.
// Matching is case-insensitive; the long form has an explicit from-square,
// so lowercasing the piece letter is unambiguous. The second return is
// false when the token matches neither form; callers may still try it as
// SAN before rejecting.
func NormalizeMove(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return "", false
	}
	if uciMoveRe.MatchString(s) {
		return s, true
	}
	m := longMoveRe.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	uci := m[2] + m[3]
	if m[4] != "" {
		uci += m[4]
	}
	return uci, true
}

// ControlCommand is a non-move command recognized by the controller.
type ControlCommand string

const (
	CmdAbort      ControlCommand = "abort"
	CmdAcceptDraw ControlCommand = "acceptdraw"
	CmdRefuseDraw ControlCommand = "refusedraw"
	CmdOfferDraw  ControlCommand = "offerdraw"
	CmdResign     ControlCommand = "resign"
)

// ParseControl recognizes a control token, case-insensitively.
func ParseControl(raw string) (ControlCommand, bool) {
	switch ControlCommand(strings.ToLower(strings.TrimSpace(raw))) {
	case CmdAbort:
		return CmdAbort, true
	case CmdAcceptDraw:
		return CmdAcceptDraw, true
	case CmdRefuseDraw:
		return CmdRefuseDraw, true
	case CmdOfferDraw:
		return CmdOfferDraw, true
	case CmdResign:
		return CmdResign, true
	}
	return "", false
}
