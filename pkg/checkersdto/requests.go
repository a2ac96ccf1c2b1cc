package checkersdto

// MoveRequest is the MAKE_MOVE payload. Path is set only for multi-jumps and
// lists the landing squares in order.
type MoveRequest struct {
	From   string   `json:"from"`
	To     string   `json:"to"`
	Player string   `json:"player"`
	Path   []string `json:"path,omitempty"`
}

// NicknameRequest is the body of the player/game bootstrap endpoints.
type NicknameRequest struct {
	Nickname string `json:"nickname"`
}
