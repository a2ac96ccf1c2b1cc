package checkersdto

// BotMoveRequest asks the move selector for the computer's next move.
type BotMoveRequest struct {
	Board        [][]string `json:"board"`
	PlayerColor  string     `json:"playerColor"`
	Difficulty   int        `json:"difficulty"`
	BoardHistory []string   `json:"boardHistory"`
}

// BotMoveResponse is the selected move. Path lists landing squares of a
// multi-jump, in order, when the move is a chain.
type BotMoveResponse struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Path []string `json:"path,omitempty"`
}
