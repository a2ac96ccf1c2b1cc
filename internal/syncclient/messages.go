package syncclient

import "github.com/ebrancati/OnlineCheckers.org/pkg/checkersdto"

// Outbound frame types.
const (
	TypeSubscribeGame       = "SUBSCRIBE_GAME"
	TypeMakeMove            = "MAKE_MOVE"
	TypeSendMessage         = "SEND_MESSAGE"
	TypeUpdateRestartStatus = "UPDATE_RESTART_STATUS"
	TypeResetGame           = "RESET_GAME"
)

// Inbound frame types.
const (
	TypeGameStateUpdate     = "GAME_STATE_UPDATE"
	TypeRestartStatusUpdate = "RESTART_STATUS_UPDATE"
	TypePlayerConnected     = "PLAYER_CONNECTED"
	TypePlayerDisconnected  = "PLAYER_DISCONNECTED"
	TypeError               = "ERROR"
)

type frameHeader struct {
	Type     string `json:"type"`
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
}

type makeMoveFrame struct {
	frameHeader
	From   string   `json:"from"`
	To     string   `json:"to"`
	Player string   `json:"player"`
	Path   []string `json:"path,omitempty"`
}

type chatFrame struct {
	frameHeader
	Text string `json:"text"`
}

type restartFrame struct {
	frameHeader
	RestartW  bool   `json:"restartW"`
	RestartB  bool   `json:"restartB"`
	NicknameW string `json:"nicknameW"`
	NicknameB string `json:"nicknameB"`
}

// inbound is the union of every frame the server pushes.
type inbound struct {
	Type          string                     `json:"type"`
	GameState     *checkersdto.GameState     `json:"gameState,omitempty"`
	RestartStatus *checkersdto.RestartStatus `json:"restartStatus,omitempty"`
	PlayerID      string                     `json:"playerId,omitempty"`
	GameID        string                     `json:"gameId,omitempty"`
	Message       string                     `json:"message,omitempty"`
	Code          string                     `json:"code,omitempty"`
}

// PlayerConnection reports a peer joining or leaving the game channel.
type PlayerConnection struct {
	PlayerID  string
	GameID    string
	Connected bool
}
