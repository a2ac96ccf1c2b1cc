package checkersdto

// Role values returned by the game access endpoint.
const (
	RolePlayer    = "PLAYER"
	RoleSpectator = "SPECTATOR"
)

// Player is a participant as the server reports it. Team is WHITE or BLACK.
type Player struct {
	Nickname string `json:"nickname"`
	Team     string `json:"team,omitempty"`
}

// GameState is the authoritative game snapshot pushed over the real-time
// channel and returned by the REST endpoints. Field names follow the server.
type GameState struct {
	ID                   string     `json:"id"`
	Board                [][]string `json:"board"`
	Turn                 string     `json:"turno"`
	WhiteMen             int        `json:"pedineW"`
	BlackMen             int        `json:"pedineB"`
	WhiteKings           int        `json:"damaW"`
	BlackKings           int        `json:"damaB"`
	GameOver             bool       `json:"partitaTerminata"`
	Winner               string     `json:"vincitore"`
	Players              []Player   `json:"players"`
	History              []string   `json:"cronologiaMosse"`
	LastMultiCapturePath []string   `json:"lastMultiCapturePath,omitempty"`
	Chat                 string     `json:"chat"`
	SpectatorCount       int        `json:"spectatorCount"`
}

// WhiteCount is the total of white men and kings.
func (g *GameState) WhiteCount() int { return g.WhiteMen + g.WhiteKings }

// BlackCount is the total of black men and kings.
func (g *GameState) BlackCount() int { return g.BlackMen + g.BlackKings }

// TeamOf returns the team of nickname, or "" when not seated.
func (g *GameState) TeamOf(nickname string) string {
	for _, p := range g.Players {
		if p.Nickname == nickname {
			return p.Team
		}
	}
	return ""
}

// GameAccess is the role-aware wrapper returned by GET /api/games/{id}.
type GameAccess struct {
	GameID    string    `json:"gameId"`
	Role      string    `json:"role"`
	GameState GameState `json:"gameState"`
	Message   string    `json:"message,omitempty"`
}

func (a *GameAccess) IsSpectator() bool { return a.Role == RoleSpectator }
