package checkersdto

// RestartStatus holds both peers' rematch flags for one game.
type RestartStatus struct {
	GameID        string `json:"gameID"`
	NicknameWhite string `json:"nicknameW"`
	NicknameBlack string `json:"nicknameB"`
	RestartWhite  bool   `json:"restartW"`
	RestartBlack  bool   `json:"restartB"`
}

// BothWantRestart reports the agreed state.
func (s RestartStatus) BothWantRestart() bool { return s.RestartWhite && s.RestartBlack }

// Flag returns the flag for team (WHITE or BLACK).
func (s RestartStatus) Flag(team string) bool {
	switch team {
	case "WHITE":
		return s.RestartWhite
	case "BLACK":
		return s.RestartBlack
	default:
		return false
	}
}

// WithFlag returns a copy with team's flag set to v.
func (s RestartStatus) WithFlag(team string, v bool) RestartStatus {
	switch team {
	case "WHITE":
		s.RestartWhite = v
	case "BLACK":
		s.RestartBlack = v
	}
	return s
}

// Cleared returns a copy with both flags false.
func (s RestartStatus) Cleared() RestartStatus {
	s.RestartWhite, s.RestartBlack = false, false
	return s
}
