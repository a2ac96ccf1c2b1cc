package checkersdto

// Error codes carried by DomainError. They match the codes the server and the
// real-time channel use.
const (
	CodeConnectionError      = "CONNECTION_ERROR"
	CodeTransportError       = "TRANSPORT_ERROR"
	CodeNotConnected         = "NOT_CONNECTED"
	CodeMaxReconnectAttempts = "MAX_RECONNECT_ATTEMPTS"
	CodeServerError          = "SERVER_ERROR"
)

type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "checkers client error"
}

// Terminal reports whether the error needs a user-initiated retry.
func (e DomainError) Terminal() bool { return e.Code == CodeMaxReconnectAttempts }
