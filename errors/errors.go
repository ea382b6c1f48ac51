package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrEmptyWords     = fmt.Errorf("no words have been found")
	ErrInvalidPayload = fmt.Errorf("invalid event payload")

	ErrBlankName          = fmt.Errorf("username cannot be blank")
	ErrInvalidName        = fmt.Errorf("invalid username")
	ErrNameTaken          = fmt.Errorf("username is already taken")
	ErrNegotiationFailed  = fmt.Errorf("username negotiation failed")
	ErrSessionClosed      = fmt.Errorf("session is closed")
	ErrOutboxFull         = fmt.Errorf("session outbox is full")
	ErrHeartbeatTimeout   = fmt.Errorf("heartbeat timeout")
	ErrReceiverOffline    = fmt.Errorf("receiver is not online")
	ErrLobbyNotFound      = fmt.Errorf("lobby not found")
	ErrLobbyExists        = fmt.Errorf("lobby already exists")
	ErrBlankLobby         = fmt.Errorf("lobby name cannot be blank")
	ErrInvalidMessage     = fmt.Errorf("invalid message")
	ErrUnknownMessageType = fmt.Errorf("unknown message type")
	ErrUnsupportedFrame   = fmt.Errorf("unsupported websocket frame")
)
