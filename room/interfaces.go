package room

import (
	"github.com/wfunc/codebattle/models"
)

// Broadcaster defines the interface for emitting events to players.
// This is defined here to break the import cycle between room and broadcast.
type Broadcaster interface {
	BroadcastToRoom(roomCode string, event string, data interface{}) error
	SendToSession(sessionID string, event string, data interface{}) error
}

// Dealer 发牌接口，由 catalog.Factory 实现
type Dealer interface {
	Deal() models.Card
	DealHand(n int) []models.Card
}
