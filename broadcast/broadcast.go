// broadcast/broadcast.go
package broadcast

import (
	"errors"

	"github.com/wfunc/codebattle/room"

	"github.com/wfunc/codebattle/session"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrSessionNotFound = errors.New("session not found")
)

// 基于房间的广播器
type RoomBroadcaster struct {
	roomManager    *room.Manager
	sessionManager *session.Manager
}

var _ room.Broadcaster = (*RoomBroadcaster)(nil)

func NewRoomBroadcaster(roomManager *room.Manager, sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		roomManager:    roomManager,
		sessionManager: sessionManager,
	}
}

func (b *RoomBroadcaster) BroadcastToRoom(roomCode string, event string, data interface{}) error {
	rm, exists := b.roomManager.GetRoom(roomCode)
	if !exists {
		return ErrRoomNotFound
	}

	// Get a thread-safe copy of the session ids
	for _, sessionID := range rm.SessionIDs() {
		s, ok := b.sessionManager.Get(sessionID)
		if !ok {
			continue
		}
		if err := s.Send(event, data); err != nil {
			// 发送失败不终止广播，断线由读循环负责清理
			continue
		}
	}

	return nil
}

// SendToSession 向单个会话发送事件
func (b *RoomBroadcaster) SendToSession(sessionID string, event string, data interface{}) error {
	s, ok := b.sessionManager.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	return s.Send(event, data)
}

// BroadcastToAll 向所有在线会话广播，用于全服测试消息
func (b *RoomBroadcaster) BroadcastToAll(event string, data interface{}) error {
	for _, s := range b.sessionManager.All() {
		if err := s.Send(event, data); err != nil {
			continue
		}
	}
	return nil
}
