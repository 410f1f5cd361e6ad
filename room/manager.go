// room/manager.go
package room

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
)

// 房间码字符表，去掉易混淆的 0/O/1/I
const codeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomInfo 管理接口用的房间概要
type RoomInfo struct {
	Code    string `json:"code"`
	Players int    `json:"players"`
	Phase   string `json:"phase"`
}

// Manager 管理所有房间，房间码在存活房间内唯一
type Manager struct {
	rooms      map[string]*Room
	mutex      sync.RWMutex
	codeLength int
	maxPlayers int
}

// NewRoomManager 创建房间管理器
func NewRoomManager(codeLength, maxPlayers int) *Manager {
	if codeLength <= 0 {
		codeLength = 6
	}
	return &Manager{
		rooms:      make(map[string]*Room),
		codeLength: codeLength,
		maxPlayers: maxPlayers,
	}
}

// NormalizeCode 房间码规范形式: 去空白并转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom 生成唯一房间码并创建大厅态房间。码冲突时重试
func (m *Manager) CreateRoom(broadcaster Broadcaster) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for {
		code := generateCode(m.codeLength)
		if _, exists := m.rooms[code]; exists {
			continue
		}
		room := NewRoom(code, m.maxPlayers, broadcaster)
		m.rooms[code] = room
		return room
	}
}

// GetRoom 按房间码查找，调用方须先 NormalizeCode
func (m *Manager) GetRoom(code string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[code]
	return room, exists
}

// RemoveRoomIfEmpty 在房间可删除（无人且无判题挂起）时移除之
func (m *Manager) RemoveRoomIfEmpty(code string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[code]
	if !exists || !room.Deletable() {
		return false
	}

	delete(m.rooms, code)
	return true
}

// Count 存活房间数
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// TotalPlayers 所有房间的玩家总数
func (m *Manager) TotalPlayers() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	total := 0
	for _, room := range m.rooms {
		total += room.PlayerCount()
	}
	return total
}

// List 所有房间的概要
func (m *Manager) List() []RoomInfo {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]RoomInfo, 0, len(m.rooms))
	for code, room := range m.rooms {
		out = append(out, RoomInfo{
			Code:    code,
			Players: room.PlayerCount(),
			Phase:   string(room.Phase()),
		})
	}
	return out
}

func generateCode(n int) string {
	b := make([]byte, n)
	max := big.NewInt(int64(len(codeChars)))
	for i := range b {
		idx, _ := rand.Int(rand.Reader, max)
		b[i] = codeChars[idx.Int64()]
	}
	return string(b)
}
