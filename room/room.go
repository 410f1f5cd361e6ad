// room/room.go
package room

import (
	"errors"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/wfunc/codebattle/models"
	"github.com/wfunc/codebattle/state"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrEmptyRoom        = errors.New("no players in game")
	ErrNotHost          = errors.New("only host can start game")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrPlayerEliminated = errors.New("player is eliminated")
	ErrCardNotFound     = errors.New("card not found")
	ErrCardNotSelected  = errors.New("card is not currently selected")
	ErrTimerNotRunning  = errors.New("timer not running")
	ErrRewardPending    = errors.New("another targeted reward is pending")
)

// Player 房间内的玩家。可变字段由所属 Room 的锁保护
type Player struct {
	ID            string
	Username      string
	SessionID     string
	TimerEnd      time.Time // 零值表示计时未开始
	Eliminated    bool
	EliminatedAt  time.Time // 零值表示未淘汰
	CurrentCardID string
	Cards         []models.Card
	PendingReward *models.Reward
	Solved        int
}

func NewPlayer(id, username, sessionID string) *Player {
	return &Player{
		ID:        id,
		Username:  username,
		SessionID: sessionID,
	}
}

// TimeRemaining 距淘汰的剩余时长，最小为 0
func (p *Player) TimeRemaining(now time.Time) time.Duration {
	if p.TimerEnd.IsZero() || !p.TimerEnd.After(now) {
		return 0
	}
	return p.TimerEnd.Sub(now)
}

func (p *Player) card(cardID string) (models.Card, bool) {
	for _, c := range p.Cards {
		if c.ID == cardID {
			return c, true
		}
	}
	return models.Card{}, false
}

// snapshot 在房间锁内调用
func (p *Player) snapshot() models.PlayerSnapshot {
	snap := models.PlayerSnapshot{
		ID:           p.ID,
		Username:     p.Username,
		IsEliminated: p.Eliminated,
		Cards:        append([]models.Card(nil), p.Cards...),
		Solved:       p.Solved,
	}
	if !p.TimerEnd.IsZero() {
		ms := p.TimerEnd.UnixMilli()
		snap.TimerEndTime = &ms
	}
	if !p.EliminatedAt.IsZero() {
		ms := p.EliminatedAt.UnixMilli()
		snap.EliminatedAt = &ms
	}
	if p.CurrentCardID != "" {
		id := p.CurrentCardID
		snap.CurrentCardID = &id
	}
	return snap
}

// Room 一局对战: 玩家名单、阶段机、胜者。房间码即房间身份
type Room struct {
	Code       string
	MaxPlayers int // 0 表示不限
	CreatedAt  time.Time

	players     map[string]*Player
	order       []string // 加入顺序，首位是房主
	phase       *state.Machine
	winnerID    string
	startedAt   time.Time
	gradings    int // 挂起中的判题数，非零时房间不可删除
	broadcaster Broadcaster
	mutex       sync.RWMutex
}

// NewRoom 创建一个大厅态房间
func NewRoom(code string, maxPlayers int, broadcaster Broadcaster) *Room {
	return &Room{
		Code:        code,
		MaxPlayers:  maxPlayers,
		CreatedAt:   time.Now(),
		players:     make(map[string]*Player),
		phase:       state.NewMachine(),
		broadcaster: broadcaster,
	}
}

// Broadcast 向房间内所有会话广播事件
func (r *Room) Broadcast(event string, data interface{}) error {
	if r.broadcaster == nil {
		return nil
	}
	return r.broadcaster.BroadcastToRoom(r.Code, event, data)
}

func (r *Room) Phase() state.Phase {
	return r.phase.Current()
}

// AddPlayer 加入玩家。仅大厅阶段允许加入
func (r *Room) AddPlayer(p *Player) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.phase.Is(state.PhaseLobby) {
		return ErrGameInProgress
	}
	if r.MaxPlayers > 0 && len(r.players) >= r.MaxPlayers {
		return ErrRoomFull
	}

	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	return nil
}

// RemovePlayer 移除玩家，返回被移除的玩家
func (r *Room) RemovePlayer(playerID string) (*Player, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.players[playerID]
	if !exists {
		return nil, false
	}

	delete(r.players, playerID)
	r.order = lo.Filter(r.order, func(id string, _ int) bool {
		return id != playerID
	})
	return p, true
}

func (r *Room) GetPlayer(playerID string) (*Player, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	p, exists := r.players[playerID]
	return p, exists
}

// HostID 房主，即最早加入且仍在房间的玩家
func (r *Room) HostID() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if len(r.order) == 0 {
		return ""
	}
	return r.order[0]
}

func (r *Room) PlayerCount() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.players)
}

// SessionIDs 返回房间内所有玩家会话ID的线程安全副本
func (r *Room) SessionIDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.order))
	for _, playerID := range r.order {
		if p, ok := r.players[playerID]; ok {
			ids = append(ids, p.SessionID)
		}
	}
	return ids
}

// Deletable 房间无人且无判题挂起时才允许删除
func (r *Room) Deletable() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.players) == 0 && r.gradings == 0
}

func (r *Room) GradingsInFlight() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.gradings
}

func (r *Room) WinnerID() string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.winnerID
}

// Start 由房主开局: 大厅 → 对局，所有玩家拿到计时器和一手牌
func (r *Room) Start(actorID string, now time.Time, initial time.Duration, dealer Dealer, handSize int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.players) == 0 {
		return ErrEmptyRoom
	}
	if r.order[0] != actorID {
		return ErrNotHost
	}
	if err := r.phase.Transition(state.PhasePlaying); err != nil {
		return err
	}

	deadline := now.Add(initial)
	for _, p := range r.players {
		p.TimerEnd = deadline
		p.Cards = dealer.DealHand(handSize)
	}
	r.startedAt = now
	return nil
}

// EvaluateWinCondition 胜负判定。恰余一名未淘汰玩家时对局结束、该玩家获胜；
// 全员淘汰则无胜者结束。对已结束房间重复调用是空操作
func (r *Room) EvaluateWinCondition() (ended bool, winner *Player) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return false, nil
	}

	active := lo.Filter(lo.Values(r.players), func(p *Player, _ int) bool {
		return !p.Eliminated
	})

	switch {
	case len(active) == 1:
		if err := r.phase.Transition(state.PhaseEnded); err != nil {
			return false, nil
		}
		r.winnerID = active[0].ID
		return true, active[0]
	case len(active) == 0 && len(r.players) > 0:
		if err := r.phase.Transition(state.PhaseEnded); err != nil {
			return false, nil
		}
		return true, nil
	}
	return false, nil
}

// Eliminate 标记玩家淘汰。只在对局中生效，重复上报是空操作
func (r *Room) Eliminate(playerID string, now time.Time) (*Player, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return nil, false
	}

	p, exists := r.players[playerID]
	if !exists || p.Eliminated {
		return nil, false
	}

	p.Eliminated = true
	p.EliminatedAt = now
	return p, true
}

// SelectCard 选中手牌中的一张卡
func (r *Room) SelectCard(playerID, cardID string) (models.Card, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.players[playerID]
	if !exists {
		return models.Card{}, ErrPlayerNotFound
	}

	card, found := p.card(cardID)
	if !found {
		return models.Card{}, ErrCardNotFound
	}

	p.CurrentCardID = cardID
	return card, nil
}

// BeginGrading 校验提交并登记一次挂起的判题。
// 登记期间房间不会被删除，结束后必须调用 FinishGrading
func (r *Room) BeginGrading(playerID, cardID string) (models.Card, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.players[playerID]
	if !exists {
		return models.Card{}, ErrPlayerNotFound
	}
	if p.Eliminated {
		return models.Card{}, ErrPlayerEliminated
	}

	card, found := p.card(cardID)
	if !found {
		return models.Card{}, ErrCardNotFound
	}
	if p.CurrentCardID != cardID {
		return models.Card{}, ErrCardNotSelected
	}

	r.gradings++
	return card, nil
}

// FinishGrading 判题结束后调用，成败皆然
func (r *Room) FinishGrading() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.gradings > 0 {
		r.gradings--
	}
}

// CompleteSolve 判题通过后落账: 移除该卡、清除选中、计数并补发新卡。
// 判题挂起期间房间状态可能已被并发修改，失效时返回 false，调用方静默放弃
func (r *Room) CompleteSolve(playerID, cardID string, newCard models.Card) (*models.Reward, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.phase.Is(state.PhasePlaying) {
		return nil, false
	}

	p, exists := r.players[playerID]
	if !exists || p.Eliminated {
		return nil, false
	}

	card, found := p.card(cardID)
	if !found || p.CurrentCardID != cardID {
		return nil, false
	}

	p.Cards = lo.Filter(p.Cards, func(c models.Card, _ int) bool {
		return c.ID != cardID
	})
	p.CurrentCardID = ""
	p.Solved++
	p.Cards = append(p.Cards, newCard)

	return card.Reward, true
}

// AddTime 给玩家计时器加时，无上限
func (r *Room) AddTime(playerID string, d time.Duration) (time.Time, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.players[playerID]
	if !exists {
		return time.Time{}, ErrPlayerNotFound
	}
	if p.TimerEnd.IsZero() {
		return time.Time{}, ErrTimerNotRunning
	}

	p.TimerEnd = p.TimerEnd.Add(d)
	return p.TimerEnd, nil
}

// ReduceTime 扣减玩家计时器，截止时刻不早于 now
func (r *Room) ReduceTime(playerID string, d time.Duration, now time.Time) (time.Time, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.players[playerID]
	if !exists {
		return time.Time{}, ErrPlayerNotFound
	}
	if p.TimerEnd.IsZero() {
		return time.Time{}, ErrTimerNotRunning
	}

	end := p.TimerEnd.Add(-d)
	if end.Before(now) {
		end = now
	}
	p.TimerEnd = end
	return end, nil
}

// Candidates 奖励可作用的目标: 未淘汰且非行动者本人，按加入顺序。
// debug 模式下无人可选时允许以自己为目标
func (r *Room) Candidates(actorID string, now time.Time, debug bool) []models.TargetOption {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	options := lo.FilterMap(r.order, func(id string, _ int) (models.TargetOption, bool) {
		p := r.players[id]
		if p == nil || p.Eliminated || p.ID == actorID {
			return models.TargetOption{}, false
		}
		return models.TargetOption{
			PlayerID:      p.ID,
			Username:      p.Username,
			TimeRemaining: int(p.TimeRemaining(now).Seconds()),
		}, true
	})

	if debug && len(options) == 0 {
		if p, ok := r.players[actorID]; ok && !p.Eliminated {
			options = append(options, models.TargetOption{
				PlayerID:      p.ID,
				Username:      p.Username,
				TimeRemaining: int(p.TimeRemaining(now).Seconds()),
			})
		}
	}
	return options
}

// SetPendingReward 记录待选目标的奖励，同一玩家至多一个
func (r *Room) SetPendingReward(playerID string, reward models.Reward) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.players[playerID]
	if !exists {
		return ErrPlayerNotFound
	}
	if p.PendingReward != nil {
		return ErrRewardPending
	}

	rc := reward
	p.PendingReward = &rc
	return nil
}

// TakePendingReward 取出并无条件清除玩家的待选奖励
func (r *Room) TakePendingReward(playerID string) (models.Reward, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	p, exists := r.players[playerID]
	if !exists || p.PendingReward == nil {
		return models.Reward{}, false
	}

	reward := *p.PendingReward
	p.PendingReward = nil
	return reward, true
}

// Snapshot 房间完整快照，不含会话信息
func (r *Room) Snapshot() models.RoomSnapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	players := make(map[string]models.PlayerSnapshot, len(r.players))
	for id, p := range r.players {
		players[id] = p.snapshot()
	}

	snap := models.RoomSnapshot{
		RoomCode:   r.Code,
		GameStatus: string(r.phase.Current()),
		Players:    players,
	}
	if r.winnerID != "" {
		w := r.winnerID
		snap.Winner = &w
	}
	return snap
}

// PlayerSnapshots 按加入顺序的玩家快照
func (r *Room) PlayerSnapshots() map[string]models.PlayerSnapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	players := make(map[string]models.PlayerSnapshot, len(r.players))
	for id, p := range r.players {
		players[id] = p.snapshot()
	}
	return players
}

// MatchRecord 生成对局归档记录，在对局结束时调用
func (r *Room) MatchRecord(now time.Time) models.MatchRecord {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record := models.MatchRecord{
		RoomCode:  r.Code,
		WinnerID:  r.winnerID,
		StartedAt: r.startedAt,
		EndedAt:   now,
		Players: lo.Map(lo.Values(r.players), func(p *Player, _ int) models.MatchPlayer {
			mp := models.MatchPlayer{
				PlayerID:   p.ID,
				Username:   p.Username,
				Solved:     p.Solved,
				Eliminated: p.Eliminated,
			}
			if !p.EliminatedAt.IsZero() {
				mp.EliminatedAt = p.EliminatedAt.UnixMilli()
			}
			return mp
		}),
	}
	if w, ok := r.players[r.winnerID]; ok {
		record.WinnerName = w.Username
	}
	if !r.startedAt.IsZero() {
		record.DurationSeconds = int(now.Sub(r.startedAt).Seconds())
	}
	return record
}
