// models/models.go
package models

import (
	"time"
)

// RewardKind 奖励效果类型（封闭枚举）
type RewardKind string

const (
	RewardAddTime            RewardKind = "add_time"
	RewardRemoveTimeRandom   RewardKind = "remove_time_random"
	RewardRemoveTimeAll      RewardKind = "remove_time_all"
	RewardRemoveTimeTargeted RewardKind = "remove_time_targeted"
	RewardFlashbangTargeted  RewardKind = "flashbang_targeted"
)

// RequiresTarget 该效果是否需要玩家先选定目标（两阶段奖励）
func (k RewardKind) RequiresTarget() bool {
	return k == RewardRemoveTimeTargeted || k == RewardFlashbangTargeted
}

// Reward 解题奖励描述，Kind 决定 Amount 的含义
type Reward struct {
	Kind   RewardKind `json:"kind"`
	Amount int        `json:"amount"` // 秒数
}

// ChallengeKind 卡牌附加约束类型
type ChallengeKind string

const (
	ChallengeTimeLimit  ChallengeKind = "time_limit"
	ChallengeComplexity ChallengeKind = "complexity"
	ChallengeLineLimit  ChallengeKind = "line_limit"
)

// Challenge 卡牌附加约束，仅用于前端展示，判题不强制
type Challenge struct {
	Kind  ChallengeKind `json:"kind"`
	Value string        `json:"value"`
}

// Signature 题目函数签名
type Signature struct {
	Name    string   `json:"name"`
	Params  []string `json:"params"`
	Display string   `json:"display"`
}

// TestCase 单个测试用例，Input 按参数名传参
type TestCase struct {
	Input    map[string]interface{} `json:"input"`
	Expected interface{}            `json:"expectedOutput"`
}

// Problem 题目模板
type Problem struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Difficulty  string     `json:"difficulty"`
	Signature   Signature  `json:"functionSignature"`
	TestCases   []TestCase `json:"testCases"`
}

// Card 发到玩家手中的单次使用卡牌
type Card struct {
	ID        string     `json:"id"`
	Problem   Problem    `json:"problem"`
	Reward    *Reward    `json:"reward,omitempty"`
	Challenge *Challenge `json:"challenge,omitempty"`
}

// TestResult 单个测试用例的判题结果
type TestResult struct {
	Passed   bool        `json:"passed"`
	Input    interface{} `json:"input"`
	Expected interface{} `json:"expected"`
	Actual   interface{} `json:"actual"`
	Error    string      `json:"error,omitempty"`
}

// TargetOption 目标选择列表中的一项
type TargetOption struct {
	PlayerID      string `json:"playerId"`
	Username      string `json:"username"`
	TimeRemaining int    `json:"timeRemaining"` // 剩余秒数
}

// AffectedPlayer 群体效果中被波及的玩家
type AffectedPlayer struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

// PlayerSnapshot 玩家状态快照（对外广播用，不含会话信息）
type PlayerSnapshot struct {
	ID            string  `json:"id"`
	Username      string  `json:"username"`
	TimerEndTime  *int64  `json:"timerEndTime"` // 毫秒时间戳，开局前为 null
	IsEliminated  bool    `json:"isEliminated"`
	EliminatedAt  *int64  `json:"eliminatedAt"` // 毫秒时间戳，未淘汰为 null
	CurrentCardID *string `json:"currentProblem"`
	Cards         []Card  `json:"cards"`
	Solved        int     `json:"solved"`
}

// RoomSnapshot 房间完整快照
type RoomSnapshot struct {
	RoomCode   string                    `json:"roomCode"`
	GameStatus string                    `json:"gameStatus"`
	Players    map[string]PlayerSnapshot `json:"players"`
	Winner     *string                   `json:"winner"`
}

// MatchRecord 对局归档记录
type MatchRecord struct {
	RoomCode        string        `json:"room_code"`
	WinnerID        string        `json:"winner_id"`
	WinnerName      string        `json:"winner_name"`
	Players         []MatchPlayer `json:"players"`
	StartedAt       time.Time     `json:"started_at"`
	EndedAt         time.Time     `json:"ended_at"`
	DurationSeconds int           `json:"duration_seconds"`
}

// MatchPlayer 对局记录中的玩家条目
type MatchPlayer struct {
	PlayerID     string `json:"player_id"`
	Username     string `json:"username"`
	Solved       int    `json:"solved"`
	Eliminated   bool   `json:"eliminated"`
	EliminatedAt int64  `json:"eliminated_at,omitempty"` // 毫秒时间戳，0 表示未淘汰
}
