// reward/engine.go
package reward

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/wfunc/codebattle/models"
	"github.com/wfunc/codebattle/room"
	"github.com/wfunc/codebattle/state"
)

var (
	ErrNotPlaying       = errors.New("game is not in progress")
	ErrNoPendingReward  = errors.New("no pending reward")
	ErrInvalidTarget    = errors.New("invalid target")
	ErrTargetEliminated = errors.New("cannot target eliminated player")
	ErrUnknownReward    = errors.New("unknown reward kind")
)

// Status Apply 的结果状态。调用方无须预知哪些效果是两阶段的，看返回即可
type Status int

const (
	StatusApplied Status = iota
	StatusPending
	StatusNoCandidates
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusPending:
		return "pending"
	case StatusNoCandidates:
		return "no_candidates"
	}
	return "unknown"
}

// Outcome Apply 的结果与应广播的数据
type Outcome struct {
	Status       Status
	Reward       models.Reward
	ActorID      string
	AffectedID   string                  // add_time / remove_time_random 的受影响玩家
	AffectedName string
	Affected     []models.AffectedPlayer // remove_time_all 波及的玩家
	Targets      []models.TargetOption   // Pending 时的候选目标
}

// Resolution 两阶段奖励的结算结果
type Resolution struct {
	Kind            models.RewardKind
	Amount          int
	ActorID         string
	ActorName       string
	TargetID        string
	TargetName      string
	TargetSessionID string
}

// Engine 奖励效果引擎。状态都在 Room 里，引擎只持有随机源
type Engine struct {
	rng   *rand.Rand
	mutex sync.Mutex
}

// NewEngine 创建引擎。rng 为 nil 时使用时间种子
func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{rng: rng}
}

// Apply 结算一张已解出卡牌的奖励。
// 立即生效的效果同步落账；需要选目标的效果只挂起并返回候选列表。
// debug 仅供联调，允许在无他人可选时以自己为目标
func (e *Engine) Apply(rm *room.Room, actorID string, reward models.Reward, debug bool) (Outcome, error) {
	if rm.Phase() != state.PhasePlaying {
		return Outcome{}, ErrNotPlaying
	}

	out := Outcome{Status: StatusApplied, Reward: reward, ActorID: actorID}
	now := time.Now()

	switch reward.Kind {
	case models.RewardAddTime:
		if _, err := rm.AddTime(actorID, seconds(reward.Amount)); err != nil {
			return Outcome{}, err
		}
		out.AffectedID = actorID
		return out, nil

	case models.RewardRemoveTimeRandom:
		candidates := rm.Candidates(actorID, now, debug)
		if len(candidates) == 0 {
			out.Status = StatusNoCandidates
			return out, nil
		}
		target := candidates[e.intn(len(candidates))]
		if _, err := rm.ReduceTime(target.PlayerID, seconds(reward.Amount), now); err != nil {
			return Outcome{}, err
		}
		out.AffectedID = target.PlayerID
		out.AffectedName = target.Username
		return out, nil

	case models.RewardRemoveTimeAll:
		candidates := rm.Candidates(actorID, now, debug)
		if len(candidates) == 0 {
			out.Status = StatusNoCandidates
			return out, nil
		}
		affected := make([]models.AffectedPlayer, 0, len(candidates))
		for _, c := range candidates {
			if _, err := rm.ReduceTime(c.PlayerID, seconds(reward.Amount), now); err != nil {
				continue
			}
			affected = append(affected, models.AffectedPlayer{
				PlayerID: c.PlayerID,
				Username: c.Username,
			})
		}
		out.Affected = affected
		return out, nil

	case models.RewardRemoveTimeTargeted, models.RewardFlashbangTargeted:
		candidates := rm.Candidates(actorID, now, debug)
		if len(candidates) == 0 {
			out.Status = StatusNoCandidates
			return out, nil
		}
		if err := rm.SetPendingReward(actorID, reward); err != nil {
			return Outcome{}, err
		}
		out.Status = StatusPending
		out.Targets = candidates
		return out, nil
	}

	return Outcome{}, ErrUnknownReward
}

// ResolveTarget 结算挂起的两阶段奖励。
// 无论目标是否有效，挂起的奖励都会被清除
func (e *Engine) ResolveTarget(rm *room.Room, actorID, targetID string) (Resolution, error) {
	reward, ok := rm.TakePendingReward(actorID)
	if !ok {
		return Resolution{}, ErrNoPendingReward
	}

	target, exists := rm.GetPlayer(targetID)
	if !exists {
		return Resolution{}, ErrInvalidTarget
	}
	if target.Eliminated {
		return Resolution{}, ErrTargetEliminated
	}

	now := time.Now()
	if targetID == actorID {
		// 只有联调时挂起的自选（房里没有别人）才放行
		if len(rm.Candidates(actorID, now, false)) > 0 {
			return Resolution{}, ErrInvalidTarget
		}
	}

	res := Resolution{
		Kind:            reward.Kind,
		Amount:          reward.Amount,
		ActorID:         actorID,
		TargetID:        targetID,
		TargetName:      target.Username,
		TargetSessionID: target.SessionID,
	}
	if actor, ok := rm.GetPlayer(actorID); ok {
		res.ActorName = actor.Username
	}

	switch reward.Kind {
	case models.RewardRemoveTimeTargeted:
		if _, err := rm.ReduceTime(targetID, seconds(reward.Amount), now); err != nil {
			return Resolution{}, err
		}
	case models.RewardFlashbangTargeted:
		// 纯前端效果，不改房间状态
	default:
		return Resolution{}, ErrUnknownReward
	}

	return res, nil
}

func (e *Engine) intn(n int) int {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.rng.Intn(n)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
