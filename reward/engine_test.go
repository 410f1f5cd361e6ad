package reward

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/wfunc/codebattle/models"
	"github.com/wfunc/codebattle/room"
)

type stubBroadcaster struct{}

func (s *stubBroadcaster) BroadcastToRoom(roomCode string, event string, data interface{}) error {
	return nil
}

func (s *stubBroadcaster) SendToSession(sessionID string, event string, data interface{}) error {
	return nil
}

type stubDealer struct {
	n int
}

func (d *stubDealer) Deal() models.Card {
	d.n++
	return models.Card{ID: fmt.Sprintf("card-%d", d.n)}
}

func (d *stubDealer) DealHand(n int) []models.Card {
	cards := make([]models.Card, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, d.Deal())
	}
	return cards
}

func newPlayingRoom(t *testing.T, playerIDs ...string) *room.Room {
	t.Helper()
	rm := room.NewRoom("RWDTST", 0, &stubBroadcaster{})
	for i, id := range playerIDs {
		p := room.NewPlayer(id, fmt.Sprintf("user%d", i+1), fmt.Sprintf("sess%d", i+1))
		if err := rm.AddPlayer(p); err != nil {
			t.Fatalf("setup: AddPlayer failed: %v", err)
		}
	}
	if err := rm.Start(playerIDs[0], time.Now(), 300*time.Second, &stubDealer{}, 5); err != nil {
		t.Fatalf("setup: Start failed: %v", err)
	}
	return rm
}

func newEngine(seed int64) *Engine {
	return NewEngine(rand.New(rand.NewSource(seed)))
}

func TestApply_RequiresPlayingPhase(t *testing.T) {
	rm := room.NewRoom("LOBBY1", 0, &stubBroadcaster{})
	rm.AddPlayer(room.NewPlayer("p1", "user1", "sess1"))

	engine := newEngine(1)
	_, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardAddTime, Amount: 30}, false)
	if err != ErrNotPlaying {
		t.Fatalf("Expected ErrNotPlaying in lobby, got: %v", err)
	}
}

func TestApply_AddTime(t *testing.T) {
	rm := newPlayingRoom(t, "p1", "p2")
	engine := newEngine(1)

	p1, _ := rm.GetPlayer("p1")
	before := p1.TimerEnd

	out, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardAddTime, Amount: 30}, false)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Status != StatusApplied {
		t.Errorf("Expected StatusApplied, got %s", out.Status)
	}
	if out.AffectedID != "p1" {
		t.Errorf("add_time should affect the actor, got %s", out.AffectedID)
	}
	if !p1.TimerEnd.Equal(before.Add(30 * time.Second)) {
		t.Errorf("Expected deadline %v, got %v", before.Add(30*time.Second), p1.TimerEnd)
	}
}

func TestApply_RemoveTimeRandom_NeverPicksActor(t *testing.T) {
	for seed := int64(0); seed < 10; seed++ {
		rm := newPlayingRoom(t, "p1", "p2")
		engine := newEngine(seed)

		out, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeRandom, Amount: 20}, false)
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if out.Status != StatusApplied {
			t.Fatalf("Expected StatusApplied, got %s", out.Status)
		}
		if out.AffectedID != "p2" {
			t.Fatalf("seed %d: random target must exclude the actor, got %s", seed, out.AffectedID)
		}
	}
}

func TestApply_RemoveTime_ClampsAtNow(t *testing.T) {
	rm := newPlayingRoom(t, "p1", "p2")
	engine := newEngine(3)
	start := time.Now()

	// 3600s 远超 300s 初始时间，必然触发钳制
	_, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeRandom, Amount: 3600}, false)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	p2, _ := rm.GetPlayer("p2")
	if p2.TimerEnd.Before(start) {
		t.Errorf("Clamped deadline %v must not be before the operation, started at %v", p2.TimerEnd, start)
	}
	if p2.TimerEnd.After(time.Now()) {
		t.Errorf("Clamped deadline %v must not be in the future", p2.TimerEnd)
	}
}

func TestApply_RemoveTimeRandom_NoCandidates(t *testing.T) {
	rm := newPlayingRoom(t, "p1")
	engine := newEngine(4)

	out, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeRandom, Amount: 20}, false)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Status != StatusNoCandidates {
		t.Errorf("Expected StatusNoCandidates alone in the room, got %s", out.Status)
	}
}

func TestApply_RemoveTimeAll(t *testing.T) {
	rm := newPlayingRoom(t, "p1", "p2", "p3")
	engine := newEngine(5)

	p1, _ := rm.GetPlayer("p1")
	actorBefore := p1.TimerEnd

	out, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeAll, Amount: 30}, false)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Status != StatusApplied {
		t.Fatalf("Expected StatusApplied, got %s", out.Status)
	}
	if len(out.Affected) != 2 {
		t.Fatalf("Expected 2 affected players, got %d", len(out.Affected))
	}
	for _, a := range out.Affected {
		if a.PlayerID == "p1" {
			t.Error("Actor must not be affected by remove_time_all")
		}
	}
	if !p1.TimerEnd.Equal(actorBefore) {
		t.Error("Actor's deadline must be untouched by remove_time_all")
	}
}

func TestApply_Targeted_OpensPendingPhase(t *testing.T) {
	rm := newPlayingRoom(t, "p1", "p2", "p3")
	engine := newEngine(6)

	out, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50}, false)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Status != StatusPending {
		t.Fatalf("Expected StatusPending, got %s", out.Status)
	}
	if len(out.Targets) != 2 {
		t.Fatalf("Expected 2 target options, got %d", len(out.Targets))
	}

	// 挂起期间不得再挂起第二个
	_, err = engine.Apply(rm, "p1", models.Reward{Kind: models.RewardFlashbangTargeted, Amount: 1}, false)
	if err != room.ErrRewardPending {
		t.Errorf("Expected ErrRewardPending for a second two-phase reward, got: %v", err)
	}

	// 目标在此期间不被改动
	p2, _ := rm.GetPlayer("p2")
	if p2.TimeRemaining(time.Now()) < 295*time.Second {
		t.Error("Pending reward must not mutate targets before resolution")
	}
}

func TestResolveTarget_RemoveTimeTargeted(t *testing.T) {
	rm := newPlayingRoom(t, "p1", "p2")
	engine := newEngine(7)

	if _, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50}, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	p2, _ := rm.GetPlayer("p2")
	before := p2.TimerEnd

	res, err := engine.ResolveTarget(rm, "p1", "p2")
	if err != nil {
		t.Fatalf("ResolveTarget failed: %v", err)
	}
	if res.Kind != models.RewardRemoveTimeTargeted || res.TargetID != "p2" {
		t.Errorf("Unexpected resolution %+v", res)
	}
	if res.TargetName != "user2" || res.ActorName != "user1" {
		t.Errorf("Resolution should carry both usernames, got %+v", res)
	}
	if !p2.TimerEnd.Equal(before.Add(-50 * time.Second)) {
		t.Errorf("Expected target deadline reduced by 50s, got %v (was %v)", p2.TimerEnd, before)
	}

	// 挂起已清除
	if _, err := engine.ResolveTarget(rm, "p1", "p2"); err != ErrNoPendingReward {
		t.Errorf("Expected ErrNoPendingReward after resolution, got: %v", err)
	}
}

func TestResolveTarget_Flashbang_NoStateChange(t *testing.T) {
	rm := newPlayingRoom(t, "p1", "p2")
	engine := newEngine(8)

	if _, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardFlashbangTargeted, Amount: 1}, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	p2, _ := rm.GetPlayer("p2")
	before := p2.TimerEnd

	res, err := engine.ResolveTarget(rm, "p1", "p2")
	if err != nil {
		t.Fatalf("ResolveTarget failed: %v", err)
	}
	if res.Kind != models.RewardFlashbangTargeted {
		t.Errorf("Expected flashbang resolution, got %s", res.Kind)
	}
	if res.TargetSessionID != "sess2" {
		t.Errorf("Flashbang needs the target's session for a single send, got %q", res.TargetSessionID)
	}
	if !p2.TimerEnd.Equal(before) {
		t.Error("Flashbang must not change the target's deadline")
	}
}

func TestResolveTarget_Errors(t *testing.T) {
	engine := newEngine(9)

	// 没有挂起
	rm := newPlayingRoom(t, "p1", "p2")
	if _, err := engine.ResolveTarget(rm, "p1", "p2"); err != ErrNoPendingReward {
		t.Fatalf("Expected ErrNoPendingReward, got: %v", err)
	}

	// 无效目标也会清掉挂起
	if _, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50}, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := engine.ResolveTarget(rm, "p1", "ghost"); err != ErrInvalidTarget {
		t.Fatalf("Expected ErrInvalidTarget for unknown player, got: %v", err)
	}
	if _, err := engine.ResolveTarget(rm, "p1", "p2"); err != ErrNoPendingReward {
		t.Errorf("Pending reward must be cleared even on invalid resolution, got: %v", err)
	}

	// 淘汰者不可为目标
	if _, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50}, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	rm.Eliminate("p2", time.Now())
	if _, err := engine.ResolveTarget(rm, "p1", "p2"); err != ErrTargetEliminated {
		t.Errorf("Expected ErrTargetEliminated for eliminated player, got: %v", err)
	}

	// 有他人可选时不得选自己
	rm2 := newPlayingRoom(t, "a1", "a2")
	if _, err := engine.Apply(rm2, "a1", models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50}, false); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := engine.ResolveTarget(rm2, "a1", "a1"); err != ErrInvalidTarget {
		t.Errorf("Expected ErrInvalidTarget for self target, got: %v", err)
	}
}

func TestDebug_SelfTargetWhenAlone(t *testing.T) {
	rm := newPlayingRoom(t, "p1")
	engine := newEngine(10)

	out, err := engine.Apply(rm, "p1", models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50}, true)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Status != StatusPending {
		t.Fatalf("Expected StatusPending with debug self-target, got %s", out.Status)
	}
	if len(out.Targets) != 1 || out.Targets[0].PlayerID != "p1" {
		t.Fatalf("Expected self as the only debug target, got %+v", out.Targets)
	}

	p1, _ := rm.GetPlayer("p1")
	before := p1.TimerEnd

	res, err := engine.ResolveTarget(rm, "p1", "p1")
	if err != nil {
		t.Fatalf("Debug self resolution should be allowed when alone, got: %v", err)
	}
	if res.TargetID != "p1" {
		t.Errorf("Expected self target, got %s", res.TargetID)
	}
	if !p1.TimerEnd.Equal(before.Add(-50 * time.Second)) {
		t.Errorf("Expected own deadline reduced by 50s, got %v", p1.TimerEnd)
	}
}
