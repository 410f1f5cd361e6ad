package room

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/wfunc/codebattle/models"
)

// MockBroadcaster is a test double for the Broadcaster interface.
type MockBroadcaster struct{}

func (m *MockBroadcaster) BroadcastToRoom(roomCode string, event string, data interface{}) error {
	return nil
}

func (m *MockBroadcaster) SendToSession(sessionID string, event string, data interface{}) error {
	return nil
}

// stubDealer hands out sequentially numbered cards.
type stubDealer struct {
	n int
}

func (d *stubDealer) Deal() models.Card {
	d.n++
	return models.Card{
		ID:     fmt.Sprintf("card-%d", d.n),
		Reward: &models.Reward{Kind: models.RewardAddTime, Amount: 30},
	}
}

func (d *stubDealer) DealHand(n int) []models.Card {
	cards := make([]models.Card, 0, n)
	for i := 0; i < n; i++ {
		cards = append(cards, d.Deal())
	}
	return cards
}

func newTestRoom(t *testing.T, playerIDs ...string) *Room {
	t.Helper()
	rm := NewRoom("TESTRM", 0, &MockBroadcaster{})
	for i, id := range playerIDs {
		p := NewPlayer(id, fmt.Sprintf("user%d", i+1), fmt.Sprintf("sess%d", i+1))
		if err := rm.AddPlayer(p); err != nil {
			t.Fatalf("setup: AddPlayer(%s) failed: %v", id, err)
		}
	}
	return rm
}

func startTestRoom(t *testing.T, rm *Room, host string) {
	t.Helper()
	if err := rm.Start(host, time.Now(), 300*time.Second, &stubDealer{}, 5); err != nil {
		t.Fatalf("setup: Start failed: %v", err)
	}
}

func TestRoomManager_CreateAndGetRoom(t *testing.T) {
	manager := NewRoomManager(6, 8)

	rm := manager.CreateRoom(&MockBroadcaster{})
	if rm == nil {
		t.Fatal("CreateRoom should not return nil")
	}

	if len(rm.Code) != 6 {
		t.Errorf("Expected a 6 character room code, got %q", rm.Code)
	}
	for _, ch := range rm.Code {
		if !strings.ContainsRune(codeChars, ch) {
			t.Errorf("Room code %q contains character %q outside the alphabet", rm.Code, ch)
		}
	}

	retrieved, exists := manager.GetRoom(rm.Code)
	if !exists {
		t.Fatal("GetRoom should find the created room")
	}
	if retrieved != rm {
		t.Error("GetRoom should return the same room instance")
	}
}

func TestRoomManager_UniqueCodes(t *testing.T) {
	manager := NewRoomManager(6, 0)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		rm := manager.CreateRoom(&MockBroadcaster{})
		if seen[rm.Code] {
			t.Fatalf("Duplicate room code %s", rm.Code)
		}
		seen[rm.Code] = true
	}
}

func TestNormalizeCode(t *testing.T) {
	if got := NormalizeCode("  abc123 "); got != "ABC123" {
		t.Errorf("Expected ABC123, got %q", got)
	}
}

func TestRoom_AddPlayer_HostOrder(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2", "p3")

	if rm.PlayerCount() != 3 {
		t.Fatalf("Expected player count to be 3, got %d", rm.PlayerCount())
	}
	if rm.HostID() != "p1" {
		t.Errorf("Expected host to be the first joiner p1, got %s", rm.HostID())
	}

	// 房主离开后顺位继承
	rm.RemovePlayer("p1")
	if rm.HostID() != "p2" {
		t.Errorf("Expected host to pass to p2, got %s", rm.HostID())
	}
}

func TestRoom_AddPlayer_Full(t *testing.T) {
	rm := NewRoom("FULLRM", 1, &MockBroadcaster{})

	if err := rm.AddPlayer(NewPlayer("p1", "user1", "sess1")); err != nil {
		t.Fatalf("Failed to add the first player: %v", err)
	}
	if err := rm.AddPlayer(NewPlayer("p2", "user2", "sess2")); err != ErrRoomFull {
		t.Fatalf("Expected ErrRoomFull, got: %v", err)
	}
	if rm.PlayerCount() != 1 {
		t.Errorf("Expected player count to be 1, got %d", rm.PlayerCount())
	}
}

func TestRoom_AddPlayer_AfterStart(t *testing.T) {
	rm := newTestRoom(t, "p1")
	startTestRoom(t, rm, "p1")

	if err := rm.AddPlayer(NewPlayer("p2", "user2", "sess2")); err != ErrGameInProgress {
		t.Errorf("Expected ErrGameInProgress when joining a started room, got: %v", err)
	}
}

func TestRoom_Start(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2")

	now := time.Now()
	if err := rm.Start("p1", now, 300*time.Second, &stubDealer{}, 5); err != nil {
		t.Fatalf("Start by host should succeed, got: %v", err)
	}

	if rm.Phase() != "playing" {
		t.Errorf("Expected phase playing, got %s", rm.Phase())
	}

	wantDeadline := now.Add(300 * time.Second)
	for _, id := range []string{"p1", "p2"} {
		p, _ := rm.GetPlayer(id)
		if !p.TimerEnd.Equal(wantDeadline) {
			t.Errorf("Player %s: expected deadline %v, got %v", id, wantDeadline, p.TimerEnd)
		}
		if len(p.Cards) != 5 {
			t.Errorf("Player %s: expected 5 cards, got %d", id, len(p.Cards))
		}
	}
}

func TestRoom_Start_Errors(t *testing.T) {
	empty := NewRoom("EMPTY1", 0, &MockBroadcaster{})
	if err := empty.Start("ghost", time.Now(), time.Minute, &stubDealer{}, 5); err != ErrEmptyRoom {
		t.Errorf("Expected ErrEmptyRoom, got: %v", err)
	}

	rm := newTestRoom(t, "p1", "p2")
	if err := rm.Start("p2", time.Now(), time.Minute, &stubDealer{}, 5); err != ErrNotHost {
		t.Errorf("Expected ErrNotHost for non-host, got: %v", err)
	}

	startTestRoom(t, rm, "p1")
	if err := rm.Start("p1", time.Now(), time.Minute, &stubDealer{}, 5); err == nil {
		t.Error("Expected restarting an in-progress room to fail")
	}
}

func TestRoom_WinCondition_LastPlayerStanding(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2", "p3")
	startTestRoom(t, rm, "p1")
	now := time.Now()

	if ended, _ := rm.EvaluateWinCondition(); ended {
		t.Fatal("Win condition should not trigger with 3 active players")
	}

	rm.Eliminate("p1", now)
	if ended, _ := rm.EvaluateWinCondition(); ended {
		t.Fatal("Win condition should not trigger with 2 active players")
	}

	rm.Eliminate("p2", now)
	ended, winner := rm.EvaluateWinCondition()
	if !ended {
		t.Fatal("Win condition should trigger with exactly 1 active player")
	}
	if winner == nil || winner.ID != "p3" {
		t.Fatalf("Expected winner p3, got %+v", winner)
	}
	if rm.Phase() != "ended" {
		t.Errorf("Expected phase ended, got %s", rm.Phase())
	}
	if rm.WinnerID() != "p3" {
		t.Errorf("Expected winner id p3, got %s", rm.WinnerID())
	}

	// 再次判定是空操作
	if ended, _ := rm.EvaluateWinCondition(); ended {
		t.Error("Re-evaluating an ended room should be a no-op")
	}
}

func TestRoom_WinCondition_NoSurvivors(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2")
	startTestRoom(t, rm, "p1")
	now := time.Now()

	rm.Eliminate("p1", now)
	rm.Eliminate("p2", now)

	ended, winner := rm.EvaluateWinCondition()
	if !ended {
		t.Fatal("Expected the room to end with zero survivors")
	}
	if winner != nil {
		t.Errorf("Expected no winner, got %+v", winner)
	}
}

func TestRoom_Eliminate(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2")

	// 大厅阶段不生效
	if _, changed := rm.Eliminate("p1", time.Now()); changed {
		t.Error("Eliminate should be a no-op in the lobby phase")
	}

	startTestRoom(t, rm, "p1")
	now := time.Now()

	p, changed := rm.Eliminate("p1", now)
	if !changed {
		t.Fatal("Expected elimination to apply")
	}
	if !p.Eliminated || !p.EliminatedAt.Equal(now) {
		t.Errorf("Expected eliminated at %v, got %+v", now, p)
	}

	if _, changed := rm.Eliminate("p1", now.Add(time.Second)); changed {
		t.Error("Repeated elimination should be a no-op")
	}
}

func TestRoom_TimeOperations(t *testing.T) {
	rm := newTestRoom(t, "p1")

	// 开局前计时器未运行
	if _, err := rm.AddTime("p1", 30*time.Second); err != ErrTimerNotRunning {
		t.Errorf("Expected ErrTimerNotRunning before start, got: %v", err)
	}

	startTestRoom(t, rm, "p1")
	p, _ := rm.GetPlayer("p1")
	base := p.TimerEnd

	end, err := rm.AddTime("p1", 30*time.Second)
	if err != nil {
		t.Fatalf("AddTime failed: %v", err)
	}
	if !end.Equal(base.Add(30 * time.Second)) {
		t.Errorf("Expected deadline %v, got %v", base.Add(30*time.Second), end)
	}

	now := time.Now()
	end, err = rm.ReduceTime("p1", time.Hour, now)
	if err != nil {
		t.Fatalf("ReduceTime failed: %v", err)
	}
	if end.Before(now) {
		t.Errorf("Reduced deadline %v must not go below now %v", end, now)
	}
	if !end.Equal(now) {
		t.Errorf("Expected the deadline clamped exactly to now, got %v", end)
	}
}

func TestRoom_SelectCard(t *testing.T) {
	rm := newTestRoom(t, "p1")
	startTestRoom(t, rm, "p1")

	p, _ := rm.GetPlayer("p1")
	cardID := p.Cards[0].ID

	card, err := rm.SelectCard("p1", cardID)
	if err != nil {
		t.Fatalf("SelectCard failed: %v", err)
	}
	if card.ID != cardID {
		t.Errorf("Expected card %s, got %s", cardID, card.ID)
	}
	if p.CurrentCardID != cardID {
		t.Errorf("Expected current card %s, got %s", cardID, p.CurrentCardID)
	}

	if _, err := rm.SelectCard("p1", "no-such-card"); err != ErrCardNotFound {
		t.Errorf("Expected ErrCardNotFound, got: %v", err)
	}
	if _, err := rm.SelectCard("ghost", cardID); err != ErrPlayerNotFound {
		t.Errorf("Expected ErrPlayerNotFound, got: %v", err)
	}
}

func TestRoom_GradingFlow(t *testing.T) {
	rm := newTestRoom(t, "p1")
	startTestRoom(t, rm, "p1")

	p, _ := rm.GetPlayer("p1")
	cardID := p.Cards[0].ID

	// 未选中不可提交
	if _, err := rm.BeginGrading("p1", cardID); err != ErrCardNotSelected {
		t.Fatalf("Expected ErrCardNotSelected, got: %v", err)
	}

	rm.SelectCard("p1", cardID)
	card, err := rm.BeginGrading("p1", cardID)
	if err != nil {
		t.Fatalf("BeginGrading failed: %v", err)
	}
	if card.ID != cardID {
		t.Errorf("Expected card %s, got %s", cardID, card.ID)
	}
	if rm.GradingsInFlight() != 1 {
		t.Errorf("Expected 1 grading in flight, got %d", rm.GradingsInFlight())
	}

	newCard := models.Card{ID: "replacement"}
	reward, ok := rm.CompleteSolve("p1", cardID, newCard)
	if !ok {
		t.Fatal("CompleteSolve should succeed while state is unchanged")
	}
	if reward == nil || reward.Kind != models.RewardAddTime {
		t.Errorf("Expected the solved card's reward, got %+v", reward)
	}
	if p.Solved != 1 {
		t.Errorf("Expected solved count 1, got %d", p.Solved)
	}
	if p.CurrentCardID != "" {
		t.Errorf("Expected selection cleared, got %s", p.CurrentCardID)
	}
	if len(p.Cards) != 5 {
		t.Errorf("Expected hand refilled to 5, got %d", len(p.Cards))
	}
	if _, found := p.card(cardID); found {
		t.Error("Solved card should be removed from the hand")
	}
	if _, found := p.card("replacement"); !found {
		t.Error("Replacement card should be in the hand")
	}

	rm.FinishGrading()
	if rm.GradingsInFlight() != 0 {
		t.Errorf("Expected 0 gradings in flight, got %d", rm.GradingsInFlight())
	}
}

func TestRoom_CompleteSolve_StateInconsistency(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2")
	startTestRoom(t, rm, "p1")

	p, _ := rm.GetPlayer("p1")
	cardID := p.Cards[0].ID
	rm.SelectCard("p1", cardID)
	if _, err := rm.BeginGrading("p1", cardID); err != nil {
		t.Fatalf("BeginGrading failed: %v", err)
	}

	// 判题挂起期间玩家断线离场
	rm.RemovePlayer("p1")

	if _, ok := rm.CompleteSolve("p1", cardID, models.Card{ID: "x"}); ok {
		t.Error("CompleteSolve must be a silent no-op when the player is gone")
	}
	rm.FinishGrading()
}

func TestRoom_GradingBlocksDeletion(t *testing.T) {
	manager := NewRoomManager(6, 0)
	rm := manager.CreateRoom(&MockBroadcaster{})

	p := NewPlayer("p1", "user1", "sess1")
	rm.AddPlayer(p)
	startTestRoom(t, rm, "p1")

	cardID := p.Cards[0].ID
	rm.SelectCard("p1", cardID)
	if _, err := rm.BeginGrading("p1", cardID); err != nil {
		t.Fatalf("BeginGrading failed: %v", err)
	}

	rm.RemovePlayer("p1")

	if removed := manager.RemoveRoomIfEmpty(rm.Code); removed {
		t.Fatal("Room must not be deleted while a grading is in flight")
	}

	rm.FinishGrading()
	if removed := manager.RemoveRoomIfEmpty(rm.Code); !removed {
		t.Fatal("Room should be deleted once empty and grading finished")
	}
	if manager.Count() != 0 {
		t.Errorf("Expected 0 rooms, got %d", manager.Count())
	}
}

func TestRoom_PendingReward(t *testing.T) {
	rm := newTestRoom(t, "p1")

	reward := models.Reward{Kind: models.RewardRemoveTimeTargeted, Amount: 50}
	if err := rm.SetPendingReward("p1", reward); err != nil {
		t.Fatalf("SetPendingReward failed: %v", err)
	}

	// 同一玩家至多挂起一个
	if err := rm.SetPendingReward("p1", reward); err != ErrRewardPending {
		t.Errorf("Expected ErrRewardPending, got: %v", err)
	}

	got, ok := rm.TakePendingReward("p1")
	if !ok {
		t.Fatal("TakePendingReward should return the stored reward")
	}
	if got.Kind != models.RewardRemoveTimeTargeted || got.Amount != 50 {
		t.Errorf("Unexpected reward %+v", got)
	}

	if _, ok := rm.TakePendingReward("p1"); ok {
		t.Error("Pending reward must be cleared after take")
	}
}

func TestRoom_Candidates(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2", "p3")
	startTestRoom(t, rm, "p1")
	now := time.Now()

	options := rm.Candidates("p1", now, false)
	if len(options) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(options))
	}
	for _, opt := range options {
		if opt.PlayerID == "p1" {
			t.Error("Actor must not be a candidate")
		}
		if opt.TimeRemaining < 0 {
			t.Errorf("TimeRemaining must not be negative, got %d", opt.TimeRemaining)
		}
	}

	rm.Eliminate("p2", now)
	options = rm.Candidates("p1", now, false)
	if len(options) != 1 || options[0].PlayerID != "p3" {
		t.Fatalf("Expected only p3 as candidate, got %+v", options)
	}
}

func TestRoom_Candidates_DebugSelfTarget(t *testing.T) {
	rm := newTestRoom(t, "p1")
	startTestRoom(t, rm, "p1")
	now := time.Now()

	if options := rm.Candidates("p1", now, false); len(options) != 0 {
		t.Fatalf("Expected no candidates without debug, got %+v", options)
	}

	options := rm.Candidates("p1", now, true)
	if len(options) != 1 || options[0].PlayerID != "p1" {
		t.Fatalf("Debug mode should fall back to self, got %+v", options)
	}
}

func TestRoom_Snapshot(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2")

	snap := rm.Snapshot()
	if snap.RoomCode != "TESTRM" {
		t.Errorf("Expected room code TESTRM, got %s", snap.RoomCode)
	}
	if snap.GameStatus != "lobby" {
		t.Errorf("Expected lobby status, got %s", snap.GameStatus)
	}
	if snap.Winner != nil {
		t.Errorf("Expected no winner, got %v", *snap.Winner)
	}
	if len(snap.Players) != 2 {
		t.Fatalf("Expected 2 players in snapshot, got %d", len(snap.Players))
	}
	if snap.Players["p1"].TimerEndTime != nil {
		t.Error("TimerEndTime should be null before the game starts")
	}

	startTestRoom(t, rm, "p1")
	rm.Eliminate("p2", time.Now())
	snap = rm.Snapshot()

	if snap.GameStatus != "playing" {
		t.Errorf("Expected playing status, got %s", snap.GameStatus)
	}
	if snap.Players["p1"].TimerEndTime == nil {
		t.Error("TimerEndTime should be set after start")
	}
	if !snap.Players["p2"].IsEliminated || snap.Players["p2"].EliminatedAt == nil {
		t.Error("Snapshot should carry the elimination flag and timestamp")
	}

	ended, _ := rm.EvaluateWinCondition()
	if !ended {
		t.Fatal("Expected the game to end")
	}
	snap = rm.Snapshot()
	if snap.Winner == nil || *snap.Winner != "p1" {
		t.Errorf("Expected winner p1 in snapshot, got %v", snap.Winner)
	}
}

func TestRoom_MatchRecord(t *testing.T) {
	rm := newTestRoom(t, "p1", "p2")
	startTestRoom(t, rm, "p1")
	now := time.Now()

	rm.Eliminate("p2", now)
	rm.EvaluateWinCondition()

	record := rm.MatchRecord(now.Add(time.Minute))
	if record.RoomCode != "TESTRM" {
		t.Errorf("Expected room code TESTRM, got %s", record.RoomCode)
	}
	if record.WinnerID != "p1" || record.WinnerName != "user1" {
		t.Errorf("Expected winner p1/user1, got %s/%s", record.WinnerID, record.WinnerName)
	}
	if len(record.Players) != 2 {
		t.Fatalf("Expected 2 players in record, got %d", len(record.Players))
	}
	if record.DurationSeconds < 59 || record.DurationSeconds > 61 {
		t.Errorf("Expected roughly 60s duration, got %d", record.DurationSeconds)
	}
}
