package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/rpc"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/wfunc/codebattle/broadcast"
	"github.com/wfunc/codebattle/catalog"
	"github.com/wfunc/codebattle/config"
	"github.com/wfunc/codebattle/logger"
	"github.com/wfunc/codebattle/models"
	"github.com/wfunc/codebattle/monitor"
	"github.com/wfunc/codebattle/network"
	"github.com/wfunc/codebattle/persistence"
	"github.com/wfunc/codebattle/reward"
	"github.com/wfunc/codebattle/room"
	"github.com/wfunc/codebattle/sandbox"
	"github.com/wfunc/codebattle/services"
	"github.com/wfunc/codebattle/session"
	"github.com/wfunc/codebattle/state"
	"github.com/wfunc/codebattle/timer"
	codebattle_rpc "github.com/wfunc/codebattle/rpc"
)

type GameServer struct {
	addr           string
	monitorAddr    string
	upgrader       websocket.Upgrader
	roomManager    *room.Manager
	sessionManager *session.Manager
	recordService  *services.RecordService
	broadcaster    *broadcast.RoomBroadcaster
	rpcServer      *codebattle_rpc.Server
	rewards        *reward.Engine
	dealer         room.Dealer
	executor       *sandbox.Executor
	monitor        *monitor.Monitor
	timers         *timer.Manager
	gameConfig     config.GameConfig
	mutex          sync.Mutex
	shutdownChan   chan struct{}
}

func NewGameServer(cfg *config.Config, db persistence.Database) *GameServer {
	s := &GameServer{
		addr:           cfg.Server.HTTPAddress,
		monitorAddr:    cfg.Server.MonitorAddress,
		roomManager:    room.NewRoomManager(cfg.Game.CodeLength, cfg.Game.MaxPlayers),
		sessionManager: session.NewManager(),
		recordService:  services.NewRecordService(db),
		rewards:        reward.NewEngine(nil),
		dealer:         catalog.NewFactory(nil),
		executor:       sandbox.NewExecutor(cfg.Sandbox.PythonBin, cfg.Sandbox.Timeout()),
		monitor:        monitor.NewMonitor("codebattle"),
		timers:         timer.NewManager(),
		gameConfig:     cfg.Game,
		shutdownChan:   make(chan struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有跨域请求
			},
		},
	}

	// 初始化广播器
	s.broadcaster = broadcast.NewRoomBroadcaster(s.roomManager, s.sessionManager)

	// 初始化RPC服务器
	rpcServer, err := codebattle_rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		logger.Log.Fatalf("Failed to create RPC server: %v", err)
	}
	s.rpcServer = rpcServer

	// 注册RPC服务
	adminService := codebattle_rpc.NewAdminService(s.roomManager, s.sessionManager, s.recordService, s.monitor)
	rpc.Register(adminService)

	return s
}

func (s *GameServer) Start() error {
	go s.rpcServer.Start()
	s.monitor.StartServer(s.monitorAddr)
	s.timers.Schedule(0, 5*time.Second, s.refreshGauges)

	http.HandleFunc("/ws", s.handleWebSocket)
	http.HandleFunc("/", s.handleHealth)
	logger.Log.Infof("Game server listening on %s", s.addr)
	return http.ListenAndServe(s.addr, nil)
}

func (s *GameServer) Shutdown() {
	close(s.shutdownChan)
	s.timers.Stop()
	s.rpcServer.Stop()
}

func (s *GameServer) refreshGauges() {
	s.monitor.SetActiveRooms(s.roomManager.Count())
}

func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "CodeBattles Server Running",
		"players": s.roomManager.TotalPlayers(),
	})
}

func (s *GameServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(network.NewWSConnection(conn))
}

func (s *GameServer) handleConnection(conn network.Connection) {
	sess := session.NewSession(uuid.New().String(), conn)
	s.sessionManager.Add(sess)
	s.monitor.IncOnlinePlayers()

	logger.Log.Infof("New connection from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
	sess.Send(network.EventConnected, map[string]string{"socketId": sess.GetID()})

	defer func() {
		logger.Log.Infof("Connection closed from %s, session ID: %s", conn.RemoteAddr(), sess.GetID())
		s.handleDisconnect(sess)
		s.sessionManager.Remove(sess.GetID())
		s.monitor.DecOnlinePlayers()
		conn.Close()
	}()

	for {
		select {
		case <-s.shutdownChan:
			return
		default:
			env, err := conn.ReadEnvelope()
			if err != nil {
				if errors.Is(err, network.ErrInvalidEnvelope) {
					continue
				}
				return
			}
			s.handleEnvelope(sess, env)
		}
	}
}

func (s *GameServer) handleEnvelope(sess *session.Session, env *network.Envelope) {
	s.monitor.IncMessagesReceived()
	started := time.Now()
	defer func() {
		s.monitor.ObserveMessageLatency(time.Since(started))
	}()

	switch env.Event {
	case network.EventJoinRoom:
		s.handleJoinRoom(sess, env.Data)
	case network.EventStartGame:
		s.handleStartGame(sess)
	case network.EventSelectCard:
		s.handleSelectCard(sess, env.Data)
	case network.EventSubmitSolution:
		s.handleSubmitSolution(sess, env.Data)
	case network.EventPlayerEliminated:
		s.handlePlayerEliminated(sess)
	case network.EventApplyTargetedDebuff:
		s.handleApplyTargetedDebuff(sess, env.Data)
	case network.EventDebugTriggerReward:
		s.handleDebugTriggerReward(sess, env.Data)
	case network.EventGetGameState:
		s.handleGetGameState(sess)
	case network.EventTestMessage:
		s.handleTestMessage(env.Data)
	case network.EventPing:
		s.handlePing(sess)
	default:
		logger.Log.Infof("Unknown event: %s", env.Event)
	}
}

func (s *GameServer) sendError(sess *session.Session, message string) {
	sess.Send(network.EventError, map[string]string{"message": message})
}

func (s *GameServer) sendJoinError(sess *session.Session, message string) {
	sess.Send(network.EventJoinError, map[string]string{"message": message})
}

// currentRoom 解析会话所在的房间
func (s *GameServer) currentRoom(sess *session.Session) (*room.Room, bool) {
	if sess.PlayerID == "" || sess.RoomCode == "" {
		return nil, false
	}
	return s.roomManager.GetRoom(sess.RoomCode)
}

type joinRequest struct {
	Username string `json:"username"`
	RoomCode string `json:"roomCode"`
}

func (s *GameServer) handleJoinRoom(sess *session.Session, data json.RawMessage) {
	var req joinRequest
	json.Unmarshal(data, &req)

	username := strings.TrimSpace(req.Username)
	if username == "" {
		s.sendJoinError(sess, "Username required")
		return
	}

	var rm *room.Room
	if code := room.NormalizeCode(req.RoomCode); code != "" {
		existing, ok := s.roomManager.GetRoom(code)
		if !ok {
			s.sendJoinError(sess, fmt.Sprintf("Room %s not found", code))
			return
		}
		rm = existing
	} else {
		rm = s.roomManager.CreateRoom(s.broadcaster)
	}

	playerID := uuid.New().String()
	if err := rm.AddPlayer(room.NewPlayer(playerID, username, sess.GetID())); err != nil {
		switch {
		case errors.Is(err, room.ErrRoomFull):
			s.sendJoinError(sess, "Room is full")
		case errors.Is(err, room.ErrGameInProgress):
			s.sendJoinError(sess, "Game already in progress")
		default:
			s.sendJoinError(sess, err.Error())
		}
		return
	}

	sess.PlayerID = playerID
	sess.RoomCode = rm.Code

	rm.Broadcast(network.EventPlayerJoined, map[string]string{
		"playerId": playerID,
		"username": username,
		"roomCode": rm.Code,
	})
	sess.Send(network.EventGameState, rm.Snapshot())

	logger.Log.Infof("Player %s (%s) joined room %s", username, playerID, rm.Code)
}

func (s *GameServer) handleStartGame(sess *session.Session) {
	if sess.PlayerID == "" {
		s.sendError(sess, "Not connected")
		return
	}
	rm, ok := s.currentRoom(sess)
	if !ok {
		s.sendError(sess, "No players in game")
		return
	}

	err := rm.Start(sess.PlayerID, time.Now(), s.gameConfig.InitialTime(), s.dealer, s.gameConfig.HandSize)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrEmptyRoom):
			s.sendError(sess, "No players in game")
		case errors.Is(err, room.ErrNotHost):
			s.sendError(sess, "Only host can start game")
		case errors.Is(err, state.ErrTransitionNotAllowed):
			s.sendError(sess, "Game already in progress")
		default:
			s.sendError(sess, err.Error())
		}
		return
	}

	rm.Broadcast(network.EventGameStarted, map[string]interface{}{
		"players": rm.PlayerSnapshots(),
	})
	logger.Log.Infof("Game started in room %s", rm.Code)
}

type selectCardRequest struct {
	CardID string `json:"cardId"`
}

func (s *GameServer) handleSelectCard(sess *session.Session, data json.RawMessage) {
	rm, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	var req selectCardRequest
	json.Unmarshal(data, &req)

	card, err := rm.SelectCard(sess.PlayerID, req.CardID)
	if err != nil {
		if errors.Is(err, room.ErrCardNotFound) {
			s.sendError(sess, "Card not found")
		}
		return
	}

	rm.Broadcast(network.EventCardSelected, map[string]interface{}{
		"playerId": sess.PlayerID,
		"cardId":   req.CardID,
		"problem":  card.Problem,
	})
}

type submitRequest struct {
	CardID string `json:"cardId"`
	Code   string `json:"code"`
}

func (s *GameServer) handleSubmitSolution(sess *session.Session, data json.RawMessage) {
	rm, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	var req submitRequest
	json.Unmarshal(data, &req)

	card, err := rm.BeginGrading(sess.PlayerID, req.CardID)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrPlayerEliminated):
			s.sendError(sess, "Player is eliminated")
		case errors.Is(err, room.ErrCardNotFound):
			s.sendError(sess, "Card not found")
		case errors.Is(err, room.ErrCardNotSelected):
			s.sendError(sess, "Card is not currently selected")
		}
		return
	}
	defer func() {
		rm.FinishGrading()
		s.roomManager.RemoveRoomIfEmpty(rm.Code)
	}()

	// 判题在房间锁外进行，不阻塞房间内其他玩家
	gradeStart := time.Now()
	result := s.executor.Execute(context.Background(), req.Code, card.Problem.Signature, card.Problem.TestCases)
	s.monitor.ObserveGradingDuration(time.Since(gradeStart))

	if !result.Passed {
		s.monitor.IncSolutionsFailed()
		var errField interface{}
		if result.Error != "" {
			errField = result.Error
		}
		rm.Broadcast(network.EventSolutionFailed, map[string]interface{}{
			"playerId":    sess.PlayerID,
			"cardId":      req.CardID,
			"error":       errField,
			"testResults": result.TestResults,
		})
		return
	}

	newCard := s.dealer.Deal()
	rewardWon, ok := rm.CompleteSolve(sess.PlayerID, req.CardID, newCard)
	if !ok {
		// 判题期间玩家已离开、被淘汰或对局已结束
		return
	}

	s.monitor.IncSolutionsPassed()
	if rewardWon != nil {
		s.applyReward(sess, rm, *rewardWon, false)
	}

	rm.Broadcast(network.EventSolutionPassed, map[string]interface{}{
		"playerId":    sess.PlayerID,
		"cardId":      req.CardID,
		"testResults": result.TestResults,
		"newCard":     newCard,
	})
	logger.Log.Infof("Player %s passed %s in room %s", sess.PlayerID, card.Problem.Title, rm.Code)
}

// applyReward 按奖励种类结算并广播对应事件
func (s *GameServer) applyReward(sess *session.Session, rm *room.Room, won models.Reward, debug bool) {
	outcome, err := s.rewards.Apply(rm, sess.PlayerID, won, debug)
	if err != nil {
		logger.Log.Warnf("Reward %s not applied for %s: %v", won.Kind, sess.PlayerID, err)
		return
	}

	switch outcome.Status {
	case reward.StatusApplied:
		switch outcome.Reward.Kind {
		case models.RewardAddTime:
			rm.Broadcast(network.EventRewardApplied, map[string]interface{}{
				"playerId": outcome.ActorID,
				"kind":     outcome.Reward.Kind,
				"amount":   outcome.Reward.Amount,
			})
		case models.RewardRemoveTimeRandom:
			rm.Broadcast(network.EventRewardApplied, map[string]interface{}{
				"playerId":   outcome.AffectedID,
				"kind":       outcome.Reward.Kind,
				"amount":     outcome.Reward.Amount,
				"fromPlayer": outcome.ActorID,
			})
		case models.RewardRemoveTimeAll:
			rm.Broadcast(network.EventRewardApplied, map[string]interface{}{
				"kind":            outcome.Reward.Kind,
				"amount":          outcome.Reward.Amount,
				"fromPlayer":      outcome.ActorID,
				"affectedPlayers": outcome.Affected,
			})
		}
	case reward.StatusPending:
		sess.Send(network.EventTargetSelectionRequired, map[string]interface{}{
			"kind":             outcome.Reward.Kind,
			"amount":           outcome.Reward.Amount,
			"availableTargets": outcome.Targets,
		})
	case reward.StatusNoCandidates:
		// 没有可作用的目标，效果落空
	}
}

func (s *GameServer) handlePlayerEliminated(sess *session.Session) {
	rm, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	p, changed := rm.Eliminate(sess.PlayerID, time.Now())
	if !changed {
		return
	}

	rm.Broadcast(network.EventPlayerEliminated, map[string]interface{}{
		"playerId":     p.ID,
		"username":     p.Username,
		"eliminatedAt": p.EliminatedAt.UnixMilli(),
	})
	logger.Log.Infof("Player %s eliminated in room %s", p.Username, rm.Code)

	s.finishIfDecided(rm)
}

// finishIfDecided 胜负已分时广播结果并归档对局
func (s *GameServer) finishIfDecided(rm *room.Room) {
	ended, winner := rm.EvaluateWinCondition()
	if !ended {
		return
	}

	s.monitor.IncMatchesCompleted()

	payload := map[string]interface{}{"winner": nil}
	if winner != nil {
		payload["winner"] = winner.ID
		payload["winnerName"] = winner.Username
	}
	rm.Broadcast(network.EventGameEnded, payload)

	if s.recordService.Enabled() {
		record := rm.MatchRecord(time.Now())
		go func() {
			if err := s.recordService.Archive(record); err != nil {
				logger.Log.Errorf("Failed to archive match %s: %v", record.RoomCode, err)
			}
		}()
	}
}

type targetRequest struct {
	TargetPlayerID string `json:"targetPlayerId"`
}

func (s *GameServer) handleApplyTargetedDebuff(sess *session.Session, data json.RawMessage) {
	rm, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	var req targetRequest
	json.Unmarshal(data, &req)

	res, err := s.rewards.ResolveTarget(rm, sess.PlayerID, req.TargetPlayerID)
	if err != nil {
		switch {
		case errors.Is(err, reward.ErrNoPendingReward):
			s.sendError(sess, "No pending reward")
		case errors.Is(err, reward.ErrTargetEliminated):
			s.sendError(sess, "Cannot target eliminated player")
		case errors.Is(err, reward.ErrInvalidTarget):
			s.sendError(sess, "Invalid target")
		}
		return
	}

	switch res.Kind {
	case models.RewardRemoveTimeTargeted:
		rm.Broadcast(network.EventRewardApplied, map[string]interface{}{
			"playerId":   res.TargetID,
			"kind":       res.Kind,
			"amount":     res.Amount,
			"fromPlayer": res.ActorID,
			"targetName": res.TargetName,
		})
	case models.RewardFlashbangTargeted:
		s.broadcaster.SendToSession(res.TargetSessionID, network.EventFlashbangApplied, map[string]string{
			"fromPlayer":   res.ActorID,
			"fromUsername": res.ActorName,
		})
	}
}

type debugRewardRequest struct {
	Reward *models.Reward `json:"reward"`
}

func (s *GameServer) handleDebugTriggerReward(sess *session.Session, data json.RawMessage) {
	rm, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	var req debugRewardRequest
	json.Unmarshal(data, &req)
	if req.Reward == nil {
		return
	}

	s.applyReward(sess, rm, *req.Reward, true)
}

func (s *GameServer) handleGetGameState(sess *session.Session) {
	rm, ok := s.currentRoom(sess)
	if !ok {
		return
	}
	sess.Send(network.EventGameState, rm.Snapshot())
}

type testMessageRequest struct {
	From    string `json:"from"`
	Message string `json:"message"`
}

func (s *GameServer) handleTestMessage(data json.RawMessage) {
	req := testMessageRequest{From: "Unknown"}
	json.Unmarshal(data, &req)
	if req.Message == "" {
		return
	}

	s.broadcaster.BroadcastToAll(network.EventTestMessage, map[string]string{
		"from":    req.From,
		"message": req.Message,
	})
}

func (s *GameServer) handlePing(sess *session.Session) {
	sess.Send(network.EventPong, nil)
}

func (s *GameServer) handleDisconnect(sess *session.Session) {
	rm, ok := s.currentRoom(sess)
	if !ok {
		return
	}

	p, removed := rm.RemovePlayer(sess.PlayerID)
	if !removed {
		return
	}

	rm.Broadcast(network.EventPlayerLeft, map[string]string{
		"playerId": p.ID,
		"username": p.Username,
	})
	s.finishIfDecided(rm)
	s.roomManager.RemoveRoomIfEmpty(sess.RoomCode)
}
