package network

// 客户端 → 服务端事件
const (
	EventJoinRoom            = "join_room"
	EventStartGame           = "start_game"
	EventSelectCard          = "select_card"
	EventSubmitSolution      = "submit_solution"
	EventPlayerEliminated    = "player_eliminated"
	EventApplyTargetedDebuff = "apply_targeted_debuff"
	EventDebugTriggerReward  = "debug_trigger_reward"
	EventGetGameState        = "get_game_state"
	EventTestMessage         = "test_message"
	EventPing                = "ping"
)

// 服务端 → 客户端事件
const (
	EventConnected               = "connected"
	EventJoinError               = "join_error"
	EventError                   = "error"
	EventPlayerJoined            = "player_joined"
	EventGameState               = "game_state"
	EventGameStarted             = "game_started"
	EventCardSelected            = "card_selected"
	EventSolutionPassed          = "solution_passed"
	EventSolutionFailed          = "solution_failed"
	EventTargetSelectionRequired = "target_selection_required"
	EventRewardApplied           = "reward_applied"
	EventFlashbangApplied        = "flashbang_applied"
	EventGameEnded               = "game_ended"
	EventPlayerLeft              = "player_left"
	EventPong                    = "pong"
)
