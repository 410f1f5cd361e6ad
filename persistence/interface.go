// persistence/interface.go
package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/wfunc/codebattle/models"
)

// Database 对局归档接口。两个实现共用 match_records 表，
// 游戏逻辑只依赖此接口，不感知具体驱动。
type Database interface {
	SaveMatchRecord(record models.MatchRecord) error
	RecentMatches(limit int) ([]models.MatchRecord, error)
	PlayerStats(username string) (models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)

// playerFilter 构造 jsonb 包含查询的参数，players 列是玩家对象数组
func playerFilter(username string) string {
	filter, _ := json.Marshal([]map[string]string{{"username": username}})
	return string(filter)
}
