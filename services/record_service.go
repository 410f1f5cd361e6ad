// services/record_service.go
package services

import (
	"fmt"

	"github.com/wfunc/codebattle/models"
	"github.com/wfunc/codebattle/persistence"
)

// RecordService 负责对局归档与战绩查询。
// db 为 nil 表示归档功能未开启，所有操作降级为no-op。
type RecordService struct {
	db persistence.Database
}

func NewRecordService(db persistence.Database) *RecordService {
	return &RecordService{db: db}
}

// Enabled 归档功能是否开启
func (s *RecordService) Enabled() bool {
	return s.db != nil
}

// Archive 归档一场对局
func (s *RecordService) Archive(record models.MatchRecord) error {
	if s.db == nil {
		return nil
	}
	if record.RoomCode == "" {
		return fmt.Errorf("match record missing room code")
	}
	return s.db.SaveMatchRecord(record)
}

// RecentMatches 查询最近的对局记录
func (s *RecordService) RecentMatches(limit int) ([]models.MatchRecord, error) {
	if s.db == nil {
		return nil, nil
	}
	return s.db.RecentMatches(limit)
}

// PlayerStats 查询一名玩家的历史战绩
func (s *RecordService) PlayerStats(username string) (models.PlayerStats, error) {
	if s.db == nil {
		return models.PlayerStats{Username: username}, nil
	}
	return s.db.PlayerStats(username)
}
