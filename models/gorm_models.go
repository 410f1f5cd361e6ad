// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormMatchRecord 对局归档的 GORM 模型
type GormMatchRecord struct {
	gorm.Model
	RoomCode        string        `gorm:"index;not null"`
	WinnerID        string        `gorm:"index"`
	WinnerName      string
	Players         []MatchPlayer `gorm:"type:jsonb;serializer:json;not null"`
	StartedAt       time.Time
	EndedAt         time.Time
	DurationSeconds int `gorm:"default:0"`
}

// TableName 与 database/sql 实现共用同一张表
func (GormMatchRecord) TableName() string {
	return "match_records"
}

// NewGormMatchRecord 从纯数据模型构建 GORM 模型
func NewGormMatchRecord(rec MatchRecord) GormMatchRecord {
	return GormMatchRecord{
		RoomCode:        rec.RoomCode,
		WinnerID:        rec.WinnerID,
		WinnerName:      rec.WinnerName,
		Players:         rec.Players,
		StartedAt:       rec.StartedAt,
		EndedAt:         rec.EndedAt,
		DurationSeconds: rec.DurationSeconds,
	}
}

// Record 转回纯数据模型
func (m *GormMatchRecord) Record() MatchRecord {
	return MatchRecord{
		RoomCode:        m.RoomCode,
		WinnerID:        m.WinnerID,
		WinnerName:      m.WinnerName,
		Players:         m.Players,
		StartedAt:       m.StartedAt,
		EndedAt:         m.EndedAt,
		DurationSeconds: m.DurationSeconds,
	}
}

// PlayerStats 玩家跨对局统计信息
type PlayerStats struct {
	Username     string `json:"username"`
	TotalMatches int    `json:"total_matches"`
	Wins         int    `json:"wins"`
	TotalSolved  int    `json:"total_solved"`
}
