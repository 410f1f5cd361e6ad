// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/samber/lo"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/codebattle/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

var _ Database = (*GormPostgreSQL)(nil)

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold: time.Second,   // 慢SQL阈值
			LogLevel:      logger.Silent, // 日志级别
			Colorful:      false,         // 禁用彩色打印
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	// 获取通用数据库对象 sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移表结构
	if err := db.AutoMigrate(&models.GormMatchRecord{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

// SaveMatchRecord 归档一场对局
func (p *GormPostgreSQL) SaveMatchRecord(record models.MatchRecord) error {
	row := models.NewGormMatchRecord(record)
	return p.db.Create(&row).Error
}

// RecentMatches 按结束时间倒序返回最近的对局
func (p *GormPostgreSQL) RecentMatches(limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	var rows []models.GormMatchRecord
	if err := p.db.Order("ended_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}

	return lo.Map(rows, func(row models.GormMatchRecord, _ int) models.MatchRecord {
		return row.Record()
	}), nil
}

// PlayerStats 按用户名聚合一名玩家的历史战绩
func (p *GormPostgreSQL) PlayerStats(username string) (models.PlayerStats, error) {
	stats := models.PlayerStats{Username: username}

	err := p.db.Raw(
		`
        SELECT
            COUNT(*) as total_matches,
            COALESCE(SUM(CASE WHEN winner_name = ? THEN 1 ELSE 0 END), 0) as wins,
            COALESCE(SUM((
                SELECT (p->>'solved')::int
                FROM jsonb_array_elements(players) AS p
                WHERE p->>'username' = ?
                LIMIT 1
            )), 0) as total_solved
        FROM match_records
        WHERE deleted_at IS NULL AND players @> ?`,
		username, username, playerFilter(username),
	).Scan(&stats).Error

	return stats, err
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
