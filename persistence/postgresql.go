// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	// PostgreSQL 驱动
	_ "github.com/lib/pq"

	"github.com/wfunc/codebattle/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

var _ Database = (*PostgreSQL)(nil)

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 初始化表结构
	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 初始化数据库表结构，与GORM实现的自动迁移保持同构
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS match_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_code TEXT NOT NULL,
            winner_id TEXT,
            winner_name TEXT,
            players JSONB NOT NULL,
            started_at TIMESTAMPTZ,
            ended_at TIMESTAMPTZ,
            duration_seconds BIGINT DEFAULT 0
        )
    `)
	if err != nil {
		return err
	}

	// 创建索引以提高查询性能
	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_match_records_room_code ON match_records(room_code);
        CREATE INDEX IF NOT EXISTS idx_match_records_winner_id ON match_records(winner_id);
        CREATE INDEX IF NOT EXISTS idx_match_records_ended_at ON match_records(ended_at);
        CREATE INDEX IF NOT EXISTS idx_match_records_deleted_at ON match_records(deleted_at);
    `)

	return err
}

// SaveMatchRecord 归档一场对局
func (p *PostgreSQL) SaveMatchRecord(record models.MatchRecord) error {
	playersJSON, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO match_records (room_code, winner_id, winner_name, players, started_at, ended_at, duration_seconds)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err = p.db.ExecContext(ctx, query,
		record.RoomCode,
		record.WinnerID,
		record.WinnerName,
		playersJSON,
		record.StartedAt,
		record.EndedAt,
		record.DurationSeconds)

	return err
}

// RecentMatches 按结束时间倒序返回最近的对局
func (p *PostgreSQL) RecentMatches(limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT room_code, winner_id, winner_name, players, started_at, ended_at, duration_seconds
        FROM match_records
        WHERE deleted_at IS NULL
        ORDER BY ended_at DESC
        LIMIT $1
    `

	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MatchRecord
	for rows.Next() {
		var rec models.MatchRecord
		var playersJSON []byte
		if err := rows.Scan(&rec.RoomCode, &rec.WinnerID, &rec.WinnerName,
			&playersJSON, &rec.StartedAt, &rec.EndedAt, &rec.DurationSeconds); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(playersJSON, &rec.Players); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// PlayerStats 按用户名聚合一名玩家的历史战绩
func (p *PostgreSQL) PlayerStats(username string) (models.PlayerStats, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT
            COUNT(*) as total_matches,
            COALESCE(SUM(CASE WHEN winner_name = $1 THEN 1 ELSE 0 END), 0) as wins,
            COALESCE(SUM((
                SELECT (p->>'solved')::int
                FROM jsonb_array_elements(players) AS p
                WHERE p->>'username' = $1
                LIMIT 1
            )), 0) as total_solved
        FROM match_records
        WHERE deleted_at IS NULL AND players @> $2
    `

	stats := models.PlayerStats{Username: username}
	err := p.db.QueryRowContext(ctx, query, username, playerFilter(username)).
		Scan(&stats.TotalMatches, &stats.Wins, &stats.TotalSolved)

	return stats, err
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
