package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/iabetor/prepbuddy/internal/logger"
	_ "modernc.org/sqlite"
)

// DB 是 PrepBuddy 的 SQLite 数据库连接。
// 需要落盘的数据（目前是合成缓存）共用同一个文件，便于备份和清理。
type DB struct {
	*sql.DB
	path string
}

// Open 打开或创建数据库。
// dbPath 为空时使用默认路径 data/prepbuddy.db。
func Open(dbPath string) (*DB, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "prepbuddy.db")
	}

	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// 设置 WAL 模式（更好的并发性能）
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	// 并发写入时等待锁而不是直接报错
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置锁等待超时失败: %w", err)
	}

	logger.Infof("[database] 数据库已打开: %s", dbPath)

	return &DB{DB: db, path: dbPath}, nil
}

// Path 返回数据库文件路径。
func (db *DB) Path() string {
	return db.path
}

// Migrate 创建合成缓存的表结构。
func (db *DB) Migrate() error {
	migrations := []string{
		// 合成结果缓存表。
		// last_used 存纳秒时间戳，秒级 DATETIME 分不出同一秒内的先后
		`CREATE TABLE IF NOT EXISTS synth_cache (
			cache_key TEXT PRIMARY KEY,
			provider TEXT NOT NULL,
			voice TEXT NOT NULL,
			audio BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
	}

	// 创建索引
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_synth_cache_last_used ON synth_cache(last_used)`,
		`CREATE INDEX IF NOT EXISTS idx_synth_cache_provider ON synth_cache(provider)`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			logger.Warnf("[database] 创建索引失败: %v", err)
		}
	}

	logger.Info("[database] 数据库迁移完成")
	return nil
}

// Close 关闭数据库连接。
func (db *DB) Close() error {
	if db.DB != nil {
		return db.DB.Close()
	}
	return nil
}
