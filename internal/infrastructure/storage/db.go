package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meetscribe/backend/internal/infrastructure/config"
	_ "modernc.org/sqlite"
)

// OpenDB 打开数据库连接并初始化表结构
// Windows: %USERPROFILE%\.meetscribe\meetscribe.db
// macOS/Linux: ~/.meetscribe/meetscribe.db
func OpenDB(dbPath string) (*sql.DB, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// PRAGMA 只对单个连接生效，限制连接池大小保证外键约束始终开启
	db.SetMaxOpenConns(1)

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL 模式 + 级联删除依赖的外键约束
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// ProvideDB Wire 提供器：根据配置打开数据库
func ProvideDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	return OpenDB(cfg.Path)
}

// initSchema 初始化表结构
// chat_messages 按 (meeting_id, created_at) 排序读取；
// 所有子表对 meetings 外键级联删除
func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transcript_fragments (
		meeting_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		start_ms INTEGER NOT NULL,
		end_ms INTEGER NOT NULL,
		text TEXT NOT NULL,
		confidence REAL,
		language TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (meeting_id, seq),
		FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		meeting_id TEXT PRIMARY KEY,
		sealed INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS summaries (
		meeting_id TEXT PRIMARY KEY,
		sections TEXT NOT NULL,
		raw_markdown TEXT NOT NULL,
		structured INTEGER NOT NULL DEFAULT 0,
		model TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		generated_at INTEGER NOT NULL,
		FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		meeting_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		metadata TEXT,
		FOREIGN KEY (meeting_id) REFERENCES meetings(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS settings (
		id TEXT PRIMARY KEY,
		language TEXT NOT NULL DEFAULT 'pt-BR',
		model_provider TEXT NOT NULL DEFAULT '',
		model_name TEXT NOT NULL DEFAULT '',
		api_key TEXT NOT NULL DEFAULT '',
		endpoint TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}

	indexes := `
	CREATE INDEX IF NOT EXISTS idx_chat_messages_meeting_created ON chat_messages(meeting_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_fragments_meeting_seq ON transcript_fragments(meeting_id, seq);`

	if _, err := db.Exec(indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}
