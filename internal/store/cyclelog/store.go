package cyclelog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"tradewind/internal/store"

	_ "modernc.org/sqlite"
)

// CycleLogStore 保存每个周期的最终状态快照，方便排查与回看。
type CycleLogStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// NewCycleLogStore 初始化 SQLite 存储。
func NewCycleLogStore(path string) (*CycleLogStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cycle log path 不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &CycleLogStore{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS cycle_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cycle_id TEXT NOT NULL,
		ticker TEXT NOT NULL,
		action TEXT,
		status TEXT,
		confidence REAL,
		state_json TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_cycle_log_ticker ON cycle_log(ticker, created_at);`)
	if err != nil {
		return fmt.Errorf("ensure cycle_log schema: %w", err)
	}
	return nil
}

func (s *CycleLogStore) LogCycle(ctx context.Context, rec store.CycleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cycle_log (cycle_id, ticker, action, status, confidence, state_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.CycleID, strings.ToUpper(rec.Ticker), rec.Action, rec.Status, rec.Confidence, rec.StateJSON, created.Unix())
	if err != nil {
		return fmt.Errorf("insert cycle log: %w", err)
	}
	return nil
}

func (s *CycleLogStore) ListCycles(ctx context.Context, ticker string, limit int) ([]store.CycleRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, cycle_id, ticker, action, status, confidence, state_json, created_at
		FROM cycle_log`
	args := []any{}
	if ticker = strings.TrimSpace(ticker); ticker != "" {
		query += ` WHERE ticker = ?`
		args = append(args, strings.ToUpper(ticker))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycle log: %w", err)
	}
	defer rows.Close()

	var out []store.CycleRecord
	for rows.Next() {
		var rec store.CycleRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.CycleID, &rec.Ticker, &rec.Action, &rec.Status,
			&rec.Confidence, &rec.StateJSON, &createdAt); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *CycleLogStore) Close() error {
	return s.db.Close()
}
