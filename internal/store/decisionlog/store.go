package decisionlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DecisionStore persists market snapshots and the agent decisions taken
// against them. It backs the history, stats and dashboard endpoints.
type DecisionStore struct {
	mu     sync.Mutex
	db     *sql.DB
	path   string
	ownsDB bool
}

// SnapshotRecord is one observed market tick.
type SnapshotRecord struct {
	ID         int64   `json:"id"`
	Price      float64 `json:"price"`
	Change24h  float64 `json:"change24h"`
	Volatility float64 `json:"volatility"`
	Source     string  `json:"source"`
	Timestamp  int64   `json:"ts"`
}

// DecisionRecord is one settled agent decision, joined with its snapshot.
// PlayDeducted is nil when no on-chain deduction occurred.
type DecisionRecord struct {
	ID           int64    `json:"id"`
	TraceID      string   `json:"traceId"`
	AgentKey     string   `json:"agentKey"`
	AgentName    string   `json:"agentName"`
	Protocol     string   `json:"protocol"`
	Action       string   `json:"action"`
	Amount       float64  `json:"amount"`
	PlayDeducted *float64 `json:"playDeducted"`
	PlayerWallet *string  `json:"playerWallet"`
	Thought      string   `json:"thought"`
	SnapshotID   int64    `json:"snapshotId"`
	Price        float64  `json:"price"`
	Change24h    float64  `json:"change24h"`
	Volatility   float64  `json:"volatility"`
	Source       string   `json:"source"`
	Timestamp    int64    `json:"ts"`
}

// HistoryQuery filters paginated decision history.
type HistoryQuery struct {
	Page     int
	Limit    int
	AgentKey string
	From     int64
	To       int64
}

// HistoryPage is one page of decision history, newest first.
type HistoryPage struct {
	Rows  []DecisionRecord `json:"rows"`
	Total int              `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

// DailyBucket aggregates decision counts for one calendar day.
type DailyBucket struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// PricePoint is one chart sample.
type PricePoint struct {
	Price     float64 `json:"price"`
	Timestamp int64   `json:"ts"`
}

// HistoryStats summarizes the decision log for the stats endpoint.
type HistoryStats struct {
	TotalDecisions int            `json:"totalDecisions"`
	ByAgent        map[string]int `json:"byAgent"`
	ByAction       map[string]int `json:"byAction"`
	Daily          []DailyBucket  `json:"timeBuckets"`
	PriceHistory   []PricePoint   `json:"priceHistory"`
}

// NewDecisionStore opens (or creates) the SQLite decision log.
func NewDecisionStore(path string) (*DecisionStore, error) {
	if path == "" {
		return nil, fmt.Errorf("decision store: db path is required")
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
	return &DecisionStore{db: db, path: path, ownsDB: true}, nil
}

// UseExternalDB reuses an externally initialized SQLite connection (for
// example the GORM one) to avoid multi-connection lock contention.
func (s *DecisionStore) UseExternalDB(db *sql.DB) error {
	if s == nil {
		return fmt.Errorf("decision store not initialized")
	}
	if db == nil {
		return fmt.Errorf("decision store: external db is nil")
	}
	if err := ensureSchema(db); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownsDB && s.db != nil && s.db != db {
		_ = s.db.Close()
	}
	s.db = db
	s.ownsDB = false
	return nil
}

func (s *DecisionStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	if !s.ownsDB {
		s.db = nil
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *DecisionStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	db := s.db
	s.mu.Unlock()
	if db == nil {
		return nil, fmt.Errorf("decision store not initialized")
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS market_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			price REAL NOT NULL,
			change_24h REAL NOT NULL DEFAULT 0,
			volatility REAL NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_market_snapshots_created ON market_snapshots(created_at DESC, id DESC);`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id TEXT,
			agent_key TEXT NOT NULL,
			agent_name TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL,
			amount REAL NOT NULL DEFAULT 0,
			thought TEXT,
			snapshot_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_agent_created ON decisions(agent_key, created_at DESC, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at DESC, id DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return ensureColumns(db)
}

// These columns landed after the first schema; keep the migration additive
// and idempotent so old database files keep working. play_deducted and
// player_wallet stay nullable: NULL means no on-chain deduction occurred.
func ensureColumns(db *sql.DB) error {
	cols := []struct {
		table  string
		column string
		typ    string
	}{
		{"decisions", "play_deducted", "REAL"},
		{"decisions", "player_wallet", "TEXT"},
		{"decisions", "protocol", "TEXT NOT NULL DEFAULT ''"},
	}
	for _, col := range cols {
		if err := addColumnIfMissing(db, col.table, col.column, col.typ); err != nil {
			return err
		}
	}
	return nil
}

func addColumnIfMissing(db *sql.DB, table, column, typ string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()
	exists := false
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if strings.EqualFold(name, column) {
			exists = true
			break
		}
	}
	if exists {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, typ))
	return err
}

// InsertSnapshot writes one market tick and returns its row id.
func (s *DecisionStore) InsertSnapshot(ctx context.Context, rec SnapshotRecord) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	ts := rec.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO market_snapshots (price, change_24h, volatility, source, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.Price, rec.Change24h, rec.Volatility, rec.Source, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertDecision writes one settled decision against an existing snapshot.
func (s *DecisionStore) InsertDecision(ctx context.Context, rec DecisionRecord) (int64, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	if rec.SnapshotID <= 0 {
		return 0, fmt.Errorf("decision store: snapshot_id is required")
	}
	if strings.TrimSpace(rec.AgentKey) == "" {
		return 0, fmt.Errorf("decision store: agent_key is required")
	}
	ts := rec.Timestamp
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO decisions
			(trace_id, agent_key, agent_name, protocol, action, amount, play_deducted, player_wallet, thought, snapshot_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.TraceID, rec.AgentKey, rec.AgentName, rec.Protocol, rec.Action, rec.Amount,
		rec.PlayDeducted, rec.PlayerWallet, rec.Thought, rec.SnapshotID, ts)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const decisionSelect = `SELECT d.id, d.trace_id, d.agent_key, d.agent_name, d.protocol, d.action, d.amount,
	d.play_deducted, d.player_wallet, d.thought, d.snapshot_id, s.price, s.change_24h, s.volatility, s.source, d.created_at
	FROM decisions d
	JOIN market_snapshots s ON s.id = d.snapshot_id`

func buildHistoryFilter(q HistoryQuery) (string, []interface{}) {
	var args []interface{}
	var sb strings.Builder
	sb.WriteString(" WHERE 1=1")
	if key := strings.ToUpper(strings.TrimSpace(q.AgentKey)); key != "" {
		sb.WriteString(" AND d.agent_key = ?")
		args = append(args, key)
	}
	if q.From > 0 {
		sb.WriteString(" AND d.created_at >= ?")
		args = append(args, q.From)
	}
	if q.To > 0 {
		sb.WriteString(" AND d.created_at <= ?")
		args = append(args, q.To)
	}
	return sb.String(), args
}

func scanDecision(scanner interface{ Scan(dest ...interface{}) error }) (DecisionRecord, error) {
	var (
		rec          DecisionRecord
		traceID      sql.NullString
		protocol     sql.NullString
		playDeducted sql.NullFloat64
		playerWallet sql.NullString
		thought      sql.NullString
	)
	if err := scanner.Scan(&rec.ID, &traceID, &rec.AgentKey, &rec.AgentName, &protocol, &rec.Action,
		&rec.Amount, &playDeducted, &playerWallet, &thought, &rec.SnapshotID,
		&rec.Price, &rec.Change24h, &rec.Volatility, &rec.Source, &rec.Timestamp); err != nil {
		return rec, err
	}
	rec.TraceID = traceID.String
	rec.Protocol = protocol.String
	rec.Thought = thought.String
	if playDeducted.Valid {
		v := playDeducted.Float64
		rec.PlayDeducted = &v
	}
	if playerWallet.Valid && playerWallet.String != "" {
		w := playerWallet.String
		rec.PlayerWallet = &w
	}
	return rec, nil
}

// ListDecisions returns a page of history, newest first.
func (s *DecisionStore) ListDecisions(ctx context.Context, q HistoryQuery) (HistoryPage, error) {
	page := HistoryPage{Rows: []DecisionRecord{}}
	db, err := s.conn()
	if err != nil {
		return page, err
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	filterSQL, args := buildHistoryFilter(q)

	var total int
	countQuery := `SELECT COUNT(*) FROM decisions d JOIN market_snapshots s ON s.id = d.snapshot_id` + filterSQL
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return page, err
	}

	listArgs := append(args, q.Limit, (q.Page-1)*q.Limit)
	rows, err := db.QueryContext(ctx,
		decisionSelect+filterSQL+" ORDER BY d.created_at DESC, d.id DESC LIMIT ? OFFSET ?", listArgs...)
	if err != nil {
		return page, err
	}
	defer rows.Close()
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return page, err
		}
		page.Rows = append(page.Rows, rec)
	}
	page.Total = total
	page.Page = q.Page
	page.Limit = q.Limit
	return page, rows.Err()
}

// RecentDecisions returns the newest decisions for one agent.
func (s *DecisionStore) RecentDecisions(ctx context.Context, agentKey string, limit int) ([]DecisionRecord, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx,
		decisionSelect+` WHERE d.agent_key = ? ORDER BY d.created_at DESC, d.id DESC LIMIT ?`,
		strings.ToUpper(strings.TrimSpace(agentKey)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DecisionRecord{}
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AgentDashboard is one agent's dashboard slice: its own price trail
// (oldest first) and its newest decisions.
type AgentDashboard struct {
	ChartData     []PricePoint     `json:"chartData"`
	LastDecisions []DecisionRecord `json:"lastDecisions"`
}

// AgentChartData returns the price samples this agent's decisions were made
// against, oldest first.
func (s *DecisionStore) AgentChartData(ctx context.Context, agentKey string, limit int) ([]PricePoint, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rows, err := db.QueryContext(ctx, `SELECT s.price, s.created_at
		FROM decisions d JOIN market_snapshots s ON s.id = d.snapshot_id
		WHERE d.agent_key = ? ORDER BY d.created_at DESC, d.id DESC LIMIT ?`,
		strings.ToUpper(strings.TrimSpace(agentKey)), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	points := []PricePoint{}
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Price, &p.Timestamp); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// DashboardState hydrates the dashboard per agent. Each key is queried
// independently so no agent's rows bleed into another's slice.
func (s *DecisionStore) DashboardState(ctx context.Context, agentKeys []string, limitPerAgent int) (map[string]AgentDashboard, error) {
	out := make(map[string]AgentDashboard, len(agentKeys))
	for _, key := range agentKeys {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		recs, err := s.RecentDecisions(ctx, key, limitPerAgent)
		if err != nil {
			return nil, err
		}
		chart, err := s.AgentChartData(ctx, key, limitPerAgent)
		if err != nil {
			return nil, err
		}
		out[key] = AgentDashboard{ChartData: chart, LastDecisions: recs}
	}
	return out, nil
}

// ChartData returns the newest price samples in chronological order.
func (s *DecisionStore) ChartData(ctx context.Context, limit int) ([]PricePoint, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	rows, err := db.QueryContext(ctx, `SELECT price, created_at FROM market_snapshots
		ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(&p.Price, &p.Timestamp); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// reverse to oldest-first for charting
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// Stats aggregates the full decision log.
func (s *DecisionStore) Stats(ctx context.Context) (HistoryStats, error) {
	stats := HistoryStats{
		ByAgent:      map[string]int{},
		ByAction:     map[string]int{},
		Daily:        []DailyBucket{},
		PriceHistory: []PricePoint{},
	}
	db, err := s.conn()
	if err != nil {
		return stats, err
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions`).Scan(&stats.TotalDecisions); err != nil {
		return stats, err
	}

	rows, err := db.QueryContext(ctx, `SELECT agent_key, COUNT(*) FROM decisions GROUP BY agent_key`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByAgent[key] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = db.QueryContext(ctx, `SELECT action, COUNT(*) FROM decisions GROUP BY action`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByAction[action] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	rows, err = db.QueryContext(ctx, `SELECT date(created_at / 1000, 'unixepoch') AS day, COUNT(*)
		FROM decisions GROUP BY day ORDER BY day DESC LIMIT 30`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var bucket DailyBucket
		if err := rows.Scan(&bucket.Day, &bucket.Count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.Daily = append(stats.Daily, bucket)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	points, err := s.ChartData(ctx, 200)
	if err != nil {
		return stats, err
	}
	if points != nil {
		stats.PriceHistory = points
	}
	return stats, nil
}
