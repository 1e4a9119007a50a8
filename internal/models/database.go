package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	sqlitecloud "github.com/sqlitecloud/sqlitecloud-go"
	"github.com/yt-insights/nicheexplorer/internal/logging"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// conn is the subset of *sqlitecloud.SQCloud the store uses.
type conn interface {
	Execute(sql string) error
	ExecuteArray(sql string, values []interface{}) error
	SelectArray(sql string, values []interface{}) (*sqlitecloud.Result, error)
	BeginTransaction() error
	EndTransaction() error
	RollBackTransaction() error
	Close() error
}

// Database represents the database connection and operations
type Database struct {
	db conn
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (*Database, error) {
	logging.Info().Str("db", maskConnectionString(dbPath)).Msg("connecting to SQLite Cloud")

	db, err := sqlitecloud.Connect(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite Cloud: %w", err)
	}

	database := &Database{
		db: db,
	}

	if err := database.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	return database, nil
}

// maskConnectionString hides the API key in logs
func maskConnectionString(connStr string) string {
	if strings.Contains(connStr, "apikey=") {
		parts := strings.Split(connStr, "apikey=")
		if len(parts) > 1 {
			return parts[0] + "apikey=***"
		}
	}
	return connStr
}

func (d *Database) executeSQL(sql string, args ...interface{}) error {
	if len(args) > 0 {
		return d.db.ExecuteArray(sql, args)
	}
	return d.db.Execute(sql)
}

func (d *Database) createTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS niche_runs (
			id TEXT PRIMARY KEY,
			keyword TEXT NOT NULL,
			params_json TEXT NOT NULL DEFAULT '{}',
			fetched_at INTEGER NOT NULL,
			collected INTEGER NOT NULL DEFAULT 0,
			pages INTEGER NOT NULL DEFAULT 0,
			stop_reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_niche_runs_keyword ON niche_runs(keyword)`,
		`CREATE TABLE IF NOT EXISTS niche_clusters (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			niche_run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			cluster_json TEXT NOT NULL,
			FOREIGN KEY (niche_run_id) REFERENCES niche_runs(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_niche_clusters_run_id ON niche_clusters(niche_run_id)`,
		`CREATE TABLE IF NOT EXISTS cache_entries (
			cache_key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			stored_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS channel_engagement (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			channel_id TEXT NOT NULL,
			engagement_type TEXT NOT NULL,
			update_date INTEGER NOT NULL,
			json_response TEXT NOT NULL,
			CONSTRAINT unique_channel_engagement UNIQUE(channel_id, engagement_type)
		)`,
	}

	for _, table := range tables {
		if err := d.executeSQL(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// SaveNicheRun stores a run and its ranked clusters in one transaction
func (d *Database) SaveNicheRun(run *NicheRun) error {
	params, err := json.Marshal(run.Params)
	if err != nil {
		return err
	}

	if err := d.db.BeginTransaction(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := d.insertNicheRun(run, string(params)); err != nil {
		if rbErr := d.db.RollBackTransaction(); rbErr != nil {
			logging.Error().Err(rbErr).Str("run_id", run.ID).Msg("rollback failed")
		}
		return err
	}
	if err := d.db.EndTransaction(); err != nil {
		return fmt.Errorf("failed to commit niche run: %w", err)
	}
	return nil
}

func (d *Database) insertNicheRun(run *NicheRun, params string) error {
	sql := `INSERT INTO niche_runs (id, keyword, params_json, fetched_at, collected, pages, stop_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?)`
	err := d.executeSQL(sql, run.ID, run.Keyword, params, run.FetchedAt.Unix(),
		run.Collected, run.Pages, string(run.StopReason))
	if err != nil {
		return fmt.Errorf("failed to insert niche run: %w", err)
	}

	for rank, cluster := range run.Clusters {
		data, err := json.Marshal(cluster)
		if err != nil {
			return err
		}
		sql := `INSERT INTO niche_clusters (niche_run_id, rank, cluster_json) VALUES (?, ?, ?)`
		if err := d.executeSQL(sql, run.ID, rank, string(data)); err != nil {
			return fmt.Errorf("failed to insert niche cluster %d: %w", cluster.Index, err)
		}
	}
	return nil
}

// GetNicheRun loads a stored run with its clusters in rank order
func (d *Database) GetNicheRun(id string) (*NicheRun, error) {
	sql := `SELECT id, keyword, params_json, fetched_at, collected, pages, stop_reason
			FROM niche_runs WHERE id = ?`
	result, err := d.db.SelectArray(sql, []interface{}{id})
	if err != nil {
		return nil, err
	}
	if result.GetNumberOfRows() == 0 {
		return nil, fmt.Errorf("niche run %s: %w", id, ErrNotFound)
	}

	fields := make([]string, 7)
	for col := range fields {
		v, err := result.GetStringValue(0, uint64(col))
		if err != nil {
			return nil, err
		}
		fields[col] = v
	}

	run := &NicheRun{
		ID:         fields[0],
		Keyword:    fields[1],
		StopReason: StopReason(fields[6]),
	}
	if err := json.Unmarshal([]byte(fields[2]), &run.Params); err != nil {
		return nil, fmt.Errorf("failed to parse params: %w", err)
	}
	fetchedAt, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fetched_at: %w", err)
	}
	run.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	if run.Collected, err = strconv.Atoi(fields[4]); err != nil {
		return nil, fmt.Errorf("failed to parse collected: %w", err)
	}
	if run.Pages, err = strconv.Atoi(fields[5]); err != nil {
		return nil, fmt.Errorf("failed to parse pages: %w", err)
	}
	run.Incomplete = run.StopReason.Incomplete()

	clusters, err := d.db.SelectArray(`SELECT cluster_json FROM niche_clusters
			WHERE niche_run_id = ? ORDER BY rank`, []interface{}{id})
	if err != nil {
		return nil, err
	}
	run.Clusters = make([]ClusterResult, 0, clusters.GetNumberOfRows())
	for row := uint64(0); row < clusters.GetNumberOfRows(); row++ {
		data, err := clusters.GetStringValue(row, 0)
		if err != nil {
			return nil, err
		}
		var cluster ClusterResult
		if err := json.Unmarshal([]byte(data), &cluster); err != nil {
			return nil, fmt.Errorf("failed to parse cluster: %w", err)
		}
		run.Clusters = append(run.Clusters, cluster)
	}
	return run, nil
}

// GetCacheEntry returns the stored value for key and when it was written
func (d *Database) GetCacheEntry(key string) ([]byte, time.Time, error) {
	result, err := d.db.SelectArray(`SELECT value, stored_at FROM cache_entries WHERE cache_key = ?`,
		[]interface{}{key})
	if err != nil {
		return nil, time.Time{}, err
	}
	if result.GetNumberOfRows() == 0 {
		return nil, time.Time{}, ErrNotFound
	}

	value, err := result.GetStringValue(0, 0)
	if err != nil {
		return nil, time.Time{}, err
	}
	stored, err := result.GetStringValue(0, 1)
	if err != nil {
		return nil, time.Time{}, err
	}
	storedAt, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse stored_at: %w", err)
	}
	return []byte(value), time.Unix(storedAt, 0), nil
}

// PutCacheEntry writes or replaces the value for key
func (d *Database) PutCacheEntry(key string, value []byte, storedAt time.Time) error {
	sql := `INSERT INTO cache_entries (cache_key, value, stored_at) VALUES (?, ?, ?)
			ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, stored_at = excluded.stored_at`
	return d.executeSQL(sql, key, string(value), storedAt.Unix())
}

// Close closes the database connection
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
