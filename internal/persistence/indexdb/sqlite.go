package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"bidengine.ai/internal/sim/simulation"
)

// SQLiteIndex is a queryable read-model of recorded rounds. Writes are queued
// to a single writer goroutine and dropped when the queue is full; the JSONL
// bid log remains the source of truth.
type SQLiteIndex struct {
	db *sql.DB

	// mu keeps concurrent WriteRound calls from sending on a closed queue.
	mu   sync.RWMutex
	ch   chan simulation.RoundEntry
	wg   sync.WaitGroup
	once sync.Once

	closed    atomic.Bool
	dropped   atomic.Uint64
	written   atomic.Uint64
	writeErrs atomic.Uint64
}

var _ simulation.RoundLogger = (*SQLiteIndex)(nil)

type Stats struct {
	RoundsWritten   uint64
	DropRoundTotal  uint64
	WriteErrorTotal uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	return openSQLite(path, 4096)
}

func openSQLite(path string, queue int) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan simulation.RoundEntry, queue),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
		`CREATE TABLE IF NOT EXISTS rounds (
			simulation TEXT NOT NULL,
			seq INTEGER NOT NULL,
			round INTEGER NOT NULL,
			strategy TEXT NOT NULL,
			members INTEGER NOT NULL,
			tasks INTEGER NOT NULL,
			digest TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (simulation, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS pair_bids (
			simulation TEXT NOT NULL,
			seq INTEGER NOT NULL,
			agent INTEGER NOT NULL,
			ord INTEGER NOT NULL,
			task INTEGER NOT NULL,
			partner INTEGER NOT NULL,
			PRIMARY KEY (simulation, seq, agent, ord)
		);`,
		`CREATE TABLE IF NOT EXISTS solo_bids (
			simulation TEXT NOT NULL,
			seq INTEGER NOT NULL,
			agent INTEGER NOT NULL,
			ord INTEGER NOT NULL,
			task INTEGER NOT NULL,
			PRIMARY KEY (simulation, seq, agent, ord)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_solo_bids_task ON solo_bids(simulation, seq, task);`,
		`CREATE TABLE IF NOT EXISTS strong_agents (
			simulation TEXT NOT NULL,
			agent INTEGER NOT NULL,
			first_seq INTEGER NOT NULL,
			PRIMARY KEY (simulation, agent)
		);`,
		`CREATE TABLE IF NOT EXISTS sacrifices (
			simulation TEXT NOT NULL,
			seq INTEGER NOT NULL,
			task INTEGER NOT NULL,
			PRIMARY KEY (simulation, seq, task)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) WriteRound(e simulation.RoundEntry) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	return Stats{
		RoundsWritten:   s.written.Load(),
		DropRoundTotal:  s.dropped.Load(),
		WriteErrorTotal: s.writeErrs.Load(),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	for e := range s.ch {
		if err := s.writeRound(ctx, e); err != nil {
			s.writeErrs.Add(1)
			continue
		}
		s.written.Add(1)
	}
}

func (s *SQLiteIndex) writeRound(ctx context.Context, e simulation.RoundEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.Exec(`INSERT OR REPLACE INTO rounds(simulation,seq,round,strategy,members,tasks,digest,recorded_at) VALUES(?,?,?,?,?,?,?,?)`,
		e.Simulation, e.Seq, e.Round, e.Strategy, len(e.Snapshot.Members), len(e.Snapshot.Tasks), e.Digest, now); err != nil {
		return err
	}

	insertPair, err := tx.Prepare(`INSERT OR REPLACE INTO pair_bids(simulation,seq,agent,ord,task,partner) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer insertPair.Close()
	insertSolo, err := tx.Prepare(`INSERT OR REPLACE INTO solo_bids(simulation,seq,agent,ord,task) VALUES(?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer insertSolo.Close()

	for _, b := range e.Bids {
		for i, p := range b.PhaseOne {
			if _, err := insertPair.Exec(e.Simulation, e.Seq, b.Agent, i, p.Task, p.Partner); err != nil {
				return err
			}
		}
		for i, task := range b.PhaseTwo {
			if _, err := insertSolo.Exec(e.Simulation, e.Seq, b.Agent, i, task); err != nil {
				return err
			}
		}
	}
	// Strong classification is sticky: keep the first round it was seen.
	for _, id := range e.Strong {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO strong_agents(simulation,agent,first_seq) VALUES(?,?,?)`, e.Simulation, id, e.Seq); err != nil {
			return err
		}
	}
	if e.Sacrifice != nil {
		for _, task := range e.Sacrifice.Tasks {
			if _, err := tx.Exec(`INSERT OR REPLACE INTO sacrifices(simulation,seq,task) VALUES(?,?,?)`, e.Simulation, e.Seq, task); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
