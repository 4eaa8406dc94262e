// Package persistence records simulation runs in SQLite: the parameters of
// each run, one statistics row per simulated day, the event log, and a
// final snapshot of residents and social ties.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/kibera-unrest/internal/agents"
	"github.com/talgya/kibera-unrest/internal/engine"
	"github.com/talgya/kibera-unrest/internal/social"
)

// DB wraps a SQLite connection for run recording.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		seed INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		residents INTEGER NOT NULL,
		households INTEGER NOT NULL,
		params_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS daily_stats (
		run_id TEXT NOT NULL,
		day INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		rebels INTEGER NOT NULL,
		heard_rumor INTEGER NOT NULL,
		avg_energy REAL NOT NULL,
		avg_aggression REAL NOT NULL,
		edges INTEGER NOT NULL,
		mean_degree REAL NOT NULL,
		stats_json TEXT NOT NULL,
		PRIMARY KEY (run_id, day)
	);

	CREATE TABLE IF NOT EXISTS residents (
		run_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		household_id INTEGER NOT NULL,
		age INTEGER NOT NULL,
		gender INTEGER NOT NULL,
		ethnicity TEXT NOT NULL,
		religion INTEGER NOT NULL,
		employment TEXT NOT NULL,
		identity TEXT NOT NULL,
		goal TEXT NOT NULL,
		placement TEXT NOT NULL,
		income REAL NOT NULL,
		energy REAL NOT NULL,
		aggression REAL NOT NULL,
		heard_rumor INTEGER NOT NULL,
		initial_rebel INTEGER NOT NULL,
		pos_x INTEGER NOT NULL,
		pos_y INTEGER NOT NULL,
		PRIMARY KEY (run_id, id)
	);

	CREATE TABLE IF NOT EXISTS social_edges (
		run_id TEXT NOT NULL,
		a INTEGER NOT NULL,
		b INTEGER NOT NULL,
		weight REAL NOT NULL,
		PRIMARY KEY (run_id, a, b)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_run_tick ON events(run_id, tick);
	CREATE INDEX IF NOT EXISTS idx_residents_identity ON residents(run_id, identity);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// StartRun records the run's parameters and population size.
func (db *DB) StartRun(sim *engine.Simulation) error {
	params, err := json.Marshal(sim.Params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	_, err = db.conn.Exec(`INSERT INTO runs
		(id, seed, started_at, residents, households, params_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sim.RunID, sim.Seed, time.Now().UTC().Format(time.RFC3339),
		len(sim.Residents), len(sim.Households), string(params),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", sim.RunID, err)
	}
	return db.SaveMeta("current_run", sim.RunID)
}

// SaveDailyStats writes one day's statistics, replacing any earlier row for
// the same day.
func (db *DB) SaveDailyStats(runID string, st engine.SimStats) error {
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	_, err = db.conn.Exec(`INSERT OR REPLACE INTO daily_stats
		(run_id, day, tick, rebels, heard_rumor, avg_energy, avg_aggression,
		 edges, mean_degree, stats_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, st.Day, st.Tick, st.Rebels, st.HeardRumor, st.AvgEnergy,
		st.AvgAggression, st.Edges, st.MeanDegree, string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert stats for day %d: %w", st.Day, err)
	}
	return nil
}

// DailyStats returns every recorded day of a run in day order.
func (db *DB) DailyStats(runID string) ([]engine.SimStats, error) {
	var blobs []string
	err := db.conn.Select(&blobs,
		"SELECT stats_json FROM daily_stats WHERE run_id = ? ORDER BY day", runID)
	if err != nil {
		return nil, err
	}

	out := make([]engine.SimStats, len(blobs))
	for i, b := range blobs {
		if err := json.Unmarshal([]byte(b), &out[i]); err != nil {
			return nil, fmt.Errorf("decode stats row %d: %w", i, err)
		}
	}
	return out, nil
}

type residentRow struct {
	RunID        string  `db:"run_id"`
	ID           uint64  `db:"id"`
	HouseholdID  int     `db:"household_id"`
	Age          int     `db:"age"`
	Gender       int     `db:"gender"`
	Ethnicity    string  `db:"ethnicity"`
	Religion     int     `db:"religion"`
	Employment   string  `db:"employment"`
	Identity     string  `db:"identity"`
	Goal         string  `db:"goal"`
	Placement    string  `db:"placement"`
	Income       float64 `db:"income"`
	Energy       float64 `db:"energy"`
	Aggression   float64 `db:"aggression"`
	HeardRumor   bool    `db:"heard_rumor"`
	InitialRebel bool    `db:"initial_rebel"`
	PosX         int     `db:"pos_x"`
	PosY         int     `db:"pos_y"`
}

func residentRows(runID string, residents []*agents.Resident) []residentRow {
	rows := make([]residentRow, 0, len(residents))
	for _, r := range residents {
		row := residentRow{
			RunID:        runID,
			ID:           uint64(r.ID),
			HouseholdID:  r.Household.ID,
			Age:          r.Age,
			Gender:       int(r.Gender),
			Ethnicity:    r.Ethnicity,
			Religion:     int(r.Religion),
			Employment:   r.Employment.String(),
			Identity:     r.Identity.String(),
			Goal:         r.Goal.String(),
			Placement:    r.Placement.Kind.String(),
			Income:       r.Income,
			Energy:       r.Energy,
			Aggression:   r.Aggression,
			HeardRumor:   r.HeardRumor,
			InitialRebel: r.InitialRebel,
		}
		if r.Position != nil {
			row.PosX, row.PosY = r.Position.Coord.X, r.Position.Coord.Y
		}
		rows = append(rows, row)
	}
	return rows
}

// writeResidents replaces a run's resident snapshot.
func (db *DB) writeResidents(runID string, rows []residentRow) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM residents WHERE run_id = ?", runID); err != nil {
		return err
	}

	stmt, err := tx.PrepareNamed(`INSERT INTO residents
		(run_id, id, household_id, age, gender, ethnicity, religion, employment,
		 identity, goal, placement, income, energy, aggression, heard_rumor,
		 initial_rebel, pos_x, pos_y)
		VALUES (:run_id, :id, :household_id, :age, :gender, :ethnicity, :religion,
		 :employment, :identity, :goal, :placement, :income, :energy, :aggression,
		 :heard_rumor, :initial_rebel, :pos_x, :pos_y)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.Exec(row); err != nil {
			return fmt.Errorf("insert resident %d: %w", row.ID, err)
		}
	}

	return tx.Commit()
}

// CountByIdentity returns how many residents of a run's last snapshot hold
// each identity.
func (db *DB) CountByIdentity(runID string) (map[string]int, error) {
	var rows []struct {
		Identity string `db:"identity"`
		N        int    `db:"n"`
	}
	err := db.conn.Select(&rows,
		"SELECT identity, COUNT(*) AS n FROM residents WHERE run_id = ? GROUP BY identity", runID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Identity] = r.N
	}
	return out, nil
}

// SaveEdges writes the social graph (full replace per run).
func (db *DB) SaveEdges(runID string, edges []*social.Edge) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM social_edges WHERE run_id = ?", runID); err != nil {
		return err
	}

	stmt, err := tx.Preparex("INSERT INTO social_edges (run_id, a, b, weight) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.Exec(runID, uint64(e.A), uint64(e.B), e.Weight); err != nil {
			return fmt.Errorf("insert edge %d-%d: %w", e.A, e.B, err)
		}
	}

	return tx.Commit()
}

// Edges returns a run's recorded ties.
func (db *DB) Edges(runID string) ([]social.Edge, error) {
	var edges []social.Edge
	err := db.conn.Select(&edges,
		"SELECT a, b, weight FROM social_edges WHERE run_id = ? ORDER BY a, b", runID)
	return edges, err
}

// SaveEvents appends events to the database.
func (db *DB) SaveEvents(runID string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.Exec(
			"INSERT INTO events (run_id, tick, description, category) VALUES (?, ?, ?, ?)",
			runID, e.Tick, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// SaveDay records the statistics and events of the day that ended at tick.
// It is meant to run from the engine's day layer.
func (db *DB) SaveDay(sim *engine.Simulation, tick uint64) error {
	var st engine.SimStats
	var events []engine.Event
	sim.Read(func() {
		st = sim.Stats
		dayStart := tick + 1 - uint64(sim.Clock.MinutesPerDay)
		for _, e := range sim.Events {
			if e.Tick >= dayStart && e.Tick <= tick {
				events = append(events, e)
			}
		}
	})

	if err := db.SaveDailyStats(sim.RunID, st); err != nil {
		return err
	}
	if err := db.SaveEvents(sim.RunID, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return db.SaveMeta("last_tick", fmt.Sprintf("%d", tick))
}

// SaveWorldState writes the resident and social-graph snapshot. The
// snapshot is taken between ticks, so it is safe while the engine runs.
func (db *DB) SaveWorldState(sim *engine.Simulation) error {
	var rows []residentRow
	var edges []*social.Edge
	var tick uint64
	sim.Read(func() {
		rows = residentRows(sim.RunID, sim.Residents)
		for _, e := range sim.Graph.Edges() {
			c := *e
			edges = append(edges, &c)
		}
		tick = sim.CurrentTick()
	})
	slog.Info("saving world state", "residents", len(rows), "edges", len(edges))

	if err := db.writeResidents(sim.RunID, rows); err != nil {
		return fmt.Errorf("save residents: %w", err)
	}
	if err := db.SaveEdges(sim.RunID, edges); err != nil {
		return fmt.Errorf("save edges: %w", err)
	}
	if err := db.SaveMeta("last_tick", fmt.Sprintf("%d", tick)); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}

	slog.Info("world state saved")
	return nil
}

// RecentEvents returns the most recent N events of a run.
func (db *DB) RecentEvents(runID string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.Select(&events,
		"SELECT tick, description, category FROM events WHERE run_id = ? ORDER BY id DESC LIMIT ?",
		runID, limit,
	)
	return events, err
}
