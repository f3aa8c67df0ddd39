// Package persistence stores the world in SQLite. Saves are full
// transactional replaces; loads rehydrate the state and re-derive what
// can be recomputed (building occupancy, current visibility) instead of
// persisting it.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/sim"
	"github.com/talgya/hexfront/internal/world"
)

// DB wraps a SQLite connection for world state persistence.
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
	CREATE TABLE IF NOT EXISTS tiles (
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		terrain INTEGER NOT NULL,
		elevation REAL NOT NULL,
		PRIMARY KEY (q, r)
	);

	CREATE TABLE IF NOT EXISTS players (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		ai INTEGER NOT NULL,
		resources_json TEXT NOT NULL,
		relations_json TEXT NOT NULL,
		explored_json TEXT NOT NULL,
		completed_research_json TEXT NOT NULL,
		active_research TEXT NOT NULL,
		research_start_tick INTEGER NOT NULL,
		home_base_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS buildings (
		id INTEGER PRIMARY KEY,
		owner INTEGER NOT NULL,
		type INTEGER NOT NULL,
		level INTEGER NOT NULL,
		origin_q INTEGER NOT NULL,
		origin_r INTEGER NOT NULL,
		rotation INTEGER NOT NULL,
		hp INTEGER NOT NULL,
		max_hp INTEGER NOT NULL,
		state INTEGER NOT NULL,
		construction_start INTEGER NOT NULL,
		upgrade_start INTEGER NOT NULL,
		demolition_start INTEGER NOT NULL,
		garrison_json TEXT NOT NULL,
		training_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS commanders (
		id INTEGER PRIMARY KEY,
		owner INTEGER NOT NULL,
		name TEXT NOT NULL,
		leadership INTEGER NOT NULL,
		tactics INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS armies (
		id INTEGER PRIMARY KEY,
		owner INTEGER NOT NULL,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		commander_id INTEGER NOT NULL,
		composition_json TEXT NOT NULL,
		entrenched INTEGER NOT NULL,
		entrench_start_tick INTEGER NOT NULL,
		path_json TEXT NOT NULL,
		last_move_tick INTEGER NOT NULL,
		state INTEGER NOT NULL,
		home_base_id INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reinforcements (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target_id INTEGER NOT NULL,
		source_id INTEGER NOT NULL,
		arrive_tick INTEGER NOT NULL,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		units_json TEXT NOT NULL,
		path_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS villager_groups (
		id INTEGER PRIMARY KEY,
		owner INTEGER NOT NULL,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		count INTEGER NOT NULL,
		task INTEGER NOT NULL,
		target_q INTEGER NOT NULL,
		target_r INTEGER NOT NULL,
		target_point_id INTEGER NOT NULL,
		target_building_id INTEGER NOT NULL,
		path_json TEXT NOT NULL,
		last_move_tick INTEGER NOT NULL,
		last_gather_tick INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS resource_points (
		id INTEGER PRIMARY KEY,
		type INTEGER NOT NULL,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		remaining INTEGER NOT NULL,
		hp INTEGER NOT NULL,
		capacity INTEGER NOT NULL,
		assigned_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		tick INTEGER NOT NULL,
		kind TEXT NOT NULL,
		player INTEGER NOT NULL,
		payload_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_tick ON events(tick);
	CREATE INDEX IF NOT EXISTS idx_buildings_owner ON buildings(owner);
	CREATE INDEX IF NOT EXISTS idx_armies_owner ON armies(owner);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveMap writes the immutable tile grid. Called once, at generation.
func (db *DB) SaveMap(m *hexmap.Map) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM tiles"); err != nil {
		return err
	}
	stmt, err := tx.Preparex("INSERT INTO tiles (q, r, terrain, elevation) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range m.Tiles {
		if _, err := stmt.Exec(t.Coord.Q, t.Coord.R, t.Terrain, t.Elevation); err != nil {
			return fmt.Errorf("insert tile (%d,%d): %w", t.Coord.Q, t.Coord.R, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	if err := db.SaveMeta("map_width", strconv.Itoa(m.Width)); err != nil {
		return err
	}
	return db.SaveMeta("map_height", strconv.Itoa(m.Height))
}

// SaveWorld performs a full transactional replace of all mutable state.
func (db *DB) SaveWorld(st *world.State) error {
	slog.Info("saving world state",
		"tick", st.Tick,
		"players", len(st.Players),
		"buildings", len(st.Buildings),
		"armies", len(st.Armies),
	)

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := savePlayers(tx, st); err != nil {
		return fmt.Errorf("save players: %w", err)
	}
	if err := saveBuildings(tx, st); err != nil {
		return fmt.Errorf("save buildings: %w", err)
	}
	if err := saveCommanders(tx, st); err != nil {
		return fmt.Errorf("save commanders: %w", err)
	}
	if err := saveArmies(tx, st); err != nil {
		return fmt.Errorf("save armies: %w", err)
	}
	if err := saveReinforcements(tx, st); err != nil {
		return fmt.Errorf("save reinforcements: %w", err)
	}
	if err := saveGroups(tx, st); err != nil {
		return fmt.Errorf("save villager groups: %w", err)
	}
	if err := savePoints(tx, st); err != nil {
		return fmt.Errorf("save resource points: %w", err)
	}
	if err := saveMetaTx(tx, "last_tick", strconv.FormatUint(st.Tick, 10)); err != nil {
		return err
	}
	if err := saveMetaTx(tx, "next_id", strconv.FormatUint(st.PeekNextID(), 10)); err != nil {
		return err
	}
	if err := saveMetaTx(tx, "saved_at", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("world state saved", "tick", st.Tick)
	return nil
}

func savePlayers(tx *sqlx.Tx, st *world.State) error {
	if _, err := tx.Exec("DELETE FROM players"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO players
		(id, name, ai, resources_json, relations_json, explored_json,
		 completed_research_json, active_research, research_start_tick, home_base_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range st.Players {
		// Persist the sticky explored set; the visible layer is
		// re-derived by the vision engine after load.
		var explored []hexmap.HexCoord
		for coord, v := range p.Fog {
			if v != world.VisibilityUnexplored {
				explored = append(explored, coord)
			}
		}
		_, err := stmt.Exec(
			p.ID, p.Name, boolInt(p.AI),
			mustJSON(p.Resources), mustJSON(p.Relations), mustJSON(explored),
			mustJSON(p.CompletedResearch), string(p.ActiveResearch),
			p.ResearchStartTick, p.HomeBaseID,
		)
		if err != nil {
			return fmt.Errorf("insert player %d: %w", p.ID, err)
		}
	}
	return nil
}

func saveBuildings(tx *sqlx.Tx, st *world.State) error {
	if _, err := tx.Exec("DELETE FROM buildings"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO buildings
		(id, owner, type, level, origin_q, origin_r, rotation, hp, max_hp, state,
		 construction_start, upgrade_start, demolition_start, garrison_json, training_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range st.Buildings {
		_, err := stmt.Exec(
			b.ID, b.Owner, b.Type, b.Level,
			b.Origin.Q, b.Origin.R, b.Rotation,
			b.HP, b.MaxHP, b.State,
			b.ConstructionStart, b.UpgradeStart, b.DemolitionStart,
			mustJSON(b.Garrison), mustJSON(b.Training),
		)
		if err != nil {
			return fmt.Errorf("insert building %d: %w", b.ID, err)
		}
	}
	return nil
}

func saveCommanders(tx *sqlx.Tx, st *world.State) error {
	if _, err := tx.Exec("DELETE FROM commanders"); err != nil {
		return err
	}
	for _, c := range st.Commanders {
		_, err := tx.Exec(
			"INSERT INTO commanders (id, owner, name, leadership, tactics) VALUES (?, ?, ?, ?, ?)",
			c.ID, c.Owner, c.Name, c.Leadership, c.Tactics,
		)
		if err != nil {
			return fmt.Errorf("insert commander %d: %w", c.ID, err)
		}
	}
	return nil
}

func saveArmies(tx *sqlx.Tx, st *world.State) error {
	if _, err := tx.Exec("DELETE FROM armies"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO armies
		(id, owner, q, r, commander_id, composition_json, entrenched,
		 entrench_start_tick, path_json, last_move_tick, state, home_base_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range st.Armies {
		_, err := stmt.Exec(
			a.ID, a.Owner, a.Coord.Q, a.Coord.R, a.CommanderID,
			mustJSON(a.Composition), boolInt(a.Entrenched), a.EntrenchStartTick,
			mustJSON(a.Path), a.LastMoveTick, a.State, a.HomeBaseID,
		)
		if err != nil {
			return fmt.Errorf("insert army %d: %w", a.ID, err)
		}
	}
	return nil
}

func saveReinforcements(tx *sqlx.Tx, st *world.State) error {
	if _, err := tx.Exec("DELETE FROM reinforcements"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO reinforcements
		(target_id, source_id, arrive_tick, q, r, units_json, path_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range st.Reinforcements {
		_, err := stmt.Exec(
			r.TargetID, r.SourceID, r.ArriveTick,
			r.Coord.Q, r.Coord.R, mustJSON(r.Units), mustJSON(r.Path),
		)
		if err != nil {
			return fmt.Errorf("insert reinforcement toward army %d: %w", r.TargetID, err)
		}
	}
	return nil
}

func saveGroups(tx *sqlx.Tx, st *world.State) error {
	if _, err := tx.Exec("DELETE FROM villager_groups"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO villager_groups
		(id, owner, q, r, count, task, target_q, target_r, target_point_id,
		 target_building_id, path_json, last_move_tick, last_gather_tick)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, g := range st.VillagerGroups {
		_, err := stmt.Exec(
			g.ID, g.Owner, g.Coord.Q, g.Coord.R, g.Count, g.Task,
			g.TargetCoord.Q, g.TargetCoord.R, g.TargetPointID, g.TargetBuilding,
			mustJSON(g.Path), g.LastMoveTick, g.LastGatherTick,
		)
		if err != nil {
			return fmt.Errorf("insert villager group %d: %w", g.ID, err)
		}
	}
	return nil
}

func savePoints(tx *sqlx.Tx, st *world.State) error {
	if _, err := tx.Exec("DELETE FROM resource_points"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO resource_points
		(id, type, q, r, remaining, hp, capacity, assigned_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, rp := range st.ResourcePoints {
		_, err := stmt.Exec(
			rp.ID, rp.Type, rp.Coord.Q, rp.Coord.R,
			rp.Remaining, rp.HP, rp.Capacity, mustJSON(rp.AssignedGroups),
		)
		if err != nil {
			return fmt.Errorf("insert resource point %d: %w", rp.ID, err)
		}
	}
	return nil
}

// SaveEvents appends state changes to the event log.
func (db *DB) SaveEvents(events []sim.StateChange) error {
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
			"INSERT OR IGNORE INTO events (event_id, tick, kind, player, payload_json) VALUES (?, ?, ?, ?, ?)",
			e.ID, e.Tick, string(e.Kind), e.Player, mustJSON(e),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentEvents returns the most recent N events, oldest first.
func (db *DB) RecentEvents(limit int) ([]sim.StateChange, error) {
	var payloads []string
	err := db.conn.Select(&payloads,
		"SELECT payload_json FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	events := make([]sim.StateChange, 0, len(payloads))
	for i := len(payloads) - 1; i >= 0; i-- {
		var e sim.StateChange
		if err := json.Unmarshal([]byte(payloads[i]), &e); err != nil {
			return nil, fmt.Errorf("decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, nil
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

func saveMetaTx(tx *sqlx.Tx, key, value string) error {
	_, err := tx.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
