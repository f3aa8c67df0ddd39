package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/world"
)

// ErrNoWorld is returned by LoadWorld when the database holds no save.
var ErrNoWorld = errors.New("no saved world")

// HasWorld reports whether the database holds a saved world.
func (db *DB) HasWorld() (bool, error) {
	_, err := db.GetMeta("last_tick")
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LoadWorld rehydrates the full world state. Building occupancy is
// re-derived from footprints; current visibility is left for the
// vision engine's first update. Returns the save timestamp for the
// offline catch-up pass.
func (db *DB) LoadWorld() (*world.State, time.Time, error) {
	has, err := db.HasWorld()
	if err != nil {
		return nil, time.Time{}, err
	}
	if !has {
		return nil, time.Time{}, ErrNoWorld
	}

	m, err := db.loadMap()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load map: %w", err)
	}
	st := world.NewState(m)

	if err := db.loadPlayers(st); err != nil {
		return nil, time.Time{}, fmt.Errorf("load players: %w", err)
	}
	if err := db.loadBuildings(st); err != nil {
		return nil, time.Time{}, fmt.Errorf("load buildings: %w", err)
	}
	if err := db.loadCommanders(st); err != nil {
		return nil, time.Time{}, fmt.Errorf("load commanders: %w", err)
	}
	if err := db.loadArmies(st); err != nil {
		return nil, time.Time{}, fmt.Errorf("load armies: %w", err)
	}
	if err := db.loadReinforcements(st); err != nil {
		return nil, time.Time{}, fmt.Errorf("load reinforcements: %w", err)
	}
	if err := db.loadGroups(st); err != nil {
		return nil, time.Time{}, fmt.Errorf("load villager groups: %w", err)
	}
	if err := db.loadPoints(st); err != nil {
		return nil, time.Time{}, fmt.Errorf("load resource points: %w", err)
	}

	if v, err := db.GetMeta("last_tick"); err == nil {
		st.Tick, _ = strconv.ParseUint(v, 10, 64)
	}
	if v, err := db.GetMeta("next_id"); err == nil {
		next, _ := strconv.ParseUint(v, 10, 64)
		st.SetNextID(next)
	}

	savedAt := time.Now()
	if v, err := db.GetMeta("saved_at"); err == nil {
		if t, perr := time.Parse(time.RFC3339, v); perr == nil {
			savedAt = t
		}
	}
	return st, savedAt, nil
}

func (db *DB) loadMap() (*hexmap.Map, error) {
	width, height := 0, 0
	if v, err := db.GetMeta("map_width"); err == nil {
		width, _ = strconv.Atoi(v)
	}
	if v, err := db.GetMeta("map_height"); err == nil {
		height, _ = strconv.Atoi(v)
	}

	rows, err := db.conn.Queryx("SELECT q, r, terrain, elevation FROM tiles")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := hexmap.NewMap(width, height)
	for rows.Next() {
		var q, r, terrain int
		var elevation float64
		if err := rows.Scan(&q, &r, &terrain, &elevation); err != nil {
			return nil, err
		}
		m.Set(&hexmap.Tile{
			Coord:     hexmap.HexCoord{Q: q, R: r},
			Terrain:   hexmap.Terrain(terrain),
			Elevation: elevation,
		})
	}
	return m, rows.Err()
}

func (db *DB) loadPlayers(st *world.State) error {
	rows, err := db.conn.Queryx(`SELECT id, name, ai, resources_json, relations_json,
		explored_json, completed_research_json, active_research, research_start_tick,
		home_base_id FROM players`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, homeBase                     uint64
			ai                               int
			name, active                     string
			resJSON, relJSON, expJSON, crJSON string
			researchStart                    uint64
		)
		if err := rows.Scan(&id, &name, &ai, &resJSON, &relJSON, &expJSON, &crJSON,
			&active, &researchStart, &homeBase); err != nil {
			return err
		}
		p := world.NewPlayer(world.PlayerID(id), name, ai != 0)
		if err := json.Unmarshal([]byte(resJSON), &p.Resources); err != nil {
			return fmt.Errorf("player %d resources: %w", id, err)
		}
		if err := json.Unmarshal([]byte(relJSON), &p.Relations); err != nil {
			return fmt.Errorf("player %d relations: %w", id, err)
		}
		var explored []hexmap.HexCoord
		if err := json.Unmarshal([]byte(expJSON), &explored); err != nil {
			return fmt.Errorf("player %d explored: %w", id, err)
		}
		for _, coord := range explored {
			p.Fog[coord] = world.VisibilityExplored
		}
		if err := json.Unmarshal([]byte(crJSON), &p.CompletedResearch); err != nil {
			return fmt.Errorf("player %d research: %w", id, err)
		}
		p.ActiveResearch = world.ResearchID(active)
		p.ResearchStartTick = researchStart
		p.HomeBaseID = world.BuildingID(homeBase)
		st.AddPlayer(p)
	}
	return rows.Err()
}

func (db *DB) loadBuildings(st *world.State) error {
	rows, err := db.conn.Queryx(`SELECT id, owner, type, level, origin_q, origin_r,
		rotation, hp, max_hp, state, construction_start, upgrade_start, demolition_start,
		garrison_json, training_json FROM buildings`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, owner                       uint64
			typ, level, q, r, rotation      int
			hp, maxHP, state                int
			cStart, uStart, dStart          uint64
			garrisonJSON, trainingJSON      string
		)
		if err := rows.Scan(&id, &owner, &typ, &level, &q, &r, &rotation,
			&hp, &maxHP, &state, &cStart, &uStart, &dStart,
			&garrisonJSON, &trainingJSON); err != nil {
			return err
		}
		b := &world.Building{
			ID:                world.BuildingID(id),
			Owner:             world.PlayerID(owner),
			Type:              world.BuildingType(typ),
			Level:             level,
			Origin:            hexmap.HexCoord{Q: q, R: r},
			Rotation:          rotation,
			HP:                hp,
			MaxHP:             maxHP,
			State:             world.BuildingState(state),
			ConstructionStart: cStart,
			UpgradeStart:      uStart,
			DemolitionStart:   dStart,
		}
		// Occupancy is derived, not stored.
		b.Occupied = world.FootprintAt(b.Type, b.Origin, b.Rotation)
		if err := json.Unmarshal([]byte(garrisonJSON), &b.Garrison); err != nil {
			return fmt.Errorf("building %d garrison: %w", id, err)
		}
		if b.Garrison.Units == nil {
			b.Garrison.Units = make(map[world.UnitType]int)
		}
		if err := json.Unmarshal([]byte(trainingJSON), &b.Training); err != nil {
			return fmt.Errorf("building %d training: %w", id, err)
		}
		st.AddBuilding(b)
	}
	return rows.Err()
}

func (db *DB) loadCommanders(st *world.State) error {
	rows, err := db.conn.Queryx("SELECT id, owner, name, leadership, tactics FROM commanders")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, owner            uint64
			name                 string
			leadership, tactics  int
		)
		if err := rows.Scan(&id, &owner, &name, &leadership, &tactics); err != nil {
			return err
		}
		st.AddCommander(&world.Commander{
			ID:         world.CommanderID(id),
			Owner:      world.PlayerID(owner),
			Name:       name,
			Leadership: leadership,
			Tactics:    tactics,
		})
	}
	return rows.Err()
}

func (db *DB) loadArmies(st *world.State) error {
	rows, err := db.conn.Queryx(`SELECT id, owner, q, r, commander_id, composition_json,
		entrenched, entrench_start_tick, path_json, last_move_tick,
		state, home_base_id FROM armies`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, owner, commanderID, homeBase uint64
			q, r, entrenched, state          int
			entrenchStart, lastMove          uint64
			compJSON, pathJSON               string
		)
		if err := rows.Scan(&id, &owner, &q, &r, &commanderID, &compJSON,
			&entrenched, &entrenchStart, &pathJSON, &lastMove,
			&state, &homeBase); err != nil {
			return err
		}
		a := world.NewArmy(world.ArmyID(id), world.PlayerID(owner), hexmap.HexCoord{Q: q, R: r})
		a.CommanderID = world.CommanderID(commanderID)
		a.Entrenched = entrenched != 0
		a.EntrenchStartTick = entrenchStart
		a.LastMoveTick = lastMove
		a.State = world.ArmyState(state)
		a.HomeBaseID = world.BuildingID(homeBase)
		if err := json.Unmarshal([]byte(compJSON), &a.Composition); err != nil {
			return fmt.Errorf("army %d composition: %w", id, err)
		}
		if a.Composition == nil {
			a.Composition = make(map[world.UnitType]int)
		}
		if err := json.Unmarshal([]byte(pathJSON), &a.Path); err != nil {
			return fmt.Errorf("army %d path: %w", id, err)
		}
		st.AddArmy(a)
	}
	return rows.Err()
}

func (db *DB) loadReinforcements(st *world.State) error {
	rows, err := db.conn.Queryx(`SELECT target_id, source_id, arrive_tick, q, r,
		units_json, path_json FROM reinforcements ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			targetID, sourceID, arriveTick uint64
			q, r                           int
			unitsJSON, pathJSON            string
		)
		if err := rows.Scan(&targetID, &sourceID, &arriveTick, &q, &r,
			&unitsJSON, &pathJSON); err != nil {
			return err
		}
		col := &world.Reinforcement{
			TargetID:   world.ArmyID(targetID),
			SourceID:   world.BuildingID(sourceID),
			ArriveTick: arriveTick,
			Coord:      hexmap.HexCoord{Q: q, R: r},
		}
		if err := json.Unmarshal([]byte(unitsJSON), &col.Units); err != nil {
			return fmt.Errorf("reinforcement toward army %d units: %w", targetID, err)
		}
		if err := json.Unmarshal([]byte(pathJSON), &col.Path); err != nil {
			return fmt.Errorf("reinforcement toward army %d path: %w", targetID, err)
		}
		st.AddReinforcement(col)
	}
	return rows.Err()
}

func (db *DB) loadGroups(st *world.State) error {
	rows, err := db.conn.Queryx(`SELECT id, owner, q, r, count, task, target_q, target_r,
		target_point_id, target_building_id, path_json, last_move_tick, last_gather_tick
		FROM villager_groups`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, owner, pointID, buildingID uint64
			q, r, count, task, tq, tr      int
			pathJSON                       string
			lastMove, lastGather           uint64
		)
		if err := rows.Scan(&id, &owner, &q, &r, &count, &task, &tq, &tr,
			&pointID, &buildingID, &pathJSON, &lastMove, &lastGather); err != nil {
			return err
		}
		g := world.NewVillagerGroup(world.GroupID(id), world.PlayerID(owner), hexmap.HexCoord{Q: q, R: r}, count)
		g.Task = world.VillagerTask(task)
		g.TargetCoord = hexmap.HexCoord{Q: tq, R: tr}
		g.TargetPointID = world.PointID(pointID)
		g.TargetBuilding = world.BuildingID(buildingID)
		g.LastMoveTick = lastMove
		g.LastGatherTick = lastGather
		if err := json.Unmarshal([]byte(pathJSON), &g.Path); err != nil {
			return fmt.Errorf("villager group %d path: %w", id, err)
		}
		st.AddVillagerGroup(g)
	}
	return rows.Err()
}

func (db *DB) loadPoints(st *world.State) error {
	rows, err := db.conn.Queryx(`SELECT id, type, q, r, remaining, hp, capacity,
		assigned_json FROM resource_points`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                       uint64
			typ, q, r                int
			remaining, hp, capacity  int
			assignedJSON             string
		)
		if err := rows.Scan(&id, &typ, &q, &r, &remaining, &hp, &capacity, &assignedJSON); err != nil {
			return err
		}
		rp := &world.ResourcePoint{
			ID:        world.PointID(id),
			Type:      world.ResourcePointType(typ),
			Coord:     hexmap.HexCoord{Q: q, R: r},
			Remaining: remaining,
			HP:        hp,
			Capacity:  capacity,
		}
		if err := json.Unmarshal([]byte(assignedJSON), &rp.AssignedGroups); err != nil {
			return fmt.Errorf("resource point %d assigned: %w", id, err)
		}
		st.AddResourcePoint(rp)
	}
	return rows.Err()
}
