// Package api serves the world over HTTP. GET endpoints are public
// read-only observation; the command endpoint and admin controls
// require a bearer token.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexfront/internal/command"
	"github.com/talgya/hexfront/internal/engine"
	"github.com/talgya/hexfront/internal/hexmap"
	"github.com/talgya/hexfront/internal/persistence"
	"github.com/talgya/hexfront/internal/world"
)

// Server serves the simulation state over HTTP.
type Server struct {
	Sched    *engine.Scheduler
	Loop     *engine.Loop
	DB       *persistence.DB
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.

	// Mu serializes API access against the tick loop: the simulation
	// is single-threaded by contract, so every read or command holds
	// the same lock the loop holds while stepping.
	Mu *sync.Mutex
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	commandLimiter := NewCommandLimiter(600, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.locked(s.handleStatus))
	mux.HandleFunc("/api/v1/players", s.locked(s.handlePlayers))
	mux.HandleFunc("/api/v1/armies", s.locked(s.handleArmies))
	mux.HandleFunc("/api/v1/buildings", s.locked(s.handleBuildings))
	mux.HandleFunc("/api/v1/events", s.locked(s.handleEvents))
	mux.HandleFunc("/api/v1/map", s.locked(s.handleMapRoutes))
	mux.HandleFunc("/api/v1/map/", s.locked(s.handleMapRoutes))

	// Control plane (POST, bearer token).
	mux.HandleFunc("/api/v1/command", limitCommands(commandLimiter, s.adminOnly(s.locked(s.handleCommand))))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.locked(s.handleSnapshot)))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// locked wraps a handler so it holds the simulation lock.
func (s *Server) locked(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Mu != nil {
			s.Mu.Lock()
			defer s.Mu.Unlock()
		}
		next(w, r)
	}
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no HEXFRONT_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.Sched.Ctx.State

	totalUnits := 0
	for _, a := range st.Armies {
		totalUnits += a.TotalUnits()
	}

	writeJSON(w, map[string]any{
		"name":            "Hexfront",
		"tick":            st.Tick,
		"game_time":       engine.GameTime(st.Tick),
		"speed":           s.Loop.Speed,
		"running":         s.Loop.Running,
		"players":         len(st.Players),
		"armies":          len(st.Armies),
		"units":           humanize.Comma(int64(totalUnits)),
		"buildings":       len(st.Buildings),
		"villager_groups": len(st.VillagerGroups),
		"resource_points": len(st.ResourcePoints),
		"active_combats":  len(s.Sched.Combat.Active()),
	})
}

func (s *Server) handlePlayers(w http.ResponseWriter, r *http.Request) {
	st := s.Sched.Ctx.State

	type playerEntry struct {
		ID        world.PlayerID    `json:"id"`
		Name      string            `json:"name"`
		AI        bool              `json:"ai"`
		Resources map[string]string `json:"resources"`
		Rates     map[string]string `json:"rates"`
		Research  string            `json:"active_research,omitempty"`
		Completed int               `json:"completed_research"`
	}

	players := make([]playerEntry, 0, len(st.Players))
	for _, p := range st.Players {
		resources := make(map[string]string, len(world.AllResources))
		rates := make(map[string]string, len(world.AllResources))
		for _, res := range world.AllResources {
			resources[world.ResourceName(res)] = humanize.Comma(int64(p.Resources[res]))
			rates[world.ResourceName(res)] = fmt.Sprintf("%.2f/tick", p.Rates[res])
		}
		players = append(players, playerEntry{
			ID:        p.ID,
			Name:      p.Name,
			AI:        p.AI,
			Resources: resources,
			Rates:     rates,
			Research:  string(p.ActiveResearch),
			Completed: len(p.CompletedResearch),
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	writeJSON(w, players)
}

func (s *Server) handleArmies(w http.ResponseWriter, r *http.Request) {
	st := s.Sched.Ctx.State

	type armyEntry struct {
		ID       world.ArmyID             `json:"id"`
		Owner    world.PlayerID           `json:"owner"`
		Q        int                      `json:"q"`
		R        int                      `json:"r"`
		State    string                   `json:"state"`
		Units    map[world.UnitType]int   `json:"units"`
		Strength int                      `json:"strength"`
		Moving   bool                     `json:"moving"`
	}

	armies := make([]armyEntry, 0, len(st.Armies))
	for _, a := range st.Armies {
		armies = append(armies, armyEntry{
			ID:       a.ID,
			Owner:    a.Owner,
			Q:        a.Coord.Q,
			R:        a.Coord.R,
			State:    world.ArmyStateName(a.State),
			Units:    a.Composition,
			Strength: a.Strength(),
			Moving:   a.Moving(),
		})
	}
	sort.Slice(armies, func(i, j int) bool { return armies[i].ID < armies[j].ID })
	writeJSON(w, armies)
}

func (s *Server) handleBuildings(w http.ResponseWriter, r *http.Request) {
	st := s.Sched.Ctx.State

	type buildingEntry struct {
		ID       world.BuildingID `json:"id"`
		Owner    world.PlayerID   `json:"owner"`
		Type     string           `json:"type"`
		Level    int              `json:"level"`
		Q        int              `json:"q"`
		R        int              `json:"r"`
		HP       int              `json:"hp"`
		MaxHP    int              `json:"max_hp"`
		State    string           `json:"state"`
		Garrison int              `json:"garrison"`
	}

	buildings := make([]buildingEntry, 0, len(st.Buildings))
	for _, b := range st.Buildings {
		buildings = append(buildings, buildingEntry{
			ID:       b.ID,
			Owner:    b.Owner,
			Type:     world.BuildingName(b.Type),
			Level:    b.Level,
			Q:        b.Origin.Q,
			R:        b.Origin.R,
			HP:       b.HP,
			MaxHP:    b.MaxHP,
			State:    world.BuildingStateName(b.State),
			Garrison: b.Garrison.Count(),
		})
	}
	sort.Slice(buildings, func(i, j int) bool { return buildings[i].ID < buildings[j].ID })
	writeJSON(w, buildings)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	writeJSON(w, s.Sched.RecentEvents(limit))
}

// handleMapRoutes dispatches between bulk map (GET /api/v1/map) and
// tile detail (GET /api/v1/map/:q/:r).
func (s *Server) handleMapRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/map")
	if path == "" || path == "/" {
		s.handleBulkMap(w, r)
		return
	}
	s.handleTileDetail(w, r, path)
}

func (s *Server) handleBulkMap(w http.ResponseWriter, r *http.Request) {
	st := s.Sched.Ctx.State

	type tileEntry struct {
		Q         int     `json:"q"`
		R         int     `json:"r"`
		Terrain   uint8   `json:"terrain"`
		Elevation float64 `json:"elevation"`
	}

	tiles := make([]tileEntry, 0, st.Map.TileCount())
	for _, t := range st.Map.Tiles {
		tiles = append(tiles, tileEntry{
			Q:         t.Coord.Q,
			R:         t.Coord.R,
			Terrain:   uint8(t.Terrain),
			Elevation: t.Elevation,
		})
	}
	writeJSON(w, map[string]any{
		"width":  st.Map.Width,
		"height": st.Map.Height,
		"tiles":  tiles,
	})
}

func (s *Server) handleTileDetail(w http.ResponseWriter, r *http.Request, path string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 {
		http.Error(w, "expected /api/v1/map/:q/:r", http.StatusBadRequest)
		return
	}
	q, err1 := strconv.Atoi(parts[0])
	rr, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		http.Error(w, "coordinates must be integers", http.StatusBadRequest)
		return
	}

	st := s.Sched.Ctx.State
	coord := hexmap.HexCoord{Q: q, R: rr}
	tile := st.Map.Get(coord)
	if tile == nil {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}

	detail := map[string]any{
		"q":         coord.Q,
		"r":         coord.R,
		"terrain":   hexmap.TerrainName(tile.Terrain),
		"elevation": tile.Elevation,
	}
	if b := st.BuildingAt(coord); b != nil {
		detail["building"] = map[string]any{
			"id":    b.ID,
			"owner": b.Owner,
			"type":  world.BuildingName(b.Type),
			"state": world.BuildingStateName(b.State),
		}
	}
	writeJSON(w, detail)
}

// commandRequest is the wire shape of POST /api/v1/command: a type tag
// plus the payload of the matching command kind.
type commandRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	cmd, err := decodeCommand(req.Type, req.Payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	outcome, events := s.Sched.Dispatch(cmd)
	writeJSON(w, map[string]any{
		"succeeded":      outcome.Succeeded,
		"failure_reason": outcome.FailureReason,
		"events":         events,
	})
}

// decodeCommand maps a type tag to the concrete command kind.
func decodeCommand(typ string, payload json.RawMessage) (command.Command, error) {
	var cmd command.Command
	switch typ {
	case "move":
		cmd = &command.Move{}
	case "entrench":
		cmd = &command.Entrench{}
	case "build":
		cmd = &command.Build{}
	case "upgrade":
		cmd = &command.Upgrade{}
	case "cancel_upgrade":
		cmd = &command.CancelUpgrade{}
	case "demolish":
		cmd = &command.Demolish{}
	case "cancel_demolition":
		cmd = &command.CancelDemolition{}
	case "gather":
		cmd = &command.Gather{}
	case "stop_gathering":
		cmd = &command.StopGathering{}
	case "attack":
		cmd = &command.Attack{}
	case "reinforce_army":
		cmd = &command.ReinforceArmy{}
	case "deploy_army":
		cmd = &command.DeployArmy{}
	case "garrison_army":
		cmd = &command.GarrisonArmy{}
	case "train_units":
		cmd = &command.TrainUnits{}
	case "train_villagers":
		cmd = &command.TrainVillagers{}
	case "start_research":
		cmd = &command.StartResearch{}
	case "cancel_research":
		cmd = &command.CancelResearch{}
	default:
		return nil, fmt.Errorf("unknown command type %q", typ)
	}
	if err := json.Unmarshal(payload, cmd); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", typ, err)
	}
	return deref(cmd), nil
}

// deref unwraps the pointer used for JSON decoding; commands dispatch
// by value.
func deref(cmd command.Command) command.Command {
	switch c := cmd.(type) {
	case *command.Move:
		return *c
	case *command.Entrench:
		return *c
	case *command.Build:
		return *c
	case *command.Upgrade:
		return *c
	case *command.CancelUpgrade:
		return *c
	case *command.Demolish:
		return *c
	case *command.CancelDemolition:
		return *c
	case *command.Gather:
		return *c
	case *command.StopGathering:
		return *c
	case *command.Attack:
		return *c
	case *command.ReinforceArmy:
		return *c
	case *command.DeployArmy:
		return *c
	case *command.GarrisonArmy:
		return *c
	case *command.TrainUnits:
		return *c
	case *command.TrainVillagers:
		return *c
	case *command.StartResearch:
		return *c
	case *command.CancelResearch:
		return *c
	}
	return cmd
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, map[string]float64{"speed": s.Loop.Speed})
	case http.MethodPost:
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 64 {
			http.Error(w, "speed must be in [0, 64]", http.StatusBadRequest)
			return
		}
		s.Loop.Speed = req.Speed
		slog.Info("simulation speed changed", "speed", req.Speed)
		writeJSON(w, map[string]float64{"speed": s.Loop.Speed})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.DB.SaveWorld(s.Sched.Ctx.State); err != nil {
		http.Error(w, "save failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.DB.SaveEvents(s.Sched.Events); err != nil {
		slog.Warn("event save failed", "error", err)
	}
	writeJSON(w, map[string]any{
		"saved": true,
		"tick":  s.Sched.Ctx.State.Tick,
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
