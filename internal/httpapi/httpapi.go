// Package httpapi is the control channel: session creation, snapshot reads,
// action submission, and the websocket upgrade, all on a chi router.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/farhorizons/tabletop/internal/catalog"
	"github.com/farhorizons/tabletop/internal/game"
	"github.com/farhorizons/tabletop/internal/models"
	"github.com/farhorizons/tabletop/internal/session"
	"github.com/farhorizons/tabletop/internal/ws"
)

// startingEnergy is the energy a war seat begins with before any income.
const startingEnergy = 10

type Server struct {
	reg *session.Registry
	gw  *ws.Gateway
	cat catalog.Lookup
	log logrus.FieldLogger

	mu     sync.Mutex
	drafts map[string]*draftRoom
}

func NewServer(reg *session.Registry, gw *ws.Gateway, cat catalog.Lookup, log logrus.FieldLogger) *Server {
	return &Server{
		reg:    reg,
		gw:     gw,
		cat:    cat,
		log:    log.WithField("component", "http"),
		drafts: make(map[string]*draftRoom),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Get("/{id}", s.getSnapshot)
		r.Post("/{id}", s.postAction)
		r.Get("/{id}/ws", s.upgrade)
	})

	r.Route("/drafts", func(r chi.Router) {
		r.Post("/", s.createDraft)
		r.Get("/{id}", s.getDraft)
		r.Post("/{id}/pick", s.postPick)
	})
	return r
}

type createPlayer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsBot   bool   `json:"isBot"`
	BotMode string `json:"botMode"`
}

type createTerritory struct {
	Name        string   `json:"name"`
	Connections []string `json:"connections"`
	Units       int      `json:"units"`
	Neutral     bool     `json:"neutral"`
}

type createCard struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	OwnerID   string   `json:"ownerId"`
	Zone      string   `json:"zone"`
	ManaValue int      `json:"manaValue"`
	Colors    []string `json:"colors"`
	TypeLine  string   `json:"typeLine"`
	ImageURL  string   `json:"imageUrl"`
}

type createRequest struct {
	GameType     string                     `json:"gameType"`
	UnitsToPlace int                        `json:"unitsToPlace"`
	Players      []createPlayer             `json:"players"`
	Territories  map[string]createTerritory `json:"territories"`
	Cards        []createCard               `json:"cards"`
}

// createSession builds the initial state from the request and registers it.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed body")
		return
	}

	gt := game.GameType(req.GameType)
	if gt != game.TypeWar && gt != game.TypeTCG {
		writeError(w, http.StatusBadRequest, "validation_error", "gameType must be war or tcg")
		return
	}
	if len(req.Players) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "at least one player is required")
		return
	}
	if gt == game.TypeWar && len(req.Territories) == 0 {
		writeError(w, http.StatusBadRequest, "validation_error", "war games need territories")
		return
	}

	g := game.NewGame(gt)
	for i, p := range req.Players {
		if p.ID == "" {
			writeError(w, http.StatusBadRequest, "validation_error", "player id is required")
			return
		}
		if p.IsBot && !models.BotMode(p.BotMode).Valid() {
			writeError(w, http.StatusBadRequest, "validation_error", "unknown bot mode "+p.BotMode)
			return
		}
		color := ""
		if i < len(models.DefaultColors) {
			color = string(models.DefaultColors[i])
		}
		g.AddPlayer(&game.Player{
			ID:                    p.ID,
			Name:                  p.Name,
			Color:                 color,
			IsBot:                 p.IsBot,
			BotMode:               p.BotMode,
			Energy:                startingEnergy,
			RemainingUnitsToPlace: req.UnitsToPlace,
		})
	}

	for id, t := range req.Territories {
		g.Territories[id] = &game.Territory{
			ID:          id,
			Name:        t.Name,
			Units:       t.Units,
			Connections: t.Connections,
			IsNeutral:   t.Neutral,
		}
	}

	for _, c := range req.Cards {
		owner := g.PlayerByID(c.OwnerID)
		if owner == nil {
			writeError(w, http.StatusBadRequest, "validation_error", "card owner "+c.OwnerID+" is not a player")
			return
		}
		zone := c.Zone
		if zone == "" {
			zone = game.ZoneLibrary
		}
		g.Cards[c.ID] = &game.Card{
			ID:        c.ID,
			Name:      c.Name,
			OwnerID:   c.OwnerID,
			Zone:      zone,
			ManaValue: c.ManaValue,
			Colors:    c.Colors,
			TypeLine:  c.TypeLine,
			ImageURL:  c.ImageURL,
		}
		owner.Zones[zone] = append(owner.Zones[zone], c.ID)
	}

	// Card tables have no placement phase; they open live.
	if gt == game.TypeTCG {
		g.Status = game.StatusPlaying
	}

	if _, err := s.reg.Create(r.Context(), g); err != nil {
		s.log.WithError(err).Error("create session failed")
		writeError(w, http.StatusInternalServerError, "conflict", "could not create session")
		return
	}
	s.log.WithFields(logrus.Fields{"session": g.GameID, "type": gt}).Info("session created")
	writeJSON(w, http.StatusCreated, g)
}

// getSnapshot returns the raw internal state. This is the diagnostics
// surface; the sanitized view goes out over the stream.
func (s *Server) getSnapshot(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}
	state, err := actor.State(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "conflict", "session unavailable")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type actionRequest struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId"`
	Data     json.RawMessage `json:"data"`
}

// postAction applies one action and returns the resulting state.
// restart_game is a control verb handled before decoding.
func (s *Server) postAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "malformed body")
		return
	}

	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	if req.Type == "restart_game" {
		if err := actor.Restart(r.Context()); err != nil {
			s.log.WithError(err).Error("restart failed")
			writeError(w, http.StatusServiceUnavailable, "conflict", "restart failed")
			return
		}
		state, err := actor.State(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "conflict", "session unavailable")
			return
		}
		writeJSON(w, http.StatusOK, state)
		return
	}

	act, derr := game.DecodeAction(req.Type, req.PlayerID, req.Data)
	if derr != nil {
		writeRuleError(w, derr)
		return
	}
	state, err := actor.Submit(r.Context(), act)
	if err != nil {
		var rerr *game.RuleError
		if errors.As(err, &rerr) {
			writeRuleError(w, rerr)
			return
		}
		writeError(w, http.StatusServiceUnavailable, "conflict", "session unavailable")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) upgrade(w http.ResponseWriter, r *http.Request) {
	s.gw.Handle(w, r, chi.URLParam(r, "id"))
}

func (s *Server) actor(w http.ResponseWriter, r *http.Request) (*session.Actor, bool) {
	id := chi.URLParam(r, "id")
	actor, err := s.reg.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "unknown session "+id)
		} else {
			s.log.WithError(err).Error("session lookup failed")
			writeError(w, http.StatusServiceUnavailable, "conflict", "session unavailable")
		}
		return nil, false
	}
	return actor, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRuleError(w http.ResponseWriter, e *game.RuleError) {
	status := http.StatusBadRequest
	switch e.Kind {
	case game.KindNotFound:
		status = http.StatusNotFound
	case game.KindConflict:
		status = http.StatusConflict
	}
	writeError(w, status, e.Kind.String(), e.Msg)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, map[string]string{"error": kind, "message": message})
}
