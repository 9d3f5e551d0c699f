package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/farhorizons/tabletop/internal/catalog"
	"github.com/farhorizons/tabletop/internal/draft"
)

// draftRoom is one live draft. Drafts are short-lived and lightweight, so
// they stay resident for their whole run instead of hibernating like game
// sessions.
type draftRoom struct {
	id string
	d  *draft.Draft
}

type createDraftRequest struct {
	Players        []createPlayer     `json:"players"`
	PacksPerPlayer int                `json:"packsPerPlayer"`
	PackSize       int                `json:"packSize"`
	PickCount      int                `json:"pickCount"`
	Seed           int64              `json:"seed"`
	CubeList       []catalog.PoolCard `json:"cubeList"`
	Pool           []draft.Card       `json:"pool"`
}

type pickRequest struct {
	PlayerID string   `json:"playerId"`
	CardIDs  []string `json:"cardIds"`
}

// seatView hides every other drafter's pack contents and pool; only sizes
// are public, mirroring the game-state sanitizer.
type seatView struct {
	Index       int          `json:"index"`
	PlayerID    string       `json:"playerId"`
	IsBot       bool         `json:"isBot"`
	PoolSize    int          `json:"poolSize"`
	HasPack     bool         `json:"hasPack"`
	PackSize    int          `json:"packSize"`
	Pool        []draft.Card `json:"pool,omitempty"`
	CurrentPack *draft.Pack  `json:"currentPack,omitempty"`
}

type draftView struct {
	ID    string     `json:"id"`
	Round int        `json:"round"`
	Pass  int        `json:"pass"`
	Done  bool       `json:"done"`
	Seats []seatView `json:"seats"`
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	pool := req.Pool
	if len(req.CubeList) > 0 {
		if s.cat == nil {
			writeError(w, http.StatusBadRequest, "validation", "no catalog configured; supply an inline pool")
			return
		}
		var err error
		pool, err = catalog.DraftPool(r.Context(), s.cat, req.CubeList)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation", err.Error())
			return
		}
	}

	playerIDs := make([]string, 0, len(req.Players))
	bots := make(map[string]bool, len(req.Players))
	for _, p := range req.Players {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		playerIDs = append(playerIDs, id)
		bots[id] = p.IsBot
	}

	cfg := draft.Config{
		SeatCount:      len(playerIDs),
		PacksPerPlayer: req.PacksPerPlayer,
		PackSize:       req.PackSize,
		PickCount:      req.PickCount,
	}
	d, err := draft.New(cfg, playerIDs, bots, pool, req.Seed)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	room := &draftRoom{id: uuid.NewString(), d: d}

	s.mu.Lock()
	s.runBotsLocked(room)
	s.drafts[room.id] = room
	view := s.viewFor(room, "")
	s.mu.Unlock()

	s.log.WithField("draft_id", room.id).WithField("seats", len(playerIDs)).Info("draft created")
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	room := s.draftByID(chi.URLParam(r, "id"))
	if room == nil {
		writeError(w, http.StatusNotFound, "not_found", "no such draft")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.viewFor(room, r.URL.Query().Get("playerId")))
}

func (s *Server) postPick(w http.ResponseWriter, r *http.Request) {
	room := s.draftByID(chi.URLParam(r, "id"))
	if room == nil {
		writeError(w, http.StatusNotFound, "not_found", "no such draft")
		return
	}
	var req pickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation", "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seat := room.d.SeatByPlayer(req.PlayerID)
	if seat == nil {
		writeError(w, http.StatusNotFound, "not_found", "player is not seated in this draft")
		return
	}
	if err := room.d.Pick(seat.Index, req.CardIDs); err != nil {
		writeError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	s.runBotsLocked(room)
	writeJSON(w, http.StatusOK, s.viewFor(room, req.PlayerID))
}

func (s *Server) draftByID(id string) *draftRoom {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[id]
}

// runBotsLocked drives every pending bot seat until only humans (or nobody)
// remain to pick. Each successful pick strictly shrinks the live card count,
// so the cap is a safety net rather than an expected exit.
func (s *Server) runBotsLocked(room *draftRoom) {
	for i := 0; i < 4096; i++ {
		acted := false
		for _, idx := range room.d.Pending() {
			seat := room.d.Seats[idx]
			if !seat.IsBot {
				continue
			}
			picks := draft.BotPicks(seat, room.d.Config.PickCount)
			if err := room.d.Pick(idx, picks); err != nil {
				s.log.WithError(err).WithField("seat", idx).Warn("bot pick rejected")
				return
			}
			acted = true
		}
		if !acted {
			return
		}
	}
}

func (s *Server) viewFor(room *draftRoom, playerID string) draftView {
	v := draftView{
		ID:    room.id,
		Round: room.d.Round,
		Pass:  room.d.Pass,
		Done:  room.d.Done,
	}
	for _, seat := range room.d.Seats {
		sv := seatView{
			Index:    seat.Index,
			PlayerID: seat.PlayerID,
			IsBot:    seat.IsBot,
			PoolSize: len(seat.Pool),
			HasPack:  seat.CurrentPack != nil,
		}
		if seat.CurrentPack != nil {
			sv.PackSize = len(seat.CurrentPack.Cards)
		}
		if seat.PlayerID == playerID && playerID != "" {
			sv.Pool = seat.Pool
			sv.CurrentPack = seat.CurrentPack
		}
		v.Seats = append(v.Seats, sv)
	}
	return v
}
