package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhorizons/tabletop/internal/catalog"
	"github.com/farhorizons/tabletop/internal/draft"
	"github.com/farhorizons/tabletop/internal/session"
	"github.com/farhorizons/tabletop/internal/store"
	"github.com/farhorizons/tabletop/internal/ws"
)

type staticCatalog struct {
	entries map[string]catalog.Entry
}

func (s *staticCatalog) Lookup(_ context.Context, names []string) ([]catalog.Entry, error) {
	var out []catalog.Entry
	seen := make(map[string]bool)
	for _, n := range names {
		if e, ok := s.entries[n]; ok && !seen[n] {
			out = append(out, e)
			seen[n] = true
		}
	}
	return out, nil
}

func newDraftAPI(t *testing.T, cat catalog.Lookup) *httptest.Server {
	t.Helper()
	reg := session.NewRegistry(store.NewMemory(), session.Config{
		IdleTimeout: time.Minute, BidTimeout: time.Minute,
	}, nil, testLog())
	gw := ws.NewGateway(reg, []byte("test-secret"), testLog())
	srv := httptest.NewServer(NewServer(reg, gw, cat, testLog()).Router())
	t.Cleanup(srv.Close)
	return srv
}

func postDraftJSON(t *testing.T, srv *httptest.Server, path string, body interface{}) (*http.Response, draftView) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	var v draftView
	if resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	}
	return resp, v
}

func getDraftView(t *testing.T, srv *httptest.Server, id, playerID string) draftView {
	t.Helper()
	resp, err := http.Get(srv.URL + "/drafts/" + id + "?playerId=" + playerID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v draftView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func inlinePool(n int) []draft.Card {
	pool := make([]draft.Card, n)
	for i := range pool {
		pool[i] = draft.Card{
			ID:        fmt.Sprintf("card%d", i),
			Name:      fmt.Sprintf("Card %d", i),
			Rarity:    "common",
			ManaValue: i%5 + 1,
		}
	}
	return pool
}

func TestDraftHumanAndBotToCompletion(t *testing.T) {
	srv := newDraftAPI(t, nil)

	resp, v := postDraftJSON(t, srv, "/drafts", createDraftRequest{
		Players: []createPlayer{
			{ID: "human"},
			{ID: "bot", IsBot: true},
		},
		PacksPerPlayer: 1,
		PackSize:       2,
		PickCount:      1,
		Seed:           7,
		Pool:           inlinePool(4),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, v.ID)
	require.Len(t, v.Seats, 2)

	// The bot seat picks as soon as the draft opens; the human holds a
	// full pack and sees no hidden contents in the anonymous view.
	assert.Equal(t, 1, v.Seats[1].PoolSize)
	assert.Equal(t, 2, v.Seats[0].PackSize)
	assert.Nil(t, v.Seats[0].CurrentPack)

	view := getDraftView(t, srv, v.ID, "human")
	require.NotNil(t, view.Seats[0].CurrentPack)
	require.Len(t, view.Seats[0].CurrentPack.Cards, 2)

	first := view.Seats[0].CurrentPack.Cards[0].ID
	resp, view = postDraftJSON(t, srv, "/drafts/"+v.ID+"/pick", pickRequest{
		PlayerID: "human", CardIDs: []string{first},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Packs rotated; the bot already took one from its new pack.
	assert.False(t, view.Done)
	require.NotNil(t, view.Seats[0].CurrentPack)
	require.Len(t, view.Seats[0].CurrentPack.Cards, 1)

	last := view.Seats[0].CurrentPack.Cards[0].ID
	resp, view = postDraftJSON(t, srv, "/drafts/"+v.ID+"/pick", pickRequest{
		PlayerID: "human", CardIDs: []string{last},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, view.Done)
	assert.Equal(t, 2, view.Seats[0].PoolSize)
	assert.Equal(t, 2, view.Seats[1].PoolSize)
	assert.Len(t, view.Seats[0].Pool, 2)
}

func TestDraftFromCubeList(t *testing.T) {
	cat := &staticCatalog{entries: map[string]catalog.Entry{
		"Spark": {ID: "spark", Name: "Spark", ManaValue: 1, Rarity: "common", TypeLine: "Instant"},
		"Ogre":  {ID: "ogre", Name: "Ogre", ManaValue: 3, Rarity: "uncommon", TypeLine: "Creature — Ogre"},
	}}
	srv := newDraftAPI(t, cat)

	resp, v := postDraftJSON(t, srv, "/drafts", createDraftRequest{
		Players:        []createPlayer{{ID: "b1", IsBot: true}, {ID: "b2", IsBot: true}},
		PacksPerPlayer: 1,
		PackSize:       2,
		PickCount:      1,
		Seed:           3,
		CubeList: []catalog.PoolCard{
			{Name: "Spark", Count: 2},
			{Name: "Ogre", Count: 2},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// All-bot drafts run to completion during creation.
	assert.True(t, v.Done)
	assert.Equal(t, 2, v.Seats[0].PoolSize)
	assert.Equal(t, 2, v.Seats[1].PoolSize)
}

func TestDraftValidation(t *testing.T) {
	srv := newDraftAPI(t, nil)

	resp, _ := postDraftJSON(t, srv, "/drafts", createDraftRequest{
		Players:        []createPlayer{{ID: "p1"}, {ID: "p2"}},
		PacksPerPlayer: 1,
		PackSize:       5,
		PickCount:      1,
		Pool:           inlinePool(4), // too small for 2 seats x 5 cards
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Cube lists need a catalog behind them.
	resp, _ = postDraftJSON(t, srv, "/drafts", createDraftRequest{
		Players:        []createPlayer{{ID: "p1"}, {ID: "p2"}},
		PacksPerPlayer: 1,
		PackSize:       2,
		PickCount:      1,
		CubeList:       []catalog.PoolCard{{Name: "Spark", Count: 4}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postDraftJSON(t, srv, "/drafts/nope/pick", pickRequest{PlayerID: "p1", CardIDs: []string{"x"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	ok, v := postDraftJSON(t, srv, "/drafts", createDraftRequest{
		Players:        []createPlayer{{ID: "p1"}, {ID: "p2"}},
		PacksPerPlayer: 1,
		PackSize:       2,
		PickCount:      1,
		Pool:           inlinePool(4),
	})
	require.Equal(t, http.StatusCreated, ok.StatusCode)

	resp, _ = postDraftJSON(t, srv, "/drafts/"+v.ID+"/pick", pickRequest{PlayerID: "ghost", CardIDs: []string{"card0"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = postDraftJSON(t, srv, "/drafts/"+v.ID+"/pick", pickRequest{PlayerID: "p1", CardIDs: []string{"not-held"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
