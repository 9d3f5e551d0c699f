package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farhorizons/tabletop/internal/game"
	"github.com/farhorizons/tabletop/internal/session"
	"github.com/farhorizons/tabletop/internal/store"
	"github.com/farhorizons/tabletop/internal/ws"
)

func testLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetLevel(logrus.ErrorLevel)
	return l
}

func newTestAPI(t *testing.T) *httptest.Server {
	t.Helper()
	reg := session.NewRegistry(store.NewMemory(), session.Config{
		IdleTimeout: time.Minute, BidTimeout: time.Minute,
	}, nil, testLog())
	gw := ws.NewGateway(reg, []byte("test-secret"), testLog())
	srv := httptest.NewServer(NewServer(reg, gw, nil, testLog()).Router())
	t.Cleanup(srv.Close)
	return srv
}

func createWarSession(t *testing.T, srv *httptest.Server) game.GameState {
	t.Helper()
	body := map[string]interface{}{
		"gameType":     "war",
		"unitsToPlace": 3,
		"players": []map[string]interface{}{
			{"id": "p1", "name": "Ada"},
			{"id": "p2", "name": "Bob"},
		},
		"territories": map[string]interface{}{
			"t1": map[string]interface{}{"name": "Alpha", "connections": []string{"t2"}},
			"t2": map[string]interface{}{"name": "Beta", "connections": []string{"t1"}},
		},
	}
	resp := post(t, srv, "/sessions", body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var g game.GameState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	require.NotEmpty(t, g.GameID)
	return g
}

func post(t *testing.T, srv *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	srv := newTestAPI(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndGetSnapshot(t *testing.T) {
	srv := newTestAPI(t)
	g := createWarSession(t, srv)

	assert.Equal(t, "red", g.Players[0].Color)
	assert.Equal(t, 3, g.Players[0].RemainingUnitsToPlace)

	resp, err := http.Get(srv.URL + "/sessions/" + g.GameID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap game.GameState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, g.GameID, snap.GameID)
	assert.Equal(t, game.StatusSetup, snap.Status)
}

func TestCreateValidation(t *testing.T) {
	srv := newTestAPI(t)

	resp := post(t, srv, "/sessions", map[string]interface{}{"gameType": "chess"})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, srv, "/sessions", map[string]interface{}{
		"gameType": "war",
		"players":  []map[string]interface{}{{"id": "p1", "isBot": true, "botMode": "berserk"}},
		"territories": map[string]interface{}{
			"t1": map[string]interface{}{},
		},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPostActionAndErrors(t *testing.T) {
	srv := newTestAPI(t)
	g := createWarSession(t, srv)

	// Accepted action returns the advanced state.
	resp := post(t, srv, "/sessions/"+g.GameID, map[string]interface{}{
		"type":     "place_unit",
		"playerId": "p1",
		"data":     map[string]interface{}{"territoryId": "t1", "count": 1},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var after game.GameState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&after))
	assert.Equal(t, 1, after.Territories["t1"].Units)
	assert.Len(t, after.Actions, 1)

	// Unknown action type.
	resp = post(t, srv, "/sessions/"+g.GameID, map[string]interface{}{
		"type": "cast_fireball", "playerId": "p1",
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Conflict: placing on a territory the other player just claimed.
	resp = post(t, srv, "/sessions/"+g.GameID, map[string]interface{}{
		"type":     "place_unit",
		"playerId": "p2",
		"data":     map[string]interface{}{"territoryId": "t1", "count": 1},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Unknown session.
	resp = post(t, srv, "/sessions/nope", map[string]interface{}{
		"type": "place_unit", "playerId": "p1",
		"data": map[string]interface{}{"territoryId": "t1"},
	})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRestartGame(t *testing.T) {
	srv := newTestAPI(t)
	g := createWarSession(t, srv)

	resp := post(t, srv, "/sessions/"+g.GameID, map[string]interface{}{
		"type":     "place_unit",
		"playerId": "p1",
		"data":     map[string]interface{}{"territoryId": "t1", "count": 2},
	})
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = post(t, srv, "/sessions/"+g.GameID, map[string]interface{}{"type": "restart_game"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reset game.GameState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reset))
	assert.Empty(t, reset.Actions)
	assert.Equal(t, 0, reset.Territories["t1"].Units)
	assert.Equal(t, 3, reset.Players[0].RemainingUnitsToPlace)
}

func TestCreateTCGSession(t *testing.T) {
	srv := newTestAPI(t)

	resp := post(t, srv, "/sessions", map[string]interface{}{
		"gameType": "tcg",
		"players":  []map[string]interface{}{{"id": "p1", "name": "Ada"}},
		"cards": []map[string]interface{}{
			{"id": "c1", "name": "Bolt", "ownerId": "p1", "zone": "hand", "manaValue": 1},
			{"id": "c2", "name": "Giant", "ownerId": "p1"},
		},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var g game.GameState
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	assert.Equal(t, game.ZoneHand, g.Cards["c1"].Zone)
	assert.Equal(t, game.ZoneLibrary, g.Cards["c2"].Zone, "zone defaults to library")
	assert.Equal(t, []string{"c1"}, g.Players[0].Zones[game.ZoneHand])
}
