// Package ws is the realtime transport: one websocket per client, attached
// to a session actor as a subscriber. The gateway absorbs transport errors
// by evicting the connection; it never propagates them into the session.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/farhorizons/tabletop/internal/auth"
	"github.com/farhorizons/tabletop/internal/game"
	"github.com/farhorizons/tabletop/internal/session"
)

// inbound is the client envelope. Type is either a transport verb (join,
// ping, cursor_move, camera_move) or a game action type.
type inbound struct {
	Type     string          `json:"type"`
	PlayerID string          `json:"playerId,omitempty"`
	Token    string          `json:"token,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// outbound is every server-to-client message.
type outbound struct {
	Type    string            `json:"type"`
	State   *game.ClientState `json:"state,omitempty"`
	Payload interface{}       `json:"payload,omitempty"`
	Kind    string            `json:"kind,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Gateway upgrades HTTP requests and runs connection lifecycles.
type Gateway struct {
	reg    *session.Registry
	secret []byte
	log    logrus.FieldLogger
}

func NewGateway(reg *session.Registry, secret []byte, log logrus.FieldLogger) *Gateway {
	return &Gateway{reg: reg, secret: secret, log: log.WithField("component", "ws")}
}

// Handle upgrades the request and serves the connection until either side
// closes. The first thing a client receives, before any of its input is
// processed, is a full sanitized snapshot.
func (gw *Gateway) Handle(w http.ResponseWriter, r *http.Request, sessionID string) {
	actor, err := gw.reg.Get(r.Context(), sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		if err == session.ErrNotFound {
			status = http.StatusNotFound
		}
		http.Error(w, "session unavailable", status)
		return
	}

	sock, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		gw.log.WithError(err).Debug("upgrade failed")
		return
	}

	c := newConn(sock)
	go c.writeLoop()

	ctx := context.Background()
	if err := actor.Subscribe(ctx, c); err != nil {
		c.Close("session unavailable")
		return
	}
	gw.readLoop(r.Context(), actor, c)

	cleanup, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = actor.Unsubscribe(cleanup, c)
	if pid := c.PlayerID(); pid != "" {
		_ = actor.SetConnected(cleanup, pid, false)
	}
	c.Close("connection closed")
}

func (gw *Gateway) readLoop(ctx context.Context, actor *session.Actor, c *conn) {
	for {
		_, data, err := c.sock.Read(ctx)
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("validation_error", "malformed message")
			continue
		}
		gw.dispatch(ctx, actor, c, msg)
	}
}

func (gw *Gateway) dispatch(ctx context.Context, actor *session.Actor, c *conn, msg inbound) {
	switch msg.Type {
	case "join":
		gw.handleJoin(ctx, actor, c, msg)
	case "ping":
		// Pong carries the re-association for reconnecting clients.
		if msg.PlayerID != "" && c.PlayerID() == "" {
			gw.associate(ctx, actor, c, msg.PlayerID)
		}
		c.send(outbound{Type: "pong"})
	case "cursor_move", "camera_move":
		// Ephemeral: fan out, never validate, never persist.
		var payload json.RawMessage = msg.Data
		_ = actor.Ephemeral(ctx, c, msg.Type, payload)
	default:
		gw.handleAction(ctx, actor, c, msg)
	}
}

// handleJoin resolves the client's identity and binds the connection to a
// seat. A JWT is trusted; an anonymous cookie token is only honored when the
// seat it names is already in the game.
func (gw *Gateway) handleJoin(ctx context.Context, actor *session.Actor, c *conn, msg inbound) {
	playerID := msg.PlayerID
	if msg.Token != "" {
		if user, err := auth.ParseToken(gw.secret, msg.Token); err == nil {
			playerID = user.ID.String()
		} else if claimed, ok := auth.PlayerIDFromAnonToken(msg.Token); ok {
			playerID = claimed
		}
	}
	if playerID == "" {
		c.sendError("validation_error", "join requires a player id or token")
		return
	}
	gw.associate(ctx, actor, c, playerID)
}

func (gw *Gateway) associate(ctx context.Context, actor *session.Actor, c *conn, playerID string) {
	state, err := actor.State(ctx)
	if err != nil {
		c.sendError("conflict", "session unavailable")
		return
	}
	if state.PlayerByID(playerID) == nil {
		c.sendError("not_found", "player is not in this session")
		return
	}
	c.setPlayerID(playerID)
	if err := actor.SetConnected(ctx, playerID, true); err != nil {
		c.sendError("conflict", "session unavailable")
	}
}

// handleAction decodes a typed game action and routes it to the actor.
// Rejections go only to the sender; a conflict additionally pushes a fresh
// snapshot so the client can reconcile.
func (gw *Gateway) handleAction(ctx context.Context, actor *session.Actor, c *conn, msg inbound) {
	act, derr := game.DecodeAction(msg.Type, c.PlayerID(), msg.Data)
	if derr != nil {
		c.sendError(derr.Kind.String(), derr.Msg)
		return
	}

	_, err := actor.Submit(ctx, act)
	if err == nil {
		return // the accepted state arrives via broadcast
	}
	if rerr, ok := err.(*game.RuleError); ok {
		c.sendError(rerr.Kind.String(), rerr.Msg)
		if rerr.Kind == game.KindConflict {
			if state, serr := actor.State(ctx); serr == nil {
				c.send(outbound{Type: "state_update", State: game.Sanitize(state, c.PlayerID())})
			}
		}
		return
	}
	gw.log.WithError(err).Warn("submit failed")
	c.sendError("conflict", "session unavailable")
}
