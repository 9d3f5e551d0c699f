package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/farhorizons/tabletop/internal/game"
	"github.com/farhorizons/tabletop/internal/store"
)

// Persistence layout, all under one prefix per session:
//
//	session:<id>:initial      the snapshot a restart resets to
//	session:<id>:snapshot     latest full state, written before every ack
//	session:<id>:log:<idx>    one accepted action per key, zero-padded
//
// The snapshot alone is normally enough to wake a hibernated session; the
// log tail covers a crash between the log append and the snapshot write.

func initialKey(id string) string  { return "session:" + id + ":initial" }
func snapshotKey(id string) string { return "session:" + id + ":snapshot" }
func logPrefix(id string) string   { return "session:" + id + ":log:" }

func logKey(id string, idx int) string {
	return fmt.Sprintf("%s%010d", logPrefix(id), idx)
}

func saveSnapshot(ctx context.Context, st store.Store, key string, g *game.GameState) error {
	b, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := st.Put(ctx, key, b, 0); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func appendLog(ctx context.Context, st store.Store, id string, idx int, a game.Action) error {
	b, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	if err := st.Put(ctx, logKey(id, idx), b, 0); err != nil {
		return fmt.Errorf("append log %d: %w", idx, err)
	}
	return nil
}

func loadSnapshot(ctx context.Context, st store.Store, key string) (*game.GameState, error) {
	b, err := st.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var g game.GameState
	if err := json.Unmarshal(b, &g); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &g, nil
}

// Load rebuilds a session's state: latest snapshot plus any log-tail actions
// the snapshot has not absorbed yet.
func Load(ctx context.Context, st store.Store, id string) (*game.GameState, error) {
	g, err := loadSnapshot(ctx, st, snapshotKey(id))
	if err != nil {
		return nil, err
	}

	keys, err := st.List(ctx, logPrefix(id), 0)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var tail []game.Action
	for _, k := range keys {
		idx, err := strconv.Atoi(strings.TrimPrefix(k, logPrefix(id)))
		if err != nil || idx <= g.CurrentActionIndex {
			continue
		}
		b, err := st.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		var a game.Action
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("decode log entry %s: %w", k, err)
		}
		tail = append(tail, a)
	}
	if len(tail) == 0 {
		return g, nil
	}

	rebuilt, at, rerr := game.Replay(g, tail)
	if rerr != nil {
		return nil, fmt.Errorf("replay log tail at %d: %s", at, rerr.Msg)
	}
	return rebuilt, nil
}

func clearLog(ctx context.Context, st store.Store, id string) error {
	keys, err := st.List(ctx, logPrefix(id), 0)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := st.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
