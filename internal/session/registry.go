package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/farhorizons/tabletop/internal/game"
	"github.com/farhorizons/tabletop/internal/store"
)

// ErrNotFound is returned when a session id has no stored state.
var ErrNotFound = errors.New("session: not found")

// Registry maps session ids to live actors, creating them on demand from
// storage and dropping them again when they hibernate.
type Registry struct {
	st      store.Store
	cfg     Config
	archive Archiver
	log     logrus.FieldLogger

	mu     sync.Mutex
	actors map[string]*Actor
}

func NewRegistry(st store.Store, cfg Config, archive Archiver, log logrus.FieldLogger) *Registry {
	return &Registry{
		st:      st,
		cfg:     cfg,
		archive: archive,
		log:     log,
		actors:  make(map[string]*Actor),
	}
}

// Create stores a brand-new game and spins up its actor. The initial
// snapshot doubles as the restart point.
func (r *Registry) Create(ctx context.Context, state *game.GameState) (*Actor, error) {
	id := state.GameID
	if err := saveSnapshot(ctx, r.st, initialKey(id), state); err != nil {
		return nil, err
	}
	if err := saveSnapshot(ctx, r.st, snapshotKey(id), state); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actors[id]; exists {
		return nil, fmt.Errorf("session %s already live", id)
	}
	a := r.start(id, state)
	return a, nil
}

// Get returns the live actor for id, waking it from storage if needed.
func (r *Registry) Get(ctx context.Context, id string) (*Actor, error) {
	r.mu.Lock()
	if a, ok := r.actors[id]; ok {
		r.mu.Unlock()
		return a, nil
	}
	r.mu.Unlock()

	state, err := Load(ctx, r.st, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Lost the race to another waker.
	if a, ok := r.actors[id]; ok {
		return a, nil
	}
	return r.start(id, state), nil
}

// start must run with the lock held.
func (r *Registry) start(id string, state *game.GameState) *Actor {
	a := newActor(id, state, r.st, r.cfg, r.archive, r.evicted, r.log)
	r.actors[id] = a
	go a.run()
	return a
}

func (r *Registry) evicted(id string, a *Actor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.actors[id] == a {
		delete(r.actors, id)
	}
}

// Submit routes one action, transparently waking a hibernated session and
// retrying once if the actor stopped between lookup and delivery.
func (r *Registry) Submit(ctx context.Context, id string, act game.Action) (*game.GameState, error) {
	for attempt := 0; attempt < 2; attempt++ {
		a, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		state, err := a.Submit(ctx, act)
		if errors.Is(err, ErrStopped) {
			continue
		}
		return state, err
	}
	return nil, ErrStopped
}
