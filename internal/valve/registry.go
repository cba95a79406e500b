package valve

import (
	"context"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry is the in-memory, ordered valve list backed by a Store.
//
// All public methods are thread-safe. Mutations hold the lock across the
// store write, so a create is durable (or its failure logged) before the
// new id is visible to any caller.
type Registry struct {
	store  Store
	valves []Valve
	mu     sync.RWMutex
	logger Logger
}

// NewRegistry creates an empty registry persisting to store.
// Call Load to populate it from storage.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:  store,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load replaces the in-memory list with the stored one.
//
// A missing or corrupt store is logged and leaves the registry empty; it is
// never fatal. The returned count is the number of valves loaded.
func (r *Registry) Load(ctx context.Context) int {
	valves, err := r.store.Load(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.logger.Warn("loading valves failed, starting empty", "error", err)
		r.valves = nil
		return 0
	}
	r.valves = valves
	r.logger.Info("valves loaded", "count", len(valves))
	return len(valves)
}

// List returns a copy of all valves in order.
func (r *Registry) List() []Valve {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Valve, len(r.valves))
	for i := range r.valves {
		out[i] = r.valves[i].Clone()
	}
	return out
}

// Count returns the number of valves.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.valves)
}

// Create appends a valve with id Count()+1 and persists the list.
// A persistence failure is logged; the valve is kept in memory regardless.
func (r *Registry) Create(ctx context.Context) Valve {
	r.mu.Lock()
	defer r.mu.Unlock()

	v := Valve{ID: len(r.valves) + 1}
	r.valves = append(r.valves, v)
	r.persistLocked(ctx)

	r.logger.Info("valve created", "valve_id", v.ID, "count", len(r.valves))
	return v
}

// Find returns the index of the valve with the given id.
func (r *Registry) Find(id int) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(id)
}

// Get returns a copy of the valve with the given id.
// Returns ErrValveNotFound if it does not exist.
func (r *Registry) Get(id int) (Valve, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.findLocked(id)
	if !ok {
		return Valve{}, ErrValveNotFound
	}
	return r.valves[i].Clone(), nil
}

// Update replaces the record holding v.ID and persists the list.
// Returns ErrValveNotFound for unknown ids. Persistence failures are
// logged, not returned.
func (r *Registry) Update(ctx context.Context, v Valve) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.findLocked(v.ID)
	if !ok {
		return ErrValveNotFound
	}
	r.valves[i] = v.Clone()
	r.persistLocked(ctx)

	r.logger.Debug("valve updated", "valve_id", v.ID)
	return nil
}

func (r *Registry) findLocked(id int) (int, bool) {
	for i := range r.valves {
		if r.valves[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// persistLocked writes the full list. Caller must hold mu.
func (r *Registry) persistLocked(ctx context.Context) {
	snapshot := make([]Valve, len(r.valves))
	copy(snapshot, r.valves)
	if err := r.store.Save(ctx, snapshot); err != nil {
		r.logger.Error("persisting valves failed, keeping in-memory state",
			"error", err,
			"count", len(snapshot),
		)
	}
}
