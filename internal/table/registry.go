package table

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
)

// Summary holds lightweight table metadata for lobby listings.
type Summary struct {
	ID         string `json:"id"`
	SmallBlind int    `json:"small_blind"`
	BigBlind   int    `json:"big_blind"`
	MinBuyIn   int    `json:"min_buy_in"`
	MaxBuyIn   int    `json:"max_buy_in"`
	MaxSeats   int    `json:"max_seats"`
}

// Registry tracks live tables. Tables are created on first join and torn
// down when their last seat empties; the mutex guards only the map, never
// table state.
type Registry struct {
	logger *log.Logger

	// OnCreate, when set, runs after a table starts. Set it before any
	// GetOrCreate call.
	OnCreate func(tableID string, o *Orchestrator)

	mu     sync.RWMutex
	tables map[string]*Orchestrator
	specs  map[string]Config
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		logger: logger.WithPrefix("registry"),
		tables: make(map[string]*Orchestrator),
		specs:  make(map[string]Config),
	}
}

// Define registers a table configuration without starting it. The table's
// orchestrator spins up on first join.
func (r *Registry) Define(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[cfg.TableID] = cfg
}

// Get retrieves a running table by ID.
func (r *Registry) Get(id string) (*Orchestrator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.tables[id]
	return o, ok
}

// GetOrCreate returns the running table for id, starting it from its
// registered configuration if needed.
func (r *Registry) GetOrCreate(id string) (*Orchestrator, bool) {
	r.mu.RLock()
	if o, ok := r.tables[id]; ok {
		r.mu.RUnlock()
		return o, true
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.tables[id]; ok {
		return o, true
	}
	cfg, ok := r.specs[id]
	if !ok {
		return nil, false
	}

	prev := cfg.OnEmpty
	cfg.OnEmpty = func(tableID string) {
		r.remove(tableID)
		if prev != nil {
			prev(tableID)
		}
	}
	o := New(cfg)
	r.tables[id] = o
	r.logger.Info("table started", "table", id)
	if r.OnCreate != nil {
		r.OnCreate(id, o)
	}
	return o, true
}

// remove tears down an empty table.
func (r *Registry) remove(id string) {
	r.mu.Lock()
	o, ok := r.tables[id]
	if ok {
		delete(r.tables, id)
	}
	r.mu.Unlock()

	if ok {
		o.Close()
		r.logger.Info("table stopped", "table", id)
	}
}

// List returns summaries of every defined table, sorted by ID.
func (r *Registry) List() []Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Summary, 0, len(r.specs))
	for _, cfg := range r.specs {
		out = append(out, Summary{
			ID:         cfg.TableID,
			SmallBlind: cfg.SmallBlind,
			BigBlind:   cfg.BigBlind,
			MinBuyIn:   cfg.MinBuyIn,
			MaxBuyIn:   cfg.MaxBuyIn,
			MaxSeats:   cfg.MaxSeats,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops every running table.
func (r *Registry) Close() {
	r.mu.Lock()
	tables := make([]*Orchestrator, 0, len(r.tables))
	for id, o := range r.tables {
		tables = append(tables, o)
		delete(r.tables, id)
	}
	r.mu.Unlock()

	for _, o := range tables {
		o.Close()
	}
}
