package forecast

import (
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Registry keeps one Forecaster per symbol so that training on one symbol
// never replaces the model used for another.
type Registry struct {
	mu          sync.Mutex
	forecasters map[string]*Forecaster
	factory     ModelFactory
	log         zerolog.Logger
}

// NewRegistry creates an empty registry whose forecasters use factory.
func NewRegistry(factory ModelFactory, log zerolog.Logger) *Registry {
	return &Registry{
		forecasters: make(map[string]*Forecaster),
		factory:     factory,
		log:         log,
	}
}

// Get returns the forecaster for symbol, creating an untrained one on first use.
func (r *Registry) Get(symbol string) *Forecaster {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.forecasters[key]; ok {
		return f
	}
	f := New(key, r.factory, r.log)
	r.forecasters[key] = f
	return f
}

// Remove drops the forecaster for symbol.
func (r *Registry) Remove(symbol string) {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.forecasters, key)
}

// Symbols lists the symbols with a forecaster, sorted.
func (r *Registry) Symbols() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.forecasters))
	for s := range r.forecasters {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}
