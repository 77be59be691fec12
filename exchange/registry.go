package exchange

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var ErrUnknownAdapter = errors.New("unknown adapter")

// Constructor builds an adapter from credentials and options.
type Constructor func(creds Credentials, opts Options) (Exchange, error)

// Registry maps adapter names to constructors. Names are case-insensitive.
type Registry struct {
	mu    sync.RWMutex
	ctors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{ctors: make(map[string]Constructor)}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces a constructor.
func (r *Registry) Register(name string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[normalize(name)] = ctor
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[normalize(name)]
	return ok
}

// New builds the named adapter.
func (r *Registry) New(name string, creds Credentials, opts Options) (Exchange, error) {
	r.mu.RLock()
	ctor, ok := r.ctors[normalize(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownAdapter, name, strings.Join(r.Names(), ", "))
	}
	return ctor(creds, opts)
}

// Names lists registered adapters in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ctors))
	for n := range r.ctors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
