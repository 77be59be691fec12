package strategies

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/exbot/bot"
)

var ErrUnknownStrategy = errors.New("unknown strategy")

// Factory builds a strategy from its configuration parameters.
type Factory func(p Params) (bot.Strategy, error)

// Registry maps strategy names to factories. Names are case-insensitive.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

func (r *Registry) Register(name string, f Factory) {
	r.factories[strings.ToLower(strings.TrimSpace(name))] = f
}

func (r *Registry) Has(name string) bool {
	_, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (r *Registry) New(name string, p Params) (bot.Strategy, error) {
	f, ok := r.factories[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownStrategy, name, strings.Join(r.Names(), ", "))
	}
	return f(p)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default holds every strategy shipped with exbot.
func Default() *Registry {
	r := NewRegistry()
	r.Register("noop", func(Params) (bot.Strategy, error) { return Noop{}, nil })
	r.Register("open-once", NewOpenOnce)
	r.Register("ema-cross", NewEMACross)
	return r
}
