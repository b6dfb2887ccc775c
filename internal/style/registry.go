package style

import (
	"slices"

	"github.com/rotisserie/eris"
)

// Func computes the style for one feature.
type Func func(Feature, *Context) *Descriptor

// FuncChoropleth is the registry name of Classify.
const FuncChoropleth = "choropleth"

// Registry is a fixed name-to-Func table built once at startup and handed
// to whatever renders features.
type Registry struct {
	funcs map[string]Func
}

// DefaultFuncs returns the built-in style functions.
func DefaultFuncs() map[string]Func {
	return map[string]Func{
		FuncChoropleth: Classify,
	}
}

// NewRegistry copies funcs into a new registry. Nil entries are rejected.
func NewRegistry(funcs map[string]Func) (*Registry, error) {
	r := &Registry{funcs: make(map[string]Func, len(funcs))}
	for name, fn := range funcs {
		if name == "" {
			return nil, eris.New("style: registry: empty function name")
		}
		if fn == nil {
			return nil, eris.Errorf("style: registry: nil function %q", name)
		}
		r.funcs[name] = fn
	}
	return r, nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (Func, error) {
	fn, ok := r.funcs[name]
	if !ok {
		return nil, eris.Errorf("style: unknown style function %q", name)
	}
	return fn, nil
}

// Names returns registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
