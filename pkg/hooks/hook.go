package hooks

import (
	"fmt"
	"sort"

	"golang.org/x/net/html"
)

// AttrHook is the attribute naming an element's hook.
const AttrHook = "phx-hook"

// Hook is a client-side behaviour attached to one element.
type Hook interface {
	// Mounted is called once the element is in the document.
	Mounted(ctx *Context)
}

// Updater is implemented by hooks that react to server patches of their
// element.
type Updater interface {
	Updated(ctx *Context)
}

// Destroyer is implemented by hooks that need cleanup beyond what the
// View does on its own (timers, listeners and handlers are released
// automatically).
type Destroyer interface {
	Destroyed(ctx *Context)
}

// Factory creates a fresh hook instance.
type Factory func() Hook

// Func adapts a function to a Hook with only a Mounted callback.
type Func func(ctx *Context)

// Mounted calls f(ctx).
func (f Func) Mounted(ctx *Context) { f(ctx) }

// Registry maps hook names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. Registering a name twice replaces the factory.
func (r *Registry) Register(name string, f Factory) *Registry {
	if name == "" || f == nil {
		panic(fmt.Sprintf("hooks: invalid registration for %q", name))
	}
	r.factories[name] = f
	return r
}

// Lookup returns the factory for name.
func (r *Registry) Lookup(name string) (Factory, bool) {
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int {
	return len(r.factories)
}

// Attribute returns the phx-hook attribute for server-side rendering.
func Attribute(name string) html.Attribute {
	return html.Attribute{Key: AttrHook, Val: name}
}
