package sim

import "sync"

// A Named object has a name.
type Named interface {
	Name() string
}

// A Component is a simulated hardware block.
type Component interface {
	Named
	Handler
	Hookable
}

// ComponentBase provides the name, the lock, and the hooks of a component.
type ComponentBase struct {
	HookableBase
	sync.Mutex

	name string
}

// NewComponentBase creates a ComponentBase.
func NewComponentBase(name string) *ComponentBase {
	NameMustBeValid(name)

	return &ComponentBase{name: name}
}

// Name returns the name of the component.
func (c *ComponentBase) Name() string {
	return c.name
}
