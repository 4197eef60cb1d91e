package sim

// HookPos names a site where hooks can be triggered.
type HookPos struct {
	Name string
}

// HookCtx describes the site that triggered a hook.
type HookCtx struct {
	Domain Hookable
	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is anything that accepts hooks.
type Hookable interface {
	AcceptHook(hook Hook)
}

// HookPosBeforeEvent triggers before an engine fires an event.
var HookPosBeforeEvent = &HookPos{Name: "BeforeEvent"}

// HookPosAfterEvent triggers after an engine fires an event.
var HookPosAfterEvent = &HookPos{Name: "AfterEvent"}

// A Hook is a piece of code invoked by a Hookable.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase implements Hookable.
type HookableBase struct {
	hooks []Hook
}

// AcceptHook registers a hook.
func (h *HookableBase) AcceptHook(hook Hook) {
	h.hooks = append(h.hooks, hook)
}

// Hooks returns the registered hooks.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// NumHooks returns how many hooks are registered.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// InvokeHook triggers every registered hook in registration order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
