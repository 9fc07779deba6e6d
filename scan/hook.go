package scan

// HookPos names the point of a scan at which hooks run.
type HookPos struct {
	Name string
}

var (
	// HookPosRegion is triggered before a mapped region is walked. The item
	// is the pagemap.Region.
	HookPosRegion = &HookPos{Name: "Region"}

	// HookPosRecord is triggered once per scanned address. The item is the
	// Record.
	HookPosRecord = &HookPos{Name: "Record"}

	// HookPosDone is triggered when a scan ends, stopped or not. The item is
	// the Summary and the detail is the error that ended the scan, if any.
	HookPosDone = &HookPos{Name: "Done"}
)

// HookCtx describes one scan event.
type HookCtx struct {
	// Domain is the scanner that produced the event.
	Domain Hookable

	Pos    *HookPos
	Item   any
	Detail any
}

// Hookable is a source of scan events that observers can subscribe to.
type Hookable interface {
	// AcceptHook subscribes a hook to every later event.
	AcceptHook(hook Hook)

	// NumHooks returns the number of subscribed hooks.
	NumHooks() int

	// Hooks returns the subscribed hooks in subscription order.
	Hooks() []Hook
}

// Hook observes scan events. Hooks run synchronously on the scanning
// goroutine, so a slow hook slows the scan.
type Hook interface {
	Func(ctx HookCtx)
}

// HookableBase keeps the hook list of a scanner.
type HookableBase struct {
	hooks []Hook
}

// NumHooks returns the number of subscribed hooks.
func (h *HookableBase) NumHooks() int {
	return len(h.hooks)
}

// Hooks returns the subscribed hooks in subscription order.
func (h *HookableBase) Hooks() []Hook {
	return h.hooks
}

// AcceptHook subscribes a hook. Subscribing the same hook twice would report
// every record twice, so it panics.
func (h *HookableBase) AcceptHook(hook Hook) {
	if h.subscribed(hook) {
		panic("hook already subscribed to scanner")
	}

	h.hooks = append(h.hooks, hook)
}

func (h *HookableBase) subscribed(hook Hook) bool {
	for _, existing := range h.hooks {
		if existing == hook {
			return true
		}
	}

	return false
}

// InvokeHook hands the event to each hook in subscription order.
func (h *HookableBase) InvokeHook(ctx HookCtx) {
	for _, hook := range h.hooks {
		hook.Func(ctx)
	}
}
