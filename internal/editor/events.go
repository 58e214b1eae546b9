package editor

// EventType identifies store events delivered to registered listeners.
type EventType int

const (
	// EventSlotsChanged fires whenever the slot collection content changes:
	// load, optimistic apply, server confirmation, or rollback.
	EventSlotsChanged EventType = iota
	// EventSelectionChanged fires when the selected ID set changes.
	EventSelectionChanged
	// EventSlotCreated fires once a created slot is confirmed by the
	// service; the payload is the authoritative slot.Slot.
	EventSlotCreated
	// EventCommitFailed fires after a rollback; the payload is the
	// *CommitError describing the slot and operation that failed.
	EventCommitFailed
)

// EventListener is called when an event occurs. Listeners run on whatever
// goroutine the store's notifier dispatches to (the UI loop in the app).
type EventListener func(data any)
