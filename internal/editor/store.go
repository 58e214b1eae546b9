package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"floorplan-editor/internal/slot"
)

// Service is the external slot CRUD collaborator. All calls are network
// operations and may fail with transport or validation errors.
type Service interface {
	ListSlots(ctx context.Context, venueID string, filters slot.ListFilters) ([]slot.Slot, error)
	CreateSlot(ctx context.Context, venueID string, data slot.Slot) (slot.Slot, error)
	UpdateSlot(ctx context.Context, venueID, slotID string, patch slot.Patch) (slot.Slot, error)
	DeleteSlot(ctx context.Context, venueID, slotID string) error
}

// Mutation addresses one partial update to a slot by ID.
type Mutation struct {
	SlotID string
	Patch  slot.Patch
}

// CommitError reports a persistence failure after the local state has been
// rolled back to the last service-confirmed records.
type CommitError struct {
	SlotID    string
	SlotLabel string
	Op        string // "create", "update", or "delete"
	Err       error
}

func (e *CommitError) Error() string {
	name := e.SlotLabel
	if name == "" {
		name = e.SlotID
	}
	return fmt.Sprintf("%s slot %q: %v", e.Op, name, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

// ErrUnknownSlot is returned when a mutation addresses an ID not present in
// the collection (including slots whose creation is not yet confirmed).
var ErrUnknownSlot = errors.New("unknown slot id")

const defaultRequestTimeout = 10 * time.Second

type batchKind int

const (
	batchUpdate batchKind = iota
	batchCreate
	batchDelete
)

type batch struct {
	kind        batchKind
	muts        []Mutation // batchUpdate
	data        slot.Slot  // batchCreate
	slotID      string     // batchDelete
	wasSelected bool       // batchDelete
	removedAt   int        // batchDelete: index the slot occupied
}

// Store owns the canonical slot collection and selection set. Mutations are
// applied optimistically, pushed to the slot service by a single dispatch
// goroutine (which serializes writes, satisfying per-slot ordering), and
// rolled back to the last service-confirmed records when the service
// rejects any request of a batch. Listener callbacks that originate on the
// dispatch goroutine are marshalled through the configured notifier so the
// UI only ever observes state changes on its own loop.
type Store struct {
	mu      sync.RWMutex
	service Service
	venueID string
	zone    string
	timeout time.Duration
	logger  *slog.Logger

	slots     []slot.Slot
	index     map[string]int
	baseline  map[string]slot.Slot // last service-confirmed record per slot
	selection *Selection

	listeners map[EventType][]EventListener
	notify    func(func())

	queue  chan batch
	wg     sync.WaitGroup
	closed bool
}

// NewStore creates a store backed by the given service. The store starts
// its dispatch goroutine immediately; call Close when done.
func NewStore(service Service, venueID string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	st := &Store{
		service:   service,
		venueID:   venueID,
		zone:      slot.ZoneAll,
		timeout:   defaultRequestTimeout,
		logger:    logger,
		index:     make(map[string]int),
		baseline:  make(map[string]slot.Slot),
		selection: NewSelection(),
		listeners: make(map[EventType][]EventListener),
		notify:    func(fn func()) { fn() },
		queue:     make(chan batch, 64),
	}
	go st.dispatch()
	return st
}

// SetNotifier installs the function used to marshal confirmations,
// rollbacks, and events onto the UI loop. The default runs callbacks inline.
func (st *Store) SetNotifier(fn func(func())) {
	if fn != nil {
		st.notify = fn
	}
}

// SetRequestTimeout overrides the per-request service call timeout.
func (st *Store) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		st.timeout = d
	}
}

// Zone returns the active zone filter.
func (st *Store) Zone() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.zone
}

// SetZone changes the zone filter used by the next Load.
func (st *Store) SetZone(zone string) {
	st.mu.Lock()
	if zone == "" {
		zone = slot.ZoneAll
	}
	st.zone = zone
	st.mu.Unlock()
}

// On registers an event listener.
func (st *Store) On(event EventType, listener EventListener) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners[event] = append(st.listeners[event], listener)
}

func (st *Store) emit(event EventType, data any) {
	st.mu.RLock()
	listeners := st.listeners[event]
	st.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// Load fetches the slot collection for the store's venue and zone,
// replacing local state. Selected IDs no longer present are dropped.
// A failure leaves the previous collection untouched; the caller renders
// the error state and may retry.
func (st *Store) Load(ctx context.Context) error {
	st.mu.RLock()
	filters := slot.ListFilters{Zone: st.zone}
	st.mu.RUnlock()

	slots, err := st.service.ListSlots(ctx, st.venueID, filters)
	if err != nil {
		return fmt.Errorf("list slots for venue %s: %w", st.venueID, err)
	}

	st.mu.Lock()
	st.slots = slot.CloneAll(slots)
	st.reindexLocked()
	st.baseline = make(map[string]slot.Slot, len(slots))
	for _, s := range slots {
		st.baseline[s.ID] = s.Clone()
	}
	selectionChanged := st.selection.Prune(func(id string) bool {
		_, ok := st.index[id]
		return ok
	})
	st.mu.Unlock()

	// Load usually runs off the UI goroutine, so its events go through the
	// notifier the same way the dispatch goroutine's results do.
	st.notify(func() {
		st.emit(EventSlotsChanged, nil)
		if selectionChanged {
			st.emit(EventSelectionChanged, nil)
		}
	})
	return nil
}

// Slots returns a copy of the collection in canonical order.
func (st *Store) Slots() []slot.Slot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return slot.CloneAll(st.slots)
}

// Get returns the slot with the given ID.
func (st *Store) Get(id string) (slot.Slot, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	i, ok := st.index[id]
	if !ok {
		return slot.Slot{}, false
	}
	return st.slots[i].Clone(), true
}

// SelectedIDs returns the current selection in sorted order.
func (st *Store) SelectedIDs() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.selection.IDs()
}

// Select applies click-selection semantics for the given slot. Clicks on
// IDs not in the collection are ignored.
func (st *Store) Select(id string, multi bool) {
	st.mu.Lock()
	if _, ok := st.index[id]; !ok {
		st.mu.Unlock()
		return
	}
	changed := st.selection.ApplyClick(id, multi)
	st.mu.Unlock()
	if changed {
		st.emit(EventSelectionChanged, nil)
	}
}

// ClearSelection empties the selection.
func (st *Store) ClearSelection() {
	st.mu.Lock()
	changed := st.selection.Clear()
	st.mu.Unlock()
	if changed {
		st.emit(EventSelectionChanged, nil)
	}
}

// SetSelection replaces the selection with the given IDs, dropping any not
// present in the collection. No event fires when the set is already equal.
func (st *Store) SetSelection(ids []string) {
	st.mu.Lock()
	kept := ids[:0:0]
	for _, id := range ids {
		if _, ok := st.index[id]; ok {
			kept = append(kept, id)
		}
	}
	changed := st.selection.Replace(kept)
	st.mu.Unlock()
	if changed {
		st.emit(EventSelectionChanged, nil)
	}
}

// MoveSlot commits a completed drag: a single-position update batch.
// Moving a slot to the position it already occupies is a no-op.
func (st *Store) MoveSlot(id string, x, y float64) error {
	current, ok := st.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, id)
	}
	if current.X == x && current.Y == y {
		return nil
	}
	return st.CommitTransforms([]Mutation{{SlotID: id, Patch: slot.MovePatch(x, y)}})
}

// CommitTransforms applies a batch of geometry/field mutations
// optimistically and queues the corresponding service updates. The batch is
// sent sequentially in the given order; if any request fails every slot the
// batch touched reverts to its last confirmed record and EventCommitFailed
// fires.
func (st *Store) CommitTransforms(muts []Mutation) error {
	if len(muts) == 0 {
		return nil
	}

	st.mu.Lock()
	for _, m := range muts {
		i, ok := st.index[m.SlotID]
		if !ok {
			st.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrUnknownSlot, m.SlotID)
		}
		patched := st.slots[i].Clone()
		m.Patch.Apply(&patched)
		if !patched.Renderable() {
			st.mu.Unlock()
			return fmt.Errorf("slot %s: %w", m.SlotID, slot.ErrInvalidGeometry)
		}
	}

	for _, m := range muts {
		m.Patch.Apply(&st.slots[st.index[m.SlotID]])
	}
	if st.closed {
		st.mu.Unlock()
		return errors.New("store is closed")
	}
	st.wg.Add(1)
	st.mu.Unlock()

	st.emit(EventSlotsChanged, nil)
	st.queue <- batch{kind: batchUpdate, muts: muts}
	return nil
}

// CreateSlot requests creation of a new slot. The service assigns the ID;
// the slot only enters the local collection once confirmed, so it cannot be
// edited or re-mutated while the request is in flight.
func (st *Store) CreateSlot(data slot.Slot) error {
	if err := data.Validate(); err != nil {
		return err
	}

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return errors.New("store is closed")
	}
	st.wg.Add(1)
	st.mu.Unlock()

	st.queue <- batch{kind: batchCreate, data: data.Clone()}
	return nil
}

// DeleteSlot optimistically removes a slot (and its selection membership)
// and requests deletion. On failure both are restored.
func (st *Store) DeleteSlot(id string) error {
	st.mu.Lock()
	if _, ok := st.index[id]; !ok {
		st.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSlot, id)
	}
	if st.closed {
		st.mu.Unlock()
		return errors.New("store is closed")
	}

	removedAt := st.index[id]
	wasSelected := st.selection.Remove(id)
	st.removeLocked(id)
	st.wg.Add(1)
	st.mu.Unlock()

	st.emit(EventSlotsChanged, nil)
	if wasSelected {
		st.emit(EventSelectionChanged, nil)
	}
	st.queue <- batch{kind: batchDelete, slotID: id, wasSelected: wasSelected, removedAt: removedAt}
	return nil
}

// Flush blocks until every queued batch has been processed. Used at
// shutdown and by tests.
func (st *Store) Flush() {
	st.wg.Wait()
}

// Close stops the dispatch goroutine. Pending batches are processed first.
func (st *Store) Close() {
	st.Flush()
	st.mu.Lock()
	if !st.closed {
		st.closed = true
		close(st.queue)
	}
	st.mu.Unlock()
}

func (st *Store) dispatch() {
	for b := range st.queue {
		st.process(b)
		st.wg.Done()
	}
}

func (st *Store) process(b batch) {
	switch b.kind {
	case batchUpdate:
		st.processUpdate(b)
	case batchCreate:
		st.processCreate(b)
	case batchDelete:
		st.processDelete(b)
	}
}

func (st *Store) processUpdate(b batch) {
	confirmed := make([]slot.Slot, 0, len(b.muts))
	for _, m := range b.muts {
		ctx, cancel := context.WithTimeout(context.Background(), st.timeout)
		updated, err := st.service.UpdateSlot(ctx, st.venueID, m.SlotID, m.Patch)
		cancel()
		if err != nil {
			st.fail(b, "update", m.SlotID, err)
			return
		}
		confirmed = append(confirmed, updated)
	}

	st.notify(func() {
		st.mu.Lock()
		for _, s := range confirmed {
			st.baseline[s.ID] = s.Clone()
			if i, ok := st.index[s.ID]; ok {
				st.slots[i] = s.Clone()
			}
		}
		st.mu.Unlock()
		st.emit(EventSlotsChanged, nil)
	})
}

func (st *Store) processCreate(b batch) {
	ctx, cancel := context.WithTimeout(context.Background(), st.timeout)
	created, err := st.service.CreateSlot(ctx, st.venueID, b.data)
	cancel()
	if err != nil {
		cerr := &CommitError{SlotLabel: b.data.Label, Op: "create", Err: err}
		st.logger.Warn("slot create rejected", "label", b.data.Label, "error", err)
		st.notify(func() { st.emit(EventCommitFailed, cerr) })
		return
	}

	st.notify(func() {
		st.mu.Lock()
		st.slots = append(st.slots, created.Clone())
		st.index[created.ID] = len(st.slots) - 1
		st.baseline[created.ID] = created.Clone()
		st.mu.Unlock()
		st.emit(EventSlotsChanged, nil)
		st.emit(EventSlotCreated, created)
	})
}

func (st *Store) processDelete(b batch) {
	ctx, cancel := context.WithTimeout(context.Background(), st.timeout)
	err := st.service.DeleteSlot(ctx, st.venueID, b.slotID)
	cancel()
	if err != nil {
		st.fail(b, "delete", b.slotID, err)
		return
	}

	// The optimistic removal stands; drop the confirmed record with it.
	st.mu.Lock()
	delete(st.baseline, b.slotID)
	st.mu.Unlock()
}

// fail reverts every slot the batch touched to its last service-confirmed
// record and surfaces a CommitError. Batch atomicity favors consistency
// over partial success: earlier successes in the batch are reverted too.
// Reverting to confirmed records rather than a point-in-time snapshot keeps
// one failed batch from reinstating another queued batch's rejected state.
func (st *Store) fail(b batch, op, slotID string, err error) {
	st.mu.RLock()
	label := st.baseline[slotID].Label
	st.mu.RUnlock()
	cerr := &CommitError{SlotID: slotID, SlotLabel: label, Op: op, Err: err}
	st.logger.Warn("slot mutation rejected, rolling back",
		"op", op, "slot", slotID, "error", err)

	st.notify(func() {
		st.mu.Lock()
		selectionChanged := false
		switch b.kind {
		case batchUpdate:
			for _, m := range b.muts {
				base, ok := st.baseline[m.SlotID]
				if !ok {
					continue
				}
				// A slot deleted optimistically since the commit is left
				// to its own delete batch.
				if i, present := st.index[m.SlotID]; present {
					st.slots[i] = base.Clone()
				}
			}
		case batchDelete:
			if base, ok := st.baseline[b.slotID]; ok {
				st.insertLocked(base.Clone(), b.removedAt)
			}
			if b.wasSelected {
				selectionChanged = st.selection.Add(b.slotID)
			}
		}
		st.mu.Unlock()

		st.emit(EventSlotsChanged, nil)
		if selectionChanged {
			st.emit(EventSelectionChanged, nil)
		}
		st.emit(EventCommitFailed, cerr)
	})
}

// insertLocked puts a slot back at the index it previously occupied,
// clamped to the current collection length.
func (st *Store) insertLocked(s slot.Slot, at int) {
	if _, exists := st.index[s.ID]; exists {
		return
	}
	if at < 0 || at > len(st.slots) {
		at = len(st.slots)
	}
	st.slots = append(st.slots, slot.Slot{})
	copy(st.slots[at+1:], st.slots[at:])
	st.slots[at] = s
	st.reindexLocked()
}

func (st *Store) removeLocked(id string) {
	i, ok := st.index[id]
	if !ok {
		return
	}
	st.slots = append(st.slots[:i], st.slots[i+1:]...)
	st.reindexLocked()
}

func (st *Store) reindexLocked() {
	st.index = make(map[string]int, len(st.slots))
	for i, s := range st.slots {
		st.index[s.ID] = i
	}
}
