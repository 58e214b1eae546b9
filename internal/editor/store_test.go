package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"floorplan-editor/internal/slot"
)

// fakeService is an in-memory slot service with scriptable failures.
type fakeService struct {
	mu         sync.Mutex
	listing    []slot.Slot
	listErr    error
	base       map[string]slot.Slot
	fail       map[string]error // keyed "update:<id>", "delete:<id>", "create"
	updateGate chan struct{}    // when set, UpdateSlot blocks on a receive first
	calls      []string
	nextID     int
}

func newFakeService(slots ...slot.Slot) *fakeService {
	f := &fakeService{
		listing: slots,
		base:    make(map[string]slot.Slot),
		fail:    make(map[string]error),
	}
	for _, s := range slots {
		f.base[s.ID] = s
	}
	return f
}

func (f *fakeService) ListSlots(_ context.Context, _ string, _ slot.ListFilters) ([]slot.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return slot.CloneAll(f.listing), nil
}

func (f *fakeService) CreateSlot(_ context.Context, _ string, data slot.Slot) (slot.Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "create")
	if err := f.fail["create"]; err != nil {
		return slot.Slot{}, err
	}
	f.nextID++
	data.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.base[data.ID] = data
	return data, nil
}

func (f *fakeService) UpdateSlot(_ context.Context, _ string, slotID string, patch slot.Patch) (slot.Slot, error) {
	if f.updateGate != nil {
		<-f.updateGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "update:"+slotID)
	if err := f.fail["update:"+slotID]; err != nil {
		return slot.Slot{}, err
	}
	s, ok := f.base[slotID]
	if !ok {
		return slot.Slot{}, errors.New("not found")
	}
	patch.Apply(&s)
	f.base[slotID] = s
	return s, nil
}

func (f *fakeService) DeleteSlot(_ context.Context, _ string, slotID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "delete:"+slotID)
	if err := f.fail["delete:"+slotID]; err != nil {
		return err
	}
	delete(f.base, slotID)
	return nil
}

func (f *fakeService) recordedCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// eventRecorder captures store events under a mutex; listeners may run on
// the dispatch goroutine.
type eventRecorder struct {
	mu       sync.Mutex
	counts   map[EventType]int
	failures []*CommitError
	created  []slot.Slot
}

func recordEvents(st *Store) *eventRecorder {
	rec := &eventRecorder{counts: make(map[EventType]int)}
	for _, ev := range []EventType{EventSlotsChanged, EventSelectionChanged, EventSlotCreated, EventCommitFailed} {
		ev := ev
		st.On(ev, func(data any) {
			rec.mu.Lock()
			defer rec.mu.Unlock()
			rec.counts[ev]++
			switch v := data.(type) {
			case *CommitError:
				rec.failures = append(rec.failures, v)
			case slot.Slot:
				rec.created = append(rec.created, v)
			}
		})
	}
	return rec
}

func (r *eventRecorder) count(ev EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[ev]
}

func (r *eventRecorder) lastFailure() *CommitError {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.failures) == 0 {
		return nil
	}
	return r.failures[len(r.failures)-1]
}

func testSlot(id, label string, x, y float64) slot.Slot {
	return slot.Slot{
		ID: id, Label: label,
		Type: slot.TypeTable, Shape: slot.ShapeRectangle,
		X: x, Y: y, Width: 80, Height: 60,
		Status: slot.StatusAvailable, Zone: "main",
	}
}

func newTestStore(t *testing.T, svc Service) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := NewStore(svc, "venue-1", logger)
	t.Cleanup(st.Close)
	return st
}

func TestLoadReplacesCollection(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0), testSlot("b", "T2", 100, 0))
	st := newTestStore(t, svc)

	require.NoError(t, st.Load(context.Background()))
	assert.Len(t, st.Slots(), 2)
}

func TestLoadFailureKeepsPreviousCollection(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	svc.mu.Lock()
	svc.listErr = errors.New("service down")
	svc.mu.Unlock()

	err := st.Load(context.Background())
	require.Error(t, err)
	assert.Len(t, st.Slots(), 1)
}

func TestLoadPrunesVanishedSelection(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0), testSlot("b", "T2", 100, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))
	st.Select("b", false)

	svc.mu.Lock()
	svc.listing = []slot.Slot{testSlot("a", "T1", 0, 0)}
	svc.mu.Unlock()

	require.NoError(t, st.Load(context.Background()))
	assert.Empty(t, st.SelectedIDs())
}

func TestMoveSlotAppliesOptimistically(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	require.NoError(t, st.MoveSlot("a", 50, 75))

	// The local collection reflects the move before any confirmation.
	s, ok := st.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 50, s.X, 1e-9)
	assert.InDelta(t, 75, s.Y, 1e-9)

	st.Flush()
	assert.Equal(t, []string{"update:a"}, svc.recordedCalls())

	s, _ = st.Get("a")
	assert.InDelta(t, 50, s.X, 1e-9)
}

func TestMoveSlotToSamePositionIsNoOp(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 10, 20))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	require.NoError(t, st.MoveSlot("a", 10, 20))
	st.Flush()
	assert.Empty(t, svc.recordedCalls())
}

func TestMoveUnknownSlot(t *testing.T) {
	st := newTestStore(t, newFakeService())
	require.NoError(t, st.Load(context.Background()))
	assert.ErrorIs(t, st.MoveSlot("ghost", 1, 2), ErrUnknownSlot)
}

func TestCommitBatchRollsBackAtomically(t *testing.T) {
	svc := newFakeService(
		testSlot("a", "T1", 0, 0),
		testSlot("b", "T2", 100, 0),
		testSlot("c", "T3", 200, 0),
	)
	svc.fail["update:b"] = errors.New("409 conflict")
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))
	rec := recordEvents(st)

	muts := []Mutation{
		{SlotID: "a", Patch: slot.MovePatch(10, 10)},
		{SlotID: "b", Patch: slot.MovePatch(110, 10)},
		{SlotID: "c", Patch: slot.MovePatch(210, 10)},
	}
	require.NoError(t, st.CommitTransforms(muts))
	st.Flush()

	// The first update succeeded server-side, but the whole batch reverts
	// locally: consistency over partial success.
	for _, id := range []string{"a", "b", "c"} {
		s, ok := st.Get(id)
		require.True(t, ok)
		assert.InDelta(t, 0, s.Y, 1e-9, "slot %s must revert", id)
	}
	a, _ := st.Get("a")
	assert.InDelta(t, 0, a.X, 1e-9)

	// The failing request stops the batch; c is never sent.
	assert.Equal(t, []string{"update:a", "update:b"}, svc.recordedCalls())

	failure := rec.lastFailure()
	require.NotNil(t, failure)
	assert.Equal(t, "b", failure.SlotID)
	assert.Equal(t, "T2", failure.SlotLabel)
	assert.Equal(t, "update", failure.Op)
	assert.Contains(t, failure.Error(), "T2")
}

func TestQueuedFailuresForOneSlotRevertToConfirmedPosition(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	svc.fail["update:a"] = errors.New("503 unavailable")
	svc.updateGate = make(chan struct{})
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))
	rec := recordEvents(st)

	// The second move is committed while the first is still in flight, so
	// its local view already embeds the first move's optimistic position.
	require.NoError(t, st.MoveSlot("a", 10, 0))
	require.NoError(t, st.MoveSlot("a", 20, 0))
	svc.updateGate <- struct{}{}
	svc.updateGate <- struct{}{}
	st.Flush()

	// Both batches were rejected; neither rollback may reinstate the
	// other's optimistic position.
	s, ok := st.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 0, s.X, 1e-9)
	assert.Equal(t, 2, rec.count(EventCommitFailed))
	assert.Equal(t, []string{"update:a", "update:a"}, svc.recordedCalls())
}

func TestRollbackUsesLatestConfirmedRecord(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	require.NoError(t, st.MoveSlot("a", 10, 0))
	st.Flush()

	svc.mu.Lock()
	svc.fail["update:a"] = errors.New("503 unavailable")
	svc.mu.Unlock()

	require.NoError(t, st.MoveSlot("a", 20, 0))
	st.Flush()

	// The revert lands on the confirmed position, not the original load.
	s, ok := st.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 10, s.X, 1e-9)
}

func TestNotifierCarriesAsyncOutcomes(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	svc.fail["update:a"] = errors.New("503 unavailable")
	st := newTestStore(t, svc)

	var mu sync.Mutex
	marshalled := 0
	st.SetNotifier(func(fn func()) {
		mu.Lock()
		marshalled++
		mu.Unlock()
		fn()
	})

	require.NoError(t, st.Load(context.Background()))
	require.NoError(t, st.MoveSlot("a", 10, 0))
	st.Flush()

	// The load publication and the rollback both went through the
	// notifier; the optimistic apply stayed on the caller's goroutine.
	mu.Lock()
	count := marshalled
	mu.Unlock()
	assert.Equal(t, 2, count)

	s, ok := st.Get("a")
	require.True(t, ok)
	assert.InDelta(t, 0, s.X, 1e-9)
}

func TestCommitBatchConfirmsAllOnSuccess(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0), testSlot("b", "T2", 100, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	muts := []Mutation{
		{SlotID: "a", Patch: slot.MovePatch(11, 12)},
		{SlotID: "b", Patch: slot.MovePatch(111, 12)},
	}
	require.NoError(t, st.CommitTransforms(muts))
	st.Flush()

	a, _ := st.Get("a")
	b, _ := st.Get("b")
	assert.InDelta(t, 11, a.X, 1e-9)
	assert.InDelta(t, 111, b.X, 1e-9)
	assert.Equal(t, []string{"update:a", "update:b"}, svc.recordedCalls())
}

func TestCommitRejectsInvalidGeometryBeforeSending(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	bad := -5.0
	err := st.CommitTransforms([]Mutation{{SlotID: "a", Patch: slot.Patch{Width: &bad}}})
	assert.ErrorIs(t, err, slot.ErrInvalidGeometry)

	st.Flush()
	assert.Empty(t, svc.recordedCalls())
	s, _ := st.Get("a")
	assert.InDelta(t, 80, s.Width, 1e-9)
}

func TestSequentialWritesToOneSlotStayOrdered(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	require.NoError(t, st.MoveSlot("a", 10, 0))
	require.NoError(t, st.MoveSlot("a", 20, 0))
	require.NoError(t, st.MoveSlot("a", 30, 0))
	st.Flush()

	assert.Equal(t, []string{"update:a", "update:a", "update:a"}, svc.recordedCalls())

	// The service's final state reflects the last move, not a reordering.
	svc.mu.Lock()
	final := svc.base["a"]
	svc.mu.Unlock()
	assert.InDelta(t, 30, final.X, 1e-9)
}

func TestDeleteSlotOptimisticallyRemoves(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	require.NoError(t, st.DeleteSlot("a"))
	_, ok := st.Get("a")
	assert.False(t, ok)

	st.Flush()
	_, ok = st.Get("a")
	assert.False(t, ok)
	assert.Equal(t, []string{"delete:a"}, svc.recordedCalls())
}

func TestDeleteFailureRestoresSlotAndSelection(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	svc.fail["delete:a"] = errors.New("423 locked")
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))
	st.Select("a", false)
	rec := recordEvents(st)

	require.NoError(t, st.DeleteSlot("a"))
	assert.Empty(t, st.SelectedIDs())

	st.Flush()
	_, ok := st.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"a"}, st.SelectedIDs())

	failure := rec.lastFailure()
	require.NotNil(t, failure)
	assert.Equal(t, "delete", failure.Op)
}

func TestCreateSlotEntersCollectionOnConfirmation(t *testing.T) {
	svc := newFakeService()
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))
	rec := recordEvents(st)

	data := testSlot("", "T9", 10, 10)
	require.NoError(t, st.CreateSlot(data))
	st.Flush()

	slots := st.Slots()
	require.Len(t, slots, 1)
	assert.Equal(t, "srv-1", slots[0].ID)
	assert.Equal(t, "T9", slots[0].Label)
	assert.Equal(t, 1, rec.count(EventSlotCreated))
}

func TestCreateSlotFailureLeavesCollectionUntouched(t *testing.T) {
	svc := newFakeService()
	svc.fail["create"] = errors.New("422 invalid")
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))
	rec := recordEvents(st)

	require.NoError(t, st.CreateSlot(testSlot("", "T9", 10, 10)))
	st.Flush()

	assert.Empty(t, st.Slots())
	failure := rec.lastFailure()
	require.NotNil(t, failure)
	assert.Equal(t, "create", failure.Op)
	assert.Equal(t, "T9", failure.SlotLabel)
}

func TestCreateSlotValidatesLocally(t *testing.T) {
	st := newTestStore(t, newFakeService())
	err := st.CreateSlot(slot.Slot{Label: "bad", Type: slot.TypeTable, Shape: slot.ShapeRectangle, Status: slot.StatusAvailable})
	assert.ErrorIs(t, err, slot.ErrInvalidGeometry)
}

func TestSelectIgnoresUnknownID(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))

	st.Select("ghost", false)
	assert.Empty(t, st.SelectedIDs())
}

func TestSetSelectionEquivalentSetEmitsNothing(t *testing.T) {
	svc := newFakeService(testSlot("a", "T1", 0, 0), testSlot("b", "T2", 100, 0))
	st := newTestStore(t, svc)
	require.NoError(t, st.Load(context.Background()))
	st.Select("a", false)
	st.Select("b", true)
	rec := recordEvents(st)

	st.SetSelection([]string{"b", "a"})
	assert.Zero(t, rec.count(EventSelectionChanged))

	st.SetSelection([]string{"a"})
	assert.Equal(t, 1, rec.count(EventSelectionChanged))
}
