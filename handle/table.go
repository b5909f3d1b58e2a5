package handle

import (
	"sync"

	"github.com/wippyai/hostbridge/errors"
)

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Table maps handles to host values of type T.
// Removed slots are emptied and their generation bumped, so stale handles
// fail loudly instead of resolving to garbage.
type Table[T any] struct {
	category  Category
	slots     []slot[T]
	free      freeList
	observers []Observer
	live      int
	mu        sync.Mutex
	obsMu     sync.RWMutex
	closed    bool
}

// NewTable creates an empty table for one category.
func NewTable[T any](category Category) *Table[T] {
	return &Table[T]{
		category: category,
		slots:    make([]slot[T], 0, 16),
	}
}

// Category returns the category this table serves.
func (t *Table[T]) Category() Category {
	return t.category
}

// Create registers value and returns its handle: the lowest recycled
// handle if any, else the next unused index. It fails only on a closed table.
func (t *Table[T]) Create(value T) (Handle, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, errors.Closed(errors.PhaseHandle, string(t.category)+" table")
	}

	h, ok := t.free.pop()
	if ok {
		s := &t.slots[h]
		s.value = value
		s.live = true
	} else {
		h = Handle(len(t.slots))
		t.slots = append(t.slots, slot[T]{value: value, live: true})
	}
	t.live++
	t.mu.Unlock()

	t.notify(Event{Type: EventCreated, Category: t.category, Handle: h, Value: value})
	return h, nil
}

// lookupLocked returns the live slot for h. Caller holds t.mu.
func (t *Table[T]) lookupLocked(h Handle) (*slot[T], error) {
	if int(h) >= len(t.slots) || !t.slots[h].live {
		return nil, errors.InvalidHandle(string(t.category), uint32(h))
	}
	return &t.slots[h], nil
}

// Get returns the value bound to h, or an invalid_handle error if h was
// never issued or has been removed.
func (t *Table[T]) Get(h Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookupLocked(h)
	if err != nil {
		var zero T
		return zero, err
	}
	return s.value, nil
}

// Lookup is the permissive form of Get: a dead handle yields the zero
// value and false.
func (t *Table[T]) Lookup(h Handle) (T, bool) {
	v, err := t.Get(h)
	return v, err == nil
}

// release empties the slot and returns h to the free list. Caller holds t.mu.
func (t *Table[T]) release(h Handle, s *slot[T]) T {
	value := s.value
	var zero T
	s.value = zero
	s.live = false
	s.gen++
	t.free.push(h)
	t.live--
	return value
}

// Remove unbinds h and recycles it. Values implementing Dropper are dropped.
func (t *Table[T]) Remove(h Handle) error {
	t.mu.Lock()
	s, err := t.lookupLocked(h)
	if err != nil {
		t.mu.Unlock()
		return err
	}
	value := t.release(h, s)
	t.mu.Unlock()

	if d, ok := any(value).(Dropper); ok {
		d.Drop()
	}
	t.notify(Event{Type: EventRemoved, Category: t.category, Handle: h, Value: value})
	return nil
}

// Take unbinds h and hands its value to the caller, who consumes it
// exactly once. The value is not dropped.
func (t *Table[T]) Take(h Handle) (T, error) {
	t.mu.Lock()
	s, err := t.lookupLocked(h)
	if err != nil {
		t.mu.Unlock()
		var zero T
		return zero, err
	}
	value := t.release(h, s)
	t.mu.Unlock()

	t.notify(Event{Type: EventTaken, Category: t.category, Handle: h, Value: value})
	return value, nil
}

// Ref returns a generation-stamped reference to a live handle.
func (t *Table[T]) Ref(h Handle) (Ref, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.lookupLocked(h)
	if err != nil {
		return Ref{}, err
	}
	return Ref{Category: t.category, Handle: h, Generation: s.gen}, nil
}

// Resolve returns the value for ref if its handle is still bound to the
// same object it was when the Ref was taken.
func (t *Table[T]) Resolve(ref Ref) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var zero T
	if ref.Category != t.category {
		return zero, errors.New(errors.PhaseHandle, errors.KindInvalidHandle).
			Path(string(t.category)).
			Detail("ref belongs to category %q", ref.Category).
			Build()
	}
	s, err := t.lookupLocked(ref.Handle)
	if err != nil {
		return zero, err
	}
	if s.gen != ref.Generation {
		return zero, errors.New(errors.PhaseHandle, errors.KindInvalidHandle).
			Path(string(t.category)).
			Value(uint32(ref.Handle)).
			Detail("handle %d was recycled (generation %d, ref %d)", ref.Handle, s.gen, ref.Generation).
			Build()
	}
	return s.value, nil
}

// Len returns the number of live handles.
func (t *Table[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.live
}

// Cap returns the size of the handle space, which never exceeds the peak
// number of concurrently live handles.
func (t *Table[T]) Cap() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}

// Each calls fn for every live handle in ascending order until fn returns
// false. fn runs on a snapshot and may modify the table.
func (t *Table[T]) Each(fn func(Handle, T) bool) {
	type pair struct {
		value T
		h     Handle
	}

	t.mu.Lock()
	snapshot := make([]pair, 0, t.live)
	for i := range t.slots {
		if t.slots[i].live {
			snapshot = append(snapshot, pair{h: Handle(i), value: t.slots[i].value})
		}
	}
	t.mu.Unlock()

	for _, p := range snapshot {
		if !fn(p.h, p.value) {
			return
		}
	}
}

// Clear removes every live handle.
func (t *Table[T]) Clear() {
	var handles []Handle
	t.Each(func(h Handle, _ T) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		_ = t.Remove(h)
	}
}

// Close removes every live handle and rejects further Create calls.
func (t *Table[T]) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	t.Clear()
	return nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table[T]) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer. o must be comparable, so func-backed
// observers registered via ObserverFunc cannot be unsubscribed.
func (t *Table[T]) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

func (t *Table[T]) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
