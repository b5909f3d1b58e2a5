package handle

import (
	"fmt"
	"sync"

	"github.com/wippyai/hostbridge/errors"
)

// Registry holds one independent Table per category. Handle 0 in the
// texture space and handle 0 in the socket space name different objects.
type Registry struct {
	tables    map[Category]*Table[any]
	observers []Observer
	mu        sync.RWMutex
	closed    bool
}

// NewRegistry creates a registry with a table for every built-in category.
func NewRegistry() *Registry {
	r := &Registry{tables: make(map[Category]*Table[any], len(Categories))}
	for _, c := range Categories {
		r.tables[c] = NewTable[any](c)
	}
	return r
}

// Table returns the table for c, creating it on first use for categories
// outside the built-in set.
func (r *Registry) Table(c Category) *Table[any] {
	r.mu.RLock()
	t, ok := r.tables[c]
	r.mu.RUnlock()
	if ok {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok = r.tables[c]; ok {
		return t
	}
	t = NewTable[any](c)
	for _, o := range r.observers {
		t.Subscribe(o)
	}
	if r.closed {
		_ = t.Close()
	}
	r.tables[c] = t
	return t
}

// Create registers value under category c.
func (r *Registry) Create(c Category, value any) (Handle, error) {
	return r.Table(c).Create(value)
}

// Get returns the value bound to h in category c.
func (r *Registry) Get(c Category, h Handle) (any, error) {
	return r.Table(c).Get(h)
}

// Remove unbinds h in category c.
func (r *Registry) Remove(c Category, h Handle) error {
	return r.Table(c).Remove(h)
}

// Take unbinds h in category c and returns its value without dropping it.
func (r *Registry) Take(c Category, h Handle) (any, error) {
	return r.Table(c).Take(h)
}

// Len returns the number of live handles across all categories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, t := range r.tables {
		n += t.Len()
	}
	return n
}

// Subscribe adds o to every current and future table.
func (r *Registry) Subscribe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
	for _, t := range r.tables {
		t.Subscribe(o)
	}
}

// Close closes every table, dropping all live values.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	tables := make([]*Table[any], 0, len(r.tables))
	for _, t := range r.tables {
		tables = append(tables, t)
	}
	r.mu.Unlock()

	for _, t := range tables {
		_ = t.Close()
	}
	return nil
}

// GetAs returns the value bound to h in category c asserted to T.
func GetAs[T any](r *Registry, c Category, h Handle) (T, error) {
	var zero T
	v, err := r.Get(c, h)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.PhaseHandle, errors.KindInvalidHandle).
			Path(string(c)).
			Value(uint32(h)).
			Type(fmt.Sprintf("%T", v)).
			Detail("handle %d holds %T, want %T", h, v, zero).
			Build()
	}
	return typed, nil
}
