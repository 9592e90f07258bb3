// Package registry owns the mapping from host-visible opaque handles to the
// per-object bridge state behind them. It is the single source of truth the
// thunk layer consults before any call crosses into driver code.
//
// Handles are generation-tagged: the low 32 bits are a slot generation, the
// high 32 bits a slot index. A retired handle therefore misses cleanly on
// lookup instead of aliasing whatever object reuses the slot.
package registry

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownHandle is returned for handles this registry never issued.
	ErrUnknownHandle = errors.New("registry: unknown handle")

	// ErrRetiredHandle is returned for handles whose object has been retired
	// or destroyed. A second Destroy reports this and is otherwise a no-op.
	ErrRetiredHandle = errors.New("registry: handle already retired")
)

// Handle is the registry's stable identity for one live object. The host
// never sees a Handle directly; the ABI layer embeds it behind the object's
// dispatch-table pointer.
type Handle uint64

func (h Handle) index() uint32      { return uint32(h >> 32) }
func (h Handle) generation() uint32 { return uint32(h) }

func (h Handle) String() string {
	return fmt.Sprintf("%d.%d", h.index(), h.generation())
}

// Entry is the bridge state for one live handle. Exactly one Entry exists
// per handle; the registry is its sole owner.
//
// Two locks with distinct jobs live here. mu serializes driver-code calls on
// this object (host update and management threads may race). gate guards the
// retired flag and the in-flight count so destruction can drain without ever
// blocking unrelated objects.
type Entry struct {
	handle Handle

	// mu serializes calls into the wrapped implementation. Callers must not
	// hold it across outbound host callbacks.
	mu sync.Mutex

	gate     sync.Mutex
	inflight sync.WaitGroup
	retired  bool

	// Value is the payload owned by this entry, set once at Add.
	Value any
}

// Handle returns the handle this entry was issued under.
func (e *Entry) Handle() Handle { return e.handle }

// Lock takes the per-object call lock.
func (e *Entry) Lock() { e.mu.Lock() }

// Unlock releases the per-object call lock.
func (e *Entry) Unlock() { e.mu.Unlock() }

// acquire marks a call in flight. It fails once the entry is retired.
func (e *Entry) acquire() bool {
	e.gate.Lock()
	defer e.gate.Unlock()
	if e.retired {
		return false
	}
	e.inflight.Add(1)
	return true
}

// Release marks the end of a call started by Acquire.
func (e *Entry) Release() {
	e.inflight.Done()
}

// retire flips the entry to retired. Reports false if it already was.
func (e *Entry) retire() bool {
	e.gate.Lock()
	defer e.gate.Unlock()
	if e.retired {
		return false
	}
	e.retired = true
	return true
}

type slot struct {
	gen   uint32
	entry *Entry
}

// Registry issues handles and resolves them back to entries. The zero value
// is not usable; call New.
type Registry struct {
	mu    sync.RWMutex
	slots []*slot
	free  []uint32
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Add binds a fresh handle to value and returns it.
func (r *Registry) Add(value any) (Handle, *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var idx uint32
	if n := len(r.free); n > 0 {
		idx = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		idx = uint32(len(r.slots))
		r.slots = append(r.slots, &slot{gen: 1})
	}

	s := r.slots[idx]
	h := Handle(uint64(idx)<<32 | uint64(s.gen))
	s.entry = &Entry{handle: h, Value: value}
	return h, s.entry
}

// Acquire resolves a handle and marks a call in flight on its entry. Every
// successful Acquire must be paired with Entry.Release. Fails closed:
// unknown and stale handles resolve to errors, never to another object.
func (r *Registry) Acquire(h Handle) (*Entry, error) {
	r.mu.RLock()
	idx := h.index()
	if int(idx) >= len(r.slots) {
		r.mu.RUnlock()
		return nil, ErrUnknownHandle
	}
	s := r.slots[idx]
	e := s.entry
	gen := s.gen
	r.mu.RUnlock()

	if e == nil || gen != h.generation() {
		return nil, ErrRetiredHandle
	}
	if !e.acquire() {
		return nil, ErrRetiredHandle
	}
	return e, nil
}

// Peek resolves a handle without marking a call in flight. For inspection
// paths (listings, diagnostics) only.
func (r *Registry) Peek(h Handle) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := h.index()
	if int(idx) >= len(r.slots) {
		return nil, ErrUnknownHandle
	}
	s := r.slots[idx]
	if s.entry == nil || s.gen != h.generation() {
		return nil, ErrRetiredHandle
	}
	return s.entry, nil
}

// Destroy retires the handle, drains calls already in flight, and releases
// the entry. A second Destroy of the same handle returns ErrRetiredHandle
// and changes nothing. Destroy never runs while a thunk still holds the
// entry: the drain barrier waits them out first.
func (r *Registry) Destroy(h Handle) error {
	e, err := r.Peek(h)
	if err != nil {
		return err
	}
	if !e.retire() {
		return ErrRetiredHandle
	}

	// Quiescence: no new calls can acquire now; wait out the ones in flight.
	e.inflight.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slots[h.index()]
	if s.entry == e {
		s.entry = nil
		s.gen++
		if s.gen == 0 {
			s.gen = 1 // generation 0 is never issued, even after wraparound
		}
		r.free = append(r.free, h.index())
	}
	return nil
}

// Len reports the number of live entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.slots {
		if s.entry != nil {
			n++
		}
	}
	return n
}

// Range calls fn for every live entry until fn returns false.
func (r *Registry) Range(fn func(h Handle, e *Entry) bool) {
	r.mu.RLock()
	live := make([]*Entry, 0, len(r.slots))
	for _, s := range r.slots {
		if s.entry != nil {
			live = append(live, s.entry)
		}
	}
	r.mu.RUnlock()

	for _, e := range live {
		if !fn(e.handle, e) {
			return
		}
	}
}
