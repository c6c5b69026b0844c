// Package catalog mirrors server-side record lists in memory and keeps them
// consistent with create, update and delete results.
package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vidtube/client/internal/apperrors"
	"github.com/vidtube/client/internal/uistate"
)

// Keyed is implemented by records with a server-assigned id.
type Keyed interface {
	Key() string
}

// Slot names one cached list.
type Slot int

const (
	// SlotAll holds the full list.
	SlotAll Slot = iota
	// SlotMine holds the records owned by the signed-in user.
	SlotMine

	slotCount
)

func (s Slot) String() string {
	switch s {
	case SlotAll:
		return "all"
	case SlotMine:
		return "mine"
	default:
		return "unknown"
	}
}

// ParseSlot maps "all" or "mine" to a Slot.
func ParseSlot(name string) (Slot, error) {
	switch name {
	case "all", "":
		return SlotAll, nil
	case "mine":
		return SlotMine, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSlot, name)
}

// ErrUnknownSlot is returned by ParseSlot for names other than all and mine.
var ErrUnknownSlot = errors.New("unknown catalog slot")

// Ticket identifies one load of a slot. Results carrying an outdated ticket
// are discarded.
type Ticket struct {
	slot Slot
	gen  uint64
}

// Slot returns the slot the ticket was issued for.
func (t Ticket) Slot() Slot { return t.slot }

type list[T Keyed] struct {
	items  []T
	loaded bool
	failed string
	gen    uint64
}

// Store keeps one list per slot. It is safe for concurrent use.
type Store[T Keyed] struct {
	logger *slog.Logger

	mu    sync.RWMutex
	slots [slotCount]list[T]
}

// NewStore returns an empty store with every slot in the loading state.
func NewStore[T Keyed](logger *slog.Logger) *Store[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store[T]{logger: logger}
}

// Begin starts a load of slot and invalidates any load still in flight.
func (s *Store[T]) Begin(slot Slot) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots[slot].gen++
	return Ticket{slot: slot, gen: s.slots[slot].gen}
}

// Commit replaces the slot's list with items when t is still current. The
// whole list is overwritten; duplicate ids keep their first position and
// last value.
func (s *Store[T]) Commit(t Ticket, items []T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &s.slots[t.slot]
	if l.gen != t.gen {
		s.logger.Debug("discarding stale load", "slot", t.slot.String())
		return false
	}
	l.items = dedupe(items)
	l.loaded = true
	l.failed = ""
	return true
}

// Fail records a failed load. A slot that already holds a good list keeps
// it; only a slot that never loaded turns into the failed state.
func (s *Store[T]) Fail(t Ticket, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := &s.slots[t.slot]
	if l.gen != t.gen {
		return false
	}
	if !l.loaded {
		l.failed = apperrors.Message(err)
	}
	return true
}

// Detach invalidates outstanding loads of slot without touching its list,
// for when the view that started them has gone away.
func (s *Store[T]) Detach(slot Slot) {
	s.mu.Lock()
	s.slots[slot].gen++
	s.mu.Unlock()
}

// Reset empties slot and returns it to the loading state.
func (s *Store[T]) Reset(slot Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.slots[slot].gen + 1
	s.slots[slot] = list[T]{gen: gen}
}

// Replace overwrites slot with items as a load that cannot go stale.
func (s *Store[T]) Replace(slot Slot, items []T) {
	s.Commit(s.Begin(slot), items)
}

// ApplyCreate adds rec to every loaded slot, replacing an entry with the
// same id. With nothing loaded yet it goes to SlotAll.
func (s *Store[T]) ApplyCreate(rec T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := false
	for i := range s.slots {
		if !s.slots[i].loaded {
			continue
		}
		s.slots[i].items = upsert(s.slots[i].items, rec)
		applied = true
	}
	if !applied {
		s.slots[SlotAll].items = upsert(s.slots[SlotAll].items, rec)
	}
}

// ApplyUpdate replaces the entry whose id matches rec in every slot. It
// returns a NotFoundLocal error when no slot holds the id.
func (s *Store[T]) ApplyUpdate(rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for i := range s.slots {
		if idx := indexOf(s.slots[i].items, rec.Key()); idx >= 0 {
			s.slots[i].items[idx] = rec
			found = true
		}
	}
	if !found {
		s.logger.Warn("update for record not held locally", "id", rec.Key())
		return apperrors.NotFoundLocal("applyUpdate", rec.Key())
	}
	return nil
}

// ApplyDelete removes id from every slot. Removing an absent id is a no-op.
func (s *Store[T]) ApplyDelete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := false
	for i := range s.slots {
		if idx := indexOf(s.slots[i].items, id); idx >= 0 {
			items := s.slots[i].items
			s.slots[i].items = append(items[:idx:idx], items[idx+1:]...)
			removed = true
		}
	}
	if !removed {
		s.logger.Debug("delete for record not held locally", "id", id)
	}
	return removed
}

// Find returns the record with id from any slot.
func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.slots {
		if idx := indexOf(s.slots[i].items, id); idx >= 0 {
			return s.slots[i].items[idx], true
		}
	}
	var zero T
	return zero, false
}

// Loaded reports whether slot holds a successfully fetched list.
func (s *Store[T]) Loaded(slot Slot) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slots[slot].loaded
}

// Snapshot returns a copy of the slot's list in server order.
func (s *Store[T]) Snapshot(slot Slot) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.slots[slot].items...)
}

// View returns the slot as a load state.
func (s *Store[T]) View(slot Slot) uistate.Load[[]T] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := s.slots[slot]
	switch {
	case l.loaded:
		return uistate.Ready(append([]T(nil), l.items...))
	case l.failed != "":
		return uistate.Failed[[]T](l.failed)
	default:
		return uistate.Loading[[]T]()
	}
}

func indexOf[T Keyed](items []T, id string) int {
	for i, item := range items {
		if item.Key() == id {
			return i
		}
	}
	return -1
}

func upsert[T Keyed](items []T, rec T) []T {
	if idx := indexOf(items, rec.Key()); idx >= 0 {
		items[idx] = rec
		return items
	}
	return append(items, rec)
}

func dedupe[T Keyed](items []T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = upsert(out, item)
	}
	return out
}
