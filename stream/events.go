package stream

import (
	"slices"
	"sync/atomic"
)

// ListenerID identifies a registered listener. IDs are unique across all
// streams, so Off can be called on whichever stream the listener was added to.
type ListenerID uint64

var listenerSeq atomic.Uint64

type listener[F any] struct {
	id   ListenerID
	fn   F
	once bool
}

// listenerSet is an ordered list of callbacks for one event.
type listenerSet[F any] struct {
	entries []listener[F]
}

func (s *listenerSet[F]) add(fn F, once bool) ListenerID {
	id := ListenerID(listenerSeq.Add(1))
	s.entries = append(s.entries, listener[F]{id: id, fn: fn, once: once})
	return id
}

func (s *listenerSet[F]) index(id ListenerID) int {
	return slices.IndexFunc(s.entries, func(l listener[F]) bool { return l.id == id })
}

func (s *listenerSet[F]) remove(id ListenerID) bool {
	idx := s.index(id)
	if idx < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, idx, idx+1)
	return true
}

func (s *listenerSet[F]) len() int { return len(s.entries) }

func (s *listenerSet[F]) clear() { s.entries = nil }

// emit calls every listener registered at the time of the call. Listeners
// added during dispatch wait for the next emission; listeners removed during
// dispatch are skipped.
func (s *listenerSet[F]) emit(call func(F)) {
	if len(s.entries) == 0 {
		return
	}
	snapshot := slices.Clone(s.entries)
	for _, l := range snapshot {
		idx := s.index(l.id)
		if idx < 0 {
			continue
		}
		if l.once {
			s.entries = slices.Delete(s.entries, idx, idx+1)
		}
		call(l.fn)
	}
}

func callVoid(fn func()) { fn() }
