package objects

import "sync"

// Selection is the set of currently selected objects. It is safe for
// concurrent use.
type Selection struct {
	mu  sync.RWMutex
	set map[*PathObject]struct{}

	listeners listeners[[]*PathObject]
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{set: make(map[*PathObject]struct{})}
}

// Set replaces the selection with objs.
func (s *Selection) Set(objs ...*PathObject) {
	s.mu.Lock()
	s.set = make(map[*PathObject]struct{}, len(objs))
	for _, o := range objs {
		s.set[o] = struct{}{}
	}
	s.mu.Unlock()
	s.listeners.call(objs)
}

// Add selects objs in addition to the current selection.
func (s *Selection) Add(objs ...*PathObject) {
	s.mu.Lock()
	for _, o := range objs {
		s.set[o] = struct{}{}
	}
	s.mu.Unlock()
	s.listeners.call(s.Objects())
}

// Remove deselects objs.
func (s *Selection) Remove(objs ...*PathObject) {
	s.mu.Lock()
	for _, o := range objs {
		delete(s.set, o)
	}
	s.mu.Unlock()
	s.listeners.call(s.Objects())
}

// Clear deselects everything.
func (s *Selection) Clear() { s.Set() }

// Contains reports whether o is selected. A nil Selection contains nothing.
func (s *Selection) Contains(o *PathObject) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.set[o]
	return ok
}

// Len returns the number of selected objects.
func (s *Selection) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.set)
}

// Objects returns the selected objects in no particular order.
func (s *Selection) Objects() []*PathObject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*PathObject, 0, len(s.set))
	for o := range s.set {
		out = append(out, o)
	}
	return out
}

// Subscribe registers fn to receive the new selection after each change.
func (s *Selection) Subscribe(fn func([]*PathObject)) (cancel func()) {
	return s.listeners.add(fn)
}
