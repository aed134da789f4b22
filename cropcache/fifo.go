package cropcache

import (
	"sync"

	"github.com/pathoview/viewport/geom"
	"github.com/pathoview/viewport/roi"
)

type crop struct {
	rect geom.Rect
	area *roi.Region
}

// crops is a fixed-capacity FIFO of the crops made from one area. The
// oldest insertion is overwritten first, regardless of use.
type crops struct {
	mu    sync.RWMutex
	ring  []crop
	next  int
	count int
}

func newCrops(capacity int) *crops {
	return &crops{ring: make([]crop, capacity)}
}

// find returns a crop whose rectangle contains clip. Newer crops are
// checked first since consecutive frames tend to reuse the latest one.
func (s *crops) find(clip geom.Rect) *roi.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := len(s.ring)
	for i := 1; i <= s.count; i++ {
		e := s.ring[(s.next-i+n)%n]
		if e.rect.ContainsRect(clip) {
			return e.area
		}
	}
	return nil
}

func (s *crops) add(rect geom.Rect, area *roi.Region) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring[s.next] = crop{rect: rect, area: area}
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
}

func (s *crops) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}
