package buffer

import (
	"sync/atomic"
	"time"
)

// Statistics tracks ring usage. Counters are atomic so a metrics scraper may
// read them while the owner mutates the ring.
type Statistics struct {
	pushes      atomic.Int64
	pops        atomic.Int64
	grows       atomic.Int64
	currentSize atomic.Int64
	maxSize     atomic.Int64
	startTime   time.Time
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{startTime: time.Now()}
}

// Push records an item entering the ring.
func (s *Statistics) Push() { s.pushes.Add(1) }

// Pop records an item leaving the ring.
func (s *Statistics) Pop() { s.pops.Add(1) }

// Grow records a reallocation of the backing slice.
func (s *Statistics) Grow() { s.grows.Add(1) }

// UpdateSize updates the current size and the high-water size.
func (s *Statistics) UpdateSize(size int64) {
	s.currentSize.Store(size)
	for {
		current := s.maxSize.Load()
		if size <= current || s.maxSize.CompareAndSwap(current, size) {
			return
		}
	}
}

// Pushes returns the total number of pushed items.
func (s *Statistics) Pushes() int64 { return s.pushes.Load() }

// Pops returns the total number of popped items.
func (s *Statistics) Pops() int64 { return s.pops.Load() }

// Grows returns how many times the ring reallocated.
func (s *Statistics) Grows() int64 { return s.grows.Load() }

// CurrentSize returns the current number of items.
func (s *Statistics) CurrentSize() int64 { return s.currentSize.Load() }

// MaxSize returns the maximum number of items the ring has held.
func (s *Statistics) MaxSize() int64 { return s.maxSize.Load() }

// StatsSummary is a snapshot of all statistics.
type StatsSummary struct {
	Pushes      int64         `json:"pushes"`
	Pops        int64         `json:"pops"`
	Grows       int64         `json:"grows"`
	CurrentSize int64         `json:"current_size"`
	MaxSize     int64         `json:"max_size"`
	Uptime      time.Duration `json:"uptime"`
}

// Summary returns a snapshot of all statistics.
func (s *Statistics) Summary() StatsSummary {
	return StatsSummary{
		Pushes:      s.Pushes(),
		Pops:        s.Pops(),
		Grows:       s.Grows(),
		CurrentSize: s.CurrentSize(),
		MaxSize:     s.MaxSize(),
		Uptime:      time.Since(s.startTime),
	}
}
