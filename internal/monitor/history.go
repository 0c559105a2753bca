package monitor

import (
	"sort"
	"sync"
	"time"
)

const (
	// DefaultMaxPoints is the number of points retained per metric.
	DefaultMaxPoints = 100

	// DefaultMinInterval is the minimum spacing between retained points.
	// Dashboards poll every 5s; the slack absorbs jitter in that cadence.
	DefaultMinInterval = 4500 * time.Millisecond
)

// Point is one retained sample.
type Point struct {
	TimestampMillis int64   `json:"timestampMillis" yaml:"timestampMillis"`
	Value           float64 `json:"value" yaml:"value"`
}

// HistoryStore retains a bounded, self-throttled series per metric key for a
// single connection. It is safe for concurrent use.
type HistoryStore struct {
	mu          sync.RWMutex
	maxPoints   int
	minInterval time.Duration
	series      map[string]*series
	dropped     bool
}

// series is one metric's ring buffer. Its mutex serializes the
// check-last-timestamp-then-append sequence. lastAt keeps the accepted
// time.Time so the throttle can use its monotonic reading.
type series struct {
	mu     sync.Mutex
	buf    *ringBuffer
	lastAt time.Time
}

// ringBuffer is a fixed-size circular buffer of points.
type ringBuffer struct {
	data  []Point
	head  int
	count int
	size  int
}

// NewHistoryStore creates a store. Non-positive arguments fall back to
// DefaultMaxPoints and DefaultMinInterval.
func NewHistoryStore(maxPoints int, minInterval time.Duration) *HistoryStore {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPoints
	}
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &HistoryStore{
		maxPoints:   maxPoints,
		minInterval: minInterval,
		series:      make(map[string]*series),
	}
}

// Record appends (now, value) to the series for key unless the series' last
// point is younger than the minimum interval. The value is stored as given.
// Reports whether the point was appended.
//
// When both times carry a monotonic clock reading (anything from time.Now),
// the interval is measured on it, so a backwards wall-clock step does not
// stall recording. The stored timestamp is still wall-clock millis and can
// go backwards across such a step.
func (h *HistoryStore) Record(key string, value float64, now time.Time) bool {
	s := h.getOrCreate(key)
	if s == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buf.last(); ok && now.Sub(s.lastAt) < h.minInterval {
		return false
	}
	s.buf.push(Point{TimestampMillis: now.UnixMilli(), Value: value})
	s.lastAt = now
	return true
}

// Series returns a copy of the retained points for key, oldest first.
// Unknown keys yield an empty slice.
func (h *HistoryStore) Series(key string) []Point {
	h.mu.RLock()
	s, ok := h.series[key]
	h.mu.RUnlock()
	if !ok {
		return []Point{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.getAll()
}

// Ensure creates an empty series for key if none exists.
func (h *HistoryStore) Ensure(key string) {
	h.getOrCreate(key)
}

// Has reports whether a series exists for key.
func (h *HistoryStore) Has(key string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.series[key]
	return ok
}

// Keys returns the existing series keys in sorted order.
func (h *HistoryStore) Keys() []string {
	h.mu.RLock()
	keys := make([]string, 0, len(h.series))
	for k := range h.series {
		keys = append(keys, k)
	}
	h.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Drop discards every series. The store ignores writes afterwards, so a
// fetch cycle that outlives its connection cannot repopulate it.
func (h *HistoryStore) Drop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.series = make(map[string]*series)
	h.dropped = true
}

// getOrCreate returns the series for key, creating it if needed.
// Returns nil once the store has been dropped.
func (h *HistoryStore) getOrCreate(key string) *series {
	h.mu.RLock()
	s, ok := h.series[key]
	dropped := h.dropped
	h.mu.RUnlock()
	if ok {
		return s
	}
	if dropped {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.dropped {
		return nil
	}
	if s, ok := h.series[key]; ok {
		return s
	}
	s = &series{buf: newRingBuffer(h.maxPoints)}
	h.series[key] = s
	return s
}

// newRingBuffer creates a new ring buffer with the specified capacity.
func newRingBuffer(size int) *ringBuffer {
	return &ringBuffer{
		data: make([]Point, size),
		size: size,
	}
}

// push adds a point, overwriting the oldest once full.
func (r *ringBuffer) push(p Point) {
	r.data[r.head] = p
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
}

// last returns the most recent point.
func (r *ringBuffer) last() (Point, bool) {
	if r.count == 0 {
		return Point{}, false
	}
	return r.data[(r.head-1+r.size)%r.size], true
}

// getLast returns the last count points in chronological order (oldest first).
func (r *ringBuffer) getLast(count int) []Point {
	if count > r.count {
		count = r.count
	}
	if count <= 0 {
		return []Point{}
	}

	result := make([]Point, count)

	// head is the next write position, so the newest point is at head-1.
	start := (r.head - count + r.size) % r.size
	for i := 0; i < count; i++ {
		result[i] = r.data[(start+i)%r.size]
	}
	return result
}

// getAll returns all stored points in chronological order.
func (r *ringBuffer) getAll() []Point {
	return r.getLast(r.count)
}
