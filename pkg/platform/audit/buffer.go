package audit

import "sync"

// buffered pairs an entry with a monotonically increasing sequence number so
// the retry loop can acknowledge exactly what it wrote even if Enqueue has
// dropped older entries in between.
type buffered struct {
	seq   uint64
	entry Entry
}

// RingBuffer is a bounded, thread-safe fallback queue for entries the store
// could not accept. When full, the oldest entries are dropped.
type RingBuffer struct {
	mu       sync.Mutex
	items    []buffered
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int
	nextSeq  uint64

	dropped int64
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBuffer{
		items:    make([]buffered, capacity),
		capacity: capacity,
	}
}

// Enqueue adds an entry, dropping the oldest if necessary.
// Returns false when an older entry was dropped to make room.
func (b *RingBuffer) Enqueue(entry Entry) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := true
	if b.count >= b.capacity {
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		kept = false
	}

	b.nextSeq++
	b.items[b.head] = buffered{seq: b.nextSeq, entry: entry}
	b.head = (b.head + 1) % b.capacity
	b.count++
	return kept
}

// Peek returns up to n of the oldest entries without removing them.
func (b *RingBuffer) Peek(n int) []buffered {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	out := make([]buffered, n)
	for i := 0; i < n; i++ {
		out[i] = b.items[(b.tail+i)%b.capacity]
	}
	return out
}

// Ack removes every entry with a sequence number up to and including seq.
func (b *RingBuffer) Ack(seq uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count > 0 && b.items[b.tail].seq <= seq {
		b.items[b.tail] = buffered{}
		b.tail = (b.tail + 1) % b.capacity
		b.count--
	}
}

// Len returns the current number of buffered entries.
func (b *RingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of entries lost to overflow.
func (b *RingBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}
