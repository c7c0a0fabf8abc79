package sim

import (
	"mt5-gateway/src/models"
)

// -----------------------------------------------------------------------------
// barRing is a fixed-size circular buffer of generated bars.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type barRing struct {
	data     []models.MBar
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

func newBarRing(capacity int) *barRing {
	if capacity <= 0 {
		capacity = 1000 // Default reasonable size
	}

	return &barRing{
		data:     make([]models.MBar, capacity),
		capacity: capacity,
		index:    0,
		size:     0,
	}
}

// -----------------------------------------------------------------------------

// Append adds one bar, overwriting the oldest entry when full
func (rb *barRing) Append(bar models.MBar) {
	rb.data[rb.index] = bar

	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// Latest returns the n newest bars, oldest first
func (rb *barRing) Latest(n int) []models.MBar {
	if rb.size == 0 || n <= 0 {
		return []models.MBar{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MBar, count)

	// Latest data is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity

	for i := 0; i < count; i++ {
		idx := (startIdx + i) % rb.capacity
		result[i] = rb.data[idx]
	}

	return result
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *barRing) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *barRing) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *barRing) Clear() {
	rb.index = 0
	rb.size = 0
}
