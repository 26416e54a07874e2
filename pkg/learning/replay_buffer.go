package learning

import (
	"errors"
	"fmt"

	"github.com/casperlundberg/task-offloading-orchestrator/pkg/policy"
)

// ErrInsufficientSamples is returned when a sample larger than the buffer is requested
var ErrInsufficientSamples = errors.New("not enough experiences in replay buffer")

// ReplayBuffer is a bounded FIFO store of experiences.
// Once full, each Add evicts the oldest entry.
type ReplayBuffer struct {
	items    []Experience
	next     int
	capacity int
	rand     policy.Rand
}

// NewReplayBuffer creates a buffer with the given capacity
func NewReplayBuffer(capacity int, rng policy.Rand) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &ReplayBuffer{
		items:    make([]Experience, 0, capacity),
		capacity: capacity,
		rand:     rng,
	}
}

// Add stores an experience
func (rb *ReplayBuffer) Add(exp Experience) {
	if len(rb.items) < rb.capacity {
		rb.items = append(rb.items, exp)
		return
	}
	rb.items[rb.next] = exp
	rb.next = (rb.next + 1) % rb.capacity
}

// Len returns the number of stored experiences
func (rb *ReplayBuffer) Len() int {
	return len(rb.items)
}

// Capacity returns the maximum number of stored experiences
func (rb *ReplayBuffer) Capacity() int {
	return rb.capacity
}

// Sample draws n experiences uniformly without replacement
func (rb *ReplayBuffer) Sample(n int) ([]Experience, error) {
	if n > len(rb.items) {
		return nil, fmt.Errorf("sample %d of %d: %w", n, len(rb.items), ErrInsufficientSamples)
	}
	perm := rb.rand.Perm(len(rb.items))
	out := make([]Experience, n)
	for i := 0; i < n; i++ {
		out[i] = rb.items[perm[i]]
	}
	return out, nil
}

// Oldest returns the experiences in insertion order
func (rb *ReplayBuffer) Oldest() []Experience {
	out := make([]Experience, 0, len(rb.items))
	out = append(out, rb.items[rb.next:]...)
	out = append(out, rb.items[:rb.next]...)
	return out
}
