// Copyright © 2023 Sloan Childers
package recorder

import (
	"math"

	"github.com/metallurk/cctv/base"
)

// Ring is a fixed capacity FIFO of frames. It is not safe for concurrent use;
// the Controller serializes every access.
type Ring struct {
	frames []base.IFrame
	head   int
	size   int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{frames: make([]base.IFrame, capacity)}
}

func (x *Ring) Len() int {
	return x.size
}

func (x *Ring) Cap() int {
	return len(x.frames)
}

func (x *Ring) Full() bool {
	return x.size == len(x.frames)
}

// Push appends at the tail and reports false when the ring is full.
func (x *Ring) Push(frame base.IFrame) bool {
	if x.Full() {
		return false
	}
	x.frames[(x.head+x.size)%len(x.frames)] = frame
	x.size++
	return true
}

// Pop removes the oldest frame, nil when empty.
func (x *Ring) Pop() base.IFrame {
	if x.size == 0 {
		return nil
	}
	frame := x.frames[x.head]
	x.frames[x.head] = nil
	x.head = (x.head + 1) % len(x.frames)
	x.size--
	return frame
}

// Drain empties the ring oldest first.
func (x *Ring) Drain() []base.IFrame {
	out := make([]base.IFrame, 0, x.size)
	for x.size > 0 {
		out = append(out, x.Pop())
	}
	return out
}

// Capacity is the pre-roll length in frames for a source rate.
func Capacity(rate float64, seconds int) int {
	capacity := int(math.Ceil(rate * float64(seconds)))
	if capacity < 1 {
		return 1
	}
	return capacity
}
