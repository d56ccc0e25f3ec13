package dmc

import (
	"math"

	"github.com/pkg/errors"
)

const (
	// NumContexts is the number of byte contexts of the seed automaton.
	NumContexts = 256

	// ContextSize is the number of states in one context: a complete binary tree consuming 8 bits.
	ContextSize = 255

	// SeedSize is the number of states of the seed automaton.
	SeedSize = NumContexts * ContextSize

	// StateSize is the number of bytes a State occupies in the arena.
	StateSize = 16

	// ResetMargin is the number of states kept free below the capacity of an arena.
	// A byte may clone at most one state per bit.
	ResetMargin = 8

	// leafStart is the index of the first state, within a context, whose successors are context roots.
	leafStart = 127

	initCount = 0.2
)

// ErrOutOfMemory is returned when a memory budget cannot hold the seed automaton.
var ErrOutOfMemory = errors.New("dmc: insufficient predictor memory")

var errArenaExhausted = errors.New("dmc: arena exhausted")

// A State is a node of the Markov automaton.
type State struct {
	Count [2]float32 // occurrences of a zero and a one bit in this state
	Next  [2]uint32  // index of the successor after a zero and a one bit
}

// An Arena holds the states of a predictor.
// States are addressed by their index, and are only ever reclaimed all at once by Reset.
type Arena struct {
	states []State
	cursor uint32
	limit  uint32
}

// NewArena returns an arena holding as many states as fit in memSize bytes, initialized to the seed automaton.
// ErrOutOfMemory is returned if memSize cannot hold the seed automaton, or cannot be allocated.
func NewArena(memSize int64) (*Arena, error) {
	capacity := memSize / StateSize
	if capacity < SeedSize+ResetMargin {
		return nil, errors.Wrapf(ErrOutOfMemory, "%d bytes hold %d states, need %d", memSize, max64(capacity, 0), SeedSize+ResetMargin)
	}
	// States are addressed by uint32.
	if capacity > math.MaxUint32 {
		capacity = math.MaxUint32
	}
	states, err := allocStates(capacity)
	if err != nil {
		return nil, err
	}

	a := &Arena{states: states, limit: uint32(capacity - ResetMargin)}
	a.Reset()
	return a, nil
}

func allocStates(n int64) (states []State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Wrapf(ErrOutOfMemory, "allocating %d states: %v", n, r)
		}
	}()
	return make([]State, n), nil
}

// Reset rebuilds the seed automaton in place, and discards every cloned state.
//
// The seed holds 256 contexts, each a binary tree of depth 8 in heap order:
// state i of a context moves to state 2i+1 on a zero bit and 2i+2 on a one bit.
// The 128 states on the last level lead to the root of a context determined by the byte just read,
// state i going to context i+1 on a zero bit and to context i-127 on a one bit.
func (a *Arena) Reset() {
	for j := 0; j < NumContexts; j++ {
		base := j * ContextSize
		for i := 0; i < leafStart; i++ {
			a.states[base+i] = State{
				Count: [2]float32{initCount, initCount},
				Next:  [2]uint32{uint32(base + 2*i + 1), uint32(base + 2*i + 2)},
			}
		}
		for i := leafStart; i < ContextSize; i++ {
			a.states[base+i] = State{
				Count: [2]float32{initCount, initCount},
				Next:  [2]uint32{uint32((i + 1) * ContextSize), uint32((i - leafStart) * ContextSize)},
			}
		}
	}
	a.cursor = SeedSize
}

// TryAllocate returns the index of a free state.
// The contents of the state are unspecified.
func (a *Arena) TryAllocate() (uint32, error) {
	if int(a.cursor) >= len(a.states) {
		return 0, errArenaExhausted
	}
	i := a.cursor
	a.cursor++
	return i, nil
}

// Exhausted reports whether the arena has used up its reset margin.
func (a *Arena) Exhausted() bool {
	return a.cursor > a.limit
}

// State returns the state at index i.
// The pointer is invalidated by Reset.
func (a *Arena) State(i uint32) *State {
	return &a.states[i]
}

// Allocated returns the number of states in use, the seed automaton included.
func (a *Arena) Allocated() int {
	return int(a.cursor)
}

// Cap returns the number of states the arena can hold.
func (a *Arena) Cap() int {
	return len(a.states)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
