// Package dmc provides an implementation of the Dynamic Markov Compression algorithm.
// The DMC predictor is a finite automaton over bits whose states are cloned as evidence accumulates.
// Combined with Guazzo's arithmetic coding in package guazzo, it forms a lossless compression/decompression utility.
//
// Below is an example of using this package to compress Lincoln's Gettysburg address:
//    go run compress/main.go < testdata/gettysburg.txt > gettys.dmc
//    go run decompress/main.go < gettys.dmc > gettys.ddmc
//    diff testdata/gettysburg.txt gettys.ddmc
//
// Reference:
// G. V. Cormack and R. N. S. Horspool, Data Compression Using Dynamic Markov Modelling, The Computer Journal 30 (6), 1987.
package dmc

import (
	"go.uber.org/zap"
)

const (
	// cloneThreshold is the number of times a transition must be taken before its target may be cloned.
	cloneThreshold = 2

	// contentionThreshold is how much more often the target must have been visited from elsewhere.
	contentionThreshold = 2
)

// A Predictor is a Dynamic Markov Compression model for binary data.
// Predictor implements the arithmetic coding Model interface.
type Predictor struct {
	arena  *Arena
	cur    uint32
	resets int
	log    *zap.SugaredLogger
}

// NewPredictor returns a Predictor whose states occupy at most memSize bytes.
// ErrOutOfMemory is returned if memSize cannot hold the seed automaton.
func NewPredictor(memSize int64, log *zap.SugaredLogger) (*Predictor, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	arena, err := NewArena(memSize)
	if err != nil {
		return nil, err
	}
	log.Debugw("predictor memory", "bytes", memSize, "states", arena.Cap())
	return &Predictor{arena: arena, log: log}, nil
}

// Predict returns the probability that the next bit is one.
func (p *Predictor) Predict() float64 {
	s := &p.arena.states[p.cur]
	return float64(s.Count[1]) / (float64(s.Count[0]) + float64(s.Count[1]))
}

// Prob0 returns the probability that the next bit is zero.
func (p *Predictor) Prob0() float64 {
	s := &p.arena.states[p.cur]
	return float64(s.Count[0] / (s.Count[0] + s.Count[1]))
}

// Observe updates the automaton given that the next bit is bit.
func (p *Predictor) Observe(bit int) {
	p.Update(bit)
}

// Update counts bit in the current state, possibly cloning its successor, and moves to the successor.
func (p *Predictor) Update(bit int) {
	s := &p.arena.states[p.cur]
	next := &p.arena.states[s.Next[bit]]
	if s.Count[bit] >= cloneThreshold && next.Count[0]+next.Count[1] >= contentionThreshold+s.Count[bit] {
		if err := p.clone(s, bit); err != nil {
			p.reset("clone: " + err.Error())
			s = &p.arena.states[p.cur]
		}
	}
	s.Count[bit]++
	p.cur = s.Next[bit]

	if p.arena.Exhausted() {
		p.reset("exhausted")
	}
}

// clone splits s.Next[bit] so that the transition from s leads to a state of its own.
// The counts of the successor are shared between it and the clone in proportion to the traffic coming from s.
func (p *Predictor) clone(s *State, bit int) error {
	i, err := p.arena.TryAllocate()
	if err != nil {
		return err
	}
	next := &p.arena.states[s.Next[bit]]
	c := &p.arena.states[i]

	r := s.Count[bit] / (next.Count[0] + next.Count[1])
	c.Count[0] = next.Count[0] * r
	next.Count[0] -= c.Count[0]
	c.Count[1] = next.Count[1] * r
	next.Count[1] -= c.Count[1]
	c.Next = next.Next

	s.Next[bit] = i
	return nil
}

// Reset discards everything learnt, and restarts the automaton from its seed.
func (p *Predictor) Reset() {
	p.reset("requested")
}

func (p *Predictor) reset(reason string) {
	p.log.Infow("model reset", "reason", reason, "states", p.arena.Allocated())
	p.arena.Reset()
	p.cur = 0
	p.resets++
}

// Resets returns the number of times the automaton has been reset.
func (p *Predictor) Resets() int {
	return p.resets
}

// Arena returns the arena holding the states of the automaton.
func (p *Predictor) Arena() *Arena {
	return p.arena
}

// Current returns the index of the current state.
func (p *Predictor) Current() uint32 {
	return p.cur
}
