package emu

import (
	"slices"
	"sync"
)

// Breakpoints is a set of instruction addresses. It is safe for concurrent
// use so that a front end may edit it while a run is in progress.
type Breakpoints struct {
	mu    sync.RWMutex
	addrs map[uint32]struct{}
}

// NewBreakpoints creates a breakpoint set holding addrs.
func NewBreakpoints(addrs ...uint32) *Breakpoints {
	b := &Breakpoints{addrs: make(map[uint32]struct{})}
	for _, a := range addrs {
		b.addrs[a] = struct{}{}
	}
	return b
}

// Add sets a breakpoint at addr.
func (b *Breakpoints) Add(addr uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addrs[addr] = struct{}{}
}

// Remove clears the breakpoint at addr, if any.
func (b *Breakpoints) Remove(addr uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.addrs, addr)
}

// Toggle flips the breakpoint at addr and reports whether it is now set.
func (b *Breakpoints) Toggle(addr uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.addrs[addr]; ok {
		delete(b.addrs, addr)
		return false
	}
	b.addrs[addr] = struct{}{}
	return true
}

// Has reports whether a breakpoint is set at addr.
func (b *Breakpoints) Has(addr uint32) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.addrs[addr]
	return ok
}

// List returns the breakpoint addresses in ascending order.
func (b *Breakpoints) List() []uint32 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]uint32, 0, len(b.addrs))
	for a := range b.addrs {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
