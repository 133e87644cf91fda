package bufferpool

import (
	"sync"

	"github.com/tuannm99/novaindex/pkg/clockx"
)

type Frame struct {
	Pos int64
	Rec []byte
}

var _ Cache = (*ClockCache)(nil)

// ClockCache keeps a fixed number of frames and picks victims with CLOCK.
type ClockCache struct {
	mu        sync.Mutex
	frames    []*Frame      // len == capacity, nil == free slot
	pageTable map[int64]int // position -> frame index

	replacer *clockx.Clock
}

func NewClockCache(capacity int) *ClockCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &ClockCache{
		frames:    make([]*Frame, capacity),
		pageTable: make(map[int64]int, capacity),
		replacer:  clockx.New(capacity),
	}
}

func (c *ClockCache) Get(pos int64) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.pageTable[pos]
	if !ok {
		return nil, false
	}
	f := c.frames[idx]
	if f == nil {
		// Inconsistent: mapping exists but frame is nil -> cleanup
		delete(c.pageTable, pos)
		return nil, false
	}
	c.replacer.Touch(idx)
	return append([]byte(nil), f.Rec...), true
}

func (c *ClockCache) Put(pos int64, rec []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 1) HIT: overwrite in place
	if idx, ok := c.pageTable[pos]; ok && c.frames[idx] != nil {
		f := c.frames[idx]
		f.Rec = append(f.Rec[:0], rec...)
		c.replacer.Touch(idx)
		return
	}

	// 2) Free slot
	idx := -1
	for i, f := range c.frames {
		if f == nil {
			idx = i
			break
		}
	}

	// 3) Evict
	if idx == -1 {
		victim, ok := c.replacer.Evict()
		if !ok {
			return
		}
		if f := c.frames[victim]; f != nil {
			delete(c.pageTable, f.Pos)
		}
		idx = victim
	}

	c.frames[idx] = &Frame{Pos: pos, Rec: append([]byte(nil), rec...)}
	c.pageTable[pos] = idx
	c.replacer.Touch(idx)
}

func (c *ClockCache) Invalidate(pos int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, ok := c.pageTable[pos]
	if !ok {
		return
	}
	c.frames[idx] = nil
	delete(c.pageTable, pos)
	c.replacer.Remove(idx)
}

// Len returns how many records are cached.
func (c *ClockCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pageTable)
}

func (c *ClockCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.frames)
	clear(c.pageTable)
	c.replacer = clockx.New(len(c.frames))
}
