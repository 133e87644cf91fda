package bufferpool

import (
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

var _ Cache = (*RistrettoCache)(nil)

// RistrettoCache is a Cache on top of ristretto. Every record costs 1, so
// capacity bounds the number of cached records.
type RistrettoCache struct {
	c *ristretto.Cache[int64, []byte]
}

func NewRistrettoCache(capacity int) (*RistrettoCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := ristretto.NewCache(&ristretto.Config[int64, []byte]{
		NumCounters: int64(capacity) * 10,
		MaxCost:     int64(capacity),
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("bufferpool: new ristretto cache: %w", err)
	}
	return &RistrettoCache{c: c}, nil
}

func (r *RistrettoCache) Get(pos int64) ([]byte, bool) {
	rec, ok := r.c.Get(pos)
	if !ok {
		return nil, false
	}
	return append([]byte(nil), rec...), true
}

// Put drops any previous record before admitting the new one and waits for
// ristretto's buffers to drain, so a following Get never observes stale bytes.
func (r *RistrettoCache) Put(pos int64, rec []byte) {
	r.c.Del(pos)
	r.c.Set(pos, append([]byte(nil), rec...), 1)
	r.c.Wait()
}

func (r *RistrettoCache) Invalidate(pos int64) {
	r.c.Del(pos)
	r.c.Wait()
}

func (r *RistrettoCache) Close() {
	r.c.Close()
}
