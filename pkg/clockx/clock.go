package clockx

// Clock implements CLOCK (second-chance) replacement over a fixed number of slots.
// Every occupied slot is a candidate; there is no pinning because cached
// records are copied out on every read.
type Clock struct {
	ref     []bool
	present []bool
	hand    int
	size    int // number of occupied slots
}

func New(capacity int) *Clock {
	if capacity <= 0 {
		capacity = 1
	}
	return &Clock{
		ref:     make([]bool, capacity),
		present: make([]bool, capacity),
	}
}

func (c *Clock) Capacity() int { return len(c.ref) }

// Touch marks slot as occupied and recently accessed.
func (c *Clock) Touch(id int) {
	if id < 0 || id >= len(c.ref) {
		return
	}
	if !c.present[id] {
		c.present[id] = true
		c.size++
	}
	c.ref[id] = true
}

// Evict returns victim slot id and ok flag. The victim stops being tracked.
func (c *Clock) Evict() (id int, ok bool) {
	n := len(c.ref)
	if c.size == 0 {
		return -1, false
	}

	// Two sweeps always find a victim: the first clears every ref bit.
	for range 2 * n {
		idx := c.hand
		c.hand = (c.hand + 1) % n

		if !c.present[idx] {
			continue
		}
		if c.ref[idx] {
			c.ref[idx] = false
			continue
		}
		c.present[idx] = false
		c.size--
		return idx, true
	}

	return -1, false
}

// Remove stops tracking slot id.
func (c *Clock) Remove(id int) {
	if id < 0 || id >= len(c.ref) || !c.present[id] {
		return
	}
	c.present[id] = false
	c.ref[id] = false
	c.size--
}

func (c *Clock) Size() int { return c.size }
