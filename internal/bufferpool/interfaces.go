package bufferpool

import (
	"errors"
	"fmt"
)

var (
	DefaultCapacity = 64

	ErrUnknownPolicy = errors.New("bufferpool: unknown cache policy")
)

// Policy selects the Cache implementation backing a node file.
type Policy string

const (
	PolicyClock     Policy = "clock"
	PolicyRistretto Policy = "ristretto"
	PolicyNone      Policy = "none"
)

// Cache holds raw node records keyed by their file position.
// The node file writes through it, so a cached record is never newer or older
// than the record on disk. Implementations copy bytes in and out.
type Cache interface {
	Get(pos int64) ([]byte, bool)
	Put(pos int64, rec []byte)
	Invalidate(pos int64)
	Close()
}

// ParsePolicy maps a config value to a Policy. The empty string means clock.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyClock, PolicyRistretto, PolicyNone:
		return p, nil
	case "":
		return PolicyClock, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// NewCache builds the Cache for policy. PolicyNone returns a nil Cache,
// which the node file treats as "no caching".
func NewCache(policy Policy, capacity int) (Cache, error) {
	switch policy {
	case PolicyClock, "":
		return NewClockCache(capacity), nil
	case PolicyRistretto:
		c, err := NewRistrettoCache(capacity)
		if err != nil {
			return nil, err
		}
		return c, nil
	case PolicyNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}
