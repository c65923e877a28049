package fragment

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultCoalesceTimeout bounds a shared fetch when Coalesce is given no
// timeout.
const DefaultCoalesceTimeout = 30 * time.Second

type coalesced struct {
	src     Source
	timeout time.Duration
	group   singleflight.Group
}

// Coalesce wraps src so that concurrent fetches of the same key share a
// single call. The shared call is not cancelled with any one caller; it
// is bounded by timeout instead. A caller whose context ends stops
// waiting and gets the context error.
func Coalesce(src Source, timeout time.Duration) Source {
	if timeout <= 0 {
		timeout = DefaultCoalesceTimeout
	}
	return &coalesced{src: src, timeout: timeout}
}

// Fetch implements Source.
func (c *coalesced) Fetch(ctx context.Context, key string) ([]byte, error) {
	ch := c.group.DoChan(key, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.src.Fetch(shared, key)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// Each caller gets its own copy.
		body, _ := res.Val.([]byte)
		return append([]byte(nil), body...), nil
	}
}
