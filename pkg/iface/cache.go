package iface

import (
	"time"

	"github.com/jellydator/ttlcache/v3"
)

const cacheKey = "interfaces"

// Cached remembers the interfaces of another Directory for a fixed time, so
// repeated queries do not re-enumerate the host every time.
type Cached struct {
	dir   Directory
	cache *ttlcache.Cache[string, []Descriptor]
}

// NewCached wraps dir. Results are reused for ttl after they are read.
func NewCached(dir Directory, ttl time.Duration) *Cached {
	return &Cached{
		dir: dir,
		cache: ttlcache.New(
			ttlcache.WithTTL[string, []Descriptor](ttl),
			ttlcache.WithDisableTouchOnHit[string, []Descriptor](),
		),
	}
}

func (c *Cached) Interfaces() ([]Descriptor, error) {
	if item := c.cache.Get(cacheKey); item != nil {
		return item.Value(), nil
	}
	descs, err := c.dir.Interfaces()
	if err != nil {
		return nil, err
	}
	c.cache.Set(cacheKey, descs, ttlcache.DefaultTTL)
	return descs, nil
}
