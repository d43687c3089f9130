package ptr

import (
	"net"
	"strings"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// DefaultTTL is how long a resolved name, or a failed lookup, is kept before
// the address is looked up again.
const DefaultTTL = 10 * time.Minute

// PtrManager handles PTR lookups with TTL caching
type PtrManager struct {
	cache      *ttlcache.Cache[string, string]
	lookupFunc func(string) ([]string, error)
	retries    int
	retryDelay time.Duration
}

// NewPtrManager creates a new PtrManager. A ttl of zero uses DefaultTTL.
func NewPtrManager(ttl time.Duration) *PtrManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PtrManager{
		cache:      ttlcache.New(ttlcache.WithTTL[string, string](ttl)),
		lookupFunc: net.LookupAddr,
		retries:    3,
		retryDelay: 100 * time.Millisecond,
	}
}

// normalizePTR strips the trailing dot of a fully qualified name.
func normalizePTR(name string) string {
	return strings.TrimSuffix(name, ".")
}

// RequestPTR looks up the name for ip unless it is cached or already being
// looked up. It blocks until the lookup finishes.
func (pm *PtrManager) RequestPTR(ip string) {
	// Mark as "in progress" to avoid duplicate lookups
	if _, found := pm.cache.GetOrSet(ip, ""); found {
		return
	}
	for attempt := range pm.retries {
		names, err := pm.lookupFunc(ip)
		if err == nil && len(names) > 0 {
			pm.cache.Set(ip, normalizePTR(names[0]), ttlcache.DefaultTTL)
			return
		}
		if attempt < pm.retries-1 {
			time.Sleep(pm.retryDelay)
		}
	}
}

// GetPTR retrieves the cached PTR result for the given IP address
// Returns the PTR and a boolean indicating if it was found
func (pm *PtrManager) GetPTR(ip string) (string, bool) {
	item := pm.cache.Get(ip)
	if item == nil || item.Value() == "" {
		return "", false
	}
	return item.Value(), true
}
