package scraper

import (
	"strconv"
	"time"

	"autoriascout/services/cache"
)

// RateGuard remembers that the site rate-limited us and blocks further runs
// for a cooldown window. The block key survives process restarts when backed
// by memcache, so a rescheduled run inside the window ends immediately
// instead of hammering the site again.
type RateGuard struct {
	cache cache.Cache
	key   string
	block time.Duration
}

// NewRateGuard creates a guard with the given cooldown window.
func NewRateGuard(c cache.Cache, block time.Duration) *RateGuard {
	return &RateGuard{
		cache: c,
		key:   "autoria_rate_limited",
		block: block,
	}
}

// Blocked reports whether a cooldown window is currently active.
func (g *RateGuard) Blocked() bool {
	if g == nil || g.cache == nil {
		return false
	}
	_, err := g.cache.Get(g.key)
	return err == nil
}

// Block starts a cooldown window.
func (g *RateGuard) Block() {
	if g == nil || g.cache == nil {
		return
	}
	seconds := strconv.Itoa(int(g.block / time.Second))
	g.cache.Set(g.key, []byte(seconds), g.block)
}
