package model

import "time"

// DecisionCacheEntry is the cached form of a decision plus its expiry.
type DecisionCacheEntry struct {
	Decision  Decision  `json:"decision"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (e *DecisionCacheEntry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}
