package models

import "time"

// CacheLevel identifies which store level answered a lookup
type CacheLevel string

const (
	CacheLevelL1   CacheLevel = "L1"
	CacheLevelL2   CacheLevel = "L2"
	CacheLevelMiss CacheLevel = "MISS"
)

// CacheStatus describes how a lookup was answered
type CacheStatus string

const (
	CacheStatusHit  CacheStatus = "HIT"
	CacheStatusMiss CacheStatus = "MISS"
)

// CacheEntry is a stored value together with its lifetime.
// Timestamps are unix milliseconds; ExpiresAt == 0 means the entry never expires.
type CacheEntry struct {
	Data      []byte `json:"data"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewCacheEntry builds an entry written at now that lives for ttl
func NewCacheEntry(data []byte, now time.Time, ttl time.Duration) *CacheEntry {
	entry := &CacheEntry{
		Data:      data,
		CreatedAt: now.UnixMilli(),
	}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl).UnixMilli()
	}
	return entry
}

// IsExpiredAt reports whether the entry is no longer servable at now
func (e *CacheEntry) IsExpiredAt(now time.Time) bool {
	return e.ExpiresAt > 0 && now.UnixMilli() >= e.ExpiresAt
}

// RemainingTTL returns the lifetime left at now.
// Zero is returned for entries without expiry.
func (e *CacheEntry) RemainingTTL(now time.Time) time.Duration {
	if e.ExpiresAt == 0 {
		return 0
	}
	remaining := time.Duration(e.ExpiresAt-now.UnixMilli()) * time.Millisecond
	if remaining < time.Millisecond {
		return time.Millisecond
	}
	return remaining
}
