package models

import "time"

// BanEntry records why and when a client identifier was banned.
type BanEntry struct {
	BannedAt time.Time `json:"banned_at"`
	Reason   string    `json:"reason"`
}

// IsExpired reports whether the ban is no longer effective at now.
// A ban exactly ttl old is already expired.
func (b BanEntry) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(b.BannedAt) >= ttl
}
