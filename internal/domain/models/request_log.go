package models

import "time"

// RequestLog is one entry of the request log store. Records are immutable once
// built; the ID is assigned by the store and defines recency order.
type RequestLog struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Timestamp   time.Time `gorm:"index;not null" json:"timestamp"`
	ClientID    string    `gorm:"column:ip;size:64;index" json:"ip"`
	Method      string    `gorm:"size:16" json:"method"`
	Path        string    `gorm:"size:2048" json:"path"`
	StatusCode  int       `json:"status_code"`
	UserAgent   string    `gorm:"size:512" json:"user_agent"`
	OverflowRef *string   `gorm:"size:1024" json:"overflow_ref"`
}

// TableName pins the table name used by the log store.
func (RequestLog) TableName() string {
	return "request_logs"
}

// NewRequestLog builds a log record. An empty overflowRef is stored as NULL.
func NewRequestLog(ts time.Time, clientID, method, path string, status int, userAgent, overflowRef string) *RequestLog {
	rec := &RequestLog{
		Timestamp:  ts.UTC(),
		ClientID:   clientID,
		Method:     method,
		Path:       path,
		StatusCode: status,
		UserAgent:  userAgent,
	}
	if overflowRef != "" {
		rec.OverflowRef = &overflowRef
	}
	return rec
}

// HasOverflow reports whether the request body was offloaded to an overflow file.
func (r *RequestLog) HasOverflow() bool {
	return r.OverflowRef != nil && *r.OverflowRef != ""
}
