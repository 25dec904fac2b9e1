// Package constants defines system-wide constants for StatusService.
// It keeps the admission thresholds, persistence layout and context keys in one place.
package constants

import "time"

// ================================================================================
// Service Identity
// ================================================================================

const (
	// ServiceName is used for tracing resources and metric namespaces
	ServiceName = "statusservice"

	// UnknownClient is the identifier used when the remote address is unavailable
	UnknownClient = "unknown"
)

// ================================================================================
// Rate Limit Constants
// ================================================================================

const (
	// ShortWindow is the length of the soft throttling window
	ShortWindow = time.Minute

	// LongWindow is the length of the ban escalation window
	LongWindow = 10 * time.Minute

	// ShortWindowLimit is the number of requests tolerated inside ShortWindow.
	// The request that makes the window exceed it is throttled.
	ShortWindowLimit = 30

	// LongWindowLimit is the number of requests tolerated inside LongWindow.
	// The request that makes the window exceed it bans the client.
	LongWindowLimit = 200

	// BanTTL is how long a ban stays effective after it was written
	BanTTL = time.Hour

	// RateBanReason is the reason recorded when the limiter escalates to a ban
	RateBanReason = "rate threshold exceeded"
)

// WindowKind names one of the two sliding windows kept per client
type WindowKind string

const (
	// WindowMinute is the 1-minute window
	WindowMinute WindowKind = "minute"

	// WindowTenMinutes is the 10-minute window
	WindowTenMinutes WindowKind = "ten_minutes"
)

// ================================================================================
// Request Log Constants
// ================================================================================

const (
	// OverflowThreshold is the body size at which a payload is offloaded to an overflow file
	OverflowThreshold = 200 * 1024

	// OverflowSequenceWidth is the zero-padded width of overflow file names
	OverflowSequenceWidth = 6

	// OverflowDateLayout is the layout of overflow date partitions
	OverflowDateLayout = "2006-01-02"

	// DefaultLogQueryLimit is used when /logs is called without a limit
	DefaultLogQueryLimit = 100

	// MaxLogQueryLimit bounds the limit accepted by /logs
	MaxLogQueryLimit = 1000

	// DefaultShutdownGrace is how long the log worker may drain on shutdown
	DefaultShutdownGrace = 5 * time.Second
)

// ================================================================================
// Persistence Layout
// ================================================================================

const (
	// CounterDocument is the document name holding the overflow sequence counter
	CounterDocument = "counter"

	// BlocklistDocument is the document name holding the ban map
	BlocklistDocument = "blocked_ips"

	// OverflowDirName is the directory (under the data dir) holding overflow files
	OverflowDirName = "overflow"

	// LogDatabaseFile is the default SQLite file name for the request log store
	LogDatabaseFile = "logs.db"
)

// StorageBackend selects where documents are persisted
type StorageBackend string

const (
	// StorageBackendFile stores each document as a JSON file in the data dir
	StorageBackendFile StorageBackend = "file"

	// StorageBackendRedis stores each document under a Redis key
	StorageBackendRedis StorageBackend = "redis"
)

// LogStoreDriver selects the SQL driver for the request log store
type LogStoreDriver string

const (
	LogStoreDriverSQLite   LogStoreDriver = "sqlite"
	LogStoreDriverPostgres LogStoreDriver = "postgres"
)

// ================================================================================
// Mock Data Constants
// ================================================================================

const (
	// DefaultGenerateCount is the number of records generated when count is omitted
	DefaultGenerateCount = 10

	// MaxGenerateCount bounds the count parameter of the data endpoints
	MaxGenerateCount = 100
)

// ================================================================================
// Logging Level Constants
// ================================================================================

// LogLevel represents the severity level of log messages
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
	LogLevelFatal LogLevel = "fatal"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyTraceID is the key for distributed trace ID in context
	ContextKeyTraceID ContextKey = "trace_id"

	// ContextKeyClientID is the key for the admission client identifier
	ContextKeyClientID ContextKey = "client_id"
)

// HeaderRequestID is the response header carrying the request id
const HeaderRequestID = "X-Request-ID"
