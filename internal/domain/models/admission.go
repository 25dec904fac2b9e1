package models

// Decision is the verdict of the rate limiter for a single request.
type Decision int

const (
	// DecisionPass lets the request through to its handler
	DecisionPass Decision = iota
	// DecisionSoftThrottle rejects the request without banning the client
	DecisionSoftThrottle
	// DecisionHardBan rejects the request and bans the client
	DecisionHardBan
)

func (d Decision) String() string {
	switch d {
	case DecisionPass:
		return "pass"
	case DecisionSoftThrottle:
		return "soft_throttle"
	case DecisionHardBan:
		return "hard_ban"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of one request in the admission pipeline.
type Outcome string

const (
	OutcomeRejectedBanned    Outcome = "rejected_banned"
	OutcomeRejectedThrottled Outcome = "rejected_throttled"
	OutcomeCompleted         Outcome = "completed"
	OutcomeExempt            Outcome = "exempt"
)

// WindowStats reports the live size of a client's sliding windows.
type WindowStats struct {
	Minute     int `json:"minute"`
	TenMinutes int `json:"ten_minutes"`
}
