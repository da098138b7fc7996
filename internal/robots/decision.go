package robots

// Reason explains why the gate reached its decision.
type Reason int

const (
	// ReasonNoRule means robots.txt was read and nothing blocks the index path.
	ReasonNoRule Reason = iota

	// ReasonDisallowed means robots.txt blocks the index path.
	ReasonDisallowed

	// ReasonNoPolicy means robots.txt returned a non-success status and was
	// treated as absent.
	ReasonNoPolicy

	// ReasonFetchFailed means robots.txt could not be fetched.
	ReasonFetchFailed
)

// String returns a short human-readable reason.
func (r Reason) String() string {
	switch r {
	case ReasonNoRule:
		return "no rule blocks the index path"
	case ReasonDisallowed:
		return "robots.txt disallows the index path"
	case ReasonNoPolicy:
		return "robots.txt not available"
	case ReasonFetchFailed:
		return "robots.txt could not be fetched"
	default:
		return "unknown"
	}
}

// Decision is the outcome of a permission check.
type Decision struct {
	// Allowed is true when crawling may proceed.
	Allowed bool

	// Reason explains the decision.
	Reason Reason

	// RobotsURL is the policy resource that was consulted.
	RobotsURL string

	// StatusCode is the HTTP status of the robots.txt response, 0 if none.
	StatusCode int

	// Err holds the transport error when Reason is ReasonFetchFailed.
	Err error
}
