package injection

import "errors"

var (
	// ErrUndefinedValue is returned by Signal.Read when the signal holds an
	// undefined logic state. Injections hitting it are skipped, not retried.
	ErrUndefinedValue = errors.New("signal value undefined")

	// ErrBitOutOfRange is returned when a fault targets a bit outside a signal.
	ErrBitOutOfRange = errors.New("bit index out of range")

	// ErrNoCandidates is returned when a campaign starts with empty candidate sets.
	ErrNoCandidates = errors.New("no injection candidates")

	// ErrNilStrategy is returned when a campaign starts without a strategy.
	ErrNilStrategy = errors.New("injection strategy is required")

	// ErrNilGoal is returned when a campaign starts without a goal.
	ErrNilGoal = errors.New("injection goal is required")

	// ErrNilTimer is returned when a campaign starts without an inter-arrival timer.
	ErrNilTimer = errors.New("inter-arrival timer is required")

	// ErrInvalidRoundsPerCheck is returned when rounds per goal check is below one.
	ErrInvalidRoundsPerCheck = errors.New("rounds per goal check must be at least 1")

	// ErrCampaignAlreadyStarted is returned when Start is called on a campaign
	// that already left the idle state.
	ErrCampaignAlreadyStarted = errors.New("campaign already started")

	// ErrInvalidTransition is returned for campaign status changes the state
	// machine does not allow.
	ErrInvalidTransition = errors.New("invalid campaign status transition")
)
