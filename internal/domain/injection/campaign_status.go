package injection

import "fmt"

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	// CampaignStatusIdle indicates the campaign is built but not started.
	CampaignStatusIdle CampaignStatus = "IDLE"

	// CampaignStatusRunning indicates the injection loop is active.
	CampaignStatusRunning CampaignStatus = "RUNNING"

	// CampaignStatusStopped indicates the campaign reached its goal or was asked
	// to stop. Stopped campaigns cannot be resumed.
	CampaignStatusStopped CampaignStatus = "STOPPED"
)

// String returns the string representation of the CampaignStatus.
func (s CampaignStatus) String() string { return string(s) }

// IsValidTransition reports whether moving from s to target is allowed.
func (s CampaignStatus) IsValidTransition(target CampaignStatus) bool {
	switch s {
	case CampaignStatusIdle:
		return target == CampaignStatusRunning || target == CampaignStatusStopped
	case CampaignStatusRunning:
		return target == CampaignStatusStopped
	default:
		return false
	}
}

// ValidateTransition returns ErrInvalidTransition if moving from s to target is
// not allowed.
func (s CampaignStatus) ValidateTransition(target CampaignStatus) error {
	if !s.IsValidTransition(target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, target)
	}
	return nil
}
