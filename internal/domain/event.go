package domain

import "time"

// EventType enumerates the employee interactions recorded against a campaign.
type EventType string

const (
	EventOpen                 EventType = "OPEN"
	EventClick                EventType = "CLICK"
	EventSubmitted            EventType = "SUBMITTED"
	EventReported             EventType = "REPORTED"
	EventDownloadedAttachment EventType = "DOWNLOADED_ATTACHMENT"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventOpen, EventClick, EventSubmitted, EventReported, EventDownloadedAttachment:
		return true
	}
	return false
}

// Event is a single recorded interaction. Events are append-only: once
// inserted they are never updated or deleted.
type Event struct {
	ID         int64     `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	IP         string    `json:"ip" db:"ip"`
	EventType  EventType `json:"event_type" db:"event_type"`
	CampaignID int64     `json:"campaign_id" db:"campaign_id"`
	EmployeeID int64     `json:"employee_id" db:"employee_id"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// EventView is an Event joined with the display name of its campaign.
type EventView struct {
	Event
	CampaignName string `json:"campaign_name" db:"campaign_name"`
}
