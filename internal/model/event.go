package model

import "time"

// EventType classifies a calendar event. The set is closed; the store enforces
// it with a CHECK constraint.
type EventType string

const (
	EventAppointment EventType = "appointment"
	EventActivity    EventType = "activity"
	EventSchool      EventType = "school"
	EventBirthday    EventType = "birthday"
	EventMeeting     EventType = "meeting"
	EventPlaydate    EventType = "playdate"
	EventVacation    EventType = "vacation"
	EventReminder    EventType = "reminder"
	EventTask        EventType = "task"
	EventGeneral     EventType = "general"
)

// ValidEventType reports whether t is one of the recognized event types.
func ValidEventType(t EventType) bool {
	switch t {
	case EventAppointment, EventActivity, EventSchool, EventBirthday,
		EventMeeting, EventPlaydate, EventVacation, EventReminder,
		EventTask, EventGeneral:
		return true
	}
	return false
}

// Attendee is a denormalized reference to someone attending an event.
// It is a copy, not a foreign key: deleting the member does not cascade.
type Attendee struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// DocumentRef is a denormalized link to an uploaded document.
type DocumentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Event struct {
	ID                int64         `json:"id"`
	FamilyID          int64         `json:"family_id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	Location          string        `json:"location"`
	EventType         EventType     `json:"event_type"`
	StartTime         time.Time     `json:"start_time"`
	EndTime           time.Time     `json:"end_time"`
	Timezone          string        `json:"timezone"`
	Status            string        `json:"status"`
	ChildID           *int64        `json:"child_id"`
	ChildName         string        `json:"child_name,omitempty"`
	AttendingParentID *int64        `json:"attending_parent_id"`
	Attendees         []Attendee    `json:"attendees"`
	Documents         []DocumentRef `json:"documents"`
	CreatedBy         int64         `json:"created_by"`
	LastModifiedBy    int64         `json:"last_modified_by"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// EventStatusConfirmed is the status assigned to every newly created event.
const EventStatusConfirmed = "confirmed"
