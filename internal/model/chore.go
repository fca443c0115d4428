package model

import "time"

// TimeOfDay buckets a chore into the part of the day it belongs to.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Anytime   TimeOfDay = "anytime"
)

// Frequency is a chore template's recurrence rule.
type Frequency string

const (
	FreqDaily    Frequency = "daily"
	FreqWeekly   Frequency = "weekly"
	FreqWeekdays Frequency = "weekdays"
	FreqAsNeeded Frequency = "asNeeded"
)

type ChoreTemplate struct {
	ID          int64          `json:"id"`
	FamilyID    int64          `json:"family_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	TimeOfDay   TimeOfDay      `json:"time_of_day"`
	BucksReward int            `json:"bucks_reward"`
	Required    bool           `json:"required"`
	Frequency   Frequency      `json:"frequency"`
	DaysOfWeek  []time.Weekday `json:"days_of_week,omitempty"`
	Active      bool           `json:"active"`
	Archived    bool           `json:"archived"`
	IconURL     string         `json:"icon_url,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ChoreSchedule assigns a template to one child on a concrete day-of-week set.
type ChoreSchedule struct {
	ID         int64          `json:"id"`
	FamilyID   int64          `json:"family_id"`
	TemplateID int64          `json:"template_id"`
	ChildID    int64          `json:"child_id"`
	DaysOfWeek []time.Weekday `json:"days_of_week"`
	Active     bool           `json:"active"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// ChoreStatus is the lifecycle state of a chore instance.
// Completion auto-approves; rejection is terminal and reverses the credit.
type ChoreStatus string

const (
	ChorePending   ChoreStatus = "pending"
	ChoreCompleted ChoreStatus = "completed"
	ChoreApproved  ChoreStatus = "approved"
	ChoreRejected  ChoreStatus = "rejected"
)

type ChoreInstance struct {
	ID           int64       `json:"id"`
	FamilyID     int64       `json:"family_id"`
	TemplateID   int64       `json:"template_id"`
	ChildID      int64       `json:"child_id"`
	Date         string      `json:"date"` // YYYY-MM-DD, local to the family
	Status       ChoreStatus `json:"status"`
	BucksAwarded int         `json:"bucks_awarded"`
	Mood         string      `json:"mood,omitempty"`
	Effort       int         `json:"effort,omitempty"`
	PhotoURL     string      `json:"photo_url,omitempty"`
	Note         string      `json:"note,omitempty"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	ResolvedBy   *int64      `json:"resolved_by,omitempty"`
	ResolvedAt   *time.Time  `json:"resolved_at,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
