package model

import "time"

// RewardCategory groups reward templates for browsing.
type RewardCategory string

const (
	CategoryItems         RewardCategory = "items"
	CategoryActivities    RewardCategory = "activities"
	CategoryPrivileges    RewardCategory = "privileges"
	CategorySpecialEvents RewardCategory = "special events"
)

// UnlimitedQuantity marks a template with no stock limit.
const UnlimitedQuantity = -1

type RewardTemplate struct {
	ID          int64          `json:"id"`
	FamilyID    int64          `json:"family_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	BucksPrice  int            `json:"bucks_price"`
	Category    RewardCategory `json:"category"`
	Quantity    int            `json:"quantity"` // -1 = unlimited
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
	Active      bool           `json:"active"`
	ImageURL    string         `json:"image_url,omitempty"`
	ChildIDs    []int64        `json:"child_ids,omitempty"` // empty = all children
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// RewardStatus is the lifecycle state of a reward instance.
//
//	requested -> approved -> fulfilled
//	requested -> rejected
//
// rejected and fulfilled are terminal. Memories attach only after fulfilled.
type RewardStatus string

const (
	RewardRequested RewardStatus = "requested"
	RewardApproved  RewardStatus = "approved"
	RewardRejected  RewardStatus = "rejected"
	RewardFulfilled RewardStatus = "fulfilled"
)

type RewardInstance struct {
	ID              int64        `json:"id"`
	FamilyID        int64        `json:"family_id"`
	TemplateID      int64        `json:"template_id"`
	ChildID         int64        `json:"child_id"`
	Status          RewardStatus `json:"status"`
	BucksPrice      int          `json:"bucks_price"`
	RequestNote     string       `json:"request_note,omitempty"`
	ScheduledDate   *time.Time   `json:"scheduled_date,omitempty"`
	ApprovedBy      *int64       `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time   `json:"approved_at,omitempty"`
	ApprovalNote    string       `json:"approval_note,omitempty"`
	RejectedBy      *int64       `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time   `json:"rejected_at,omitempty"`
	RejectionReason string       `json:"rejection_reason,omitempty"`
	FulfilledBy     *int64       `json:"fulfilled_by,omitempty"`
	FulfilledAt     *time.Time   `json:"fulfilled_at,omitempty"`
	CalendarEventID *int64       `json:"calendar_event_id,omitempty"`
	MemoryPhotos    []string     `json:"memory_photos"`
	MemoryNote      string       `json:"memory_note,omitempty"`
	MemoryRating    int          `json:"memory_rating,omitempty"`
	RequestedAt     time.Time    `json:"requested_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}
