package model

import "time"

// StoryEntry is one item in the family-wide activity feed. Entries are
// denormalized copies of their source records and are never updated.
type StoryEntry struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Kind      string    `json:"kind"` // reward_memory, chore_milestone
	SourceID  int64     `json:"source_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	PhotoURLs []string  `json:"photo_urls,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
