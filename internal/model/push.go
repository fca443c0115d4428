package model

import "time"

// PushSubscription is a browser push endpoint registered by a family device.
type PushSubscription struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"-"`
	AuthKey   string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}
