package model

import "time"

// Location is a room or an area that items can be placed in.
type Location struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	Kind          string     `json:"kind"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     *int64     `json:"created_by,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	UpdatedBy     *int64     `json:"updated_by,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *int64     `json:"deleted_by,omitempty"`
	DeletedReason string     `json:"deleted_reason,omitempty"`
}

// Location kinds.
const (
	LocationKindRoom = "room"
	LocationKindArea = "area"
)

// Location statuses.
const (
	LocationStatusActive  = "active"
	LocationStatusDeleted = "deleted"
)
