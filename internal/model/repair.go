package model

import "time"

// Repair tracks one maintenance workflow for an item.
type Repair struct {
	ID            int64      `json:"id"`
	Date          time.Time  `json:"date"`
	ItemID        int64      `json:"item_id"`
	Problem       string     `json:"problem"`
	ReportedBy    int64      `json:"reported_by"`
	Diagnosis     string     `json:"diagnosis,omitempty"`
	CheckedBy     *int64     `json:"checked_by,omitempty"`
	DefectReason  string     `json:"defect_reason,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     *int64     `json:"created_by,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	UpdatedBy     *int64     `json:"updated_by,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *int64     `json:"deleted_by,omitempty"`
	DeletedReason string     `json:"deleted_reason,omitempty"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty"`
}

// Repair statuses. A repair leaves ongoing exactly once.
const (
	RepairStatusOngoing   = "ongoing"
	RepairStatusCompleted = "completed"
	RepairStatusDefective = "defective"
	RepairStatusDeleted   = "deleted"
)
