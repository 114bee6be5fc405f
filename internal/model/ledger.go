package model

import "time"

// LedgerKind distinguishes the two placement ledgers. Both share one record
// shape and one set of statuses.
type LedgerKind string

// Ledger kinds.
const (
	LedgerAssignment LedgerKind = "assignment"
	LedgerIssuance   LedgerKind = "issuance"
)

// Table returns the table holding records of this kind.
func (k LedgerKind) Table() string {
	switch k {
	case LedgerAssignment:
		return "assignments"
	case LedgerIssuance:
		return "issuances"
	}
	return ""
}

// LocationKind returns the kind of location records of this kind point at:
// assignments go to rooms, issuances go to areas.
func (k LedgerKind) LocationKind() string {
	if k == LedgerIssuance {
		return LocationKindArea
	}
	return LocationKindRoom
}

// Valid reports whether k is a known ledger kind.
func (k LedgerKind) Valid() bool {
	return k == LedgerAssignment || k == LedgerIssuance
}

// LedgerEntry binds an item to a location (a room for assignments, an area
// for issuances) for a period of time.
type LedgerEntry struct {
	ID            int64      `json:"id"`
	Kind          LedgerKind `json:"kind"`
	Date          time.Time  `json:"date"`
	ItemID        int64      `json:"item_id"`
	LocationID    int64      `json:"location_id"`
	AssignedBy    int64      `json:"assigned_by"`
	Remarks       string     `json:"remarks,omitempty"`
	Signature     string     `json:"signature,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     *int64     `json:"created_by,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	UpdatedBy     *int64     `json:"updated_by,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *int64     `json:"deleted_by,omitempty"`
	DeletedReason string     `json:"deleted_reason,omitempty"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	ItemBarcode  string `json:"item_barcode,omitempty"`
	LocationName string `json:"location_name,omitempty"`
}

// Ledger entry statuses.
const (
	LedgerStatusActive      = "active"
	LedgerStatusDeleted     = "deleted"
	LedgerStatusTransferred = "transferred"
	LedgerStatusSurrendered = "surrendered"
)
