package model

import "time"

// Item is a single tracked asset, identified by serial number and barcode.
type Item struct {
	ID            int64      `json:"id"`
	TypeID        int64      `json:"type_id"`
	TypeName      string     `json:"type_name,omitempty"`
	Name          string     `json:"name"`
	Brand         string     `json:"brand"`
	SerialNo      string     `json:"serial_no"`
	Barcode       string     `json:"barcode"`
	Details       string     `json:"details,omitempty"`
	HasPhoto      bool       `json:"has_photo"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CreatedBy     *int64     `json:"created_by,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
	UpdatedBy     *int64     `json:"updated_by,omitempty"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
	DeletedBy     *int64     `json:"deleted_by,omitempty"`
	DeletedReason string     `json:"deleted_reason,omitempty"`
}

// Item statuses.
const (
	ItemStatusActive    = "active"
	ItemStatusAssigned  = "assigned"
	ItemStatusDefective = "defective"
	ItemStatusDeleted   = "deleted"
)

// Item fields that may be edited directly. Status is listed so that clients
// echoing the whole record are not rejected, but it can not be changed here.
const (
	ItemFieldType     = "type_id"
	ItemFieldName     = "name"
	ItemFieldBrand    = "brand"
	ItemFieldSerialNo = "serial_no"
	ItemFieldDetails  = "details"
	ItemFieldStatus   = "status"
)

// EditableItemFields lists the field names accepted by item updates.
var EditableItemFields = map[string]bool{
	ItemFieldType:     true,
	ItemFieldName:     true,
	ItemFieldBrand:    true,
	ItemFieldSerialNo: true,
	ItemFieldDetails:  true,
	ItemFieldStatus:   true,
}

// ItemHistory is an item together with every ledger record that references it.
type ItemHistory struct {
	Item        *Item         `json:"item"`
	Assignments []LedgerEntry `json:"assignments"`
	Issuances   []LedgerEntry `json:"issuances"`
	Repairs     []Repair      `json:"repairs"`
}
