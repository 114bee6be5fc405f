package model

import (
	"strconv"
	"time"
)

// EntityRefKind tells how the value of an EntityRef should be read.
type EntityRefKind string

// Entity reference kinds.
const (
	// EntityRefID is a numeric row identifier.
	EntityRefID EntityRefKind = "id"
	// EntityRefLabel is a free-form label, for entities without a row id
	// (settings) or requests that failed before one existed.
	EntityRefLabel EntityRefKind = "label"
)

// EntityRef identifies the entity a trail entry is about.
type EntityRef struct {
	Kind  EntityRefKind `json:"kind"`
	Value string        `json:"value"`
}

// RefID returns a reference to a numeric row identifier.
func RefID(id int64) EntityRef {
	return EntityRef{Kind: EntityRefID, Value: strconv.FormatInt(id, 10)}
}

// RefLabel returns a free-form reference.
func RefLabel(label string) EntityRef {
	return EntityRef{Kind: EntityRefLabel, Value: label}
}

// ID returns the numeric identifier and true if the reference holds one.
func (r EntityRef) ID() (int64, bool) {
	if r.Kind != EntityRefID {
		return 0, false
	}
	id, err := strconv.ParseInt(r.Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func (r EntityRef) String() string {
	return string(r.Kind) + ":" + r.Value
}

// TrailEntry is one line of the audit trail. Entries are immutable apart
// from the review marking.
type TrailEntry struct {
	ID        int64      `json:"id"`
	ActorID   int64      `json:"actor_id"`
	Action    string     `json:"action"`
	Entity    string     `json:"entity"`
	EntityRef EntityRef  `json:"entity_ref"`
	Details   string     `json:"details,omitempty"`
	Origin    string     `json:"origin,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ViewedAt  *time.Time `json:"viewed_at,omitempty"`
	ViewedBy  *int64     `json:"viewed_by,omitempty"`
}

// Trail entity types.
const (
	EntityItem       = "item"
	EntityAssignment = "assignment"
	EntityIssuance   = "issuance"
	EntityRepair     = "repair"
	EntityRoom       = "room"
	EntityArea       = "area"
	EntityItemType   = "item_type"
	EntitySettings   = "settings"
	EntityUser       = "user"
)

// Trail actions.
const (
	ActionCreate    = "create"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionSurrender = "surrender"
	ActionTransfer  = "transfer"
	ActionComplete  = "complete"
	ActionDefective = "mark_defective"
)
