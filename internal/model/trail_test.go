package model

import (
	"encoding/json"
	"testing"
)

func TestEntityRefID(t *testing.T) {
	ref := RefID(42)
	id, ok := ref.ID()
	if !ok || id != 42 {
		t.Fatalf("RefID(42).ID() = %d, %v", id, ok)
	}
	if ref.String() != "id:42" {
		t.Errorf("String() = %q, want %q", ref.String(), "id:42")
	}
}

func TestEntityRefLabelHasNoID(t *testing.T) {
	ref := RefLabel("settings")
	if _, ok := ref.ID(); ok {
		t.Error("label reference should not yield an id")
	}

	// A label that happens to look numeric is still a label.
	if _, ok := RefLabel("17").ID(); ok {
		t.Error("numeric label should not yield an id")
	}
}

func TestEntityRefJSONShape(t *testing.T) {
	data, err := json.Marshal(TrailEntry{EntityRef: RefID(7)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(data, &decoded)

	ref, ok := decoded["entity_ref"].(map[string]any)
	if !ok {
		t.Fatalf("entity_ref missing in %s", data)
	}
	if ref["kind"] != "id" || ref["value"] != "7" {
		t.Errorf("unexpected entity_ref: %v", ref)
	}
}

func TestLedgerKindMapping(t *testing.T) {
	tests := []struct {
		kind     LedgerKind
		table    string
		location string
	}{
		{LedgerAssignment, "assignments", LocationKindRoom},
		{LedgerIssuance, "issuances", LocationKindArea},
	}
	for _, tt := range tests {
		if got := tt.kind.Table(); got != tt.table {
			t.Errorf("%s.Table() = %q, want %q", tt.kind, got, tt.table)
		}
		if got := tt.kind.LocationKind(); got != tt.location {
			t.Errorf("%s.LocationKind() = %q, want %q", tt.kind, got, tt.location)
		}
	}
	if LedgerKind("loan").Valid() {
		t.Error("unknown ledger kind reported valid")
	}
}
