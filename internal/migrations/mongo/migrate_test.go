package mongo

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestCollections_Definitions(t *testing.T) {
	want := []string{"Doctors", "Schedules", "Slots", "Appointments", "Slot_claim_locks"}

	defs := Collections()
	if len(defs) != len(want) {
		t.Fatalf("expected %d collections, got %d", len(want), len(defs))
	}
	for _, name := range want {
		def, ok := defs[name]
		if !ok {
			t.Errorf("missing collection %s", name)
			continue
		}
		if len(def.Indexes) == 0 {
			t.Errorf("%s has no indexes", name)
		}
		if _, ok := def.Validator["$jsonSchema"]; !ok {
			t.Errorf("%s has no $jsonSchema validator", name)
		}
	}
}

func TestAppointmentsIndexes_OneActivePerSlot(t *testing.T) {
	idx := AppointmentsIndexes[0]
	if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
		t.Fatal("time_slot_id index must be unique")
	}

	filter, ok := idx.Options.PartialFilterExpression.(bson.M)
	if !ok {
		t.Fatalf("expected a partial filter, got %T", idx.Options.PartialFilterExpression)
	}
	statuses := filter["status"].(bson.M)["$in"].(bson.A)
	if len(statuses) != 2 || statuses[0] != "pending" || statuses[1] != "confirmed" {
		t.Errorf("partial filter statuses = %v", statuses)
	}
}

func TestSlotsIndexes_UniqueKey(t *testing.T) {
	idx := SlotsIndexes[0]
	keys := idx.Keys.(bson.D)
	if len(keys) != 3 || keys[0].Key != "doctor_id" || keys[1].Key != "date" || keys[2].Key != "start_time" {
		t.Errorf("unexpected slot key index: %v", keys)
	}
	if idx.Options == nil || idx.Options.Unique == nil || !*idx.Options.Unique {
		t.Error("slot key index must be unique")
	}
}
