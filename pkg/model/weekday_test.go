package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewWeekdaySet(t *testing.T) {
	tests := []struct {
		name    string
		days    []int
		want    string
		wantErr bool
	}{
		{name: "monday and wednesday", days: []int{1, 3}, want: "1,3"},
		{name: "unordered with duplicates", days: []int{5, 1, 5, 3}, want: "1,3,5"},
		{name: "whole week", days: []int{0, 1, 2, 3, 4, 5, 6}, want: "0,1,2,3,4,5,6"},
		{name: "empty", days: nil, want: ""},
		{name: "negative day", days: []int{-1}, wantErr: true},
		{name: "day seven", days: []int{7}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, err := NewWeekdaySet(tt.days...)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %v", tt.days)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := set.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWeekdaySet_Contains(t *testing.T) {
	set, _ := NewWeekdaySet(1, 3)

	if !set.Contains(time.Monday) || !set.Contains(time.Wednesday) {
		t.Error("expected Monday and Wednesday to be in the set")
	}
	for _, d := range []time.Weekday{time.Sunday, time.Tuesday, time.Thursday, time.Friday, time.Saturday} {
		if set.Contains(d) {
			t.Errorf("did not expect %s in the set", d)
		}
	}
}

func TestParseWeekdaySet(t *testing.T) {
	set, err := ParseWeekdaySet(" 1, 3 ,5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.String() != "1,3,5" {
		t.Errorf("got %q", set.String())
	}

	if _, err := ParseWeekdaySet("1,x"); err == nil {
		t.Error("expected error for non numeric weekday")
	}
	if _, err := ParseWeekdaySet("8"); err == nil {
		t.Error("expected error for out of range weekday")
	}

	empty, err := ParseWeekdaySet("")
	if err != nil || !empty.IsEmpty() {
		t.Errorf("expected empty set, got %v (err %v)", empty, err)
	}
}

func TestWeekdaySet_JSON(t *testing.T) {
	var s Schedule
	if err := json.Unmarshal([]byte(`{"days_of_week":[3,1]}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.DaysOfWeek.String() != "1,3" {
		t.Errorf("got %q", s.DaysOfWeek.String())
	}

	data, err := json.Marshal(s.DaysOfWeek)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "[1,3]" {
		t.Errorf("got %s", data)
	}

	if err := json.Unmarshal([]byte(`{"days_of_week":[9]}`), &s); err == nil {
		t.Error("expected error for weekday 9")
	}
	if err := json.Unmarshal([]byte(`{"days_of_week":"1,3"}`), &s); err == nil {
		t.Error("expected error for string form in JSON")
	}
}

func TestWeekdaySet_IsValid(t *testing.T) {
	if WeekdaySet(0).IsValid() {
		t.Error("empty set must be invalid")
	}
	if WeekdaySet(1 << 7).IsValid() {
		t.Error("bit 7 must be invalid")
	}
	set, _ := NewWeekdaySet(0)
	if !set.IsValid() {
		t.Error("sunday only must be valid")
	}
}
