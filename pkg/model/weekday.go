package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WeekdaySet is a set of weekdays, bit i set for time.Weekday(i) (0 = Sunday).
type WeekdaySet uint8

const allWeekdays WeekdaySet = 1<<7 - 1

func NewWeekdaySet(days ...int) (WeekdaySet, error) {
	var s WeekdaySet
	for _, d := range days {
		if d < 0 || d > 6 {
			return 0, fmt.Errorf("weekday out of range [0..6]: %d", d)
		}
		s |= 1 << uint(d)
	}
	return s, nil
}

// ParseWeekdaySet reads the storage form, a comma separated list such as "1,3,5".
func ParseWeekdaySet(value string) (WeekdaySet, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}

	parts := strings.Split(value, ",")
	days := make([]int, 0, len(parts))
	for _, part := range parts {
		d, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, fmt.Errorf("invalid weekday %q: %w", part, err)
		}
		days = append(days, d)
	}
	return NewWeekdaySet(days...)
}

func (s WeekdaySet) Contains(day time.Weekday) bool {
	if day < time.Sunday || day > time.Saturday {
		return false
	}
	return s&(1<<uint(day)) != 0
}

func (s WeekdaySet) IsEmpty() bool {
	return s&allWeekdays == 0
}

func (s WeekdaySet) IsValid() bool {
	return !s.IsEmpty() && s&^allWeekdays == 0
}

func (s WeekdaySet) Days() []int {
	days := make([]int, 0, 7)
	for d := 0; d < 7; d++ {
		if s&(1<<uint(d)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

func (s WeekdaySet) String() string {
	days := s.Days()
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Days())
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err != nil {
		return fmt.Errorf("days_of_week must be an array of integers 0-6: %w", err)
	}
	set, err := NewWeekdaySet(days...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}
