package clock

import (
	"testing"
	"time"
)

func TestToday(t *testing.T) {
	c := NewFixed(time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC))

	got := Today(c)
	if got.Format("2006-01-02") != "2026-01-05" {
		t.Errorf("Today() = %s", got)
	}

	c.Advance(time.Hour)
	if Today(c).Format("2006-01-02") != "2026-01-06" {
		t.Errorf("Today() after advance = %s", Today(c))
	}
}
