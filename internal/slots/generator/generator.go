// Package generator expands recurring schedules into concrete slots. It does
// no I/O: the caller supplies the existing slot keys and persists the result.
package generator

import (
	"fmt"
	slotserrors "medbook/internal/slots/errors"
	"medbook/pkg/model"
	"time"
)

// Window is an inclusive range of calendar dates at UTC midnight.
type Window struct {
	From time.Time
	To   time.Time
}

func NewWindow(from, to string) (Window, error) {
	f, err := model.ParseDate(from)
	if err != nil {
		return Window{}, err
	}
	t, err := model.ParseDate(to)
	if err != nil {
		return Window{}, err
	}
	return Window{From: f, To: t}, nil
}

func (w Window) Empty() bool {
	return w.To.Before(w.From)
}

// Intersect narrows w to the dates also inside o.
func (w Window) Intersect(o Window) Window {
	out := w
	if o.From.After(out.From) {
		out.From = o.From
	}
	if o.To.Before(out.To) {
		out.To = o.To
	}
	return out
}

type Result struct {
	Slots   []*model.Slot
	Skipped int
}

// ExistsFunc reports whether a slot with the key is already stored.
type ExistsFunc func(model.SlotKey) bool

// Generate partitions every matching day of each schedule into consecutive
// intervals of durationMin minutes starting at the daily start time. A
// trailing interval shorter than the duration is dropped. Keys that already
// exist, or that an earlier schedule of the same call produced, are counted
// as skipped.
func Generate(schedules []*model.Schedule, durationMin int, window Window, exists ExistsFunc) (*Result, error) {
	if durationMin <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", slotserrors.ErrInvalidSchedule, durationMin)
	}

	result := &Result{}
	planned := make(map[model.SlotKey]struct{})

	for _, sc := range schedules {
		span, err := scheduleWindow(sc)
		if err != nil {
			return nil, err
		}
		start, end, err := dailyMinutes(sc)
		if err != nil {
			return nil, err
		}

		w := span.Intersect(window)
		for day := w.From; !day.After(w.To); day = day.AddDate(0, 0, 1) {
			if !sc.DaysOfWeek.Contains(day.Weekday()) {
				continue
			}
			date := model.FormatDate(day)

			for offset := start; offset+durationMin <= end; offset += durationMin {
				key := model.SlotKey{
					DoctorID:  sc.DoctorID,
					Date:      date,
					StartTime: model.FormatMinutes(offset),
				}
				if _, dup := planned[key]; dup || (exists != nil && exists(key)) {
					result.Skipped++
					continue
				}
				planned[key] = struct{}{}

				result.Slots = append(result.Slots, &model.Slot{
					DoctorID:    sc.DoctorID,
					ScheduleID:  sc.ID,
					Date:        date,
					StartTime:   key.StartTime,
					EndTime:     model.FormatMinutes(offset + durationMin),
					IsAvailable: true,
				})
			}
		}
	}

	return result, nil
}

// SlotsPerDay is the number of whole intervals that fit in a schedule's day.
func SlotsPerDay(sc *model.Schedule, durationMin int) int {
	start, end, err := dailyMinutes(sc)
	if err != nil || durationMin <= 0 {
		return 0
	}
	return (end - start) / durationMin
}

func scheduleWindow(sc *model.Schedule) (Window, error) {
	w, err := NewWindow(sc.StartDate, sc.EndDate)
	if err != nil {
		return Window{}, fmt.Errorf("%w: schedule %s: %v", slotserrors.ErrInvalidSchedule, sc.ID, err)
	}
	if w.Empty() {
		return Window{}, fmt.Errorf("%w: schedule %s ends before it starts", slotserrors.ErrInvalidSchedule, sc.ID)
	}
	if !sc.DaysOfWeek.IsValid() {
		return Window{}, fmt.Errorf("%w: schedule %s has no weekdays", slotserrors.ErrInvalidSchedule, sc.ID)
	}
	return w, nil
}

func dailyMinutes(sc *model.Schedule) (int, int, error) {
	start, err := model.ParseMinutes(sc.DailyStartTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: schedule %s: %v", slotserrors.ErrInvalidSchedule, sc.ID, err)
	}
	end, err := model.ParseMinutes(sc.DailyEndTime)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: schedule %s: %v", slotserrors.ErrInvalidSchedule, sc.ID, err)
	}
	if end <= start {
		return 0, 0, fmt.Errorf("%w: schedule %s daily window %s-%s is empty", slotserrors.ErrInvalidSchedule, sc.ID, sc.DailyStartTime, sc.DailyEndTime)
	}
	return start, end, nil
}
