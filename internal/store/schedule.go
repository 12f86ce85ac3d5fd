package store

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/bayni/apiserver/internal/ids"
	"github.com/bayni/apiserver/internal/kv"
	"github.com/bayni/apiserver/types"
)

// MaxSlotsPerDay is the number of slots a doctor may offer on one date.
const MaxSlotsPerDay = 5

// ScheduleBook handles persistence for doctors' available dates and
// consultation time slots.
type ScheduleBook struct {
	slots        *collection[types.Schedule]
	availability *collection[types.Availability]
}

func NewScheduleBook(store kv.Store) *ScheduleBook {
	return &ScheduleBook{
		slots:        newCollection[types.Schedule](store, keySchedules),
		availability: newCollection[types.Availability](store, keyAvailability),
	}
}

// ToggleDate flips whether date is available for the doctor and returns the
// new state. A date that still has slots cannot be made unavailable; its
// slots have to be removed first.
func (b *ScheduleBook) ToggleDate(ctx context.Context, doctorID, date string) (bool, error) {
	date, err := normalizeDate(date)
	if err != nil {
		return false, err
	}
	if doctorID == "" {
		return false, invalidInput("doctor is required")
	}

	var available bool
	err = b.availability.update(ctx, func(items []types.Availability) ([]types.Availability, error) {
		i := indexAvailability(items, doctorID)
		if i < 0 {
			items = append(items, types.Availability{DoctorID: doctorID})
			i = len(items) - 1
		}
		a := &items[i]
		if j := slices.Index(a.Dates, date); j >= 0 {
			booked, err := b.hasSlots(ctx, doctorID, date)
			if err != nil {
				return nil, err
			}
			if booked {
				return nil, ErrDateHasSlots
			}
			a.Dates = slices.Delete(a.Dates, j, j+1)
			available = false
		} else {
			a.Dates = append(a.Dates, date)
			slices.Sort(a.Dates)
			available = true
		}
		return items, nil
	})
	if err != nil {
		return false, err
	}
	return available, nil
}

// AvailableDates returns the doctor's available dates in ascending order.
func (b *ScheduleBook) AvailableDates(ctx context.Context, doctorID string) ([]string, error) {
	items, err := b.availability.load(ctx)
	if err != nil {
		return nil, err
	}
	i := indexAvailability(items, doctorID)
	if i < 0 {
		return []string{}, nil
	}
	dates := slices.Clone(items[i].Dates)
	slices.Sort(dates)
	return dates, nil
}

// AddSlot stores a new time slot. Slots of one doctor on one date may not
// overlap and are limited to MaxSlotsPerDay. The slot's date becomes
// available.
func (b *ScheduleBook) AddSlot(ctx context.Context, slot types.Schedule) (types.Schedule, error) {
	var err error
	if slot.DoctorID == "" {
		return types.Schedule{}, invalidInput("doctor is required")
	}
	if slot.Date, err = normalizeDate(slot.Date); err != nil {
		return types.Schedule{}, err
	}
	if slot.StartTime, err = normalizeClock(slot.StartTime); err != nil {
		return types.Schedule{}, err
	}
	if slot.EndTime, err = normalizeClock(slot.EndTime); err != nil {
		return types.Schedule{}, err
	}
	if slot.StartTime >= slot.EndTime {
		return types.Schedule{}, invalidInput("start time must be before end time")
	}
	if slot.Price < 0 {
		return types.Schedule{}, invalidInput("price must not be negative")
	}

	now := time.Now().UTC()
	slot.ID = ids.NewFromTime(now)
	slot.CreatedAt = now

	err = b.slots.update(ctx, func(items []types.Schedule) ([]types.Schedule, error) {
		count := 0
		for _, s := range items {
			if s.DoctorID != slot.DoctorID || s.Date != slot.Date {
				continue
			}
			count++
			if slot.StartTime < s.EndTime && s.StartTime < slot.EndTime {
				return nil, ErrSlotConflict
			}
		}
		if count >= MaxSlotsPerDay {
			return nil, ErrSlotLimit
		}
		return append(items, slot), nil
	})
	if err != nil {
		return types.Schedule{}, err
	}

	err = b.availability.update(ctx, func(items []types.Availability) ([]types.Availability, error) {
		i := indexAvailability(items, slot.DoctorID)
		if i < 0 {
			items = append(items, types.Availability{DoctorID: slot.DoctorID})
			i = len(items) - 1
		}
		if !slices.Contains(items[i].Dates, slot.Date) {
			items[i].Dates = append(items[i].Dates, slot.Date)
			slices.Sort(items[i].Dates)
		}
		return items, nil
	})
	if err != nil {
		return types.Schedule{}, err
	}
	return slot, nil
}

// Slots returns the doctor's slots on date ordered by date and start time.
// An empty date returns all of the doctor's slots.
func (b *ScheduleBook) Slots(ctx context.Context, doctorID, date string) ([]types.Schedule, error) {
	if date != "" {
		var err error
		if date, err = normalizeDate(date); err != nil {
			return nil, err
		}
	}
	items, err := b.slots.load(ctx)
	if err != nil {
		return nil, err
	}
	items = slices.DeleteFunc(items, func(s types.Schedule) bool {
		return s.DoctorID != doctorID || (date != "" && s.Date != date)
	})
	slices.SortFunc(items, func(a, b types.Schedule) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), cmp.Compare(a.StartTime, b.StartTime))
	})
	return items, nil
}

// RemoveSlot deletes one of the doctor's slots.
func (b *ScheduleBook) RemoveSlot(ctx context.Context, doctorID, slotID string) error {
	return b.slots.update(ctx, func(items []types.Schedule) ([]types.Schedule, error) {
		i := slices.IndexFunc(items, func(s types.Schedule) bool {
			return s.ID == slotID && s.DoctorID == doctorID
		})
		if i < 0 {
			return nil, ErrNotFound
		}
		return slices.Delete(items, i, i+1), nil
	})
}

func (b *ScheduleBook) hasSlots(ctx context.Context, doctorID, date string) (bool, error) {
	items, err := b.slots.load(ctx)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(items, func(s types.Schedule) bool {
		return s.DoctorID == doctorID && s.Date == date
	}), nil
}

func indexAvailability(items []types.Availability, doctorID string) int {
	return slices.IndexFunc(items, func(a types.Availability) bool { return a.DoctorID == doctorID })
}

func normalizeDate(date string) (string, error) {
	t, err := time.Parse(types.DateLayout, date)
	if err != nil {
		return "", invalidInput("date must be YYYY-MM-DD")
	}
	return t.Format(types.DateLayout), nil
}

func normalizeClock(clock string) (string, error) {
	t, err := time.Parse(types.ClockLayout, clock)
	if err != nil {
		return "", invalidInput("time must be HH:MM")
	}
	return t.Format(types.ClockLayout), nil
}
